// Package tabletio implements the per-load transactional write path of a
// storage-engine tablet.
//
// A DeltaWriter admits the rows of one load transaction into one tablet. It
// buffers rows in a memtable, spills them into an immutable rowset when the
// buffer crosses its size threshold, coordinates with the transaction
// registry so an abort or crash leaves no orphaned state, and, when a
// schema migration is in flight for the tablet, duplicates the write into
// the new-schema tablet so both versions stay consistent.
//
// Lifecycle:
//
//	w, _ := tabletio.Open(req, deps)
//	defer w.Release()
//	for _, row := range rows {
//	    if err := w.Write(ctx, row); err != nil { ... }
//	}
//	var infos []model.TabletInfo
//	if err := w.Close(ctx, &infos); err != nil { ... }
//
// A writer that is released without a successful Close unwinds everything it
// registered: prepared transactions are deleted and built-but-uncommitted
// rowsets are handed to the unused-rowset collector for asynchronous
// removal.
//
// Each DeltaWriter is driven by a single logical writer; Write, Close and
// Release on one instance must be sequenced by the caller. Writers for
// different tablets or transactions run concurrently and share only the
// injected collaborators.
package tabletio
