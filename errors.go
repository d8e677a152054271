package tabletio

import "errors"

// Every fallible step of the write path surfaces exactly one of these
// sentinels, wrapped with the failure's context. Match with errors.Is.
var (
	// ErrTabletNotFound is returned when the request references an unknown
	// (tablet id, schema hash) pair.
	ErrTabletNotFound = errors.New("tablet not found")

	// ErrTxnPrepare is returned when the transaction registry rejects the
	// prepare call.
	ErrTxnPrepare = errors.New("transaction prepare failed")

	// ErrIDGeneration is returned when a rowset id cannot be allocated.
	ErrIDGeneration = errors.New("rowset id generation failed")

	// ErrDirectoryCreate is returned when a pending dir cannot be created.
	ErrDirectoryCreate = errors.New("pending directory create failed")

	// ErrBuilderInit is returned when the rowset builder cannot be
	// constructed.
	ErrBuilderInit = errors.New("rowset builder init failed")

	// ErrColumnMismatch is returned when the request's row shape does not
	// cover the tablet schema.
	ErrColumnMismatch = errors.New("row shape does not cover tablet schema")

	// ErrFlush is returned when spilling a memtable into the builder fails.
	ErrFlush = errors.New("memtable flush failed")

	// ErrBuild is returned when finalizing the rowset fails.
	ErrBuild = errors.New("rowset build failed")

	// ErrPersist is returned when saving rowset metadata fails. A load is
	// committed-pending only once its meta record is durably written.
	ErrPersist = errors.New("rowset meta persist failed")

	// ErrSchemaChange is returned when converting the load into the
	// migration target tablet fails.
	ErrSchemaChange = errors.New("schema change conversion failed")

	// ErrCancelAfterInit is returned when Cancel is called after
	// initialization registered state, including a prepare that later
	// failed partway. Such a write is abandoned by releasing the writer
	// without Close.
	ErrCancelAfterInit = errors.New("cancel after initialization")
)
