// Package gc removes the on-disk bytes of rowsets that were built but never
// committed. Hand-off is fire-and-forget so a writer's teardown never blocks
// on file I/O.
package gc

import (
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tabletio/fsys"
	"github.com/hupe1980/tabletio/rowset"
)

const defaultQueueSize = 128

// Collector drains unused rowsets in the background and deletes their
// segment files with bounded parallelism.
type Collector struct {
	fs     fsys.FileSystem
	logger *slog.Logger

	ch     chan *rowset.Rowset
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a collector with the given number of delete workers. A nil fs
// falls back to the local file system; workers <= 0 means one worker.
func New(fs fsys.FileSystem, workers int, logger *slog.Logger) *Collector {
	if fs == nil {
		fs = fsys.Default
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Collector{
		fs:     fs,
		logger: logger,
		ch:     make(chan *rowset.Rowset, defaultQueueSize),
	}
	c.wg.Add(1)
	go c.run(workers)
	return c
}

func (c *Collector) run(workers int) {
	defer c.wg.Done()

	var g errgroup.Group
	g.SetLimit(workers)
	for rs := range c.ch {
		rs := rs
		g.Go(func() error {
			if err := c.fs.Remove(rs.Path()); err != nil {
				c.logger.Warn("remove unused rowset failed",
					"rowset_id", rs.ID(),
					"path", rs.Path(),
					"error", err,
				)
				return nil
			}
			c.logger.Debug("removed unused rowset",
				"rowset_id", rs.ID(),
				"path", rs.Path(),
			)
			return nil
		})
	}
	_ = g.Wait()
}

// AddUnused queues a rowset for removal. It never blocks teardown: after
// Close, or when the queue is full, the hand-off is dropped with a warning
// and the bytes are left for a later sweep.
func (c *Collector) AddUnused(rs *rowset.Rowset) {
	if rs == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		c.logger.Warn("collector closed, leaking rowset", "rowset_id", rs.ID())
		return
	}
	select {
	case c.ch <- rs:
	default:
		c.logger.Warn("collector queue full, leaking rowset", "rowset_id", rs.ID())
	}
}

// Close drains the queue and stops the workers. It is idempotent.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	c.mu.Unlock()
	c.wg.Wait()
}
