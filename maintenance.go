package lynx

import (
	"golang.org/x/sync/errgroup"

	"github.com/Alexk-195/lynx-vector-db-sub000/pkg/index"
)

// RunMaintenance executes the non-blocking HNSW maintenance protocol
// (spec §4.F): clone the live graph, optimize the clone off the hot path
// inside an errgroup, replay writes captured during optimization, then
// swap the clone in as the new live index. It is a no-op, successfully,
// for non-HNSW databases. Returns InvalidState if the write log overflows
// during optimization, leaving the live index untouched.
func (d *Database) RunMaintenance() error {
	if d.cfg.IndexType != HNSWIndex {
		return nil
	}

	d.mu.Lock()
	live, ok := d.idx.(*index.HNSW)
	if !ok {
		d.mu.Unlock()
		return wrapError("maintenance", &index.Error{Code: InvalidState, Msg: "index is not HNSW"})
	}
	d.writeLog.Enable()
	d.mu.Unlock()

	var g errgroup.Group
	var clone *index.HNSW
	g.Go(func() error {
		clone = live.Clone()
		return clone.Compact()
	})
	if err := g.Wait(); err != nil {
		d.writeLog.Disable()
		return wrapError("maintenance", err)
	}

	if d.writeLog.AtWarnThreshold() {
		d.logger.Warn("write log nearing capacity during maintenance", "size", d.writeLog.Size())
	}
	d.mu.Lock()
	if d.writeLog.Size() >= index.MaxWriteLogEntries {
		d.writeLog.Disable()
		d.mu.Unlock()
		return wrapError("maintenance", &index.Error{Code: InvalidState, Msg: "write log overflow, aborting maintenance"})
	}
	d.writeLog.ReplayTo(clone)
	d.idx = clone
	d.writeLog.Disable()
	d.mu.Unlock()

	d.logger.Info("maintenance swap complete")
	return nil
}
