package lynx

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Alexk-195/lynx-vector-db-sub000/pkg/index"
)

// Database is the polymorphic façade wrapping one index implementation
// (Flat/HNSW/IVF) plus an independent id->VectorRecord map used for
// metadata and iteration (spec §4.G), grounded on the teacher's
// pkg/sqvect.DB / pkg/core.SQLiteStore constructor shape but stripped down
// to the in-memory, index-only scope this spec mandates.
type Database struct {
	mu      sync.RWMutex
	cfg     Config
	idx     index.VectorIndex
	records map[uint64]VectorRecord
	logger  Logger

	// writeLog is non-nil only when cfg.IndexType == HNSWIndex; it backs
	// the non-blocking maintenance protocol (spec §4.F).
	writeLog *index.WriteLog

	totalInserts     atomic.Uint64
	totalQueries     atomic.Uint64
	totalQueryTimeNs atomic.Uint64
}

// Create builds a new, empty Database for config.
func Create(cfg Config, opts ...Option) (*Database, error) {
	if cfg.Dimension <= 0 {
		return nil, wrapError("create", ErrInvalidConfig)
	}

	idx, writeLog, err := newIndexFor(cfg)
	if err != nil {
		return nil, wrapError("create", err)
	}

	d := &Database{
		cfg:      cfg,
		idx:      idx,
		records:  make(map[uint64]VectorRecord),
		logger:   nopLogger{},
		writeLog: writeLog,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func newIndexFor(cfg Config) (index.VectorIndex, *index.WriteLog, error) {
	switch cfg.IndexType {
	case Flat:
		return index.NewFlat(cfg.Dimension, cfg.Metric), nil, nil
	case HNSWIndex:
		return index.NewHNSW(cfg.Dimension, cfg.Metric, cfg.HNSW), index.NewWriteLog(), nil
	case IVFIndex:
		params := cfg.IVF
		if params.NCentroids <= 0 {
			return nil, nil, &index.Error{Code: InvalidArgument, Msg: "ivf requires n_clusters > 0"}
		}
		return index.NewIVF(cfg.Dimension, cfg.Metric, params), nil, nil
	default:
		return nil, nil, &index.Error{Code: InvalidArgument, Msg: "unknown index type"}
	}
}

// Insert validates and stores r, under the database writer lock then the
// index writer lock, in that order (spec §5).
func (d *Database) Insert(r VectorRecord) error {
	if len(r.Vector) != d.cfg.Dimension {
		return wrapError("insert", &index.Error{Code: DimensionMismatch, Msg: "vector length mismatch"})
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.records[r.ID]; exists {
		return wrapError("insert", &index.Error{Code: InvalidState, Msg: "duplicate id"})
	}
	if err := d.idx.Add(r.ID, r.Vector); err != nil {
		return wrapError("insert", err)
	}
	d.records[r.ID] = VectorRecord{ID: r.ID, Vector: cloneVec(r.Vector), Metadata: r.Metadata}

	if d.writeLog != nil && d.writeLog.Enabled() {
		if !d.writeLog.LogInsert(r.ID, r.Vector) {
			d.logger.Warn("write log overflow during insert", "id", r.ID)
		}
	}

	d.totalInserts.Add(1)
	return nil
}

// BatchInsert applies the policy from spec §4.G: Flat/HNSW insert
// individually; an empty IVF index bulk-builds; a non-empty IVF index
// rebuilds via k-means when the batch is >=10% of its current size,
// otherwise falls back to individual inserts.
func (d *Database) BatchInsert(records []VectorRecord) error {
	for _, r := range records {
		if len(r.Vector) != d.cfg.Dimension {
			return wrapError("batch_insert", &index.Error{Code: DimensionMismatch, Msg: "vector length mismatch"})
		}
	}

	if d.cfg.IndexType != IVFIndex {
		for _, r := range records {
			if err := d.Insert(r); err != nil {
				return err
			}
		}
		return nil
	}

	d.mu.Lock()
	currentSize := len(d.records)
	d.mu.Unlock()

	if currentSize == 0 {
		return d.bulkBuild(records)
	}
	if len(records)*10 >= currentSize {
		return d.rebuildMerge(records)
	}
	for _, r := range records {
		if err := d.Insert(r); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) bulkBuild(records []VectorRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]uint64, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		ids[i] = r.ID
		vectors[i] = r.Vector
	}
	if err := d.idx.Build(ids, vectors); err != nil {
		return wrapError("batch_insert", err)
	}
	d.records = make(map[uint64]VectorRecord, len(records))
	for _, r := range records {
		d.records[r.ID] = VectorRecord{ID: r.ID, Vector: cloneVec(r.Vector), Metadata: r.Metadata}
	}
	d.totalInserts.Add(uint64(len(records)))
	return nil
}

func (d *Database) rebuildMerge(records []VectorRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	merged := make(map[uint64]VectorRecord, len(d.records)+len(records))
	for id, r := range d.records {
		merged[id] = r
	}
	for _, r := range records {
		merged[r.ID] = VectorRecord{ID: r.ID, Vector: cloneVec(r.Vector), Metadata: r.Metadata}
	}

	ids := make([]uint64, 0, len(merged))
	for rid := range merged {
		ids = append(ids, rid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	vectors := make([][]float32, len(ids))
	for i, rid := range ids {
		vectors[i] = merged[rid].Vector
	}
	if err := d.idx.Build(ids, vectors); err != nil {
		return wrapError("batch_insert", err)
	}
	d.records = merged
	d.totalInserts.Add(uint64(len(records)))
	return nil
}

// Remove deletes id from both the record map and the index.
func (d *Database) Remove(recordID uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, hasRecord := d.records[recordID]
	idxErr := d.idx.Remove(recordID)
	if !hasRecord && idxErr != nil {
		return wrapError("remove", &index.Error{Code: VectorNotFound, Msg: "id not found"})
	}
	delete(d.records, recordID)

	if d.writeLog != nil && d.writeLog.Enabled() {
		if !d.writeLog.LogRemove(recordID) {
			d.logger.Warn("write log overflow during remove", "id", recordID)
		}
	}
	return nil
}

// Contains reports whether id is stored.
func (d *Database) Contains(id uint64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.records[id]
	return ok
}

// Get returns a clone of the stored record for id.
func (d *Database) Get(id uint64) (VectorRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.records[id]
	if !ok {
		return VectorRecord{}, wrapError("get", &index.Error{Code: VectorNotFound, Msg: "id not found"})
	}
	return VectorRecord{ID: r.ID, Vector: cloneVec(r.Vector), Metadata: r.Metadata}, nil
}

// Size returns the number of stored records.
func (d *Database) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Dimension returns the configured vector dimension.
func (d *Database) Dimension() int { return d.cfg.Dimension }

// Config returns the database's immutable configuration.
func (d *Database) Config() Config { return d.cfg }

// Stats reports cumulative counters and memory footprints (spec §3/§4.G).
func (d *Database) Stats() DatabaseStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var recordBytes int64
	for _, r := range d.records {
		recordBytes += 8 + 4*int64(len(r.Vector)) + int64(len(r.Metadata))
	}

	totalQueries := d.totalQueries.Load()
	totalTimeNs := d.totalQueryTimeNs.Load()
	avg := 0.0
	if totalQueries > 0 {
		avg = float64(totalTimeNs) / 1e6 / float64(totalQueries)
	}

	return DatabaseStats{
		VectorCount:      len(d.records),
		Dimension:        d.cfg.Dimension,
		MemoryUsageBytes: recordBytes,
		IndexMemoryBytes: d.idx.MemoryUsage(),
		TotalQueries:     totalQueries,
		TotalInserts:     d.totalInserts.Load(),
		AvgQueryTimeMs:   avg,
	}
}

// addQueryTime is called by Search to accumulate elapsed query time as
// nanoseconds in an atomic counter (spec §5: stats use atomic fetch-add).
func (d *Database) addQueryTime(elapsedNs uint64) {
	d.totalQueryTimeNs.Add(elapsedNs)
}

func cloneVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
