package lynx

// Iterator is a forward-only, read-locked view over a Database's stored
// records (spec §4.H). Construction acquires a shared lock on the record
// map; Close releases it. Concurrent writers block until every live
// iterator is closed. The iterator only observes the snapshot of ids
// present at construction time — later inserts/removes are invisible to
// it, consistent with the database's snapshot-by-lock semantics.
type Iterator struct {
	db     *Database
	ids    []uint64
	pos    int
	closed bool
}

// Next advances the iterator and reports whether a record is available.
func (it *Iterator) Next() bool {
	if it.closed || it.pos >= len(it.ids) {
		return false
	}
	it.pos++
	return true
}

// Record returns the id and a cloned record at the iterator's current
// position, so mutating the returned VectorRecord's Vector can never
// corrupt the database's live data (spec: records are "owned by the
// database; cloned on retrieval"). Valid only after a call to Next that
// returned true.
func (it *Iterator) Record() (uint64, VectorRecord) {
	id := it.ids[it.pos-1]
	r := it.db.records[id]
	return id, VectorRecord{ID: r.ID, Vector: cloneVec(r.Vector), Metadata: r.Metadata}
}

// Close releases the shared lock taken at construction. Safe to call more
// than once.
func (it *Iterator) Close() {
	if it.closed {
		return
	}
	it.closed = true
	it.db.mu.RUnlock()
}
