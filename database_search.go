package lynx

import "time"

// Search finds the k nearest neighbors of query under the configured
// metric, joins stored metadata by id, and updates query statistics
// (spec §4.G). Invalid input (wrong dimension, k<=0) returns an empty
// result without bumping total_queries, per spec §7.
func (d *Database) Search(query []float32, k int, params SearchParams) (SearchResult, error) {
	if len(query) != d.cfg.Dimension || k <= 0 {
		return SearchResult{}, nil
	}

	start := time.Now()

	d.mu.RLock()
	items, err := d.idx.Search(query, k, params.toIndexParams())
	if err != nil {
		d.mu.RUnlock()
		return SearchResult{}, wrapError("search", err)
	}

	result := SearchResult{
		Items:           make([]SearchResultItem, len(items)),
		TotalCandidates: uint64(len(items)),
	}
	for i, it := range items {
		meta := d.records[it.ID].Metadata
		result.Items[i] = SearchResultItem{ID: it.ID, Distance: it.Distance, Metadata: meta}
	}
	d.mu.RUnlock()

	elapsed := time.Since(start)
	result.QueryTimeMs = float64(elapsed.Nanoseconds()) / 1e6

	d.totalQueries.Add(1)
	d.addQueryTime(uint64(elapsed.Nanoseconds()))

	return result, nil
}

// AllRecords returns a forward-only Iterator over every stored record,
// snapshotted under a shared lock (spec §4.H).
func (d *Database) AllRecords() *Iterator {
	d.mu.RLock()
	ids := make([]uint64, 0, len(d.records))
	for id := range d.records {
		ids = append(ids, id)
	}
	return &Iterator{db: d, ids: ids}
}
