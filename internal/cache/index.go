package cache

import (
	"sheetvault/internal/model"
)

// Fixed keys for the persisted local state layout: the whole archive index
// lives under one key, extraction results under one key per archive id.
const (
	indexKey      = "archive_index"
	rowsKeyPrefix = "rows/"
)

// Index exposes archive-level operations on top of a Store.
type Index struct {
	store Store
}

func NewIndex(store Store) *Index {
	return &Index{store: store}
}

// Store returns the underlying key-value store.
func (i *Index) Store() Store {
	return i.store
}

// Load returns the persisted archive index, most-recent-first. A missing
// index reads as empty.
func (i *Index) Load() ([]model.ArchiveRecord, error) {
	var recs []model.ArchiveRecord
	if _, err := i.store.Get(indexKey, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Save persists the whole index.
func (i *Index) Save(recs []model.ArchiveRecord) error {
	return i.store.Put(indexKey, recs)
}

// Prepend inserts rec at the front of the index and persists it, keeping
// most-recent-first ordering.
func (i *Index) Prepend(rec model.ArchiveRecord) error {
	recs, err := i.Load()
	if err != nil {
		return err
	}
	return i.Save(append([]model.ArchiveRecord{rec}, recs...))
}

// Find returns the record with the given id, or nil.
func (i *Index) Find(id string) (*model.ArchiveRecord, error) {
	recs, err := i.Load()
	if err != nil {
		return nil, err
	}
	for k := range recs {
		if recs[k].ID == id {
			return &recs[k], nil
		}
	}
	return nil, nil
}

// Remove deletes the record with the given id and persists the index.
// It reports whether an entry existed.
func (i *Index) Remove(id string) (bool, error) {
	recs, err := i.Load()
	if err != nil {
		return false, err
	}
	out := recs[:0]
	found := false
	for _, r := range recs {
		if r.ID == id {
			found = true
			continue
		}
		out = append(out, r)
	}
	if !found {
		return false, nil
	}
	return true, i.Save(out)
}

// Clear empties the index.
func (i *Index) Clear() error {
	return i.Save([]model.ArchiveRecord{})
}

// RowsKey returns the cache key holding extraction results for an archive.
func RowsKey(archiveID string) string {
	return rowsKeyPrefix + archiveID
}

// LoadRows returns the cached extraction result for an archive, if any.
func (i *Index) LoadRows(archiveID string) (*model.RowSet, bool, error) {
	var rs model.RowSet
	ok, err := i.store.Get(RowsKey(archiveID), &rs)
	if err != nil || !ok {
		return nil, false, err
	}
	return &rs, true, nil
}

// SaveRows caches an extraction result keyed by archive id.
func (i *Index) SaveRows(rs model.RowSet) error {
	return i.store.Put(RowsKey(rs.ArchiveID), rs)
}

// DeleteRows drops the cached extraction result for an archive.
func (i *Index) DeleteRows(archiveID string) error {
	return i.store.Delete(RowsKey(archiveID))
}
