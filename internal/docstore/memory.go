package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memEntry struct {
	data Doc
	seq  int64
}

// MemoryStore keeps documents in process memory. Used by tests and the
// "memory" driver for local runs.
type MemoryStore struct {
	mu   sync.Mutex
	cols map[string]map[string]memEntry
	seq  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cols: make(map[string]map[string]memEntry)}
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.cols[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return clone(e.data), nil
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type row struct {
		id string
		e  memEntry
	}
	var rows []row
	for id, e := range m.cols[collection] {
		rows = append(rows, row{id, e})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].e.seq < rows[j].e.seq })

	out := make([]Snapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, Snapshot{ID: r.id, Data: clone(r.e.data)})
	}
	return out, nil
}

func (m *MemoryStore) Add(ctx context.Context, collection string, data Doc) (string, error) {
	id := uuid.NewString()
	return id, m.Commit(ctx, []Write{{Kind: WriteSet, Collection: collection, ID: id, Data: data}})
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, data Doc, merge bool) error {
	kind := WriteSet
	if merge {
		kind = WriteMerge
	}
	return m.Commit(ctx, []Write{{Kind: kind, Collection: collection, ID: id, Data: data}})
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, data Doc) error {
	return m.Commit(ctx, []Write{{Kind: WriteUpdate, Collection: collection, ID: id, Data: data}})
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	return m.Commit(ctx, []Write{{Kind: WriteDelete, Collection: collection, ID: id}})
}

func (m *MemoryStore) Commit(ctx context.Context, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	type key struct{ col, id string }
	type staged struct {
		data  Doc
		found bool
		seq   int64
	}
	overlay := map[key]*staged{}
	var order []key

	for _, w := range writes {
		k := key{w.Collection, w.ID}
		st, ok := overlay[k]
		if !ok {
			e, found := m.cols[w.Collection][w.ID]
			st = &staged{data: e.data, found: found, seq: e.seq}
			overlay[k] = st
			order = append(order, k)
		}

		result, keep, err := Apply(st.data, st.found, w)
		if err != nil {
			return err
		}
		if keep && !st.found {
			m.seq++
			st.seq = m.seq
		}
		st.data, st.found = result, keep
	}

	for _, k := range order {
		st := overlay[k]
		if !st.found {
			delete(m.cols[k.col], k.id)
			continue
		}
		if m.cols[k.col] == nil {
			m.cols[k.col] = make(map[string]memEntry)
		}
		m.cols[k.col][k.id] = memEntry{data: st.data, seq: st.seq}
	}
	return nil
}

// Count returns the number of documents in a collection.
func (m *MemoryStore) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cols[collection])
}
