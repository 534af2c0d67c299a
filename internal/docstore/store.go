package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Doc is a schemaless document body.
type Doc map[string]any

// Snapshot is a document together with its id.
type Snapshot struct {
	ID   string
	Data Doc
}

// Store is the document database contract used by the rest of the app.
// Collections are slash separated paths such as "restaurants/r1/categories".
type Store interface {
	Get(ctx context.Context, collection, id string) (Doc, error)
	List(ctx context.Context, collection string) ([]Snapshot, error)
	Add(ctx context.Context, collection string, data Doc) (string, error)
	Set(ctx context.Context, collection, id string, data Doc, merge bool) error
	Update(ctx context.Context, collection, id string, data Doc) error
	Delete(ctx context.Context, collection, id string) error

	// Commit applies every write atomically: all of them or none.
	Commit(ctx context.Context, writes []Write) error
}

type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteMerge
	WriteUpdate
	WriteDelete
)

// Write is one operation inside a batch.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Data       Doc
}

// Batch collects writes for a single Commit call.
type Batch struct {
	store  Store
	writes []Write
}

func NewBatch(store Store) *Batch {
	return &Batch{store: store}
}

func (b *Batch) Set(collection, id string, data Doc) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteSet, Collection: collection, ID: id, Data: data})
	return b
}

// Merge upserts: creates the document if absent, otherwise merges data into it.
func (b *Batch) Merge(collection, id string, data Doc) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteMerge, Collection: collection, ID: id, Data: data})
	return b
}

func (b *Batch) Update(collection, id string, data Doc) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteUpdate, Collection: collection, ID: id, Data: data})
	return b
}

func (b *Batch) Delete(collection, id string) *Batch {
	b.writes = append(b.writes, Write{Kind: WriteDelete, Collection: collection, ID: id})
	return b
}

func (b *Batch) Len() int {
	return len(b.writes)
}

func (b *Batch) Commit(ctx context.Context) error {
	if len(b.writes) == 0 {
		return nil
	}
	return b.store.Commit(ctx, b.writes)
}

// ArrayUnion appends values to an array field, skipping ones already present.
type ArrayUnion []any

func Union(values ...any) ArrayUnion {
	return ArrayUnion(values)
}

type deleteField struct{}

// DeleteField removes the key it is assigned to during a merge or update.
var DeleteField = deleteField{}
