package docstore

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMergeKeepsUntouchedFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "restaurants", "r1", Doc{"name": "Cafe", "themeColor": "#fff"}, false); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "restaurants", "r1", Doc{"name": "Cafe 2"}, true); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Get(ctx, "restaurants", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if doc["name"] != "Cafe 2" || doc["themeColor"] != "#fff" {
		t.Fatalf("unexpected merge result: %v", doc)
	}
}

func TestSetWithoutMergeReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.Set(ctx, "c", "1", Doc{"a": 1, "b": 2}, false)
	_ = s.Set(ctx, "c", "1", Doc{"a": 3}, false)

	doc, _ := s.Get(ctx, "c", "1")
	if _, ok := doc["b"]; ok {
		t.Fatalf("expected b to be gone, got %v", doc)
	}
	if doc["a"] != float64(3) {
		t.Fatalf("expected a=3, got %v", doc["a"])
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "users", "nobody", Doc{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArrayUnionSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.Set(ctx, "users", "u1", Doc{"restaurantIds": []string{"r1"}}, false)
	_ = s.Update(ctx, "users", "u1", Doc{"restaurantIds": Union("r1", "r2")})
	_ = s.Update(ctx, "users", "u1", Doc{"restaurantIds": Union("r2")})

	doc, _ := s.Get(ctx, "users", "u1")
	ids, _ := doc["restaurantIds"].([]any)
	if len(ids) != 2 || ids[0] != "r1" || ids[1] != "r2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestArrayUnionOnMissingField(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.Set(ctx, "users", "u1", Doc{"name": "A"}, false)
	_ = s.Update(ctx, "users", "u1", Doc{"restaurantIds": Union("r1")})

	doc, _ := s.Get(ctx, "users", "u1")
	ids, _ := doc["restaurantIds"].([]any)
	if len(ids) != 1 {
		t.Fatalf("expected one id, got %v", ids)
	}
}

func TestDeleteFieldSentinel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.Set(ctx, "c", "1", Doc{"logoPath": "a.png", "name": "x"}, false)
	_ = s.Update(ctx, "c", "1", Doc{"logoPath": DeleteField})

	doc, _ := s.Get(ctx, "c", "1")
	if _, ok := doc["logoPath"]; ok {
		t.Fatalf("logoPath should be removed: %v", doc)
	}
}

func TestBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := NewBatch(s).
		Merge("restaurants", "r1", Doc{"name": "Cafe"}).
		Update("users", "missing", Doc{"restaurantIds": Union("r1")}).
		Commit(ctx)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if s.Count("restaurants") != 0 {
		t.Fatal("restaurant write leaked out of a failed batch")
	}
}

func TestListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, id := range []string{"z", "a", "m"} {
		_ = s.Set(ctx, "col", id, Doc{"v": id}, false)
	}
	// rewriting an existing doc must not move it
	_ = s.Set(ctx, "col", "z", Doc{"v": "z2"}, true)

	snaps, _ := s.List(ctx, "col")
	got := []string{snaps[0].ID, snaps[1].ID, snaps[2].ID}
	if got[0] != "z" || got[1] != "a" || got[2] != "m" {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestGormStoreWithSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	// every pooled connection would otherwise see its own empty database
	sqlDB.SetMaxOpenConns(1)

	s, err := NewGormStore(db)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	err = NewBatch(s).
		Merge("restaurants", "r1", Doc{"name": "Cafe"}).
		Merge("restaurants/r1/categories", "c1", Doc{"name": "Drinks"}).
		Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "restaurants", "r1", Doc{"nameAr": "مقهى"}, true); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Get(ctx, "restaurants", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if doc["name"] != "Cafe" || doc["nameAr"] != "مقهى" {
		t.Fatalf("unexpected doc %v", doc)
	}

	if err := s.Delete(ctx, "restaurants", "r1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "restaurants", "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	snaps, err := s.List(ctx, "restaurants/r1/categories")
	if err != nil || len(snaps) != 1 {
		t.Fatalf("expected one category, got %v (%v)", snaps, err)
	}

	// one transaction, ids deliberately out of alphabetical order
	err = NewBatch(s).
		Set("dishes", "z", Doc{"name": "Zaatar"}).
		Set("dishes", "a", Doc{"name": "Ayran"}).
		Set("dishes", "m", Doc{"name": "Manakish"}).
		Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "dishes", "z", Doc{"name": "Zaatar 2"}, false); err != nil {
		t.Fatal(err)
	}

	snaps, err = s.List(ctx, "dishes")
	if err != nil || len(snaps) != 3 {
		t.Fatalf("expected three dishes, got %v (%v)", snaps, err)
	}
	got := []string{snaps[0].ID, snaps[1].ID, snaps[2].ID}
	if got[0] != "z" || got[1] != "a" || got[2] != "m" {
		t.Fatalf("batch lost insertion order: %v", got)
	}
}
