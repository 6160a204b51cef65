package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/argument/internal/apperr"
	"github.com/starford/argument/internal/note"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func at(min int) time.Time {
	return time.Date(2025, 9, 22, 9, min, 0, 0, time.UTC)
}

func TestInsertGet_RoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n := note.New("Argument important", "Contenu", nil)
	if err := db.Insert(ctx, n); err != nil {
		t.Fatal(err)
	}
	got, err := db.Get(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != n.Title || got.Content != n.Content {
		t.Errorf("got %+v", got)
	}
	if got.ImageData != nil {
		t.Error("text note came back with image data")
	}
	if !got.CreatedAt.Equal(n.CreatedAt) || !got.ModifiedAt.Equal(n.ModifiedAt) {
		t.Errorf("timestamps changed: %v %v", got.CreatedAt, got.ModifiedAt)
	}
}

func TestImageRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	img := note.New("Photo", "", []byte{0x89, 'P', 'N', 'G', 0, 1})
	empty := note.New("Vide", "", []byte{})
	for _, n := range []*note.Note{img, empty} {
		if err := db.Insert(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := db.Get(ctx, img.ID)
	if !bytes.Equal(got.ImageData, img.ImageData) {
		t.Errorf("image = %v", got.ImageData)
	}
	got, _ = db.Get(ctx, empty.ID)
	if got.ImageData == nil || len(got.ImageData) != 0 {
		t.Errorf("empty image must stay an image note, got %v", got.ImageData)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := testDB(t).Get(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := note.New("Avant", "x", nil)
	_ = db.Insert(ctx, n)

	n.Title = "Après"
	n.ModifiedAt = n.ModifiedAt.Add(time.Minute)
	if err := db.Update(ctx, n); err != nil {
		t.Fatal(err)
	}
	got, _ := db.Get(ctx, n.ID)
	if got.Title != "Après" || !got.ModifiedAt.Equal(n.ModifiedAt) {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(n.CreatedAt) {
		t.Error("CreatedAt must not change on update")
	}
}

func TestUpdate_Missing(t *testing.T) {
	err := testDB(t).Update(context.Background(), note.New("x", "", nil))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, b := note.New("a", "", nil), note.New("b", "", nil)
	_ = db.Insert(ctx, a)
	_ = db.Insert(ctx, b)

	deleted, err := db.Delete(ctx, a.ID, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 1 || deleted[0] != a.ID {
		t.Errorf("deleted = %v", deleted)
	}
	deleted, err = db.Delete(ctx, a.ID)
	if err != nil || len(deleted) != 0 {
		t.Errorf("second delete = %v, %v", deleted, err)
	}
	if n, _ := db.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestQueryAll_Order(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	notes := []*note.Note{
		{ID: "1", Title: "old", CreatedAt: at(0), ModifiedAt: at(30)},
		{ID: "2", Title: "new", CreatedAt: at(10), ModifiedAt: at(10)},
		{ID: "3", Title: "tie", CreatedAt: at(5), ModifiedAt: at(30)},
	}
	for _, n := range notes {
		if err := db.Insert(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.QueryAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	wantIDs(t, got, "1", "3", "2")

	// The SQL order agrees with the in-memory projection.
	wantIDs(t, note.List(notes), "1", "3", "2")
}

func TestPing(t *testing.T) {
	if err := testDB(t).Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	n := note.New("durable", "", nil)
	if err := db.Insert(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Get(context.Background(), n.ID); err != nil {
		t.Errorf("note lost after reopen: %v", err)
	}
}

func wantIDs(t *testing.T, got []*note.Note, ids ...string) {
	t.Helper()
	if len(got) != len(ids) {
		t.Fatalf("len = %d, want %d", len(got), len(ids))
	}
	for i, id := range ids {
		if got[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}
