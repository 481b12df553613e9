package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "path/page.html", "text/html", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://path/page.html" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'C'
	obj, ok := store.Get("path/page.html")
	if !ok {
		t.Fatal("expected object to be stored")
	}
	if string(obj.Data) != "content" || obj.ContentType != "text/html" {
		t.Fatalf("expected stored copy to be immutable, got %+v", obj)
	}
}

func TestBlobStoreExistsAndWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewBlobStore()
	if ok, _ := store.Exists(ctx, "a"); ok {
		t.Fatal("expected a to be absent")
	}
	for i := 0; i < 2; i++ {
		if _, err := store.PutObject(ctx, "a", "", bytes.NewReader(nil)); err != nil {
			t.Fatalf("PutObject() error = %v", err)
		}
	}
	if _, err := store.PutObject(ctx, "b", "", bytes.NewReader(nil)); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, "a"); !ok {
		t.Fatal("expected a to exist")
	}
	if store.Writes() != 3 {
		t.Fatalf("expected 3 writes, got %d", store.Writes())
	}
	if got := store.Paths(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected paths %v", got)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if len(store.Paths()) != 0 {
		t.Fatal("expected store to be empty after Clear")
	}
}
