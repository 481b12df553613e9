package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	id2, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected unique ids, got %s twice", id1)
	}
	parsed, err := goUUID.Parse(id1)
	if err != nil {
		t.Fatalf("expected valid uuid, got %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
	if id1 > id2 {
		t.Fatalf("expected time-ordered ids, got %s then %s", id1, id2)
	}
}
