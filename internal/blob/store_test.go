package blob

import (
	"bytes"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open blob store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutAndGet(t *testing.T) {
	store := newTestStore(t)

	data := []byte("RIFF....WAVEfmt ")
	meta := Metadata{
		UserID:      "alice",
		Filename:    "alice_enrollment.wav",
		ContentType: "audio/wav",
		Kind:        "enrollment_voice",
		CreatedAt:   time.Now().UTC(),
	}

	id, err := store.Put(data, meta)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if id == "" {
		t.Fatal("Put returned an empty id")
	}

	got, gotMeta, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Blob bytes differ: got %q", got)
	}
	if gotMeta.UserID != "alice" || gotMeta.Kind != "enrollment_voice" {
		t.Errorf("Metadata mismatch: %+v", gotMeta)
	}
}

func TestPutIsWriteOnce(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.Put([]byte("first"), Metadata{UserID: "alice"})
	if err != nil {
		t.Fatalf("First put failed: %v", err)
	}
	id2, err := store.Put([]byte("second"), Metadata{UserID: "alice"})
	if err != nil {
		t.Fatalf("Second put failed: %v", err)
	}
	if id1 == id2 {
		t.Fatal("Two puts returned the same id")
	}

	got, _, err := store.Get(id1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("Earlier blob was overwritten: %q", got)
	}
}

func TestPutFillsCreatedAt(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Put([]byte("x"), Metadata{UserID: "bob"})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	_, meta, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if meta.CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted on put")
	}
}

func TestGetMissingBlob(t *testing.T) {
	store := newTestStore(t)
	if _, _, err := store.Get("no-such-id"); err == nil {
		t.Error("Expected an error for a missing blob")
	}
}
