package state

import (
	"context"
	"errors"
	"testing"

	viewstate "github.com/goliatone/go-viewstate"
)

func newPage() (*viewstate.Composite, *viewstate.Bag, *viewstate.Bag) {
	own := viewstate.NewBag()
	grid := viewstate.NewBag()
	root := viewstate.NewComposite(own)
	root.MustRegister("grid", grid)
	root.TrackState()
	return root, own, grid
}

func TestPersisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	persister := NewPersister(NewMemoryStore(), viewstate.NewCodec(viewstate.WithMACKey([]byte("secret"))))
	ref := Ref{Page: "orders", Session: "s1"}

	root, own, grid := newPage()
	own.Set("Title", "Orders")
	grid.Set("PageIndex", 3)

	meta, err := persister.Save(ctx, ref, root, Meta{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if meta.ETag == "" {
		t.Fatalf("expected etag")
	}

	restored, restoredOwn, restoredGrid := newPage()
	ok, loaded, err := persister.Load(ctx, ref, restored)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.ETag != meta.ETag {
		t.Fatalf("etag mismatch: got %q want %q", loaded.ETag, meta.ETag)
	}
	if got := viewstate.Value(restoredOwn, "Title", ""); got != "Orders" {
		t.Fatalf("title mismatch: got %q", got)
	}
	if got := viewstate.Value(restoredGrid, "PageIndex", 0); got != 3 {
		t.Fatalf("page index mismatch: got %d", got)
	}
}

func TestPersisterLoadMissing(t *testing.T) {
	persister := NewPersister(NewMemoryStore(), nil)
	root, _, _ := newPage()
	ok, _, err := persister.Load(context.Background(), Ref{Page: "none"}, root)
	if err != nil || ok {
		t.Fatalf("expected ok=false without error, got ok=%v err=%v", ok, err)
	}
}

func TestPersisterRejectsStaleETag(t *testing.T) {
	ctx := context.Background()
	persister := NewPersister(NewMemoryStore(), nil)
	ref := Ref{Page: "orders"}

	root, own, _ := newPage()
	own.Set("Title", "first")
	first, err := persister.Save(ctx, ref, root, Meta{})
	if err != nil {
		t.Fatalf("save first: %v", err)
	}

	own.Set("Title", "second")
	second, err := persister.Save(ctx, ref, root, first)
	if err != nil {
		t.Fatalf("save with current etag: %v", err)
	}
	if second.ETag == first.ETag {
		t.Fatalf("expected etag to change with content")
	}
	if second.SnapshotID == first.SnapshotID {
		t.Fatalf("expected a new snapshot id per save")
	}

	own.Set("Title", "third")
	if _, err := persister.Save(ctx, ref, root, first); !errors.Is(err, ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}
}

func TestPersisterTamperedBlob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	persister := NewPersister(store, viewstate.NewCodec(viewstate.WithMACKey([]byte("k1"))))
	ref := Ref{Page: "orders"}

	root, own, _ := newPage()
	own.Set("Title", "x")
	if _, err := persister.Save(ctx, ref, root, Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	other := NewPersister(store, viewstate.NewCodec(viewstate.WithMACKey([]byte("k2"))))
	restored, _, _ := newPage()
	if _, _, err := other.Load(ctx, ref, restored); !errors.Is(err, viewstate.ErrStateCorrupt) {
		t.Fatalf("expected corruption error, got %v", err)
	}
}
