package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	viewstate "github.com/goliatone/go-viewstate"
)

// Persister saves and restores the root Stateful of a page through a Codec.
type Persister struct {
	Store Store
	Codec *viewstate.Codec

	mu sync.Mutex
}

func NewPersister(store Store, codec *viewstate.Codec) *Persister {
	if codec == nil {
		codec = viewstate.NewCodec()
	}
	return &Persister{Store: store, Codec: codec}
}

// Save encodes root and writes it under ref. When expected.ETag is set it must
// match the stored record, otherwise ErrETagMismatch is returned and nothing is
// written.
func (p *Persister) Save(ctx context.Context, ref Ref, root viewstate.Stateful, expected Meta) (Meta, error) {
	if p == nil || p.Store == nil {
		return Meta{}, fmt.Errorf("state: persister requires a store")
	}
	if root == nil {
		return Meta{}, fmt.Errorf("state: root is nil")
	}
	snapshot, err := root.SaveState()
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %s: %w", ref.Page, err)
	}
	blob, err := p.codec().Encode(snapshot)
	if err != nil {
		return Meta{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if expected.ETag != "" {
		_, current, ok, err := p.Store.Load(ctx, ref)
		if err != nil {
			return Meta{}, err
		}
		if !ok || current.ETag != expected.ETag {
			return Meta{}, fmt.Errorf("%w: page %s", ErrETagMismatch, ref.Page)
		}
	}

	meta := cloneMeta(expected)
	meta.SnapshotID = ""
	meta.ETag = ""
	meta.UpdatedAt = time.Time{}
	return p.Store.Save(ctx, ref, blob, meta)
}

// Load restores root from the record under ref. A missing record reports
// ok=false and leaves root untouched.
func (p *Persister) Load(ctx context.Context, ref Ref, root viewstate.Stateful) (bool, Meta, error) {
	if p == nil || p.Store == nil {
		return false, Meta{}, fmt.Errorf("state: persister requires a store")
	}
	blob, meta, ok, err := p.Store.Load(ctx, ref)
	if err != nil || !ok {
		return false, Meta{}, err
	}
	snapshot, err := p.codec().Decode(blob)
	if err != nil {
		return false, meta, err
	}
	if err := root.LoadState(snapshot); err != nil {
		return false, meta, err
	}
	return true, meta, nil
}

func (p *Persister) codec() *viewstate.Codec {
	if p.Codec == nil {
		return viewstate.NewCodec()
	}
	return p.Codec
}
