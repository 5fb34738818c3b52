package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies the persisted state of one page, optionally per session.
type Ref struct {
	Page    string
	Session string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one blob per Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (blob string, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, blob string, meta Meta) (Meta, error)
	Delete(ctx context.Context, ref Ref) error
}

func (r Ref) Identifier() (string, error) {
	page := strings.TrimSpace(r.Page)
	if page == "" {
		return "", fmt.Errorf("state: page is required")
	}
	session := strings.TrimSpace(r.Session)
	if session == "" {
		return fmt.Sprintf("page/%s", page), nil
	}
	return fmt.Sprintf("session/%s/%s", session, page), nil
}

// ETag returns the content tag of blob.
func ETag(blob string) string {
	sum := sha256.Sum256([]byte(blob))
	return hex.EncodeToString(sum[:])
}

// stamp fills the generated parts of meta for a freshly saved blob.
func stamp(meta Meta, blob string, now time.Time) (Meta, error) {
	out := cloneMeta(meta)
	if out.SnapshotID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Meta{}, fmt.Errorf("state: snapshot id: %w", err)
		}
		out.SnapshotID = id.String()
	}
	out.ETag = ETag(blob)
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = now.UTC()
	}
	return out, nil
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
