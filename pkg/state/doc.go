// Package state persists page state blobs between requests.
//
// A Store loads and saves one encoded blob per Ref. Stores never look inside
// the blob; encoding and decoding belong to the Persister, which saves the
// root Stateful of a page through a viewstate.Codec and restores it on the
// next request.
//
// Data flow:
//
//	root.SaveState() -> Codec.Encode -> Store.Save
//	Store.Load -> Codec.Decode -> root.LoadState()
//
// Concurrency control:
//
//	Meta.ETag is the sha256 of the stored blob. Passing the ETag observed on
//	load to Persister.Save rejects the write with ErrETagMismatch when another
//	request saved in between.
//
// Deterministic keys:
//
//	Ref.Identifier() yields `page/<page>` for shared state and
//	`session/<session>/<page>` for per-session state.
package state
