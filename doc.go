// Package viewstate implements the persisted-state round trip used by
// server-side controls.
//
// A control keeps its mutable configuration in a Bag. Once tracking starts,
// every write marks its entry dirty and SaveState emits only the dirty entries.
// On the next request LoadState restores those entries without marking them
// dirty, so an unchanged control saves nothing.
//
// Controls with sub-objects (styles, child nodes, parameter collections)
// compose their state through Composite, which saves one positional slot per
// registered child. A nil slot means the child did not change since tracking
// began.
//
// Snapshots cross the request boundary as opaque blobs produced by Codec:
//
//	root.TrackState()
//	...mutate...
//	snap, _ := root.SaveState()
//	blob, _ := codec.Encode(snap)
//	// next request
//	snap, _ = codec.Decode(blob)
//	_ = root.LoadState(snap)
package viewstate
