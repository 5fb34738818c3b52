package layering

import (
	"slices"
)

// Layer is one named value in a precedence chain. Higher ranks win.
type Layer[T any] struct {
	Name  string
	Rank  int
	Value T
}

// Chain orders layers from strongest to weakest.
type Chain[T any] struct {
	ordered []Layer[T]
}

// NewChain builds a chain, dropping unnamed layers and later duplicates of a
// name. Peers with equal rank keep their relative order.
func NewChain[T any](layers ...Layer[T]) Chain[T] {
	filtered := make([]Layer[T], 0, len(layers))
	seen := map[string]struct{}{}
	for _, layer := range layers {
		if layer.Name == "" {
			continue
		}
		if _, exists := seen[layer.Name]; exists {
			continue
		}
		seen[layer.Name] = struct{}{}
		filtered = append(filtered, layer)
	}

	slices.SortStableFunc(filtered, func(a, b Layer[T]) int {
		switch {
		case a.Rank == b.Rank:
			return 0
		case a.Rank > b.Rank:
			return -1
		default:
			return 1
		}
	})
	return Chain[T]{ordered: filtered}
}

// Names returns layer names from strongest to weakest.
func (c Chain[T]) Names() []string {
	names := make([]string, len(c.ordered))
	for i, layer := range c.ordered {
		names[i] = layer.Name
	}
	return names
}

// Len reports the number of layers.
func (c Chain[T]) Len() int {
	return len(c.ordered)
}

// Resolve merges every layer, strongest first.
func (c Chain[T]) Resolve() T {
	values := make([]T, len(c.ordered))
	for i, layer := range c.ordered {
		values[i] = layer.Value
	}
	return MergeLayers(values...)
}
