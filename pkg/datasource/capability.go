package datasource

import "strings"

// Capability is an optional data source feature.
type Capability uint8

const (
	CapabilitySort Capability = 1 << iota
	CapabilityPage
	CapabilityRetrieveTotalRowCount
)

var capabilityOrder = []Capability{CapabilitySort, CapabilityPage, CapabilityRetrieveTotalRowCount}

func (c Capability) String() string {
	switch c {
	case CapabilitySort:
		return "Sort"
	case CapabilityPage:
		return "Page"
	case CapabilityRetrieveTotalRowCount:
		return "RetrieveTotalRowCount"
	default:
		return "None"
	}
}

// CapabilitySet is a bit set of capabilities.
type CapabilitySet uint8

// Capabilities builds a set from caps.
func Capabilities(caps ...Capability) CapabilitySet {
	var set CapabilitySet
	for _, c := range caps {
		set = set.With(c)
	}
	return set
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// With returns the set plus c.
func (s CapabilitySet) With(c Capability) CapabilitySet {
	return s | CapabilitySet(c)
}

// Without returns the set minus c.
func (s CapabilitySet) Without(c Capability) CapabilitySet {
	return s &^ CapabilitySet(c)
}

// Union returns the capabilities in either set.
func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	return s | other
}

// List returns the members in declaration order.
func (s CapabilitySet) List() []Capability {
	var out []Capability
	for _, c := range capabilityOrder {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s CapabilitySet) String() string {
	list := s.List()
	if len(list) == 0 {
		return "None"
	}
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.String()
	}
	return strings.Join(names, "|")
}

// DeclareSupported asks p which capabilities it supports.
func DeclareSupported(p Provider) CapabilitySet {
	if p == nil {
		return 0
	}
	return p.Capabilities()
}

// Validate returns a *CapabilityError for the first requested capability that
// is not supported. It has no side effects.
func Validate(view string, supported, requested CapabilitySet) error {
	for _, c := range capabilityOrder {
		if requested.Has(c) && !supported.Has(c) {
			return &CapabilityError{Capability: c, View: view}
		}
	}
	return nil
}
