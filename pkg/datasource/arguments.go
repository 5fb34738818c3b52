package datasource

import "fmt"

// SelectArguments are the query arguments of one select call. Providers may
// rewrite SortExpression (native sorting) and set TotalRowCount.
type SelectArguments struct {
	SortExpression        string
	StartRowIndex         int
	MaximumRows           int
	RetrieveTotalRowCount bool
	TotalRowCount         int

	requested CapabilitySet
	supported CapabilitySet
}

// NewSelectArguments returns arguments for one window of sorted rows.
// maximumRows of 0 or -1 means unbounded.
func NewSelectArguments(sortExpression string, startRowIndex, maximumRows int) *SelectArguments {
	return &SelectArguments{
		SortExpression: sortExpression,
		StartRowIndex:  startRowIndex,
		MaximumRows:    maximumRows,
		TotalRowCount:  -1,
	}
}

// EmptyArguments requests everything, unsorted, with no count.
func EmptyArguments() *SelectArguments {
	return NewSelectArguments("", 0, 0)
}

// RequestCapabilities adds set to the explicitly requested capabilities.
func (a *SelectArguments) RequestCapabilities(set CapabilitySet) {
	a.requested = a.requested.Union(set)
}

// AddSupportedCapabilities records what the provider declared.
func (a *SelectArguments) AddSupportedCapabilities(set CapabilitySet) {
	a.supported = a.supported.Union(set)
}

// Supported returns the capabilities declared for this call.
func (a *SelectArguments) Supported() CapabilitySet {
	return a.supported
}

// Requested returns explicit requests plus those implied by the arguments.
func (a *SelectArguments) Requested() CapabilitySet {
	set := a.requested
	if a.SortExpression != "" {
		set = set.With(CapabilitySort)
	}
	if a.MaximumRows > 0 || a.StartRowIndex > 0 {
		set = set.With(CapabilityPage)
	}
	if a.RetrieveTotalRowCount {
		set = set.With(CapabilityRetrieveTotalRowCount)
	}
	return set
}

// Paged reports whether a bounded window is requested.
func (a *SelectArguments) Paged() bool {
	return a.MaximumRows > 0
}

// Clone returns an independent copy.
func (a *SelectArguments) Clone() *SelectArguments {
	if a == nil {
		return EmptyArguments()
	}
	clone := *a
	return &clone
}

func (a *SelectArguments) check() error {
	if a.StartRowIndex < 0 {
		return fmt.Errorf("datasource: start row index must not be negative, got %d", a.StartRowIndex)
	}
	if a.MaximumRows < -1 {
		return fmt.Errorf("datasource: maximum rows must be -1, 0 or positive, got %d", a.MaximumRows)
	}
	return nil
}
