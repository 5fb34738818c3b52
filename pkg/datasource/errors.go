package datasource

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchPending is returned by Select and SelectAsync while a fetch is
	// running on the same pipeline.
	ErrFetchPending = errors.New("datasource: a fetch is already pending")
	// ErrUnsupportedCapability matches every *CapabilityError.
	ErrUnsupportedCapability = errors.New("datasource: capability not supported")
)

// CapabilityError reports a requested capability the provider does not have.
type CapabilityError struct {
	Capability Capability
	View       string
}

func (e *CapabilityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("datasource: view %q does not support %s", e.View, e.Capability)
}

// Is matches ErrUnsupportedCapability.
func (e *CapabilityError) Is(target error) bool {
	return target == ErrUnsupportedCapability
}

// ConfigurationError reports a view that is not set up for the requested
// operation.
type ConfigurationError struct {
	View   string
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Op == "" {
		return fmt.Sprintf("datasource: view %q: %s", e.View, e.Reason)
	}
	return fmt.Sprintf("datasource: view %q: %s: %s", e.View, e.Op, e.Reason)
}

// UnsupportedShapeError reports an operation the returned data shape cannot
// perform, such as sorting a plain slice or caching a stream.
type UnsupportedShapeError struct {
	View   string
	Shape  ResultKind
	Reason string
}

func (e *UnsupportedShapeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("datasource: view %q: %s result: %s", e.View, e.Shape, e.Reason)
}

// SortExpressionError reports a malformed sort expression.
type SortExpressionError struct {
	Expression string
	Position   int
	Reason     string
}

func (e *SortExpressionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("datasource: invalid sort expression %q at term %d: %s", e.Expression, e.Position, e.Reason)
}
