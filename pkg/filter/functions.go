package filter

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from filter expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry stores helpers by case-insensitive name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// Register stores fn under name, rejecting duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("filter: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("filter: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("filter: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("filter: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("filter: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFunctions returns helpers commonly used in row filters: like (SQL
// LIKE with % and _), lower, upper and isnull.
func DefaultFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("like", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("like expects 2 arguments, got %d", len(args))
		}
		value, _ := args[0].(string)
		pattern, _ := args[1].(string)
		return likeMatch(value, pattern), nil
	})
	_ = registry.Register("lower", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("lower expects 1 argument, got %d", len(args))
		}
		return strings.ToLower(fmt.Sprint(args[0])), nil
	})
	_ = registry.Register("upper", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("upper expects 1 argument, got %d", len(args))
		}
		return strings.ToUpper(fmt.Sprint(args[0])), nil
	})
	_ = registry.Register("isnull", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("isnull expects 2 arguments, got %d", len(args))
		}
		if args[0] == nil {
			return args[1], nil
		}
		return args[0], nil
	})
	return registry
}

func likeMatch(value, pattern string) bool {
	v := []rune(strings.ToLower(value))
	p := []rune(strings.ToLower(pattern))
	// dp[j] reports whether p[:j] matches the processed prefix of v.
	dp := make([]bool, len(p)+1)
	dp[0] = true
	for j := 1; j <= len(p); j++ {
		dp[j] = dp[j-1] && p[j-1] == '%'
	}
	for i := 1; i <= len(v); i++ {
		prev := dp[0]
		dp[0] = false
		for j := 1; j <= len(p); j++ {
			current := dp[j]
			switch p[j-1] {
			case '%':
				dp[j] = dp[j] || dp[j-1]
			case '_':
				dp[j] = prev
			default:
				dp[j] = prev && p[j-1] == v[i-1]
			}
			prev = current
		}
	}
	return dp[len(p)]
}
