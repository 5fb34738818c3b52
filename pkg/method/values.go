package method

import (
	"fmt"
	"sort"
	"strings"
)

type valueEntry struct {
	name  string
	value any
}

// Values is an ordered parameter bag with case-insensitive names. The zero
// value is ready to use.
type Values struct {
	entries []valueEntry
}

// NewValues builds a bag from name/value pairs.
func NewValues(pairs ...any) *Values {
	v := &Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			name = fmt.Sprint(pairs[i])
		}
		v.Set(name, pairs[i+1])
	}
	return v
}

// ValuesFromMap builds a bag from m with names sorted for determinism.
func ValuesFromMap(m map[string]any) *Values {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	v := &Values{}
	for _, name := range names {
		v.Set(name, m[name])
	}
	return v
}

func (v *Values) find(name string) int {
	if v == nil {
		return -1
	}
	for i, entry := range v.entries {
		if strings.EqualFold(entry.name, name) {
			return i
		}
	}
	return -1
}

// Set stores value under name, replacing any entry with the same name in any
// casing while keeping its position.
func (v *Values) Set(name string, value any) {
	if i := v.find(name); i >= 0 {
		v.entries[i].value = value
		return
	}
	v.entries = append(v.entries, valueEntry{name: name, value: value})
}

// Get returns the value stored for name.
func (v *Values) Get(name string) (any, bool) {
	i := v.find(name)
	if i < 0 {
		return nil, false
	}
	return v.entries[i].value, true
}

// Has reports whether name is present.
func (v *Values) Has(name string) bool {
	return v.find(name) >= 0
}

// Delete removes name.
func (v *Values) Delete(name string) {
	if i := v.find(name); i >= 0 {
		v.entries = append(v.entries[:i], v.entries[i+1:]...)
	}
}

// Keys returns names in insertion order with their original casing.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	keys := make([]string, len(v.entries))
	for i, entry := range v.entries {
		keys[i] = entry.name
	}
	return keys
}

// Len reports the number of entries.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.entries)
}

// Clone returns an independent copy.
func (v *Values) Clone() *Values {
	out := &Values{}
	if v == nil {
		return out
	}
	out.entries = append([]valueEntry(nil), v.entries...)
	return out
}

// Map returns the entries as a plain map keyed by original casing.
func (v *Values) Map() map[string]any {
	out := make(map[string]any, v.Len())
	if v == nil {
		return out
	}
	for _, entry := range v.entries {
		out[entry.name] = entry.value
	}
	return out
}

// Merge copies every entry of src into v. When format is not empty each name
// is rewritten through FormatName first.
func (v *Values) Merge(src *Values, format string) {
	if src == nil {
		return
	}
	for _, entry := range src.entries {
		name := entry.name
		if format != "" {
			name = FormatName(format, name)
		}
		v.Set(name, entry.value)
	}
}

// nameSet returns a canonical lower-cased, sorted key for the name set.
func (v *Values) nameSet() string {
	names := make([]string, 0, v.Len())
	if v != nil {
		for _, entry := range v.entries {
			names = append(names, strings.ToLower(entry.name))
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// FormatName applies an old-values format such as "original_{0}" or
// "old%s" to name.
func FormatName(format, name string) string {
	switch {
	case format == "":
		return name
	case strings.Contains(format, "{0}"):
		return strings.ReplaceAll(format, "{0}", name)
	case strings.Contains(format, "%s"):
		return strings.Replace(format, "%s", name, 1)
	default:
		return format
	}
}
