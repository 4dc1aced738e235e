package reconcile

import (
	"fmt"
	"sort"
	"strings"
)

// MappingEntry is one compiled comparison key.
type MappingEntry struct {
	// Key is the comparison key as configured (e.g. "givenName").
	Key string
	// Field is the User field the key compares.
	Field Field

	get Accessor
}

// FieldMapping is a compiled, validated set of comparison keys.
// Entries are sorted by key so diffs are reported deterministically.
type FieldMapping struct {
	entries []MappingEntry
}

// CompileMapping builds a FieldMapping from configured key -> field name pairs.
// Entries naming an unknown field are dropped and returned in unresolved as
// "key=field" strings. Dropped entries never contribute to a diff.
func CompileMapping(mappings map[string]string) (mapping *FieldMapping, unresolved []string) {
	keys := make([]string, 0, len(mappings))
	for k := range mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mapping = &FieldMapping{entries: make([]MappingEntry, 0, len(keys))}
	for _, key := range keys {
		name := mappings[key]
		f, ok := LookupField(name)
		if !ok {
			unresolved = append(unresolved, key+"="+name)
			continue
		}
		mapping.entries = append(mapping.entries, MappingEntry{Key: key, Field: f, get: accessors[f]})
	}
	return mapping, unresolved
}

// CompileMappingStrict is CompileMapping but fails on any unresolved entry.
func CompileMappingStrict(mappings map[string]string) (*FieldMapping, error) {
	mapping, unresolved := CompileMapping(mappings)
	if len(unresolved) > 0 {
		return nil, fmt.Errorf("%w: unknown fields in mapping: %s", ErrInvalidMapping, strings.Join(unresolved, ", "))
	}
	return mapping, nil
}

// Entries returns the compiled entries.
func (m *FieldMapping) Entries() []MappingEntry {
	if m == nil {
		return nil
	}
	out := make([]MappingEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of resolvable entries.
func (m *FieldMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// NeedsUpdate reports whether any mapped field differs between a and b.
// Absent and empty values are not equal. With no entries it returns false.
func (m *FieldMapping) NeedsUpdate(a, b User) bool {
	if m == nil {
		return false
	}
	for _, e := range m.entries {
		if e.get(a) != e.get(b) {
			return true
		}
	}
	return false
}

// Diff returns the keys of every mapped field that differs between a and b.
func (m *FieldMapping) Diff(a, b User) []string {
	if m == nil {
		return nil
	}
	var changed []string
	for _, e := range m.entries {
		if e.get(a) != e.get(b) {
			changed = append(changed, e.Key)
		}
	}
	return changed
}

// Selector resolves the cross-store lookup key of a User.
type Selector struct {
	name  string
	field Field
	ok    bool
}

// NewSelector builds a Selector for the named field. An unknown name yields a
// Selector that always resolves to "".
func NewSelector(name string) Selector {
	f, ok := LookupField(name)
	return Selector{name: name, field: f, ok: ok}
}

// Resolvable reports whether the selector names a known field.
func (s Selector) Resolvable() bool {
	return s.ok
}

// Field returns the selected field; empty when not resolvable.
func (s Selector) Field() Field {
	return s.field
}

// Name returns the configured selector name.
func (s Selector) Name() string {
	return s.name
}

// Identifier returns the selected field's value, or "" when the selector is
// unknown or the value is absent.
func (s Selector) Identifier(u User) string {
	if !s.ok {
		return ""
	}
	v, _ := u.Get(s.field)
	return v.OrEmpty()
}
