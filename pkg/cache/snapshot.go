package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key addresses one recorded API call. Resource is empty for calls made
// once per scope, such as list operations.
type Key struct {
	Service   string
	Operation string
	Scope     string
	Resource  string
}

// NewKey returns a scope-level key.
func NewKey(service, operation, scope string) Key {
	return Key{Service: service, Operation: operation, Scope: scope}
}

// WithResource returns a copy of the key addressing the given resource.
func (k Key) WithResource(resource string) Key {
	k.Resource = resource
	return k
}

func (k Key) String() string {
	parts := []string{k.Service, k.Operation, k.Scope}
	if k.Resource != "" {
		parts = append(parts, k.Resource)
	}
	return strings.Join(parts, ":")
}

// ParseKey is the inverse of Key.String. The resource part may itself
// contain colons, as ARNs do.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Key{}, fmt.Errorf("malformed key %q: expected service:operation:scope[:resource]", s)
	}
	k := NewKey(parts[0], parts[1], parts[2])
	if len(parts) == 4 {
		k.Resource = parts[3]
	}
	return k, nil
}

// compareKeys orders keys by service, operation, scope and resource.
func compareKeys(a, b Key) int {
	if c := strings.Compare(a.Service, b.Service); c != 0 {
		return c
	}
	if c := strings.Compare(a.Operation, b.Operation); c != 0 {
		return c
	}
	if c := strings.Compare(a.Scope, b.Scope); c != 0 {
		return c
	}
	return strings.Compare(a.Resource, b.Resource)
}

// Snapshot is an immutable set of recorded API outcomes. The zero value and
// a nil *Snapshot are both valid empty snapshots.
type Snapshot struct {
	entries map[Key]Outcome
}

// Get returns the recorded outcome for k, or Absent.
func (s *Snapshot) Get(k Key) Outcome {
	if s == nil {
		return Absent()
	}
	if o, ok := s.entries[k]; ok {
		return o
	}
	return Absent()
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Keys returns all recorded keys in a stable order.
func (s *Snapshot) Keys() []Key {
	if s == nil {
		return nil
	}
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return compareKeys(keys[i], keys[j]) < 0
	})
	return keys
}

// Builder assembles a Snapshot. It is not safe for concurrent use.
type Builder struct {
	entries map[Key]Outcome
	err     error
}

func NewBuilder() *Builder {
	return &Builder{entries: make(map[Key]Outcome)}
}

// Set records o under k, replacing any previous outcome. Recording an
// Absent outcome removes the key.
func (b *Builder) Set(k Key, o Outcome) *Builder {
	if o.IsAbsent() {
		delete(b.entries, k)
		return b
	}
	b.entries[k] = o
	return b
}

// Succeeded records a successful payload under k.
func (b *Builder) Succeeded(k Key, payload interface{}) *Builder {
	o, err := Succeeded(payload)
	if err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("%s: %w", k, err)
		}
		return b
	}
	return b.Set(k, o)
}

// Errored records a failed call under k.
func (b *Builder) Errored(k Key, description string) *Builder {
	return b.Set(k, Errored(description))
}

// Build returns the snapshot assembled so far. The builder may keep being
// used without affecting snapshots it already returned.
func (b *Builder) Build() (*Snapshot, error) {
	if b.err != nil {
		return nil, b.err
	}
	entries := make(map[Key]Outcome, len(b.entries))
	for k, o := range b.entries {
		entries[k] = o
	}
	return &Snapshot{entries: entries}, nil
}

// MustBuild is like Build but panics on error. Meant for fixtures.
func (b *Builder) MustBuild() *Snapshot {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
