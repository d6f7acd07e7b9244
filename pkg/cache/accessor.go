package cache

import (
	"sync"

	"github.com/emirpasic/gods/sets/treeset"
)

// Provenance is the ordered set of keys consulted during one evaluation.
// It is safe for concurrent use.
type Provenance struct {
	mu   sync.Mutex
	keys *treeset.Set
}

func NewProvenance() *Provenance {
	return &Provenance{
		keys: treeset.NewWith(func(a, b interface{}) int {
			return compareKeys(a.(Key), b.(Key))
		}),
	}
}

// Add records k. Adding the same key twice has no effect.
func (p *Provenance) Add(k Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys.Add(k)
}

func (p *Provenance) Contains(k Key) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys.Contains(k)
}

func (p *Provenance) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys.Size()
}

// Keys returns the recorded keys ordered by service, operation, scope and
// resource.
func (p *Provenance) Keys() []Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	values := p.keys.Values()
	keys := make([]Key, len(values))
	for i, v := range values {
		keys[i] = v.(Key)
	}
	return keys
}

// Accessor gives checks read access to a snapshot and records every key
// they look up. One accessor serves exactly one evaluation.
type Accessor struct {
	snapshot *Snapshot
	source   *Provenance
}

func NewAccessor(snapshot *Snapshot) *Accessor {
	return &Accessor{
		snapshot: snapshot,
		source:   NewProvenance(),
	}
}

// Get returns the outcome recorded for k. It never fails: keys that were
// never populated yield Absent.
func (a *Accessor) Get(k Key) Outcome {
	a.source.Add(k)
	return a.snapshot.Get(k)
}

// Lookup returns the scope-level outcome of service:operation.
func (a *Accessor) Lookup(service, operation, scope string) Outcome {
	return a.Get(NewKey(service, operation, scope))
}

// LookupResource returns the outcome of service:operation for a single
// resource within scope.
func (a *Accessor) LookupResource(service, operation, scope, resource string) Outcome {
	return a.Get(NewKey(service, operation, scope).WithResource(resource))
}

// Source returns the keys consulted so far.
func (a *Accessor) Source() *Provenance {
	return a.source
}
