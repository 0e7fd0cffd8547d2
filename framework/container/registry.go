package container

import (
	"sort"
	"sync"
)

// recordKind is the closed set of registration shapes.
type recordKind int

const (
	kindConstant recordKind = iota
	kindService
)

func (k recordKind) String() string {
	if k == kindService {
		return "service"
	}
	return "constant"
}

// record is one registered name.
type record struct {
	name         string
	kind         recordKind
	overwritable bool

	value      any        // constant
	injectable Injectable // service
	cache      *memo      // service
}

// registry maps names to records and enforces the overwrite policy.
type registry struct {
	mu      sync.RWMutex
	self    string
	records map[string]*record
}

func newRegistry(self string) *registry {
	return &registry{self: self, records: make(map[string]*record)}
}

// checkExists must be called with mu held.
func (r *registry) checkExists(name string, bootstrap bool) error {
	if name == r.self && !bootstrap {
		return ReservedNameError{Name: name}
	}
	if cur, ok := r.records[name]; ok && !cur.overwritable {
		return AlreadyRegisteredError{Name: name}
	}
	return nil
}

// put stores rec, replacing an overwritable record of the same name.
func (r *registry) put(rec *record, bootstrap bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkExists(rec.name, bootstrap); err != nil {
		return err
	}
	r.records[rec.name] = rec
	return nil
}

// replace swaps the record stored under name for the one fn derives from it.
func (r *registry) replace(name string, fn func(cur *record) (*record, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.records[name]
	if !ok {
		return NotFoundError{Name: name}
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	r.records[name] = next
	return nil
}

func (r *registry) lookup(name string) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	return rec, ok
}

// snapshot returns the records sorted by name.
func (r *registry) snapshot() []*record {
	r.mu.RLock()
	out := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.cache != nil {
			rec.cache.reset()
		}
	}
	r.records = make(map[string]*record)
}
