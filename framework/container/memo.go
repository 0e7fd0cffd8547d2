package container

import (
	"hash/fnv"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Locals are per-call overrides that take precedence over the registry.
type Locals map[string]any

const (
	// emptyKey is shared by calls whose locals carry nothing hashable.
	emptyKey = ""
	// keyNodeBudget caps how many values are encoded into one key.
	keyNodeBudget = 64
	// maxKeyLen is the longest key kept verbatim; longer keys are digested.
	maxKeyLen = 64
)

// memo caches one Future per locals signature for a service record.
type memo struct {
	mu      sync.Mutex
	entries map[string]*Future
}

func newMemo() *memo {
	return &memo{entries: make(map[string]*Future)}
}

// do returns the Future stored under key, or stores and returns start().
// start runs under the lock, so it must only kick work off, never wait.
func (m *memo) do(key string, start func() *Future) (f *Future, fresh bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.entries[key]; ok {
		return f, false
	}
	f = start()
	m.entries[key] = f
	return f, true
}

func (m *memo) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Future)
}

func (m *memo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// signatureKey canonicalizes locals into a bounded memo key. Primitives are
// encoded with their type, plain maps and slices structurally until the node
// budget is spent, and anything else is treated as absent. Past the budget
// the key is lossy: only the first keyNodeBudget values tell locals apart.
func signatureKey(locals Locals) string {
	if len(locals) == 0 {
		return emptyKey
	}
	names := make([]string, 0, len(locals))
	for k := range locals {
		names = append(names, k)
	}
	sort.Strings(names)

	enc := keyEncoder{budget: keyNodeBudget}
	for _, k := range names {
		mark := enc.b.Len()
		enc.b.WriteString(strconv.Quote(k))
		enc.b.WriteByte('=')
		if !enc.value(reflect.ValueOf(locals[k])) {
			enc.truncate(mark)
			continue
		}
		enc.b.WriteByte(';')
	}

	key := enc.b.String()
	if len(key) <= maxKeyLen {
		return key
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return "#" + strconv.FormatUint(h.Sum64(), 16)
}

type keyEncoder struct {
	b      strings.Builder
	budget int
}

func (e *keyEncoder) truncate(n int) {
	s := e.b.String()[:n]
	e.b.Reset()
	e.b.WriteString(s)
}

// value writes v and reports whether it was hashable.
func (e *keyEncoder) value(v reflect.Value) bool {
	if e.budget <= 0 {
		// Values past the budget are left out: locals that differ only
		// there share one memo entry.
		e.b.WriteString("...")
		return true
	}
	e.budget--

	if !v.IsValid() {
		e.b.WriteString("nil")
		return true
	}
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			e.b.WriteString("nil")
			return true
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Bool:
		e.b.WriteString("b:" + strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.b.WriteString(v.Type().String() + ":" + strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.b.WriteString(v.Type().String() + ":" + strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		e.b.WriteString(v.Type().String() + ":" + strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		e.b.WriteString(v.Type().String() + ":" + strconv.FormatComplex(v.Complex(), 'g', -1, 128))
	case reflect.String:
		e.b.WriteString("s:" + strconv.Quote(v.String()))
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			e.b.WriteString("nil")
			return true
		}
		e.b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if e.budget <= 0 {
				e.b.WriteString("...")
				break
			}
			if !e.value(v.Index(i)) {
				e.b.WriteString("_")
			}
			e.b.WriteByte(',')
		}
		e.b.WriteByte(']')
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return false
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		e.b.WriteByte('{')
		for _, k := range keys {
			if e.budget <= 0 {
				e.b.WriteString("...")
				break
			}
			e.b.WriteString(strconv.Quote(k.String()) + ":")
			if !e.value(v.MapIndex(k)) {
				e.b.WriteString("_")
			}
			e.b.WriteByte(',')
		}
		e.b.WriteByte('}')
	default:
		return false
	}
	return true
}
