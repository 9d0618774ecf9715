// Package skolem implements the registry that turns a (function name,
// argument tuple) pair into a synthetic node/edge id, used wherever a
// view's CONSTRUCT/ADD clause introduces an entity with no MATCH-bound
// identity of its own.
//
// The registry intentionally holds no counter state: re-running the
// same rule over the same facts must mint the same id, independent of
// insertion order or prior session history, so ids are derived by
// hashing rather than allocated sequentially — compute from the
// inputs, never from incidental state.
package skolem

import (
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/ritamzico/viewgraph/internal/graph"
)

// Registry interns (fnName, args) tuples to ids drawn from the
// Skolem-reserved id space (graph.SkolemReserved and above), and
// remembers the mapping so that Lookup and collision diagnostics work
// without recomputing the hash.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]uint64
	byID  map[uint64]string
}

func New() *Registry {
	return &Registry{
		byKey: make(map[string]uint64),
		byID:  make(map[uint64]string),
	}
}

// key canonicalizes a (fn, args) tuple into the string hashed for an
// id. Args are joined with a separator unlikely to appear in a label
// or prop value and not otherwise normalized — callers are expected to
// pass the exact bound values from the rule body.
func key(fnName string, args []string) string {
	var b strings.Builder
	b.WriteString(fnName)
	for _, a := range args {
		b.WriteByte(0x1f)
		b.WriteString(a)
	}
	return b.String()
}

// Intern returns the synthetic id for (fnName, args), minting it
// deterministically on first use and returning the same id on every
// subsequent call with the same arguments.
func (r *Registry) Intern(fnName string, args []string) uint64 {
	k := key(fnName, args)

	r.mu.RLock()
	if id, ok := r.byKey[k]; ok {
		r.mu.RUnlock()
		return id
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byKey[k]; ok {
		return id
	}
	id := r.mint(k)
	r.byKey[k] = id
	r.byID[id] = k
	return id
}

// mint hashes k (fnv-1a 64-bit) into the reserved Skolem id space and
// resolves a collision against an already-interned different key by
// linear probing forward until a free slot is found. Must be called
// with r.mu held for writing.
func (r *Registry) mint(k string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k))
	sum := h.Sum64()
	id := graph.SkolemReserved | (sum &^ graph.SkolemReserved)
	if id == 0 {
		id = graph.SkolemReserved
	}
	for {
		existing, occupied := r.byID[id]
		if !occupied || existing == k {
			return id
		}
		id++
		if id == 0 {
			id = graph.SkolemReserved
		}
	}
}

// Lookup reverses Intern: given a minted id, returns the (fnName,
// args) tuple that produced it, for diagnostics.
func (r *Registry) Lookup(id uint64) (fnName string, args []string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byID[id]
	if !ok {
		return "", nil, false
	}
	parts := strings.Split(k, string(rune(0x1f)))
	return parts[0], parts[1:], true
}

// Snapshot returns every (key, id) pair interned so far, sorted by id.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.byKey))
	for k, id := range r.byKey {
		out = append(out, Entry{Key: k, ID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type Entry struct {
	Key string
	ID  uint64
}
