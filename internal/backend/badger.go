package backend

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/ritamzico/viewgraph/internal/graph"
	"github.com/ritamzico/viewgraph/internal/rule"
	"github.com/ritamzico/viewgraph/internal/skolem"
)

// Key prefix for every persisted fact. A single byte is enough since
// facts are the only thing BadgerBackend stores; the predicate name
// and tuple key make up the rest of the key.
//
// Key structure: 0x01 + predicate + 0x00 + tupleKey -> empty
//
// A single prefix byte is enough here since a materialized fact has no
// secondary index to maintain — the predicate name itself already
// scopes a scan the way a label index would in a richer key scheme.
const prefixFact = byte(0x01)

func factKey(pred string, t Tuple) []byte {
	key := make([]byte, 0, 1+len(pred)+1+len(t)*8)
	key = append(key, prefixFact)
	key = append(key, []byte(pred)...)
	key = append(key, 0x00)
	key = append(key, []byte(tupleKey(t))...)
	return key
}

func factPrefix(pred string) []byte {
	key := make([]byte, 0, 1+len(pred)+1)
	key = append(key, prefixFact)
	key = append(key, []byte(pred)...)
	key = append(key, 0x00)
	return key
}

// BadgerBackend persists materialized-view facts to an embedded
// BadgerDB store, giving persisted state a real backing rather than
// leaving it process-lifetime-only. Evaluation itself uses the same
// in-memory evaluator as MemoryBackend (evalProgram): facts are loaded
// into an in-memory relations set, that evaluator runs over them, and
// only the materialized predicates asked for get written back.
type BadgerBackend struct {
	Registry *skolem.Registry
}

func NewBadgerBackend(reg *skolem.Registry) *BadgerBackend {
	return &BadgerBackend{Registry: reg}
}

type badgerHandle struct {
	db     *badger.DB
	schema *graph.Schema
	mem    *memHandle // in-memory mirror the MemoryBackend evaluator runs over
}

func (*badgerHandle) isHandle() {}

// Open opens (creating if absent) a BadgerDB store at cfg["data_dir"].
// cfg["in_memory"] == "true" runs Badger in its own in-memory mode, for
// tests that want persistence semantics without touching disk.
func (b *BadgerBackend) Open(cfg Config) (Handle, error) {
	dataDir := cfg["data_dir"]
	opts := badger.DefaultOptions(dataDir).WithLogger(nil)
	if cfg["in_memory"] == "true" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errBackend("open badger store at %q: %v", dataDir, err)
	}
	h := &badgerHandle{db: db, mem: &memHandle{rel: newRelations()}}
	if err := h.loadAll(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (b *BadgerBackend) Close(h Handle) error {
	bh, err := asBadgerHandle(h)
	if err != nil {
		return err
	}
	if err := bh.db.Close(); err != nil {
		return errBackend("close badger store: %v", err)
	}
	bh.mem.rel = nil
	return nil
}

func (b *BadgerBackend) ApplySchema(h Handle, schema *graph.Schema) error {
	bh, err := asBadgerHandle(h)
	if err != nil {
		return err
	}
	bh.schema = schema
	bh.mem.schema = schema
	return nil
}

// InsertFacts writes rows both to the in-memory mirror (so Evaluate
// sees them immediately) and durably to Badger.
func (b *BadgerBackend) InsertFacts(h Handle, relName string, rows []Tuple) error {
	bh, err := asBadgerHandle(h)
	if err != nil {
		return err
	}
	return bh.db.Update(func(txn *badger.Txn) error {
		for _, row := range rows {
			bh.mem.rel.add(relName, row)
			if err := txn.Set(factKey(relName, row), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Materialize runs the program to fixpoint in-memory, then persists
// every fact derived for predicate to Badger so it survives past this
// handle's lifetime.
func (b *BadgerBackend) Materialize(ctx context.Context, h Handle, prog *rule.Program, predicate string) error {
	bh, err := asBadgerHandle(h)
	if err != nil {
		return err
	}
	if _, err := evalProgram(ctx, prog, bh.mem.rel, b.Registry); err != nil {
		return err
	}
	if len(bh.mem.rel.all(predicate)) == 0 && !hasRuleFor(prog, predicate) {
		return errBackend("materialize: predicate %q has no defining rule in the given program", predicate)
	}
	return bh.db.Update(func(txn *badger.Txn) error {
		for _, t := range bh.mem.rel.all(predicate) {
			if err := txn.Set(factKey(predicate, t), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerBackend) Evaluate(ctx context.Context, h Handle, prog *rule.Program, goalPredicate string) (TupleIterator, error) {
	bh, err := asBadgerHandle(h)
	if err != nil {
		return nil, err
	}
	tuples, err := evalProgram(ctx, prog, bh.mem.rel, b.Registry)
	if err != nil {
		return nil, err
	}
	if goalPredicate != "Ans" {
		tuples = bh.mem.rel.all(goalPredicate)
	}
	return &sliceIterator{tuples: tuples}, nil
}

// loadAll repopulates the in-memory mirror from every persisted fact,
// so a reopened handle resumes with its previously materialized
// relations intact.
func (bh *badgerHandle) loadAll() error {
	return bh.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{prefixFact}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			pred, tup := decodeFactKey(it.Item().Key())
			if pred == "" {
				continue
			}
			bh.mem.rel.add(pred, tup)
		}
		return nil
	})
}

// decodeFactKey recovers the predicate name and the tuple from a fact
// key. The tuple was stored in tupleKey's \x1f-joined form and is split
// back into its fields here.
func decodeFactKey(key []byte) (string, Tuple) {
	if len(key) < 2 || key[0] != prefixFact {
		return "", nil
	}
	rest := key[1:]
	sep := -1
	for i, c := range rest {
		if c == 0x00 {
			sep = i
			break
		}
	}
	if sep < 0 {
		return "", nil
	}
	pred := string(rest[:sep])
	joined := string(rest[sep+1:])
	return pred, splitTupleKey(joined)
}

func splitTupleKey(joined string) Tuple {
	if joined == "" {
		return Tuple{}
	}
	var out Tuple
	start := 0
	for i := 0; i < len(joined); i++ {
		if joined[i] == '\x1f' {
			out = append(out, joined[start:i])
			start = i + 1
		}
	}
	out = append(out, joined[start:])
	return out
}

func asBadgerHandle(h Handle) (*badgerHandle, error) {
	bh, ok := h.(*badgerHandle)
	if !ok {
		return nil, errBackend("handle is not a BadgerBackend handle")
	}
	if bh.mem == nil || bh.mem.rel == nil {
		return nil, errBackend("handle is closed")
	}
	return bh, nil
}
