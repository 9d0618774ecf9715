package backend

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/ritamzico/viewgraph/internal/graph"
	"github.com/ritamzico/viewgraph/internal/rule"
	"github.com/ritamzico/viewgraph/internal/skolem"
)

// relations is the working set of extensional and derived facts a
// evaluation run operates over: one set of tuples per
// predicate, deduplicated by their joined string key to enforce set
// semantics (no duplicate facts).
type relations struct {
	sets map[string]map[string]Tuple
}

func newRelations() *relations {
	return &relations{sets: make(map[string]map[string]Tuple)}
}

func tupleKey(t Tuple) string { return strings.Join(t, "\x1f") }

func (r *relations) add(pred string, t Tuple) bool {
	set, ok := r.sets[pred]
	if !ok {
		set = make(map[string]Tuple)
		r.sets[pred] = set
	}
	k := tupleKey(t)
	if _, exists := set[k]; exists {
		return false
	}
	set[k] = t
	return true
}

func (r *relations) all(pred string) []Tuple {
	set := r.sets[pred]
	out := make([]Tuple, 0, len(set))
	for _, t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return tupleKey(out[i]) < tupleKey(out[j]) })
	return out
}

// substitution binds rule variable names to concrete string values.
type substitution map[string]string

func (s substitution) clone() substitution {
	out := make(substitution, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// evalProgram runs naive stratified bottom-up evaluation of prog (each
// round re-evaluates every rule of the stratum over whole relations)
// over the seed facts already present in r, using reg to resolve
// Skolem builtins, and returns every tuple of the goal predicate Ans. Each
// stratum runs to its own fixpoint before the next begins, since the
// rule IR's strata are already known from the program assembler and
// don't need rediscovering at evaluation time.
func evalProgram(ctx context.Context, prog *rule.Program, r *relations, reg *skolem.Registry) ([]Tuple, error) {
	for _, stratum := range prog.Strata {
		members := make(map[string]struct{}, len(stratum))
		for _, p := range stratum {
			members[p] = struct{}{}
		}
		var stratumRules []rule.Rule
		for _, rl := range prog.Rules {
			if _, ok := members[rl.Head.Pred]; ok {
				stratumRules = append(stratumRules, rl)
			}
		}
		if len(stratumRules) == 0 {
			continue
		}
		for {
			select {
			case <-ctx.Done():
				return nil, errCancelled
			default:
			}
			changed := false
			for _, rl := range stratumRules {
				tuples, err := evalRule(rl, r, reg)
				if err != nil {
					return nil, err
				}
				for _, t := range tuples {
					if r.add(rl.Head.Pred, t) {
						changed = true
					}
				}
			}
			if !changed {
				break
			}
		}
	}
	return r.all("Ans"), nil
}

func evalRule(rl rule.Rule, r *relations, reg *skolem.Registry) ([]Tuple, error) {
	substs := []substitution{{}}
	for _, lit := range rl.Body {
		if len(substs) == 0 {
			return nil, nil
		}
		switch l := lit.(type) {
		case rule.Atom:
			if fn, ok := rule.IsBuiltinSkolem(l.Pred); ok {
				substs = applySkolem(fn, l.Args, substs, reg, r)
			} else {
				substs = joinAtom(l, r.all(l.Pred), substs)
			}
		case rule.Neg:
			substs = filterNegation(l.Atom, r.all(l.Atom.Pred), substs)
		case rule.Compare:
			substs = filterCompare(l, substs, r)
		}
	}

	out := make([]Tuple, 0, len(substs))
	for _, s := range substs {
		tup := make(Tuple, len(rl.Head.Args))
		ok := true
		for i, t := range rl.Head.Args {
			v, found := resolveTerm(t, s, r)
			if !found {
				ok = false
				break
			}
			tup[i] = v
		}
		if ok {
			out = append(out, tup)
		}
	}
	return out, nil
}

func joinAtom(l rule.Atom, facts []Tuple, substs []substitution) []substitution {
	var out []substitution
	for _, s := range substs {
		for _, fact := range facts {
			if len(fact) != len(l.Args) {
				continue
			}
			s2 := s.clone()
			ok := true
			for i, t := range l.Args {
				switch tt := t.(type) {
				case rule.Var:
					name := string(tt)
					if name == "_" {
						continue
					}
					if bound, has := s2[name]; has {
						if bound != fact[i] {
							ok = false
						}
					} else {
						s2[name] = fact[i]
					}
				case rule.Const:
					if string(tt) != fact[i] {
						ok = false
					}
				}
				if !ok {
					break
				}
			}
			if ok {
				out = append(out, s2)
			}
		}
	}
	return out
}

func filterNegation(a rule.Atom, facts []Tuple, substs []substitution) []substitution {
	var out []substitution
	for _, s := range substs {
		matched := false
		for _, fact := range facts {
			if len(fact) != len(a.Args) {
				continue
			}
			ok := true
			for i, t := range a.Args {
				switch tt := t.(type) {
				case rule.Var:
					if v, has := s[string(tt)]; has && v != fact[i] {
						ok = false
					}
				case rule.Const:
					if string(tt) != fact[i] {
						ok = false
					}
				}
				if !ok {
					break
				}
			}
			if ok {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, s)
		}
	}
	return out
}

func filterCompare(c rule.Compare, substs []substitution, r *relations) []substitution {
	var out []substitution
	for _, s := range substs {
		lv, lok := resolveTerm(c.Left, s, r)
		rv, rok := resolveTerm(c.Right, s, r)
		if !lok || !rok {
			continue
		}
		if compareValues(c.Op, lv, rv) {
			out = append(out, s)
		}
	}
	return out
}

// resolveTerm resolves a rule.Term to a concrete value under s. A Var
// shaped "x.key" is an implicit property reference (internal/compiler
// and internal/rewriter both lower WHERE property comparisons this
// way rather than threading an explicit NP/EP join atom through every
// rule body): since every view carries an entity's identity through
// unchanged by every view's default identity carry-through, x's bound
// value is always the base graph's own id, so the lookup always
// targets the base NP/EP relations regardless of which view x came
// from.
func resolveTerm(t rule.Term, s substitution, r *relations) (string, bool) {
	switch tt := t.(type) {
	case rule.Const:
		return string(tt), true
	case rule.Var:
		name := string(tt)
		if dot := strings.IndexByte(name, '.'); dot >= 0 {
			id, ok := s[name[:dot]]
			if !ok {
				return "", false
			}
			key := name[dot+1:]
			if v, ok := lookupProp(r.all("NP"), id, key); ok {
				return v, true
			}
			if v, ok := lookupProp(r.all("EP"), id, key); ok {
				return v, true
			}
			return "", false
		}
		v, ok := s[name]
		return v, ok
	}
	return "", false
}

func lookupProp(facts []Tuple, id, key string) (string, bool) {
	for _, f := range facts {
		if len(f) == 3 && f[0] == id && f[1] == key {
			return f[2], true
		}
	}
	return "", false
}

func applySkolem(fn string, args []rule.Term, substs []substitution, reg *skolem.Registry, r *relations) []substitution {
	if len(args) == 0 {
		return nil
	}
	inputs, outTerm := args[:len(args)-1], args[len(args)-1]
	outVar, ok := outTerm.(rule.Var)
	if !ok {
		return nil
	}
	var out []substitution
	for _, s := range substs {
		vals := make([]string, 0, len(inputs))
		ok := true
		for _, a := range inputs {
			v, found := resolveTerm(a, s, r)
			if !found {
				ok = false
				break
			}
			vals = append(vals, v)
		}
		if !ok {
			continue
		}
		id := reg.Intern(fn, vals)
		s2 := s.clone()
		s2[string(outVar)] = strconv.FormatUint(id, 10)
		out = append(out, s2)
	}
	return out
}

// compareValues evaluates a WHERE-clause comparison using the same
// numeric-parse-with-lexicographic-fallback rule internal/graph.Compare
// implements for the engine's value model.
func compareValues(op graph.CompareOp, a, b string) bool {
	return graph.Compare(op, graph.Value(a), graph.Value(b))
}
