package types

import (
	goset "github.com/hashicorp/go-set/v3"
	"github.com/loam-lang/loam/frontend/ast"
	"github.com/loam-lang/loam/frontend/lmerr"
	"github.com/loam-lang/loam/internal/log"
)

var subtypeLogger = log.DefaultLogger.With("section", "subtype")

const (
	maxFuel  = 10_000
	maxDepth = 256
)

// typePair keys the coinductive cache of in-flight subtype goals.
type typePair struct{ l, r ast.Type }

func (p typePair) Hash() uint64 { return p.l.Hash()*8191 ^ p.r.Hash() }

// Subtype decides and records l <: r goals over the shared bound store.
// Every entry point is transactional: a failed check leaves the store
// exactly as it found it, so callers can probe alternatives freely.
type Subtype struct {
	decls  *ast.Decls
	bounds *boundStore
	look   *Lookup
	errs   *lmerr.Errors

	ok   bool
	fuel int
}

func NewSubtype(decls *ast.Decls, look *Lookup, errs *lmerr.Errors) *Subtype {
	bounds := newBoundStore()
	look.bounds = bounds
	return &Subtype{
		decls:  decls,
		bounds: bounds,
		look:   look,
		errs:   errs,
		ok:     true,
	}
}

// Ok reports whether every Constrain call so far has succeeded.
func (s *Subtype) Ok() bool { return s.ok }

// Constrain demands l <: r and reports a diagnostic at `at` if the goal
// cannot hold. On failure the bound store is rolled back and the pass
// is marked unsound, but inference continues.
func (s *Subtype) Constrain(l, r ast.Type, at ast.Positioner) bool {
	if l == nil || r == nil {
		return true
	}
	snap := s.bounds.snapshot()
	s.fuel = maxFuel
	if s.rec(l, r, newGoalCache(), 0) {
		return true
	}
	s.bounds.restore(snap)
	s.ok = false
	s.errs.With(lmerr.New(lmerr.NewSubtypeMismatch{
		Positioner: at,
		First:      l.String(),
		Second:     r.String(),
		At:         ast.RangeOf(at),
	}))
	return false
}

// Check is Constrain without the diagnostic. Used to probe dispatch
// candidates where failure is an answer, not an error.
func (s *Subtype) Check(l, r ast.Type) bool {
	if l == nil || r == nil {
		return true
	}
	snap := s.bounds.snapshot()
	s.fuel = maxFuel
	if s.rec(l, r, newGoalCache(), 0) {
		return true
	}
	s.bounds.restore(snap)
	return false
}

// Dynamic commits a call site against every candidate it could reach at
// runtime. Each candidate narrows the receiver to the disjunct it was
// found on before its signature is checked; if any candidate fails, all
// narrowing and bounding from the attempt is rolled back.
func (s *Subtype) Dynamic(cands []*ast.LookupRef, call *ast.FunctionType) bool {
	if len(cands) == 0 {
		return false
	}
	snap := s.bounds.snapshot()
	original := ReceiverType(call.Left)
	for _, cand := range cands {
		if cand.Self != nil {
			setReceiverType(call, isectOf(ReceiverType(call.Left), cand.Self))
		}
		sig, ok := s.expand(cand).(*ast.FunctionType)
		if !ok || !s.Check(sig, call) {
			s.bounds.restore(snap)
			setReceiverType(call, original)
			subtypeLogger.Debug("dynamic dispatch rejected", "candidates", len(cands))
			return false
		}
	}
	return true
}

// BoundsOf exposes the current interval of an inference variable.
func (s *Subtype) BoundsOf(v *ast.InferType) Bounds {
	return s.bounds.get(v.ID)
}

func newGoalCache() *goset.HashSet[typePair, uint64] {
	return goset.NewHashSet[typePair, uint64](16)
}

// rec decides l <: r under the current bounds, narrowing variables as a
// side effect. Goals already in flight are assumed true, which closes
// recursive nominal types coinductively; a goal leaves the set when it
// returns, so the set never outlives a rolled-back disjunct attempt.
func (s *Subtype) rec(l, r ast.Type, seen *goset.HashSet[typePair, uint64], depth int) bool {
	s.fuel--
	if s.fuel <= 0 || depth > maxDepth {
		subtypeLogger.Warn("solver fuel exhausted", "left", l.String(), "right", r.String())
		return false
	}
	if ast.Equal(l, r) {
		return true
	}
	goal := typePair{l: l, r: r}
	if !seen.Insert(goal) {
		return true
	}
	defer seen.Remove(goal)

	l = s.expand(l)
	r = s.expand(r)
	if ast.Equal(l, r) {
		return true
	}

	// variables narrow before any structural decomposition: a bound on
	// the whole type keeps conjunctions intact
	if v, ok := r.(*ast.InferType); ok {
		prior := s.bounds.get(v.ID)
		s.bounds.addLower(v, l)
		for _, up := range prior.Upper {
			if !s.rec(l, up, seen, depth+1) {
				return false
			}
		}
		return true
	}
	if v, ok := l.(*ast.InferType); ok {
		prior := s.bounds.get(v.ID)
		s.bounds.addUpper(v, r)
		for _, low := range prior.Lower {
			if !s.rec(low, r, seen, depth+1) {
				return false
			}
		}
		return true
	}

	// union on either side: every left disjunct must hold against some
	// right disjunct, each attempt transactional
	for _, ld := range Disjuncts(DNF(l)) {
		matched := false
		for _, rd := range Disjuncts(DNF(r)) {
			snap := s.bounds.snapshot()
			if s.conjSub(ld, rd, seen, depth+1) {
				matched = true
				break
			}
			s.bounds.restore(snap)
		}
		if !matched {
			return false
		}
	}
	return true
}

// conjSub decides one clause pair: every conjunct demanded on the right
// must be entailed by some conjunct present on the left.
func (s *Subtype) conjSub(ld, rd ast.Type, seen *goset.HashSet[typePair, uint64], depth int) bool {
	lAtoms := Conjuncts(ld)
	for _, ra := range Conjuncts(rd) {
		if !s.atomEntailed(lAtoms, ra, seen, depth) {
			return false
		}
	}
	return true
}

// atomEntailed tries concrete left atoms before variables, so a
// variable is only bound when nothing concrete already satisfies the
// demand.
func (s *Subtype) atomEntailed(lAtoms []ast.Type, ra ast.Type, seen *goset.HashSet[typePair, uint64], depth int) bool {
	for pass := 0; pass < 2; pass++ {
		for _, la := range lAtoms {
			_, isVar := la.(*ast.InferType)
			if (pass == 0) == isVar {
				continue
			}
			snap := s.bounds.snapshot()
			if s.recAtom(la, ra, seen, depth) {
				return true
			}
			s.bounds.restore(snap)
		}
	}
	return false
}

func (s *Subtype) recAtom(l, r ast.Type, seen *goset.HashSet[typePair, uint64], depth int) bool {
	l = s.expand(l)
	r = s.expand(r)
	if ast.Equal(l, r) {
		return true
	}

	// alias expansion can reintroduce connectives; renormalize
	switch l.(type) {
	case *ast.UnionType, *ast.IsectType:
		return s.rec(l, r, seen, depth)
	}
	switch r.(type) {
	case *ast.UnionType, *ast.IsectType, *ast.InferType:
		return s.rec(l, r, seen, depth)
	}
	if _, ok := l.(*ast.InferType); ok {
		return s.rec(l, r, seen, depth)
	}

	switch lt := l.(type) {
	case *ast.Imm:
		_, ok := r.(*ast.Imm)
		return ok
	case *ast.Mut:
		_, ok := r.(*ast.Mut)
		return ok
	case *ast.Iso:
		switch r.(type) {
		case *ast.Iso, *ast.Mut, *ast.Imm:
			return true
		}
		return false
	case *ast.ThrowType:
		rt, ok := r.(*ast.ThrowType)
		return ok && s.rec(lt.Type, rt.Type, seen, depth+1)
	case *ast.FunctionType:
		rt, ok := r.(*ast.FunctionType)
		return ok && s.funcSub(lt, rt, seen, depth)
	case *ast.TupleType:
		rt, ok := r.(*ast.TupleType)
		if !ok || len(lt.Types) != len(rt.Types) {
			return false
		}
		for i := range lt.Types {
			if !s.rec(lt.Types[i], rt.Types[i], seen, depth+1) {
				return false
			}
		}
		return true
	case *ast.LookupRef:
		return s.nominalSub(lt, r, seen, depth)
	}
	return false
}

// funcSub: contravariant on the parameter, covariant on the result. A
// nullary signature only matches a nullary demand.
func (s *Subtype) funcSub(l, r *ast.FunctionType, seen *goset.HashSet[typePair, uint64], depth int) bool {
	switch {
	case l.Left == nil && r.Left == nil:
	case l.Left == nil || r.Left == nil:
		return false
	default:
		if !s.rec(r.Left, l.Left, seen, depth+1) {
			return false
		}
	}
	return s.rec(l.Right, r.Right, seen, depth+1)
}

// nominalSub handles entity references: identical entities compare type
// arguments invariantly, otherwise the left entity's declared
// supertypes are climbed with its substitution applied. A type
// parameter stands for its declared bound.
func (s *Subtype) nominalSub(l *ast.LookupRef, r ast.Type, seen *goset.HashSet[typePair, uint64], depth int) bool {
	if param, ok := s.decls.Node(l.Def).(*ast.TypeParam); ok {
		if param.Upper == nil {
			return false
		}
		return s.rec(substitute(param.Upper, subsMap(l.Subs)), r, seen, depth+1)
	}

	rref, ok := r.(*ast.LookupRef)
	if !ok {
		return false
	}
	if param, ok := s.decls.Node(rref.Def).(*ast.TypeParam); ok {
		if param.Lower == nil {
			return false
		}
		return s.rec(l, substitute(param.Lower, subsMap(rref.Subs)), seen, depth+1)
	}

	if l.Def == rref.Def {
		return s.invariantArgs(l, rref, seen, depth)
	}

	var inherits []ast.Type
	switch node := s.decls.Node(l.Def).(type) {
	case *ast.Class:
		inherits = node.Inherits
	case *ast.Interface:
		inherits = node.Inherits
	}
	m := subsMap(l.Subs)
	for _, inh := range inherits {
		snap := s.bounds.snapshot()
		if s.rec(substitute(inh, m), r, seen, depth+1) {
			return true
		}
		s.bounds.restore(snap)
	}
	return false
}

func (s *Subtype) invariantArgs(l, r *ast.LookupRef, seen *goset.HashSet[typePair, uint64], depth int) bool {
	if len(l.Subs) != len(r.Subs) {
		return false
	}
	rArgs := subsMap(r.Subs)
	for _, sub := range l.Subs {
		arg, ok := rArgs[sub.Param]
		if !ok {
			return false
		}
		if !s.rec(sub.Arg, arg, seen, depth+1) || !s.rec(arg, sub.Arg, seen, depth+1) {
			return false
		}
	}
	return true
}

// expand replaces a reference to a function or alias with the type it
// denotes, under the reference's substitution. Entity references stay
// nominal atoms.
func (s *Subtype) expand(t ast.Type) ast.Type {
	var ref *ast.LookupRef
	switch tt := t.(type) {
	case *ast.TypeRef:
		if tt.Resolved == nil {
			return t
		}
		ref = tt.Resolved
	case *ast.LookupRef:
		ref = tt
	default:
		return t
	}
	switch node := s.decls.Node(ref.Def).(type) {
	case *ast.Function:
		if fn := node.FuncType(); fn != nil {
			return substitute(fn, subsMap(ref.Subs))
		}
	case *ast.TypeAlias:
		return substitute(node.Body, subsMap(ref.Subs))
	}
	return ref
}

// Solution replaces every constrained inference variable in t with its
// solved form: the union of its lower bounds, or failing that the
// intersection of its upper bounds. Unconstrained variables are left in
// place for the wellformedness pass to report.
func (s *Subtype) Solution(t ast.Type) ast.Type {
	if t == nil {
		return nil
	}
	return s.resolve(t, goset.New[uint64](4))
}

func (s *Subtype) resolve(t ast.Type, seen *goset.Set[uint64]) ast.Type {
	switch tt := t.(type) {
	case *ast.InferType:
		if !seen.Insert(tt.ID) {
			return tt
		}
		b := s.bounds.get(tt.ID)
		if len(b.Lower) > 0 {
			return s.resolve(unionOf(b.Lower...), seen)
		}
		if len(b.Upper) > 0 {
			return s.resolve(isectOf(b.Upper...), seen)
		}
		return tt
	case *ast.UnionType:
		return unionOf(s.resolveAll(tt.Types, seen)...)
	case *ast.IsectType:
		return isectOf(s.resolveAll(tt.Types, seen)...)
	case *ast.TupleType:
		return &ast.TupleType{Range: tt.Range, Types: s.resolveAll(tt.Types, seen)}
	case *ast.FunctionType:
		out := &ast.FunctionType{Range: tt.Range, Right: s.resolve(tt.Right, seen)}
		if tt.Left != nil {
			out.Left = s.resolve(tt.Left, seen)
		}
		return out
	case *ast.ThrowType:
		return &ast.ThrowType{Range: tt.Range, Type: s.resolve(tt.Type, seen)}
	default:
		return t
	}
}

func (s *Subtype) resolveAll(ts []ast.Type, seen *goset.Set[uint64]) []ast.Type {
	out := make([]ast.Type, len(ts))
	for i, t := range ts {
		out[i] = s.resolve(t, seen)
	}
	return out
}
