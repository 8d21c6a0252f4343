package types

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/loam-lang/loam/frontend/ast"
)

// This file rewrites composite types into disjunctive normal form: a
// union of intersections, where unions never nest and singletons
// collapse. The solver compares types clause by clause, and member
// lookup enumerates candidates per disjunct, so both want this shape.

type typeHasher struct {
	t ast.Type
}

func (h typeHasher) Hash() uint64 { return h.t.Hash() }

// unionOf flattens, dedupes and collapses its members into the smallest
// equivalent union.
func unionOf(members ...ast.Type) ast.Type {
	seen := set.NewHashSet[typeHasher, uint64](len(members))
	var flat []ast.Type
	var addAll func(ts []ast.Type)
	addAll = func(ts []ast.Type) {
		for _, t := range ts {
			if t == nil {
				continue
			}
			if u, ok := t.(*ast.UnionType); ok {
				addAll(u.Types)
				continue
			}
			if seen.Insert(typeHasher{t}) {
				flat = append(flat, t)
			}
		}
	}
	addAll(members)
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &ast.UnionType{Range: ast.RangeOf(flat[0]), Types: flat}
}

// isectOf flattens, dedupes and collapses its members into the smallest
// equivalent intersection.
func isectOf(members ...ast.Type) ast.Type {
	seen := set.NewHashSet[typeHasher, uint64](len(members))
	var flat []ast.Type
	var addAll func(ts []ast.Type)
	addAll = func(ts []ast.Type) {
		for _, t := range ts {
			if t == nil {
				continue
			}
			if i, ok := t.(*ast.IsectType); ok {
				addAll(i.Types)
				continue
			}
			if seen.Insert(typeHasher{t}) {
				flat = append(flat, t)
			}
		}
	}
	addAll(members)
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &ast.IsectType{Range: ast.RangeOf(flat[0]), Types: flat}
}

// DNF rewrites t into a union of intersections. The result is either a
// single clause or a UnionType whose members are clauses; a clause is an
// atom or an IsectType of atoms.
func DNF(t ast.Type) ast.Type {
	return unionOf(dnfClauses(t)...)
}

func dnfClauses(t ast.Type) []ast.Type {
	switch t := t.(type) {
	case *ast.UnionType:
		var clauses []ast.Type
		for _, m := range t.Types {
			clauses = append(clauses, dnfClauses(m)...)
		}
		return clauses
	case *ast.IsectType:
		// distribute: (A|B) & C  =>  A&C | B&C
		clauses := []ast.Type{nil}
		for _, m := range t.Types {
			mClauses := dnfClauses(m)
			next := make([]ast.Type, 0, len(clauses)*len(mClauses))
			for _, c := range clauses {
				for _, mc := range mClauses {
					next = append(next, isectOf(c, mc))
				}
			}
			clauses = next
		}
		return clauses
	default:
		return []ast.Type{t}
	}
}

// Disjuncts returns the clauses of t's DNF.
func Disjuncts(t ast.Type) []ast.Type {
	if t == nil {
		return nil
	}
	normal := DNF(t)
	if u, ok := normal.(*ast.UnionType); ok {
		return u.Types
	}
	return []ast.Type{normal}
}

// Conjuncts returns the atoms of a single DNF clause.
func Conjuncts(clause ast.Type) []ast.Type {
	if clause == nil {
		return nil
	}
	if i, ok := clause.(*ast.IsectType); ok {
		return i.Types
	}
	return []ast.Type{clause}
}

// Throwtype wraps t as a thrown result, distributing over unions
// (throw (A | B) = throw A | throw B) and never double-wrapping.
func Throwtype(t ast.Type) ast.Type {
	switch t := t.(type) {
	case nil:
		return nil
	case *ast.ThrowType:
		return t
	case *ast.UnionType:
		wrapped := make([]ast.Type, 0, len(t.Types))
		for _, m := range t.Types {
			wrapped = append(wrapped, Throwtype(m))
		}
		return unionOf(wrapped...)
	default:
		return &ast.ThrowType{Range: ast.RangeOf(t), Type: t}
	}
}

// ReceiverType extracts the self slot of a call's argument type: the
// first component when the arguments form a tuple, the whole argument
// otherwise.
func ReceiverType(left ast.Type) ast.Type {
	if tup, ok := left.(*ast.TupleType); ok && len(tup.Types) > 0 {
		return tup.Types[0]
	}
	return left
}

func setReceiverType(call *ast.FunctionType, t ast.Type) {
	if tup, ok := call.Left.(*ast.TupleType); ok && len(tup.Types) > 0 {
		tup.Types[0] = t
		return
	}
	call.Left = t
}
