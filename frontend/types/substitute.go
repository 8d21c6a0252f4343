package types

import (
	"github.com/loam-lang/loam/frontend/ast"
)

func subsMap(subs []ast.Sub) map[ast.DeclID]ast.Type {
	if len(subs) == 0 {
		return nil
	}
	m := make(map[ast.DeclID]ast.Type, len(subs))
	for _, s := range subs {
		m[s.Param] = s.Arg
	}
	return m
}

// substitute replaces every reference to a type parameter appearing in
// subs with its chosen argument, cloning the spine of t. Nodes that
// cannot contain a parameter reference are shared, not cloned.
func substitute(t ast.Type, subs map[ast.DeclID]ast.Type) ast.Type {
	if t == nil || len(subs) == 0 {
		return t
	}
	switch t := t.(type) {
	case *ast.TypeRef:
		if t.Resolved != nil {
			if arg, ok := subs[t.Resolved.Def]; ok {
				return arg
			}
		}
		names := make([]*ast.TypeName, len(t.TypeNames))
		for i, n := range t.TypeNames {
			args := make([]ast.Type, len(n.TypeArgs))
			for j, a := range n.TypeArgs {
				args[j] = substitute(a, subs)
			}
			names[i] = &ast.TypeName{Range: n.Range, Name: n.Name, TypeArgs: args}
		}
		out := &ast.TypeRef{Range: t.Range, TypeNames: names}
		if t.Resolved != nil {
			out.Resolved = substituteRef(t.Resolved, subs)
		}
		return out
	case *ast.LookupRef:
		if arg, ok := subs[t.Def]; ok {
			return arg
		}
		return substituteRef(t, subs)
	case *ast.IsectType:
		return isectOf(substituteAll(t.Types, subs)...)
	case *ast.UnionType:
		return unionOf(substituteAll(t.Types, subs)...)
	case *ast.TupleType:
		return &ast.TupleType{Range: t.Range, Types: substituteAll(t.Types, subs)}
	case *ast.FunctionType:
		return &ast.FunctionType{
			Range: t.Range,
			Left:  substitute(t.Left, subs),
			Right: substitute(t.Right, subs),
		}
	case *ast.ThrowType:
		return &ast.ThrowType{Range: t.Range, Type: substitute(t.Type, subs)}
	default:
		// capabilities, inference variables, anything parameter-free
		return t
	}
}

func substituteAll(ts []ast.Type, subs map[ast.DeclID]ast.Type) []ast.Type {
	out := make([]ast.Type, len(ts))
	for i, t := range ts {
		out[i] = substitute(t, subs)
	}
	return out
}

func substituteRef(ref *ast.LookupRef, subs map[ast.DeclID]ast.Type) *ast.LookupRef {
	out := &ast.LookupRef{Range: ref.Range, Def: ref.Def, Self: substitute(ref.Self, subs)}
	for _, s := range ref.Subs {
		out.Subs = append(out.Subs, ast.Sub{Param: s.Param, Arg: substitute(s.Arg, subs)})
	}
	return out
}
