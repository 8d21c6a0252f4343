package infer

import (
	"github.com/loam-lang/loam/frontend/ast"
)

// childrenOf returns a node's syntactic children in source order,
// including type annotations, so one traversal serves the visitor, the
// solution write-back and the wellformedness check. Declaration handles
// held as DeclIDs are expanded through the arena.
func childrenOf(decls *ast.Decls, n ast.Node) []ast.Node {
	var out []ast.Node
	add := func(ns ...ast.Node) {
		for _, c := range ns {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	addExprs := func(es []ast.Expr) {
		for _, e := range es {
			if e != nil {
				out = append(out, e)
			}
		}
	}
	addTypes := func(ts []ast.Type) {
		for _, t := range ts {
			if t != nil {
				out = append(out, t)
			}
		}
	}
	addDecls := func(ids []ast.DeclID) {
		for _, id := range ids {
			if node := decls.Node(id); node != nil {
				out = append(out, node)
			}
		}
	}

	switch n := n.(type) {
	case *ast.Module:
		add(n.Members...)
	case *ast.Class:
		addDecls(n.TypeParams)
		addTypes(n.Inherits)
		add(n.Members...)
	case *ast.Interface:
		addDecls(n.TypeParams)
		addTypes(n.Inherits)
		add(n.Members...)
	case *ast.TypeAlias:
		addDecls(n.TypeParams)
		add(n.Body)
	case *ast.Function:
		addDecls(n.TypeParams)
		if n.Body != nil {
			add(n.Body)
		} else {
			for _, p := range n.Params {
				add(p)
			}
			add(n.Result)
		}
	case *ast.TypeParam:
		add(n.Upper, n.Lower)
	case *ast.Lambda:
		addDecls(n.TypeParams)
		for _, p := range n.Params {
			add(p)
		}
		add(n.Result)
		addExprs(n.Body)
	case *ast.Param:
		add(n.Type, n.Init)
	case *ast.Field:
		add(n.Type, n.Init)
	case *ast.Local:
		add(n.Type)
	case *ast.Assign:
		add(n.Left, n.Right)
	case *ast.Tuple:
		addExprs(n.Seq)
	case *ast.Select:
		add(n.TypeRef, n.Expr, n.Args)
	case *ast.Oftype:
		add(n.Expr, n.Type)
	case *ast.Throw:
		add(n.Expr)
	case *ast.New:
		addExprs(n.Inits)
	case *ast.ObjectLiteral:
		add(n.Members...)
	case *ast.Match:
		add(n.Subject)
		addExprs(n.Arms)
	case *ast.When:
		add(n.Guard, n.Body)

	case *ast.TypeRef:
		for _, tn := range n.TypeNames {
			add(tn)
		}
	case *ast.TypeName:
		addTypes(n.TypeArgs)
	case *ast.IsectType:
		addTypes(n.Types)
	case *ast.UnionType:
		addTypes(n.Types)
	case *ast.TupleType:
		addTypes(n.Types)
	case *ast.FunctionType:
		add(n.Left, n.Right)
	case *ast.ThrowType:
		add(n.Type)
	}
	return out
}

// scopeOf returns the symbol table a node opens, or nil.
func scopeOf(n ast.Node) *ast.SymbolTable {
	switch n := n.(type) {
	case *ast.Module:
		return n.Symbols
	case *ast.Class:
		return n.Symbols
	case *ast.Interface:
		return n.Symbols
	case *ast.Lambda:
		return n.Symbols
	default:
		return nil
	}
}
