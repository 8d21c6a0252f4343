package infer

import (
	"github.com/loam-lang/loam/frontend/ast"
	"github.com/loam-lang/loam/frontend/lmerr"
)

// Wellformed reports every inference variable still present under root,
// meaning its interval never gained a bound and no concrete type could
// be pinned. It returns true when the tree is fully typed.
func Wellformed(root ast.Node, decls *ast.Decls, errs *lmerr.Errors) bool {
	w := &wfCheck{decls: decls, errs: errs, ok: true}
	w.visit(root)
	return w.ok
}

type wfCheck struct {
	decls *ast.Decls
	errs  *lmerr.Errors
	ok    bool
}

func (w *wfCheck) visit(n ast.Node) {
	if n == nil {
		return
	}
	if v, ok := n.(*ast.InferType); ok {
		w.ok = false
		w.errs.With(lmerr.New(lmerr.NewUnresolvedType{Positioner: v}))
		return
	}
	for _, child := range childrenOf(w.decls, n) {
		w.visit(child)
	}
}
