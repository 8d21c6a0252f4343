// Package infer walks a name-resolved module in three-address form,
// emits subtype constraints for every expression, and writes the solved
// types back onto locals and lambda results.
package infer

import (
	"github.com/loam-lang/loam/frontend/ast"
	"github.com/loam-lang/loam/frontend/ident"
	"github.com/loam-lang/loam/frontend/lmerr"
	"github.com/loam-lang/loam/frontend/types"
	"github.com/loam-lang/loam/internal/log"
	"github.com/loam-lang/loam/util"
)

var logger = log.DefaultLogger.With("section", "infer")

type pass struct {
	idents *ident.Table
	decls  *ast.Decls
	look   *types.Lookup
	sub    *types.Subtype
	errs   *lmerr.Errors

	parents util.Stack[ast.Node]
	scopes  util.Stack[*ast.SymbolTable]
	typeImm *ast.Imm

	// per-run assignment state; a local's own flag is its state as
	// handed in, so reruns on the same tree see the same sequence
	assigned map[*ast.Local]bool
}

// Run infers types for every expression under root. It returns false
// when any diagnostic was emitted; inference still completes so all
// diagnostics from one walk are reported together.
func Run(root ast.Node, idents *ident.Table, decls *ast.Decls, errs *lmerr.Errors) bool {
	look := types.NewLookup(decls)
	p := &pass{
		idents:   idents,
		decls:    decls,
		look:     look,
		sub:      types.NewSubtype(decls, look, errs),
		errs:     errs,
		typeImm:  &ast.Imm{},
		assigned: make(map[*ast.Local]bool),
	}
	before := len(errs.Errors())
	p.visit(root)
	p.writeBack(root)
	return len(errs.Errors()) == before && p.sub.Ok()
}

func (p *pass) visit(n ast.Node) {
	if n == nil {
		return
	}
	scoped := scopeOf(n)
	if scoped != nil {
		p.scopes.Push(scoped)
	}
	p.parents.Push(n)
	for _, child := range childrenOf(p.decls, n) {
		p.visit(child)
	}
	p.parents.Pop()
	p.post(n)
	if scoped != nil {
		p.scopes.Pop()
	}
}

func (p *pass) post(n ast.Node) {
	switch n := n.(type) {
	case *ast.Free:
		p.postFree(n)
	case *ast.Ref:
		p.postRef(n)
	case *ast.Oftype:
		p.postOftype(n)
	case *ast.Throw:
		p.postThrow(n)
	case *ast.Assign:
		p.postAssign(n)
	case *ast.Tuple:
		p.postTuple(n)
	case *ast.Select:
		p.postSelect(n)
	case *ast.Int:
		p.postInt(n)
	case *ast.Float:
		p.postFloat(n)
	case *ast.Bool:
		p.postBool(n)
	case *ast.Lambda:
		p.postLambda(n)
	case *ast.TypeRef:
		p.postTypeRef(n)
	}
}

// symbols is the innermost symbol table at the current position.
func (p *pass) symbols() *ast.SymbolTable {
	tab, _ := p.scopes.Peek()
	return tab
}

func (p *pass) parent() ast.Node {
	n, _ := p.parents.Peek()
	return n
}

// g resolves a name to the local visible at the current position.
func (p *pass) g(name ident.Name) *ast.Local {
	tab := p.symbols()
	if tab == nil || name.IsNone() {
		return nil
	}
	return tab.GetScope(name)
}

// leftName unwraps the expression forms that can name a local.
func leftName(e ast.Expr) ident.Name {
	switch e := e.(type) {
	case *ast.Local:
		return e.Name
	case *ast.Ref:
		return e.Name
	case *ast.Free:
		return e.Name
	case *ast.Oftype:
		return leftName(e.Expr)
	default:
		return ident.None
	}
}

// parentAssign is the nearest enclosing assignment.
func (p *pass) parentAssign() *ast.Assign {
	for n := range p.parents.FromTop() {
		if a, ok := n.(*ast.Assign); ok {
			return a
		}
	}
	return nil
}

func (p *pass) enclosingLambda() *ast.Lambda {
	for n := range p.parents.FromTop() {
		if l, ok := n.(*ast.Lambda); ok {
			return l
		}
	}
	return nil
}

// lhsLocal is the local receiving the current expression's value, per
// three-address form.
func (p *pass) lhsLocal() *ast.Local {
	a := p.parentAssign()
	if a == nil {
		return nil
	}
	return p.g(leftName(a.Left))
}

// isAssigned consults this run's view of a local's assignment state.
func (p *pass) isAssigned(l *ast.Local) bool {
	if v, ok := p.assigned[l]; ok {
		return v
	}
	return l.Assigned
}

func (p *pass) postFree(fr *ast.Free) {
	l := p.g(fr.Name)
	if l == nil {
		return
	}
	if !p.isAssigned(l) {
		p.errs.With(lmerr.New(lmerr.NewCaptureUnassigned{
			Positioner: fr,
			Name:       fr.Name.String(),
			Definition: ast.RangeOf(l),
		}))
	}
}

func (p *pass) postRef(ref *ast.Ref) {
	switch parent := p.parent().(type) {
	case *ast.Oftype:
		// an ascription may mention an unassigned local
		return
	case *ast.Assign:
		if left, ok := parent.Left.(*ast.Ref); ok && left == ref {
			return
		}
		l := p.g(ref.Name)
		if l == nil {
			return
		}
		if lhs := p.g(leftName(parent.Left)); lhs != nil {
			p.sub.Constrain(l.Type, lhs.Type, ref)
		}
		p.checkAssigned(ref, l)
	case *ast.Lambda:
		// a trailing ref is the lambda's return value
		l := p.g(ref.Name)
		if l == nil {
			return
		}
		if !p.sub.Constrain(l.Type, parent.Result, ref) {
			p.errs.With(lmerr.New(lmerr.NewReturnMismatch{
				Positioner: ref,
				ResultAt:   ast.RangeOf(parent.Result),
			}))
		}
		p.checkAssigned(ref, l)
	default:
		if l := p.g(ref.Name); l != nil {
			p.checkAssigned(ref, l)
		}
	}
}

func (p *pass) checkAssigned(ref *ast.Ref, l *ast.Local) {
	if !p.isAssigned(l) {
		p.errs.With(lmerr.New(lmerr.NewUseBeforeAssign{
			Positioner: ref,
			Name:       ref.Name.String(),
		}))
	}
}

func (p *pass) postOftype(oftype *ast.Oftype) {
	if l := p.g(leftName(oftype.Expr)); l != nil {
		p.sub.Constrain(l.Type, oftype.Type, oftype)
	}
}

func (p *pass) postThrow(thr *ast.Throw) {
	l := p.g(leftName(thr.Expr))
	lam := p.enclosingLambda()
	if l == nil || lam == nil {
		return
	}
	p.sub.Constrain(types.Throwtype(l.Type), lam.Result, thr)
}

func (p *pass) postAssign(asn *ast.Assign) {
	l := p.g(leftName(asn.Left))
	if l == nil {
		return
	}
	if !p.isAssigned(l) || l.Reassignable {
		p.assigned[l] = true
		return
	}
	p.errs.With(lmerr.New(lmerr.NewReassignment{
		Positioner: asn.Right,
		Left:       ast.RangeOf(asn.Left),
	}))
}

func (p *pass) postTuple(tuple *ast.Tuple) {
	lhs := p.lhsLocal()
	if lhs == nil {
		return
	}
	t := &ast.TupleType{Range: ast.RangeOf(tuple)}
	for _, e := range tuple.Seq {
		if l := p.g(leftName(e)); l != nil {
			t.Types = append(t.Types, l.Type)
		}
	}
	// a tuple construction fixes the local's type outright
	lhs.Type = t
}

func (p *pass) postSelect(sel *ast.Select) {
	lhs := p.lhsLocal()
	if lhs == nil || sel.TypeRef == nil || len(sel.TypeRef.TypeNames) == 0 {
		return
	}
	call := p.callType(sel, lhs)

	if call.Left != nil && len(sel.TypeRef.TypeNames) == 1 {
		receiver := types.ReceiverType(call.Left)
		name := sel.TypeRef.TypeNames[0].Name
		cands := p.look.Member(receiver, name)
		if p.sub.Dynamic(cands, call) {
			sel.Dispatch = ast.DispatchDynamic
			sel.Call = call
			if len(cands) == 1 {
				sel.Target = cands[0]
			}
			logger.Debug("dispatch", "kind", sel.Dispatch.String(), "name", name.String())
			return
		}
	}

	find := p.look.Typeref(p.symbols(), sel.TypeRef)
	if find == nil {
		p.errs.With(lmerr.New(lmerr.NewDispatchNotFound{Positioner: sel}))
		return
	}
	if target := p.decls.Node(find.Def); target == nil || target.Kind() != ast.KindFunction {
		found := "nothing"
		if target != nil {
			found = target.Kind().String()
		}
		p.errs.With(lmerr.New(lmerr.NewShapeMismatch{
			Positioner: sel,
			Expected:   ast.KindFunction.String(),
			Found:      found,
		}))
		return
	}
	p.checkTypeArgs(find)
	p.sub.Constrain(find, call, sel)
	sel.Dispatch = ast.DispatchStatic
	sel.Target = find
	sel.Call = call
}

// callType assembles the call-site signature from the locals carrying
// the receiver and arguments. Tuple-typed operands are flattened so a
// packed argument list matches a multi-parameter signature.
func (p *pass) callType(sel *ast.Select, lhs *ast.Local) *ast.FunctionType {
	f := &ast.FunctionType{Range: ast.RangeOf(sel), Right: lhs.Type}
	lt := p.operandType(sel.Expr)
	rt := p.operandType(sel.Args)
	switch {
	case lt != nil && rt == nil:
		f.Left = lt
	case lt == nil && rt != nil:
		f.Left = rt
	case lt != nil && rt != nil:
		tup := &ast.TupleType{Range: ast.RangeOf(lt)}
		unpackInto(tup, lt)
		unpackInto(tup, rt)
		f.Left = tup
	}
	return f
}

func (p *pass) operandType(e ast.Expr) ast.Type {
	if e == nil {
		return nil
	}
	if l := p.g(leftName(e)); l != nil {
		return l.Type
	}
	return nil
}

func unpackInto(to *ast.TupleType, from ast.Type) {
	if tup, ok := from.(*ast.TupleType); ok {
		to.Types = append(to.Types, tup.Types...)
		return
	}
	to.Types = append(to.Types, from)
}

// constantType is `imm & N` for a literal of ambient type N, or nil when
// N is not in scope.
func (p *pass) constantType(name ident.Name, at ast.Range) ast.Type {
	tr := &ast.TypeRef{
		Range:     at,
		TypeNames: []*ast.TypeName{{Range: at, Name: name}},
	}
	if p.look.Typeref(p.symbols(), tr) == nil {
		return nil
	}
	return &ast.IsectType{Range: at, Types: []ast.Type{tr, p.typeImm}}
}

func (p *pass) postInt(n *ast.Int) {
	lhs := p.lhsLocal()
	if lhs == nil {
		return
	}
	t := p.constantType(p.idents.Integer, ast.RangeOf(n))
	if t == nil {
		p.errs.With(lmerr.New(lmerr.NewMissingType{Positioner: n, Name: "Integer"}))
		return
	}
	// a literal adopts whatever imm numeric type the hole demands
	p.sub.Constrain(lhs.Type, t, n)
}

func (p *pass) postFloat(n *ast.Float) {
	lhs := p.lhsLocal()
	if lhs == nil {
		return
	}
	t := p.constantType(p.idents.Float, ast.RangeOf(n))
	if t == nil {
		p.errs.With(lmerr.New(lmerr.NewMissingType{Positioner: n, Name: "Float"}))
		return
	}
	p.sub.Constrain(lhs.Type, t, n)
}

func (p *pass) postBool(n *ast.Bool) {
	lhs := p.lhsLocal()
	if lhs == nil {
		return
	}
	t := p.constantType(p.idents.Bool, ast.RangeOf(n))
	if t == nil {
		p.errs.With(lmerr.New(lmerr.NewMissingType{Positioner: n, Name: "Bool"}))
		return
	}
	p.sub.Constrain(t, lhs.Type, n)
}

func (p *pass) postLambda(lambda *ast.Lambda) {
	switch parent := p.parent().(type) {
	case *ast.Assign:
		if lhs := p.lhsLocal(); lhs != nil {
			p.sub.Constrain(lambda.FuncType(), lhs.Type, lambda)
		}
	case *ast.Param:
		// default arguments are checked at each call site once the
		// parameter type is instantiated, not here
	case *ast.Field:
		if !p.sub.Constrain(lambda.Result, parent.Type, lambda) {
			p.errs.With(lmerr.New(lmerr.NewFieldInitMismatch{
				Positioner:  lambda,
				FieldTypeAt: ast.RangeOf(parent.Type),
			}))
		}
	}
}

func (p *pass) postTypeRef(t *ast.TypeRef) {
	if sel, ok := p.parent().(*ast.Select); ok && sel.TypeRef == t {
		// the selector resolves at the call site, possibly dynamically
		return
	}
	if find := p.look.Typeref(p.symbols(), t); find != nil {
		p.checkTypeArgs(find)
	}
}

// checkTypeArgs demands every bound type argument below its parameter's
// declared upper bound.
func (p *pass) checkTypeArgs(find *ast.LookupRef) {
	for _, sub := range find.Subs {
		param, ok := p.decls.Node(sub.Param).(*ast.TypeParam)
		if !ok || param.Upper == nil || sub.Arg == nil {
			continue
		}
		p.sub.Constrain(sub.Arg, param.Upper, sub.Arg)
	}
}

// writeBack replaces solved inference variables in declared positions.
// Variables with an empty interval stay put for Wellformed to report.
func (p *pass) writeBack(n ast.Node) {
	if n == nil {
		return
	}
	switch n := n.(type) {
	case *ast.Local:
		n.Type = p.sub.Solution(n.Type)
	case *ast.Lambda:
		n.Result = p.sub.Solution(n.Result)
	case *ast.Param:
		n.Type = p.sub.Solution(n.Type)
	case *ast.Field:
		n.Type = p.sub.Solution(n.Type)
	case *ast.Function:
		n.Result = p.sub.Solution(n.Result)
	}
	for _, child := range childrenOf(p.decls, n) {
		p.writeBack(child)
	}
}
