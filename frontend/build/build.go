// Package build assembles name-resolved modules in the three-address
// form the inference pass consumes. Parsing and name resolution happen
// upstream of this repository; drivers and tests use the builder to
// stand in for them. Builder misuse is a Go error, not a source
// diagnostic.
package build

import (
	"go/token"

	"github.com/pkg/errors"

	"github.com/loam-lang/loam/frontend/ast"
	"github.com/loam-lang/loam/frontend/ident"
)

// Builder owns the identifier table, the declaration arena and the
// inference-variable counter for one module under construction. The
// first misuse is retained and every later call becomes a no-op, so
// construction code can chain without checking each step.
type Builder struct {
	idents  *ident.Table
	decls   *ast.Decls
	nextVar uint64
	nextPos token.Pos
	err     error
}

func New() *Builder {
	return &Builder{
		idents:  ident.NewTable(),
		decls:   ast.NewDecls(),
		nextPos: 1,
	}
}

func (b *Builder) Idents() *ident.Table { return b.idents }
func (b *Builder) Decls() *ast.Decls    { return b.decls }

// Err returns the first misuse, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// pos mints a fresh source range so every node has a distinct location.
func (b *Builder) pos() ast.Range {
	p := b.nextPos
	b.nextPos++
	return ast.Range{PosStart: p, PosEnd: p + 1}
}

// Fresh mints an unconstrained inference variable.
func (b *Builder) Fresh() *ast.InferType {
	b.nextVar++
	return &ast.InferType{Range: b.pos(), ID: b.nextVar}
}

// Module opens a top-level module scope.
func (b *Builder) Module(name string) *ast.Module {
	return &ast.Module{
		Range:   b.pos(),
		Name:    b.idents.Intern(name),
		Symbols: ast.NewSymbolTable(nil),
	}
}

// Class declares a class in mod's scope.
func (b *Builder) Class(mod *ast.Module, name string) *ast.Class {
	cls := &ast.Class{
		Range:   b.pos(),
		Name:    b.idents.Intern(name),
		Symbols: ast.NewSymbolTable(mod.Symbols),
	}
	id := b.decls.Add(cls)
	mod.Symbols.Define(cls.Name, id)
	mod.Members = append(mod.Members, cls)
	return cls
}

// Interface declares an interface in mod's scope.
func (b *Builder) Interface(mod *ast.Module, name string) *ast.Interface {
	iface := &ast.Interface{
		Range:   b.pos(),
		Name:    b.idents.Intern(name),
		Symbols: ast.NewSymbolTable(mod.Symbols),
	}
	id := b.decls.Add(iface)
	mod.Symbols.Define(iface.Name, id)
	mod.Members = append(mod.Members, iface)
	return iface
}

// TypeAlias declares an alias in mod's scope.
func (b *Builder) TypeAlias(mod *ast.Module, name string, body ast.Type) *ast.TypeAlias {
	alias := &ast.TypeAlias{
		Range: b.pos(),
		Name:  b.idents.Intern(name),
		Body:  body,
	}
	id := b.decls.Add(alias)
	mod.Symbols.Define(alias.Name, id)
	mod.Members = append(mod.Members, alias)
	return alias
}

// Inherit records a declared supertype on a class or interface.
func (b *Builder) Inherit(entity ast.Node, super ast.Type) {
	switch entity := entity.(type) {
	case *ast.Class:
		entity.Inherits = append(entity.Inherits, super)
	case *ast.Interface:
		entity.Inherits = append(entity.Inherits, super)
	default:
		b.fail(errors.Errorf("cannot inherit on %s", entity.Kind()))
	}
}

// TypeParamFor declares a type parameter on an entity, with an optional
// upper bound.
func (b *Builder) TypeParamFor(entity ast.Node, name string, upper ast.Type) ast.DeclID {
	param := &ast.TypeParam{
		Range: b.pos(),
		Name:  b.idents.Intern(name),
		Upper: upper,
	}
	id := b.decls.Add(param)
	switch entity := entity.(type) {
	case *ast.Class:
		entity.TypeParams = append(entity.TypeParams, id)
		entity.Symbols.Define(param.Name, id)
	case *ast.Interface:
		entity.TypeParams = append(entity.TypeParams, id)
		entity.Symbols.Define(param.Name, id)
	case *ast.TypeAlias:
		entity.TypeParams = append(entity.TypeParams, id)
	default:
		b.fail(errors.Errorf("cannot declare a type parameter on %s", entity.Kind()))
	}
	return id
}

// Param builds a function parameter. A nil type gets a fresh variable.
func (b *Builder) Param(name string, typ ast.Type) *ast.Param {
	if typ == nil {
		typ = b.Fresh()
	}
	return &ast.Param{Range: b.pos(), Name: b.idents.Intern(name), Type: typ}
}

// Field declares a member field, optionally with a nullary initialiser
// lambda around init.
func (b *Builder) Field(owner ast.Node, name string, typ ast.Type) *ast.Field {
	f := &ast.Field{Range: b.pos(), Name: b.idents.Intern(name), Type: typ}
	switch owner := owner.(type) {
	case *ast.Class:
		owner.Members = append(owner.Members, f)
	case *ast.Interface:
		owner.Members = append(owner.Members, f)
	default:
		b.fail(errors.Errorf("cannot declare a field on %s", owner.Kind()))
	}
	return f
}

// Function declares a function whose body is a lambda sharing the
// params and result. A nil result gets a fresh variable. The enclosing
// scope is the owner's symbol table.
func (b *Builder) Function(owner ast.Node, name string, params []*ast.Param, result ast.Type) *ast.Function {
	var parentScope *ast.SymbolTable
	switch owner := owner.(type) {
	case *ast.Module:
		parentScope = owner.Symbols
	case *ast.Class:
		parentScope = owner.Symbols
	case *ast.Interface:
		parentScope = owner.Symbols
	default:
		b.fail(errors.Errorf("cannot declare a function on %s", owner.Kind()))
		return nil
	}
	if result == nil {
		result = b.Fresh()
	}

	body := &ast.Lambda{
		Range:   b.pos(),
		Params:  params,
		Result:  result,
		Symbols: ast.NewSymbolTable(parentScope),
	}
	for _, p := range params {
		body.Symbols.DefineLocal(&ast.Local{
			Range:    p.Range,
			Name:     p.Name,
			Type:     p.Type,
			Assigned: true,
		})
	}

	fn := &ast.Function{
		Range:  ast.RangeOf(body),
		Name:   b.idents.Intern(name),
		Params: params,
		Result: result,
		Body:   body,
	}
	id := b.decls.Add(fn)
	switch owner := owner.(type) {
	case *ast.Module:
		owner.Symbols.Define(fn.Name, id)
		owner.Members = append(owner.Members, fn)
	case *ast.Class:
		owner.Symbols.Define(fn.Name, id)
		owner.Members = append(owner.Members, fn)
	case *ast.Interface:
		owner.Symbols.Define(fn.Name, id)
		owner.Members = append(owner.Members, fn)
	}
	return fn
}

// Lambda builds an anonymous function literal scoped under parent.
func (b *Builder) Lambda(parent *ast.SymbolTable, params []*ast.Param, result ast.Type) *ast.Lambda {
	if result == nil {
		result = b.Fresh()
	}
	l := &ast.Lambda{
		Range:   b.pos(),
		Params:  params,
		Result:  result,
		Symbols: ast.NewSymbolTable(parent),
	}
	for _, p := range params {
		l.Symbols.DefineLocal(&ast.Local{
			Range:    p.Range,
			Name:     p.Name,
			Type:     p.Type,
			Assigned: true,
		})
	}
	return l
}

// Let binds a single-assignment local in the lambda's scope. A nil type
// gets a fresh inference variable.
func (b *Builder) Let(lam *ast.Lambda, name string, typ ast.Type) *ast.Local {
	return b.local(lam, name, typ, false)
}

// Var binds a reassignable local.
func (b *Builder) Var(lam *ast.Lambda, name string, typ ast.Type) *ast.Local {
	return b.local(lam, name, typ, true)
}

func (b *Builder) local(lam *ast.Lambda, name string, typ ast.Type, reassignable bool) *ast.Local {
	if typ == nil {
		typ = b.Fresh()
	}
	n := b.idents.Intern(name)
	if lam.Symbols.GetScope(n) != nil {
		b.fail(errors.Errorf("local %q already defined", name))
	}
	l := &ast.Local{
		Range:        b.pos(),
		Name:         n,
		Type:         typ,
		Reassignable: reassignable,
	}
	lam.Symbols.DefineLocal(l)
	return l
}

// Ref names a local that must already be in scope.
func (b *Builder) Ref(lam *ast.Lambda, name string) *ast.Ref {
	n := b.idents.Intern(name)
	if lam.Symbols.GetScope(n) == nil {
		b.fail(errors.Errorf("ref to undefined local %q", name))
	}
	return &ast.Ref{Range: b.pos(), Name: n}
}

// Free names a capture from an enclosing scope.
func (b *Builder) Free(lam *ast.Lambda, name string) *ast.Free {
	n := b.idents.Intern(name)
	if lam.Symbols.GetScope(n) == nil {
		b.fail(errors.Errorf("capture of undefined local %q", name))
	}
	return &ast.Free{Range: b.pos(), Name: n}
}

// Assign appends `left = right` to the lambda body.
func (b *Builder) Assign(lam *ast.Lambda, left, right ast.Expr) *ast.Assign {
	a := &ast.Assign{Range: ast.RangeBetween(left, right), Left: left, Right: right}
	lam.Body = append(lam.Body, a)
	return a
}

// Stmt appends a bare expression, such as a throw, to the lambda body.
func (b *Builder) Stmt(lam *ast.Lambda, e ast.Expr) {
	lam.Body = append(lam.Body, e)
}

// Return appends the trailing ref that carries the lambda's value.
func (b *Builder) Return(lam *ast.Lambda, name string) *ast.Ref {
	r := b.Ref(lam, name)
	lam.Body = append(lam.Body, r)
	return r
}

func (b *Builder) Int(text string) *ast.Int {
	return &ast.Int{Range: b.pos(), Text: text}
}

func (b *Builder) Float(text string) *ast.Float {
	return &ast.Float{Range: b.pos(), Text: text}
}

func (b *Builder) Bool(v bool) *ast.Bool {
	return &ast.Bool{Range: b.pos(), Value: v}
}

func (b *Builder) Tuple(seq ...ast.Expr) *ast.Tuple {
	return &ast.Tuple{Range: b.pos(), Seq: seq}
}

func (b *Builder) Throw(e ast.Expr) *ast.Throw {
	return &ast.Throw{Range: b.pos(), Expr: e}
}

func (b *Builder) Oftype(e ast.Expr, typ ast.Type) *ast.Oftype {
	return &ast.Oftype{Range: b.pos(), Expr: e, Type: typ}
}

// Select builds a call site. The selector path is a qualified name; a
// single segment with a receiver dispatches dynamically.
func (b *Builder) Select(path []string, expr, args ast.Expr) *ast.Select {
	return &ast.Select{
		Range:   b.pos(),
		TypeRef: b.TypeRef(path...),
		Expr:    expr,
		Args:    args,
	}
}

// TypeRef names a (possibly qualified) type without arguments.
func (b *Builder) TypeRef(path ...string) *ast.TypeRef {
	if len(path) == 0 {
		b.fail(errors.New("empty type reference"))
		return &ast.TypeRef{Range: b.pos()}
	}
	t := &ast.TypeRef{Range: b.pos()}
	for _, seg := range path {
		t.TypeNames = append(t.TypeNames, &ast.TypeName{
			Range: t.Range,
			Name:  b.idents.Intern(seg),
		})
	}
	return t
}

// TypeRefArgs names a single-segment type with type arguments.
func (b *Builder) TypeRefArgs(name string, args ...ast.Type) *ast.TypeRef {
	t := b.TypeRef(name)
	t.TypeNames[0].TypeArgs = args
	return t
}

func (b *Builder) Imm() *ast.Imm { return &ast.Imm{Range: b.pos()} }
func (b *Builder) Mut() *ast.Mut { return &ast.Mut{Range: b.pos()} }
func (b *Builder) Iso() *ast.Iso { return &ast.Iso{Range: b.pos()} }

func (b *Builder) Isect(types ...ast.Type) *ast.IsectType {
	return &ast.IsectType{Range: b.pos(), Types: types}
}

func (b *Builder) Union(types ...ast.Type) *ast.UnionType {
	return &ast.UnionType{Range: b.pos(), Types: types}
}

func (b *Builder) TupleType(types ...ast.Type) *ast.TupleType {
	return &ast.TupleType{Range: b.pos(), Types: types}
}

func (b *Builder) FuncType(left, right ast.Type) *ast.FunctionType {
	return &ast.FunctionType{Range: b.pos(), Left: left, Right: right}
}

func (b *Builder) ThrowType(t ast.Type) *ast.ThrowType {
	return &ast.ThrowType{Range: b.pos(), Type: t}
}
