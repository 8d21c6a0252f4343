package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loam-lang/loam/frontend/ast"
	"github.com/loam-lang/loam/frontend/build"
	"github.com/loam-lang/loam/frontend/lmerr"
)

// fixture is a module with the ambient literal types and one function
// to hold the scenario body.
type fixture struct {
	b   *build.Builder
	mod *ast.Module
	fn  *ast.Function
	lam *ast.Lambda
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := build.New()
	mod := b.Module("m")
	b.Class(mod, "Integer")
	b.Class(mod, "Float")
	b.Class(mod, "Bool")
	fn := b.Function(mod, "main", nil, nil)
	require.NoError(t, b.Err())
	return &fixture{b: b, mod: mod, fn: fn, lam: fn.Body}
}

func (f *fixture) run(t *testing.T) (*lmerr.Errors, bool) {
	t.Helper()
	require.NoError(t, f.b.Err())
	errs := &lmerr.Errors{}
	ok := Run(f.mod, f.b.Idents(), f.b.Decls(), errs)
	return errs, ok
}

func codes(errs *lmerr.Errors) []lmerr.ErrCode {
	var out []lmerr.ErrCode
	for _, e := range errs.Errors() {
		out = append(out, e.Code())
	}
	return out
}

// requireImmOf asserts a type is `N & imm` for the named ambient type.
func requireImmOf(t *testing.T, typ ast.Type, name string) {
	t.Helper()
	i, ok := typ.(*ast.IsectType)
	require.Truef(t, ok, "want an intersection, got %v", typ)
	require.Len(t, i.Types, 2)
	var sawImm, sawName bool
	for _, m := range i.Types {
		switch m := m.(type) {
		case *ast.Imm:
			sawImm = true
		case *ast.TypeRef:
			sawName = m.TypeNames[0].Name.String() == name
		}
	}
	assert.True(t, sawImm, "missing imm in %v", typ)
	assert.Truef(t, sawName, "missing %s in %v", name, typ)
}

func TestLiteralFlowsThroughLet(t *testing.T) {
	// let x; x = 3; let y = x
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Int("3"))
	y := f.b.Let(f.lam, "y", nil)
	f.b.Assign(f.lam, y, f.b.Ref(f.lam, "x"))
	f.b.Return(f.lam, "y")

	errs, ok := f.run(t)
	require.Empty(t, errs.Errors())
	require.True(t, ok)

	requireImmOf(t, x.Type, "Integer")
	requireImmOf(t, y.Type, "Integer")
	assert.True(t, ast.Equal(x.Type, y.Type))
}

func TestUseBeforeAssign(t *testing.T) {
	// let x; let y = x; x = 3
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", nil)
	y := f.b.Let(f.lam, "y", nil)
	f.b.Assign(f.lam, y, f.b.Ref(f.lam, "x"))
	f.b.Assign(f.lam, x, f.b.Int("3"))
	f.b.Return(f.lam, "y")

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.UseBeforeAssign)
}

func TestSelfReferenceOnDefiningLine(t *testing.T) {
	// let y = y
	f := newFixture(t)
	y := f.b.Let(f.lam, "y", nil)
	f.b.Assign(f.lam, y, f.b.Ref(f.lam, "y"))

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.UseBeforeAssign)
}

func TestAscriptionMismatch(t *testing.T) {
	// let x: Bool & imm = true; let y: Integer & imm = x
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", f.b.Isect(f.b.TypeRef("Bool"), f.b.Imm()))
	f.b.Assign(f.lam, x, f.b.Bool(true))
	y := f.b.Let(f.lam, "y", f.b.Isect(f.b.TypeRef("Integer"), f.b.Imm()))
	f.b.Assign(f.lam, y, f.b.Ref(f.lam, "x"))
	f.b.Return(f.lam, "y")

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.SubtypeMismatch)
}

func TestIntLiteralIntoFloatHole(t *testing.T) {
	// let x: Float & imm = 1
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", f.b.Isect(f.b.TypeRef("Float"), f.b.Imm()))
	f.b.Assign(f.lam, x, f.b.Int("1"))
	f.b.Return(f.lam, "x")

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.SubtypeMismatch)
}

func TestTupleTyping(t *testing.T) {
	// let a = 1; let b = 2.0; let x = (a, b)
	f := newFixture(t)
	a := f.b.Let(f.lam, "a", nil)
	f.b.Assign(f.lam, a, f.b.Int("1"))
	bLoc := f.b.Let(f.lam, "b", nil)
	f.b.Assign(f.lam, bLoc, f.b.Float("2.0"))
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Tuple(f.b.Ref(f.lam, "a"), f.b.Ref(f.lam, "b")))
	f.b.Return(f.lam, "x")

	errs, ok := f.run(t)
	require.Empty(t, errs.Errors())
	require.True(t, ok)

	tup, isTuple := x.Type.(*ast.TupleType)
	require.True(t, isTuple)
	require.Len(t, tup.Types, 2)
	requireImmOf(t, tup.Types[0], "Integer")
	requireImmOf(t, tup.Types[1], "Float")
}

func TestLetReassignment(t *testing.T) {
	// let x; x = 3; x = 4
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Int("3"))
	f.b.Assign(f.lam, f.b.Ref(f.lam, "x"), f.b.Int("4"))
	f.b.Return(f.lam, "x")

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.Reassignment)
}

func TestVarReassignment(t *testing.T) {
	// var x; x = 3; x = 4
	f := newFixture(t)
	x := f.b.Var(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Int("3"))
	f.b.Assign(f.lam, f.b.Ref(f.lam, "x"), f.b.Int("4"))
	f.b.Return(f.lam, "x")

	errs, ok := f.run(t)
	assert.Empty(t, errs.Errors())
	assert.True(t, ok)
}

func TestThrowFlowsToResult(t *testing.T) {
	// let e = 2; let x = 1; throw e; x
	f := newFixture(t)
	e := f.b.Let(f.lam, "e", nil)
	f.b.Assign(f.lam, e, f.b.Int("2"))
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Int("1"))
	f.b.Stmt(f.lam, f.b.Throw(f.b.Ref(f.lam, "e")))
	f.b.Return(f.lam, "x")

	errs, ok := f.run(t)
	require.Empty(t, errs.Errors())
	require.True(t, ok)

	result, isUnion := f.lam.Result.(*ast.UnionType)
	require.Truef(t, isUnion, "want throw | value, got %v", f.lam.Result)
	var sawThrow, sawValue bool
	for _, m := range result.Types {
		if th, isThrow := m.(*ast.ThrowType); isThrow {
			sawThrow = true
			requireImmOf(t, th.Type, "Integer")
		} else {
			sawValue = true
		}
	}
	assert.True(t, sawThrow)
	assert.True(t, sawValue)
}

func TestOftypeConstrains(t *testing.T) {
	// let x; x = true; x: Bool & imm
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Bool(true))
	f.b.Stmt(f.lam, f.b.Oftype(f.b.Ref(f.lam, "x"), f.b.Isect(f.b.TypeRef("Bool"), f.b.Imm())))
	f.b.Return(f.lam, "x")

	errs, ok := f.run(t)
	assert.Empty(t, errs.Errors())
	assert.True(t, ok)
}

func TestCaptureUnassigned(t *testing.T) {
	// let x; let f = { free x }
	f := newFixture(t)
	f.b.Let(f.lam, "x", nil)
	inner := f.b.Lambda(f.lam.Symbols, nil, nil)
	f.b.Stmt(inner, f.b.Free(inner, "x"))
	fLoc := f.b.Let(f.lam, "f", nil)
	f.b.Assign(f.lam, fLoc, inner)

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.CaptureUnassigned)
}

func TestDynamicDispatchOnUnionReceiver(t *testing.T) {
	// fn speak exists on both Cat and Dog; c: (mut & Cat) | (mut & Dog)
	f := newFixture(t)
	cat := f.b.Class(f.mod, "Cat")
	dog := f.b.Class(f.mod, "Dog")
	boolImm := func() ast.Type { return f.b.Isect(f.b.TypeRef("Bool"), f.b.Imm()) }
	f.b.Function(cat, "speak", []*ast.Param{
		f.b.Param("self", f.b.Isect(f.b.Mut(), f.b.TypeRef("Cat"))),
	}, boolImm())
	f.b.Function(dog, "speak", []*ast.Param{
		f.b.Param("self", f.b.Isect(f.b.Mut(), f.b.TypeRef("Dog"))),
	}, boolImm())

	recvType := f.b.Union(
		f.b.Isect(f.b.Mut(), f.b.TypeRef("Cat")),
		f.b.Isect(f.b.Mut(), f.b.TypeRef("Dog")),
	)
	walk := f.b.Function(f.mod, "walk", []*ast.Param{f.b.Param("c", recvType)}, nil)
	lam := walk.Body
	r := f.b.Let(lam, "r", nil)
	sel := f.b.Select([]string{"speak"}, f.b.Ref(lam, "c"), nil)
	f.b.Assign(lam, r, sel)
	f.b.Return(lam, "r")

	errs, ok := f.run(t)
	require.Empty(t, errs.Errors())
	require.True(t, ok)

	assert.Equal(t, ast.DispatchDynamic, sel.Dispatch)
	require.NotNil(t, sel.Call)
	assert.Nil(t, sel.Target, "two candidates, no single target")
	requireImmOf(t, r.Type, "Bool")

	// the receiver in the decorated call was narrowed past the raw union
	_, stillUnion := sel.Call.Left.(*ast.UnionType)
	assert.False(t, stillUnion)
}

func TestFullyInferredReceiverFallsToStatic(t *testing.T) {
	// fn shout(s: Integer & imm): Bool & imm; let c = 3; let r = shout(c)
	f := newFixture(t)
	f.b.Function(f.mod, "shout", []*ast.Param{
		f.b.Param("s", f.b.Isect(f.b.TypeRef("Integer"), f.b.Imm())),
	}, f.b.Isect(f.b.TypeRef("Bool"), f.b.Imm()))

	c := f.b.Let(f.lam, "c", nil)
	f.b.Assign(f.lam, c, f.b.Int("3"))
	r := f.b.Let(f.lam, "r", nil)
	sel := f.b.Select([]string{"shout"}, f.b.Ref(f.lam, "c"), nil)
	f.b.Assign(f.lam, r, sel)
	f.b.Return(f.lam, "r")

	errs, ok := f.run(t)
	require.Empty(t, errs.Errors())
	require.True(t, ok)

	assert.Equal(t, ast.DispatchStatic, sel.Dispatch)
	require.NotNil(t, sel.Target)
	requireImmOf(t, r.Type, "Bool")
}

func TestDispatchNotFound(t *testing.T) {
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Int("3"))
	r := f.b.Let(f.lam, "r", nil)
	f.b.Assign(f.lam, r, f.b.Select([]string{"vanish"}, f.b.Ref(f.lam, "x"), nil))

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.DispatchNotFound)
}

func TestSelectorNamingNonFunction(t *testing.T) {
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Int("3"))
	r := f.b.Let(f.lam, "r", nil)
	// Integer is a class, not a function
	f.b.Assign(f.lam, r, f.b.Select([]string{"Integer"}, f.b.Ref(f.lam, "x"), nil))

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.ShapeMismatch)
}

func TestMissingAmbientType(t *testing.T) {
	b := build.New()
	mod := b.Module("m") // no Integer declared
	fn := b.Function(mod, "main", nil, nil)
	x := b.Let(fn.Body, "x", nil)
	b.Assign(fn.Body, x, b.Int("3"))
	require.NoError(t, b.Err())

	errs := &lmerr.Errors{}
	ok := Run(mod, b.Idents(), b.Decls(), errs)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.MissingType)
}

func TestLambdaReturnMismatch(t *testing.T) {
	// fn main(): Integer & imm { let x = true; x }
	// the Bool literal pins a lower bound, which the result cannot hold
	f := newFixture(t)
	f.fn.Result = f.b.Isect(f.b.TypeRef("Integer"), f.b.Imm())
	f.lam.Result = f.fn.Result
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Bool(true))
	f.b.Return(f.lam, "x")

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.ReturnMismatch)
}

func TestWellformedFlagsUnconstrained(t *testing.T) {
	// main's body is empty, so its result never gains a bound
	f := newFixture(t)

	errs, ok := f.run(t)
	require.Empty(t, errs.Errors())
	require.True(t, ok)

	wfErrs := &lmerr.Errors{}
	assert.False(t, Wellformed(f.mod, f.b.Decls(), wfErrs))
	assert.Contains(t, codes(wfErrs), lmerr.UnresolvedType)
}

func TestWellformedCleanTree(t *testing.T) {
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Int("3"))
	f.b.Return(f.lam, "x")

	errs, ok := f.run(t)
	require.Empty(t, errs.Errors())
	require.True(t, ok)

	wfErrs := &lmerr.Errors{}
	assert.True(t, Wellformed(f.mod, f.b.Decls(), wfErrs))
	assert.Empty(t, wfErrs.Errors())
}

func TestDeterministicDiagnostics(t *testing.T) {
	buildOnce := func(t *testing.T) []lmerr.ErrCode {
		f := newFixture(t)
		x := f.b.Let(f.lam, "x", nil)
		y := f.b.Let(f.lam, "y", nil)
		f.b.Assign(f.lam, y, f.b.Ref(f.lam, "x")) // use before assign
		f.b.Assign(f.lam, x, f.b.Int("3"))
		f.b.Assign(f.lam, f.b.Ref(f.lam, "x"), f.b.Int("4")) // reassignment
		f.b.Return(f.lam, "y")
		errs, _ := f.run(t)
		return codes(errs)
	}

	first := buildOnce(t)
	second := buildOnce(t)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestRerunOnSameTreeEmitsSameDiagnostics(t *testing.T) {
	// the pass writes solved types back but must not consume the tree's
	// assignment flags: a second run reports the same sequence
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", nil)
	y := f.b.Let(f.lam, "y", nil)
	f.b.Assign(f.lam, y, f.b.Ref(f.lam, "x")) // use before assign
	f.b.Assign(f.lam, x, f.b.Int("3"))
	f.b.Assign(f.lam, f.b.Ref(f.lam, "x"), f.b.Int("4")) // reassignment
	f.b.Return(f.lam, "y")

	first, _ := f.run(t)
	second, _ := f.run(t)
	require.NotEmpty(t, first.Errors())
	assert.Equal(t, codes(first), codes(second))
}

func TestRerunOnCleanTreeStaysClean(t *testing.T) {
	f := newFixture(t)
	x := f.b.Let(f.lam, "x", nil)
	f.b.Assign(f.lam, x, f.b.Int("3"))
	f.b.Return(f.lam, "x")

	_, ok := f.run(t)
	require.True(t, ok)
	second, ok := f.run(t)
	assert.True(t, ok)
	assert.Empty(t, second.Errors())
	requireImmOf(t, x.Type, "Integer")
}

func TestFieldInitMismatch(t *testing.T) {
	f := newFixture(t)
	cell := f.b.Class(f.mod, "Cell")
	field := f.b.Field(cell, "flag", f.b.Isect(f.b.TypeRef("Bool"), f.b.Imm()))
	init := f.b.Lambda(cell.Symbols, nil, f.b.Isect(f.b.TypeRef("Integer"), f.b.Imm()))
	field.Init = init

	errs, ok := f.run(t)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.FieldInitMismatch)
}

func TestTypeArgumentBoundChecked(t *testing.T) {
	// declaration order matters: Box's bound must be resolved before the
	// annotation mentioning Box[Bool] is visited
	b := build.New()
	mod := b.Module("m")
	b.Class(mod, "Bool")
	b.Class(mod, "Animal")
	box := b.Class(mod, "Box")
	b.TypeParamFor(box, "T", b.TypeRef("Animal"))
	fn := b.Function(mod, "main", nil, nil)

	// Box[Bool] violates T <: Animal
	x := b.Let(fn.Body, "x", b.TypeRefArgs("Box", b.TypeRef("Bool")))
	b.Assign(fn.Body, x, b.Bool(true))
	require.NoError(t, b.Err())

	errs := &lmerr.Errors{}
	ok := Run(mod, b.Idents(), b.Decls(), errs)
	assert.False(t, ok)
	assert.Contains(t, codes(errs), lmerr.SubtypeMismatch)
}
