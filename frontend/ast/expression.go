package ast

import (
	"github.com/loam-lang/loam/frontend/ident"
)

// Local is a named binding in a lexical scope. A Let is single-assignment;
// a Var may be reassigned. Type is either the declared ascription or an
// InferType materialized upstream; the pass narrows it and writes the
// solution back.
type Local struct {
	Range
	Name         ident.Name
	Type         Type
	Assigned     bool
	Reassignable bool // true for Var, false for Let
}

func (l *Local) Kind() Kind {
	if l.Reassignable {
		return KindVar
	}
	return KindLet
}
func (*Local) isExpr() {}

// Ref is a use of a local visible at the current position.
type Ref struct {
	Range
	Name ident.Name
}

func (*Ref) Kind() Kind { return KindRef }
func (*Ref) isExpr()    {}

// Free is a capture of a local from an enclosing scope.
type Free struct {
	Range
	Name ident.Name
}

func (*Free) Kind() Kind { return KindFree }
func (*Free) isExpr()    {}

type Assign struct {
	Range
	Left  Expr
	Right Expr
}

func (*Assign) Kind() Kind { return KindAssign }
func (*Assign) isExpr()    {}

// Tuple holds refs to the locals carrying each component, per
// three-address form.
type Tuple struct {
	Range
	Seq []Expr
}

func (*Tuple) Kind() Kind { return KindTuple }
func (*Tuple) isExpr()    {}

// Select is a call site: typeref names the selector, expr and args name
// the locals supplying the arguments. The pass decorates Dispatch, Target
// and Call once resolution succeeds.
type Select struct {
	Range
	TypeRef *TypeRef
	Expr    Expr
	Args    Expr

	Dispatch DispatchKind
	Target   *LookupRef
	Call     *FunctionType
}

func (*Select) Kind() Kind { return KindSelect }
func (*Select) isExpr()    {}

// Oftype ascribes a type to a local.
type Oftype struct {
	Range
	Expr Expr
	Type Type
}

func (*Oftype) Kind() Kind { return KindOftype }
func (*Oftype) isExpr()    {}

type Throw struct {
	Range
	Expr Expr
}

func (*Throw) Kind() Kind { return KindThrow }
func (*Throw) isExpr()    {}

type Param struct {
	Range
	Name ident.Name
	Type Type
	Init Expr
}

func (*Param) Kind() Kind { return KindParam }
func (*Param) isExpr()    {}

// Field is a member field; its initialiser, when present, is a nullary
// Lambda evaluated at construction.
type Field struct {
	Range
	Name ident.Name
	Type Type
	Init Expr
}

func (*Field) Kind() Kind { return KindField }
func (*Field) isExpr()    {}

// Lambda is a function literal. Its body is a sequence of three-address
// expressions; a trailing Ref is the return value.
type Lambda struct {
	Range
	TypeParams []DeclID
	Params     []*Param
	Body       []Expr
	Result     Type
	Symbols    *SymbolTable
}

func (*Lambda) Kind() Kind { return KindLambda }
func (*Lambda) isExpr()    {}

// FuncType returns the lambda's signature as a FunctionType, packing
// multiple parameters into a TupleType.
func (l *Lambda) FuncType() *FunctionType {
	f := &FunctionType{Range: l.Range, Right: l.Result}
	switch len(l.Params) {
	case 0:
	case 1:
		f.Left = l.Params[0].Type
	default:
		tup := &TupleType{Range: l.Range}
		for _, p := range l.Params {
			tup.Types = append(tup.Types, p.Type)
		}
		f.Left = tup
	}
	return f
}

type Int struct {
	Range
	Text string
}

func (*Int) Kind() Kind { return KindInt }
func (*Int) isExpr()    {}

type Float struct {
	Range
	Text string
}

func (*Float) Kind() Kind { return KindFloat }
func (*Float) isExpr()    {}

type Bool struct {
	Range
	Value bool
}

func (*Bool) Kind() Kind { return KindBool }
func (*Bool) isExpr()    {}

type EscapedString struct {
	Range
	Text string
}

func (*EscapedString) Kind() Kind { return KindEscapedString }
func (*EscapedString) isExpr()    {}

// New, ObjectLiteral, Match and When are accepted by the pass but their
// constraint generation is not fixed yet; their children are still
// visited.
type New struct {
	Range
	Inits []Expr
}

func (*New) Kind() Kind { return KindNew }
func (*New) isExpr()    {}

type ObjectLiteral struct {
	Range
	Members []Node
}

func (*ObjectLiteral) Kind() Kind { return KindObjectLiteral }
func (*ObjectLiteral) isExpr()    {}

type Match struct {
	Range
	Subject Expr
	Arms    []Expr
}

func (*Match) Kind() Kind { return KindMatch }
func (*Match) isExpr()    {}

type When struct {
	Range
	Guard Expr
	Body  Expr
}

func (*When) Kind() Kind { return KindWhen }
func (*When) isExpr()    {}
