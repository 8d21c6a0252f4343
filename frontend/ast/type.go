package ast

import (
	"fmt"
	"strings"

	"github.com/loam-lang/loam/frontend/ident"
	"github.com/loam-lang/loam/util"
)

// TypeName is one segment of a qualified type reference, possibly with
// type arguments.
type TypeName struct {
	Range
	Name     ident.Name
	TypeArgs []Type
}

func (*TypeName) Kind() Kind { return KindTypeName }

func (t *TypeName) Hash() uint64 {
	hash := t.Name.Hash()
	for _, arg := range t.TypeArgs {
		hash = hash*31 ^ arg.Hash()
	}
	return hash
}

func (t *TypeName) String() string {
	if len(t.TypeArgs) == 0 {
		return t.Name.String()
	}
	return fmt.Sprintf("%s[%s]", t.Name, util.JoinString(t.TypeArgs, ", "))
}

// TypeRef is a nominal reference: a qualified path of TypeNames.
// Resolved caches the lookup result so repeated resolution of the same
// reference is free and deterministic.
type TypeRef struct {
	Range
	TypeNames []*TypeName

	Resolved *LookupRef
}

func (*TypeRef) Kind() Kind { return KindTypeRef }
func (*TypeRef) isType()    {}

func (t *TypeRef) Hash() uint64 {
	var hash uint64 = 14695981039346656037
	for _, n := range t.TypeNames {
		hash = hash*1099511628211 ^ n.Hash()
	}
	return hash
}

func (t *TypeRef) String() string {
	parts := make([]string, len(t.TypeNames))
	for i, n := range t.TypeNames {
		parts[i] = n.String()
	}
	return strings.Join(parts, ".")
}

// IsectType is an intersection; a value must satisfy every member.
// Invariant: at least two members (singletons collapse upstream or in
// the DNF helper).
type IsectType struct {
	Range
	Types []Type
}

func (*IsectType) Kind() Kind { return KindIsectType }
func (*IsectType) isType()    {}

func (t *IsectType) Hash() uint64 {
	var hash uint64 = 9973
	for _, m := range t.Types {
		hash = hash*41 ^ m.Hash()
	}
	return hash
}

func (t *IsectType) String() string {
	return "(" + util.JoinString(t.Types, " & ") + ")"
}

// UnionType is a union; a value satisfies at least one member.
// Invariant: at least two members.
type UnionType struct {
	Range
	Types []Type
}

func (*UnionType) Kind() Kind { return KindUnionType }
func (*UnionType) isType()    {}

func (t *UnionType) Hash() uint64 {
	var hash uint64 = 433
	for _, m := range t.Types {
		hash = hash*37 ^ m.Hash()
	}
	return hash
}

func (t *UnionType) String() string {
	return "(" + util.JoinString(t.Types, " | ") + ")"
}

// TupleType is an ordered heterogeneous product.
type TupleType struct {
	Range
	Types []Type
}

func (*TupleType) Kind() Kind { return KindTupleType }
func (*TupleType) isType()    {}

func (t *TupleType) Hash() uint64 {
	var hash uint64 = 104729
	for _, m := range t.Types {
		hash = hash*31 ^ m.Hash()
	}
	return hash
}

func (t *TupleType) String() string {
	return "(" + util.JoinString(t.Types, ", ") + ")"
}

// FunctionType is left -> right. Left is nil for a nullary function, a
// single type, or a TupleType.
type FunctionType struct {
	Range
	Left  Type
	Right Type
}

func (*FunctionType) Kind() Kind { return KindFunctionType }
func (*FunctionType) isType()    {}

func (t *FunctionType) Hash() uint64 {
	var hash uint64 = 2166136261
	if t.Left != nil {
		hash = hash*16777619 ^ t.Left.Hash()
	}
	if t.Right != nil {
		hash = hash*16777619 ^ t.Right.Hash()
	}
	return hash
}

func (t *FunctionType) String() string {
	left := "()"
	if t.Left != nil {
		left = t.Left.String()
	}
	right := "()"
	if t.Right != nil {
		right = t.Right.String()
	}
	return fmt.Sprintf("%s -> %s", left, right)
}

// ThrowType marks a type flowing into the exception channel rather than
// the normal return channel.
type ThrowType struct {
	Range
	Type Type
}

func (*ThrowType) Kind() Kind { return KindThrowType }
func (*ThrowType) isType()    {}

func (t *ThrowType) Hash() uint64 {
	return 15487469 ^ t.Type.Hash()*53
}

func (t *ThrowType) String() string {
	return "throw " + t.Type.String()
}

// Capability markers. They only ever appear inside intersections with
// nominal content.
type Imm struct{ Range }

func (*Imm) Kind() Kind     { return KindImm }
func (*Imm) isType()        {}
func (*Imm) Hash() uint64   { return 16777619 }
func (*Imm) String() string { return "imm" }

type Mut struct{ Range }

func (*Mut) Kind() Kind     { return KindMut }
func (*Mut) isType()        {}
func (*Mut) Hash() uint64   { return 1299709 }
func (*Mut) String() string { return "mut" }

type Iso struct{ Range }

func (*Iso) Kind() Kind     { return KindIso }
func (*Iso) isType()        {}
func (*Iso) Hash() uint64   { return 32452843 }
func (*Iso) String() string { return "iso" }

// InferType is an inference variable with a stable identity. Variables
// are materialized during AST construction, one per unannotated local;
// the inference pass only narrows them.
type InferType struct {
	Range
	ID uint64
}

func (*InferType) Kind() Kind { return KindInferType }
func (*InferType) isType()    {}

func (t *InferType) Hash() uint64 {
	return 31 * 7919 * (t.ID + 1)
}

func (t *InferType) String() string {
	return fmt.Sprintf("?%d", t.ID)
}

// Sub maps a declared type parameter (a weak arena handle, never an
// owning edge) onto the chosen argument.
type Sub struct {
	Param DeclID
	Arg   Type
}

// LookupRef is a resolved reference: the declaration it names plus the
// substitution binding its type parameters. Self records which disjunct
// of the receiver the member was found through, so dynamic dispatch can
// recover a refined receiver.
type LookupRef struct {
	Range
	Def  DeclID
	Self Type
	Subs []Sub
}

func (*LookupRef) Kind() Kind { return KindLookupRef }
func (*LookupRef) isType()    {}

func (t *LookupRef) Hash() uint64 {
	hash := uint64(t.Def+1) * 10007
	if t.Self != nil {
		hash = hash*31 ^ t.Self.Hash()
	}
	for _, s := range t.Subs {
		hash = hash*31 ^ uint64(s.Param+1)
		if s.Arg != nil {
			hash = hash*31 ^ s.Arg.Hash()
		}
	}
	return hash
}

func (t *LookupRef) String() string {
	return fmt.Sprintf("lookup(%d)", t.Def)
}
