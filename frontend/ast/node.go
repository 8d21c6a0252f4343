// Package ast is the node model consumed and decorated by the inference
// pass. Expressions arrive in three-address form: every expression result
// is bound to a named local, so per-node typing rules only ever consult
// locals through the enclosing symbol table.
package ast

// Kind discriminates AST nodes. The visitor relies on safe downcasting
// by kind, the way the rest of the frontend does.
type Kind int

const (
	KindInvalid Kind = iota

	// expressions
	KindLet
	KindVar
	KindRef
	KindFree
	KindAssign
	KindTuple
	KindSelect
	KindOftype
	KindThrow
	KindLambda
	KindParam
	KindField
	KindInt
	KindFloat
	KindBool
	KindEscapedString
	KindNew
	KindObjectLiteral
	KindMatch
	KindWhen

	// types
	KindTypeName
	KindTypeRef
	KindIsectType
	KindUnionType
	KindTupleType
	KindFunctionType
	KindThrowType
	KindImm
	KindMut
	KindIso
	KindInferType
	KindLookupRef

	// declarations
	KindModule
	KindClass
	KindInterface
	KindTypeAlias
	KindFunction
	KindTypeParam
)

var kindNames = map[Kind]string{
	KindInvalid:       "invalid",
	KindLet:           "let",
	KindVar:           "var",
	KindRef:           "ref",
	KindFree:          "free",
	KindAssign:        "assign",
	KindTuple:         "tuple",
	KindSelect:        "select",
	KindOftype:        "oftype",
	KindThrow:         "throw",
	KindLambda:        "lambda",
	KindParam:         "param",
	KindField:         "field",
	KindInt:           "int",
	KindFloat:         "float",
	KindBool:          "bool",
	KindEscapedString: "escaped string",
	KindNew:           "new",
	KindObjectLiteral: "object literal",
	KindMatch:         "match",
	KindWhen:          "when",
	KindTypeName:      "type name",
	KindTypeRef:       "type reference",
	KindIsectType:     "intersection type",
	KindUnionType:     "union type",
	KindTupleType:     "tuple type",
	KindFunctionType:  "function type",
	KindThrowType:     "throw type",
	KindImm:           "imm",
	KindMut:           "mut",
	KindIso:           "iso",
	KindInferType:     "inferred type",
	KindLookupRef:     "lookup reference",
	KindModule:        "module",
	KindClass:         "class",
	KindInterface:     "interface",
	KindTypeAlias:     "type alias",
	KindFunction:      "function",
	KindTypeParam:     "type parameter",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node is any AST node the pass can encounter.
type Node interface {
	Positioner
	Kind() Kind
}

// Expr is an expression node.
type Expr interface {
	Node
	isExpr()
}

// Type is a type node. Types are hashable so the solver can cache and
// compare them, and printable so diagnostics can cite them.
type Type interface {
	Node
	Hash() uint64
	String() string
	isType()
}

// Equal compares two types by hash, the cheapest comparison that sees
// through structurally identical trees built at different positions.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Hash() == b.Hash()
}

// DispatchKind is the call-site resolution recorded on a Select once the
// pass has decided how the call dispatches.
type DispatchKind int

const (
	DispatchUnknown DispatchKind = iota
	DispatchStatic
	DispatchDynamic
)

func (d DispatchKind) String() string {
	switch d {
	case DispatchStatic:
		return "static"
	case DispatchDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}
