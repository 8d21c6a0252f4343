package ast

import (
	"github.com/loam-lang/loam/frontend/ident"
)

// DeclID is a stable handle into the declaration arena. Everything that
// references a declaration (LookupRef, Sub, symbol tables) holds a DeclID
// rather than the node itself: the handle is a lookup key, never an
// owning edge, which keeps the type graph acyclic even when a method
// signature names its own class.
type DeclID int32

const NoDecl DeclID = -1

// Decls is the declaration arena. Append-only.
type Decls struct {
	nodes []Node
}

func NewDecls() *Decls {
	return &Decls{}
}

func (d *Decls) Add(n Node) DeclID {
	d.nodes = append(d.nodes, n)
	return DeclID(len(d.nodes) - 1)
}

func (d *Decls) Node(id DeclID) Node {
	if id < 0 || int(id) >= len(d.nodes) {
		return nil
	}
	return d.nodes[id]
}

// SymbolTable is a lexically-chained name table. Locals and declarations
// live in separate namespaces, matching how upstream name resolution
// binds them.
type SymbolTable struct {
	Parent *SymbolTable
	locals map[ident.Name]*Local
	defs   map[ident.Name]DeclID
}

func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	return &SymbolTable{
		Parent: parent,
		locals: make(map[ident.Name]*Local),
		defs:   make(map[ident.Name]DeclID),
	}
}

func (s *SymbolTable) DefineLocal(l *Local) {
	s.locals[l.Name] = l
}

func (s *SymbolTable) Define(name ident.Name, id DeclID) {
	s.defs[name] = id
}

// GetScope returns the local whose definition is visible at the current
// position, or nil.
func (s *SymbolTable) GetScope(name ident.Name) *Local {
	for tab := s; tab != nil; tab = tab.Parent {
		if l, ok := tab.locals[name]; ok {
			return l
		}
	}
	return nil
}

// LookupType walks the scope chain for a declaration.
func (s *SymbolTable) LookupType(name ident.Name) (DeclID, bool) {
	for tab := s; tab != nil; tab = tab.Parent {
		if id, ok := tab.defs[name]; ok {
			return id, true
		}
	}
	return NoDecl, false
}

// Get looks a declaration up in this table only, without walking parents.
// Member lookup uses it to stay inside one entity's scope.
func (s *SymbolTable) Get(name ident.Name) (DeclID, bool) {
	id, ok := s.defs[name]
	if !ok {
		return NoDecl, false
	}
	return id, true
}

// Module is the top-level container handed to the pass.
type Module struct {
	Range
	Name    ident.Name
	Symbols *SymbolTable
	Members []Node
}

func (*Module) Kind() Kind { return KindModule }

// Class is a nominal entity with capability-annotated members.
type Class struct {
	Range
	Name       ident.Name
	TypeParams []DeclID
	Inherits   []Type
	Symbols    *SymbolTable
	Members    []Node
}

func (*Class) Kind() Kind { return KindClass }

// Interface is a structural entity; classes satisfy it by member shape
// or by declared inheritance.
type Interface struct {
	Range
	Name       ident.Name
	TypeParams []DeclID
	Inherits   []Type
	Symbols    *SymbolTable
	Members    []Node
}

func (*Interface) Kind() Kind { return KindInterface }

type TypeAlias struct {
	Range
	Name       ident.Name
	TypeParams []DeclID
	Body       Type
}

func (*TypeAlias) Kind() Kind { return KindTypeAlias }

// Function is a declared function or method. Methods carry their
// receiver as an explicit first parameter, per three-address form.
type Function struct {
	Range
	Name       ident.Name
	TypeParams []DeclID
	Params     []*Param
	Result     Type
	Body       *Lambda
}

func (*Function) Kind() Kind { return KindFunction }

// FuncType returns the declared signature as a FunctionType.
func (f *Function) FuncType() *FunctionType {
	t := &FunctionType{Range: f.Range, Right: f.Result}
	switch len(f.Params) {
	case 0:
	case 1:
		t.Left = f.Params[0].Type
	default:
		tup := &TupleType{Range: f.Range}
		for _, p := range f.Params {
			tup.Types = append(tup.Types, p.Type)
		}
		t.Left = tup
	}
	return t
}

// TypeParam is a declared type parameter with optional bounds. Type
// arguments must stay below Upper; the visitor emits that constraint for
// every substitution a LookupRef carries.
type TypeParam struct {
	Range
	Name  ident.Name
	Upper Type
	Lower Type
}

func (*TypeParam) Kind() Kind { return KindTypeParam }
