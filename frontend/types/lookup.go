package types

import (
	"sort"

	goset "github.com/hashicorp/go-set/v3"
	xset "github.com/xtgo/set"
	"github.com/loam-lang/loam/frontend/ast"
	"github.com/loam-lang/loam/frontend/ident"
	"github.com/loam-lang/loam/internal/log"
)

var lookupLogger = log.DefaultLogger.With("section", "lookup")

// Lookup resolves type references to declared entities and selector
// names to member candidates. It reads the solver's bound store so a
// receiver that is an inference variable can be searched through its
// bounds; a variable with no bounds yields no candidates, which is how a
// fully-inferred receiver falls back to static dispatch.
type Lookup struct {
	decls  *ast.Decls
	bounds *boundStore
}

func NewLookup(decls *ast.Decls) *Lookup {
	return &Lookup{decls: decls}
}

// Typeref walks the qualified path of t from scope, binding each
// segment's type arguments to the declared parameters. It returns nil if
// any segment is undefined or an arity disagrees; the caller decides
// whether that is an error. Results are cached on the node.
func (lk *Lookup) Typeref(scope *ast.SymbolTable, t *ast.TypeRef) *ast.LookupRef {
	if t.Resolved != nil {
		return t.Resolved
	}
	if scope == nil || len(t.TypeNames) == 0 {
		return nil
	}

	first := t.TypeNames[0]
	id, ok := scope.LookupType(first.Name)
	if !ok {
		return nil
	}
	subs, ok := lk.bindArgs(id, first)
	if !ok {
		return nil
	}

	for _, seg := range t.TypeNames[1:] {
		tab := lk.symbolsOf(id)
		if tab == nil {
			return nil
		}
		next, ok := tab.Get(seg.Name)
		if !ok {
			return nil
		}
		segSubs, ok := lk.bindArgs(next, seg)
		if !ok {
			return nil
		}
		subs = append(subs, segSubs...)
		id = next
	}

	ref := &ast.LookupRef{Range: ast.RangeOf(t), Def: id, Subs: subs}
	t.Resolved = ref
	lookupLogger.Debug("typeref resolved", "ref", t.String(), "def", int32(id))
	return ref
}

// bindArgs zips a segment's type arguments with the declared parameters
// of the entity it names.
func (lk *Lookup) bindArgs(id ast.DeclID, seg *ast.TypeName) ([]ast.Sub, bool) {
	params := lk.typeParamsOf(id)
	if len(seg.TypeArgs) != len(params) {
		return nil, false
	}
	var subs []ast.Sub
	for i, param := range params {
		subs = append(subs, ast.Sub{Param: param, Arg: seg.TypeArgs[i]})
	}
	return subs, true
}

func (lk *Lookup) typeParamsOf(id ast.DeclID) []ast.DeclID {
	switch node := lk.decls.Node(id).(type) {
	case *ast.Class:
		return node.TypeParams
	case *ast.Interface:
		return node.TypeParams
	case *ast.TypeAlias:
		return node.TypeParams
	case *ast.Function:
		return node.TypeParams
	default:
		return nil
	}
}

func (lk *Lookup) symbolsOf(id ast.DeclID) *ast.SymbolTable {
	switch node := lk.decls.Node(id).(type) {
	case *ast.Class:
		return node.Symbols
	case *ast.Interface:
		return node.Symbols
	case *ast.Module:
		return node.Symbols
	default:
		return nil
	}
}

// Member enumerates every entity named name reachable through any
// disjunct of the receiver. Each candidate records the disjunct it came
// from as Self, so dynamic dispatch can refine the receiver. An empty
// result is not an error here.
func (lk *Lookup) Member(receiver ast.Type, name ident.Name) []*ast.LookupRef {
	var out []*ast.LookupRef
	seenVars := goset.New[uint64](4)
	lk.memberIn(receiver, nil, name, seenVars, &out)

	if len(out) > 1 {
		sort.Sort(candidateOrder(out))
		out = out[:xset.Uniq(candidateOrder(out))]
	}
	lookupLogger.Debug("member lookup", "name", name.String(), "candidates", len(out))
	return out
}

// memberIn searches t clause by clause. self is the receiver disjunct
// the search started from; nil means "adopt each clause as its own
// self", which happens at the top level and when looking through an
// inference variable's bounds.
func (lk *Lookup) memberIn(t ast.Type, self ast.Type, name ident.Name, seenVars *goset.Set[uint64], out *[]*ast.LookupRef) {
	for _, clause := range Disjuncts(t) {
		clauseSelf := self
		if clauseSelf == nil {
			clauseSelf = clause
		}
		for _, atom := range Conjuncts(clause) {
			switch atom := atom.(type) {
			case *ast.InferType:
				if lk.bounds == nil || !seenVars.Insert(atom.ID) {
					continue
				}
				bounds := lk.bounds.get(atom.ID)
				through := bounds.Lower
				if len(through) == 0 {
					through = bounds.Upper
				}
				for _, bound := range through {
					lk.memberIn(bound, nil, name, seenVars, out)
				}
			case *ast.TypeRef:
				if atom.Resolved != nil {
					lk.searchEntity(atom.Resolved, clauseSelf, name, goset.New[ast.DeclID](4), seenVars, out)
				}
			case *ast.LookupRef:
				lk.searchEntity(atom, clauseSelf, name, goset.New[ast.DeclID](4), seenVars, out)
			}
		}
	}
}

// searchEntity looks name up in the entity ref points at, walking
// declared supertypes and alias bodies with ref's substitution applied.
func (lk *Lookup) searchEntity(ref *ast.LookupRef, self ast.Type, name ident.Name, seenDecls *goset.Set[ast.DeclID], seenVars *goset.Set[uint64], out *[]*ast.LookupRef) {
	if !seenDecls.Insert(ref.Def) {
		return
	}
	switch node := lk.decls.Node(ref.Def).(type) {
	case *ast.Class:
		lk.searchMembers(node.Symbols, node.Inherits, ref, self, name, seenDecls, seenVars, out)
	case *ast.Interface:
		lk.searchMembers(node.Symbols, node.Inherits, ref, self, name, seenDecls, seenVars, out)
	case *ast.TypeAlias:
		body := substitute(node.Body, subsMap(ref.Subs))
		for _, clause := range Disjuncts(body) {
			for _, atom := range Conjuncts(clause) {
				switch atom := atom.(type) {
				case *ast.TypeRef:
					if atom.Resolved != nil {
						lk.searchEntity(atom.Resolved, self, name, seenDecls, seenVars, out)
					}
				case *ast.LookupRef:
					lk.searchEntity(atom, self, name, seenDecls, seenVars, out)
				}
			}
		}
	}
}

func (lk *Lookup) searchMembers(tab *ast.SymbolTable, inherits []ast.Type, ref *ast.LookupRef, self ast.Type, name ident.Name, seenDecls *goset.Set[ast.DeclID], seenVars *goset.Set[uint64], out *[]*ast.LookupRef) {
	if tab != nil {
		if id, ok := tab.Get(name); ok {
			*out = append(*out, &ast.LookupRef{
				Range: ast.RangeOf(self),
				Def:   id,
				Self:  self,
				Subs:  ref.Subs,
			})
		}
	}
	for _, inh := range inherits {
		inherited := substitute(inh, subsMap(ref.Subs))
		for _, clause := range Disjuncts(inherited) {
			for _, atom := range Conjuncts(clause) {
				switch atom := atom.(type) {
				case *ast.TypeRef:
					if atom.Resolved != nil {
						lk.searchEntity(atom.Resolved, self, name, seenDecls, seenVars, out)
					}
				case *ast.LookupRef:
					lk.searchEntity(atom, self, name, seenDecls, seenVars, out)
				}
			}
		}
	}
}

// candidateOrder sorts member candidates by declaration then by the
// disjunct they came from, so dedup and dispatch order are stable.
type candidateOrder []*ast.LookupRef

func (s candidateOrder) Len() int { return len(s) }
func (s candidateOrder) Less(i, j int) bool {
	if s[i].Def != s[j].Def {
		return s[i].Def < s[j].Def
	}
	var hi, hj uint64
	if s[i].Self != nil {
		hi = s[i].Self.Hash()
	}
	if s[j].Self != nil {
		hj = s[j].Self.Hash()
	}
	return hi < hj
}
func (s candidateOrder) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
