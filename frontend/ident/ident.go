// Package ident interns identifier spellings into stable Name tokens.
// Two Names from the same Table compare equal iff they were interned
// from equal strings, which makes them cheap map keys for symbol tables
// and member lookup.
package ident

import "hash/fnv"

// Name is an interned identifier. The zero Name is "no name".
// Names are comparable: the Table guarantees one canonical spelling per
// distinct string, so equality is pointer equality.
type Name struct {
	text *string
}

// None is the absent identifier.
var None = Name{}

func (n Name) IsNone() bool {
	return n.text == nil
}

func (n Name) String() string {
	if n.text == nil {
		return ""
	}
	return *n.text
}

func (n Name) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(n.String()))
	return h.Sum64()
}

// Table owns the intern pool. It is append-only: interning never
// invalidates previously returned Names. Use one Table per compiler
// instance; Names from different Tables never compare equal.
type Table struct {
	byText map[string]Name

	// pre-interned names the inference pass relies on
	Imm     Name
	Bool    Name
	Integer Name
	Float   Name
	Apply   Name
}

func NewTable() *Table {
	t := &Table{
		byText: make(map[string]Name),
	}
	t.Imm = t.Intern("imm")
	t.Bool = t.Intern("Bool")
	t.Integer = t.Intern("Integer")
	t.Float = t.Intern("Float")
	t.Apply = t.Intern("apply")
	return t
}

func (t *Table) Intern(text string) Name {
	if n, ok := t.byText[text]; ok {
		return n
	}
	canonical := text
	n := Name{text: &canonical}
	t.byText[text] = n
	return n
}
