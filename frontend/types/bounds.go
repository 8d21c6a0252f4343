package types

import (
	"slices"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/loam-lang/loam/frontend/ast"
)

// Bounds is the narrowest known interval for one inference variable:
// Lower joined by union, Upper met by intersection. Intervals only ever
// extend monotonically; the interval is consistent iff every lower bound
// is a subtype of every upper bound.
type Bounds struct {
	Lower []ast.Type
	Upper []ast.Type
}

func (b Bounds) IsEmpty() bool {
	return len(b.Lower) == 0 && len(b.Upper) == 0
}

func (b Bounds) String() string {
	sb := strings.Builder{}
	for i, l := range b.Lower {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(l.String())
	}
	if len(b.Lower) > 0 {
		sb.WriteString(" <: ")
	}
	sb.WriteString("?")
	if len(b.Upper) > 0 {
		sb.WriteString(" <: ")
	}
	for i, u := range b.Upper {
		if i > 0 {
			sb.WriteString(" & ")
		}
		sb.WriteString(u.String())
	}
	return sb.String()
}

// boundStore maps inference-variable identities to their intervals. The
// backing map is persistent so a snapshot is a pointer copy; the solver
// snapshots before every constraint attempt and restores on failure,
// which is what makes subtype checks transactional.
type boundStore struct {
	m *immutable.Map[uint64, Bounds]
}

type boundSnapshot struct {
	m *immutable.Map[uint64, Bounds]
}

func newBoundStore() *boundStore {
	return &boundStore{m: immutable.NewMap[uint64, Bounds](nil)}
}

func (b *boundStore) get(id uint64) Bounds {
	bounds, _ := b.m.Get(id)
	return bounds
}

func (b *boundStore) addLower(v *ast.InferType, t ast.Type) {
	bounds := b.get(v.ID)
	bounds.Lower = append(slices.Clip(bounds.Lower), t)
	b.m = b.m.Set(v.ID, bounds)
}

func (b *boundStore) addUpper(v *ast.InferType, t ast.Type) {
	bounds := b.get(v.ID)
	bounds.Upper = append(slices.Clip(bounds.Upper), t)
	b.m = b.m.Set(v.ID, bounds)
}

func (b *boundStore) snapshot() boundSnapshot {
	return boundSnapshot{m: b.m}
}

func (b *boundStore) restore(s boundSnapshot) {
	b.m = s.m
}
