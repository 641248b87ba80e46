package series

import "strings"

// SymbolID is the canon interning table's stable identifier, stored in a
// WORD! cell's symbol payload field (spec.md §3.1's "interned symbol id"
// and §5's binding discussion). Id 0 is never issued.
type SymbolID uint32

// Symbols interns word spellings case-insensitively (spec.md §5: word
// lookup and comparison are case-insensitive; a word's original casing is
// preserved for Form/Mold but plays no role in identity). It is owned by
// the same Heap that owns series storage since every spelling is itself
// a stored string, matching the source lineage's single "canon" table.
type Symbols struct {
	h *Heap

	byFold map[string]SymbolID
	specs  []symbolSpec
}

type symbolSpec struct {
	original Ref // string! series holding the first-seen casing
	fold     string
}

// NewSymbols creates an empty interning table bound to h.
func NewSymbols(h *Heap) *Symbols {
	return &Symbols{h: h, byFold: make(map[string]SymbolID)}
}

// Intern returns the stable id for spelling, creating a new canon entry
// on first sight. Later calls with a different case of the same letters
// return the same id (spec.md §5 case-insensitivity) without replacing
// the stored original casing.
func (s *Symbols) Intern(spelling string) SymbolID {
	fold := strings.ToLower(spelling)
	if id, ok := s.byFold[fold]; ok {
		return id
	}
	r, err := s.h.MakeString(len(spelling))
	if err != nil {
		panic(err) // canon table growth failure is not a recoverable evaluator condition
	}
	if len(spelling) > 0 {
		if err := s.h.AppendBytes(r, []byte(spelling)); err != nil {
			panic(err)
		}
	}
	s.h.Manage(r)
	id := SymbolID(len(s.specs) + 1)
	s.specs = append(s.specs, symbolSpec{original: r, fold: fold})
	s.byFold[fold] = id
	return id
}

// Spelling returns the first-seen casing for id, or "" if id is unknown.
func (s *Symbols) Spelling(id SymbolID) string {
	if id == 0 || int(id) > len(s.specs) {
		return ""
	}
	spec := s.specs[id-1]
	return string(s.h.Bytes(spec.original))
}

// Lookup returns the id for spelling without interning, for call sites
// (path dispatch, object field lookup) that must not grow the canon
// table on a miss.
func (s *Symbols) Lookup(spelling string) (SymbolID, bool) {
	id, ok := s.byFold[strings.ToLower(spelling)]
	return id, ok
}

// Roots exposes every canon string series as a GC root (spec.md §4.3:
// the canon table is always live, never collected).
func (s *Symbols) Roots() []Ref {
	out := make([]Ref, len(s.specs))
	for i, spec := range s.specs {
		out[i] = spec.original
	}
	return out
}
