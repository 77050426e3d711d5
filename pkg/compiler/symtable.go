package compiler

import (
	"fmt"
	"sort"
	"strings"

	"gojack/pkg/vmcode"
)

// Kind determines which index space a declared name occupies.
type Kind int

const (
	KindStatic Kind = iota
	KindField
	KindArgument
	KindLocal
	numKinds
)

var kindNames = [...]string{
	KindStatic:   "static",
	KindField:    "field",
	KindArgument: "argument",
	KindLocal:    "local",
}

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Segment returns the VM memory segment variables of this kind live in.
func (k Kind) Segment() vmcode.Segment {
	switch k {
	case KindStatic:
		return vmcode.Static
	case KindField:
		return vmcode.This
	case KindArgument:
		return vmcode.Argument
	default:
		return vmcode.Local
	}
}

// Entry is one declared name. Index is the offset within the kind's segment.
type Entry struct {
	Name  string
	Type  string
	Kind  Kind
	Index int
}

// SymbolTable maps names declared in one scope to their kind and index.
// A class keeps one table for the whole class and one that is reset for
// every subroutine.
type SymbolTable struct {
	entries map[string]Entry
	order   []string
	counts  [numKinds]int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{entries: make(map[string]Entry)}
}

// Add declares name; its index is the number of names of the same kind
// declared before it.
func (s *SymbolTable) Add(name, typ string, kind Kind) (Entry, error) {
	if _, exists := s.entries[name]; exists {
		return Entry{}, fmt.Errorf("%w: %q", ErrSymbolAlreadyExists, name)
	}
	e := Entry{Name: name, Type: typ, Kind: kind, Index: s.counts[kind]}
	s.counts[kind]++
	s.entries[name] = e
	s.order = append(s.order, name)
	return e, nil
}

func (s *SymbolTable) Get(name string) (Entry, error) {
	e, ok := s.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrSymbolNotFound, name)
	}
	return e, nil
}

func (s *SymbolTable) Lookup(name string) (Entry, bool) {
	e, ok := s.entries[name]
	return e, ok
}

// Count returns how many names of the given kind have been declared.
func (s *SymbolTable) Count(kind Kind) int {
	return s.counts[kind]
}

func (s *SymbolTable) Len() int {
	return len(s.entries)
}

// Reset discards all entries and counters.
func (s *SymbolTable) Reset() {
	s.entries = make(map[string]Entry)
	s.order = s.order[:0]
	s.counts = [numKinds]int{}
}

// Entries returns the live entries in declaration order.
func (s *SymbolTable) Entries() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entries[name])
	}
	return out
}

// String dumps the table grouped by kind, then by index.
func (s *SymbolTable) String() string {
	list := s.Entries()
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Kind != list[j].Kind {
			return list[i].Kind < list[j].Kind
		}
		return list[i].Index < list[j].Index
	})

	var sb strings.Builder
	sb.WriteString("Symbol Table:\n")
	for _, e := range list {
		fmt.Fprintf(&sb, "  %-16s %-10s %-8s %d\n", e.Name, e.Type, e.Kind, e.Index)
	}
	return sb.String()
}
