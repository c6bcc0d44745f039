package cave

import (
	"fmt"
	"maps"

	"github.com/cory-johannsen/caveshuffle/internal/area"
	"github.com/cory-johannsen/caveshuffle/internal/random"
)

// Kind selects a shuffle strategy.
type Kind int

const (
	Basic Kind = iota
	Wide
	WaterfallRiver
	Cycle
	TightCycle
	River
)

var kindNames = [...]string{
	Basic:          "basic",
	Wide:           "wide",
	WaterfallRiver: "waterfall-river",
	Cycle:          "cycle",
	TightCycle:     "tight-cycle",
	River:          "river",
}

// String returns the configuration name of k.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a configuration name.
//
// Postcondition: Returns the Kind or an error wrapping ErrUnknownKind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return Basic, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Table maps area ids to strategies. Areas without an entry use Basic.
// A Table is read-only once built.
type Table struct {
	kinds map[int]Kind
}

// NewTable builds a table from explicit entries.
func NewTable(entries map[int]Kind) *Table {
	return &Table{kinds: maps.Clone(entries)}
}

// DefaultTable returns the built-in dispatch.
func DefaultTable() *Table {
	return NewTable(map[int]Kind{
		0x27: Cycle,
		0x4b: TightCycle,
		0x54: Cycle,
		0x56: Wide,
		0x57: WaterfallRiver,
		0x69: River,
		0x84: Wide,
		0xab: River,
	})
}

// Lookup returns the strategy for area id. A nil table always answers Basic.
func (t *Table) Lookup(id int) Kind {
	if t == nil {
		return Basic
	}
	if k, ok := t.kinds[id]; ok {
		return k
	}
	return Basic
}

// WithOverrides returns a copy of t with the named strategies added or
// replaced.
//
// Postcondition: t is unchanged. Returns an error wrapping ErrUnknownKind if
// any name is unrecognized.
func (t *Table) WithOverrides(overrides map[int]string) (*Table, error) {
	var base map[int]Kind
	if t != nil {
		base = t.kinds
	}
	out := NewTable(base)
	if out.kinds == nil {
		out.kinds = make(map[int]Kind, len(overrides))
	}
	for id, name := range overrides {
		k, err := ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("strategy for area %02x: %w", id, err)
		}
		out.kinds[id] = k
	}
	return out, nil
}

// ShuffleCave regenerates the layout of a using the strategy t assigns to
// its id.
//
// Precondition: a and src are non-nil.
// Postcondition: On nil error a holds a new layout; otherwise a is unchanged.
func ShuffleCave(a *area.Area, src random.Source, t *Table, opts ...Option) error {
	s, err := New(a, src, t.Lookup(a.ID), opts...)
	if err != nil {
		return err
	}
	return s.Shuffle()
}
