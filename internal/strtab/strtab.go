// Package strtab implements the data-segment string intern pool: well-known
// runtime strings are laid out first at fixed offsets (spec §3.3), and user
// string literals encountered during lowering are interned into a growing
// tail, deduplicated within a single compile.
package strtab

// WellKnown lists the fixed-offset strings every PEPL module's data segment
// begins with, in order. Offsets are assigned by NewTable and never change
// for a given WellKnown index, which lets runtime helpers reference them by
// compile-time constant rather than a lookup.
var WellKnown = []string{
	"true",
	"false",
	"nil",
	"[value]",
	"gas exhausted",
	"division by zero",
	"NaN result",
	"assertion failed",
	"invariant violated",
	"unwrap on Err",
}

// Well-known string indices, for readable call sites in the helper emitter.
const (
	WKTrue = iota
	WKFalse
	WKNil
	WKValuePlaceholder
	WKGasExhausted
	WKDivisionByZero
	WKNaNResult
	WKAssertionFailed
	WKInvariantViolated
	WKUnwrapOnErr
)

// Ref is an interned string's position in the data segment.
type Ref struct {
	Offset uint32
	Length uint32
}

// Table is the intern pool for a single compile. It is not safe for
// concurrent use — compilation is single-threaded (spec §5).
type Table struct {
	bytes      []byte
	byContent  map[string]Ref
	wellKnown  []Ref
}

// NewTable lays out the well-known strings starting at offset 0 and returns
// a Table ready to intern user literals after them.
func NewTable() *Table {
	t := &Table{byContent: make(map[string]Ref, 64)}
	for _, s := range WellKnown {
		ref := t.internUnchecked(s)
		t.wellKnown = append(t.wellKnown, ref)
	}
	return t
}

// WellKnownRef returns the fixed Ref for one of the WK* constants.
func (t *Table) WellKnownRef(idx int) Ref { return t.wellKnown[idx] }

// Intern returns the (offset, length) of s, appending it to the data
// segment tail on first sight and reusing the existing Ref for repeats —
// interning is idempotent for identical bytes within one compile (spec
// §4.1.2).
func (t *Table) Intern(s string) Ref {
	if ref, ok := t.byContent[s]; ok {
		return ref
	}
	return t.internUnchecked(s)
}

func (t *Table) internUnchecked(s string) Ref {
	ref := Ref{Offset: uint32(len(t.bytes)), Length: uint32(len(s))}
	t.bytes = append(t.bytes, s...)
	t.byContent[s] = ref
	return ref
}

// Bytes returns the assembled data-segment payload: well-known strings
// followed by interned user literals, in interning order.
func (t *Table) Bytes() []byte { return t.bytes }

// Size is the total length of the data segment built so far; used to place
// the heap pointer's initial value right after it (spec §3.3).
func (t *Table) Size() uint32 { return uint32(len(t.bytes)) }
