package strtab

import "testing"

func TestNewTableLaysOutWellKnownFirst(t *testing.T) {
	tbl := NewTable()
	for i, s := range WellKnown {
		ref := tbl.WellKnownRef(i)
		got := string(tbl.Bytes()[ref.Offset : ref.Offset+ref.Length])
		if got != s {
			t.Fatalf("well-known %d: got %q, want %q", i, got, s)
		}
	}
}

func TestInternDedupesIdenticalContent(t *testing.T) {
	tbl := NewTable()
	before := tbl.Size()
	a := tbl.Intern("hello")
	afterFirst := tbl.Size()
	if afterFirst != before+uint32(len("hello")) {
		t.Fatalf("Size after first intern = %d, want %d", afterFirst, before+uint32(len("hello")))
	}
	b := tbl.Intern("hello")
	if tbl.Size() != afterFirst {
		t.Fatalf("second Intern of identical content grew the table")
	}
	if a != b {
		t.Fatalf("Intern(%q) returned different refs: %v vs %v", "hello", a, b)
	}
}

func TestInternDistinctContent(t *testing.T) {
	tbl := NewTable()
	a := tbl.Intern("foo")
	b := tbl.Intern("bar")
	if a.Offset == b.Offset {
		t.Fatal("distinct strings interned at the same offset")
	}
	gotA := string(tbl.Bytes()[a.Offset : a.Offset+a.Length])
	gotB := string(tbl.Bytes()[b.Offset : b.Offset+b.Length])
	if gotA != "foo" || gotB != "bar" {
		t.Fatalf("got %q, %q", gotA, gotB)
	}
}
