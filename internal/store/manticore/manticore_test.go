package manticore

import "testing"

func TestMVATuple(t *testing.T) {
	if got := MVATuple(nil); got != "()" {
		t.Fatalf("got %q", got)
	}
	if got := MVATuple([]uint64{42}); got != "(42)" {
		t.Fatalf("got %q", got)
	}
	if got := MVATuple([]uint64{1, 2, 3}); got != "(1,2,3)" {
		t.Fatalf("got %q", got)
	}
}
