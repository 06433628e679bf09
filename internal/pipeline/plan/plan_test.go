package plan

import (
	"reflect"
	"testing"
)

func TestPlanHashOrderIndependent(t *testing.T) {
	h1, _ := PlanHash([]string{"b", "a", "c"})
	h2, _ := PlanHash([]string{"c", "b", "a"})
	if h1 != h2 {
		t.Fatalf("permutations hashed differently: %s vs %s", h1, h2)
	}
	if len(h1) != 40 {
		t.Fatalf("expected sha1 hex, got %q", h1)
	}
}

func TestPlanHashReturnsSorted(t *testing.T) {
	_, sorted := PlanHash([]string{"b", "a", "c"})
	if !reflect.DeepEqual(sorted, []string{"a", "b", "c"}) {
		t.Fatalf("got %v", sorted)
	}
}

func TestPlanHashDoesNotMutateInput(t *testing.T) {
	in := []string{"b", "a"}
	PlanHash(in)
	if !reflect.DeepEqual(in, []string{"b", "a"}) {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestPlanHashDiffersOnContent(t *testing.T) {
	h1, _ := PlanHash([]string{"a"})
	h2, _ := PlanHash([]string{"a", "b"})
	if h1 == h2 {
		t.Fatal("different item sets produced the same hash")
	}
}
