package utils

import "testing"

func TestStableHashDeterministic(t *testing.T) {
	a := StableHash("Ord.cmp", "OrdPoint.cmp")
	b := StableHash("Ord.cmp", "OrdPoint.cmp")
	if a != b {
		t.Errorf("same input hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestStableHashFraming(t *testing.T) {
	// Concatenation-equal tuples must still hash apart.
	pairs := [][2][]string{
		{{"ab", "c"}, {"a", "bc"}},
		{{"ab"}, {"a", "b"}},
		{{""}, {}},
	}
	for _, p := range pairs {
		if StableHash(p[0]...) == StableHash(p[1]...) {
			t.Errorf("StableHash(%q) == StableHash(%q)", p[0], p[1])
		}
	}
}
