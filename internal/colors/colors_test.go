package colors

import "testing"

func TestColorIndexRange(t *testing.T) {
	inputs := []string{"", "a", "abc123", "toolu_01ABCDEF", "session:2024-01-01T00:00:00", "p1", "p2"}
	for _, s := range inputs {
		idx := ColorIndex(s)
		if idx < 0 || idx >= PaletteSize {
			t.Errorf("ColorIndex(%q) = %d, out of [0,%d)", s, idx, PaletteSize)
		}
	}
}

func TestColorIndexDeterministic(t *testing.T) {
	for _, s := range []string{"abc123", "p1", "toolu_01XYZ"} {
		first := ColorIndex(s)
		for i := 0; i < 100; i++ {
			if got := ColorIndex(s); got != first {
				t.Fatalf("ColorIndex(%q) changed between calls: %d then %d", s, first, got)
			}
		}
	}
}

func TestColorIndexKnownValues(t *testing.T) {
	// Frozen values: the hash is part of the cross-installation contract,
	// so a change here breaks color agreement between collaborators.
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 97 % PaletteSize},
		{"ab", (97*31 + 98) % PaletteSize},
	}
	for _, tt := range tests {
		if got := ColorIndex(tt.in); got != tt.want {
			t.Errorf("ColorIndex(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestColorIndexNoOverflowPanic(t *testing.T) {
	// Long identities wrap around int32; the result must stay in range.
	long := ""
	for i := 0; i < 64; i++ {
		long += "zzzzzzzz"
	}
	idx := ColorIndex(long)
	if idx < 0 || idx >= PaletteSize {
		t.Errorf("ColorIndex(long) = %d, out of range", idx)
	}
}
