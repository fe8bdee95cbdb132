// Package colors assigns stable visual identities to provenance keys.
// The mapping must be deterministic across processes and installations so
// collaborators viewing the same repository see matching colors.
package colors

// PaletteSize is the number of distinct visual identities. Two identities
// hashing to the same index share a color; that ambiguity is the accepted
// cost of a bounded palette.
const PaletteSize = 8

// ColorIndex maps a provenance identity to a palette slot in
// [0, PaletteSize). Polynomial string hash with left-shift-5 mixing,
// wrapped to 32-bit signed range. No randomness, no insertion-order
// dependence.
func ColorIndex(identity string) int {
	var h int32
	for i := 0; i < len(identity); i++ {
		h = h<<5 - h + int32(identity[i])
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % PaletteSize)
}
