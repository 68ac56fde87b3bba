package csgv

import (
	"fmt"

	"github.com/volcanite-go/csgv/internal/splitvec"
)

// VerifyCompression checks split vector brick-start monotonicity, brick
// header well-formedness and palette counts, and then a full round trip
// against original (the same shape the volume was last compressed from).
// It returns the first failure found, in that order, or nil if every
// check passes; a VerificationFailed result clears the volume. PALETTE_DELTA
// references are not walked separately; only the round trip exercises
// them. Volume does not retain the source volume after Compress, so a
// caller that wants the round-trip check supplies original explicitly.
func (v *Volume) VerifyCompression(original []uint32, dim [3]int) error {
	if v.words == nil {
		return newError(InputShape, "volume has no compressed data")
	}
	if dim != v.dim {
		return newError(InputShape, "dim does not match the compressed volume's shape")
	}
	if len(original) != dim[0]*dim[1]*dim[2] {
		return newError(InputShape, "original does not match dim")
	}

	if err := v.verifyStructure(); err != nil {
		v.Clear()
		return err
	}

	decoded := make([]uint32, len(original))
	if err := v.DecompressLoD(0, decoded); err != nil {
		return err
	}
	for i, want := range original {
		if decoded[i] != want {
			z := i / (dim[0] * dim[1])
			y := (i / dim[0]) % dim[1]
			x := i % dim[0]
			msg := fmt.Sprintf("voxel (%d,%d,%d): want %d, got %d", x, y, z, want, decoded[i])
			v.Clear()
			return newError(VerificationFailed, msg)
		}
	}
	return nil
}

// verifyStructure checks everything about the compressed state that
// does not require a source volume to compare against: split-vector
// brick-start monotonicity and every brick's header well-formedness and
// palette bounds.
func (v *Volume) verifyStructure() error {
	if err := verifyStarts(v.words); err != nil {
		return wrapError(VerificationFailed, "op-stream split vector", err)
	}
	if err := verifyStarts(v.detailWords); err != nil {
		return wrapError(VerificationFailed, "detail split vector", err)
	}
	finest := v.finestLevel()
	for i, m := range v.meta {
		if err := verifyBrickHeader(i, m, finest); err != nil {
			return err
		}
	}
	return nil
}

// verifyStarts checks that a split vector manager's per-brick starts
// are monotonically non-decreasing within each vector, dropping only at
// the brick right after a vector's opening brick (whose entry is the
// rollover sentinel), as derived from VectorOf.
func verifyStarts(m *splitvec.Manager) error {
	if m == nil {
		return nil
	}
	starts := m.Starts()
	for i := 1; i < len(starts); i++ {
		// under the sentinel convention a drop is legitimate only right
		// after the brick that opened a vector
		afterOpening := i >= 2 && m.VectorOf(i-1) != m.VectorOf(i-2)
		if !afterOpening && starts[i] < starts[i-1] {
			return newError(VerificationFailed, fmt.Sprintf("brick %d starts offset %d regresses from brick %d's %d without a vector boundary", i, starts[i], i-1, starts[i-1]))
		}
	}
	return nil
}

// verifyBrickHeader checks one brick's header is well-formed: its
// LevelEnds count matches the brick's LoD count (or one less, once
// SeparateDetail has dropped the finest entry), LevelEnds is
// non-decreasing, and PaletteCount equals the number of stored trailing
// palette entries (the root label is not counted).
func verifyBrickHeader(brick int, m brickMeta, finestLoDCount int) error {
	n := len(m.header.LevelEnds)
	if n != finestLoDCount && n != finestLoDCount-1 {
		return newError(VerificationFailed, fmt.Sprintf("brick %d header has %d LoD entries, want %d or %d", brick, n, finestLoDCount, finestLoDCount-1))
	}
	var prev uint32
	for i, end := range m.header.LevelEnds {
		if i > 0 && end < prev {
			return newError(VerificationFailed, fmt.Sprintf("brick %d LoD end offsets are not monotone at entry %d", brick, i))
		}
		prev = end
	}
	if int(m.header.PaletteCount) != len(m.palette) {
		return newError(VerificationFailed, fmt.Sprintf("brick %d palette count %d does not match %d stored trailing entries", brick, m.header.PaletteCount, len(m.palette)))
	}
	return nil
}
