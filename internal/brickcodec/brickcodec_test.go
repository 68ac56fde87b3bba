package brickcodec

import (
	"math/rand"
	"testing"

	"github.com/volcanite-go/csgv/internal/multigrid"
	"github.com/volcanite-go/csgv/internal/ops"
)

func finestLevel(brickSize int) int {
	n := 0
	for w := brickSize; w > 1; w /= 2 {
		n++
	}
	return n
}

func randomVolume(dim [3]int, labels int, seed int64) []uint32 {
	rng := rand.New(rand.NewSource(seed))
	v := make([]uint32, dim[0]*dim[1]*dim[2])
	for i := range v {
		v[i] = uint32(rng.Intn(labels))
	}
	return v
}

func TestDirectEncodeDecode_RandomBrick_RoundTrip(t *testing.T) {
	brickSize := 8
	dim := [3]int{brickSize, brickSize, brickSize}
	vol := randomVolume(dim, 5, 1)
	grid := multigrid.Build(vol, dim, [3]int{0, 0, 0}, brickSize, true, false)

	mask := ops.MaskAll
	res := DirectEncode(grid, mask)

	finest := finestLevel(brickSize)
	decoded := DirectDecode(grid.Root().Label, res.Palette, false, brickSize, finest, mask, res.Words)

	for i, want := range vol {
		if decoded[i] != want {
			t.Fatalf("voxel %d: got %d want %d", i, decoded[i], want)
		}
	}
}

func TestDirectEncodeDecode_UniformBrick_EmitsNoNibbles(t *testing.T) {
	brickSize := 8
	dim := [3]int{brickSize, brickSize, brickSize}
	vol := make([]uint32, brickSize*brickSize*brickSize)
	for i := range vol {
		vol[i] = 42
	}
	grid := multigrid.Build(vol, dim, [3]int{0, 0, 0}, brickSize, true, false)
	mask := ops.MaskAll
	res := DirectEncode(grid, mask)
	if len(res.Words) != 0 {
		t.Fatalf("uniform brick should emit zero nibbles, got %d words", len(res.Words))
	}

	finest := finestLevel(brickSize)
	decoded := DirectDecode(grid.Root().Label, res.Palette, true, brickSize, finest, mask, res.Words)
	for i, v := range decoded {
		if v != 42 {
			t.Fatalf("voxel %d: got %d want 42", i, v)
		}
	}
}

func TestDirectEncodeDecode_PartialLoD_ReturnsCoarseGrid(t *testing.T) {
	brickSize := 8
	dim := [3]int{brickSize, brickSize, brickSize}
	vol := randomVolume(dim, 6, 2)
	grid := multigrid.Build(vol, dim, [3]int{0, 0, 0}, brickSize, true, false)
	mask := ops.MaskAll
	res := DirectEncode(grid, mask)

	// decode at level 1: a 2x2x2 coarse grid, each cell a representative
	// label for its underlying 4x4x4 voxel block.
	decoded := DirectDecode(grid.Root().Label, res.Palette, false, brickSize, 1, mask, res.Words)
	if len(decoded) != 8 {
		t.Fatalf("expected 8 coarse cells, got %d", len(decoded))
	}
}

func TestRansEncodeDecode_RandomBrick_RoundTrip(t *testing.T) {
	brickSize := 8
	dim := [3]int{brickSize, brickSize, brickSize}
	vol := randomVolume(dim, 4, 3)
	grid := multigrid.Build(vol, dim, [3]int{0, 0, 0}, brickSize, true, false)

	mask := ops.MaskAll
	res := RansEncode(grid, mask)

	finest := finestLevel(brickSize)
	decoded := RansDecode(grid.Root().Label, res.Palette, false, brickSize, finest, mask, res.Encoded, &res.Stats, res.NibbleCount)

	for i, want := range vol {
		if decoded[i] != want {
			t.Fatalf("voxel %d: got %d want %d", i, decoded[i], want)
		}
	}
}

func TestEncodeDecode_RestrictedOpMask(t *testing.T) {
	brickSize := 4
	dim := [3]int{brickSize, brickSize, brickSize}
	vol := randomVolume(dim, 8, 9)
	grid := multigrid.Build(vol, dim, [3]int{0, 0, 0}, brickSize, true, false)

	// disable parent/neighbor prediction; palette ops alone must still
	// round trip correctly.
	mask := ops.MaskPaletteLast | ops.MaskPaletteDelta
	res := DirectEncode(grid, mask)
	finest := finestLevel(brickSize)
	decoded := DirectDecode(grid.Root().Label, res.Palette, false, brickSize, finest, mask, res.Words)
	for i, want := range vol {
		if decoded[i] != want {
			t.Fatalf("voxel %d: got %d want %d", i, decoded[i], want)
		}
	}
}
