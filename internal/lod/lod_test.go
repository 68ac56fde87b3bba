package lod

import (
	"testing"

	"github.com/volcanite-go/csgv/internal/brickcodec"
	"github.com/volcanite-go/csgv/internal/multigrid"
	"github.com/volcanite-go/csgv/internal/ops"
)

func TestSeparateDetail_PreservesDecodedCells(t *testing.T) {
	brickSize := 8
	dim := [3]int{brickSize, brickSize, brickSize}
	vol := make([]uint32, brickSize*brickSize*brickSize)
	for i := range vol {
		vol[i] = uint32(i % 7)
	}
	grid := multigrid.Build(vol, dim, [3]int{0, 0, 0}, brickSize, true, false)
	mask := ops.MaskAll

	res := brickcodec.DirectEncode(grid, mask)
	h := FromLevelEnds(res.LevelEnds, len(res.Palette))

	baseHeader, baseWords, detailWords := SeparateDetail(h, res.Words)
	if len(baseHeader.LevelEnds) != len(h.LevelEnds)-1 {
		t.Fatalf("base header should drop the finest level entry: got %d want %d", len(baseHeader.LevelEnds), len(h.LevelEnds)-1)
	}

	// base decode (up to the second-finest level) must be unaffected by
	// separation: it never reads the detail buffer.
	finest := 3
	decodedBase := brickcodec.DirectDecode(grid.Root().Label, res.Palette, false, brickSize, finest-1, mask, baseWords)
	decodedBaseFull := brickcodec.DirectDecode(grid.Root().Label, res.Palette, false, brickSize, finest-1, mask, res.Words)
	for i := range decodedBase {
		if decodedBase[i] != decodedBaseFull[i] {
			t.Fatalf("cell %d: separated base decode %d != combined decode %d", i, decodedBase[i], decodedBaseFull[i])
		}
	}
	if detailWords == nil {
		t.Fatal("expected a non-empty detail buffer for a non-uniform brick")
	}
}
