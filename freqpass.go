package csgv

import (
	"github.com/volcanite-go/csgv/internal/brickcodec"
	"github.com/volcanite-go/csgv/internal/multigrid"
	"github.com/volcanite-go/csgv/internal/ops"
	"github.com/volcanite-go/csgv/internal/rans"
)

// CompressForFrequencyTable walks a subsample of volume's bricks
// (every subsampleStride'th brick, at least one) purely to train a
// shared frequency table, discarding the encoded op-stream itself. The
// result feeds CompressWithSharedTable so every brick's entropy coding
// draws on that table instead of one trained from the compressed
// volume's own bricks — useful when many volumes share a label
// distribution. Compress always trains a single combined table over the
// whole op-stream; detail gets its own table only once SeparateDetail
// is called on an already-compressed Volume, so this prepass only ever
// produces a Base table.
func (v *Volume) CompressForFrequencyTable(volume []uint32, dim [3]int, subsampleStride int) (*SharedFrequencyTable, error) {
	if subsampleStride < 1 {
		subsampleStride = 1
	}
	if len(volume) != dim[0]*dim[1]*dim[2] {
		return nil, newError(InputShape, "volume length does not match dim")
	}

	bpa := v.bricksPerAxis(dim)
	total := bpa[0] * bpa[1] * bpa[2]

	var baseRaw [rans.NumSymbols]uint32
	for brick := 0; brick < total; brick += subsampleStride {
		origin := brickOriginFor(bpa, v.opts.BrickSize, brick)
		needStop := v.opts.OpMask.Has(ops.MaskStopBit)
		grid := multigrid.Build(volume, dim, origin, v.opts.BrickSize, needStop, false)
		symbols, _, _ := brickcodec.EncodeBrickSymbols(grid, v.opts.OpMask)
		accumulate(&baseRaw, symbols)
	}

	return &SharedFrequencyTable{Base: rans.NormalizeFreqs(baseRaw)}, nil
}

func accumulate(totals *[rans.NumSymbols]uint32, symbols []uint8) {
	for _, s := range symbols {
		totals[s]++
	}
}

func brickOriginFor(bpa [3]int, brickSize, brick int) [3]int {
	bx := brick % bpa[0]
	by := (brick / bpa[0]) % bpa[1]
	bz := brick / (bpa[0] * bpa[1])
	return [3]int{bx * brickSize, by * brickSize, bz * brickSize}
}
