package brickcodec

import (
	"github.com/volcanite-go/csgv/internal/multigrid"
	"github.com/volcanite-go/csgv/internal/ops"
	"github.com/volcanite-go/csgv/internal/palette"
	"github.com/volcanite-go/csgv/internal/rans"
)

// DirectResult is the output of encoding one brick with the packed
// (non entropy-coded) nibble encoder. Under a mask without PALETTE_DELTA
// and the stop bit, every cell's nibble sits at a fixed, computable
// offset.
type DirectResult struct {
	Words     []uint32
	LevelEnds []int // cumulative nibble count through each non-root level
	Palette   []uint32
}

// DirectEncode encodes grid into a packed nibble stream.
func DirectEncode(grid *multigrid.Grid, mask ops.Mask) DirectResult {
	pm := palette.NewManager(grid.Root().Label)
	w := NewPackedWriter()
	ends := EncodeBrick(grid, mask, pm, w)
	return DirectResult{Words: w.Words(), LevelEnds: ends, Palette: pm.Entries()[1:]}
}

// DirectDecode reconstructs a brick's cell values at maxLevel from a
// packed nibble stream.
func DirectDecode(rootLabel uint32, paletteTrailing []uint32, rootStopped bool, brickSize, maxLevel int, mask ops.Mask, words []uint32) []uint32 {
	pm := palette.NewDecodeManager(rootLabel, paletteTrailing)
	r := NewPackedReader(words)
	return DecodeBrick(rootLabel, rootStopped, brickSize, maxLevel, mask, pm, r)
}

// EncodeBrickSymbols walks grid and returns the raw op-nibble symbol
// sequence (one byte per cell, value 0-15) without entropy coding it,
// for callers that need to train or apply their own frequency table —
// in particular splitting the sequence at a LoD boundary before
// entropy-coding base and detail separately.
func EncodeBrickSymbols(grid *multigrid.Grid, mask ops.Mask) (symbols []uint8, levelEnds []int, paletteEntries []uint32) {
	pm := palette.NewManager(grid.Root().Label)
	collector := &symbolCollector{}
	ends := EncodeBrick(grid, mask, pm, collector)
	return collector.symbols, ends, pm.Entries()[1:]
}

// EncodeSymbolsWithStats entropy-codes a raw symbol sequence, training a
// fresh table unless stats is non-nil.
func EncodeSymbolsWithStats(symbols []uint8, stats *rans.SymbolStats) (encoded []byte, usedStats rans.SymbolStats) {
	if stats != nil {
		return rans.EncodeSymbols(symbols, stats), *stats
	}
	st := rans.NormalizeFreqs(rans.CountFreqs(symbols))
	return rans.EncodeSymbols(symbols, &st), st
}

// RansResult is the output of encoding one brick through the rANS
// entropy coder: the symbol walk is collected first, then the whole
// symbol sequence is entropy-coded as a single unit.
type RansResult struct {
	Encoded     []byte
	Stats       rans.SymbolStats
	NibbleCount int
	LevelEnds   []int
	Palette     []uint32
}

// RansEncode encodes grid's op-nibble walk through the rANS coder.
func RansEncode(grid *multigrid.Grid, mask ops.Mask) RansResult {
	pm := palette.NewManager(grid.Root().Label)
	collector := &symbolCollector{}
	ends := EncodeBrick(grid, mask, pm, collector)
	raw := rans.CountFreqs(collector.symbols)
	stats := rans.NormalizeFreqs(raw)
	encoded := rans.EncodeSymbols(collector.symbols, &stats)
	return RansResult{Encoded: encoded, Stats: stats, NibbleCount: len(collector.symbols), LevelEnds: ends, Palette: pm.Entries()[1:]}
}

// RansDecode reconstructs a brick's cell values at maxLevel from an
// rANS-coded op-nibble stream under a previously recovered frequency
// table.
func RansDecode(rootLabel uint32, paletteTrailing []uint32, rootStopped bool, brickSize, maxLevel int, mask ops.Mask, encoded []byte, stats *rans.SymbolStats, nibbleCount int) []uint32 {
	symbols := rans.DecodeSymbols(encoded, stats, nibbleCount)
	return DecodeBrickFromSymbols(rootLabel, paletteTrailing, rootStopped, brickSize, maxLevel, mask, symbols)
}

// DecodeBrickFromSymbols reconstructs a brick's cell values from an
// already-decoded raw symbol sequence, letting a caller reassemble a
// split base+detail rANS decode (two independent DecodeSymbols calls)
// back into one walk without re-deriving bytes.
func DecodeBrickFromSymbols(rootLabel uint32, paletteTrailing []uint32, rootStopped bool, brickSize, maxLevel int, mask ops.Mask, symbols []uint8) []uint32 {
	pm := palette.NewDecodeManager(rootLabel, paletteTrailing)
	player := &symbolPlayer{symbols: symbols}
	return DecodeBrick(rootLabel, rootStopped, brickSize, maxLevel, mask, pm, player)
}
