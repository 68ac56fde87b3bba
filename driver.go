package csgv

import (
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/volcanite-go/csgv/internal/brickcodec"
	"github.com/volcanite-go/csgv/internal/lod"
	"github.com/volcanite-go/csgv/internal/multigrid"
	"github.com/volcanite-go/csgv/internal/ops"
	"github.com/volcanite-go/csgv/internal/rans"
	"github.com/volcanite-go/csgv/internal/splitvec"
)

// gridResult is what pass one of compress produces for one brick: the
// raw op-nibble symbol walk (RANS modes) or the already-packed Direct
// words, plus everything needed to finish encoding it in pass two.
type gridResult struct {
	meta brickMeta

	// RANS modes only.
	symbols []uint8

	// Direct mode only: already final.
	directWords []uint32
}

type brickResult struct {
	words []uint32
	meta  brickMeta
}

func (v *Volume) threadCount() int {
	if v.opts.CPUThreads > 0 {
		return v.opts.CPUThreads
	}
	return runtime.GOMAXPROCS(0)
}

// SharedFrequencyTable is the opaque result of a frequency-table
// prepass (see CompressForFrequencyTable), fed back into
// CompressWithSharedTable so every brick's entropy coding draws on that
// table instead of one trained from the compressed volume's own bricks.
type SharedFrequencyTable struct {
	Base   rans.SymbolStats
	Detail rans.SymbolStats
}

// Compress encodes volume (dim[0]*dim[1]*dim[2] row-major labels) as a
// fresh set of bricks, replacing whatever this Volume previously held.
// Under a rANS mode, compression runs in two brick-parallel passes: the
// first builds every brick's multigrid and raw op-nibble symbol walk,
// the second entropy-codes every brick under one frequency table shared
// across the whole volume (trained from the first pass's accumulated
// symbol counts, unless a SharedFrequencyTable was supplied). Placement
// into the split vectors happens afterward, in brick order, so the
// result does not depend on scheduling. There is no cancellation or
// timeout: once started, Compress runs to completion.
func (v *Volume) Compress(volume []uint32, dim [3]int) error {
	return v.compress(volume, dim, nil)
}

// CompressWithSharedTable is like Compress but reuses a previously
// trained frequency table for every brick's entropy coding, instead of
// training one from this volume's own bricks.
func (v *Volume) CompressWithSharedTable(volume []uint32, dim [3]int, table *SharedFrequencyTable) error {
	return v.compress(volume, dim, table)
}

func (v *Volume) compress(volume []uint32, dim [3]int, shared *SharedFrequencyTable) error {
	if v.opts.Mode == WaveletMatrix || v.opts.Mode == HuffmanWM {
		return newError(ConfigInvalid, "encoding mode not implemented by this build")
	}
	if dim[0] < 0 || dim[1] < 0 || dim[2] < 0 || len(volume) != dim[0]*dim[1]*dim[2] {
		v.Clear()
		return newError(InputShape, "volume length does not match dim")
	}

	v.dim = dim
	v.bpa = v.bricksPerAxis(dim)
	v.separated = false
	n := v.brickCount()
	threads := v.threadCount()
	start := time.Now()

	grids := make([]gridResult, n)
	var g errgroup.Group
	g.SetLimit(threads)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			grids[i] = v.buildBrick(volume, dim, i)
			return nil
		})
	}
	_ = g.Wait() // buildBrick never returns an error; panics propagate instead

	results := make([]brickResult, n)

	if v.opts.Mode == Direct {
		for i := range grids {
			results[i] = brickResult{words: grids[i].directWords, meta: grids[i].meta}
		}
	} else {
		var table rans.SymbolStats
		if shared != nil {
			table = shared.Base
		} else {
			var raw [rans.NumSymbols]uint32
			for i := range grids {
				for _, s := range grids[i].symbols {
					raw[s&0xF]++
				}
			}
			table = rans.NormalizeFreqs(raw)
		}
		v.baseStats = table
		v.haveDetailStats = false

		var g2 errgroup.Group
		g2.SetLimit(threads)
		for i := 0; i < n; i++ {
			i := i
			g2.Go(func() error {
				encoded := rans.EncodeSymbols(grids[i].symbols, &table)
				m := grids[i].meta
				m.nibbleCount = len(grids[i].symbols)
				m.encodedBytes = len(encoded)
				results[i] = brickResult{words: wordsFromBytes(encoded), meta: m}
				return nil
			})
		}
		_ = g2.Wait()
	}

	v.words = splitvec.NewManager(v.opts.effectiveCapacity())
	v.detailWords = splitvec.NewManager(v.opts.effectiveCapacity())
	v.meta = make([]brickMeta, n)
	for i, r := range results {
		if _, err := v.words.Append(r.words); err != nil {
			v.Clear()
			return wrapError(CapacityExceeded, "op-stream split vector overflow", err)
		}
		if _, err := v.detailWords.Append(nil); err != nil {
			v.Clear()
			return wrapError(CapacityExceeded, "detail split vector overflow", err)
		}
		v.meta[i] = r.meta
		if i > 0 && i%256 == 0 {
			v.Logger.Infof("compressed %d/%d bricks (%s elapsed)", i, n, time.Since(start).Round(time.Millisecond))
		}
	}
	v.Logger.Infof("compressed %d bricks in %s", n, time.Since(start).Round(time.Millisecond))
	return nil
}

// buildBrick runs pass one: build the multigrid and, for RANS modes,
// the raw op-nibble symbol walk (entropy coding happens afterward, once
// a volume-wide table is known). Direct mode has no second pass: its
// words are already final.
func (v *Volume) buildBrick(volume []uint32, dim [3]int, brick int) gridResult {
	origin := v.brickOrigin(brick)
	needStop := v.opts.OpMask.Has(ops.MaskStopBit)
	grid := multigrid.Build(volume, dim, origin, v.opts.BrickSize, needStop, false)

	if v.opts.Mode == Direct {
		res := brickcodec.DirectEncode(grid, v.opts.OpMask)
		h := lod.FromLevelEnds(res.LevelEnds, len(res.Palette))
		return gridResult{
			directWords: res.Words,
			meta: brickMeta{
				rootLabel:   grid.Root().Label,
				rootStopped: len(res.Words) == 0,
				header:      h,
				palette:     res.Palette,
			},
		}
	}

	symbols, levelEnds, paletteEntries := brickcodec.EncodeBrickSymbols(grid, v.opts.OpMask)
	h := lod.FromLevelEnds(levelEnds, len(paletteEntries))
	return gridResult{
		symbols: symbols,
		meta: brickMeta{
			rootLabel:   grid.Root().Label,
			rootStopped: len(symbols) == 0,
			header:      h,
			palette:     paletteEntries,
		},
	}
}

// wordsFromBytes packs an entropy-coded byte stream into u32 words,
// little-endian, zero-padding the final word. The exact byte length is
// recorded per brick (brickMeta.encodedBytes) and passed back to
// bytesFromWords at decode time, so padding bits are never inspected.
func wordsFromBytes(b []byte) []uint32 {
	words := make([]uint32, (len(b)+3)/4)
	for i, c := range b {
		words[i/4] |= uint32(c) << uint(8*(i%4))
	}
	return words
}

func bytesFromWords(words []uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(words[i/4] >> uint(8*(i%4)))
	}
	return out
}
