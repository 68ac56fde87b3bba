package csgv

import (
	"golang.org/x/sync/errgroup"

	"github.com/volcanite-go/csgv/internal/lod"
	"github.com/volcanite-go/csgv/internal/rans"
	"github.com/volcanite-go/csgv/internal/splitvec"
)

// SeparateDetail performs the one-shot post-compression transform that
// pulls every brick's finest LoD out of the main op-stream into its own
// detail buffer, so a caller can decode the base LoDs of a volume
// without paying for the finest level's bytes. It returns the fraction
// of the op-stream (by nibble count, summed across every brick) that
// the detail buffer now holds. Calling it a second time is an error:
// the transform is not idempotent, since the base op-stream it reads
// no longer contains the finest LoD once the first call has run.
func (v *Volume) SeparateDetail() (float32, error) {
	if v.words == nil {
		return 0, newError(InputShape, "volume has no compressed data")
	}
	if v.separated {
		return 0, newError(ConfigInvalid, "SeparateDetail already ran on this volume")
	}

	var ratio float32
	var err error
	switch v.opts.Mode {
	case Direct:
		ratio, err = v.separateDetailDirect()
	case DoubleTableRANS:
		ratio, err = v.separateDetailRANS()
	default:
		return 0, newError(ConfigInvalid, "SeparateDetail requires Direct or DoubleTableRANS encoding")
	}
	if err != nil {
		v.Clear()
		return 0, err
	}
	v.separated = true
	return ratio, nil
}

// separateDetailDirect slices each brick's packed nibble words at the
// finest-LoD boundary; no entropy coding is involved so no frequency
// table retraining is needed.
func (v *Volume) separateDetailDirect() (float32, error) {
	n := len(v.meta)
	baseWords := make([][]uint32, n)
	detailWords := make([][]uint32, n)

	var totalNibbles, detailNibbles int
	for i := range v.meta {
		m := v.meta[i]
		total := 0
		if len(m.header.LevelEnds) > 0 {
			total = int(m.header.LevelEnds[len(m.header.LevelEnds)-1])
		}
		totalNibbles += total

		baseHeader, base, detail := lod.SeparateDetail(m.header, v.words.BrickWords(i))
		baseWords[i] = base
		detailWords[i] = detail
		detailNibbles += total - baseNibblesOf(baseHeader)
		v.meta[i].header = baseHeader
	}

	if err := v.rebuildManagers(baseWords, detailWords); err != nil {
		return 0, err
	}
	return detailRatio(totalNibbles, detailNibbles), nil
}

func baseNibblesOf(h lod.Header) int {
	if len(h.LevelEnds) == 0 {
		return 0
	}
	return int(h.LevelEnds[len(h.LevelEnds)-1])
}

// separateDetailRANS decodes every brick's entropy-coded symbols back to
// raw nibbles (all bricks share v.baseStats today), splits each at its
// finest-LoD boundary, trains fresh base and detail frequency tables
// over the whole volume, and re-encodes both halves of every brick under
// their respective shared tables.
func (v *Volume) separateDetailRANS() (float32, error) {
	n := len(v.meta)
	baseSymbols := make([][]uint8, n)
	detailSymbols := make([][]uint8, n)

	var baseRaw, detailRaw [rans.NumSymbols]uint32
	var totalNibbles, detailNibbles int
	for i, m := range v.meta {
		encoded := bytesFromWords(v.words.BrickWords(i), m.encodedBytes)
		symbols := rans.DecodeSymbols(encoded, &v.baseStats, m.nibbleCount)
		totalNibbles += len(symbols)

		baseN := len(symbols)
		if len(m.header.LevelEnds) >= 2 {
			baseN = int(m.header.LevelEnds[len(m.header.LevelEnds)-2])
		} else if len(m.header.LevelEnds) == 1 {
			baseN = 0
		}
		baseSymbols[i] = symbols[:baseN]
		detailSymbols[i] = symbols[baseN:]
		detailNibbles += len(symbols) - baseN

		for _, s := range baseSymbols[i] {
			baseRaw[s&0xF]++
		}
		for _, s := range detailSymbols[i] {
			detailRaw[s&0xF]++
		}
	}

	baseTable := rans.NormalizeFreqs(baseRaw)
	detailTable := rans.NormalizeFreqs(detailRaw)

	baseWords := make([][]uint32, n)
	detailWords := make([][]uint32, n)
	threads := v.threadCount()
	var g errgroup.Group
	g.SetLimit(threads)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			baseEncoded := rans.EncodeSymbols(baseSymbols[i], &baseTable)
			detailEncoded := rans.EncodeSymbols(detailSymbols[i], &detailTable)
			baseWords[i] = wordsFromBytes(baseEncoded)
			detailWords[i] = wordsFromBytes(detailEncoded)

			m := v.meta[i]
			m.nibbleCount = len(baseSymbols[i])
			m.encodedBytes = len(baseEncoded)
			m.detailNibbleCount = len(detailSymbols[i])
			m.detailEncodedBytes = len(detailEncoded)
			if len(m.header.LevelEnds) > 0 {
				m.header = lod.Header{
					LevelEnds:    append([]uint32(nil), m.header.LevelEnds[:len(m.header.LevelEnds)-1]...),
					PaletteCount: m.header.PaletteCount,
				}
			}
			v.meta[i] = m
			return nil
		})
	}
	_ = g.Wait()

	if err := v.rebuildManagers(baseWords, detailWords); err != nil {
		return 0, err
	}
	v.baseStats = baseTable
	v.detailStats = detailTable
	v.haveDetailStats = true
	return detailRatio(totalNibbles, detailNibbles), nil
}

// rebuildManagers replaces v.words/v.detailWords with freshly built
// managers. Every brick, even one with zero detail nibbles, gets an
// Append call to both managers so brick index i always means the same
// brick in words, detailWords, and meta — decompress indexes all three
// by the same brick number.
func (v *Volume) rebuildManagers(baseWords, detailWords [][]uint32) error {
	words := splitvec.NewManager(v.opts.effectiveCapacity())
	detail := splitvec.NewManager(v.opts.effectiveCapacity())
	for i := range baseWords {
		if _, err := words.Append(baseWords[i]); err != nil {
			return wrapError(CapacityExceeded, "op-stream split vector overflow", err)
		}
		if _, err := detail.Append(detailWords[i]); err != nil {
			return wrapError(CapacityExceeded, "detail split vector overflow", err)
		}
	}
	v.words = words
	v.detailWords = detail
	return nil
}

func detailRatio(total, detail int) float32 {
	if total == 0 {
		return 0
	}
	return float32(detail) / float32(total)
}
