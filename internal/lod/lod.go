// Package lod tracks per-LoD offsets in a brick's operation stream and
// implements the one-shot transform that pulls the finest LoD's nibbles
// out into a brick's own detail buffer.
package lod

import (
	"github.com/volcanite-go/csgv/internal/brickcodec"
)

// Header is a brick's fixed-size header: the cumulative nibble count
// through the end of every LoD present in this brick's op stream
// (levels 1..N, root excluded since it is stored verbatim in the
// palette), followed by the palette entry count.
type Header struct {
	LevelEnds    []uint32
	PaletteCount uint32
}

// Size returns how many u32 words a header with n level-end entries
// occupies: one per entry plus the trailing palette count.
func Size(levelEndCount int) int { return levelEndCount + 1 }

// Words serializes the header.
func (h Header) Words() []uint32 {
	out := make([]uint32, 0, len(h.LevelEnds)+1)
	out = append(out, h.LevelEnds...)
	out = append(out, h.PaletteCount)
	return out
}

// ParseHeader reads a header back out of its serialized words.
func ParseHeader(words []uint32) Header {
	return Header{
		LevelEnds:    append([]uint32(nil), words[:len(words)-1]...),
		PaletteCount: words[len(words)-1],
	}
}

// FromLevelEnds converts the int nibble counts EncodeBrick returns (one
// per non-root level, finest last) into header words.
func FromLevelEnds(levelEnds []int, paletteCount int) Header {
	h := Header{LevelEnds: make([]uint32, len(levelEnds)), PaletteCount: uint32(paletteCount)}
	for i, v := range levelEnds {
		h.LevelEnds[i] = uint32(v)
	}
	return h
}

// SeparateDetail splits a non-separated brick's packed op-stream (whose
// header covers every LoD through the finest) into a base stream holding
// all but the finest LoD, and a freshly word-aligned detail stream
// holding only the finest LoD's nibbles. It returns the new, shorter
// base header (finest entry dropped) alongside both buffers.
func SeparateDetail(h Header, words []uint32) (baseHeader Header, baseWords []uint32, detailWords []uint32) {
	n := len(h.LevelEnds)
	if n == 0 {
		return h, words, nil
	}
	baseNibbles := 0
	if n >= 2 {
		baseNibbles = int(h.LevelEnds[n-2])
	}
	totalNibbles := int(h.LevelEnds[n-1])
	detailNibbles := totalNibbles - baseNibbles

	baseWordCount := (baseNibbles + 7) / 8
	if baseWordCount > len(words) {
		baseWordCount = len(words)
	}
	baseWords = append([]uint32(nil), words[:baseWordCount]...)

	if detailNibbles > 0 {
		r := brickcodec.NewPackedReader(words)
		for i := 0; i < baseNibbles; i++ {
			r.ReadNibble()
		}
		w := brickcodec.NewPackedWriter()
		for i := 0; i < detailNibbles; i++ {
			w.WriteNibble(r.ReadNibble())
		}
		detailWords = w.Words()
	}

	baseHeader = Header{LevelEnds: append([]uint32(nil), h.LevelEnds[:n-1]...), PaletteCount: h.PaletteCount}
	return baseHeader, baseWords, detailWords
}
