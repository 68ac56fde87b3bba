// Package brickcodec implements the brick walk shared by every encoding
// mode: visiting cells coarse-to-fine in Morton order, choosing the
// cheapest predicting operation, and threading the result through a
// nibble sink that may be a plain packed array (random-access capable)
// or an entropy-coded rANS stream.
package brickcodec

import "github.com/volcanite-go/csgv/internal/ops"

// NibbleWriter accepts a stream of 4-bit operation/stop symbols.
type NibbleWriter interface {
	WriteNibble(n ops.Nibble)
}

// NibbleReader yields a stream of 4-bit operation/stop symbols.
type NibbleReader interface {
	ReadNibble() ops.Nibble
}

// PackedWriter packs nibbles eight to a uint32 word, high nibble first,
// giving brick encodings that support direct (non-entropy-coded) random
// access.
type PackedWriter struct {
	words []uint32
	count int
}

func NewPackedWriter() *PackedWriter { return &PackedWriter{} }

func (w *PackedWriter) WriteNibble(n ops.Nibble) {
	wordIdx := w.count / 8
	shift := uint(28 - 4*(w.count%8))
	if wordIdx == len(w.words) {
		w.words = append(w.words, 0)
	}
	w.words[wordIdx] |= uint32(n&0xF) << shift
	w.count++
}

// Words returns the packed words written so far.
func (w *PackedWriter) Words() []uint32 { return w.words }

// Count returns how many nibbles have been written.
func (w *PackedWriter) Count() int { return w.count }

// PackedReader reads nibbles back out of words packed by PackedWriter.
type PackedReader struct {
	words []uint32
	pos   int
}

func NewPackedReader(words []uint32) *PackedReader { return &PackedReader{words: words} }

func (r *PackedReader) ReadNibble() ops.Nibble {
	wordIdx := r.pos / 8
	shift := uint(28 - 4*(r.pos%8))
	r.pos++
	return ops.Nibble((r.words[wordIdx] >> shift) & 0xF)
}

// Pos reports how many nibbles have been read.
func (r *PackedReader) Pos() int { return r.pos }

// symbolCollector is the NibbleWriter used by the rANS encoder (its
// NibbleReader counterpart is symbolPlayer): the walk first emits plain
// nibbles (4-bit symbols) to collect frequency statistics and a symbol
// sequence, which is then entropy coded as a whole.
type symbolCollector struct {
	symbols []uint8
}

func (c *symbolCollector) WriteNibble(n ops.Nibble) {
	c.symbols = append(c.symbols, uint8(n))
}

func (c *symbolCollector) Count() int { return len(c.symbols) }

type symbolPlayer struct {
	symbols []uint8
	pos     int
}

func (p *symbolPlayer) ReadNibble() ops.Nibble {
	n := ops.Nibble(p.symbols[p.pos])
	p.pos++
	return n
}
