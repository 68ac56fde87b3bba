package csgv

import (
	"math/bits"

	"github.com/volcanite-go/csgv/internal/ops"
)

// EncodingMode selects the brick encoder used for every brick in a
// volume.
type EncodingMode int

const (
	// Direct packs operation nibbles without entropy coding. Without
	// PALETTE_DELTA and the stop bit (as RandomAccess requires), every
	// cell sits at a fixed, computable offset.
	Direct EncodingMode = iota
	// SingleTableRANS entropy-codes the whole op-stream, root through
	// finest LoD, under one frequency table.
	SingleTableRANS
	// DoubleTableRANS entropy-codes like SingleTableRANS until a caller
	// invokes Volume.SeparateDetail, which pulls the finest (detail) LoD
	// out under its own frequency table, separate from the coarser base
	// LoDs.
	DoubleTableRANS
	// WaveletMatrix and HuffmanWM are recognized but not implemented:
	// NewVolume accepts them in Options.Validate for forward
	// compatibility but Compress refuses them with ConfigInvalid. Their
	// operation-code grammar is out of scope for this engine, matching
	// the reference implementation's own incomplete documentation of
	// both modes.
	WaveletMatrix
	HuffmanWM
)

// Options configures a Volume's compression. It is set once, at
// construction, and never mutated by Compress/Decompress.
type Options struct {
	// BrickSize is the cube edge length; must be a power of two >= 2.
	BrickSize int
	// Mode selects the brick encoder.
	Mode EncodingMode
	// OpMask enables or disables optional grammar features (parent and
	// neighbor prediction, palette shortcuts, the stop bit). PALETTE_ADV
	// is always available regardless of mask.
	OpMask ops.Mask
	// RandomAccess, when true, restricts the volume to Direct mode with
	// neither PALETTE_DELTA nor the stop bit in OpMask; Validate rejects
	// any other combination.
	RandomAccess bool
	// CPUThreads bounds the brick-parallel worker count; 0 means the
	// driver picks runtime.GOMAXPROCS(0).
	CPUThreads int
	// SplitVectorCapacity caps how many uint32 words a single split
	// vector may hold before the driver rolls over to a new one. 0
	// selects a generous default.
	SplitVectorCapacity uint32
}

// Validate rejects Options combinations the engine cannot honor.
func (o Options) Validate() error {
	if o.BrickSize < 2 || (o.BrickSize&(o.BrickSize-1)) != 0 {
		return newError(ConfigInvalid, "brick size must be a power of two >= 2")
	}
	if bits.TrailingZeros(uint(o.BrickSize))+1 < 1 {
		return newError(ConfigInvalid, "brick size out of range")
	}
	if o.Mode < Direct || o.Mode > HuffmanWM {
		return newError(ConfigInvalid, "unknown encoding mode")
	}
	if o.RandomAccess && o.Mode != Direct {
		return newError(ConfigInvalid, "RandomAccess requires Direct encoding")
	}
	if o.RandomAccess && o.OpMask.Has(ops.MaskPaletteDelta) {
		return newError(ConfigInvalid, "RandomAccess is incompatible with PALETTE_DELTA: cells would no longer sit at a fixed, computable offset")
	}
	if o.RandomAccess && o.OpMask.Has(ops.MaskStopBit) {
		return newError(ConfigInvalid, "RandomAccess is incompatible with the stop bit: cells would no longer sit at a fixed, computable offset")
	}
	if o.CPUThreads < 0 {
		return newError(ConfigInvalid, "CPUThreads must be >= 0")
	}
	return nil
}

func (o Options) effectiveCapacity() uint32 {
	if o.SplitVectorCapacity == 0 {
		return 1 << 28
	}
	return o.SplitVectorCapacity
}

func (o Options) finestLevel() int {
	return bits.TrailingZeros(uint(o.BrickSize))
}
