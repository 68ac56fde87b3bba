// Package csgv implements a lossless brick-structured compressor for
// dense 3D labeled segmentation volumes: an octree multigrid per brick,
// an operation-code grammar predicting each cell from its parent,
// same-level neighbors, or an append-only palette, optionally entropy
// coded with a range-ANS coder, serialized as a versioned container.
package csgv

import (
	"github.com/volcanite-go/csgv/internal/lod"
	"github.com/volcanite-go/csgv/internal/rans"
	"github.com/volcanite-go/csgv/internal/splitvec"
)

// brickMeta is everything Volume keeps about one brick besides its
// encoded op-stream words, which live in words (and detailWords, when
// separated).
type brickMeta struct {
	rootLabel   uint32
	rootStopped bool
	header      lod.Header
	palette     []uint32

	nibbleCount  int
	encodedBytes int

	detailNibbleCount  int
	detailEncodedBytes int
}

// Volume owns one compressed segmentation volume: its Options, voxel
// shape, and the per-brick encoded state. The zero value is not usable;
// construct with NewVolume.
type Volume struct {
	Logger Logger

	opts Options
	dim  [3]int
	bpa  [3]int // bricks per axis

	meta        []brickMeta
	words       *splitvec.Manager
	detailWords *splitvec.Manager

	// baseStats and detailStats are the volume-wide rANS frequency
	// tables shared by every brick's entropy coding under SingleTableRANS
	// or DoubleTableRANS; one container-level table (or two, once
	// separated) in place of a table per brick. haveDetailStats is true
	// once SeparateDetail has trained detailStats from a RANS volume.
	baseStats       rans.SymbolStats
	detailStats     rans.SymbolStats
	haveDetailStats bool

	// separated marks that SeparateDetail has already been called once;
	// a second call is an error.
	separated bool
}

// NewVolume validates opts and returns an empty Volume ready to
// Compress.
func NewVolume(opts Options) (*Volume, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Volume{opts: opts, Logger: noopLogger{}}, nil
}

// Options returns the volume's configuration.
func (v *Volume) Options() Options { return v.opts }

// Dim returns the voxel shape of the last successfully compressed
// volume, or the zero shape if none has been compressed yet.
func (v *Volume) Dim() [3]int { return v.dim }

// Clear resets the volume to empty, keeping its Options and Logger.
func (v *Volume) Clear() {
	v.dim = [3]int{}
	v.bpa = [3]int{}
	v.meta = nil
	v.words = nil
	v.detailWords = nil
	v.baseStats = rans.SymbolStats{}
	v.detailStats = rans.SymbolStats{}
	v.haveDetailStats = false
	v.separated = false
}

func (v *Volume) bricksPerAxis(dim [3]int) [3]int {
	b := v.opts.BrickSize
	return [3]int{
		(dim[0] + b - 1) / b,
		(dim[1] + b - 1) / b,
		(dim[2] + b - 1) / b,
	}
}

func (v *Volume) brickCount() int { return v.bpa[0] * v.bpa[1] * v.bpa[2] }

func (v *Volume) brickOrigin(brick int) [3]int {
	b := v.opts.BrickSize
	bx := brick % v.bpa[0]
	by := (brick / v.bpa[0]) % v.bpa[1]
	bz := brick / (v.bpa[0] * v.bpa[1])
	return [3]int{bx * b, by * b, bz * b}
}

func (v *Volume) finestLevel() int { return v.opts.finestLevel() }
