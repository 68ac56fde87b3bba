package csgv

import (
	"golang.org/x/sync/errgroup"

	"github.com/volcanite-go/csgv/internal/brickcodec"
	"github.com/volcanite-go/csgv/internal/rans"
)

// DecompressLoD fills out with every brick decoded up to targetLoD and
// writes it as a dense, row-major volume of the full voxel shape: a
// coarser LoD is replicated so every finest-level voxel still gets a
// value, one per (2^targetLoD)^3 block. targetLoD follows the
// reference tool's convention: 0 is the finest level (full
// resolution), and each increment halves the resolution along every
// axis. Bricks decode in parallel, one goroutine per brick, each
// scattering straight into its own disjoint region of out — mirroring
// Compress's brick-parallel structure.
func (v *Volume) DecompressLoD(targetLoD int, out []uint32) error {
	if v.words == nil {
		return newError(InputShape, "volume has no compressed data")
	}
	finest := v.finestLevel()
	if targetLoD < 0 || targetLoD > finest {
		return newError(ConfigInvalid, "targetLoD out of range")
	}
	if len(out) != v.dim[0]*v.dim[1]*v.dim[2] {
		return newError(InputShape, "out does not match volume dim")
	}
	maxLevel := finest - targetLoD
	blockWidth := 1 << uint(targetLoD)

	n := v.brickCount()
	threads := v.threadCount()
	var g errgroup.Group
	g.SetLimit(threads)
	for brick := 0; brick < n; brick++ {
		brick := brick
		g.Go(func() error {
			values, err := v.decodeBrickAt(brick, maxLevel)
			if err != nil {
				return err
			}
			v.scatterBrick(brick, values, blockWidth, out)
			return nil
		})
	}
	return g.Wait()
}

// DecompressBrickTo decodes the single brick at brickPos (brick-grid
// coordinates, not voxel coordinates) to inverseLoD and writes its
// decoded cell values into outBrick, which must be exactly
// (BrickSize>>inverseLoD)^3 long. It lets a caller fetch one brick's
// detail without decoding or scattering the rest of the volume.
func (v *Volume) DecompressBrickTo(brickPos [3]int, inverseLoD int, outBrick []uint32) error {
	if v.words == nil {
		return newError(InputShape, "volume has no compressed data")
	}
	finest := v.finestLevel()
	if inverseLoD < 0 || inverseLoD > finest {
		return newError(ConfigInvalid, "inverseLoD out of range")
	}
	for a := 0; a < 3; a++ {
		if brickPos[a] < 0 || brickPos[a] >= v.bpa[a] {
			return newError(InputShape, "brickPos out of bounds")
		}
	}
	brick := brickPos[0] + brickPos[1]*v.bpa[0] + brickPos[2]*v.bpa[0]*v.bpa[1]
	maxLevel := finest - inverseLoD

	values, err := v.decodeBrickAt(brick, maxLevel)
	if err != nil {
		return err
	}
	if len(outBrick) != len(values) {
		return newError(InputShape, "outBrick length does not match inverseLoD's cell count")
	}
	copy(outBrick, values)
	return nil
}

// DecodeVoxel returns the label at pos by decoding its whole brick to
// the finest level and indexing into it. It trades per-voxel cost for
// simplicity: true sub-brick random access (decoding a single cell's
// nibble chain without its neighbors) is only meaningful under Direct
// mode and is left for a future pass; this path works under every mode.
func (v *Volume) DecodeVoxel(pos [3]int) (uint32, error) {
	if v.words == nil {
		return 0, newError(InputShape, "volume has no compressed data")
	}
	for a := 0; a < 3; a++ {
		if pos[a] < 0 || pos[a] >= v.dim[a] {
			return 0, newError(InputShape, "position out of bounds")
		}
	}
	b := v.opts.BrickSize
	bpos := [3]int{pos[0] / b, pos[1] / b, pos[2] / b}
	brick := bpos[0] + bpos[1]*v.bpa[0] + bpos[2]*v.bpa[0]*v.bpa[1]
	local := [3]int{pos[0] % b, pos[1] % b, pos[2] % b}

	values, err := v.decodeBrickAt(brick, v.finestLevel())
	if err != nil {
		return 0, err
	}
	idx := local[0] + local[1]*b + local[2]*b*b
	return values[idx], nil
}

// DecodeVoxelInBrick returns the cell at inBrickIndex (a linear index
// into the brickIdx'th brick's decoded grid at inverseLoD, row-major
// x-fastest) by decoding just that brick. It is the brick-relative
// counterpart to DecodeVoxel, addressed the way a caller that already
// knows a brick's index and LoD would want rather than by absolute
// voxel position.
func (v *Volume) DecodeVoxelInBrick(brickIdx, inverseLoD, inBrickIndex int) (uint32, error) {
	if v.words == nil {
		return 0, newError(InputShape, "volume has no compressed data")
	}
	if brickIdx < 0 || brickIdx >= v.brickCount() {
		return 0, newError(InputShape, "brickIdx out of bounds")
	}
	finest := v.finestLevel()
	if inverseLoD < 0 || inverseLoD > finest {
		return 0, newError(ConfigInvalid, "inverseLoD out of range")
	}
	width := v.opts.BrickSize >> uint(inverseLoD)
	if inBrickIndex < 0 || inBrickIndex >= width*width*width {
		return 0, newError(InputShape, "inBrickIndex out of bounds")
	}

	values, err := v.decodeBrickAt(brickIdx, finest-inverseLoD)
	if err != nil {
		return 0, err
	}
	return values[inBrickIndex], nil
}

func (v *Volume) decodeBrickAt(brick int, maxLevel int) ([]uint32, error) {
	meta := v.meta[brick]
	b := v.opts.BrickSize

	switch v.opts.Mode {
	case Direct:
		words := v.words.BrickWords(brick)
		if maxLevel >= v.finestLevel() && v.detailWords != nil {
			if detail := v.detailWords.BrickWords(brick); len(detail) > 0 {
				// rejoin the separated finest LoD behind the base nibbles
				r := brickcodec.NewPackedReader(words)
				w := brickcodec.NewPackedWriter()
				for i := 0; i < baseNibblesOf(meta.header); i++ {
					w.WriteNibble(r.ReadNibble())
				}
				dr := brickcodec.NewPackedReader(detail)
				for i := 0; i < 8*len(detail); i++ {
					w.WriteNibble(dr.ReadNibble())
				}
				words = w.Words()
			}
		}
		return brickcodec.DirectDecode(meta.rootLabel, meta.palette, meta.rootStopped, b, maxLevel, v.opts.OpMask, words), nil

	case SingleTableRANS:
		encoded := bytesFromWords(v.words.BrickWords(brick), meta.encodedBytes)
		return brickcodec.RansDecode(meta.rootLabel, meta.palette, meta.rootStopped, b, maxLevel, v.opts.OpMask, encoded, &v.baseStats, meta.nibbleCount), nil

	case DoubleTableRANS:
		baseEncoded := bytesFromWords(v.words.BrickWords(brick), meta.encodedBytes)
		baseSymbols := rans.DecodeSymbols(baseEncoded, &v.baseStats, meta.nibbleCount)
		symbols := baseSymbols
		if maxLevel >= v.finestLevel() && v.haveDetailStats && meta.detailNibbleCount > 0 {
			detailEncoded := bytesFromWords(v.detailWords.BrickWords(brick), meta.detailEncodedBytes)
			detailSymbols := rans.DecodeSymbols(detailEncoded, &v.detailStats, meta.detailNibbleCount)
			symbols = append(append([]uint8(nil), baseSymbols...), detailSymbols...)
		}
		return brickcodec.DecodeBrickFromSymbols(meta.rootLabel, meta.palette, meta.rootStopped, b, maxLevel, v.opts.OpMask, symbols), nil

	default:
		return nil, newError(ConfigInvalid, "encoding mode not implemented by this build")
	}
}

// scatterBrick writes a brick's decoded LoD grid (width = brickSize >>
// (finest-maxLevel), i.e. one value per blockWidth^3 voxels) into out,
// replicating each decoded cell across its block so every voxel in the
// brick's region of the full volume gets a value.
func (v *Volume) scatterBrick(brick int, values []uint32, blockWidth int, out []uint32) {
	origin := v.brickOrigin(brick)
	b := v.opts.BrickSize
	width := b / blockWidth

	for lz := 0; lz < width; lz++ {
		for ly := 0; ly < width; ly++ {
			for lx := 0; lx < width; lx++ {
				val := values[lx+ly*width+lz*width*width]
				for bz := 0; bz < blockWidth; bz++ {
					z := origin[2] + lz*blockWidth + bz
					if z >= v.dim[2] {
						continue
					}
					for by := 0; by < blockWidth; by++ {
						y := origin[1] + ly*blockWidth + by
						if y >= v.dim[1] {
							continue
						}
						rowBase := y*v.dim[0] + z*v.dim[0]*v.dim[1]
						for bx := 0; bx < blockWidth; bx++ {
							x := origin[0] + lx*blockWidth + bx
							if x >= v.dim[0] {
								continue
							}
							out[x+rowBase] = val
						}
					}
				}
			}
		}
	}
}
