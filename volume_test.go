package csgv

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/volcanite-go/csgv/internal/ops"
)

func randomVolume(dim [3]int, labels int, seed int64) []uint32 {
	rng := rand.New(rand.NewSource(seed))
	v := make([]uint32, dim[0]*dim[1]*dim[2])
	for i := range v {
		v[i] = uint32(rng.Intn(labels))
	}
	return v
}

func TestCompressDecompress_Direct_RoundTrip(t *testing.T) {
	dim := [3]int{16, 16, 16}
	vol := randomVolume(dim, 6, 1)

	v, err := NewVolume(Options{BrickSize: 8, Mode: Direct, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	out := make([]uint32, len(vol))
	if err := v.DecompressLoD(0, out); err != nil {
		t.Fatal(err)
	}
	for i, want := range vol {
		if out[i] != want {
			t.Fatalf("voxel %d: got %d want %d", i, out[i], want)
		}
	}
}

func TestCompressDecompress_SingleTableRANS_RoundTrip(t *testing.T) {
	dim := [3]int{16, 8, 16}
	vol := randomVolume(dim, 4, 2)

	v, err := NewVolume(Options{BrickSize: 8, Mode: SingleTableRANS, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	out := make([]uint32, len(vol))
	if err := v.DecompressLoD(0, out); err != nil {
		t.Fatal(err)
	}
	for i, want := range vol {
		if out[i] != want {
			t.Fatalf("voxel %d: got %d want %d", i, out[i], want)
		}
	}
	if err := v.VerifyCompression(vol, dim); err != nil {
		t.Fatalf("VerifyCompression: %v", err)
	}
}

func TestCompressDecompress_DoubleTableRANS_RoundTrip(t *testing.T) {
	dim := [3]int{8, 8, 8}
	vol := randomVolume(dim, 5, 3)

	v, err := NewVolume(Options{
		BrickSize: 8,
		Mode:      DoubleTableRANS,
		OpMask:    ops.MaskAll,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	ratio, err := v.SeparateDetail()
	if err != nil {
		t.Fatal(err)
	}
	if ratio <= 0 || ratio >= 1 {
		t.Fatalf("expected ratio_detail_to_total in (0,1), got %f", ratio)
	}
	if _, err := v.SeparateDetail(); err == nil {
		t.Fatal("expected second SeparateDetail call to error")
	}

	out := make([]uint32, len(vol))
	if err := v.DecompressLoD(0, out); err != nil {
		t.Fatal(err)
	}
	for i, want := range vol {
		if out[i] != want {
			t.Fatalf("voxel %d: got %d want %d", i, out[i], want)
		}
	}
}

func TestSeparateDetail_Direct(t *testing.T) {
	dim := [3]int{8, 8, 8}
	vol := randomVolume(dim, 5, 11)

	v, err := NewVolume(Options{BrickSize: 8, Mode: Direct, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	ratio, err := v.SeparateDetail()
	if err != nil {
		t.Fatal(err)
	}
	if ratio <= 0 || ratio >= 1 {
		t.Fatalf("expected ratio_detail_to_total in (0,1), got %f", ratio)
	}

	out := make([]uint32, len(vol))
	if err := v.DecompressLoD(0, out); err != nil {
		t.Fatal(err)
	}
	for i, want := range vol {
		if out[i] != want {
			t.Fatalf("voxel %d: got %d want %d", i, out[i], want)
		}
	}
}

func TestSeparateDetail_RejectsSingleTableRANS(t *testing.T) {
	dim := [3]int{8, 8, 8}
	vol := randomVolume(dim, 5, 12)

	v, err := NewVolume(Options{BrickSize: 8, Mode: SingleTableRANS, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}
	if _, err := v.SeparateDetail(); err == nil {
		t.Fatal("expected SeparateDetail to refuse SingleTableRANS")
	}
}

func TestDecompressBrickTo_And_DecodeVoxelInBrick_MatchDecompressLoD(t *testing.T) {
	dim := [3]int{16, 16, 16}
	vol := randomVolume(dim, 6, 13)

	v, err := NewVolume(Options{BrickSize: 8, Mode: Direct, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	out := make([]uint32, len(vol))
	if err := v.DecompressLoD(0, out); err != nil {
		t.Fatal(err)
	}

	brickPos := [3]int{1, 0, 1}
	brickIdx := brickPos[0] + brickPos[1]*2 + brickPos[2]*2*2
	outBrick := make([]uint32, 8*8*8)
	if err := v.DecompressBrickTo(brickPos, 0, outBrick); err != nil {
		t.Fatal(err)
	}
	for lz := 0; lz < 8; lz++ {
		for ly := 0; ly < 8; ly++ {
			for lx := 0; lx < 8; lx++ {
				x, y, z := brickPos[0]*8+lx, brickPos[1]*8+ly, brickPos[2]*8+lz
				want := out[x+y*dim[0]+z*dim[0]*dim[1]]
				got := outBrick[lx+ly*8+lz*8*8]
				if got != want {
					t.Fatalf("DecompressBrickTo (%d,%d,%d): got %d want %d", lx, ly, lz, got, want)
				}

				idx := lx + ly*8 + lz*8*8
				viaVoxel, err := v.DecodeVoxelInBrick(brickIdx, 0, idx)
				if err != nil {
					t.Fatal(err)
				}
				if viaVoxel != want {
					t.Fatalf("DecodeVoxelInBrick (%d,%d,%d): got %d want %d", lx, ly, lz, viaVoxel, want)
				}
			}
		}
	}
}

func TestDecompressLoD_CoarserLevelReplicatesBlocks(t *testing.T) {
	dim := [3]int{8, 8, 8}
	vol := randomVolume(dim, 4, 4)

	v, err := NewVolume(Options{BrickSize: 8, Mode: Direct, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	out := make([]uint32, len(vol))
	if err := v.DecompressLoD(1, out); err != nil {
		t.Fatal(err)
	}
	// every 2x2x2 block must carry one uniform replicated value.
	for bz := 0; bz < 4; bz++ {
		for by := 0; by < 4; by++ {
			for bx := 0; bx < 4; bx++ {
				var first uint32
				for z := 0; z < 2; z++ {
					for y := 0; y < 2; y++ {
						for x := 0; x < 2; x++ {
							idx := (bx*2 + x) + (by*2+y)*8 + (bz*2+z)*64
							if x == 0 && y == 0 && z == 0 {
								first = out[idx]
							} else if out[idx] != first {
								t.Fatalf("block (%d,%d,%d) not uniform at LoD 1", bx, by, bz)
							}
						}
					}
				}
			}
		}
	}
}

func TestDecodeVoxel_MatchesDecompress(t *testing.T) {
	dim := [3]int{8, 16, 8}
	vol := randomVolume(dim, 7, 5)

	v, err := NewVolume(Options{BrickSize: 8, Mode: Direct, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	out := make([]uint32, len(vol))
	if err := v.DecompressLoD(0, out); err != nil {
		t.Fatal(err)
	}
	for _, pos := range [][3]int{{0, 0, 0}, {7, 15, 7}, {3, 9, 2}} {
		got, err := v.DecodeVoxel(pos)
		if err != nil {
			t.Fatal(err)
		}
		idx := pos[0] + pos[1]*dim[0] + pos[2]*dim[0]*dim[1]
		if got != out[idx] {
			t.Fatalf("pos %v: DecodeVoxel got %d, DecompressLoD got %d", pos, got, out[idx])
		}
	}
}

func TestVerifyCompression_DetectsMismatch(t *testing.T) {
	dim := [3]int{8, 8, 8}
	vol := randomVolume(dim, 4, 6)

	v, err := NewVolume(Options{BrickSize: 8, Mode: Direct, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	tampered := append([]uint32(nil), vol...)
	tampered[0]++
	if err := v.VerifyCompression(tampered, dim); err == nil {
		t.Fatal("expected VerifyCompression to report the tampered voxel")
	}
}

func TestCompressForFrequencyTable_ThenCompressWithSharedTable(t *testing.T) {
	dim := [3]int{16, 16, 16}
	vol := randomVolume(dim, 5, 7)

	v, err := NewVolume(Options{BrickSize: 8, Mode: SingleTableRANS, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	table, err := v.CompressForFrequencyTable(vol, dim, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.CompressWithSharedTable(vol, dim, table); err != nil {
		t.Fatal(err)
	}

	out := make([]uint32, len(vol))
	if err := v.DecompressLoD(0, out); err != nil {
		t.Fatal(err)
	}
	for i, want := range vol {
		if out[i] != want {
			t.Fatalf("voxel %d: got %d want %d", i, out[i], want)
		}
	}
}

func TestOptionsValidate_RejectsBadConfig(t *testing.T) {
	cases := []Options{
		{BrickSize: 3},
		{BrickSize: 8, Mode: EncodingMode(99)},
		{BrickSize: 8, RandomAccess: true, Mode: SingleTableRANS},
		{BrickSize: 8, RandomAccess: true, Mode: Direct, OpMask: ops.MaskPaletteDelta},
		{BrickSize: 8, RandomAccess: true, Mode: Direct, OpMask: ops.MaskStopBit},
		{BrickSize: 8, CPUThreads: -1},
	}
	for i, o := range cases {
		if err := o.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, o)
		}
	}
}

func TestCompress_RejectsUnimplementedModes(t *testing.T) {
	dim := [3]int{4, 4, 4}
	vol := randomVolume(dim, 2, 8)
	for _, mode := range []EncodingMode{WaveletMatrix, HuffmanWM} {
		v, err := NewVolume(Options{BrickSize: 4, Mode: mode})
		if err != nil {
			t.Fatal(err)
		}
		if err := v.Compress(vol, dim); err == nil {
			t.Fatalf("mode %v: expected Compress to refuse an unimplemented mode", mode)
		}
	}
}

func TestErrorIs_MatchesSentinelRegardlessOfWrapDepth(t *testing.T) {
	v, err := NewVolume(Options{BrickSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	err = v.Compress(nil, [3]int{2, 2, 2})
	if err == nil {
		t.Fatal("expected InputShape error")
	}
	if !errors.Is(err, ErrInputShape) {
		t.Fatalf("expected ErrInputShape, got %v", err)
	}
}
