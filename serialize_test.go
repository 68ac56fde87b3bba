package csgv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/volcanite-go/csgv/internal/ops"
)

func TestExportImport_RoundTrip(t *testing.T) {
	dim := [3]int{16, 8, 16}
	vol := randomVolume(dim, 5, 11)

	v, err := NewVolume(Options{BrickSize: 8, Mode: SingleTableRANS, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "volume.csgv")
	if err := v.ExportToFile(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := NewVolume(Options{BrickSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.ImportFromFile(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Dim() != dim {
		t.Fatalf("dim mismatch: got %v want %v", loaded.Dim(), dim)
	}

	out := make([]uint32, len(vol))
	if err := loaded.DecompressLoD(0, out); err != nil {
		t.Fatal(err)
	}
	for i, want := range vol {
		if out[i] != want {
			t.Fatalf("voxel %d: got %d want %d", i, out[i], want)
		}
	}
}

func TestExportImport_DirectMode_RoundTrip(t *testing.T) {
	dim := [3]int{8, 8, 8}
	vol := randomVolume(dim, 4, 12)

	v, err := NewVolume(Options{BrickSize: 8, Mode: Direct, OpMask: ops.MaskAll})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Compress(vol, dim); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "direct.csgv")
	if err := v.ExportToFile(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := NewVolume(Options{BrickSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.ImportFromFile(path); err != nil {
		t.Fatal(err)
	}
	if err := loaded.VerifyCompression(vol, dim); err != nil {
		t.Fatalf("VerifyCompression after reload: %v", err)
	}
}

func TestImportFromFile_RejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csgv")
	if err := os.WriteFile(path, []byte("NOTACSGVCONTAINER"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := NewVolume(Options{BrickSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.ImportFromFile(path); err == nil {
		t.Fatal("expected FormatMismatch for bad magic")
	}
}
