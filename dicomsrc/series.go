// Package dicomsrc adapts a directory of single-frame DICOM instances
// (a segmentation series stored as native, uncompressed pixel data)
// into the dense, row-major []uint32 label volume csgv.Compress takes.
// It exposes only that shape contract: callers never see a DICOM
// dataset or element.
package dicomsrc

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Volume is a dense label volume read off a DICOM series, row-major
// within each slice (x fastest, then y, then z across slices ordered
// by InstanceNumber).
type Volume struct {
	Dim    [3]int
	Labels []uint32
}

// ReadSeriesDir parses every ".dcm" file directly inside dir as one
// axial slice of a segmentation series, orders them by InstanceNumber,
// and stacks their native pixel data into a dense volume. Every slice
// must share the same Rows/Columns; a mismatched slice is an error
// rather than a silently cropped or padded one.
func ReadSeriesDir(dir string) (*Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read series directory")
	}

	var slices []parsedSlice

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dcm") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ds, err := dicom.ParseFile(path, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", e.Name())
		}
		s, err := sliceFromDataset(ds)
		if err != nil {
			return nil, errors.Wrapf(err, "read pixel data from %s", e.Name())
		}
		slices = append(slices, s)
	}
	if len(slices) == 0 {
		return nil, errors.New("no .dcm files found in series directory")
	}

	sort.Slice(slices, func(i, j int) bool { return slices[i].instance < slices[j].instance })

	rows, cols := slices[0].rows, slices[0].cols
	for _, s := range slices[1:] {
		if s.rows != rows || s.cols != cols {
			return nil, errors.New("series slices do not share one Rows/Columns shape")
		}
	}

	dim := [3]int{cols, rows, len(slices)}
	labels := make([]uint32, dim[0]*dim[1]*dim[2])
	for z, s := range slices {
		copy(labels[z*rows*cols:(z+1)*rows*cols], s.pixels)
	}
	return &Volume{Dim: dim, Labels: labels}, nil
}

type parsedSlice struct {
	instance int
	rows     int
	cols     int
	pixels   []uint32
}

func sliceFromDataset(ds dicom.Dataset) (parsedSlice, error) {
	rows, err := findUint32(ds, tag.Rows)
	if err != nil {
		return parsedSlice{}, err
	}
	cols, err := findUint32(ds, tag.Columns)
	if err != nil {
		return parsedSlice{}, err
	}
	instance, _ := findUint32(ds, tag.InstanceNumber)

	pixelElem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return parsedSlice{}, errors.Wrap(err, "find PixelData element")
	}
	pixelInfo, ok := pixelElem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return parsedSlice{}, errors.New("PixelData element did not decode to PixelDataInfo")
	}
	if len(pixelInfo.Frames) != 1 {
		return parsedSlice{}, errors.Errorf("expected exactly one frame, got %d", len(pixelInfo.Frames))
	}
	native, err := pixelInfo.Frames[0].GetNativeFrame()
	if err != nil {
		return parsedSlice{}, errors.Wrap(err, "decode native frame (encapsulated transfer syntaxes are not supported as label sources)")
	}

	pixels := make([]uint32, int(rows)*int(cols))
	for i, row := range native.Data {
		for j, v := range row {
			pixels[i*int(cols)+j] = uint32(v)
		}
	}
	return parsedSlice{instance: int(instance), rows: int(rows), cols: int(cols), pixels: pixels}, nil
}

func findUint32(ds dicom.Dataset, t tag.Tag) (uint32, error) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, errors.Wrapf(err, "find tag %v", t)
	}
	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) == 0 {
			return 0, errors.Errorf("tag %v has no values", t)
		}
		return uint32(v[0]), nil
	case []string:
		if len(v) == 0 {
			return 0, errors.Errorf("tag %v has no values", t)
		}
		var n int
		if _, err := fmt.Sscan(v[0], &n); err != nil {
			return 0, errors.Wrapf(err, "parse tag %v value %q", t, v[0])
		}
		return uint32(n), nil
	default:
		return 0, errors.Errorf("tag %v has unexpected value type %T", t, v)
	}
}
