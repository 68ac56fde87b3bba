// Command csgvtool exercises the csgv engine end to end: compress a
// dense uint32 label volume (or a DICOM series) to a container file,
// decompress a container back to a dense volume, or verify a
// round trip.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/volcanite-go/csgv"
	"github.com/volcanite-go/csgv/dicomsrc"
	"github.com/volcanite-go/csgv/internal/ops"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "compress":
		err = runCompress(os.Args[2:])
	case "dicom-compress":
		err = runDicomCompress(os.Args[2:])
	case "decompress":
		err = runDecompress(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "csgvtool: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  csgvtool compress <x> <y> <z> <in.raw> <out.csgv> [brickSize]
  csgvtool dicom-compress <series-dir> <out.csgv> [brickSize]
  csgvtool decompress <in.csgv> <out.raw> [targetLoD]
  csgvtool verify <in.csgv> <original.raw>`)
}

func runCompress(args []string) error {
	if len(args) < 5 {
		usage()
		return fmt.Errorf("compress: missing arguments")
	}
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	z, err := strconv.Atoi(args[2])
	if err != nil {
		return err
	}
	dim := [3]int{x, y, z}
	volume, err := readRaw(args[3], dim)
	if err != nil {
		return err
	}
	brickSize := 8
	if len(args) >= 6 {
		brickSize, err = strconv.Atoi(args[5])
		if err != nil {
			return err
		}
	}
	return compressAndSave(volume, dim, brickSize, args[4])
}

func runDicomCompress(args []string) error {
	if len(args) < 2 {
		usage()
		return fmt.Errorf("dicom-compress: missing arguments")
	}
	series, err := dicomsrc.ReadSeriesDir(args[0])
	if err != nil {
		return err
	}
	brickSize := 8
	if len(args) >= 3 {
		brickSize, err = strconv.Atoi(args[2])
		if err != nil {
			return err
		}
	}
	return compressAndSave(series.Labels, series.Dim, brickSize, args[1])
}

func compressAndSave(volume []uint32, dim [3]int, brickSize int, outPath string) error {
	v, err := csgv.NewVolume(csgv.Options{
		BrickSize: brickSize,
		Mode:      csgv.SingleTableRANS,
		OpMask:    ops.MaskAll,
	})
	if err != nil {
		return err
	}
	v.Logger = csgv.NewStdLogger()
	if err := v.Compress(volume, dim); err != nil {
		return err
	}
	if err := v.ExportToFile(outPath); err != nil {
		return err
	}
	fmt.Printf("compressed %dx%dx%d volume to %s\n", dim[0], dim[1], dim[2], outPath)
	return nil
}

func runDecompress(args []string) error {
	if len(args) < 2 {
		usage()
		return fmt.Errorf("decompress: missing arguments")
	}
	v, err := csgv.NewVolume(csgv.Options{BrickSize: 8})
	if err != nil {
		return err
	}
	if err := v.ImportFromFile(args[0]); err != nil {
		return err
	}
	targetLoD := 0
	if len(args) >= 3 {
		targetLoD, err = strconv.Atoi(args[2])
		if err != nil {
			return err
		}
	}
	dim := v.Dim()
	out := make([]uint32, dim[0]*dim[1]*dim[2])
	if err := v.DecompressLoD(targetLoD, out); err != nil {
		return err
	}
	return writeRaw(args[1], out)
}

func runVerify(args []string) error {
	if len(args) < 2 {
		usage()
		return fmt.Errorf("verify: missing arguments")
	}
	v, err := csgv.NewVolume(csgv.Options{BrickSize: 8})
	if err != nil {
		return err
	}
	if err := v.ImportFromFile(args[0]); err != nil {
		return err
	}
	dim := v.Dim()
	original, err := readRaw(args[1], dim)
	if err != nil {
		return err
	}
	if err := v.VerifyCompression(original, dim); err != nil {
		return err
	}
	fmt.Println("verify OK: decoded volume matches original exactly")
	return nil
}

func readRaw(path string, dim [3]int) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n := dim[0] * dim[1] * dim[2]
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[4*i : 4*i+4])
	}
	return out, nil
}

func writeRaw(path string, volume []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	buf := make([]byte, 4*len(volume))
	for i, v := range volume {
		binary.LittleEndian.PutUint32(buf[4*i:4*i+4], v)
	}
	_, err = f.Write(buf)
	return err
}
