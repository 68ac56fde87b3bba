package csgv

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/volcanite-go/csgv/internal/lod"
	"github.com/volcanite-go/csgv/internal/ops"
	"github.com/volcanite-go/csgv/internal/rans"
	"github.com/volcanite-go/csgv/internal/splitvec"
)

func opsMaskFrom(w uint32) ops.Mask { return ops.Mask(w) }

// ExportToFile writes v's compressed state to path, atomically: the
// container is built in a sibling temp file (named with a random UUID
// so concurrent exports to the same directory never collide) and
// renamed into place only once every byte has been flushed, so a
// reader never observes a partially written file.
func (v *Volume) ExportToFile(path string) error {
	if v.words == nil {
		return newError(InputShape, "volume has no compressed data")
	}
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+uuid.NewString()+".csgv.tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return wrapError(IoError, "create temp file", err)
	}
	if err := v.writeContainer(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return wrapError(IoError, "sync temp file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return wrapError(IoError, "close temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return wrapError(IoError, "rename into place", err)
	}
	return nil
}

// ImportFromFile replaces v's state with the container stored at path.
// A legacy "0015" container is accepted at the header level (magic and
// version parse cleanly) but FormatMismatch is returned rather than
// guessing at its OP_USE_OLD_PAL_D_BIT palette-delta layout, which this
// build does not implement; so is a container whose op mask sets
// ops.MaskUseOldPaletteDelta. On any error v is left as it was.
func (v *Volume) ImportFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return wrapError(IoError, "open container", err)
	}
	defer f.Close()
	loaded := &Volume{Logger: v.Logger, opts: v.opts}
	if err := loaded.readContainer(bufio.NewReader(f)); err != nil {
		return err
	}
	*v = *loaded
	return nil
}

func (v *Volume) maxBrickPalette() uint32 {
	var max uint32
	for _, m := range v.meta {
		if n := uint32(len(m.palette)); n > max {
			max = n
		}
	}
	return max
}

func (v *Volume) writeContainer(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(magic); err != nil {
		return wrapError(IoError, "write magic", err)
	}
	if _, err := bw.WriteString(currentVersion); err != nil {
		return wrapError(IoError, "write version", err)
	}

	header := []uint32{
		uint32(v.dim[0]), uint32(v.dim[1]), uint32(v.dim[2]),
		uint32(v.opts.BrickSize), uint32(v.opts.Mode), uint32(v.opts.OpMask),
		boolWord(v.opts.RandomAccess),
		v.maxBrickPalette(),
		uint32(len(v.meta)),
	}
	if err := writeWords(bw, header); err != nil {
		return err
	}
	for _, m := range v.meta {
		if err := writeBrickMeta(bw, m); err != nil {
			return err
		}
	}
	if err := writeFrequencyTables(bw, v); err != nil {
		return err
	}
	if err := writeSplitVectors(bw, v.words); err != nil {
		return err
	}
	if err := writeSplitVectors(bw, v.detailWords); err != nil {
		return err
	}
	return bw.Flush()
}

func (v *Volume) readContainer(r *bufio.Reader) error {
	magicBuf := make([]byte, len(magic))
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return wrapError(IoError, "read magic", err)
	}
	if string(magicBuf) != magic {
		return newError(FormatMismatch, "not a "+magic+" container")
	}
	versionBuf := make([]byte, len(currentVersion))
	if _, err := io.ReadFull(r, versionBuf); err != nil {
		return wrapError(IoError, "read version", err)
	}
	version := string(versionBuf)
	if !supportedVersions[version] {
		return newError(FormatMismatch, "unsupported container version "+version)
	}
	if version == legacyVersion {
		return newError(FormatMismatch, "legacy 0015 palette-delta layout is not decodable by this build")
	}

	header, err := readWords(r, 9)
	if err != nil {
		return err
	}
	v.dim = [3]int{int(header[0]), int(header[1]), int(header[2])}
	v.opts.BrickSize = int(header[3])
	v.opts.Mode = EncodingMode(header[4])
	v.opts.OpMask = opsMaskFrom(header[5])
	if v.opts.OpMask.Has(ops.MaskUseOldPaletteDelta) {
		return newError(FormatMismatch, "legacy palette-delta op mask bit is not decodable by this build")
	}
	v.opts.RandomAccess = header[6] != 0
	// header[7] (max_brick_palette) is informational, recomputed on
	// demand by maxBrickPalette rather than trusted from the file.
	brickCount := int(header[8])
	v.bpa = v.bricksPerAxis(v.dim)

	v.meta = make([]brickMeta, brickCount)
	for i := range v.meta {
		m, err := readBrickMeta(r)
		if err != nil {
			return err
		}
		v.meta[i] = m
	}
	if err := readFrequencyTables(r, v); err != nil {
		return err
	}
	v.words, err = readSplitVectors(r)
	if err != nil {
		return err
	}
	v.detailWords, err = readSplitVectors(r)
	if err != nil {
		return err
	}
	return nil
}

// writeFrequencyTables writes the volume-global rANS frequency tables:
// one Base table whenever Mode entropy-codes at all, plus a Detail
// table once SeparateDetail has trained one. Direct-mode volumes carry
// no tables since Direct mode does no entropy coding.
func writeFrequencyTables(w *bufio.Writer, v *Volume) error {
	hasFreq := v.opts.Mode != Direct
	if err := writeWords(w, []uint32{boolWord(hasFreq)}); err != nil {
		return err
	}
	if !hasFreq {
		return nil
	}
	if err := writeWords(w, v.baseStats.Freqs[:]); err != nil {
		return err
	}
	if err := writeWords(w, []uint32{boolWord(v.haveDetailStats)}); err != nil {
		return err
	}
	if v.haveDetailStats {
		if err := writeWords(w, v.detailStats.Freqs[:]); err != nil {
			return err
		}
	}
	return nil
}

func readFrequencyTables(r *bufio.Reader, v *Volume) error {
	flag, err := readWords(r, 1)
	if err != nil {
		return err
	}
	if flag[0] == 0 {
		return nil
	}
	baseFreqs, err := readFreqs(r)
	if err != nil {
		return err
	}
	v.baseStats = rans.StatsFromFreqs(baseFreqs)

	haveDetail, err := readWords(r, 1)
	if err != nil {
		return err
	}
	v.haveDetailStats = haveDetail[0] != 0
	if v.haveDetailStats {
		detailFreqs, err := readFreqs(r)
		if err != nil {
			return err
		}
		v.detailStats = rans.StatsFromFreqs(detailFreqs)
	}
	return nil
}

func writeBrickMeta(w *bufio.Writer, m brickMeta) error {
	words := []uint32{
		m.rootLabel, boolWord(m.rootStopped),
		uint32(len(m.header.LevelEnds)), m.header.PaletteCount,
		uint32(m.nibbleCount), uint32(m.encodedBytes),
		uint32(m.detailNibbleCount), uint32(m.detailEncodedBytes),
		uint32(len(m.palette)),
	}
	if err := writeWords(w, words); err != nil {
		return err
	}
	if err := writeWords(w, m.header.LevelEnds); err != nil {
		return err
	}
	return writeWords(w, m.palette)
}

func readBrickMeta(r *bufio.Reader) (brickMeta, error) {
	words, err := readWords(r, 9)
	if err != nil {
		return brickMeta{}, err
	}
	m := brickMeta{
		rootLabel:          words[0],
		rootStopped:        words[1] != 0,
		nibbleCount:        int(words[4]),
		encodedBytes:       int(words[5]),
		detailNibbleCount:  int(words[6]),
		detailEncodedBytes: int(words[7]),
	}
	levelEndCount := int(words[2])
	paletteCount := words[3]
	paletteLen := int(words[8])

	levelEnds, err := readWords(r, levelEndCount)
	if err != nil {
		return brickMeta{}, err
	}
	m.header = lod.Header{LevelEnds: levelEnds, PaletteCount: paletteCount}

	m.palette, err = readWords(r, paletteLen)
	if err != nil {
		return brickMeta{}, err
	}
	return m, nil
}

func readFreqs(r *bufio.Reader) ([rans.NumSymbols]uint32, error) {
	var freqs [rans.NumSymbols]uint32
	words, err := readWords(r, rans.NumSymbols)
	if err != nil {
		return freqs, err
	}
	copy(freqs[:], words)
	return freqs, nil
}

// writeSplitVectors serializes a Manager's vectors, per-brick starts,
// and the brick_idx_to_enc_vector divisor B0 (stored once, not per
// brick: brick/B0 recovers which vector a brick lives in, per the
// "exact multiples of B0" rule every vector after the first obeys). A
// nil Manager writes B0 as UINT32_MAX, matching the sentinel Manager
// itself uses for "no rollover happened".
func writeSplitVectors(w *bufio.Writer, m *splitvec.Manager) error {
	if m == nil {
		return writeWords(w, []uint32{0, 0, 0xFFFFFFFF})
	}
	vectors := m.Vectors()
	if err := writeWords(w, []uint32{uint32(len(vectors))}); err != nil {
		return err
	}
	for _, vec := range vectors {
		if err := writeWords(w, []uint32{uint32(len(vec))}); err != nil {
			return err
		}
		if err := writeWords(w, vec); err != nil {
			return err
		}
	}
	starts := m.Starts()
	if err := writeWords(w, []uint32{uint32(len(starts))}); err != nil {
		return err
	}
	if err := writeWords(w, starts); err != nil {
		return err
	}
	b0 := m.BrickSize0()
	if b0 < 0 {
		return writeWords(w, []uint32{0xFFFFFFFF})
	}
	return writeWords(w, []uint32{uint32(b0)})
}

func readSplitVectors(r *bufio.Reader) (*splitvec.Manager, error) {
	header, err := readWords(r, 1)
	if err != nil {
		return nil, err
	}
	vectorCount := int(header[0])
	if vectorCount == 0 {
		if _, err := readWords(r, 2); err != nil {
			return nil, err
		}
		return nil, nil
	}
	vectors := make([][]uint32, vectorCount)
	for i := range vectors {
		lenWords, err := readWords(r, 1)
		if err != nil {
			return nil, err
		}
		vectors[i], err = readWords(r, int(lenWords[0]))
		if err != nil {
			return nil, err
		}
	}
	startCountWords, err := readWords(r, 1)
	if err != nil {
		return nil, err
	}
	brickCount := int(startCountWords[0])
	starts, err := readWords(r, brickCount)
	if err != nil {
		return nil, err
	}
	b0Words, err := readWords(r, 1)
	if err != nil {
		return nil, err
	}
	brickSize0 := -1
	if b0Words[0] != 0xFFFFFFFF {
		brickSize0 = int(b0Words[0])
	}
	return splitvec.Restore(0, vectors, starts, brickSize0), nil
}

func writeWords(w *bufio.Writer, words []uint32) error {
	var buf [4]byte
	for _, word := range words {
		binary.LittleEndian.PutUint32(buf[:], word)
		if _, err := w.Write(buf[:]); err != nil {
			return wrapError(IoError, "write word", err)
		}
	}
	return nil
}

func readWords(r *bufio.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return []uint32{}, nil
	}
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, wrapError(IoError, "read words", err)
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[4*i : 4*i+4])
	}
	return out, nil
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
