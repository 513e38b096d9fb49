package tokenstream

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how a frame stores its payload.
type Compression uint16

const (
	CompNone Compression = 0x0
	CompZIP  Compression = 0x1
	CompZSTD Compression = 0x2
	CompLZ4  Compression = 0x3
	CompBR   Compression = 0x4
)

func (c Compression) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompZIP:
		return "zip"
	case CompZSTD:
		return "zstd"
	case CompLZ4:
		return "lz4"
	case CompBR:
		return "brotli"
	}
	return fmt.Sprintf("compression(%d)", uint16(c))
}

func (c Compression) valid() bool {
	switch c {
	case CompNone, CompZIP, CompZSTD, CompLZ4, CompBR:
		return true
	}
	return false
}

// zipEntryName is the single entry of a ZIP-compressed payload.
const zipEntryName = "payload.tks"

// Function variables for testing injection.
var (
	newZstdWriter = func() (*zstd.Encoder, error) { return zstd.NewWriter(nil) }
	newZstdReader = func() (*zstd.Decoder, error) { return zstd.NewReader(nil) }
	zipCreate     = func(zw *zip.Writer, name string) (io.Writer, error) { return zw.Create(name) }
	zipClose      = func(zw *zip.Writer) error { return zw.Close() }
	zipOpen       = func(zf *zip.File) (io.ReadCloser, error) { return zf.Open() }
	readAll       = io.ReadAll
	lz4Close      = func(w *lz4.Writer) error { return w.Close() }
	brotliClose   = func(w *brotli.Writer) error { return w.Close() }
	brotliWrite   = func(w *brotli.Writer, p []byte) (int, error) { return w.Write(p) }
)

// compressPayload compresses raw with comp. CompNone returns raw unchanged.
func compressPayload(comp Compression, raw []byte) ([]byte, error) {
	switch comp {
	case CompNone:
		return raw, nil
	case CompZIP:
		return zipCompress(raw)
	case CompZSTD:
		return zstdCompress(raw)
	case CompLZ4:
		return lz4Compress(raw)
	case CompBR:
		return brotliCompress(raw)
	}
	return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidFrame, comp)
}

// decompressPayload reverses compressPayload. expected is the uncompressed
// length recorded in the frame header; output of any other length is rejected.
func decompressPayload(comp Compression, stored []byte, expected uint64) ([]byte, error) {
	var out []byte
	var err error
	switch comp {
	case CompNone:
		out = stored
	case CompZIP:
		out, err = zipDecompress(stored, expected)
	case CompZSTD:
		out, err = zstdDecompress(stored, expected)
	case CompLZ4:
		out, err = lz4Decompress(stored, expected)
	case CompBR:
		out, err = brotliDecompress(stored, expected)
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidFrame, comp)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, comp, err)
	}
	if uint64(len(out)) != expected {
		return nil, fmt.Errorf("%w: decompressed length %d != expected %d", ErrInvalidPayload, len(out), expected)
	}
	return out, nil
}

func zipCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := zipCompressNamed(&buf, zipEntryName, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zipCompressNamed(w io.Writer, name string, in []byte) error {
	zw := zip.NewWriter(w)
	entry, err := zipCreate(zw, name)
	if err != nil {
		_ = zipClose(zw)
		return err
	}
	if _, err := entry.Write(in); err != nil {
		_ = zipClose(zw)
		return err
	}
	return zipClose(zw)
}

// zipDecompress extracts the single payload entry from a ZIP archive and
// checks its declared size against expected before inflating it.
func zipDecompress(zipBytes []byte, expected uint64) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) != 1 {
		return nil, fmt.Errorf("zip must contain exactly one entry, got %d", len(zr.File))
	}
	zf := zr.File[0]
	if zf.Name != zipEntryName {
		return nil, fmt.Errorf("zip entry name must be %s", zipEntryName)
	}
	if zf.FileInfo().IsDir() {
		return nil, fmt.Errorf("zip entry must be a file")
	}
	if zf.UncompressedSize64 != expected {
		return nil, fmt.Errorf("zip uncompressed size %d != expected %d", zf.UncompressedSize64, expected)
	}
	rc, err := zipOpen(zf)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readAll(io.LimitReader(rc, int64(expected)))
}

func zstdCompress(in []byte) ([]byte, error) {
	enc, err := newZstdWriter()
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(in, nil), nil
}

func zstdDecompress(in []byte, expected uint64) ([]byte, error) {
	dec, err := newZstdReader()
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(in, make([]byte, 0, expected))
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) > expected {
		return nil, fmt.Errorf("zstd expanded beyond expected size")
	}
	return out, nil
}

func lz4Compress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := lz4CompressTo(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lz4CompressTo(w io.Writer, in []byte) error {
	zw := lz4.NewWriter(w)
	if _, err := zw.Write(in); err != nil {
		_ = lz4Close(zw)
		return err
	}
	return lz4Close(zw)
}

// lz4Decompress reads at most one byte past expected so oversized output is
// detected without inflating all of it.
func lz4Decompress(in []byte, expected uint64) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(in))
	b, err := readAll(io.LimitReader(r, int64(expected)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) > expected {
		return nil, fmt.Errorf("lz4 expanded beyond expected size")
	}
	return b, nil
}

func brotliCompress(in []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := brotliCompressTo(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func brotliCompressTo(w io.Writer, in []byte) error {
	bw := brotli.NewWriter(w)
	if _, err := brotliWrite(bw, in); err != nil {
		_ = brotliClose(bw)
		return err
	}
	return brotliClose(bw)
}

func brotliDecompress(in []byte, expected uint64) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(in))
	b, err := readAll(io.LimitReader(r, int64(expected)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) > expected {
		return nil, fmt.Errorf("brotli expanded beyond expected size")
	}
	return b, nil
}
