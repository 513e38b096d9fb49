package tokenstream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

const (
	FrameVersionV1 uint16 = 1

	frameHeaderSize = 32
	digestSize      = 32
)

// FrameMagic is the 8-byte signature that starts every frame.
var FrameMagic = [8]byte{'T', 'K', 'S', 'T', 'R', 'M', '\n', 0x1A}

const (
	frameFlagCompressionMask    uint16 = 0x000F
	frameFlagHasUncompressedLen uint16 = 0x0010
	frameFlagHasDigest          uint16 = 0x0020
)

type frameHeaderV1 struct {
	Magic           [8]byte
	Version         uint16
	Flags           uint16
	Reserved        uint32
	PayloadLen      uint64
	UncompressedLen uint64
}

func (h frameHeaderV1) compression() Compression {
	return Compression(h.Flags & frameFlagCompressionMask)
}

func (h frameHeaderV1) hasUncompressedLen() bool {
	return h.Flags&frameFlagHasUncompressedLen != 0
}

func (h frameHeaderV1) hasDigest() bool {
	return h.Flags&frameFlagHasDigest != 0
}

func readFrameHeader(r io.Reader) (frameHeaderV1, error) {
	var buf [frameHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return frameHeaderV1{}, fmt.Errorf("%w: frame header: %v", ErrTruncated, err)
	}
	var h frameHeaderV1
	copy(h.Magic[:], buf[0:8])
	h.Version = binary.LittleEndian.Uint16(buf[8:10])
	h.Flags = binary.LittleEndian.Uint16(buf[10:12])
	h.Reserved = binary.LittleEndian.Uint32(buf[12:16])
	h.PayloadLen = binary.LittleEndian.Uint64(buf[16:24])
	h.UncompressedLen = binary.LittleEndian.Uint64(buf[24:32])
	return h, nil
}

func writeFrameHeader(w io.Writer, h frameHeaderV1) error {
	var buf [frameHeaderSize]byte
	copy(buf[0:8], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[8:10], h.Version)
	binary.LittleEndian.PutUint16(buf[10:12], h.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], h.Reserved)
	binary.LittleEndian.PutUint64(buf[16:24], h.PayloadLen)
	binary.LittleEndian.PutUint64(buf[24:32], h.UncompressedLen)
	_, err := w.Write(buf[:])
	return err
}

func validateFrameHeader(h frameHeaderV1, l Limits) error {
	if h.Magic != FrameMagic {
		return ErrInvalidMagic
	}
	if h.Version != FrameVersionV1 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Reserved != 0 {
		return fmt.Errorf("%w: reserved must be 0", ErrInvalidFrame)
	}
	if unknown := h.Flags &^ (frameFlagCompressionMask | frameFlagHasUncompressedLen | frameFlagHasDigest); unknown != 0 {
		return fmt.Errorf("%w: unknown flags 0x%04x", ErrInvalidFrame, unknown)
	}
	comp := h.compression()
	if !comp.valid() {
		return fmt.Errorf("%w: unknown compression %d", ErrInvalidFrame, comp)
	}
	if comp == CompNone {
		if h.hasUncompressedLen() || h.UncompressedLen != 0 {
			return fmt.Errorf("%w: uncompressed frame must not carry an uncompressed length", ErrInvalidFrame)
		}
	} else if !h.hasUncompressedLen() {
		return fmt.Errorf("%w: compressed frame must set HAS_UNCOMPRESSED_LEN", ErrInvalidFrame)
	}
	if h.PayloadLen > l.MaxFramePayload {
		return fmt.Errorf("%w: frame payload of %d bytes", ErrLimitExceeded, h.PayloadLen)
	}
	if h.UncompressedLen > l.MaxFrameUncompressed {
		return fmt.Errorf("%w: uncompressed payload of %d bytes", ErrLimitExceeded, h.UncompressedLen)
	}
	return nil
}

// WriteFrame writes payload to w wrapped in a frame: a 32-byte header, an
// optional BLAKE3 digest of payload, then the stored (possibly compressed)
// bytes. The default is zstd compression with a digest.
func WriteFrame(w io.Writer, payload []byte, opts ...FrameOption) error {
	cfg := newFrameConfig(opts)
	if !cfg.compression.valid() {
		return fmt.Errorf("%w: unknown compression %d", ErrInvalidFrame, cfg.compression)
	}
	stored, err := compressPayload(cfg.compression, payload)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, cfg.compression, err)
	}
	h := frameHeaderV1{
		Magic:      FrameMagic,
		Version:    FrameVersionV1,
		Flags:      uint16(cfg.compression),
		PayloadLen: uint64(len(stored)),
	}
	if cfg.compression != CompNone {
		h.Flags |= frameFlagHasUncompressedLen
		h.UncompressedLen = uint64(len(payload))
	}
	if cfg.digest {
		h.Flags |= frameFlagHasDigest
	}
	if err := writeFrameHeader(w, h); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkFailure, err)
	}
	if cfg.digest {
		sum := blake3.Sum256(payload)
		if _, err := w.Write(sum[:]); err != nil {
			return fmt.Errorf("%w: %v", ErrSinkFailure, err)
		}
	}
	if _, err := w.Write(stored); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkFailure, err)
	}
	return nil
}

// ReadFrame reads one frame from r and returns its uncompressed payload. A
// stored digest is always verified.
func ReadFrame(r io.Reader, opts ...FrameOption) ([]byte, error) {
	cfg := newFrameConfig(opts)
	h, err := readFrameHeader(r)
	if err != nil {
		return nil, err
	}
	if err := validateFrameHeader(h, cfg.limits); err != nil {
		return nil, err
	}
	var want [digestSize]byte
	if h.hasDigest() {
		if _, err := io.ReadFull(r, want[:]); err != nil {
			return nil, fmt.Errorf("%w: frame digest: %v", ErrTruncated, err)
		}
	}
	stored := make([]byte, h.PayloadLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, fmt.Errorf("%w: frame payload: %v", ErrTruncated, err)
	}
	expected := h.UncompressedLen
	if h.compression() == CompNone {
		if h.PayloadLen > cfg.limits.MaxFrameUncompressed {
			return nil, fmt.Errorf("%w: uncompressed payload of %d bytes", ErrLimitExceeded, h.PayloadLen)
		}
		expected = h.PayloadLen
	}
	payload, err := decompressPayload(h.compression(), stored, expected)
	if err != nil {
		return nil, err
	}
	if h.hasDigest() && blake3.Sum256(payload) != want {
		return nil, ErrChecksum
	}
	return payload, nil
}

// Marshal encodes v as a plain record: its fields form the top level of the
// returned stream.
func Marshal(v Marshaler, opts ...EncoderOption) ([]byte, error) {
	e := NewBufferEncoder(opts...)
	v.MarshalTokenStream(e.Enc())
	if err := e.Err(); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Unmarshal decodes a stream produced by Marshal into v.
func Unmarshal(data []byte, v Unmarshaler, opts ...DecoderOption) error {
	d := NewDecoderBytes(data, opts...)
	v.UnmarshalTokenStream(d)
	return d.Err()
}

// MarshalFrame encodes v and wraps the result in a frame.
func MarshalFrame(v Marshaler, opts ...FrameOption) ([]byte, error) {
	payload, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalFrame reads a frame produced by MarshalFrame and decodes its
// payload into v, applying the frame limits to the decoder as well.
func UnmarshalFrame(data []byte, v Unmarshaler, opts ...FrameOption) error {
	cfg := newFrameConfig(opts)
	payload, err := ReadFrame(bytes.NewReader(data), opts...)
	if err != nil {
		return err
	}
	return Unmarshal(payload, v, WithLimits(cfg.limits))
}
