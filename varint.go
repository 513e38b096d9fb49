package tokenstream

import (
	"encoding/binary"
	"fmt"
)

// Wire markers for length-encoded integers.
const (
	shortLimit    = 0x80   // values below are a single literal byte
	wordLimit     = 0x7800 // values below use the two-byte form
	wordFlag      = 0x80
	runMarker     = 0xF8 // token position only: run header follows
	explicitBase  = 0xF7 // first byte = explicitBase + magnitude byte count
	maxVarintSize = 9
)

// LengthSize returns the number of bytes AppendLength uses for v.
func LengthSize(v uint64) int {
	switch {
	case v < shortLimit:
		return 1
	case v < wordLimit:
		return 2
	}
	return 1 + magnitudeBytes(v)
}

// AppendLength appends the length-encoded form of v to dst.
func AppendLength(dst []byte, v uint64) []byte {
	switch {
	case v < shortLimit:
		return append(dst, byte(v))
	case v < wordLimit:
		return append(dst, byte(v>>8)|wordFlag, byte(v))
	}
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], v)
	n := magnitudeBytes(v)
	dst = append(dst, byte(explicitBase+n))
	return append(dst, be[8-n:]...)
}

// ConsumeLength decodes one length-encoded integer from the front of src and
// returns it with the number of bytes used. The run marker is rejected; use
// ConsumeToken where a token is expected.
func ConsumeLength(src []byte) (uint64, int, error) {
	if len(src) == 0 {
		return 0, 0, ErrTruncated
	}
	first := src[0]
	switch {
	case first < shortLimit:
		return uint64(first), 1, nil
	case first < runMarker:
		if len(src) < 2 {
			return 0, 0, ErrTruncated
		}
		return uint64(first&0x7F)<<8 | uint64(src[1]), 2, nil
	case first == runMarker:
		return 0, 0, fmt.Errorf("%w: run marker in length position", ErrMalformedLength)
	}
	k := int(first - explicitBase)
	if len(src) < 1+k {
		return 0, 0, ErrTruncated
	}
	return explicitValue(src[1 : 1+k]), 1 + k, nil
}

// ConsumeToken decodes a token from the front of src. If one or more run
// headers precede it, count holds the last run count seen; otherwise count is 0.
func ConsumeToken(src []byte) (t Token, count uint64, n int, err error) {
	for len(src[n:]) > 0 && src[n] == runMarker {
		n++
		c, used, err := ConsumeLength(src[n:])
		if err != nil {
			return InvalidToken, 0, 0, err
		}
		count = c
		n += used
	}
	v, used, err := ConsumeLength(src[n:])
	if err != nil {
		return InvalidToken, 0, 0, err
	}
	return Token(v), count, n + used, nil
}

// AppendRunHeader appends the run marker and count that precede the first
// element of a compacted run.
func AppendRunHeader(dst []byte, count uint64) []byte {
	return AppendLength(append(dst, runMarker), count)
}

func explicitValue(b []byte) uint64 {
	var be [8]byte
	copy(be[8-len(b):], b)
	return binary.BigEndian.Uint64(be[:])
}

// magnitudeBytes is the big-endian byte count of v with leading zeros
// stripped, never less than one.
func magnitudeBytes(v uint64) int {
	n := 1
	for v >>= 8; v != 0; v >>= 8 {
		n++
	}
	return n
}
