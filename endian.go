package tokenstream

import (
	"encoding/binary"
	"math"
)

// Integers travel big-endian with redundant leading bytes stripped. Floats
// travel in little-endian order, the byte order of the hosts that defined the
// format; the two orders differ on purpose and must not be unified.

// putUint writes v big-endian into the low width bytes of buf and returns
// that window.
func putUint(buf *[8]byte, v uint64, width int) []byte {
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[8-width:]
}

func putFloat32(buf *[8]byte, v float32) []byte {
	binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
	return buf[:4]
}

func putFloat64(buf *[8]byte, v float64) []byte {
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return buf[:]
}

// stripUnsigned drops leading zero bytes, keeping at least one.
func stripUnsigned(b []byte) []byte {
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}
	return b
}

// stripSigned drops leading bytes that sign extension restores: 0xFF bytes
// followed by a byte with the sign bit set, or zero bytes followed by one
// without it.
func stripSigned(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	if b[0] == 0xFF {
		for len(b) > 1 && b[0] == 0xFF && b[1]&0x80 != 0 {
			b = b[1:]
		}
		return b
	}
	orig := b
	b = stripUnsigned(b)
	if len(b) < len(orig) && b[0]&0x80 != 0 {
		// keep one zero so the value does not read back negative
		b = orig[len(orig)-len(b)-1:]
	}
	return b
}

// widenUnsigned right-aligns payload, zero filled.
func widenUnsigned(payload []byte) uint64 {
	var buf [8]byte
	copy(buf[8-len(payload):], payload)
	return binary.BigEndian.Uint64(buf[:])
}

// widenSigned right-aligns payload in width bytes, filling the omitted high
// bytes with 0xFF when the first captured byte has its sign bit set.
func widenSigned(payload []byte, width int) uint64 {
	var buf [8]byte
	start := 8 - len(payload)
	copy(buf[start:], payload)
	if len(payload) > 0 && len(payload) < width && payload[0]&0x80 != 0 {
		for i := 8 - width; i < start; i++ {
			buf[i] = 0xFF
		}
	}
	return binary.BigEndian.Uint64(buf[:])
}

// widenFloat places payload at the high-order end of a little-endian buffer
// of width bytes, mirroring how a short float payload lands in memory.
func widenFloat(payload []byte, width int) uint64 {
	var buf [8]byte
	copy(buf[width-len(payload):width], payload)
	return binary.LittleEndian.Uint64(buf[:])
}
