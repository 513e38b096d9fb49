package tokenstream

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"unicode/utf16"
)

// scopeContext is the part of the cursor that a Scope narrows and restores.
type scopeContext struct {
	end      uint64 // absolute offset where the active region stops
	runToken Token
	runCount uint64
	runIndex uint64 // elements of the run already handed out
	runEnd   uint64 // offset where the current run element stops
}

func (c scopeContext) inRun() bool {
	return c.runCount > 0
}

// Decoder is a forward-only cursor over one encoded region.
//
// Typical use reads a token, then reads the value for that token:
//
//	for !d.AtEnd() {
//		switch d.NextToken() {
//		case tokName:
//			rec.Name = d.String()
//		case tokSize:
//			rec.Size = d.Uint32()
//		}
//	}
//
// Tokens that are not handled are skipped by the following NextToken call.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r      io.Reader
	seeker io.Seeker

	offset    uint64
	remaining uint64 // unread bytes of the current element
	runHint   uint64 // count from the run header that preceded the last token
	last      Token
	pushed    bool
	ctx       scopeContext
	depth     int

	err     error
	limits  Limits
	logger  *slog.Logger
	scratch [8]byte
}

// NewDecoder returns a Decoder over the bytes between the current position of
// r and its end. The length is determined by seeking.
func NewDecoder(r io.ReadSeeker, opts ...DecoderOption) *Decoder {
	d := newDecoder(r, opts)
	d.seeker = r
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		d.fail(fmt.Errorf("%w: %v", ErrTruncated, err))
		return d
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		d.fail(fmt.Errorf("%w: %v", ErrTruncated, err))
		return d
	}
	if _, err := r.Seek(cur, io.SeekStart); err != nil {
		d.fail(fmt.Errorf("%w: %v", ErrTruncated, err))
		return d
	}
	d.ctx.end = uint64(end - cur)
	return d
}

// NewDecoderBytes returns a Decoder over b.
func NewDecoderBytes(b []byte, opts ...DecoderOption) *Decoder {
	return NewDecoder(bytes.NewReader(b), opts...)
}

// NewDecoderSize returns a Decoder over the next size bytes of r. Use it for
// sources that cannot seek; skipped bytes are read and discarded.
func NewDecoderSize(r io.Reader, size uint64, opts ...DecoderOption) *Decoder {
	d := newDecoder(r, opts)
	if s, ok := r.(io.Seeker); ok {
		d.seeker = s
	}
	d.ctx.end = size
	return d
}

func newDecoder(r io.Reader, opts []DecoderOption) *Decoder {
	cfg := newDecoderConfig(opts)
	return &Decoder{
		r:      r,
		last:   InvalidToken,
		limits: cfg.limits,
		logger: cfg.logger,
	}
}

// Err returns the error that put the Decoder in its failed state, or nil.
func (d *Decoder) Err() error { return d.err }

// Good reports whether the Decoder has not failed.
func (d *Decoder) Good() bool { return d.err == nil }

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() uint64 { return d.offset }

// Remaining returns the unread byte count of the current element.
func (d *Decoder) Remaining() uint64 { return d.remaining }

// LastToken returns the token most recently returned by NextToken.
func (d *Decoder) LastToken() Token { return d.last }

// RunCount returns the element count announced by a run header directly in
// front of the last token, or 0 when the token did not start a run.
func (d *Decoder) RunCount() uint64 { return d.runHint }

// AtEnd reports whether the Decoder has failed or has consumed the active
// region with no pushed-back token pending.
func (d *Decoder) AtEnd() bool {
	return d.err != nil || (d.offset >= d.ctx.end && !d.pushed)
}

// PushBack makes the next NextToken call return the last token again.
func (d *Decoder) PushBack() {
	d.pushed = true
}

// NextToken skips whatever is left of the previous element and returns the
// token of the next one. It returns InvalidToken at the end of the region or
// once the Decoder has failed.
func (d *Decoder) NextToken() Token {
	if d.err != nil {
		return InvalidToken
	}
	if d.pushed {
		d.pushed = false
		return d.last
	}
	if d.remaining > 0 {
		d.Skip()
	}

	d.runHint = 0
	setRunEnd := false
	if d.ctx.inRun() && d.ctx.runEnd == d.offset {
		if d.pastEnd(1) {
			d.fail(fmt.Errorf("%w: run of %d ends after %d elements", ErrTruncated, d.ctx.runCount, d.ctx.runIndex))
			return InvalidToken
		}
		d.last = d.ctx.runToken
		d.ctx.runIndex++
		if d.ctx.runIndex == d.ctx.runCount {
			d.ctx.runToken, d.ctx.runCount, d.ctx.runIndex, d.ctx.runEnd = InvalidToken, 0, 0, 0
		} else {
			setRunEnd = true
		}
	} else {
		if d.offset >= d.ctx.end {
			d.last = InvalidToken
			return InvalidToken
		}
		if d.pastEnd(2) {
			d.fail(fmt.Errorf("%w: element header at offset %d", ErrTruncated, d.offset))
			return InvalidToken
		}
		d.last = Token(d.readLength(true))
		if d.runHint > 1 {
			d.ctx.runToken = d.last
			d.ctx.runCount = d.runHint
			d.ctx.runIndex = 1
			setRunEnd = true
		}
	}
	if d.err != nil {
		return InvalidToken
	}

	d.remaining = d.readLength(false)
	if d.err != nil {
		return InvalidToken
	}
	if d.remaining > d.limits.MaxElementLen {
		d.fail(fmt.Errorf("%w: element of %d bytes", ErrLimitExceeded, d.remaining))
		return InvalidToken
	}
	if d.pastEnd(d.remaining) {
		d.fail(fmt.Errorf("%w: element of %d bytes at offset %d crosses region end %d", ErrTruncated, d.remaining, d.offset, d.ctx.end))
		return InvalidToken
	}
	if setRunEnd {
		d.ctx.runEnd = d.offset + d.remaining
	}
	return d.last
}

// prealloc is the capacity worth reserving for a container whose first
// element was just read.
func (d *Decoder) prealloc() int {
	return int(min(d.runHint, uint64(d.limits.MaxPrealloc)))
}

// Skip discards the unread bytes of the current element.
func (d *Decoder) Skip() {
	d.skipBytes(d.remaining)
}

func (d *Decoder) Bool() bool {
	return d.Uint8() == 1
}

func (d *Decoder) Uint8() uint8 {
	return uint8(widenUnsigned(d.fetch(1)))
}

func (d *Decoder) Int8() int8 {
	return int8(widenUnsigned(d.fetch(1)))
}

func (d *Decoder) Uint16() uint16 {
	return uint16(widenUnsigned(d.fetch(2)))
}

func (d *Decoder) Int16() int16 {
	return int16(widenSigned(d.fetch(2), 2))
}

func (d *Decoder) Uint32() uint32 {
	return uint32(widenUnsigned(d.fetch(4)))
}

func (d *Decoder) Int32() int32 {
	return int32(widenSigned(d.fetch(4), 4))
}

func (d *Decoder) Uint64() uint64 {
	return widenUnsigned(d.fetch(8))
}

func (d *Decoder) Int64() int64 {
	return int64(widenSigned(d.fetch(8), 8))
}

func (d *Decoder) Float32() float32 {
	return math.Float32frombits(uint32(widenFloat(d.fetch(4), 4)))
}

func (d *Decoder) Float64() float64 {
	return math.Float64frombits(widenFloat(d.fetch(8), 8))
}

// Bytes returns the payload of the current element. A zero-length element
// yields an empty slice.
func (d *Decoder) Bytes() []byte {
	n := d.remaining
	if d.err != nil {
		d.remaining = 0
		return nil
	}
	if n == 0 {
		return []byte{}
	}
	b := make([]byte, n)
	if !d.readFull(b) {
		return nil
	}
	d.remaining = 0
	return b
}

// String returns the payload of the current element as text. The payload is
// UTF-8 and carries no terminator.
func (d *Decoder) String() string {
	return string(d.Bytes())
}

// UTF16 returns the current element, stored as UTF-8, as UTF-16 code units.
func (d *Decoder) UTF16() []uint16 {
	s := d.String()
	if s == "" {
		return nil
	}
	return utf16.Encode([]rune(s))
}

// Runes returns the current element, stored as UTF-8, as code points.
func (d *Decoder) Runes() []rune {
	s := d.String()
	if s == "" {
		return nil
	}
	return []rune(s)
}

// Object decodes a nested record into v, limiting v to the current element.
// Bytes that v leaves unread are skipped.
func (d *Decoder) Object(v Unmarshaler) {
	s := d.EnterScope()
	defer s.Exit()
	if d.err == nil {
		v.UnmarshalTokenStream(d)
	}
}

// fetch consumes the current element as a scalar of width bytes.
func (d *Decoder) fetch(width int) []byte {
	if d.err != nil {
		return nil
	}
	n := d.remaining
	if n > uint64(width) {
		d.fail(fmt.Errorf("%w: %d-byte element read as %d-byte scalar", ErrInvalidPayload, n, width))
		return nil
	}
	b := d.scratch[:n]
	if !d.readFull(b) {
		return nil
	}
	d.remaining = 0
	return b
}

// readLength decodes a length-encoded integer. In token position run headers
// are absorbed into runHint; a nested header replaces the count of the
// previous one.
func (d *Decoder) readLength(forToken bool) uint64 {
	for d.err == nil {
		if d.pastEnd(1) {
			d.fail(fmt.Errorf("%w: length at offset %d", ErrTruncated, d.offset))
			return 0
		}
		first, ok := d.readByte()
		if !ok {
			return 0
		}
		switch {
		case first < shortLimit:
			return uint64(first)
		case first < runMarker:
			if d.pastEnd(1) {
				d.fail(fmt.Errorf("%w: two-byte length at offset %d", ErrTruncated, d.offset))
				return 0
			}
			lo, ok := d.readByte()
			if !ok {
				return 0
			}
			return uint64(first&0x7F)<<8 | uint64(lo)
		case first == runMarker:
			if !forToken {
				d.fail(fmt.Errorf("%w: run marker at offset %d", ErrMalformedLength, d.offset-1))
				return 0
			}
			d.runHint = d.readLength(false)
			continue
		}
		k := uint64(first - explicitBase)
		if d.pastEnd(k) {
			d.fail(fmt.Errorf("%w: %d-byte length at offset %d", ErrTruncated, k, d.offset))
			return 0
		}
		b := d.scratch[:k]
		if !d.readFull(b) {
			return 0
		}
		return explicitValue(b)
	}
	return 0
}

func (d *Decoder) readByte() (byte, bool) {
	if !d.readFull(d.scratch[:1]) {
		return 0, false
	}
	return d.scratch[0], true
}

func (d *Decoder) readFull(p []byte) bool {
	if d.err != nil {
		return false
	}
	n, err := io.ReadFull(d.r, p)
	d.offset += uint64(n)
	if err != nil {
		d.fail(fmt.Errorf("%w: %v", ErrTruncated, err))
		return false
	}
	return true
}

func (d *Decoder) skipBytes(n uint64) {
	d.pushed = false
	d.remaining = 0
	if d.err != nil || n == 0 {
		return
	}
	if d.seeker != nil {
		if _, err := d.seeker.Seek(int64(n), io.SeekCurrent); err == nil {
			d.offset += n
			return
		}
	}
	copied, err := io.CopyN(io.Discard, d.r, int64(n))
	d.offset += uint64(copied)
	if err != nil {
		d.fail(fmt.Errorf("%w: skipping %d bytes: %v", ErrTruncated, n, err))
	}
}

// pastEnd reports whether consuming n more bytes would cross the region end.
func (d *Decoder) pastEnd(n uint64) bool {
	return d.offset > d.ctx.end || n > d.ctx.end-d.offset
}

func (d *Decoder) fail(err error) {
	if d.err != nil {
		return
	}
	d.err = err
	d.last = InvalidToken
	d.logger.Debug("tokenstream: decoder failed", "offset", d.offset, "err", err)
}
