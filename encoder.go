package tokenstream

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf16"
)

// Encoder writes elements to an io.Writer.
//
// By default an Encoder trims defaults: a field whose value equals its
// default is not written at all, and a reader that starts from zeroed values
// sees the default. Readers must therefore reset every field before decoding.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	w       io.Writer
	written uint64
	pending Token
	trim    bool

	runToken Token
	runCount uint64
	runIndex uint64 // run elements already written

	err     error
	logger  *slog.Logger
	scratch [maxVarintSize]byte
	num     [8]byte
}

// NewEncoder returns an Encoder that appends to w.
func NewEncoder(w io.Writer, opts ...EncoderOption) *Encoder {
	cfg := newEncoderConfig(opts)
	return &Encoder{
		w:        w,
		pending:  InvalidToken,
		trim:     cfg.trimDefaults,
		runToken: InvalidToken,
		logger:   cfg.logger,
	}
}

// BufferEncoder is an Encoder that collects its output in memory.
type BufferEncoder struct {
	Encoder
	buf bytes.Buffer
}

// NewBufferEncoder returns an Encoder writing to an internal buffer.
func NewBufferEncoder(opts ...EncoderOption) *BufferEncoder {
	b := &BufferEncoder{}
	b.Encoder = *NewEncoder(&b.buf, opts...)
	return b
}

// Bytes returns the encoded output. It aliases the internal buffer.
func (b *BufferEncoder) Bytes() []byte { return b.buf.Bytes() }

// Enc returns the embedded Encoder, for the functions that take one.
func (b *BufferEncoder) Enc() *Encoder { return &b.Encoder }

// sub returns an isolated in-memory encoder that inherits the trim policy and
// logger but none of e's token or run state.
func (e *Encoder) sub() *BufferEncoder {
	return NewBufferEncoder(WithTrimDefaults(e.trim), WithEncoderLogger(e.logger))
}

// Err returns the error that put the Encoder in its failed state, or nil.
func (e *Encoder) Err() error { return e.err }

// Good reports whether the Encoder has not failed.
func (e *Encoder) Good() bool { return e.err == nil }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() uint64 { return e.written }

// TrimDefaults reports whether default values are currently omitted.
func (e *Encoder) TrimDefaults() bool { return e.trim }

// SetTrimDefaults changes the trim policy and returns a function restoring the
// previous one, for use with defer.
func (e *Encoder) SetTrimDefaults(v bool) (restore func()) {
	old := e.trim
	e.trim = v
	return func() { e.trim = old }
}

// PutToken announces the token of the next value written with Value.
// Announcing a second token before the first is consumed fails the Encoder.
func (e *Encoder) PutToken(t Token) *Encoder {
	if e.pending.Valid() {
		e.fail(fmt.Errorf("%w: token %d announced while %d is pending", ErrProtocolMisuse, t, e.pending))
		return e
	}
	e.pending = t
	return e
}

// Pending returns the announced token awaiting a value, or InvalidToken.
func (e *Encoder) Pending() Token { return e.pending }

// Value writes v under the pending token. Supported are bools, sized integers,
// floats, string, []byte, []rune, []uint16 (UTF-16) and Marshaler.
func (e *Encoder) Value(v any) *Encoder {
	t := e.pending
	if !t.Valid() {
		e.fail(fmt.Errorf("%w: value written with no pending token", ErrProtocolMisuse))
		return e
	}
	switch x := v.(type) {
	case bool:
		e.PutBool(t, x)
	case uint8:
		e.PutUint8(t, x)
	case int8:
		e.PutInt8(t, x)
	case uint16:
		e.PutUint16(t, x)
	case int16:
		e.PutInt16(t, x)
	case uint32:
		e.PutUint32(t, x)
	case int32:
		e.PutInt32(t, x)
	case uint64:
		e.PutUint64(t, x)
	case int64:
		e.PutInt64(t, x)
	case int:
		e.PutInt64(t, int64(x))
	case uint:
		e.PutUint64(t, uint64(x))
	case float32:
		e.PutFloat32(t, x)
	case float64:
		e.PutFloat64(t, x)
	case string:
		e.PutString(t, x)
	case []byte:
		e.PutBytes(t, x)
	case []rune:
		e.PutRunes(t, x)
	case []uint16:
		e.PutUTF16(t, x)
	case Marshaler:
		e.PutObject(t, x, false)
	default:
		e.pending = InvalidToken
		e.fail(fmt.Errorf("%w: unsupported value type %T", ErrProtocolMisuse, v))
	}
	return e
}

func (e *Encoder) PutBool(t Token, v bool) *Encoder {
	return e.PutBoolDefault(t, v, false)
}

func (e *Encoder) PutBoolDefault(t Token, v, def bool) *Encoder {
	var b, d uint8
	if v {
		b = 1
	}
	if def {
		d = 1
	}
	return e.PutUint8Default(t, b, d)
}

func (e *Encoder) PutUint8(t Token, v uint8) *Encoder { return e.PutUint8Default(t, v, 0) }
func (e *Encoder) PutInt8(t Token, v int8) *Encoder   { return e.PutInt8Default(t, v, 0) }
func (e *Encoder) PutUint16(t Token, v uint16) *Encoder {
	return e.PutUint16Default(t, v, 0)
}
func (e *Encoder) PutInt16(t Token, v int16) *Encoder { return e.PutInt16Default(t, v, 0) }
func (e *Encoder) PutUint32(t Token, v uint32) *Encoder {
	return e.PutUint32Default(t, v, 0)
}
func (e *Encoder) PutInt32(t Token, v int32) *Encoder { return e.PutInt32Default(t, v, 0) }
func (e *Encoder) PutUint64(t Token, v uint64) *Encoder {
	return e.PutUint64Default(t, v, 0)
}
func (e *Encoder) PutInt64(t Token, v int64) *Encoder { return e.PutInt64Default(t, v, 0) }
func (e *Encoder) PutFloat32(t Token, v float32) *Encoder {
	return e.PutFloat32Default(t, v, 0)
}
func (e *Encoder) PutFloat64(t Token, v float64) *Encoder {
	return e.PutFloat64Default(t, v, 0)
}

// Single bytes are never sign-extended: int8 travels as its raw byte.
func (e *Encoder) PutUint8Default(t Token, v, def uint8) *Encoder {
	return e.putUnsigned(t, uint64(v), 1, v == def)
}

func (e *Encoder) PutInt8Default(t Token, v, def int8) *Encoder {
	return e.putUnsigned(t, uint64(uint8(v)), 1, v == def)
}

func (e *Encoder) PutUint16Default(t Token, v, def uint16) *Encoder {
	return e.putUnsigned(t, uint64(v), 2, v == def)
}

func (e *Encoder) PutInt16Default(t Token, v, def int16) *Encoder {
	return e.putSigned(t, uint64(uint16(v)), 2, v == def)
}

func (e *Encoder) PutUint32Default(t Token, v, def uint32) *Encoder {
	return e.putUnsigned(t, uint64(v), 4, v == def)
}

func (e *Encoder) PutInt32Default(t Token, v, def int32) *Encoder {
	return e.putSigned(t, uint64(uint32(v)), 4, v == def)
}

func (e *Encoder) PutUint64Default(t Token, v, def uint64) *Encoder {
	return e.putUnsigned(t, v, 8, v == def)
}

func (e *Encoder) PutInt64Default(t Token, v, def int64) *Encoder {
	return e.putSigned(t, uint64(v), 8, v == def)
}

// Floats are always written at full width.
func (e *Encoder) PutFloat32Default(t Token, v, def float32) *Encoder {
	if e.skipDefault(v == def) {
		return e
	}
	e.putData(t, putFloat32(&e.num, v))
	return e
}

func (e *Encoder) PutFloat64Default(t Token, v, def float64) *Encoder {
	if e.skipDefault(v == def) {
		return e
	}
	e.putData(t, putFloat64(&e.num, v))
	return e
}

// PutString writes s as UTF-8. An empty string is omitted when trimming.
func (e *Encoder) PutString(t Token, s string) *Encoder {
	return e.PutStringDefault(t, s, "")
}

// PutStringDefault writes s unless trimming is on and s equals def. An empty
// s that differs from a non-empty def is written as a zero-length element.
func (e *Encoder) PutStringDefault(t Token, s, def string) *Encoder {
	if !e.trim || s != def {
		if s == "" {
			restore := e.SetTrimDefaults(false)
			e.putData(t, nil)
			restore()
		} else {
			e.putHeader(t, uint64(len(s)))
			e.write([]byte(s))
		}
	}
	e.pending = InvalidToken
	return e
}

// PutBytes writes b verbatim. An empty b is omitted when trimming.
func (e *Encoder) PutBytes(t Token, b []byte) *Encoder {
	e.putData(t, b)
	return e
}

// PutUTF16 writes UTF-16 code units as UTF-8 text.
func (e *Encoder) PutUTF16(t Token, s []uint16) *Encoder {
	return e.PutString(t, string(utf16.Decode(s)))
}

// PutRunes writes code points as UTF-8 text.
func (e *Encoder) PutRunes(t Token, s []rune) *Encoder {
	return e.PutString(t, string(s))
}

// PutReader copies the rest of r as the payload of one element. The payload
// length is found by seeking to the end of r.
func (e *Encoder) PutReader(t Token, r io.ReadSeeker) *Encoder {
	if e.err != nil {
		return e
	}
	n, err := r.Seek(0, io.SeekEnd)
	if err == nil {
		_, err = r.Seek(0, io.SeekStart)
	}
	if err != nil {
		e.fail(fmt.Errorf("%w: sizing source: %v", ErrSinkFailure, err))
		return e
	}
	e.putHeader(t, uint64(n))
	if e.err != nil || n == 0 {
		return e
	}
	copied, err := io.CopyN(e.w, r, n)
	e.written += uint64(copied)
	if err != nil {
		e.fail(fmt.Errorf("%w: copying source: %v", ErrSinkFailure, err))
	}
	return e
}

// PutObject writes v as a nested record. v is encoded in isolation first; if
// it produces no bytes and trimming is on, the element is omitted unless
// keepStub is set, in which case a zero-length element marks it present.
func (e *Encoder) PutObject(t Token, v Marshaler, keepStub bool) *Encoder {
	if e.err != nil {
		e.pending = InvalidToken
		return e
	}
	if isNilRecord(v) {
		v = emptyRecord
	}
	sub := e.sub()
	v.MarshalTokenStream(sub.Enc())
	if err := sub.Err(); err != nil {
		e.pending = InvalidToken
		e.fail(err)
		return e
	}
	restore := e.SetTrimDefaults(e.trim && !keepStub)
	e.putData(t, sub.Bytes())
	restore()
	return e
}

// PutRunCount announces that the next n elements share token t. The token is
// then written once, in front of the first element. Counts below two are
// ignored; the elements are written normally.
func (e *Encoder) PutRunCount(t Token, n uint64) *Encoder {
	if e.err != nil || n < 2 {
		return e
	}
	if e.runToken.Valid() {
		e.fail(fmt.Errorf("%w: run for %d started inside run for %d", ErrProtocolMisuse, t, e.runToken))
		return e
	}
	e.runToken = t
	e.runCount = n
	e.runIndex = 0
	e.write(AppendRunHeader(e.scratch[:0], n))
	return e
}

func (e *Encoder) putUnsigned(t Token, v uint64, width int, isDefault bool) *Encoder {
	if e.skipDefault(isDefault) {
		return e
	}
	e.putData(t, stripUnsigned(putUint(&e.num, v, width)))
	return e
}

func (e *Encoder) putSigned(t Token, v uint64, width int, isDefault bool) *Encoder {
	if e.skipDefault(isDefault) {
		return e
	}
	e.putData(t, stripSigned(putUint(&e.num, v, width)))
	return e
}

// skipDefault clears the pending token and reports true when a default value
// must be omitted.
func (e *Encoder) skipDefault(isDefault bool) bool {
	if e.trim && isDefault {
		e.pending = InvalidToken
		return true
	}
	return false
}

func (e *Encoder) putData(t Token, payload []byte) {
	if e.err != nil {
		e.pending = InvalidToken
		return
	}
	e.putHeader(t, uint64(len(payload)))
	if len(payload) > 0 {
		e.write(payload)
	}
}

// putHeader writes token and length unless the element is empty and trimmed.
// Inside a run only the first element carries the token.
func (e *Encoder) putHeader(t Token, n uint64) {
	e.pending = InvalidToken
	if e.err != nil || (n == 0 && e.trim) {
		return
	}
	switch {
	case e.runToken.Valid():
		if t != e.runToken {
			e.fail(fmt.Errorf("%w: token %d written inside run for %d", ErrProtocolMisuse, t, e.runToken))
			return
		}
		if e.runIndex == 0 {
			e.writeLength(uint64(t))
		}
		e.runIndex++
		if e.runIndex == e.runCount {
			e.runToken, e.runCount, e.runIndex = InvalidToken, 0, 0
		}
	case !t.Valid():
		// Only the first element of a stream may go without a token.
		if e.written > 0 {
			e.fail(fmt.Errorf("%w: missing token at offset %d", ErrProtocolMisuse, e.written))
			return
		}
	default:
		e.writeLength(uint64(t))
	}
	e.writeLength(n)
}

func (e *Encoder) writeLength(v uint64) {
	e.write(AppendLength(e.scratch[:0], v))
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.written += uint64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.fail(fmt.Errorf("%w: %v", ErrSinkFailure, err))
	}
}

func (e *Encoder) fail(err error) {
	if e.err != nil {
		return
	}
	e.err = err
	e.logger.Debug("tokenstream: encoder failed", "offset", e.written, "err", err)
}
