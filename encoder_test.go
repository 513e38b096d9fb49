package tokenstream

import (
	"bytes"
	"errors"
	"testing"
)

func encode(t *testing.T, fn func(e *Encoder), opts ...EncoderOption) []byte {
	t.Helper()
	e := NewBufferEncoder(opts...)
	fn(e.Enc())
	if err := e.Err(); err != nil {
		t.Fatal(err)
	}
	return e.Bytes()
}

func TestEncoder_TrimDefaults(t *testing.T) {
	got := encode(t, func(e *Encoder) {
		e.PutUint32(1, 0)
		e.PutBool(2, false)
		e.PutString(3, "")
		e.PutFloat64(4, 0)
		e.PutBytes(5, nil)
	})
	if len(got) != 0 {
		t.Fatalf("expected nothing written, got % x", got)
	}

	got = encode(t, func(e *Encoder) {
		e.PutUint32(1, 0)
		e.PutString(3, "")
	}, WithTrimDefaults(false))
	if want := []byte{0x01, 0x01, 0x00, 0x03, 0x00}; !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}
}

func TestEncoder_Integers(t *testing.T) {
	cases := []struct {
		name string
		fn   func(e *Encoder)
		want []byte
	}{
		{"int32 negative", func(e *Encoder) { e.PutInt32(4, -0x88) }, []byte{0x04, 0x02, 0xFF, 0x78}},
		{"uint32 small", func(e *Encoder) { e.PutUint32(6, 0xC0) }, []byte{0x06, 0x01, 0xC0}},
		{"int8 raw byte", func(e *Encoder) { e.PutInt8(2, -1) }, []byte{0x02, 0x01, 0xFF}},
		{"uint16 high bit", func(e *Encoder) { e.PutUint16(1, 0x8000) }, []byte{0x01, 0x02, 0x80, 0x00}},
		{"int16 keeps sign byte", func(e *Encoder) { e.PutInt16(1, 128) }, []byte{0x01, 0x02, 0x00, 0x80}},
		{"int64 minus one", func(e *Encoder) { e.PutInt64(9, -1) }, []byte{0x09, 0x01, 0xFF}},
		{"uint64 full", func(e *Encoder) { e.PutUint64(1, 1<<63) }, []byte{0x01, 0x08, 0x80, 0, 0, 0, 0, 0, 0, 0}},
		{"large token", func(e *Encoder) { e.PutUint8(300, 1) }, []byte{0x81, 0x2C, 0x01, 0x01}},
		{"float32", func(e *Encoder) { e.PutFloat32(1, 10.1) }, []byte{0x01, 0x04, 0x9A, 0x99, 0x21, 0x41}},
		{"non-default", func(e *Encoder) { e.PutUint32Default(13, 0, 4) }, []byte{0x0D, 0x01, 0x00}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := encode(t, tc.fn); !bytes.Equal(got, tc.want) {
				t.Fatalf("got % x want % x", got, tc.want)
			}
		})
	}
}

func TestEncoder_StringDefaults(t *testing.T) {
	got := encode(t, func(e *Encoder) {
		e.PutStringDefault(8, ".", ".")
		e.PutStringDefault(8, "", ".")
		e.PutStringDefault(8, "bin", ".")
	})
	want := []byte{0x08, 0x00, 0x08, 0x03, 'b', 'i', 'n'}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}
}

func TestEncoder_PendingToken(t *testing.T) {
	got := encode(t, func(e *Encoder) {
		e.PutToken(3).Value(uint16(300))
		e.PutToken(4).Value("hi")
		e.PutToken(5).Value([]rune("é"))
	})
	want := []byte{0x03, 0x02, 0x01, 0x2C, 0x04, 0x02, 'h', 'i', 0x05, 0x02, 0xC3, 0xA9}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}

	e := NewBufferEncoder()
	e.PutToken(1)
	if e.Pending() != 1 {
		t.Fatalf("pending %d", e.Pending())
	}
	e.Value(uint8(0))
	if e.Pending() != InvalidToken || e.Len() != 0 {
		t.Fatal("trimmed value must still consume the token")
	}
}

func TestEncoder_ProtocolMisuse(t *testing.T) {
	cases := map[string]func(e *Encoder){
		"second pending token": func(e *Encoder) { e.PutToken(1).PutToken(2) },
		"value without token":  func(e *Encoder) { e.Value(uint8(1)) },
		"unsupported value":    func(e *Encoder) { e.PutToken(1).Value(struct{}{}) },
		"missing token":        func(e *Encoder) { e.PutUint8(1, 1).PutUint8(InvalidToken, 2) },
		"run token mismatch":   func(e *Encoder) { e.PutRunCount(2, 2).PutUint8(3, 1) },
		"nested run":           func(e *Encoder) { e.PutRunCount(2, 2).PutRunCount(3, 2) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewBufferEncoder()
			fn(e.Enc())
			if !errors.Is(e.Err(), ErrProtocolMisuse) {
				t.Fatalf("expected ErrProtocolMisuse, got %v", e.Err())
			}
			if e.Good() {
				t.Fatal("Good must be false after failure")
			}
		})
	}
}

func TestEncoder_TokenlessFirstElement(t *testing.T) {
	got := encode(t, func(e *Encoder) {
		e.PutBytes(InvalidToken, []byte{0x01, 0x01, 0x2A})
	})
	if want := []byte{0x03, 0x01, 0x01, 0x2A}; !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}
}

func TestEncoder_Runs(t *testing.T) {
	got := encode(t, func(e *Encoder) {
		defer e.SetTrimDefaults(false)()
		e.PutRunCount(12, 3)
		e.PutString(12, "en")
		e.PutString(12, "")
		e.PutString(12, "de")
		e.PutUint8(13, 4)
	})
	want := []byte{0xF8, 0x03, 0x0C, 0x02, 'e', 'n', 0x00, 0x02, 'd', 'e', 0x0D, 0x01, 0x04}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}

	// A count below two writes plain elements.
	got = encode(t, func(e *Encoder) {
		e.PutRunCount(12, 1)
		e.PutString(12, "en")
	})
	if want := []byte{0x0C, 0x02, 'e', 'n'}; !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}
}

func TestEncoder_SetTrimDefaultsRestores(t *testing.T) {
	e := NewBufferEncoder()
	restore := e.SetTrimDefaults(false)
	if e.TrimDefaults() {
		t.Fatal("trim still on")
	}
	restore()
	if !e.TrimDefaults() {
		t.Fatal("trim not restored")
	}
}

func TestEncoder_ObjectStubs(t *testing.T) {
	empty := MarshalerFunc(func(*Encoder) {})

	if got := encode(t, func(e *Encoder) { e.PutObject(5, empty, false) }); len(got) != 0 {
		t.Fatalf("empty object must be omitted, got % x", got)
	}
	if got := encode(t, func(e *Encoder) { e.PutObject(5, empty, true) }); !bytes.Equal(got, []byte{0x05, 0x00}) {
		t.Fatalf("got % x", got)
	}
	got := encode(t, func(e *Encoder) { e.PutObject(5, empty, false) }, WithTrimDefaults(false))
	if !bytes.Equal(got, []byte{0x05, 0x00}) {
		t.Fatalf("got % x", got)
	}

	// The nested record does not see the outer run.
	got = encode(t, func(e *Encoder) {
		e.PutRunCount(7, 2)
		for _, v := range []uint8{1, 2} {
			e.PutObject(7, MarshalerFunc(func(e *Encoder) { e.PutUint8(0, v) }), true)
		}
	})
	want := []byte{0xF8, 0x02, 0x07, 0x03, 0x00, 0x01, 0x01, 0x03, 0x00, 0x01, 0x02}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}
}

func TestEncoder_ObjectFailurePropagates(t *testing.T) {
	e := NewBufferEncoder()
	e.PutObject(1, MarshalerFunc(func(e *Encoder) { e.PutToken(1).PutToken(2) }), false)
	if !errors.Is(e.Err(), ErrProtocolMisuse) {
		t.Fatalf("expected ErrProtocolMisuse, got %v", e.Err())
	}
	if e.Len() != 0 {
		t.Fatalf("wrote %d bytes", e.Len())
	}
}

func TestEncoder_SinkFailure(t *testing.T) {
	e := NewEncoder(errWriter{})
	e.PutUint8(1, 5)
	if !errors.Is(e.Err(), ErrSinkFailure) {
		t.Fatalf("expected ErrSinkFailure, got %v", e.Err())
	}

	w := &errAfterWriter{remaining: 3}
	e = NewEncoder(w)
	e.PutString(1, "hello")
	if !errors.Is(e.Err(), ErrSinkFailure) {
		t.Fatalf("expected ErrSinkFailure, got %v", e.Err())
	}
	n := e.Len()
	if n != 3 {
		t.Fatalf("Len = %d, want 3", n)
	}
	// Later writes are no-ops.
	e.PutString(2, "more")
	if e.Len() != n {
		t.Fatal("failed encoder kept writing")
	}
}

func TestEncoder_PutReader(t *testing.T) {
	got := encode(t, func(e *Encoder) {
		e.PutReader(7, bytes.NewReader([]byte("abc")))
	})
	if want := []byte{0x07, 0x03, 'a', 'b', 'c'}; !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}
}

func TestEncoder_DecoderRoundTrip(t *testing.T) {
	data := encode(t, func(e *Encoder) {
		e.PutInt16(0, -300)
		e.PutFloat64(1, 2.25)
		e.PutUTF16(2, []uint16{'h', 0xE9})
		e.PutBool(3, true)
		e.PutInt8(4, -100)
	})
	d := NewDecoderBytes(data)
	var (
		i16 int16
		f64 float64
		s   string
		b   bool
		i8  int8
	)
	for !d.AtEnd() {
		switch d.NextToken() {
		case 0:
			i16 = d.Int16()
		case 1:
			f64 = d.Float64()
		case 2:
			s = d.String()
		case 3:
			b = d.Bool()
		case 4:
			i8 = d.Int8()
		}
	}
	if d.Err() != nil {
		t.Fatal(d.Err())
	}
	if i16 != -300 || f64 != 2.25 || s != "hé" || !b || i8 != -100 {
		t.Fatalf("got %d %v %q %v %d", i16, f64, s, b, i8)
	}
}
