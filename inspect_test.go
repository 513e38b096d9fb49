package tokenstream

import (
	"errors"
	"reflect"
	"testing"
)

func TestInspect_Tree(t *testing.T) {
	data := encode(t, func(e *Encoder) {
		e.PutString(0, "Quake")
		e.PutUint8(1, 7)
		e.PutObject(2, MarshalerFunc(func(e *Encoder) { e.PutString(0, "in") }), false)
		PutSlice(e, 3, []uint8{1, 2})
	})
	got, err := Inspect(data)
	if err != nil {
		t.Fatal(err)
	}
	want := []Element{
		{Token: 0, Offset: 2, Length: 5, Text: "Quake"},
		{Token: 1, Offset: 9, Length: 1, Hex: "07"},
		{Token: 2, Offset: 12, Length: 4, Children: []Element{
			{Token: 0, Offset: 14, Length: 2, Text: "in"},
		}},
		{Token: 3, Offset: 20, Length: 1, Run: 2, Hex: "01"},
		{Token: 3, Offset: 22, Length: 1, Hex: "02"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestInspect_DepthLimit(t *testing.T) {
	inner := MarshalerFunc(func(e *Encoder) { e.PutString(0, "in") })
	data := encode(t, func(e *Encoder) {
		e.PutObject(2, MarshalerFunc(func(e *Encoder) { e.PutObject(5, inner, false) }), false)
	})
	got, err := Inspect(data, WithLimits(Limits{MaxDepth: 1}))
	if err != nil {
		t.Fatal(err)
	}
	want := []Element{{Token: 2, Offset: 2, Length: 6, Children: []Element{
		{Token: 5, Offset: 4, Length: 4, Hex: "0002696e"},
	}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v", got)
	}
}

func TestInspect_SecurePackage(t *testing.T) {
	pkg := testPackage()
	data, err := Marshal(&pkg)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Inspect(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Token != 0 || got[0].Length != 224 {
		t.Fatalf("got %+v", got)
	}
	base := got[0].Children
	if len(base) == 0 || base[0].Text != "Quake" {
		t.Fatalf("base %+v", base)
	}
}

func TestInspect_TruncatedStream(t *testing.T) {
	data := []byte{0x00, 0x01, 'a', 0x01, 0x05, 'b'}
	got, err := Inspect(data)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if len(got) != 1 || got[0].Text != "a" {
		t.Fatalf("got %+v", got)
	}
}
