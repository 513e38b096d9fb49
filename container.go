package tokenstream

import (
	"cmp"
	"maps"
	"reflect"
	"slices"
)

// Containers are written as consecutive elements that share one token,
// compacted into a run when there are two or more. An empty container is
// omitted when trimming and written as a single zero-length element otherwise.
// Scalar elements are never trimmed inside a container, so every element
// keeps its position.
//
// The Read functions are called right after NextToken returned the container
// token. They consume every following element with that token and push the
// first foreign token back.

// PutSlice writes items as a container of scalars under t.
func PutSlice[V Scalar](e *Encoder, t Token, items []V) *Encoder {
	putSliceValue(e, t, reflect.ValueOf(items))
	return e
}

// PutObjectSlice writes items as a container of records under t. Records that
// encode to nothing are kept as zero-length stubs.
func PutObjectSlice[V Marshaler](e *Encoder, t Token, items []V) *Encoder {
	if len(items) == 0 {
		if !e.trim {
			e.putData(t, nil)
		}
		e.pending = InvalidToken
		return e
	}
	e.PutRunCount(t, uint64(len(items)))
	for _, item := range items {
		e.PutObject(t, item, true)
	}
	return e
}

// ReadSlice appends the container under the current token to dst.
func ReadSlice[V Scalar](d *Decoder, dst []V) []V {
	t := d.LastToken()
	dst = slices.Grow(dst, d.prealloc())
	for {
		dst = append(dst, ReadScalar[V](d))
		if !d.more(t) {
			return dst
		}
	}
}

// ReadObjectSlice appends the records of the container under the current
// token to dst.
func ReadObjectSlice[V any, PV interface {
	*V
	Unmarshaler
}](d *Decoder, dst []V) []V {
	t := d.LastToken()
	dst = slices.Grow(dst, d.prealloc())
	for {
		var item V
		d.Object(PV(&item))
		dst = append(dst, item)
		if !d.more(t) {
			return dst
		}
	}
}

// pair is one map entry, written as a record with the key under token 0 and
// the value under token 1.
type pair[K cmp.Ordered, V any] struct {
	key   K
	value V
}

const (
	pairKeyToken   Token = 0
	pairValueToken Token = 1
)

func (p *pair[K, V]) MarshalTokenStream(e *Encoder) {
	putValue(e, pairKeyToken, reflect.ValueOf(p.key), reflect.Value{})
	putValue(e, pairValueToken, reflect.ValueOf(&p.value).Elem(), reflect.Value{})
}

func (p *pair[K, V]) UnmarshalTokenStream(d *Decoder) {
	for !d.AtEnd() {
		switch d.NextToken() {
		case pairKeyToken:
			getValue(d, reflect.ValueOf(&p.key).Elem())
		case pairValueToken:
			getValue(d, reflect.ValueOf(&p.value).Elem())
		}
	}
}

// PutMap writes m as a container of key/value records under t, in ascending
// key order. V may be any type the package writes: a scalar, a byte or scalar
// slice, or a record.
func PutMap[K cmp.Ordered, V any](e *Encoder, t Token, m map[K]V) *Encoder {
	if len(m) == 0 {
		if !e.trim {
			e.putData(t, nil)
		}
		e.pending = InvalidToken
		return e
	}
	e.PutRunCount(t, uint64(len(m)))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		e.PutObject(t, &pair[K, V]{key: k, value: m[k]}, true)
	}
	return e
}

// ReadMap adds the entries of the container under the current token to m,
// allocating m when it is nil. Later entries replace earlier ones with the
// same key.
func ReadMap[K cmp.Ordered, V any](d *Decoder, m map[K]V) map[K]V {
	t := d.LastToken()
	if m == nil {
		m = make(map[K]V, d.prealloc())
	}
	for {
		var p pair[K, V]
		d.Object(&p)
		m[p.key] = p.value
		if !d.more(t) {
			return m
		}
	}
}

// more advances to the next element if it continues the container under t.
func (d *Decoder) more(t Token) bool {
	if d.AtEnd() {
		return false
	}
	if next := d.NextToken(); next != t {
		if next.Valid() {
			d.PushBack()
		}
		return false
	}
	return true
}
