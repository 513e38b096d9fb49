package tokenstream

import (
	"cmp"
	"fmt"
	"slices"
)

// Field binds one token to one member of T.
type Field[T any] struct {
	Token Token
	put   func(e *Encoder, t Token, v *T)
	get   func(d *Decoder, v *T)
}

// TokenMap describes how a record type maps to tokens. Write emits the fields
// in ascending token order; Read dispatches each element to its field and
// skips unknown tokens, so records stay readable as fields come and go.
//
// A TokenMap is immutable once built and safe for concurrent use.
type TokenMap[T any] struct {
	fields []Field[T]
	index  map[Token]int
}

// NewTokenMap builds a map from fields. It panics if two fields share a
// token or a field uses InvalidToken.
func NewTokenMap[T any](fields ...Field[T]) *TokenMap[T] {
	m := &TokenMap[T]{
		fields: slices.Clone(fields),
		index:  make(map[Token]int, len(fields)),
	}
	slices.SortStableFunc(m.fields, func(a, b Field[T]) int { return cmp.Compare(a.Token, b.Token) })
	for i, f := range m.fields {
		if !f.Token.Valid() {
			panic("tokenstream: field uses InvalidToken")
		}
		if _, dup := m.index[f.Token]; dup {
			panic(fmt.Sprintf("tokenstream: duplicate token %d in TokenMap", f.Token))
		}
		m.index[f.Token] = i
	}
	return m
}

// Derive returns a new map holding the fields of m plus fields. Tokens must
// not overlap.
func (m *TokenMap[T]) Derive(fields ...Field[T]) *TokenMap[T] {
	return NewTokenMap(append(slices.Clone(m.fields), fields...)...)
}

// Tokens returns the mapped tokens in ascending order.
func (m *TokenMap[T]) Tokens() []Token {
	out := make([]Token, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.Token
	}
	return out
}

// Write encodes v field by field.
func (m *TokenMap[T]) Write(e *Encoder, v *T) {
	for _, f := range m.fields {
		if !e.Good() {
			return
		}
		f.put(e, f.Token, v)
	}
}

// Read decodes the active region into v.
func (m *TokenMap[T]) Read(d *Decoder, v *T) {
	if len(m.fields) == 0 {
		return
	}
	for !d.AtEnd() {
		t := d.NextToken()
		if i, ok := m.index[t]; ok {
			m.fields[i].get(d, v)
		}
	}
}

// Inherit adapts the fields of a map for T to a type U that embeds T, so a
// derived map shares the token space of its base.
func Inherit[U, T any](m *TokenMap[T], base func(*U) *T) []Field[U] {
	out := make([]Field[U], len(m.fields))
	for i, f := range m.fields {
		out[i] = Field[U]{
			Token: f.Token,
			put:   func(e *Encoder, t Token, v *U) { f.put(e, t, base(v)) },
			get:   func(d *Decoder, v *U) { f.get(d, base(v)) },
		}
	}
	return out
}

// BaseField writes the embedded T of U as a nested record under t, using the
// map of T. Unlike Inherit, the base keeps a token space of its own.
func BaseField[U, T any](t Token, m *TokenMap[T], base func(*U) *T) Field[U] {
	return Field[U]{
		Token: t,
		put: func(e *Encoder, t Token, v *U) {
			e.PutObject(t, MarshalerFunc(func(e *Encoder) { m.Write(e, base(v)) }), false)
		},
		get: func(d *Decoder, v *U) {
			d.Object(UnmarshalerFunc(func(d *Decoder) { m.Read(d, base(v)) }))
		},
	}
}

// CustomField binds t to caller-supplied write and read functions.
func CustomField[T any](t Token, put func(e *Encoder, t Token, v *T), get func(d *Decoder, v *T)) Field[T] {
	return Field[T]{Token: t, put: put, get: get}
}

// ScalarField binds t to a scalar member, trimmed when zero.
func ScalarField[T any, V Scalar](t Token, member func(*T) *V) Field[T] {
	var zero V
	return ScalarFieldDefault(t, member, zero)
}

// ScalarFieldDefault binds t to a scalar member, trimmed when equal to def.
// Read leaves the member untouched when the element is absent; callers reset
// records to their defaults before reading.
func ScalarFieldDefault[T any, V Scalar](t Token, member func(*T) *V, def V) Field[T] {
	return Field[T]{
		Token: t,
		put:   func(e *Encoder, t Token, v *T) { PutScalarDefault(e, t, *member(v), def) },
		get:   func(d *Decoder, v *T) { *member(v) = ReadScalar[V](d) },
	}
}

func StringField[T any](t Token, member func(*T) *string) Field[T] {
	return ScalarField(t, member)
}

func StringFieldDefault[T any](t Token, member func(*T) *string, def string) Field[T] {
	return ScalarFieldDefault(t, member, def)
}

func BytesField[T any](t Token, member func(*T) *[]byte) Field[T] {
	return Field[T]{
		Token: t,
		put:   func(e *Encoder, t Token, v *T) { e.PutBytes(t, *member(v)) },
		get:   func(d *Decoder, v *T) { *member(v) = d.Bytes() },
	}
}

// ObjectField binds t to a nested record. An empty record is omitted when
// trimming.
func ObjectField[T, V any, PV interface {
	*V
	Marshaler
	Unmarshaler
}](t Token, member func(*T) *V) Field[T] {
	return Field[T]{
		Token: t,
		put:   func(e *Encoder, t Token, v *T) { e.PutObject(t, PV(member(v)), false) },
		get:   func(d *Decoder, v *T) { d.Object(PV(member(v))) },
	}
}

// SliceField binds t to a slice of scalars written as a container.
func SliceField[T any, V Scalar](t Token, member func(*T) *[]V) Field[T] {
	return Field[T]{
		Token: t,
		put:   func(e *Encoder, t Token, v *T) { PutSlice(e, t, *member(v)) },
		get:   func(d *Decoder, v *T) { *member(v) = ReadSlice(d, (*member(v))[:0]) },
	}
}

// ObjectSliceField binds t to a slice of records written as a container.
func ObjectSliceField[T, V any, PV interface {
	*V
	Marshaler
	Unmarshaler
}](t Token, member func(*T) *[]V) Field[T] {
	return Field[T]{
		Token: t,
		put: func(e *Encoder, t Token, v *T) {
			items := *member(v)
			recs := make([]PV, len(items))
			for i := range items {
				recs[i] = PV(&items[i])
			}
			PutObjectSlice(e, t, recs)
		},
		get: func(d *Decoder, v *T) {
			*member(v) = ReadObjectSlice[V, PV](d, (*member(v))[:0])
		},
	}
}

// MapField binds t to a map written as a container of key/value records.
func MapField[T any, K cmp.Ordered, V any](t Token, member func(*T) *map[K]V) Field[T] {
	return Field[T]{
		Token: t,
		put:   func(e *Encoder, t Token, v *T) { PutMap(e, t, *member(v)) },
		get:   func(d *Decoder, v *T) { *member(v) = ReadMap(d, *member(v)) },
	}
}
