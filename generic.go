package tokenstream

import (
	"cmp"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Generic is a record assembled at run time instead of declared as a type.
// Each member remembers the Go type it was added with; reading decodes
// elements into those types and skips tokens with no member.
//
//	var g tokenstream.Generic
//	g.Add(0, "Quake")
//	g.Add(2, uint32(1000))
//	data, err := tokenstream.Marshal(&g)
//
// Members may be bools, integers and floats of any size (named types
// included), strings, byte slices, slices of those scalars, records such as
// *Generic, and slices of records.
type Generic struct {
	members map[Token]*genericMember
}

type genericMember struct {
	value reflect.Value // addressable
	def   reflect.Value // invalid when the member has no default
}

// Add sets the member under t to v, replacing any previous member.
func (g *Generic) Add(t Token, v any) *Generic {
	return g.add(t, v, nil, false)
}

// AddDefault is Add with a default: the member is omitted on write when
// trimming and v equals def. v and def must have the same type.
func (g *Generic) AddDefault(t Token, v, def any) *Generic {
	return g.add(t, v, def, true)
}

func (g *Generic) add(t Token, v, def any, hasDef bool) *Generic {
	if v == nil {
		panic(fmt.Sprintf("tokenstream: nil value for token %d", t))
	}
	rv := reflect.ValueOf(v)
	m := &genericMember{value: reflect.New(rv.Type()).Elem()}
	m.value.Set(rv)
	if hasDef {
		dv := reflect.ValueOf(def)
		if !dv.IsValid() || dv.Type() != rv.Type() {
			panic(fmt.Sprintf("tokenstream: default for token %d is %T, value is %T", t, def, v))
		}
		m.def = dv
	}
	if g.members == nil {
		g.members = make(map[Token]*genericMember)
	}
	g.members[t] = m
	return g
}

// Get returns the member under t, or nil when there is none.
func (g *Generic) Get(t Token) any {
	m, ok := g.members[t]
	if !ok {
		return nil
	}
	return m.value.Interface()
}

// Has reports whether a member exists under t.
func (g *Generic) Has(t Token) bool {
	_, ok := g.members[t]
	return ok
}

// Delete removes the member under t.
func (g *Generic) Delete(t Token) {
	delete(g.members, t)
}

// Len returns the number of members.
func (g *Generic) Len() int { return len(g.members) }

// Tokens returns the member tokens in ascending order.
func (g *Generic) Tokens() []Token {
	return slices.SortedFunc(maps.Keys(g.members), cmp.Compare[Token])
}

// MarshalTokenStream writes the members in ascending token order.
func (g *Generic) MarshalTokenStream(e *Encoder) {
	for _, t := range g.Tokens() {
		if !e.Good() {
			return
		}
		m := g.members[t]
		putValue(e, t, m.value, m.def)
	}
}

// UnmarshalTokenStream reads each element into the member registered under
// its token. A member added with a default is reset to it first. Other
// members keep their current value when the stream lacks them, so a preset
// value stands in for one the writer trimmed.
func (g *Generic) UnmarshalTokenStream(d *Decoder) {
	if len(g.members) == 0 {
		return
	}
	for _, m := range g.members {
		if m.def.IsValid() {
			m.value.Set(m.def)
		}
	}
	for !d.AtEnd() {
		t := d.NextToken()
		if m, ok := g.members[t]; ok {
			getValue(d, m.value)
		}
	}
}
