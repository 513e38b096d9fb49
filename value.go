package tokenstream

import (
	"fmt"
	"reflect"
)

// Scalar is the set of types written as a single element: bools, integers,
// floats and strings, including named types built on them.
type Scalar interface {
	~bool | Integer | ~float32 | ~float64 | ~string
}

// PutScalar writes v under t using the element width of its kind.
func PutScalar[V Scalar](e *Encoder, t Token, v V) *Encoder {
	var zero V
	return PutScalarDefault(e, t, v, zero)
}

// PutScalarDefault writes v under t unless trimming is on and v equals def.
func PutScalarDefault[V Scalar](e *Encoder, t Token, v, def V) *Encoder {
	putValue(e, t, reflect.ValueOf(v), reflect.ValueOf(def))
	return e
}

// ReadScalar reads the current element as a V.
func ReadScalar[V Scalar](d *Decoder) V {
	var v V
	getValue(d, reflect.ValueOf(&v).Elem())
	return v
}

var (
	byteType      = reflect.TypeFor[byte]()
	marshalerType = reflect.TypeFor[Marshaler]()
	unmarshalType = reflect.TypeFor[Unmarshaler]()
)

// emptyRecord stands in for nil records.
var emptyRecord = MarshalerFunc(func(*Encoder) {})

func isNilRecord(m Marshaler) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func:
		return v.IsNil()
	}
	return false
}

// asMarshaler reports whether v, or its address, implements Marshaler. A nil
// pointer yields a nil Marshaler with ok set.
func asMarshaler(v reflect.Value) (Marshaler, bool) {
	if v.Type().Implements(marshalerType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, true
		}
		return v.Interface().(Marshaler), true
	}
	if v.CanAddr() && v.Addr().Type().Implements(marshalerType) {
		return v.Addr().Interface().(Marshaler), true
	}
	return nil, false
}

// putValue writes v under t. def is either invalid or of v's type; an
// invalid def means the zero value.
func putValue(e *Encoder, t Token, v, def reflect.Value) {
	if !def.IsValid() {
		def = reflect.Zero(v.Type())
	}
	if m, ok := asMarshaler(v); ok {
		if m == nil {
			e.pending = InvalidToken
			return
		}
		e.PutObject(t, m, false)
		return
	}
	switch v.Kind() {
	case reflect.Bool:
		e.PutBoolDefault(t, v.Bool(), def.Bool())
	case reflect.Int8:
		e.PutInt8Default(t, int8(v.Int()), int8(def.Int()))
	case reflect.Int16:
		e.PutInt16Default(t, int16(v.Int()), int16(def.Int()))
	case reflect.Int32:
		e.PutInt32Default(t, int32(v.Int()), int32(def.Int()))
	case reflect.Int, reflect.Int64:
		e.PutInt64Default(t, v.Int(), def.Int())
	case reflect.Uint8:
		e.PutUint8Default(t, uint8(v.Uint()), uint8(def.Uint()))
	case reflect.Uint16:
		e.PutUint16Default(t, uint16(v.Uint()), uint16(def.Uint()))
	case reflect.Uint32:
		e.PutUint32Default(t, uint32(v.Uint()), uint32(def.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		e.PutUint64Default(t, v.Uint(), def.Uint())
	case reflect.Float32:
		e.PutFloat32Default(t, float32(v.Float()), float32(def.Float()))
	case reflect.Float64:
		e.PutFloat64Default(t, v.Float(), def.Float())
	case reflect.String:
		e.PutStringDefault(t, v.String(), def.String())
	case reflect.Slice:
		// Slices of named byte types are containers, not binary.
		if v.Type().Elem() == byteType {
			e.PutBytes(t, v.Bytes())
			return
		}
		putSliceValue(e, t, v)
	default:
		e.pending = InvalidToken
		e.fail(fmt.Errorf("%w: unsupported value type %s", ErrProtocolMisuse, v.Type()))
	}
}

// putSliceValue writes a slice as a compacted run. Elements that are records
// keep their stub so empty ones still count.
func putSliceValue(e *Encoder, t Token, v reflect.Value) {
	n := v.Len()
	if n == 0 {
		if !e.trim {
			e.putData(t, nil)
		}
		e.pending = InvalidToken
		return
	}
	elem := v.Type().Elem()
	if elem.Implements(marshalerType) || reflect.PointerTo(elem).Implements(marshalerType) {
		e.PutRunCount(t, uint64(n))
		for i := range n {
			m, _ := asMarshaler(v.Index(i))
			if m == nil {
				m = emptyRecord
			}
			e.PutObject(t, m, true)
		}
		return
	}
	restore := e.SetTrimDefaults(false)
	defer restore()
	e.PutRunCount(t, uint64(n))
	for i := range n {
		putValue(e, t, v.Index(i), reflect.Value{})
	}
}

// getValue reads the current element into the settable v.
func getValue(d *Decoder, v reflect.Value) {
	if v.Kind() == reflect.Pointer && v.Type().Implements(unmarshalType) {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		d.Object(v.Interface().(Unmarshaler))
		return
	}
	if v.CanAddr() && v.Addr().Type().Implements(unmarshalType) {
		d.Object(v.Addr().Interface().(Unmarshaler))
		return
	}
	switch v.Kind() {
	case reflect.Bool:
		v.SetBool(d.Bool())
	case reflect.Int8:
		v.SetInt(int64(d.Int8()))
	case reflect.Int16:
		v.SetInt(int64(d.Int16()))
	case reflect.Int32:
		v.SetInt(int64(d.Int32()))
	case reflect.Int, reflect.Int64:
		v.SetInt(d.Int64())
	case reflect.Uint8:
		v.SetUint(uint64(d.Uint8()))
	case reflect.Uint16:
		v.SetUint(uint64(d.Uint16()))
	case reflect.Uint32:
		v.SetUint(uint64(d.Uint32()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		v.SetUint(d.Uint64())
	case reflect.Float32:
		v.SetFloat(float64(d.Float32()))
	case reflect.Float64:
		v.SetFloat(d.Float64())
	case reflect.String:
		v.SetString(d.String())
	case reflect.Slice:
		if v.Type().Elem() == byteType {
			v.SetBytes(d.Bytes())
			return
		}
		getSliceValue(d, v)
	default:
		d.fail(fmt.Errorf("%w: unsupported value type %s", ErrProtocolMisuse, v.Type()))
	}
}

// getSliceValue appends consecutive elements sharing the current token.
func getSliceValue(d *Decoder, v reflect.Value) {
	t := d.LastToken()
	if v.IsNil() {
		v.Set(reflect.MakeSlice(v.Type(), 0, d.prealloc()))
	}
	for {
		item := reflect.New(v.Type().Elem()).Elem()
		getValue(d, item)
		v.Set(reflect.Append(v, item))
		if !d.more(t) {
			return
		}
	}
}
