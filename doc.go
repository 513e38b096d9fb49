// Package tokenstream implements TokenStream, a compact self-describing binary
// format for records.
//
// A stream is a sequence of elements. Each element is a token naming the
// field, a length, and that many payload bytes. Readers skip tokens they do
// not know, so old readers accept new data and new readers accept old data.
//
// # Wire Format Overview
//
// Tokens and lengths use a variable-width encoding:
//   - 0x00-0x7F: the value itself
//   - 0x80-0xF7: two bytes, the high bits in the low 7 bits of the first byte
//   - 0xF8: run header (token position only), followed by a count and a token
//   - 0xF9-0xFF: (first byte - 0xF7) big-endian bytes follow
//
// Integers are stored big-endian with redundant leading bytes removed, so
// small values take one byte whatever their declared width. Floats are
// stored little-endian at full width.
//
// Runs compact consecutive elements with the same token: the token is written
// once, behind a run header carrying the element count. Containers use runs.
//
// # Basic Usage
//
// Records describe their fields with a [TokenMap]:
//
//	var addrMap = tokenstream.NewTokenMap(
//		tokenstream.StringField(0, func(a *Address) *string { return &a.Street }),
//		tokenstream.ScalarField(1, func(a *Address) *uint32 { return &a.Zip }),
//	)
//
//	func (a *Address) MarshalTokenStream(e *tokenstream.Encoder)   { addrMap.Write(e, a) }
//	func (a *Address) UnmarshalTokenStream(d *tokenstream.Decoder) { addrMap.Read(d, a) }
//
//	data, err := tokenstream.Marshal(&addr)
//	err = tokenstream.Unmarshal(data, &addr2)
//
// [Encoder] and [Decoder] can also be driven by hand, and [Generic] builds a
// record at run time.
//
// # Errors
//
// Encoders and decoders fail permanently on the first error. Every later
// operation is a no-op and reads return zero values; check Err once at the
// end.
//
// # Frames
//
// [WriteFrame] and [ReadFrame] wrap a stream in a small header that adds a
// magic number, optional compression (ZIP, Zstandard, LZ4, Brotli) and an
// optional BLAKE3 digest.
//
// # Security Considerations
//
// Decoders bound element sizes, nesting depth, preallocation and frame sizes
// with configurable [Limits].
package tokenstream
