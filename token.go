package tokenstream

// Token identifies a field or a sequence slot in an encoded record.
type Token uint64

// InvalidToken is the reserved sentinel: no token, end of region, or failure.
const InvalidToken Token = 0xFFFF_FFFF_FFFF_FFFF

// Integer is any type whose values convert losslessly to a Token, including
// named enum types backed by an integer.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// TokenOf converts an integer or integer-backed enum to a Token.
func TokenOf[T Integer](v T) Token {
	return Token(uint64(v))
}

// Valid reports whether t is not the sentinel.
func (t Token) Valid() bool {
	return t != InvalidToken
}
