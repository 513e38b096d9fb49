package tokenstream

// Marshaler is implemented by types that write themselves as a sequence of
// tokenized elements.
type Marshaler interface {
	MarshalTokenStream(e *Encoder)
}

// Unmarshaler is implemented by types that read themselves from a Decoder.
// Implementations loop until AtEnd and switch on NextToken; tokens they do
// not know are skipped. Fields must be reset beforehand, because trimmed
// defaults are absent from the stream.
type Unmarshaler interface {
	UnmarshalTokenStream(d *Decoder)
}

// MarshalerFunc adapts a function to Marshaler.
type MarshalerFunc func(e *Encoder)

func (f MarshalerFunc) MarshalTokenStream(e *Encoder) { f(e) }

// UnmarshalerFunc adapts a function to Unmarshaler.
type UnmarshalerFunc func(d *Decoder)

func (f UnmarshalerFunc) UnmarshalTokenStream(d *Decoder) { f(d) }
