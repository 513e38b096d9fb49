package tokenstream

import (
	"encoding/hex"
	"log/slog"
	"unicode"
	"unicode/utf8"
)

// Element is one element of a stream as seen without a schema.
type Element struct {
	Token    Token     `json:"token" yaml:"token"`
	Offset   uint64    `json:"offset" yaml:"offset"` // absolute offset of the payload
	Length   uint64    `json:"length" yaml:"length"`
	Run      uint64    `json:"run,omitempty" yaml:"run,omitempty"` // set on the first element of a run
	Text     string    `json:"text,omitempty" yaml:"text,omitempty"`
	Hex      string    `json:"hex,omitempty" yaml:"hex,omitempty"`
	Children []Element `json:"children,omitempty" yaml:"children,omitempty"`
}

// Inspect walks data and returns its elements. A payload that itself parses
// as a complete sequence of elements is expanded into Children, up to the
// depth limit; printable UTF-8 payloads are reported as Text and everything
// else as Hex. Since the format carries no type information, a short scalar
// may occasionally be shown as a nested element as well.
func Inspect(data []byte, opts ...DecoderOption) ([]Element, error) {
	cfg := newDecoderConfig(opts)
	return inspectRegion(data, 0, 0, cfg.limits, cfg.logger)
}

// inspectRegion logs through logger only at the top level; nested payloads
// are probed and expected to fail often.
func inspectRegion(data []byte, base uint64, depth int, l Limits, logger *slog.Logger) ([]Element, error) {
	d := NewDecoderBytes(data, WithLimits(l), WithDecoderLogger(logger))
	var out []Element
	for !d.AtEnd() {
		t := d.NextToken()
		if !d.Good() {
			break
		}
		el := Element{
			Token:  t,
			Offset: base + d.Offset(),
			Length: d.Remaining(),
			Run:    d.RunCount(),
		}
		payload := d.Bytes()
		if depth < l.MaxDepth && len(payload) > 0 {
			if kids, err := inspectRegion(payload, el.Offset, depth+1, l, discardLogger); err == nil && len(kids) > 0 {
				el.Children = kids
			}
		}
		if el.Children == nil {
			if printable(payload) {
				el.Text = string(payload)
			} else {
				el.Hex = hex.EncodeToString(payload)
			}
		}
		out = append(out, el)
	}
	return out, d.Err()
}

func printable(b []byte) bool {
	if len(b) == 0 || !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
