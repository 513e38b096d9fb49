package tokenstream

import "fmt"

// Scope narrows a Decoder to the current element so a nested record can be
// read as if it were a whole stream:
//
//	s := d.EnterScope()
//	defer s.Exit()
//	for !d.AtEnd() {
//		switch d.NextToken() {
//		case tokStreet:
//			addr.Street = d.String()
//		}
//	}
//
// Scopes nest strictly; each Exit restores the region and run state that was
// active when its Scope was entered.
type Scope struct {
	d      *Decoder
	parent scopeContext
	exited bool
}

// EnterScope makes the current element the active region. At the very start
// of a stream, where a record may be stored without a token, the element
// length is read first.
func (d *Decoder) EnterScope() *Scope {
	if d.offset == 0 && d.err == nil {
		d.remaining = d.readLength(false)
		if d.err == nil && d.pastEnd(d.remaining) {
			d.fail(fmt.Errorf("%w: root element of %d bytes exceeds stream", ErrTruncated, d.remaining))
		}
	}
	s := &Scope{d: d, parent: d.ctx}
	d.ctx = scopeContext{end: d.offset + d.remaining, runToken: InvalidToken}
	d.remaining = 0
	d.depth++
	if d.depth > d.limits.MaxDepth {
		d.fail(fmt.Errorf("%w: nesting deeper than %d", ErrLimitExceeded, d.limits.MaxDepth))
	}
	return s
}

// Exit skips whatever the nested reader left unread and restores the
// enclosing region. Calling Exit more than once has no further effect.
func (s *Scope) Exit() {
	if s.exited {
		return
	}
	s.exited = true
	d := s.d
	if d.offset < d.ctx.end {
		d.skipBytes(d.ctx.end - d.offset)
	} else {
		d.pushed = false
		d.remaining = 0
	}
	d.ctx = s.parent
	d.depth--
}
