package tokenstream

import "errors"

var (
	ErrTruncated          = errors.New("tokenstream: truncated input")
	ErrMalformedLength    = errors.New("tokenstream: malformed length marker")
	ErrSinkFailure        = errors.New("tokenstream: sink failure")
	ErrProtocolMisuse     = errors.New("tokenstream: protocol misuse")
	ErrLimitExceeded      = errors.New("tokenstream: limit exceeded")
	ErrInvalidMagic       = errors.New("tokenstream: invalid frame magic")
	ErrUnsupportedVersion = errors.New("tokenstream: unsupported frame version")
	ErrInvalidFrame       = errors.New("tokenstream: invalid frame header")
	ErrInvalidPayload     = errors.New("tokenstream: invalid payload")
	ErrChecksum           = errors.New("tokenstream: checksum mismatch")
)
