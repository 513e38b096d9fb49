package tokenstream

type Limits struct {
	MaxElementLen        uint64 // largest single element payload accepted by a Decoder
	MaxDepth             int    // nested scopes a Decoder may enter
	MaxPrealloc          int    // cap on slice capacity reserved from a run count
	MaxFramePayload      uint64 // stored (possibly compressed) frame payload
	MaxFrameUncompressed uint64 // frame payload after decompression
}

func defaultLimits() Limits {
	return Limits{
		MaxElementLen:        1 << 32, // 4 GiB
		MaxDepth:             512,
		MaxPrealloc:          1 << 16,
		MaxFramePayload:      1 << 30,   // 1 GiB stored payload cap
		MaxFrameUncompressed: 256 << 20, // 256 MiB
	}
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return defaultLimits()
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxElementLen == 0 {
		l.MaxElementLen = d.MaxElementLen
	}
	if l.MaxDepth == 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxPrealloc == 0 {
		l.MaxPrealloc = d.MaxPrealloc
	}
	if l.MaxFramePayload == 0 {
		l.MaxFramePayload = d.MaxFramePayload
	}
	if l.MaxFrameUncompressed == 0 {
		l.MaxFrameUncompressed = d.MaxFrameUncompressed
	}
	return l
}
