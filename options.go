package tokenstream

import "log/slog"

type decoderConfig struct {
	limits Limits
	logger *slog.Logger
}

type DecoderOption func(*decoderConfig)

func WithLimits(l Limits) DecoderOption {
	return func(c *decoderConfig) { c.limits = l }
}

// WithDecoderLogger sets the logger that receives a Debug record when the
// stream fails. The default discards everything.
func WithDecoderLogger(l *slog.Logger) DecoderOption {
	return func(c *decoderConfig) { c.logger = l }
}

func newDecoderConfig(opts []DecoderOption) decoderConfig {
	cfg := decoderConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if cfg.logger == nil {
		cfg.logger = discardLogger
	}
	return cfg
}

type encoderConfig struct {
	trimDefaults bool
	logger       *slog.Logger
}

type EncoderOption func(*encoderConfig)

// WithTrimDefaults controls whether fields equal to their default are omitted.
// Encoders trim by default.
func WithTrimDefaults(v bool) EncoderOption {
	return func(c *encoderConfig) { c.trimDefaults = v }
}

func WithEncoderLogger(l *slog.Logger) EncoderOption {
	return func(c *encoderConfig) { c.logger = l }
}

func newEncoderConfig(opts []EncoderOption) encoderConfig {
	cfg := encoderConfig{trimDefaults: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger
	}
	return cfg
}

type frameConfig struct {
	limits      Limits
	compression Compression
	digest      bool
}

type FrameOption func(*frameConfig)

func WithCompression(comp Compression) FrameOption {
	return func(c *frameConfig) { c.compression = comp }
}

// WithDigest controls whether WriteFrame stores a BLAKE3 digest of the
// uncompressed payload. ReadFrame always verifies a stored digest.
func WithDigest(v bool) FrameOption {
	return func(c *frameConfig) { c.digest = v }
}

func WithFrameLimits(l Limits) FrameOption {
	return func(c *frameConfig) { c.limits = l }
}

func newFrameConfig(opts []FrameOption) frameConfig {
	cfg := frameConfig{limits: defaultLimits(), compression: CompZSTD, digest: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	return cfg
}

var discardLogger = slog.New(slog.DiscardHandler)
