package ibt

import "github.com/rs/zerolog"

// Option configures capture decoding and sampling.
type Option func(*options)

type options struct {
	logger   zerolog.Logger
	identity string
}

func newOptions(opts []Option) options {
	o := options{
		logger:   zerolog.Nop(),
		identity: DefaultIdentityChannel,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for decode diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithIdentityChannel overrides the channel used to key bulk reads.
func WithIdentityChannel(name string) Option {
	return func(o *options) {
		if name != "" {
			o.identity = name
		}
	}
}
