package transcode

import "log/slog"

// translatorOptions carries cross-cutting configuration shared by the
// request and response translators.
type translatorOptions struct {
	logger *slog.Logger
}

// Option configures a translator.
type Option func(*translatorOptions)

// WithLogger attaches a logger to the translator. Translators log at Debug
// level only (messages produced, terminal status); with no logger attached
// nothing is emitted.
func WithLogger(logger *slog.Logger) Option {
	return func(o *translatorOptions) {
		o.logger = logger
	}
}

func newTranslatorOptions(opts []Option) translatorOptions {
	o := translatorOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
