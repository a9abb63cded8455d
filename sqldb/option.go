package sqldb

import "go.uber.org/zap"

type options struct {
	logger  *zap.Logger
	sqlURL  string
	maxConn int
}

var defaultOptions = options{
	logger:  zap.NewNop(),
	sqlURL:  ":memory:",
	maxConn: 1,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithConnURL sets the sqlite data source, a file path or ":memory:".
func WithConnURL(sqlURL string) Option {
	return func(opts *options) {
		opts.sqlURL = sqlURL
	}
}
