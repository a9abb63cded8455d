package sqlstorage

import "go.uber.org/zap"

type options struct {
	logger     *zap.Logger
	sqlURL     string
	table      string
	BatchCount int
}

var defaultOptions = options{
	logger:     zap.NewNop(),
	sqlURL:     ":memory:",
	table:      "pages",
	BatchCount: 100,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithSQLURL(sqlURL string) Option {
	return func(opts *options) {
		opts.sqlURL = sqlURL
	}
}

func WithTable(name string) Option {
	return func(opts *options) {
		opts.table = name
	}
}

// WithBatchCount sets how many pages are buffered before they are
// written in one insert.
func WithBatchCount(batchCount int) Option {
	return func(opts *options) {
		opts.BatchCount = batchCount
	}
}
