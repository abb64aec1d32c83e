package ingestion

import (
	"log/slog"
	"runtime"
	"time"
)

// Defaults shared by the Indexer and the Pipeline.
const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 100 * time.Millisecond
	DefaultBatchSize  = 8
)

// options holds configuration shared by the Indexer and the Pipeline.
// Each ignores the settings that do not apply to it.
type options struct {
	maxRetries int
	retryDelay time.Duration
	poolSize   int
	batchSize  int
	metrics    *Metrics
	logger     *slog.Logger
}

func defaultOptions() *options {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	return &options{
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		poolSize:   poolSize,
		batchSize:  DefaultBatchSize,
		logger:     slog.Default(),
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Option configures an Indexer or a Pipeline.
type Option func(*options) error

// WithMaxRetries sets how many times a failed write or embedding call is
// retried after the first attempt. Default is 2.
func WithMaxRetries(n int) Option {
	return func(o *options) error {
		if n < 0 {
			n = 0
		}
		o.maxRetries = n
		return nil
	}
}

// WithRetryDelay sets the base delay of the exponential backoff.
// Default is 100ms.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			d = 0
		}
		o.retryDelay = d
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *options) error {
		if size < 1 {
			size = 1
		}
		o.poolSize = size
		return nil
	}
}

// WithBatchSize sets how many texts are embedded per provider call.
// Default is 8.
func WithBatchSize(size int) Option {
	return func(o *options) error {
		if size < 1 {
			size = 1
		}
		o.batchSize = size
		return nil
	}
}

// WithMetrics records ingestion metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(o *options) error {
		o.metrics = metrics
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}
