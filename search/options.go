package search

import (
	"log/slog"
	"time"

	"github.com/poiesic/minutes/ai"
)

// Defaults for Engine options.
const (
	DefaultAlpha      = 0.5
	DefaultOversample = 3.0
	DefaultTimeout    = 5 * time.Second
	// FallbackLanguage is the canonical language of an empty corpus.
	FallbackLanguage = "en"
)

// Option configures an Engine.
type Option func(*Engine) error

// WithAlpha sets the weight of the semantic score in the combined score.
// The keyword score is weighted 1-alpha. Default is 0.5.
func WithAlpha(alpha float64) Option {
	return func(e *Engine) error {
		if alpha < 0 || alpha > 1 {
			return ErrInvalidAlpha
		}
		e.alpha = alpha
		return nil
	}
}

// WithOversample sets the oversampling factor. Each index is asked for
// max(topK, ceil(oversample*topK)) candidates. Default is 3.
func WithOversample(oversample float64) Option {
	return func(e *Engine) error {
		if oversample < 1 {
			return ErrInvalidOversample
		}
		e.oversample = oversample
		return nil
	}
}

// WithTimeout bounds each sub-query and the translation call.
// Default is 5s.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout <= 0 {
			return ErrInvalidTimeout
		}
		e.timeout = timeout
		return nil
	}
}

// WithTranslator enables cross-language keyword queries.
// Without a translator every query is matched untranslated.
func WithTranslator(translator ai.Translator) Option {
	return func(e *Engine) error {
		e.translator = translator
		return nil
	}
}

// WithCanonicalLanguage fixes the corpus language queries are translated to.
// When unset, the dominant language of the catalog is used.
func WithCanonicalLanguage(tag string) Option {
	return func(e *Engine) error {
		e.canonicalLanguage = tag
		return nil
	}
}

// WithLanguageCacheTTL sets how long the dominant corpus language is
// reused before the catalog is read again. Zero reads it on every
// translated search.
func WithLanguageCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) error {
		if ttl < 0 {
			return ErrInvalidLanguageCacheTTL
		}
		e.languageTTL = ttl
		return nil
	}
}

// WithSimilarityThreshold drops semantic hits whose cosine similarity is
// below threshold. Disabled by default.
func WithSimilarityThreshold(threshold float64) Option {
	return func(e *Engine) error {
		e.similarityThreshold = &threshold
		return nil
	}
}

// WithMonitor sets the monitor used when Search is called without one.
func WithMonitor(monitor SearchMonitor) Option {
	return func(e *Engine) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		e.monitor = monitor
		return nil
	}
}

// WithMetrics records search metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(e *Engine) error {
		e.metrics = metrics
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}
