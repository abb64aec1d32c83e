package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/minutes/core"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

// DefaultLanguageCacheTTL is how long the corpus's dominant language is
// reused before the catalog is scanned again.
const DefaultLanguageCacheTTL = time.Minute

// languageCache holds the last dominant language read from the catalog.
// Concurrent misses share a single scan.
type languageCache struct {
	group   singleflight.Group
	mu      sync.Mutex
	tag     string
	expires time.Time
}

func (c *languageCache) get(now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag == "" || now.After(c.expires) {
		return "", false
	}
	return c.tag, true
}

func (c *languageCache) set(tag string, expires time.Time) {
	c.mu.Lock()
	c.tag, c.expires = tag, expires
	c.mu.Unlock()
}

// needsTranslation reports whether the keyword query for q must be
// translated to canonical.
func needsTranslation(q core.Query, canonical string) bool {
	if q.CrossLanguage {
		return true
	}
	hint := strings.TrimSpace(q.LanguageHint)
	if hint == "" {
		return false
	}
	return !sameBase(hint, canonical)
}

func sameBase(a, b string) bool {
	ta, err := language.Parse(a)
	if err != nil {
		return false
	}
	tb, err := language.Parse(b)
	if err != nil {
		return false
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}

// dominantLanguage returns the most frequent non-empty language tag.
// Ties go to the lexically smallest tag.
func dominantLanguage(counts map[string]int) string {
	best, bestCount := "", 0
	for tag, n := range counts {
		if tag == "" {
			continue
		}
		if n > bestCount || (n == bestCount && tag < best) {
			best, bestCount = tag, n
		}
	}
	return best
}

// canonical resolves the language keyword queries are matched in: the
// configured language, else the corpus's dominant language, else English.
// The catalog scan is bounded by the search timeout and its result cached.
func (e *Engine) canonical(ctx context.Context) string {
	if e.canonicalLanguage != "" {
		return e.canonicalLanguage
	}
	if tag, ok := e.languages.get(time.Now()); ok {
		return tag
	}

	v, err, _ := e.languages.group.Do("dominant", func() (any, error) {
		counts, err := bounded(ctx, e.timeout, e.catalog.LanguageCounts)
		if err != nil {
			return "", err
		}
		tag := dominantLanguage(counts)
		if tag != "" {
			e.languages.set(tag, time.Now().Add(e.languageTTL))
		}
		return tag, nil
	})
	if err != nil {
		e.logger.Warn("failed to read language distribution", "err", err)
		return FallbackLanguage
	}
	if tag := v.(string); tag != "" {
		return tag
	}
	return FallbackLanguage
}
