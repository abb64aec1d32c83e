package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/poiesic/minutes/ai"
)

// MockTranslator is a test double for ai.Translator.
// By default it looks text up in a phrase table and otherwise returns it unchanged.
type MockTranslator struct {
	// TranslateFunc is called by Translate if set.
	TranslateFunc func(ctx context.Context, text, targetLanguage string) (string, error)

	mu           sync.RWMutex
	translations map[string]string
	callCount    atomic.Int64
}

var _ ai.Translator = (*MockTranslator)(nil)

// NewMockTranslator creates a mock translator with an empty phrase table.
func NewMockTranslator() *MockTranslator {
	return &MockTranslator{translations: make(map[string]string)}
}

// WithTranslation registers a canned translation and returns the mock for chaining.
func (m *MockTranslator) WithTranslation(text, translated string) *MockTranslator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.translations[text] = translated
	return m
}

// Translate returns the registered translation for text, or text itself.
func (m *MockTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	m.callCount.Add(1)

	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, targetLanguage)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if translated, ok := m.translations[text]; ok {
		return translated, nil
	}
	return text, nil
}

// CallCount returns the number of times Translate was called.
func (m *MockTranslator) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count, the phrase table and injected behavior.
func (m *MockTranslator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount.Store(0)
	m.translations = make(map[string]string)
	m.TranslateFunc = nil
}
