// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/minutes/ai"
	"github.com/poiesic/minutes/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const maxParseAttempts = 3

// contentGenerator is the subset of llms.Model the translator needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Translator implements ai.Translator using an OpenAI-compatible chat model.
type Translator struct {
	client contentGenerator
	logger *slog.Logger
}

var _ ai.Translator = (*Translator)(nil)

// translation is the JSON shape the model is asked to produce.
type translation struct {
	SourceLanguage string `json:"source_language"`
	Translation    string `json:"translation"`
}

// newTranslator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newTranslator(config *ai.Config) (*Translator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.TranslatorHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.TranslatorModel),
	)
	if err != nil {
		return nil, err
	}

	return &Translator{
		client: client,
		logger: slog.Default().With("component", "openai-translator"),
	}, nil
}

// NewTranslator creates a new translator using the provided configuration.
//
// Returns ai.Translator interface to enforce abstraction.
func NewTranslator(config *ai.Config) (ai.Translator, error) {
	return newTranslator(config)
}

// Translate renders text in targetLanguage. The model also reports the
// detected source language; when its base matches the target's, the
// original text is returned untouched.
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	target, err := language.Parse(targetLanguage)
	if err != nil {
		return "", fmt.Errorf("invalid target language %q: %w", targetLanguage, err)
	}
	targetName := display.Languages(language.English).Name(target)
	if targetName == "" {
		targetName = target.String()
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildTranslationPrompt(targetName, target.String())),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result translation
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := t.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			t.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return "", fmt.Errorf("%w: %w", core.ErrProvider, err)
		}
		if len(response.Choices) < 1 {
			lastErr = errors.New("no choices returned from model")
			continue
		}

		result, lastErr = parseTranslation(response.Choices[0].Content)
		if lastErr != nil {
			t.logger.Warn("error parsing translator response",
				"attempt", attempt+1,
				"response", response.Choices[0].Content,
				"err", lastErr)
			continue
		}
		break
	}

	if lastErr != nil {
		t.logger.Error("failed to parse translator response after retries", "err", lastErr)
		return "", fmt.Errorf("%w: %w: %w", core.ErrProvider, ErrMalformedResponse, lastErr)
	}

	if sameBaseLanguage(result.SourceLanguage, target) {
		t.logger.Debug("text already in target language", "language", result.SourceLanguage)
		return text, nil
	}

	t.logger.Debug("translated text",
		"from", result.SourceLanguage,
		"to", target.String(),
		"length", len(result.Translation))
	return result.Translation, nil
}

// parseTranslation decodes a raw model reply into a translation.
// A reply with an empty translation is rejected.
func parseTranslation(raw string) (translation, error) {
	var result translation
	cleaned := repairJSON(extractJSONObject(raw))
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return translation{}, err
	}
	result.Translation = strings.TrimSpace(result.Translation)
	if result.Translation == "" {
		return translation{}, errors.New("empty translation")
	}
	return result, nil
}

func sameBaseLanguage(tag string, target language.Tag) bool {
	source, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return false
	}
	sb, _ := source.Base()
	tb, _ := target.Base()
	return sb == tb
}
