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


// Package lexical holds the tokenizer and TF-IDF scoring shared by every
// full-text index backend, so documents and queries are tokenized the same
// way regardless of where they are stored.
package lexical

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLength is the shortest token, in runes, that is indexed.
const MinTokenLength = 2

// Tokenize splits text into index terms.
// Text is NFC-normalized and lower-cased, split on every rune that is not a
// letter, mark or digit, and tokens shorter than MinTokenLength are dropped.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	// Casers are stateful and must not be shared between goroutines.
	lowered := cases.Lower(language.Und).String(norm.NFC.String(text))

	fields := strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// TermFrequencies counts occurrences of each token.
func TermFrequencies(tokens []string) map[string]uint32 {
	tf := make(map[string]uint32, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

// QueryTerms tokenizes a query and returns its distinct terms in first-seen order.
// Stop words are dropped unless the query consists of nothing else.
func QueryTerms(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	var stops []string
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if IsStopWord(t) {
			stops = append(stops, t)
			continue
		}
		terms = append(terms, t)
	}
	if len(terms) == 0 && len(stops) > 0 {
		return stops
	}
	return terms
}

// IDF returns ln(1 + n/df), where n is the number of indexed documents and
// df the number of documents containing the term. A term no document
// contains has weight 0.
func IDF(n, df int) float64 {
	if n <= 0 || df <= 0 {
		return 0
	}
	return math.Log(1 + float64(n)/float64(df))
}
