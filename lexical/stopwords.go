package lexical

// stopWords are English function words dropped from keyword queries.
var stopWords = map[string]bool{
	"the": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "we": true, "or": true,
}

// IsStopWord reports whether token is dropped from keyword queries.
func IsStopWord(token string) bool {
	return stopWords[token]
}
