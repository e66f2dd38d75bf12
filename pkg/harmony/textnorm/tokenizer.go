package textnorm

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into lowercase word tokens. A token is a run of
// letters, digits and hyphens; everything else (punctuation, symbols,
// whitespace) separates tokens and is dropped.
type Tokenizer struct{}

// Tokenize splits text into tokens. Leading and trailing hyphens are
// stripped and hyphen runs collapse to one, so "--" alone yields nothing.
func (Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := cleanToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// cleanToken strips leading/trailing hyphens and normalizes consecutive hyphens
func cleanToken(token string) string {
	token = strings.Trim(token, "-")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
