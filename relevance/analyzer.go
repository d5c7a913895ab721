package relevance

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball"
)

// DefaultStopWords is the english stop word list used by WithStopWords(nil).
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on", "that", "the", "to", "was", "were", "will",
	"with", "would", "could", "should", "may", "might", "can", "must", "shall", "do",
	"does", "did", "have", "had", "this", "these", "they", "them", "their", "his",
	"her", "she", "we", "you", "your", "our", "us", "me", "my", "i",
}

// Analyzer turns text into scoring terms. The zero value lowercases and
// splits on whitespace and nothing else.
type Analyzer struct {
	stemLanguage string
	stopWords    map[string]struct{}
}

func (a *Analyzer) Tokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := a.stopWords[f]; stop {
			continue
		}
		if a.stemLanguage != "" {
			f = stemWord(f, a.stemLanguage)
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// CheckStemLanguage reports whether snowball has a stemmer for language.
func CheckStemLanguage(language string) error {
	if _, err := snowball.Stem("test", language, false); err != nil {
		return fmt.Errorf("unsupported stemming language %q: %w", language, err)
	}
	return nil
}

func stemWord(word, language string) string {
	stem, err := snowball.Stem(word, language, false)
	if err != nil || stem == "" {
		return word
	}
	return stem
}
