// Package textprep turns raw job-ad text into the normalized token stream
// used by the similarity strategies and the models.
package textprep

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

const (
	LanguageAuto = "auto"

	minTokenRunes = 2
	maxTokenRunes = 15
)

type Options struct {
	// Language is an ISO 639-1 code with a bundled stopword list, or "auto".
	Language string
	// Stem applies the snowball stemmer of the language after stopword removal.
	Stem bool
}

// Preprocessor is immutable after New and safe for concurrent use.
type Preprocessor struct {
	language  string
	stem      bool
	stopwords map[string]map[string]struct{}
}

func New(opts Options) (*Preprocessor, error) {
	language := strings.ToLower(strings.TrimSpace(opts.Language))
	if language == "" {
		language = "de"
	}
	if language != LanguageAuto {
		language = NormalizeCode(language)
	}

	p := &Preprocessor{
		language:  language,
		stem:      opts.Stem,
		stopwords: make(map[string]map[string]struct{}),
	}

	codes := SupportedLanguages()
	if language != LanguageAuto {
		codes = []string{language}
	}
	for _, code := range codes {
		words, err := loadStopwords(code)
		if err != nil {
			return nil, fmt.Errorf("preprocessor language %q: %w", opts.Language, err)
		}
		p.stopwords[code] = words
	}
	return p, nil
}

func (p *Preprocessor) Language() string { return p.language }

// Tokens lowercases the text, keeps letter runs of 2 to 15 runes, and drops
// stopwords.
func (p *Preprocessor) Tokens(raw string) []string {
	code := p.languageFor(raw)
	stop := p.stopwords[code]

	var out []string
	for _, token := range tokenize(raw) {
		if _, ok := stop[token]; ok {
			continue
		}
		if p.stem {
			token = stem(token, code)
		}
		if token == "" {
			continue
		}
		out = append(out, token)
	}
	return out
}

// Normalize joins Tokens with single spaces.
func (p *Preprocessor) Normalize(raw string) string {
	return strings.Join(p.Tokens(raw), " ")
}

func (p *Preprocessor) languageFor(raw string) string {
	if p.language != LanguageAuto {
		return p.language
	}
	if code := DetectLanguage(raw); code != "" {
		if _, ok := p.stopwords[code]; ok {
			return code
		}
	}
	return "de"
}

func tokenize(raw string) []string {
	var (
		out     []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := current.String()
		current.Reset()
		n := utf8.RuneCountInString(token)
		if n >= minTokenRunes && n <= maxTokenRunes {
			out = append(out, token)
		}
	}

	for _, r := range raw {
		if unicode.IsLetter(r) || (current.Len() > 0 && unicode.IsMark(r)) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return out
}

func stem(token, code string) string {
	language, ok := snowballLanguage[code]
	if !ok {
		return token
	}
	stemmed, err := snowball.Stem(token, language, true)
	if err != nil || stemmed == "" {
		return token
	}
	return stemmed
}
