package textprep

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
)

//go:embed stopwords/*.txt
var stopwordFiles embed.FS

var stopwordFileByCode = map[string]string{
	"de": "stopwords/german.txt",
	"en": "stopwords/english.txt",
}

// SupportedLanguages lists the ISO 639-1 codes with a bundled stopword list.
func SupportedLanguages() []string {
	return []string{"de", "en"}
}

func loadStopwords(code string) (map[string]struct{}, error) {
	name, ok := stopwordFileByCode[code]
	if !ok {
		return nil, fmt.Errorf("no stopword list for language %q", code)
	}
	raw, err := stopwordFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read stopwords %s: %w", name, err)
	}

	out := make(map[string]struct{}, 256)
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		out[strings.ToLower(word)] = struct{}{}
	}
	return out, scanner.Err()
}
