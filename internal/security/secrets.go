package security

import (
	"regexp"
)

// secretPattern pairs a credential pattern with its replacement.
type secretPattern struct {
	name       string
	regex      *regexp.Regexp
	redactWith string
}

var defaultSecretPatterns = []secretPattern{
	{"Google API Key", regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`), "AIza****"},
	{"Key Query Param", regexp.MustCompile(`([?&](?:key|api_key)=)[^&\s"']+`), "${1}****"},
	{"Bearer Token", regexp.MustCompile(`(?i)(bearer\s+)[0-9a-zA-Z\-_.=]{16,}`), "${1}****"},
	{"Generic API Key", regexp.MustCompile(`(?i)((?:api[_-]?key|apikey|access[_-]?key)['"]?\s*[:=]\s*['"]?)[0-9a-zA-Z\-_]{16,}`), "${1}****"},
}

// SecretScanner finds and redacts credentials in free text such as error
// messages returned by the vision API.
type SecretScanner struct {
	patterns []secretPattern
}

// SecretMatch is one credential found by Scan.
type SecretMatch struct {
	Type  string
	Start int
	End   int
}

func NewSecretScanner() *SecretScanner {
	return &SecretScanner{patterns: defaultSecretPatterns}
}

func (s *SecretScanner) Scan(input string) []SecretMatch {
	var matches []SecretMatch
	for _, p := range s.patterns {
		for _, loc := range p.regex.FindAllStringIndex(input, -1) {
			matches = append(matches, SecretMatch{Type: p.name, Start: loc[0], End: loc[1]})
		}
	}
	return matches
}

func (s *SecretScanner) Redact(input string) string {
	result := input
	for _, p := range s.patterns {
		result = p.regex.ReplaceAllString(result, p.redactWith)
	}
	return result
}

var defaultScanner = NewSecretScanner()

func HasSecrets(input string) bool {
	return len(defaultScanner.Scan(input)) > 0
}

func RedactSecrets(input string) string {
	return defaultScanner.Redact(input)
}
