package terminal

import (
	"regexp"
	"strings"
)

// Executor simulates running code in one language
type Executor interface {
	Name() string
	Execute(code string) string
}

// SimulatedExecutor echoes the first literal passed to a print call
type SimulatedExecutor struct {
	name    string
	pattern *regexp.Regexp
}

// NewSimulatedExecutor builds an executor for printVerb. quotes lists the
// accepted string delimiters. The verb must start the code or follow a
// character that is neither a word character nor a dot, and whitespace is
// allowed on both sides of the opening parenthesis.
func NewSimulatedExecutor(name, printVerb string, quotes ...rune) *SimulatedExecutor {
	alts := make([]string, len(quotes))
	for i, q := range quotes {
		d := regexp.QuoteMeta(string(q))
		alts[i] = d + "([^" + d + "]*)" + d
	}
	pattern := `(?:^|[^\w.])` + regexp.QuoteMeta(printVerb) + `\s*\(\s*(?:` + strings.Join(alts, "|") + `)`
	return &SimulatedExecutor{name: name, pattern: regexp.MustCompile(pattern)}
}

// Python prints with print("...") or print('...')
func Python() *SimulatedExecutor {
	return NewSimulatedExecutor("Python", "print", '"', '\'')
}

// JavaScript prints with console.log and also accepts template literals
func JavaScript() *SimulatedExecutor {
	return NewSimulatedExecutor("JavaScript", "console.log", '"', '\'', '`')
}

// Name returns the language display name
func (e *SimulatedExecutor) Name() string {
	return e.name
}

// Execute returns the literal of the first print call, or a success notice
func (e *SimulatedExecutor) Execute(code string) string {
	m := e.pattern.FindStringSubmatchIndex(code)
	if m == nil {
		return e.name + " code executed successfully"
	}
	for g := 1; g*2 < len(m); g++ {
		if m[g*2] >= 0 {
			return code[m[g*2]:m[g*2+1]]
		}
	}
	return e.name + " code executed successfully"
}
