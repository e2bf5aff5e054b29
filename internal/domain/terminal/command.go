package terminal

import (
	"strings"
	"unicode"
)

// Command is a parsed input line
type Command struct {
	Verb string
	Args []string
	Rest string // everything after the verb, inner whitespace kept
}

// Parse splits line on whitespace. The verb is lower-cased.
func Parse(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	if cut := strings.IndexFunc(rest, unicode.IsSpace); cut >= 0 {
		rest = strings.TrimSpace(rest[cut:])
	} else {
		rest = ""
	}
	return Command{
		Verb: strings.ToLower(fields[0]),
		Args: fields[1:],
		Rest: rest,
	}
}

// Text rejoins the arguments with single spaces
func (c Command) Text() string {
	return strings.Join(c.Args, " ")
}
