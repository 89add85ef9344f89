package config

import (
	"fmt"
	"strings"
	"unicode"
)

// SplitCommand splits an inject.command line into argv. Quoting follows the
// shell: single quotes are literal, double quotes group words and honour
// backslash escapes, and "" yields an empty argument. Nothing is expanded.
// A line starting with # disables the command.
func SplitCommand(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	var (
		argv    []string
		word    strings.Builder
		inWord  bool
		quote   rune
		quoteAt int
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == '\'':
			word.WriteRune(r)
		case r == '\\':
			if i+1 == len(runes) {
				return nil, fmt.Errorf("command %q ends in a bare backslash", line)
			}
			i++
			word.WriteRune(runes[i])
			inWord = true
		case quote == '"':
			word.WriteRune(r)
		case r == '\'' || r == '"':
			quote, quoteAt, inWord = r, i+1, true
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("command %q has an unterminated %c quote at column %d", line, quote, quoteAt)
	}
	if inWord {
		argv = append(argv, word.String())
	}
	return argv, nil
}
