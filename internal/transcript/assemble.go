// Package transcript normalizes engine output into text ready for typing.
package transcript

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Options controls transcript assembly formatting behavior.
type Options struct {
	TrailingSpace bool
	// StripAnnotations removes bracketed non-speech markers such as
	// [BLANK_AUDIO] or (music) that whisper-family engines emit.
	StripAnnotations bool
}

// Bracketed markers are upper-case tokens; dictated brackets such as [sic]
// are kept.
var annotationPattern = regexp.MustCompile(`\[ *[A-Z][A-Z_ ]+\]|\((?i:music|silence|inaudible|applause|laughter|noise|blank_audio)\)`)

// Assemble joins recognized segments in order, NFC-normalizes the result,
// and collapses whitespace. Output that holds no words is "".
func Assemble(segments []string, opts Options) string {
	if len(segments) == 0 {
		return ""
	}

	joined := norm.NFC.String(strings.Join(segments, " "))
	if opts.StripAnnotations {
		joined = annotationPattern.ReplaceAllString(joined, " ")
	}

	normalized := strings.Join(strings.Fields(joined), " ")
	if normalized == "" {
		return ""
	}
	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}
