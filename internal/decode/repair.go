package decode

import (
	"regexp"
	"strings"
)

// RepairPass is one pure text transform applied to malformed JSON before a
// re-parse attempt. Passes must be no-ops on already-valid JSON.
type RepairPass func(string) string

// RepairPasses is the ordered syntactic repair pipeline. Raw newlines cannot
// occur inside JSON strings, so every newline the passes touch is structural.
var RepairPasses = []RepairPass{
	StripTrailingCommas,
	InsertMissingCommas,
	CollapseBrokenDelimiters,
}

// Repair runs every repair pass in order.
func Repair(text string) string {
	for _, pass := range RepairPasses {
		text = pass(text)
	}
	return text
}

var trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

// StripTrailingCommas removes a comma that directly precedes a closing
// bracket or brace.
func StripTrailingCommas(text string) string {
	return trailingCommaRegex.ReplaceAllString(text, "$1")
}

var missingCommaRegex = regexp.MustCompile("([\"}\\]])([ \t]*\n[ \t]*)([\"{\\[])")

// InsertMissingCommas inserts a comma between two adjacent values (quoted
// string, object, or array) separated only by a newline.
func InsertMissingCommas(text string) string {
	return missingCommaRegex.ReplaceAllString(text, "$1,$2$3")
}

var brokenDelimiterRegex = regexp.MustCompile(`[ \t]*\n[ \t]*,`)

// CollapseBrokenDelimiters pulls a comma that starts its own line back onto
// the previous one, so element separators line-broken by the upstream
// service read as ordinary delimiters.
func CollapseBrokenDelimiters(text string) string {
	return brokenDelimiterRegex.ReplaceAllString(text, ",")
}

// ExtractObject returns the first balanced top-level JSON object span in
// text, honoring string literals and escapes. ok is false when no complete
// object exists.
func ExtractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// stripFences removes a surrounding markdown code fence, which the upstream
// service sometimes wraps its JSON in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
