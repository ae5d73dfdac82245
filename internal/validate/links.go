// Package validate enforces the content-safety constraints on reply drafts:
// at most one link, allowlisted domains only, and a mandatory disclosure next
// to promotional links. All functions are pure and idempotent; malformed
// input is treated as a violation, never an error.
package validate

import (
	"net/url"
	"regexp"
	"strings"
)

// linkRegex matches a URL from its scheme through the next whitespace,
// bracket, or quote boundary.
var linkRegex = regexp.MustCompile(`https?://[^\s<>\[\]{}()"']+`)

var (
	spaceRunRegex    = regexp.MustCompile(`[ \t]{2,}`)
	trailingWSRegex  = regexp.MustCompile(`[ \t]+\n`)
	blankLinesRegex  = regexp.MustCompile(`\n{3,}`)
	terminalPunctSet = ".!?"
)

// ExtractLinks returns every URL-looking substring in order of first
// occurrence.
func ExtractLinks(text string) []string {
	return linkRegex.FindAllString(text, -1)
}

// LinkResult is the outcome of EnforceOneLink.
type LinkResult struct {
	OK      bool
	Cleaned string
	Count   int
}

// EnforceOneLink keeps the first link in text and removes every subsequent
// one. Input with at most one link is returned unchanged. The cleaned output
// always contains at most one link, and that link is the one that appeared
// first.
func EnforceOneLink(text string) LinkResult {
	spans := linkRegex.FindAllStringIndex(text, -1)
	if len(spans) <= 1 {
		return LinkResult{OK: true, Cleaned: text, Count: len(spans)}
	}

	cut := spans[0][1] // everything up to the end of the first link is kept verbatim
	var b strings.Builder
	prev := cut
	for _, span := range spans[1:] {
		b.WriteString(text[prev:span[0]])
		prev = span[1]
	}
	b.WriteString(text[prev:])

	cleaned := text[:cut] + collapseWhitespace(b.String())
	return LinkResult{OK: false, Cleaned: strings.TrimRight(cleaned, " \t\n"), Count: len(spans)}
}

// AllowlistResult is the outcome of EnforceAllowlist.
type AllowlistResult struct {
	OK         bool
	Cleaned    string
	Violations []string
}

// EnforceAllowlist removes every link whose host is neither an allowlist
// entry nor a subdomain of one. An empty allowlist allows everything and
// returns the text untouched. Unparseable links are always violations; the
// raw string is recorded in that case, the offending host otherwise.
func EnforceAllowlist(text string, allowlist []string) AllowlistResult {
	if len(allowlist) == 0 {
		return AllowlistResult{OK: true, Cleaned: text}
	}

	normalized := make([]string, 0, len(allowlist))
	for _, entry := range allowlist {
		if n := normalizeHost(entry); n != "" {
			normalized = append(normalized, n)
		}
	}

	spans := linkRegex.FindAllStringIndex(text, -1)
	var violations []string
	var b strings.Builder
	prev := 0
	removed := false

	for _, span := range spans {
		link := text[span[0]:span[1]]
		host, ok := linkHost(link)
		if ok && hostAllowed(host, normalized) {
			continue
		}
		if ok {
			violations = append(violations, host)
		} else {
			violations = append(violations, link)
		}
		b.WriteString(text[prev:span[0]])
		prev = span[1]
		removed = true
	}

	if !removed {
		return AllowlistResult{OK: true, Cleaned: text}
	}

	b.WriteString(text[prev:])
	cleaned := strings.TrimRight(collapseWhitespace(b.String()), " \t\n")
	return AllowlistResult{OK: false, Cleaned: cleaned, Violations: violations}
}

// EnsureDisclosure appends disclosure to text unless it already appears,
// case-insensitively. The text is terminated with punctuation first so the
// disclosure reads as its own sentence.
func EnsureDisclosure(text, disclosure string) string {
	disclosure = strings.TrimSpace(disclosure)
	if disclosure == "" {
		return text
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(disclosure)) {
		return text
	}

	trimmed := strings.TrimRight(text, " \t\n")
	if trimmed != "" && !strings.ContainsAny(trimmed[len(trimmed)-1:], terminalPunctSet) {
		trimmed += "."
	}
	if trimmed == "" {
		return disclosure
	}
	return trimmed + "\n\n" + disclosure
}

// linkHost parses a link and returns its normalized host. ok is false when
// the link cannot be parsed or has no host.
func linkHost(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	return normalizeHost(u.Hostname()), true
}

// normalizeHost lowercases a host and strips a leading "www.".
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimSuffix(host, ".")
}

func hostAllowed(host string, allowlist []string) bool {
	for _, entry := range allowlist {
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}

func collapseWhitespace(s string) string {
	s = spaceRunRegex.ReplaceAllString(s, " ")
	s = trailingWSRegex.ReplaceAllString(s, "\n")
	s = blankLinesRegex.ReplaceAllString(s, "\n\n")
	return s
}
