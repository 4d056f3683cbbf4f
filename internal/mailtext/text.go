// Package mailtext normalizes raw email content into the plain-text
// form fed to classification. Extraction never fails: malformed input
// degrades to the empty string.
package mailtext

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagPattern    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize strips HTML, decodes common entities, collapses
// whitespace, sanitizes invalid UTF-8 and caps the result length.
// Always returns a string, possibly empty.
func Normalize(raw string, maxLen int) string {
	text := htmlTagPattern.ReplaceAllString(raw, " ")
	text = decodeEntities(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = SanitizeUTF8(text)
	return Truncate(text, maxLen)
}

// decodeEntities handles the handful of entities that survive in
// plain-text bodies often enough to matter.
func decodeEntities(s string) string {
	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return replacer.Replace(s)
}

// Truncate caps text at maxLen bytes without splitting a UTF-8
// sequence. maxLen <= 0 means no limit.
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	truncated := text[:maxLen]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 sequences from text
func SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		result = append(result, r)
	}
	return string(result)
}
