package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// unsafeReplacer removes characters that are unsafe in archive entry names and
// download filenames on common filesystems.
var unsafeReplacer = strings.NewReplacer(
	"/", "",
	"\\", "",
	":", "",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeSegment turns an arbitrary display value into a single safe path
// segment. Path separators and reserved characters are stripped, control
// characters dropped, runs of whitespace collapsed to one space, and the
// result is NFC-normalized and trimmed. Leading dots are removed so a segment
// can never be "." or "..".
func SanitizeSegment(value string) string {
	value = norm.NFC.String(value)
	value = unsafeReplacer.Replace(value)

	var b strings.Builder
	b.Grow(len(value))
	space := false
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(strings.TrimLeft(b.String(), ". "))
}

// SanitizeFileName sanitizes a user-supplied file name and falls back to the
// provided default when nothing usable remains.
func SanitizeFileName(name, fallback string) string {
	if cleaned := SanitizeSegment(name); cleaned != "" {
		return cleaned
	}
	return fallback
}
