package filestore

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackFilename replaces names that sanitize to nothing.
const FallbackFilename = "upload"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename turns an untrusted client filename into a safe single
// path component. Accents are folded to ASCII, path separators and
// whitespace become underscores, anything outside [A-Za-z0-9_.-] is dropped
// and leading or trailing dots and underscores are trimmed.
//
// The result never contains a separator or a parent reference, and
// sanitizing it again returns it unchanged.
func SanitizeFilename(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	ascii, _, err := transform.String(t, name)
	if err != nil {
		ascii = ""
	}

	ascii = strings.NewReplacer("/", " ", `\`, " ").Replace(ascii)
	ascii = strings.Join(strings.Fields(ascii), "_")
	ascii = unsafeFilenameChars.ReplaceAllString(ascii, "")
	ascii = strings.Trim(ascii, "._")

	if ascii == "" {
		return FallbackFilename
	}
	return ascii
}

// SanitizeSegments sanitizes each folder segment for use as a local path.
func SanitizeSegments(segments []string) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = SanitizeFilename(s)
	}
	return out
}
