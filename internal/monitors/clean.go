package monitors

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanWhitespace normalises to NFC and collapses runs of whitespace into
// single spaces, trimming both ends.
func CleanWhitespace(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
