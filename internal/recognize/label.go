package recognize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// DisplayLabel folds a name into printable ASCII for OpenCV's Hershey fonts,
// which cannot render anything else. Unrepresentable runes become '?'.
func DisplayLabel(name string) string {
	folded := RemoveDiacritics(name)

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		default:
			b.WriteRune('?')
		}
	}
	return b.String()
}
