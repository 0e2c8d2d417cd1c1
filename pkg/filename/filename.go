// Package filename sanitizes uploaded filenames into safe object-key segments.
//
// Munge is deterministic and idempotent: the name recorded on a resource and
// the name used to build its storage path are always the same string.
//
//	filename.Munge("C:\\Uploads\\Résumé (final).PDF") // "resume-final.pdf"
//	filename.Munge("a")                               // "a__"
package filename

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Length limits, in runes.
const (
	MinLength    = 3
	MaxLength    = 100
	MaxExtLength = 21
)

// replacements covers letters that do not decompose into ASCII under NFD.
var replacements = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o",
	"đ", "d", "Đ", "d",
	"ł", "l", "Ł", "l",
	"þ", "th", "Þ", "th",
	"ð", "d", "Ð", "d",
)

// Munge returns a sanitized version of raw suitable as the last segment of
// an object key:
//
//   - directories are dropped (both / and \ separate);
//   - accents are removed and the result is lowercased;
//   - only a-z, 0-9, '_', '.', '-' survive; spaces become '-';
//   - runs of '-' collapse to one;
//   - the extension (at most MaxExtLength runes) is kept and the stem is
//     truncated so the whole name fits MaxLength;
//   - names shorter than MinLength are padded with '_'.
func Munge(raw string) string {
	name := base(raw)
	name = strings.TrimSpace(strings.ToLower(name))
	name = toASCII(name)

	var b strings.Builder
	b.Grow(len(name))
	lastDash := false
	for _, r := range name {
		switch {
		case r == ' ' || r == '-':
			if lastDash {
				continue
			}
			b.WriteByte('-')
			lastDash = true
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
		default:
			continue
		}
		lastDash = false
	}
	name = b.String()

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if utf8.RuneCountInString(ext) > MaxExtLength {
		ext = truncate(ext, MaxExtLength)
	}

	extLen := utf8.RuneCountInString(ext)
	stem = truncate(stem, MaxLength-extLen)
	if n := max(1, MinLength-extLen) - utf8.RuneCountInString(stem); n > 0 {
		stem += strings.Repeat("_", n)
	}

	return stem + ext
}

// base returns the final path element of raw for either separator style.
func base(raw string) string {
	if i := strings.LastIndexAny(raw, `/\`); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// toASCII strips combining marks after canonical decomposition.
func toASCII(s string) string {
	s = replacements.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
