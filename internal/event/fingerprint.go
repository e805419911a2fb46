package event

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Fingerprint identifies the same real-world listing across sources. It hashes
// the normalized name, venue and local date, falling back to source and link
// when all three are empty.
func Fingerprint(name, venue, date, source, link string) string {
	n, v, d := NormalizeText(name), NormalizeText(venue), strings.TrimSpace(date)
	var key string
	if n == "" && v == "" && d == "" {
		key = "src|" + strings.ToLower(strings.TrimSpace(source)) + "|" + strings.TrimSpace(link)
	} else {
		key = n + "|" + v + "|" + d
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// NormalizeText lowercases, strips punctuation, collapses whitespace and drops a leading "the".
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '/' || r == '_':
			pendingSpace = true
		}
	}
	out := b.String()
	out = strings.TrimPrefix(out, "the ")
	return out
}
