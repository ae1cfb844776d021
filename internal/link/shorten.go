package link

import "strings"

// Shorten replaces every product link in text with its canonical form and
// leaves everything else untouched. Links are never fetched or validated.
func Shorten(text string) string {
	var b strings.Builder
	last := 0
	for span, l := range All(text) {
		if last == 0 {
			b.Grow(len(text))
		}
		b.WriteString(text[last:span.Start])
		b.WriteString(Canonical(l))
		last = span.End
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}
