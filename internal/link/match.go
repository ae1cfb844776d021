// Package link recognizes amazon.co.jp product links in free text and
// rewrites them to their short canonical form.
package link

import (
	"iter"
	"regexp"

	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
)

// Host is the vendor host used for canonical links.
const Host = "www.amazon.co.jp"

// productPattern matches a vendor URL up to the next whitespace. The greedy
// path segment makes the last recognizable "/<shape>/<id>" win.
var productPattern = regexp.MustCompile(
	`https?://(?:[\w-]+\.)*amazon\.co\.jp(?:/\S*)?/` +
		`(?:gp(?:/product)?|dp|ASIN|(?P<review>customer-reviews|product-reviews))` +
		`/(?P<id>[^/?\s]{10,})\S*`,
)

var (
	reviewGroup = productPattern.SubexpIndex("review")
	idGroup     = productPattern.SubexpIndex("id")
)

// Span is a half-open byte range [Start, End) of a match inside the input text.
type Span struct {
	Start int
	End   int
}

// All returns every product link in text, in order of appearance. The
// sequence is lazy and can be ranged over any number of times.
func All(text string) iter.Seq2[Span, models.ProductLink] {
	return func(yield func(Span, models.ProductLink) bool) {
		offset := 0
		for offset < len(text) {
			loc := productPattern.FindStringSubmatchIndex(text[offset:])
			if loc == nil {
				return
			}
			span := Span{Start: offset + loc[0], End: offset + loc[1]}
			if !yield(span, linkFromSubmatch(text[offset:], loc)) {
				return
			}
			if loc[1] == 0 {
				return
			}
			offset += loc[1]
		}
	}
}

func linkFromSubmatch(text string, loc []int) models.ProductLink {
	kind := models.KindProduct
	if s, e := loc[2*reviewGroup], loc[2*reviewGroup+1]; s >= 0 {
		kind = models.LinkKind(text[s:e])
	}
	return models.ProductLink{
		Kind:      kind,
		ProductID: text[loc[2*idGroup]:loc[2*idGroup+1]],
	}
}

// Contains reports whether text holds at least one product link. It is the
// cheap pre-filter run before any network work.
func Contains(text string) bool {
	return productPattern.MatchString(text)
}

// Parse extracts the first product link found in raw.
func Parse(raw string) (models.ProductLink, bool) {
	for _, l := range All(raw) {
		return l, true
	}
	return models.ProductLink{}, false
}

// Canonical renders the short form of l.
func Canonical(l models.ProductLink) string {
	kind := l.Kind
	if kind == "" {
		kind = models.KindProduct
	}
	return "https://" + Host + "/gp/" + string(kind) + "/" + l.ProductID + "/"
}
