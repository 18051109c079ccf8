// Package slug turns product names into URL-friendly handles so products
// can be addressed as "bread-and-butter-pickles" instead of by ID.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that do not decompose into a base letter plus a mark.
var folds = strings.NewReplacer(
	"ı", "i",
	"ø", "o",
	"ł", "l",
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"&", " and ",
)

// Generate creates a slug from name: accents are stripped, runs of anything
// other than a-z and 0-9 become a single hyphen, and the result has no
// leading or trailing hyphen.
//
//   - "Jalapeño Dill Spears" → "jalapeno-dill-spears"
//   - "Bread & Butter Chips" → "bread-and-butter-chips"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = folds.Replace(s)

	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}

// Match reports whether query names the same slug as name. An empty query
// never matches.
func Match(name, query string) bool {
	q := Generate(query)
	return q != "" && q == Generate(name)
}

// Contains reports whether the words of query appear, in order and whole,
// within name. "dill spears" is contained in "Jalapeño Dill Spears" but
// "dil" is not. An empty query never matches.
func Contains(name, query string) bool {
	q := Generate(query)
	if q == "" {
		return false
	}
	return strings.Contains("-"+Generate(name)+"-", "-"+q+"-")
}
