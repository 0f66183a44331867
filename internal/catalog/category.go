package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category groups LUTs for display.
type Category string

const (
	CategoryTechnical  Category = "Technical"
	CategoryBlackWhite Category = "Black & White"
	CategoryCinematic  Category = "Cinematic"
	CategoryVintage    Category = "Vintage"
	CategoryCreative   Category = "Creative"
)

var categories = []Category{
	CategoryTechnical,
	CategoryBlackWhite,
	CategoryCinematic,
	CategoryVintage,
	CategoryCreative,
}

// Categories returns the known categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory matches raw against the known categories, ignoring case and
// the "&"/"and" spelling difference.
func ParseCategory(raw string) (Category, error) {
	norm := normalizeCategory(raw)
	for _, c := range categories {
		if normalizeCategory(string(c)) == norm {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

func normalizeCategory(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.ReplaceAll(raw, "&", "and")
	return strings.Join(strings.Fields(raw), " ")
}

// categoryRules are checked in order; the first rule with a matching token
// wins. Tokens are whole words of the lowercased file name.
var categoryRules = []struct {
	category Category
	tokens   []string
}{
	{CategoryTechnical, []string{"log", "log2", "log3", "slog", "slog2", "slog3", "clog", "clog2", "clog3", "vlog", "nlog", "flog", "logc", "logc3", "logc4", "rec709", "rec2020", "709", "2020", "hlg", "pq", "aces", "cst", "conversion", "technical"}},
	{CategoryBlackWhite, []string{"bw", "mono", "monochrome", "noir", "grayscale", "greyscale", "bnw"}},
	{CategoryCinematic, []string{"teal", "orange", "film", "cinema", "cinematic", "movie", "blockbuster", "kodak", "fuji", "print"}},
	{CategoryVintage, []string{"vintage", "retro", "faded", "fade", "70s", "80s", "90s", "polaroid", "sepia"}},
}

// InferCategory guesses a category from a LUT file name.
func InferCategory(name string) Category {
	tokens := tokenize(stripExt(name))
	for _, rule := range categoryRules {
		for _, want := range rule.tokens {
			for _, tok := range tokens {
				if tok == want {
					return rule.category
				}
			}
		}
	}
	return CategoryCreative
}

// DisplayName turns a file name like "teal_orange-v2.cube" into
// "Teal Orange V2".
func DisplayName(name string) string {
	tokens := tokenize(stripExt(name))
	if len(tokens) == 0 {
		return "Untitled"
	}
	return cases.Title(language.Und).String(strings.Join(tokens, " "))
}

func stripExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

func tokenize(value string) []string {
	return strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
