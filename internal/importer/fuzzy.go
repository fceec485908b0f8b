package importer

import (
	"strings"
	"unicode"

	"product-import-service/internal/models"
)

// OneSizeLabel is the canonical reference name for single-size articles.
const OneSizeLabel = "UNICA"

// oneSizeSynonyms are the accepted spellings of "single size" seen in vendor
// spreadsheets, matched after normalization.
var oneSizeSynonyms = map[string]struct{}{
	"os":           {},
	"one size":     {},
	"unica":        {},
	"tu":           {},
	"taglia unica": {},
	"u":            {},
	"onesize":      {},
}

// Levenshtein computes the classic edit distance between two strings with
// unit-cost insert, delete and substitute operations.
func Levenshtein(a, b string) int {
	ar := []rune(a)
	br := []rune(b)

	d := make([][]int, len(ar)+1)
	for i := range d {
		d[i] = make([]int, len(br)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(br); j++ {
		d[0][j] = j
	}

	for i := 1; i <= len(ar); i++ {
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			deletion := d[i-1][j] + 1
			insertion := d[i][j-1] + 1
			substitution := d[i-1][j-1] + cost

			min := deletion
			if insertion < min {
				min = insertion
			}
			if substitution < min {
				min = substitution
			}
			d[i][j] = min
		}
	}

	return d[len(ar)][len(br)]
}

// NormalizeValue replaces every non-alphanumeric rune with a space and collapses
// runs of whitespace, the canonical form the suggester matches against.
func NormalizeValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Suggester proposes the closest known reference value for an invalid cell value.
type Suggester struct {
	refs ReferenceData
}

// NewSuggester builds a suggester over the session's reference lists.
func NewSuggester(refs ReferenceData) *Suggester {
	return &Suggester{refs: refs}
}

// Suggest returns the reference name with minimum edit distance from the input,
// or nil for fields that have no reference list. Size values spelled like a
// one-size synonym short-circuit to the canonical UNICA label. Ties go to the
// first minimum in reference-list order.
func (s *Suggester) Suggest(field models.AttributeKey, value string) *string {
	normalized := strings.ToLower(NormalizeValue(value))

	if field == models.AttrSize {
		if _, ok := oneSizeSynonyms[normalized]; ok {
			label := OneSizeLabel
			return &label
		}
	}

	var refs []models.Reference
	switch field {
	case models.AttrSize:
		refs = s.refs.Sizes
	case models.AttrSizeGroup:
		refs = s.refs.SizeGroups
	case models.AttrBrand:
		refs = s.refs.Brands
	default:
		return nil
	}
	if len(refs) == 0 {
		return nil
	}

	best := refs[0].Name
	bestDistance := Levenshtein(normalized, strings.ToLower(refs[0].Name))
	for _, ref := range refs[1:] {
		if distance := Levenshtein(normalized, strings.ToLower(ref.Name)); distance < bestDistance {
			best = ref.Name
			bestDistance = distance
		}
	}
	return &best
}
