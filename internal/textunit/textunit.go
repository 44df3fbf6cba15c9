// Package textunit decides which document strings are worth translating and
// collapses an ordered input list to its unique working set.
package textunit

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// measurementPattern matches dimension tokens such as "200mm", "3.5 kPa" or
// "200x400". These read as specifications, not prose, and pass through.
var measurementPattern = regexp.MustCompile(`^[+-]?\d[\d.,/xX×*:\- ]*\s*\p{L}{0,3}[%°"']?\.?$`)

// IsTranslatable reports whether text is worth sending to translation.
// Empty or whitespace-only strings, strings with no letter, measurement
// tokens, and lone single-byte characters are passed through untouched.
func IsTranslatable(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	hasLetter := false
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}
	if measurementPattern.MatchString(trimmed) {
		return false
	}
	// Two or more grapheme clusters, or a single multi-byte cluster such as
	// a CJK ideograph, count as a word. A lone ASCII letter is a label.
	if uniseg.GraphemeClusterCount(trimmed) < 2 && len(trimmed) < 2 {
		return false
	}
	return true
}

// Deduplicate collapses texts to their unique trimmed values in
// first-occurrence order. indexMap[i] is the position of texts[i]'s value in
// unique. Equality is exact match on trimmed text, case-sensitive.
func Deduplicate(texts []string) (unique []string, indexMap []int) {
	indexMap = make([]int, len(texts))
	positions := make(map[string]int, len(texts))
	for i, text := range texts {
		key := strings.TrimSpace(text)
		pos, ok := positions[key]
		if !ok {
			pos = len(unique)
			positions[key] = pos
			unique = append(unique, key)
		}
		indexMap[i] = pos
	}
	return unique, indexMap
}

// Passthrough marks positions that bypass translation entirely.
const Passthrough = -1

// Plan is the working set for one translate call: the unique translatable
// texts plus the mapping back to original positions.
type Plan struct {
	// Unique holds the trimmed translatable texts in first-occurrence order.
	Unique []string
	// IndexMap has one entry per input position: an index into Unique, or
	// Passthrough for inputs the filter rejected.
	IndexMap []int
}

// BuildPlan filters and deduplicates texts in one pass.
func BuildPlan(texts []string) Plan {
	plan := Plan{IndexMap: make([]int, len(texts))}
	positions := make(map[string]int, len(texts))
	for i, text := range texts {
		if !IsTranslatable(text) {
			plan.IndexMap[i] = Passthrough
			continue
		}
		key := strings.TrimSpace(text)
		pos, ok := positions[key]
		if !ok {
			pos = len(plan.Unique)
			positions[key] = pos
			plan.Unique = append(plan.Unique, key)
		}
		plan.IndexMap[i] = pos
	}
	return plan
}

// Expand maps length-U results back to the original input length. Positions
// the filter rejected, and positions whose unique result is marked not ok,
// keep their own original text untouched. ok may be nil when every result is
// usable. The returned flags mark positions that carry a real result.
func (p Plan) Expand(results []string, ok []bool, original []string) ([]string, []bool) {
	out := make([]string, len(p.IndexMap))
	resolved := make([]bool, len(p.IndexMap))
	for i, pos := range p.IndexMap {
		if pos == Passthrough || pos >= len(results) || (ok != nil && !ok[pos]) {
			out[i] = original[i]
			continue
		}
		out[i] = results[pos]
		resolved[i] = true
	}
	return out, resolved
}
