package classify

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/go-scripts/jobfill/pkg/common"
)

// minFuzzyScore rejects fuzzy hits that only share a few scattered letters
const minFuzzyScore = 0

// MatchOption picks the dropdown option best matching value.
//
// Containment is tried first in document order, in both directions: the
// value inside the option text ("Negotiable" in "Negotiable / DOE") or the
// option text inside the value ("Yes" in "Yes, I am authorized"). If that
// fails the option texts are ranked with a subsequence match.
func MatchOption(options []common.Option, value string) (common.Option, bool) {
	want := Normalize(value)
	if want == "" {
		return common.Option{}, false
	}

	candidates := make([]common.Option, 0, len(options))
	texts := make([]string, 0, len(options))
	for _, opt := range options {
		text := Normalize(opt.Text)
		if text == "" || isPlaceholder(opt) {
			continue
		}
		if strings.Contains(text, want) || strings.Contains(want, text) {
			return opt, true
		}
		candidates = append(candidates, opt)
		texts = append(texts, text)
	}

	if len(texts) == 0 {
		return common.Option{}, false
	}

	matches := fuzzy.Find(want, texts)
	if len(matches) == 0 || matches[0].Score < minFuzzyScore {
		return common.Option{}, false
	}
	return candidates[matches[0].Index], true
}

// isPlaceholder catches the "Select..." entry most dropdowns lead with
func isPlaceholder(opt common.Option) bool {
	if strings.TrimSpace(opt.Value) == "" {
		return true
	}
	text := Normalize(opt.Text)
	return strings.HasPrefix(text, "select") || strings.HasPrefix(text, "choose") || text == "--" || text == "-"
}
