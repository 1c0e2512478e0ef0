// Package classify infers what a form control is asking for from its
// attributes and nearby label text. Matching is plain keyword containment;
// it is best-effort and the first matching rule wins.
package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/go-scripts/jobfill/pkg/common"
)

// rule matches when every word in all is present, or any word in any is
// present, or the control's input type is one of types.
type rule struct {
	purpose common.FieldPurpose
	all     []string
	any     []string
	types   []string
}

// rules is ordered; the name rules must run before everything else.
var rules = []rule{
	{purpose: common.PurposeFirstName, all: []string{"first", "name"}},
	{purpose: common.PurposeLastName, all: []string{"last", "name"}},
	{purpose: common.PurposeFullName, all: []string{"full", "name"}},
	{purpose: common.PurposeEmail, any: []string{"email"}, types: []string{"email"}},
	{purpose: common.PurposePhone, any: []string{"phone"}, types: []string{"tel"}},
	{purpose: common.PurposeCoverLetter, all: []string{"cover", "letter"}},
	{purpose: common.PurposeWhyInterested, any: []string{"why", "interested", "apply", "motivation"}},
	{purpose: common.PurposeExperience, any: []string{"experience"}},
	{purpose: common.PurposeResume, any: []string{"resume"}},
	{purpose: common.PurposeLinkedIn, any: []string{"linkedin"}},
	{purpose: common.PurposePortfolio, any: []string{"portfolio", "website"}},
	{purpose: common.PurposeSalary, any: []string{"salary"}},
	{purpose: common.PurposeAvailability, any: []string{"availability", "start"}},
	{purpose: common.PurposeAddress, any: []string{"address"}},
	{purpose: common.PurposeCity, any: []string{"city"}},
	{purpose: common.PurposeState, any: []string{"state"}},
	{purpose: common.PurposeZipCode, any: []string{"zip", "postal"}},
	{purpose: common.PurposeCountry, any: []string{"country"}},
}

// skippedTypes are never filled
var skippedTypes = map[string]bool{
	"hidden":   true,
	"submit":   true,
	"button":   true,
	"file":     true,
	"image":    true,
	"reset":    true,
	"checkbox": true,
	"radio":    true,
}

func (r rule) matches(text, inputType string) bool {
	for _, t := range r.types {
		if inputType == t {
			return true
		}
	}
	if len(r.all) > 0 {
		ok := true
		for _, w := range r.all {
			if !strings.Contains(text, w) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	for _, w := range r.any {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Purpose classifies a control. It never fails; unrecognised controls are
// PurposeUnknown.
func Purpose(f common.Field) common.FieldPurpose {
	text := Text(f)
	inputType := strings.ToLower(strings.TrimSpace(f.Type))

	for _, r := range rules {
		if r.matches(text, inputType) {
			return r.purpose
		}
	}
	return common.PurposeUnknown
}

// Text is the normalised haystack the rules are matched against
func Text(f common.Field) string {
	return Normalize(strings.Join([]string{f.Name, f.ID, f.Placeholder, f.AriaLabel, f.Label}, " "))
}

// Skippable reports whether the control's type is one that is never filled
func Skippable(f common.Field) bool {
	return skippedTypes[strings.ToLower(strings.TrimSpace(f.Type))]
}

// Normalize lowercases s and strips diacritics so "Prénom" and "prenom"
// compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
