// Package vocab maps free-text service titles and officiant names onto the
// fixed abbreviations used in the printed service listing.
package vocab

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultServiceCode is used for plain "Gottesdienst", empty and
// unrecognized titles.
const DefaultServiceCode = "Gd."

// ServiceRule maps every title containing Keyword (case-insensitive) to Code.
type ServiceRule struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Code    string `yaml:"code" json:"code"`
}

// DefaultServiceRules is evaluated top to bottom; the first match wins.
// Specific forms come first so that "Familiengottesdienst mit Abendmahl"
// resolves to the communion code.
var DefaultServiceRules = []ServiceRule{
	{Keyword: "abendmahl", Code: "Gd. m. A."},
	{Keyword: "tauf", Code: "Gd. m. T."},
	{Keyword: "konfirmation", Code: "Konfirmation"},
	{Keyword: "kinder", Code: "Kinderkirche"},
	{Keyword: "familie", Code: "Familiengd."},
	{Keyword: "andacht", Code: "Andacht"},
}

// ServiceTypes is an ordered, pre-folded rule list. The zero value has no
// rules and maps everything to DefaultServiceCode.
type ServiceTypes struct {
	rules []ServiceRule
}

// NewServiceTypes builds a rule list with extra rules evaluated before the
// built-in ones. Rules with an empty keyword or code are ignored.
func NewServiceTypes(extra []ServiceRule) *ServiceTypes {
	st := &ServiceTypes{rules: make([]ServiceRule, 0, len(extra)+len(DefaultServiceRules))}
	for _, r := range append(append([]ServiceRule{}, extra...), DefaultServiceRules...) {
		kw := fold(strings.TrimSpace(r.Keyword))
		code := strings.TrimSpace(r.Code)
		if kw == "" || code == "" {
			continue
		}
		st.rules = append(st.rules, ServiceRule{Keyword: kw, Code: code})
	}
	return st
}

// Code returns the abbreviation for title.
func (st *ServiceTypes) Code(title string) string {
	t := fold(title)
	if strings.TrimSpace(t) == "" {
		return DefaultServiceCode
	}
	for _, r := range st.rules {
		if strings.Contains(t, r.Keyword) {
			return r.Code
		}
	}
	return DefaultServiceCode
}

var defaultServiceTypes = NewServiceTypes(nil)

// ServiceType maps title using DefaultServiceRules.
func ServiceType(title string) string {
	return defaultServiceTypes.Code(title)
}

// fold puts s into NFC and applies Unicode case folding so that keyword
// matching ignores case and composed/decomposed umlauts alike.
// A cases.Caser is stateful, so a fresh one is used per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
