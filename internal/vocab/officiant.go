package vocab

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NameStyle selects how much of the officiant's name survives behind a
// recognized title.
type NameStyle string

const (
	// NameStyleSurname keeps only the last name: "Pn. Verwold".
	NameStyleSurname NameStyle = "surname"
	// NameStyleFull keeps everything after the title: "Pn. Ulrike Verwold".
	NameStyleFull NameStyle = "full"
)

// ParseNameStyle maps a config value to a NameStyle, defaulting to surname.
func ParseNameStyle(s string) NameStyle {
	if NameStyle(strings.ToLower(strings.TrimSpace(s))) == NameStyleFull {
		return NameStyleFull
	}
	return NameStyleSurname
}

type Gender int

const (
	GenderNeutral Gender = iota
	GenderMale
	GenderFemale
)

// Title is the printed form of a recognized clergy title.
type Title struct {
	Abbrev string
	Gender Gender
}

// titles is keyed by the case-folded title token.
var titles = map[string]Title{
	"pastor":      {Abbrev: "P.", Gender: GenderMale},
	"pfarrer":     {Abbrev: "P.", Gender: GenderMale},
	"pfr.":        {Abbrev: "P.", Gender: GenderMale},
	"p.":          {Abbrev: "P.", Gender: GenderMale},
	"pastorin":    {Abbrev: "Pn.", Gender: GenderFemale},
	"pfarrerin":   {Abbrev: "Pn.", Gender: GenderFemale},
	"pfrn.":       {Abbrev: "Pn.", Gender: GenderFemale},
	"pn.":         {Abbrev: "Pn.", Gender: GenderFemale},
	"diakon":      {Abbrev: "Diakon", Gender: GenderMale},
	"diakonin":    {Abbrev: "Diakonin", Gender: GenderFemale},
	"prädikant":   {Abbrev: "Prädikant", Gender: GenderMale},
	"prädikantin": {Abbrev: "Prädikantin", Gender: GenderFemale},
}

// LookupTitle reports whether token is a recognized title.
func LookupTitle(token string) (Title, bool) {
	t, ok := titles[fold(strings.TrimSpace(token))]
	return t, ok
}

var officiantSep = regexp.MustCompile(`\s*[;/&]\s*|\s+und\s+`)

// Officiant normalizes a free-text officiant field. "Pastor Keppel" becomes
// "P. Keppel"; names without a recognized title pass through unchanged.
// Several people in one field are normalized one by one and joined with
// " und ". An empty field yields "".
func Officiant(raw string, style NameStyle) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var out []string
	for _, p := range officiantSep.Split(raw, -1) {
		for _, person := range splitComma(p) {
			if n := officiantName(person, style); n != "" {
				out = append(out, n)
			}
		}
	}
	return strings.Join(out, " und ")
}

// splitComma splits s on commas only if every part reads as a person on
// its own (a title, or at least two words). "Verwold, Ulrike" stays whole.
func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	if len(parts) == 1 {
		return parts
	}
	for _, p := range parts {
		f := strings.Fields(p)
		if len(f) == 0 {
			continue
		}
		if _, ok := LookupTitle(f[0]); !ok && len(f) < 2 {
			return []string{s}
		}
	}
	return parts
}

func officiantName(s string, style NameStyle) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	t, ok := LookupTitle(fields[0])
	if !ok || len(fields) == 1 {
		return strings.Join(fields, " ")
	}

	rest := strings.Join(fields[1:], " ")
	var given, family []string
	if last, first, inverted := strings.Cut(rest, ","); inverted {
		// "Verwold, Ulrike"
		given, family = strings.Fields(first), strings.Fields(last)
	} else {
		name := strings.Fields(rest)
		split := surnameStart(name)
		given, family = name[:split], name[split:]
	}
	if len(family) == 0 {
		family, given = given, nil
	}

	if style == NameStyleFull {
		return t.Abbrev + " " + strings.Join(append(given, family...), " ")
	}
	return t.Abbrev + " " + strings.Join(family, " ")
}

// surnameStart is the index where the surname begins: the last token plus
// any lowercase particles before it ("von der Heide").
func surnameStart(name []string) int {
	i := len(name) - 1
	for i > 0 && startsLower(name[i-1]) {
		i--
	}
	return i
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}
