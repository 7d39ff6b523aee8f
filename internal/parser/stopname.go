package parser

import (
	"regexp"
	"strings"
)

// Extreme marks a timetable column as the departure or arrival end of a route.
type Extreme string

const (
	ExtremeNone   Extreme = ""
	ExtremeStart  Extreme = "start"
	ExtremeFinish Extreme = "finish"
)

// Dotted forms come first so that "отпр." is consumed with its period.
var extremeMarkers = []struct {
	marker  string
	extreme Extreme
}{
	{"отпр.", ExtremeStart},
	{"отпр", ExtremeStart},
	{"приб.", ExtremeFinish},
	{"приб", ExtremeFinish},
}

var placeAbbreviations = map[string]struct{}{
	"ул": {}, "ул.": {},
	"пл": {}, "пл.": {},
	"пер": {}, "пер.": {},
	"пр": {}, "пр.": {},
	"пр-т": {}, "пр-т.": {},
	"просп": {}, "просп.": {},
	"б-р": {}, "б-р.": {},
	"ш": {}, "ш.": {},
}

var parenthetical = regexp.MustCompile(`\(([^()]*)\)`)

// StopName is a raw timetable stop label split into lookup candidates.
type StopName struct {
	Raw   string
	Main  string // label outside the parentheses, "" when there is none
	Alias string // parenthetical alternate name, "" when there is none
	// Candidates holds the non-empty of Main and Alias, in that order.
	Candidates []string
	Extreme    Extreme
}

// BindName is the name a stop picked for this label is aliased under: Main,
// or Alias for a label that is only a parenthetical.
func (n StopName) BindName() string {
	if n.Main != "" {
		return n.Main
	}
	return n.Alias
}

// NormalizeStopName strips departure/arrival markers and street abbreviations
// from a raw stop label and splits off a parenthetical alternate name.
func NormalizeStopName(raw string) StopName {
	res := StopName{Raw: raw}
	s := raw

	for _, m := range extremeMarkers {
		if strings.Contains(s, m.marker) {
			s = strings.Replace(s, m.marker, "", 1)
			res.Extreme = m.extreme
			break
		}
	}

	var alias string
	if loc := parenthetical.FindStringSubmatchIndex(s); loc != nil {
		alias = s[loc[2]:loc[3]]
		s = s[:loc[0]] + " " + s[loc[1]:]
	}

	res.Main, res.Alias = stripAbbreviations(s), stripAbbreviations(alias)
	for _, c := range []string{res.Main, res.Alias} {
		if c != "" {
			res.Candidates = append(res.Candidates, c)
		}
	}
	return res
}

func stripAbbreviations(s string) string {
	words := dropAbbreviations(strings.Fields(s))
	s = strings.Join(words, " ")

	parts := strings.Split(s, ".")
	kept := parts[:0]
	for _, p := range parts {
		if _, ok := placeAbbreviations[strings.TrimSpace(p)]; ok {
			continue
		}
		kept = append(kept, p)
	}
	return strings.TrimSpace(strings.Join(kept, "."))
}

func dropAbbreviations(words []string) []string {
	kept := words[:0]
	for _, w := range words {
		if _, ok := placeAbbreviations[w]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}
