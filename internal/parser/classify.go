package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Rule maps normalised classification text to a label. Exactly one of
// Exact, Prefix or Contains is set; Without vetoes a Prefix or Contains
// match.
type Rule struct {
	Label    string
	Exact    string
	Prefix   string
	Contains string
	Without  string
}

func (r Rule) match(t string) bool {
	if r.Without != "" && strings.Contains(t, r.Without) {
		return false
	}
	switch {
	case r.Exact != "":
		return t == r.Exact
	case r.Prefix != "":
		return strings.HasPrefix(t, r.Prefix)
	case r.Contains != "":
		return strings.Contains(t, r.Contains)
	}
	return false
}

// Vocabulary is a domain's fixed classification enum.
type Vocabulary struct {
	Rules   []Rule
	Default string
}

// Classify maps free classification text to the vocabulary. Rules are
// tried in order; unmatched or empty text yields the default.
func Classify(text string, v Vocabulary) string {
	t := Normalize(text)
	if t == "" {
		return v.Default
	}
	for _, r := range v.Rules {
		if r.match(t) {
			return r.Label
		}
	}
	return v.Default
}

var symbolFilter = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.Is(unicode.So, r) ||
		unicode.Is(unicode.Sk, r) ||
		unicode.Is(unicode.Cs, r) ||
		unicode.Is(unicode.Co, r) ||
		r == '\uFE0F' || r == '\u200D'
}))

var emphasis = strings.NewReplacer("*", " ", "_", " ", "`", " ", "#", " ")

// Normalize strips emoji, pictographs and markdown emphasis, folds case
// and collapses whitespace.
func Normalize(text string) string {
	s, _, err := transform.String(symbolFilter, text)
	if err != nil {
		s = text
	}
	s = emphasis.Replace(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// StripSymbols removes emoji and pictographs but keeps case.
func StripSymbols(text string) string {
	s, _, err := transform.String(symbolFilter, text)
	if err != nil {
		return strings.TrimSpace(text)
	}
	return strings.Join(strings.Fields(s), " ")
}

func fold(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}

var (
	numberPattern  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	integerPattern = regexp.MustCompile(`\b\d+\b`)
)

// FirstNumber returns the first integer or decimal literal in text.
func FirstNumber(text string) (float64, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FirstInt returns the first standalone integer in text, or 0.
func FirstInt(text string) int {
	m := integerPattern.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// TargetNumber is the numeric target of a goal: the first number in the
// text, else 1.0 for an affirmed quantifiable goal and 0.0 otherwise.
func TargetNumber(goalText, classification string) float64 {
	if n, ok := FirstNumber(goalText); ok {
		return n
	}
	if classification == "quantifiable" {
		return 1.0
	}
	return 0.0
}

// Slug turns a display label into a snake_case identifier.
func Slug(s string) string {
	var sb strings.Builder
	lastUnderscore := true
	for _, r := range Normalize(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			sb.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}
