package resolver

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	mainRoomPattern  = regexp.MustCompile(`(?i)main\s*room\s*(\d+)`)
	groupNumPattern  = regexp.MustCompile(`(?i)group\s*(\d+\.\d+)`)
	dottedPattern    = regexp.MustCompile(`\b(\d+\.\d+)\b`)
	roomPattern      = regexp.MustCompile(`(?i)room\s*(\d+)`)
	groupWordPattern = regexp.MustCompile(`(?i)group\s+([A-Za-z0-9][\w ]*?)\s*(?:-|$)`)
	anyNumberPattern = regexp.MustCompile(`\d+`)
	anyWordPattern   = regexp.MustCompile(`[A-Za-z]+`)
)

// InferGroup derives a breakout group label from a document name.
func InferGroup(filename string) string {
	name := filepath.Base(filename)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".docx", ".pdf":
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	if m := mainRoomPattern.FindStringSubmatch(name); m != nil {
		return "Main Room " + m[1]
	}
	if m := groupNumPattern.FindStringSubmatch(name); m != nil {
		return "Group " + m[1]
	}
	if m := roomPattern.FindStringSubmatch(name); m != nil {
		return "Room " + m[1]
	}
	if m := dottedPattern.FindStringSubmatch(name); m != nil {
		return "Group " + m[1]
	}
	if m := groupWordPattern.FindStringSubmatch(name); m != nil {
		return "Group " + strings.TrimSpace(m[1])
	}
	if m := anyNumberPattern.FindString(name); m != "" {
		return "Session " + m
	}
	if m := anyWordPattern.FindString(name); m != "" {
		return cases.Title(language.English).String(m) + " Session"
	}
	return "Main Session"
}

// IsMainRoom reports whether a document is a main-room recording rather
// than a breakout.
func IsMainRoom(filename string) bool {
	return strings.Contains(strings.ToLower(filename), "main room")
}

var (
	// Bounded by non-digits, not \b, so "Group_10_1_2025" matches.
	isoDatePattern     = regexp.MustCompile(`(?:^|\D)(\d{4})-(\d{2})-(\d{2})(?:\D|$)`)
	usDatePattern      = regexp.MustCompile(`(?:^|\D)(\d{1,2})[_-](\d{1,2})[_-](\d{4})(?:\D|$)`)
	compactDatePattern = regexp.MustCompile(`(?:^|\D)(\d{4})(\d{2})(\d{2})(?:\D|$)`)
	longDatePattern    = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
)

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// InferDate derives a YYYY-MM-DD session date from a document name,
// falling back to fallback when the name carries no valid date.
func InferDate(filename string, fallback time.Time) string {
	if m := isoDatePattern.FindStringSubmatch(filename); m != nil {
		if d, ok := makeDate(m[1], m[2], m[3]); ok {
			return d
		}
	}
	if m := usDatePattern.FindStringSubmatch(filename); m != nil {
		if d, ok := makeDate(m[3], m[1], m[2]); ok {
			return d
		}
	}
	if m := compactDatePattern.FindStringSubmatch(filename); m != nil {
		if d, ok := makeDate(m[1], m[2], m[3]); ok {
			return d
		}
	}
	if m := longDatePattern.FindStringSubmatch(filename); m != nil {
		month := months[strings.ToLower(m[1])]
		if d, ok := makeDate(m[3], strconv.Itoa(month), m[2]); ok {
			return d
		}
	}
	return fallback.Format(time.DateOnly)
}

func makeDate(year, month, day string) (string, bool) {
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	s := fmt.Sprintf("%04d-%02d-%02d", y, mo, d)
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return "", false
	}
	return s, true
}

// SessionFilename names a session for documents whose own name is not a
// stable key.
func SessionFilename(group, date string) string {
	return group + " - " + date
}
