package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b\.?`

var (
	isoDate     = regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`)
	numericDate = regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})\b`)
	monthDay    = regexp.MustCompile(`(?i)\b` + monthPattern + `[-/\s]+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?[-/\s]+(\d{4})\b)?`)
	dayMonth    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?[-/\s]+` + monthPattern + `(?:,?[-/\s]+(\d{4})\b)?`)
	monthOnly   = regexp.MustCompile(`(?i)\b` + monthPattern + `(?:,?[-/\s]+(\d{4})\b)?`)
	yearOnly    = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	digitRun    = regexp.MustCompile(`\d+`)
	relative    = regexp.MustCompile(`(?i)\b(today|tonight|yesterday|tomorrow|(this|last|next)\s+(week|month|year))\b`)
)

// NaturalDateParser reads absolute forms ("Feb 26, 1987", "26-Feb-1987",
// "02/26/1987", "March", "1992") and relative words ("yesterday",
// "last month") directly, and falls back to the when rule set for casual
// expressions.
// Components missing from the text are taken from the reference date.
type NaturalDateParser struct {
	casual *when.Parser
}

// NewDateParser returns a parser with the English and common when rules loaded.
func NewDateParser() *NaturalDateParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &NaturalDateParser{casual: w}
}

// ParseDate implements DateParser.
func (p *NaturalDateParser) ParseDate(text string, ref time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	if m := isoDate.FindStringSubmatch(text); m != nil {
		return build(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := numericDate.FindStringSubmatch(text); m != nil {
		// Month first unless the leading field cannot be a month.
		first, second := atoi(m[1]), atoi(m[2])
		if first > 12 {
			return build(atoi(m[3]), second, first)
		}
		return build(atoi(m[3]), first, second)
	}
	if m := monthDay.FindStringSubmatch(text); m != nil {
		return build(yearOr(m[3], ref), int(monthIndex(m[1])), atoi(m[2]))
	}
	if m := dayMonth.FindStringSubmatch(text); m != nil {
		return build(yearOr(m[3], ref), int(monthIndex(m[2])), atoi(m[1]))
	}
	if m := monthOnly.FindStringSubmatch(text); m != nil {
		return build(yearOr(m[2], ref), int(monthIndex(m[1])), ref.Day())
	}
	if m := relative.FindStringSubmatch(text); m != nil {
		return shift(strings.ToLower(m[1]), ref), true
	}

	year := yearOnly.FindStringSubmatch(text)
	if year != nil && len(digitRun.FindAllString(text, -1)) == 1 {
		return build(atoi(year[1]), int(ref.Month()), ref.Day())
	}

	r, err := p.casual.Parse(text, ref)
	if err != nil || r == nil {
		if year != nil {
			return build(atoi(year[1]), int(ref.Month()), ref.Day())
		}
		return time.Time{}, false
	}
	if year != nil {
		// An explicit year in the text wins over whatever the casual rules inferred.
		_, month, day := r.Time.Date()
		return build(atoi(year[1]), int(month), day)
	}
	return r.Time, true
}

func shift(expr string, ref time.Time) time.Time {
	fields := strings.Fields(expr)
	if len(fields) == 1 {
		switch fields[0] {
		case "yesterday":
			return ref.AddDate(0, 0, -1)
		case "tomorrow":
			return ref.AddDate(0, 0, 1)
		default:
			return ref
		}
	}

	step := 0
	switch fields[0] {
	case "last":
		step = -1
	case "next":
		step = 1
	}
	switch fields[len(fields)-1] {
	case "week":
		return ref.AddDate(0, 0, 7*step)
	case "month":
		return ref.AddDate(0, step, 0)
	default:
		return ref.AddDate(step, 0, 0)
	}
}

func build(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func yearOr(raw string, ref time.Time) int {
	if raw == "" {
		return ref.Year()
	}
	return atoi(raw)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var monthPrefixes = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

func monthIndex(name string) time.Month {
	name = strings.ToLower(name)
	for i, p := range monthPrefixes {
		if strings.HasPrefix(name, p) {
			return time.Month(i + 1)
		}
	}
	return 0
}
