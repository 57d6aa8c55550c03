package workbook

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DateOrder is the order of day, month and year in a culture's short date
type DateOrder uint8

const (
	MonthDayYear DateOrder = iota
	DayMonthYear
	YearMonthDay
)

// Culture carries the formatting conventions used to render values as text
// and to read typed text back into values.
type Culture struct {
	Name             string
	Tag              language.Tag
	DecimalSeparator string
	GroupSeparator   string
	DateSeparator    string
	DateOrder        DateOrder

	formatLayout string
	parseLayouts []string
}

func newCulture(name string, tag language.Tag, decimal, group, dateSep string, order DateOrder) *Culture {
	c := &Culture{
		Name:             name,
		Tag:              tag,
		DecimalSeparator: decimal,
		GroupSeparator:   group,
		DateSeparator:    dateSep,
		DateOrder:        order,
	}
	var padded, loose string
	switch order {
	case DayMonthYear:
		padded = "02" + dateSep + "01" + dateSep + "2006"
		loose = "2" + dateSep + "1" + dateSep + "2006"
	case YearMonthDay:
		padded = "2006" + dateSep + "01" + dateSep + "02"
		loose = "2006" + dateSep + "1" + dateSep + "2"
	default:
		padded = "01" + dateSep + "02" + dateSep + "2006"
		loose = "1" + dateSep + "2" + dateSep + "2006"
	}
	c.formatLayout = padded
	c.parseLayouts = []string{
		loose,
		loose + " 15:04",
		loose + " 15:04:05",
		"2006-01-02",
		"2006-01-02 15:04",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	return c
}

// InvariantCulture formats numbers with a period and no grouping, and dates
// as MM/dd/yyyy.
var InvariantCulture = newCulture("invariant", language.Und, ".", ",", "/", MonthDayYear)

var (
	supportedTags = []language.Tag{
		language.AmericanEnglish,
		language.BritishEnglish,
		language.German,
		language.French,
		language.Czech,
		language.Japanese,
	}
	supportedCultures = []*Culture{
		newCulture("en-US", language.AmericanEnglish, ".", ",", "/", MonthDayYear),
		newCulture("en-GB", language.BritishEnglish, ".", ",", "/", DayMonthYear),
		newCulture("de-DE", language.German, ",", ".", ".", DayMonthYear),
		newCulture("fr-FR", language.French, ",", " ", "/", DayMonthYear),
		newCulture("cs-CZ", language.Czech, ",", " ", ".", DayMonthYear),
		newCulture("ja-JP", language.Japanese, ".", ",", "/", YearMonthDay),
	}
	cultureMatcher = language.NewMatcher(supportedTags)
)

// CultureFor returns the closest supported culture for a language tag, or
// the invariant culture when nothing matches.
func CultureFor(tag language.Tag) *Culture {
	if tag == language.Und {
		return InvariantCulture
	}
	_, index, confidence := cultureMatcher.Match(tag)
	if confidence == language.No {
		return InvariantCulture
	}
	return supportedCultures[index]
}

// ParseCulture resolves a BCP 47 name such as "de-DE". an empty name or
// "invariant" selects the invariant culture.
func ParseCulture(name string) (*Culture, error) {
	if name == "" || strings.EqualFold(name, "invariant") {
		return InvariantCulture, nil
	}
	tag, err := language.Parse(name)
	if err != nil {
		return nil, newAppErrorf(InvalidArgument, "invalid culture %q: %v", name, err)
	}
	return CultureFor(tag), nil
}

// FormatNumber renders the shortest text that parses back to exactly n.
func (c *Culture) FormatNumber(n float64) string {
	var s string
	abs := math.Abs(n)
	if abs != 0 && (abs >= 1e15 || abs < 1e-9) {
		s = strconv.FormatFloat(n, 'E', -1, 64)
	} else {
		s = strconv.FormatFloat(n, 'f', -1, 64)
	}
	if c.DecimalSeparator != "." {
		s = strings.Replace(s, ".", c.DecimalSeparator, 1)
	}
	return s
}

// ParseNumber reads a number written in this culture. group separators are
// accepted only in groups of three digits, and a trailing percent sign
// divides by one hundred.
func (c *Culture) ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	if percent {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	if s == "" {
		return 0, false
	}

	sign := ""
	if s[0] == '+' || s[0] == '-' {
		sign = s[:1]
		s = s[1:]
	}

	mantissa, exponent := s, ""
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa, exponent = s[:i], s[i:]
		if !validExponent(exponent) {
			return 0, false
		}
	}

	intPart, fracPart, hasFrac := strings.Cut(mantissa, c.DecimalSeparator)
	intPart, ok := c.stripGroups(intPart)
	if !ok || !allDigits(intPart) || !allDigits(fracPart) {
		return 0, false
	}
	if intPart == "" && fracPart == "" {
		return 0, false
	}

	text := sign + intPart
	if text == sign {
		text += "0"
	}
	if hasFrac && fracPart != "" {
		text += "." + fracPart
	}
	text += exponent

	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	if percent {
		n /= 100
	}
	return n, true
}

func (c *Culture) stripGroups(s string) (string, bool) {
	if c.GroupSeparator == "" || !strings.Contains(s, c.GroupSeparator) {
		return s, true
	}
	parts := strings.Split(s, c.GroupSeparator)
	if len(parts[0]) == 0 || len(parts[0]) > 3 {
		return "", false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

func validExponent(s string) bool {
	// e, optional sign, at least one digit
	s = s[1:]
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return s != "" && allDigits(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatDateTime renders the culture's short date, followed by the time of
// day when it is not midnight.
func (c *Culture) FormatDateTime(t time.Time) string {
	s := t.Format(c.formatLayout)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return s
	}
	if t.Nanosecond() != 0 {
		return s + " " + t.Format("15:04:05.000")
	}
	return s + " " + t.Format("15:04:05")
}

// ParseDateTime reads a date in the culture's order or in ISO 8601 form.
func (c *Culture) ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range c.parseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var durationPattern = regexp.MustCompile(`^(-)?(?:(\d+)\.)?(\d+):(\d{2})(?::(\d{2})(?:[.,](\d{1,9}))?)?$`)

// ParseDuration reads [-][d.]h:mm[:ss[.fraction]]. hours may exceed 23 when
// no day part is given.
func (c *Culture) ParseDuration(s string) (time.Duration, bool) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	days, _ := strconv.ParseInt(orZero(m[2]), 10, 64)
	hours, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil || (m[2] != "" && hours > 23) {
		return 0, false
	}
	minutes, _ := strconv.ParseInt(m[4], 10, 64)
	seconds, _ := strconv.ParseInt(orZero(m[5]), 10, 64)
	if minutes > 59 || seconds > 59 {
		return 0, false
	}
	var nanos int64
	if m[6] != "" {
		frac := m[6] + strings.Repeat("0", 9-len(m[6]))
		nanos, _ = strconv.ParseInt(frac, 10, 64)
	}

	totalSeconds := float64(days)*86400 + float64(hours)*3600 + float64(minutes)*60 + float64(seconds)
	if totalSeconds > float64(math.MaxInt64)/float64(time.Second)-1 {
		return 0, false
	}
	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(nanos)
	if m[1] == "-" {
		d = -d
	}
	return d, true
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func formatDuration(d time.Duration) string {
	var b strings.Builder
	// the magnitude is taken as uint64 so math.MinInt64 negates cleanly
	n := uint64(d)
	if d < 0 {
		b.WriteByte('-')
		n = -n
	}
	days := n / uint64(24*time.Hour)
	n %= uint64(24 * time.Hour)
	hours := n / uint64(time.Hour)
	n %= uint64(time.Hour)
	minutes := n / uint64(time.Minute)
	n %= uint64(time.Minute)
	seconds := n / uint64(time.Second)
	nanos := n % uint64(time.Second)

	if days > 0 {
		b.WriteString(strconv.FormatUint(days, 10))
		b.WriteByte('.')
	}
	b.WriteString(pad2(int64(hours)))
	b.WriteByte(':')
	b.WriteString(pad2(int64(minutes)))
	b.WriteByte(':')
	b.WriteString(pad2(int64(seconds)))
	if nanos > 0 {
		frac := strconv.FormatUint(nanos+1e9, 10)[1:]
		b.WriteByte('.')
		b.WriteString(strings.TrimRight(frac, "0"))
	}
	return b.String()
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
