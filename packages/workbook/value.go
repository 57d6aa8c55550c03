package workbook

import (
	"math"
	"strings"
	"time"
	"unicode/utf16"
)

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions
type ErrorCode uint8

const (
	ErrorCodeNull  ErrorCode = 1 // #NULL! - no cells in common between ranges
	ErrorCodeDiv0  ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef   ErrorCode = 4 // #REF! - invalid cell reference
	ErrorCodeName  ErrorCode = 5 // #NAME? - unrecognized function name
	ErrorCodeNum   ErrorCode = 6 // #NUM! - number too large or small to be represented
	ErrorCodeNA    ErrorCode = 7 // #N/A - value not available

	minErrorCode = ErrorCodeNull
	maxErrorCode = ErrorCodeNA
)

// ErrorMapper maps error code numbers to their string representations
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeNull:  "#NULL!",
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
	ErrorCodeName:  "#NAME?",
	ErrorCodeNum:   "#NUM!",
	ErrorCodeNA:    "#N/A",
}

func (c ErrorCode) String() string {
	return ErrorMapper[c]
}

// Valid reports whether the code is one of the known spreadsheet errors.
func (c ErrorCode) Valid() bool {
	return c >= minErrorCode && c <= maxErrorCode
}

// ParseErrorCode maps a display string such as "#DIV/0!" back to its code.
// matching is case-insensitive.
func ParseErrorCode(s string) (ErrorCode, bool) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for code, text := range ErrorMapper {
		if text == upper {
			return code, true
		}
	}
	return 0, false
}

// CellType is the type tag of a CellValue
type CellType uint8

const (
	CellTypeBlank    CellType = 0
	CellTypeBoolean  CellType = 1
	CellTypeNumber   CellType = 2
	CellTypeText     CellType = 3
	CellTypeError    CellType = 4
	CellTypeDateTime CellType = 5
	CellTypeTimeSpan CellType = 6
)

var cellTypeNames = [...]string{"Blank", "Boolean", "Number", "Text", "Error", "DateTime", "TimeSpan"}

func (t CellType) String() string {
	if int(t) < len(cellTypeNames) {
		return cellTypeNames[t]
	}
	return "Unknown"
}

// MaxTextLength is the per-cell text limit, in UTF-16 code units.
const MaxTextLength = 32767

// serial date bounds: 1899-12-30 is day 0, 9999-12-31 is the last day.
const maxDateTimeSerial = 2958466.0

// 2^63 nanoseconds, the first magnitude time.Duration cannot hold
const durationOverflow = float64(math.MaxInt64)

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// CellValue is an immutable tagged union of the values a cell can hold.
// the zero value is Blank. values are comparable, and comparison accounts
// for the type tag: Number(0), Boolean(false) and Blank are all different.
type CellValue struct {
	kind   CellType
	number float64 // Boolean (0/1), Number, Error code, DateTime and TimeSpan serials
	text   string
}

// Blank is the empty cell value.
var Blank = CellValue{}

// NewBoolean creates a Boolean value
func NewBoolean(b bool) CellValue {
	if b {
		return CellValue{kind: CellTypeBoolean, number: 1}
	}
	return CellValue{kind: CellTypeBoolean}
}

// NewNumber creates a Number value. NaN and infinities are rejected.
func NewNumber(n float64) (CellValue, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Blank, newAppErrorf(InvalidArgument, "number %v is not finite", n)
	}
	return CellValue{kind: CellTypeNumber, number: n}, nil
}

// NewText creates a Text value. empty text is Blank.
func NewText(s string) (CellValue, error) {
	if s == "" {
		return Blank, nil
	}
	if n := textLength(s); n > MaxTextLength {
		return Blank, newAppErrorf(InvalidArgument, "text of length %d exceeds the %d character limit", n, MaxTextLength)
	}
	return CellValue{kind: CellTypeText, text: s}, nil
}

// NewError creates an Error value
func NewError(code ErrorCode) (CellValue, error) {
	if !code.Valid() {
		return Blank, newAppErrorf(InvalidArgument, "error code %d is out of range", code)
	}
	return CellValue{kind: CellTypeError, number: float64(code)}, nil
}

// NewDateTime creates a DateTime value from a time. the wall clock of t is
// kept; the location is dropped.
func NewDateTime(t time.Time) (CellValue, error) {
	return NewDateTimeSerial(timeToSerial(t))
}

// NewDateTimeSerial creates a DateTime value from a serial day count.
func NewDateTimeSerial(serial float64) (CellValue, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 0 || serial >= maxDateTimeSerial {
		return Blank, newAppErrorf(InvalidArgument, "date serial %v is outside the supported range", serial)
	}
	return CellValue{kind: CellTypeDateTime, number: serial}, nil
}

// NewTimeSpan creates a TimeSpan value
func NewTimeSpan(d time.Duration) CellValue {
	return CellValue{kind: CellTypeTimeSpan, number: durationToSerial(d)}
}

// NewTimeSpanSerial creates a TimeSpan value from a day count.
func NewTimeSpanSerial(days float64) (CellValue, error) {
	if !timeSpanInRange(days) {
		return Blank, newAppErrorf(InvalidArgument, "time span of %v days is outside the supported range", days)
	}
	return CellValue{kind: CellTypeTimeSpan, number: days}, nil
}

// Type returns the type tag
func (v CellValue) Type() CellType { return v.kind }

func (v CellValue) IsBlank() bool    { return v.kind == CellTypeBlank }
func (v CellValue) IsBoolean() bool  { return v.kind == CellTypeBoolean }
func (v CellValue) IsNumber() bool   { return v.kind == CellTypeNumber }
func (v CellValue) IsText() bool     { return v.kind == CellTypeText }
func (v CellValue) IsError() bool    { return v.kind == CellTypeError }
func (v CellValue) IsDateTime() bool { return v.kind == CellTypeDateTime }
func (v CellValue) IsTimeSpan() bool { return v.kind == CellTypeTimeSpan }

// IsUnifiedNumber reports whether the value is a Number, DateTime or TimeSpan.
func (v CellValue) IsUnifiedNumber() bool {
	return v.kind == CellTypeNumber || v.kind == CellTypeDateTime || v.kind == CellTypeTimeSpan
}

// Equal reports whether two values have the same tag and payload.
func (v CellValue) Equal(other CellValue) bool {
	return v == other
}

func castError(from, to CellType) *AppError {
	return newAppErrorf(FailedPrecondition, "cannot get %s from a %s value", to, from)
}

// GetBoolean returns the payload of a Boolean value
func (v CellValue) GetBoolean() (bool, error) {
	if v.kind != CellTypeBoolean {
		return false, castError(v.kind, CellTypeBoolean)
	}
	return v.number != 0, nil
}

// GetNumber returns the payload of a Number value
func (v CellValue) GetNumber() (float64, error) {
	if v.kind != CellTypeNumber {
		return 0, castError(v.kind, CellTypeNumber)
	}
	return v.number, nil
}

// GetText returns the payload of a Text value
func (v CellValue) GetText() (string, error) {
	if v.kind != CellTypeText {
		return "", castError(v.kind, CellTypeText)
	}
	return v.text, nil
}

// GetError returns the payload of an Error value
func (v CellValue) GetError() (ErrorCode, error) {
	if v.kind != CellTypeError {
		return 0, castError(v.kind, CellTypeError)
	}
	return ErrorCode(v.number), nil
}

// GetDateTime returns the payload of a DateTime value as a UTC time
func (v CellValue) GetDateTime() (time.Time, error) {
	if v.kind != CellTypeDateTime {
		return time.Time{}, castError(v.kind, CellTypeDateTime)
	}
	return serialToTime(v.number), nil
}

// GetTimeSpan returns the payload of a TimeSpan value
func (v CellValue) GetTimeSpan() (time.Duration, error) {
	if v.kind != CellTypeTimeSpan {
		return 0, castError(v.kind, CellTypeTimeSpan)
	}
	return serialToDuration(v.number), nil
}

// GetUnifiedNumber returns the numeric payload of a Number, DateTime or
// TimeSpan value. dates and durations are serial day counts.
func (v CellValue) GetUnifiedNumber() (float64, error) {
	if !v.IsUnifiedNumber() {
		return 0, castError(v.kind, CellTypeNumber)
	}
	return v.number, nil
}

// String renders the value with the invariant culture
func (v CellValue) String() string {
	return v.ToString(InvariantCulture)
}

// ToString renders the value for display in the given culture. the output of
// ToString is accepted by FromText and the TryConvert family for the same
// culture.
func (v CellValue) ToString(c *Culture) string {
	if c == nil {
		c = InvariantCulture
	}
	switch v.kind {
	case CellTypeBoolean:
		if v.number != 0 {
			return "TRUE"
		}
		return "FALSE"
	case CellTypeNumber:
		return c.FormatNumber(v.number)
	case CellTypeText:
		return v.text
	case CellTypeError:
		return ErrorCode(v.number).String()
	case CellTypeDateTime:
		return c.FormatDateTime(serialToTime(v.number))
	case CellTypeTimeSpan:
		return formatDuration(serialToDuration(v.number))
	}
	return ""
}

// FromText interprets user-typed text the way a spreadsheet does: empty text
// is Blank, then booleans, error literals, numbers, durations and dates are
// recognised, and anything else stays Text.
func FromText(s string, c *Culture) (CellValue, error) {
	if c == nil {
		c = InvariantCulture
	}
	if s == "" {
		return Blank, nil
	}
	if b, ok := parseBoolean(s); ok {
		return NewBoolean(b), nil
	}
	if code, ok := ParseErrorCode(s); ok {
		return NewError(code)
	}
	if n, ok := c.ParseNumber(s); ok {
		return NewNumber(n)
	}
	if d, ok := c.ParseDuration(s); ok {
		return NewTimeSpan(d), nil
	}
	if t, ok := c.ParseDateTime(s); ok {
		if v, err := NewDateTime(t); err == nil {
			return v, nil
		}
	}
	return NewText(s)
}

// TryConvertBlank reports whether the value counts as blank: Blank itself or
// empty text.
func (v CellValue) TryConvertBlank() bool {
	return v.kind == CellTypeBlank || (v.kind == CellTypeText && v.text == "")
}

// TryConvertBoolean coerces to a boolean. numbers are TRUE when non-zero and
// text must read TRUE or FALSE in any case.
func (v CellValue) TryConvertBoolean() (bool, bool) {
	switch v.kind {
	case CellTypeBoolean:
		return v.number != 0, true
	case CellTypeNumber:
		return v.number != 0, true
	case CellTypeText:
		return parseBoolean(v.text)
	}
	return false, false
}

// TryConvertNumber coerces to a number. booleans are 1/0, dates and
// durations are their serials, and text is parsed as a number, a duration or
// a date in the given culture.
func (v CellValue) TryConvertNumber(c *Culture) (float64, bool) {
	if c == nil {
		c = InvariantCulture
	}
	switch v.kind {
	case CellTypeNumber, CellTypeDateTime, CellTypeTimeSpan:
		return v.number, true
	case CellTypeBoolean:
		return v.number, true
	case CellTypeText:
		if n, ok := c.ParseNumber(v.text); ok {
			return n, true
		}
		if d, ok := c.ParseDuration(v.text); ok {
			return durationToSerial(d), true
		}
		if t, ok := c.ParseDateTime(v.text); ok {
			serial := timeToSerial(t)
			if serial >= 0 && serial < maxDateTimeSerial {
				return serial, true
			}
		}
	}
	return 0, false
}

// TryConvertText renders any value as text
func (v CellValue) TryConvertText(c *Culture) (string, bool) {
	return v.ToString(c), true
}

// TryConvertError succeeds only for Error values
func (v CellValue) TryConvertError() (ErrorCode, bool) {
	if v.kind != CellTypeError {
		return 0, false
	}
	return ErrorCode(v.number), true
}

// TryConvertDateTime coerces to a time. numbers must fall within the serial
// date range.
func (v CellValue) TryConvertDateTime(c *Culture) (time.Time, bool) {
	if c == nil {
		c = InvariantCulture
	}
	switch v.kind {
	case CellTypeDateTime:
		return serialToTime(v.number), true
	case CellTypeNumber, CellTypeTimeSpan:
		if v.number >= 0 && v.number < maxDateTimeSerial {
			return serialToTime(v.number), true
		}
	case CellTypeText:
		if t, ok := c.ParseDateTime(v.text); ok {
			serial := timeToSerial(t)
			if serial >= 0 && serial < maxDateTimeSerial {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// TryConvertTimeSpan coerces to a duration
func (v CellValue) TryConvertTimeSpan(c *Culture) (time.Duration, bool) {
	if c == nil {
		c = InvariantCulture
	}
	switch v.kind {
	case CellTypeTimeSpan, CellTypeNumber:
		if timeSpanInRange(v.number) {
			return serialToDuration(v.number), true
		}
	case CellTypeText:
		if d, ok := c.ParseDuration(v.text); ok {
			return d, true
		}
		if n, ok := c.ParseNumber(v.text); ok && timeSpanInRange(n) {
			return serialToDuration(n), true
		}
	}
	return 0, false
}

// Convertible lists the Go types a CellValue can be coerced to
type Convertible interface {
	bool | float64 | string | ErrorCode | time.Time | time.Duration
}

// TryConvert applies the coercion matching T. it never panics; a failed
// coercion returns the zero value and false.
func TryConvert[T Convertible](v CellValue, c *Culture) (T, bool) {
	var zero T
	var out any
	var ok bool
	switch any(zero).(type) {
	case bool:
		out, ok = v.TryConvertBoolean()
	case float64:
		out, ok = v.TryConvertNumber(c)
	case string:
		out, ok = v.TryConvertText(c)
	case ErrorCode:
		out, ok = v.TryConvertError()
	case time.Time:
		out, ok = v.TryConvertDateTime(c)
	case time.Duration:
		out, ok = v.TryConvertTimeSpan(c)
	}
	if !ok {
		return zero, false
	}
	return out.(T), true
}

func parseBoolean(s string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return true, true
	case "FALSE":
		return false, true
	}
	return false, false
}

// textLength counts UTF-16 code units, which is how the file format measures
// cell text.
func textLength(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

const millisPerDay = 24 * 60 * 60 * 1000

func timeToSerial(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	ms := wall.UnixMilli() - serialEpoch.UnixMilli()
	return float64(ms) / millisPerDay
}

func serialToTime(serial float64) time.Time {
	ms := int64(math.Round(serial * millisPerDay))
	return time.UnixMilli(serialEpoch.UnixMilli() + ms).UTC()
}

func durationToSerial(d time.Duration) float64 {
	return float64(d) / float64(24*time.Hour)
}

// timeSpanInRange reports whether days converts to a time.Duration
// without overflow. NaN and infinities are out of range.
func timeSpanInRange(days float64) bool {
	ns := math.Round(days * float64(24*time.Hour))
	return !math.IsNaN(ns) && math.Abs(ns) < durationOverflow
}

// serialToDuration saturates at the time.Duration bounds
func serialToDuration(days float64) time.Duration {
	ns := math.Round(days * float64(24*time.Hour))
	switch {
	case ns >= durationOverflow:
		return math.MaxInt64
	case ns <= -durationOverflow:
		return math.MinInt64
	}
	return time.Duration(ns)
}
