package workbook

import (
	"iter"
	"strconv"
	"strings"

	"github.com/unidoc/unioffice/spreadsheet/reference"
)

// Axis selects rows or columns. structural edits run along one axis and
// leave the other (the cross axis) untouched.
type Axis uint8

const (
	Rows Axis = iota
	Columns
)

func (a Axis) String() string {
	if a == Columns {
		return "columns"
	}
	return "rows"
}

func (a Axis) cross() Axis {
	if a == Rows {
		return Columns
	}
	return Rows
}

const (
	DefaultMaxRow    uint32 = 1048576
	DefaultMaxColumn uint32 = 16384
)

// Limits bounds every coordinate of a workbook. a workbook copies its
// limits at construction and shares them with all of its worksheets.
type Limits struct {
	MaxRow    uint32 `yaml:"max_row" validate:"min=1,max=1048576"`
	MaxColumn uint32 `yaml:"max_column" validate:"min=1,max=16384"`
}

// DefaultLimits returns the limits of the xlsx file format
func DefaultLimits() Limits {
	return Limits{MaxRow: DefaultMaxRow, MaxColumn: DefaultMaxColumn}
}

func (l Limits) max(a Axis) uint32 {
	if a == Rows {
		return l.MaxRow
	}
	return l.MaxColumn
}

// Coordinate builds a coordinate, failing when it lies outside the limits.
func (l Limits) Coordinate(row, column uint32) (Coordinate, error) {
	c := Coordinate{Row: row, Column: column}
	if err := l.CheckCoordinate(c); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// CheckCoordinate returns an OutOfRange error for coordinates outside the
// limits.
func (l Limits) CheckCoordinate(c Coordinate) error {
	if c.Row < 1 || c.Row > l.MaxRow {
		return newAppErrorf(OutOfRange, "row %d is outside 1..%d", c.Row, l.MaxRow)
	}
	if c.Column < 1 || c.Column > l.MaxColumn {
		return newAppErrorf(OutOfRange, "column %d is outside 1..%d", c.Column, l.MaxColumn)
	}
	return nil
}

// CheckRange validates both corners of r and its orientation.
func (l Limits) CheckRange(r RangeAddress) error {
	if err := l.CheckCoordinate(r.First); err != nil {
		return err
	}
	if err := l.CheckCoordinate(r.Last); err != nil {
		return err
	}
	if !r.IsValid() {
		return newAppErrorf(InvalidArgument, "range %s is inverted", r)
	}
	return nil
}

// Range builds a normalized range from two corners.
func (l Limits) Range(firstRow, firstColumn, lastRow, lastColumn uint32) (RangeAddress, error) {
	a, err := l.Coordinate(firstRow, firstColumn)
	if err != nil {
		return RangeAddress{}, err
	}
	b, err := l.Coordinate(lastRow, lastColumn)
	if err != nil {
		return RangeAddress{}, err
	}
	return NewRangeAddress(a, b), nil
}

// Rows returns the range covering whole rows first..last
func (l Limits) Rows(first, last uint32) RangeAddress {
	return NewRangeAddress(Coordinate{Row: first, Column: 1}, Coordinate{Row: last, Column: l.MaxColumn})
}

// Columns returns the range covering whole columns first..last
func (l Limits) Columns(first, last uint32) RangeAddress {
	return NewRangeAddress(Coordinate{Row: 1, Column: first}, Coordinate{Row: l.MaxRow, Column: last})
}

// Sheet returns the range covering the whole sheet
func (l Limits) Sheet() RangeAddress {
	return RangeAddress{First: Coordinate{Row: 1, Column: 1}, Last: Coordinate{Row: l.MaxRow, Column: l.MaxColumn}}
}

// IsEntireRow reports whether r spans every column
func (l Limits) IsEntireRow(r RangeAddress) bool {
	return l.spansCross(r, Rows)
}

// IsEntireColumn reports whether r spans every row
func (l Limits) IsEntireColumn(r RangeAddress) bool {
	return l.spansCross(r, Columns)
}

// spansCross reports whether r covers the full extent of the cross axis,
// i.e. whether a shift along axis a with anchor r moves whole lines.
func (l Limits) spansCross(r RangeAddress, a Axis) bool {
	first, last := r.span(a.cross())
	return first == 1 && last == l.max(a.cross())
}

// ParseRange reads A1 text: a cell ("B2"), a range ("A1:C3"), whole rows
// ("2:4") or whole columns ("B:D"). "$" markers are accepted and ignored.
func (l Limits) ParseRange(s string) (RangeAddress, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "$", "")
	left, right, isRange := strings.Cut(s, ":")
	if isRange && allDigits(left) && allDigits(right) && left != "" && right != "" {
		first, err1 := strconv.ParseUint(left, 10, 32)
		last, err2 := strconv.ParseUint(right, 10, 32)
		if err1 != nil || err2 != nil {
			return RangeAddress{}, newAppErrorf(InvalidArgument, "invalid row range %q", s)
		}
		r := l.Rows(uint32(first), uint32(last))
		return r, l.CheckRange(r)
	}
	if isRange && isLetters(left) && isLetters(right) {
		r := l.Columns(ColumnNumber(left), ColumnNumber(right))
		return r, l.CheckRange(r)
	}
	r, err := ParseRangeAddress(s)
	if err != nil {
		return RangeAddress{}, err
	}
	return r, l.CheckRange(r)
}

// Coordinate is a 1-based cell position
type Coordinate struct {
	Row    uint32
	Column uint32
}

func (c Coordinate) along(a Axis) uint32 {
	if a == Rows {
		return c.Row
	}
	return c.Column
}

func (c Coordinate) with(a Axis, v uint32) Coordinate {
	if a == Rows {
		c.Row = v
	} else {
		c.Column = v
	}
	return c
}

// String renders the coordinate in A1 notation
func (c Coordinate) String() string {
	return ColumnLetters(c.Column) + strconv.FormatUint(uint64(c.Row), 10)
}

// ColumnLetters converts a 1-based column number to letters (1 -> "A").
func ColumnLetters(column uint32) string {
	if column == 0 {
		return ""
	}
	return reference.IndexToColumn(column - 1)
}

// ColumnNumber converts column letters to a 1-based number ("A" -> 1).
func ColumnNumber(letters string) uint32 {
	return reference.ColumnToIndex(strings.ToUpper(letters)) + 1
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !((ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')) {
			return false
		}
	}
	return true
}

// ParseCoordinate reads an A1 cell reference; "$" markers are ignored.
func ParseCoordinate(s string) (Coordinate, error) {
	clean := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "$", ""))
	if !isCellText(clean) {
		return Coordinate{}, newAppErrorf(InvalidArgument, "invalid cell reference %q", s)
	}
	ref, err := reference.ParseCellReference(clean)
	if err != nil {
		return Coordinate{}, newAppErrorf(InvalidArgument, "invalid cell reference %q: %v", s, err)
	}
	return Coordinate{Row: ref.RowIdx, Column: ref.ColumnIdx + 1}, nil
}

// isCellText checks for letters followed by digits, e.g. AB12
func isCellText(s string) bool {
	letterEnd := 0
	for letterEnd < len(s) && isLetters(s[letterEnd:letterEnd+1]) {
		letterEnd++
	}
	if letterEnd == 0 || letterEnd == len(s) || letterEnd > 3 {
		return false
	}
	digits := s[letterEnd:]
	return allDigits(digits) && digits[0] != '0'
}

// ParseRangeAddress reads "A1:C3" or a single cell "B2".
func ParseRangeAddress(s string) (RangeAddress, error) {
	clean := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "$", ""))
	if !strings.Contains(clean, ":") {
		c, err := ParseCoordinate(clean)
		if err != nil {
			return RangeAddress{}, err
		}
		return RangeAddress{First: c, Last: c}, nil
	}
	left, right, _ := strings.Cut(clean, ":")
	if !isCellText(left) || !isCellText(right) {
		return RangeAddress{}, newAppErrorf(InvalidArgument, "invalid range reference %q", s)
	}
	from, to, err := reference.ParseRangeReference(clean)
	if err != nil {
		return RangeAddress{}, newAppErrorf(InvalidArgument, "invalid range reference %q: %v", s, err)
	}
	return NewRangeAddress(
		Coordinate{Row: from.RowIdx, Column: from.ColumnIdx + 1},
		Coordinate{Row: to.RowIdx, Column: to.ColumnIdx + 1},
	), nil
}

// RangeAddress is a rectangular region. ranges built with NewRangeAddress
// are normalized; shifted ranges may come out inverted and are then invalid.
type RangeAddress struct {
	First Coordinate
	Last  Coordinate
}

// NewRangeAddress normalizes two corners so First <= Last on both axes
func NewRangeAddress(a, b Coordinate) RangeAddress {
	r := RangeAddress{First: a, Last: b}
	if r.First.Row > r.Last.Row {
		r.First.Row, r.Last.Row = r.Last.Row, r.First.Row
	}
	if r.First.Column > r.Last.Column {
		r.First.Column, r.Last.Column = r.Last.Column, r.First.Column
	}
	return r
}

// CellRange returns the single-cell range at c
func CellRange(c Coordinate) RangeAddress {
	return RangeAddress{First: c, Last: c}
}

// IsValid reports whether first <= last on both axes and no bound is zero
func (r RangeAddress) IsValid() bool {
	return r.First.Row >= 1 && r.First.Column >= 1 &&
		r.First.Row <= r.Last.Row && r.First.Column <= r.Last.Column
}

func (r RangeAddress) span(a Axis) (uint32, uint32) {
	return r.First.along(a), r.Last.along(a)
}

func (r RangeAddress) withSpan(a Axis, first, last uint32) RangeAddress {
	r.First = r.First.with(a, first)
	r.Last = r.Last.with(a, last)
	return r
}

// RowCount returns the number of rows covered
func (r RangeAddress) RowCount() uint32 {
	return r.Last.Row - r.First.Row + 1
}

// ColumnCount returns the number of columns covered
func (r RangeAddress) ColumnCount() uint32 {
	return r.Last.Column - r.First.Column + 1
}

// IsSingleCell reports whether the range covers exactly one cell
func (r RangeAddress) IsSingleCell() bool {
	return r.First == r.Last
}

// Contains reports whether c lies inside the range
func (r RangeAddress) Contains(c Coordinate) bool {
	return c.Row >= r.First.Row && c.Row <= r.Last.Row &&
		c.Column >= r.First.Column && c.Column <= r.Last.Column
}

// ContainsRange reports whether other lies entirely inside the range
func (r RangeAddress) ContainsRange(other RangeAddress) bool {
	return r.Contains(other.First) && r.Contains(other.Last)
}

// Intersects reports whether the ranges share at least one cell
func (r RangeAddress) Intersects(other RangeAddress) bool {
	return r.First.Row <= other.Last.Row && other.First.Row <= r.Last.Row &&
		r.First.Column <= other.Last.Column && other.First.Column <= r.Last.Column
}

// String renders the range as "A1:C3"
func (r RangeAddress) String() string {
	return r.First.String() + ":" + r.Last.String()
}

// Cells returns an iterator over every coordinate in the range, row by row
func (r RangeAddress) Cells() iter.Seq[Coordinate] {
	return func(yield func(Coordinate) bool) {
		if !r.IsValid() {
			return
		}
		for row := r.First.Row; row <= r.Last.Row; row++ {
			for col := r.First.Column; col <= r.Last.Column; col++ {
				if !yield(Coordinate{Row: row, Column: col}) {
					return
				}
			}
		}
	}
}
