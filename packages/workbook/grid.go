package workbook

import (
	"cmp"
	"iter"
	"slices"
	"strings"
)

// StyleID is an opaque reference into a style table the document does not
// own. the grid stores it and compares it against the default, nothing more.
type StyleID uint32

// StyleResolver supplies the style assigned to lazily created records
type StyleResolver interface {
	DefaultStyle() StyleID
}

type zeroStyle struct{}

func (zeroStyle) DefaultStyle() StyleID { return 0 }

// Cell is one record of the grid. it knows the ID of its worksheet, not the
// worksheet itself.
type Cell struct {
	sheetID    uint32
	coord      Coordinate
	value      CellValue
	stringID   uint32 // shared string entry for Text values
	style      StyleID
	formula    string
	evaluating bool
}

func (c *Cell) SheetID() uint32        { return c.sheetID }
func (c *Cell) Coordinate() Coordinate { return c.coord }
func (c *Cell) Value() CellValue       { return c.value }
func (c *Cell) Style() StyleID         { return c.style }
func (c *Cell) Formula() string        { return c.formula }
func (c *Cell) HasFormula() bool       { return c.formula != "" }
func (c *Cell) SharedStringID() uint32 { return c.stringID }
func (c *Cell) IsEvaluating() bool     { return c.evaluating }
func (c *Cell) hasContent() bool       { return !c.value.IsBlank() || c.formula != "" }

// BeginEvaluation marks the cell as being evaluated. it returns false when
// the cell is already on the evaluation path, which means a cycle.
func (c *Cell) BeginEvaluation() bool {
	if c.evaluating {
		return false
	}
	c.evaluating = true
	return true
}

// EndEvaluation clears the evaluation mark
func (c *Cell) EndEvaluation() {
	c.evaluating = false
}

// DimensionRecord holds the attributes of one row or one column: height or
// width, outline level, collapsed and hidden flags, and its style. fields
// are changed through the grid so the reverse indices stay consistent.
type DimensionRecord struct {
	size         float64 // row height in points, column width in characters
	customSize   bool
	outlineLevel uint8
	collapsed    bool
	hidden       bool
	style        StyleID
}

func (d *DimensionRecord) Size() float64       { return d.size }
func (d *DimensionRecord) HasCustomSize() bool { return d.customSize }
func (d *DimensionRecord) OutlineLevel() uint8 { return d.outlineLevel }
func (d *DimensionRecord) IsCollapsed() bool   { return d.collapsed }
func (d *DimensionRecord) IsHidden() bool      { return d.hidden }
func (d *DimensionRecord) Style() StyleID      { return d.style }

// Grid is the sparse cell store of one worksheet.
//
// layout:
//   - cells live in a map keyed by coordinate, created on first reference
//   - row and column records live in two arenas keyed by number
//   - per row and per column, usage counters record how many cells carry a
//     value (or formula) and how many carry a non-default style, so "used"
//     queries and traversals cost O(used lines), never O(MaxRow)
type Grid struct {
	sheetID uint32
	limits  Limits
	styles  StyleResolver
	strings *SharedStrings

	cells       map[Coordinate]*Cell
	lines       [2]map[uint32]*DimensionRecord // indexed by Axis
	valueUsage  [2]map[uint32]int
	formatUsage [2]map[uint32]int
	outline     [2]*OutlineCounter
}

func newGrid(sheetID uint32, limits Limits, styles StyleResolver, strings *SharedStrings) *Grid {
	if styles == nil {
		styles = zeroStyle{}
	}
	if strings == nil {
		strings = NewSharedStrings()
	}
	g := &Grid{
		sheetID: sheetID,
		limits:  limits,
		styles:  styles,
		strings: strings,
		cells:   make(map[Coordinate]*Cell),
	}
	for _, a := range []Axis{Rows, Columns} {
		g.lines[a] = make(map[uint32]*DimensionRecord)
		g.valueUsage[a] = make(map[uint32]int)
		g.formatUsage[a] = make(map[uint32]int)
		g.outline[a] = NewOutlineCounter()
	}
	return g
}

// Limits returns the bounds shared with the owning workbook
func (g *Grid) Limits() Limits {
	return g.limits
}

func bump(m map[uint32]int, key uint32, delta int) {
	m[key] += delta
	if m[key] <= 0 {
		delete(m, key)
	}
}

// index adds (sign = 1) or removes (sign = -1) a cell's contribution to the
// usage counters.
func (g *Grid) index(c *Cell, sign int) {
	content := c.hasContent()
	formatted := c.style != g.styles.DefaultStyle()
	for _, a := range []Axis{Rows, Columns} {
		key := c.coord.along(a)
		if content {
			bump(g.valueUsage[a], key, sign)
		}
		if formatted {
			bump(g.formatUsage[a], key, sign)
		}
	}
}

// GetOrCreateCell returns the record at coord, creating it on first use.
// repeated calls return the same record. a new cell takes the style of its
// row, else of its column, else the default.
func (g *Grid) GetOrCreateCell(coord Coordinate) (*Cell, error) {
	if err := g.limits.CheckCoordinate(coord); err != nil {
		return nil, err
	}
	if cell, exists := g.cells[coord]; exists {
		return cell, nil
	}

	style := g.styles.DefaultStyle()
	if row, ok := g.lines[Rows][coord.Row]; ok && row.style != style {
		style = row.style
	} else if col, ok := g.lines[Columns][coord.Column]; ok && col.style != style {
		style = col.style
	}

	cell := &Cell{sheetID: g.sheetID, coord: coord, style: style}
	g.cells[coord] = cell
	g.index(cell, 1)
	return cell, nil
}

// Cell looks a record up without creating it
func (g *Grid) Cell(coord Coordinate) (*Cell, bool) {
	cell, exists := g.cells[coord]
	return cell, exists
}

// SetValue stores a value, creating the cell when needed
func (g *Grid) SetValue(coord Coordinate, v CellValue) error {
	cell, err := g.GetOrCreateCell(coord)
	if err != nil {
		return err
	}
	g.index(cell, -1)
	if cell.stringID != 0 {
		g.strings.Release(cell.stringID)
		cell.stringID = 0
	}
	cell.value = v
	if text, err := v.GetText(); err == nil {
		cell.stringID = g.strings.Acquire(text)
	}
	g.index(cell, 1)
	return nil
}

// SetFormula stores formula text (a leading "=" is dropped). an empty
// formula removes it.
func (g *Grid) SetFormula(coord Coordinate, formula string) error {
	cell, err := g.GetOrCreateCell(coord)
	if err != nil {
		return err
	}
	g.index(cell, -1)
	cell.formula = strings.TrimPrefix(strings.TrimSpace(formula), "=")
	g.index(cell, 1)
	return nil
}

// SetStyle assigns a style to one cell
func (g *Grid) SetStyle(coord Coordinate, style StyleID) error {
	cell, err := g.GetOrCreateCell(coord)
	if err != nil {
		return err
	}
	g.index(cell, -1)
	cell.style = style
	g.index(cell, 1)
	return nil
}

func (g *Grid) removeCell(cell *Cell) {
	g.index(cell, -1)
	if cell.stringID != 0 {
		g.strings.Release(cell.stringID)
		cell.stringID = 0
	}
	delete(g.cells, cell.coord)
}

func (g *Grid) moveCell(cell *Cell, to Coordinate) {
	g.index(cell, -1)
	delete(g.cells, cell.coord)
	cell.coord = to
	g.cells[to] = cell
	g.index(cell, 1)
}

// ClearCell removes the record at coord. it returns false when there was
// none.
func (g *Grid) ClearCell(coord Coordinate) bool {
	cell, exists := g.cells[coord]
	if !exists {
		return false
	}
	g.removeCell(cell)
	return true
}

// Clear removes every cell record inside r and returns how many were removed
func (g *Grid) Clear(r RangeAddress) int {
	var doomed []*Cell
	for cell := range g.CellsInRange(r) {
		doomed = append(doomed, cell)
	}
	for _, cell := range doomed {
		g.removeCell(cell)
	}
	return len(doomed)
}

// CellCount returns the number of cell records
func (g *Grid) CellCount() int {
	return len(g.cells)
}

// CellsInRange iterates the existing cells inside r in row-major order.
// missing cells are skipped, not synthesized.
func (g *Grid) CellsInRange(r RangeAddress) iter.Seq[*Cell] {
	return func(yield func(*Cell) bool) {
		var found []*Cell
		area := uint64(r.RowCount()) * uint64(r.ColumnCount())
		if r.IsValid() && area <= uint64(len(g.cells)) {
			for coord := range r.Cells() {
				if cell, ok := g.cells[coord]; ok {
					found = append(found, cell)
				}
			}
		} else {
			for coord, cell := range g.cells {
				if r.Contains(coord) {
					found = append(found, cell)
				}
			}
			sortCells(found)
		}
		for _, cell := range found {
			if !yield(cell) {
				return
			}
		}
	}
}

func sortCells(cells []*Cell) {
	slices.SortFunc(cells, func(a, b *Cell) int {
		if c := cmp.Compare(a.coord.Row, b.coord.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.coord.Column, b.coord.Column)
	})
}

func (g *Grid) checkLine(a Axis, n uint32) error {
	if n < 1 || n > g.limits.max(a) {
		return newAppErrorf(OutOfRange, "%s index %d is outside 1..%d", a, n, g.limits.max(a))
	}
	return nil
}

// line returns the record for row or column n, creating it when needed
func (g *Grid) line(a Axis, n uint32) (*DimensionRecord, error) {
	if err := g.checkLine(a, n); err != nil {
		return nil, err
	}
	if rec, exists := g.lines[a][n]; exists {
		return rec, nil
	}
	rec := &DimensionRecord{style: g.styles.DefaultStyle()}
	g.lines[a][n] = rec
	return rec, nil
}

func (g *Grid) removeLine(a Axis, n uint32) {
	rec, exists := g.lines[a][n]
	if !exists {
		return
	}
	g.outline[a].Decrement(rec.outlineLevel)
	delete(g.lines[a], n)
}

func (g *Grid) setOutlineLevel(a Axis, n uint32, level uint8) error {
	if level > MaxOutlineLevel {
		return newAppErrorf(InvalidArgument, "outline level %d exceeds %d", level, MaxOutlineLevel)
	}
	rec, err := g.line(a, n)
	if err != nil {
		return err
	}
	g.outline[a].Move(rec.outlineLevel, level)
	rec.outlineLevel = level
	return nil
}

// copyLine gives line `to` the attributes of line `from`, if it exists
func (g *Grid) copyLine(a Axis, from, to uint32) {
	src, exists := g.lines[a][from]
	if !exists {
		return
	}
	dst, err := g.line(a, to)
	if err != nil {
		return
	}
	g.outline[a].Move(dst.outlineLevel, src.outlineLevel)
	*dst = *src
}

// Row returns the record of row n, creating it when needed
func (g *Grid) Row(n uint32) (*DimensionRecord, error) { return g.line(Rows, n) }

// Column returns the record of column n, creating it when needed
func (g *Grid) Column(n uint32) (*DimensionRecord, error) { return g.line(Columns, n) }

// LookupRow returns the record of row n without creating it
func (g *Grid) LookupRow(n uint32) (*DimensionRecord, bool) {
	rec, exists := g.lines[Rows][n]
	return rec, exists
}

// LookupColumn returns the record of column n without creating it
func (g *Grid) LookupColumn(n uint32) (*DimensionRecord, bool) {
	rec, exists := g.lines[Columns][n]
	return rec, exists
}

func (g *Grid) setSize(a Axis, n uint32, size float64) error {
	if size < 0 {
		return newAppErrorf(InvalidArgument, "size %v is negative", size)
	}
	rec, err := g.line(a, n)
	if err != nil {
		return err
	}
	rec.size = size
	rec.customSize = true
	return nil
}

// SetRowHeight sets an explicit row height in points
func (g *Grid) SetRowHeight(n uint32, height float64) error { return g.setSize(Rows, n, height) }

// SetColumnWidth sets an explicit column width in characters
func (g *Grid) SetColumnWidth(n uint32, width float64) error { return g.setSize(Columns, n, width) }

func (g *Grid) setLineStyle(a Axis, n uint32, style StyleID) error {
	rec, err := g.line(a, n)
	if err != nil {
		return err
	}
	rec.style = style
	return nil
}

// SetRowStyle sets the style of row n. cells created later in the row take it.
func (g *Grid) SetRowStyle(n uint32, style StyleID) error { return g.setLineStyle(Rows, n, style) }

// SetColumnStyle sets the style of column n
func (g *Grid) SetColumnStyle(n uint32, style StyleID) error {
	return g.setLineStyle(Columns, n, style)
}

func (g *Grid) setHidden(a Axis, n uint32, hidden bool) error {
	rec, err := g.line(a, n)
	if err != nil {
		return err
	}
	rec.hidden = hidden
	return nil
}

// SetRowHidden hides or shows row n
func (g *Grid) SetRowHidden(n uint32, hidden bool) error { return g.setHidden(Rows, n, hidden) }

// SetColumnHidden hides or shows column n
func (g *Grid) SetColumnHidden(n uint32, hidden bool) error {
	return g.setHidden(Columns, n, hidden)
}

func (g *Grid) lineUsed(a Axis, n uint32, includeFormats bool) bool {
	if g.valueUsage[a][n] > 0 {
		return true
	}
	if !includeFormats {
		return false
	}
	if g.formatUsage[a][n] > 0 {
		return true
	}
	rec, exists := g.lines[a][n]
	return exists && rec.style != g.styles.DefaultStyle()
}

// RowUsed reports whether row n holds a value, or any formatting when
// includeFormats is set
func (g *Grid) RowUsed(n uint32, includeFormats bool) bool {
	return g.lineUsed(Rows, n, includeFormats)
}

// ColumnUsed reports whether column n holds a value, or any formatting when
// includeFormats is set
func (g *Grid) ColumnUsed(n uint32, includeFormats bool) bool {
	return g.lineUsed(Columns, n, includeFormats)
}

func (g *Grid) usedLines(a Axis, includeFormats bool) []uint32 {
	seen := make(map[uint32]struct{}, len(g.valueUsage[a]))
	for n := range g.valueUsage[a] {
		seen[n] = struct{}{}
	}
	if includeFormats {
		for n := range g.formatUsage[a] {
			seen[n] = struct{}{}
		}
		def := g.styles.DefaultStyle()
		for n, rec := range g.lines[a] {
			if rec.style != def {
				seen[n] = struct{}{}
			}
		}
	}
	result := make([]uint32, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}
	slices.Sort(result)
	return result
}

// UsedRows returns the used row numbers in ascending order
func (g *Grid) UsedRows(includeFormats bool) []uint32 { return g.usedLines(Rows, includeFormats) }

// UsedColumns returns the used column numbers in ascending order
func (g *Grid) UsedColumns(includeFormats bool) []uint32 {
	return g.usedLines(Columns, includeFormats)
}

// UsedRange returns the smallest range containing every used cell. lines
// that are formatted as a whole extend the range along their own axis only.
func (g *Grid) UsedRange(includeFormats bool) (RangeAddress, bool) {
	rows := g.UsedRows(includeFormats)
	cols := g.UsedColumns(includeFormats)
	if len(rows) == 0 || len(cols) == 0 {
		return RangeAddress{}, false
	}
	return RangeAddress{
		First: Coordinate{Row: rows[0], Column: cols[0]},
		Last:  Coordinate{Row: rows[len(rows)-1], Column: cols[len(cols)-1]},
	}, true
}

// checkShift validates a structural edit before anything moves: the deleted
// band must exist and an insertion may not push content past the limit.
func (g *Grid) checkShift(a Axis, anchor RangeAddress, delta int) error {
	if delta == 0 {
		return newAppErrorf(InvalidArgument, "shift delta must not be zero")
	}
	if err := g.limits.CheckRange(anchor); err != nil {
		return err
	}
	a1 := anchor.First.along(a)
	limit := g.limits.max(a)
	if delta < 0 {
		if uint64(a1)+uint64(-delta)-1 > uint64(limit) {
			return newAppErrorf(OutOfRange, "cannot delete %d %s from %d: past the last index %d", -delta, a, a1, limit)
		}
		return nil
	}
	c1, c2 := anchor.span(a.cross())
	for coord, cell := range g.cells {
		p, q := coord.along(a), coord.along(a.cross())
		if p < a1 || q < c1 || q > c2 || !cell.hasContent() {
			continue
		}
		if uint64(p)+uint64(delta) > uint64(limit) {
			return newAppErrorf(OutOfRange, "inserting %d %s would push %s off the sheet", delta, a, coord)
		}
	}
	return nil
}

// shiftCells moves the cells at or after the anchor, within its cross
// extent, by delta. a negative delta first deletes the band it collapses.
func (g *Grid) shiftCells(a Axis, anchor RangeAddress, delta int) (moved, removed int) {
	a1 := anchor.First.along(a)
	c1, c2 := anchor.span(a.cross())
	limit := g.limits.max(a)

	var affected []*Cell
	for coord, cell := range g.cells {
		q := coord.along(a.cross())
		if coord.along(a) >= a1 && q >= c1 && q <= c2 {
			affected = append(affected, cell)
		}
	}

	// move in an order that never lands on a cell that has yet to move
	slices.SortFunc(affected, func(x, y *Cell) int {
		return cmp.Compare(x.coord.along(a), y.coord.along(a))
	})
	if delta > 0 {
		slices.Reverse(affected)
	}

	if delta < 0 {
		n := uint32(-delta)
		for _, cell := range affected {
			p := cell.coord.along(a)
			if p < a1+n {
				g.removeCell(cell)
				removed++
				continue
			}
			g.moveCell(cell, cell.coord.with(a, p-n))
			moved++
		}
		return moved, removed
	}

	for _, cell := range affected {
		p := uint64(cell.coord.along(a)) + uint64(delta)
		if p > uint64(limit) {
			g.removeCell(cell)
			removed++
			continue
		}
		g.moveCell(cell, cell.coord.with(a, uint32(p)))
		moved++
	}
	return moved, removed
}

// shiftLines moves whole row or column records at or after first by delta.
// records in a deleted band, or pushed past the limit, are removed along
// with their outline level.
func (g *Grid) shiftLines(a Axis, first uint32, delta int) {
	limit := g.limits.max(a)
	var keys []uint32
	for n := range g.lines[a] {
		if n >= first {
			keys = append(keys, n)
		}
	}
	slices.Sort(keys)

	if delta < 0 {
		n := uint32(-delta)
		for _, k := range keys {
			if k < first+n {
				g.removeLine(a, k)
				continue
			}
			rec := g.lines[a][k]
			delete(g.lines[a], k)
			g.lines[a][k-n] = rec
		}
		return
	}

	slices.Reverse(keys)
	for _, k := range keys {
		target := uint64(k) + uint64(delta)
		if target > uint64(limit) {
			g.removeLine(a, k)
			continue
		}
		rec := g.lines[a][k]
		delete(g.lines[a], k)
		g.lines[a][uint32(target)] = rec
	}
}
