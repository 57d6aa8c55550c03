package workbook

import (
	"cmp"
	"context"
	"iter"
	"log/slog"
	"slices"
	"strconv"
)

// Worksheet is one sheet of a workbook: its grid plus the derived
// structures defined on it
type Worksheet struct {
	*Grid

	book     *Workbook
	id       uint32
	name     string
	position int

	merges             *MergedRanges
	names              *NamedRangeSet
	conditionalFormats *ConditionalFormats
	validations        *DataValidations
	pageBreaks         *PageBreaks
}

func newWorksheet(book *Workbook, id uint32, name string) *Worksheet {
	return &Worksheet{
		Grid:               newGrid(id, book.limits, book.styles, book.strings),
		book:               book,
		id:                 id,
		name:               name,
		merges:             newMergedRanges(book.limits),
		names:              NewNamedRangeSet(),
		conditionalFormats: newConditionalFormats(book.limits),
		validations:        newDataValidations(book.limits),
		pageBreaks:         newPageBreaks(book.limits),
	}
}

func (ws *Worksheet) ID() uint32                              { return ws.id }
func (ws *Worksheet) Name() string                            { return ws.name }
func (ws *Worksheet) Position() int                           { return ws.position }
func (ws *Worksheet) Workbook() *Workbook                     { return ws.book }
func (ws *Worksheet) MergedRanges() *MergedRanges             { return ws.merges }
func (ws *Worksheet) NamedRanges() *NamedRangeSet             { return ws.names }
func (ws *Worksheet) ConditionalFormats() *ConditionalFormats { return ws.conditionalFormats }
func (ws *Worksheet) DataValidations() *DataValidations       { return ws.validations }
func (ws *Worksheet) PageBreaks() *PageBreaks                 { return ws.pageBreaks }

// Address parses A1 text into a coordinate within the workbook limits
func (ws *Worksheet) Address(a1 string) (Coordinate, error) {
	c, err := ParseCoordinate(a1)
	if err != nil {
		return Coordinate{}, err
	}
	return c, ws.limits.CheckCoordinate(c)
}

// Set parses text with the workbook culture and stores the value at a1
func (ws *Worksheet) Set(a1, text string) error {
	c, err := ws.Address(a1)
	if err != nil {
		return err
	}
	v, err := FromText(text, ws.book.culture)
	if err != nil {
		return err
	}
	return ws.SetValue(c, v)
}

// Get returns the value at a1, Blank when no cell exists
func (ws *Worksheet) Get(a1 string) (CellValue, error) {
	c, err := ws.Address(a1)
	if err != nil {
		return Blank, err
	}
	if cell, ok := ws.Cell(c); ok {
		return cell.Value(), nil
	}
	return Blank, nil
}

func (ws *Worksheet) shift(a Axis, anchor RangeAddress, delta int) (*ShiftReport, error) {
	return ws.book.engine.Shift(context.Background(), ws, a, anchor, delta)
}

func (ws *Worksheet) insertLines(a Axis, at uint32, count int, copyFrom uint32) (*ShiftReport, error) {
	if count <= 0 {
		return nil, newAppErrorf(InvalidArgument, "count must be positive, got %d", count)
	}
	if err := ws.checkLine(a, at); err != nil {
		return nil, err
	}
	anchor := ws.limits.Rows(at, at)
	if a == Columns {
		anchor = ws.limits.Columns(at, at)
	}
	report, err := ws.shift(a, anchor, count)
	if err != nil {
		return nil, err
	}
	if copyFrom != 0 {
		for i := 0; i < count; i++ {
			ws.copyLine(a, copyFrom, at+uint32(i))
		}
	}
	return report, nil
}

func (ws *Worksheet) deleteLines(a Axis, first uint32, count int) (*ShiftReport, error) {
	if count <= 0 {
		return nil, newAppErrorf(InvalidArgument, "count must be positive, got %d", count)
	}
	if err := ws.checkLine(a, first); err != nil {
		return nil, err
	}
	anchor := ws.limits.Rows(first, first)
	if a == Columns {
		anchor = ws.limits.Columns(first, first)
	}
	return ws.shift(a, anchor, -count)
}

// InsertRowsAbove inserts count rows before row. the new rows take the
// attributes of the row above them, if any.
func (ws *Worksheet) InsertRowsAbove(row uint32, count int) (*ShiftReport, error) {
	return ws.insertLines(Rows, row, count, row-1)
}

// InsertRowsBelow inserts count rows after row, copying its attributes
func (ws *Worksheet) InsertRowsBelow(row uint32, count int) (*ShiftReport, error) {
	if row >= ws.limits.MaxRow {
		return nil, newAppErrorf(OutOfRange, "cannot insert below the last row %d", row)
	}
	return ws.insertLines(Rows, row+1, count, row)
}

// DeleteRows deletes count rows starting at first
func (ws *Worksheet) DeleteRows(first uint32, count int) (*ShiftReport, error) {
	return ws.deleteLines(Rows, first, count)
}

// InsertColumnsBefore inserts count columns before column. the new
// columns take the attributes of the column to their left, if any.
func (ws *Worksheet) InsertColumnsBefore(column uint32, count int) (*ShiftReport, error) {
	return ws.insertLines(Columns, column, count, column-1)
}

// InsertColumnsAfter inserts count columns after column, copying its
// attributes
func (ws *Worksheet) InsertColumnsAfter(column uint32, count int) (*ShiftReport, error) {
	if column >= ws.limits.MaxColumn {
		return nil, newAppErrorf(OutOfRange, "cannot insert after the last column %d", column)
	}
	return ws.insertLines(Columns, column+1, count, column)
}

// DeleteColumns deletes count columns starting at first
func (ws *Worksheet) DeleteColumns(first uint32, count int) (*ShiftReport, error) {
	return ws.deleteLines(Columns, first, count)
}

// InsertCellsDown inserts blank cells over r, moving the cells below it
// (within r's columns) down by r's height
func (ws *Worksheet) InsertCellsDown(r RangeAddress) (*ShiftReport, error) {
	return ws.shift(Rows, r, int(r.RowCount()))
}

// DeleteCellsUp deletes the cells of r, moving the cells below it up
func (ws *Worksheet) DeleteCellsUp(r RangeAddress) (*ShiftReport, error) {
	return ws.shift(Rows, r, -int(r.RowCount()))
}

// InsertCellsRight inserts blank cells over r, moving the cells to its
// right (within r's rows) right by r's width
func (ws *Worksheet) InsertCellsRight(r RangeAddress) (*ShiftReport, error) {
	return ws.shift(Columns, r, int(r.ColumnCount()))
}

// DeleteCellsLeft deletes the cells of r, moving the cells to its right left
func (ws *Worksheet) DeleteCellsLeft(r RangeAddress) (*ShiftReport, error) {
	return ws.shift(Columns, r, -int(r.ColumnCount()))
}

// Merge merges r, replacing merges it intersects
func (ws *Worksheet) Merge(r RangeAddress) ([]RangeAddress, error) {
	replaced, err := ws.merges.Add(r)
	if err != nil {
		return nil, err
	}
	for _, m := range replaced {
		ws.book.logger.Debug("merge replaced", slog.String("sheet", ws.name), slog.String("range", m.String()))
	}
	return replaced, nil
}

// Unmerge removes the merge exactly covering r
func (ws *Worksheet) Unmerge(r RangeAddress) bool {
	return ws.merges.Remove(r)
}

// DefineName adds a worksheet-scoped named range
func (ws *Worksheet) DefineName(name string, references ...string) (*NamedRange, error) {
	return ws.names.Add(name, references...)
}

// ResolveName finds name in this sheet's scope, then the workbook's, and
// resolves its references to ranges
func (ws *Worksheet) ResolveName(name string) ([]SheetRange, error) {
	if nr, ok := ws.names.Get(name); ok {
		return nr.Ranges(ws.limits, ws.name)
	}
	if nr, ok := ws.book.names.Get(name); ok {
		return nr.Ranges(ws.limits, ws.name)
	}
	return nil, newAppErrorf(NotFound, "name %q is not defined", name)
}

// grouping

func (ws *Worksheet) group(a Axis, first, last uint32, collapse bool) error {
	if first > last {
		first, last = last, first
	}
	if err := ws.checkLine(a, first); err != nil {
		return err
	}
	if err := ws.checkLine(a, last); err != nil {
		return err
	}
	for n := first; n <= last; n++ {
		if rec, ok := ws.lines[a][n]; ok && rec.outlineLevel >= MaxOutlineLevel {
			return newAppErrorf(FailedPrecondition, "%s %d is already at outline level %d", a, n, MaxOutlineLevel)
		}
	}
	for n := first; n <= last; n++ {
		rec, _ := ws.line(a, n)
		if err := ws.setOutlineLevel(a, n, rec.outlineLevel+1); err != nil {
			return err
		}
		if collapse {
			rec.hidden = true
			rec.collapsed = true
		}
	}
	return nil
}

func (ws *Worksheet) ungroup(a Axis, first, last uint32, all bool) error {
	if first > last {
		first, last = last, first
	}
	if err := ws.checkLine(a, first); err != nil {
		return err
	}
	if err := ws.checkLine(a, last); err != nil {
		return err
	}
	for n, rec := range ws.lines[a] {
		if n < first || n > last || rec.outlineLevel == 0 {
			continue
		}
		level := rec.outlineLevel - 1
		if all {
			level = 0
		}
		ws.outline[a].Move(rec.outlineLevel, level)
		rec.outlineLevel = level
		if level == 0 {
			rec.collapsed = false
			rec.hidden = false
		}
	}
	return nil
}

func (ws *Worksheet) setVisibilityAtLevel(a Axis, level uint8, collapse bool) error {
	if level < 1 || level > MaxOutlineLevel {
		return newAppErrorf(InvalidArgument, "outline level must be between 1 and %d, got %d", MaxOutlineLevel, level)
	}
	for _, rec := range ws.lines[a] {
		if rec.outlineLevel >= level {
			rec.hidden = collapse
			rec.collapsed = collapse
		}
	}
	return nil
}

// GroupRows adds one outline level to rows first..last
func (ws *Worksheet) GroupRows(first, last uint32, collapse bool) error {
	return ws.group(Rows, first, last, collapse)
}

// UngroupRows removes one outline level (or all of them) from first..last
func (ws *Worksheet) UngroupRows(first, last uint32, all bool) error {
	return ws.ungroup(Rows, first, last, all)
}

// GroupColumns adds one outline level to columns first..last
func (ws *Worksheet) GroupColumns(first, last uint32, collapse bool) error {
	return ws.group(Columns, first, last, collapse)
}

// UngroupColumns removes one outline level (or all of them) from first..last
func (ws *Worksheet) UngroupColumns(first, last uint32, all bool) error {
	return ws.ungroup(Columns, first, last, all)
}

// SetRowOutlineLevel sets the outline level of one row directly
func (ws *Worksheet) SetRowOutlineLevel(row uint32, level uint8) error {
	return ws.setOutlineLevel(Rows, row, level)
}

// SetColumnOutlineLevel sets the outline level of one column directly
func (ws *Worksheet) SetColumnOutlineLevel(column uint32, level uint8) error {
	return ws.setOutlineLevel(Columns, column, level)
}

// CollapseRows hides every row at level or deeper
func (ws *Worksheet) CollapseRows(level uint8) error { return ws.setVisibilityAtLevel(Rows, level, true) }

// ExpandRows shows every row at level or deeper
func (ws *Worksheet) ExpandRows(level uint8) error { return ws.setVisibilityAtLevel(Rows, level, false) }

func (ws *Worksheet) CollapseColumns(level uint8) error {
	return ws.setVisibilityAtLevel(Columns, level, true)
}

func (ws *Worksheet) ExpandColumns(level uint8) error {
	return ws.setVisibilityAtLevel(Columns, level, false)
}

// MaxRowOutlineLevel returns the deepest row outline level in use
func (ws *Worksheet) MaxRowOutlineLevel() uint8 { return ws.outline[Rows].Max() }

// MaxColumnOutlineLevel returns the deepest column outline level in use
func (ws *Worksheet) MaxColumnOutlineLevel() uint8 { return ws.outline[Columns].Max() }

// RowOutlineCount returns how many rows sit at level
func (ws *Worksheet) RowOutlineCount(level uint8) int { return ws.outline[Rows].Count(level) }

// ColumnOutlineCount returns how many columns sit at level
func (ws *Worksheet) ColumnOutlineCount(level uint8) int { return ws.outline[Columns].Count(level) }

// WorksheetSet is the name and position registry of a workbook's sheets.
// names are unique case-insensitively; positions form a dense 1-based
// permutation after every operation.
type WorksheetSet struct {
	nameToID map[string]uint32 // folded name -> ID
	sheets   map[uint32]*Worksheet
	nextID   uint32
}

// NewWorksheetSet creates an empty registry
func NewWorksheetSet() *WorksheetSet {
	return &WorksheetSet{
		nameToID: make(map[string]uint32),
		sheets:   make(map[uint32]*Worksheet),
		nextID:   1, // start at 1, reserve 0 for no worksheet
	}
}

// Count returns the number of worksheets
func (wss *WorksheetSet) Count() int {
	return len(wss.sheets)
}

// Contains checks if a name is taken, ignoring case
func (wss *WorksheetSet) Contains(name string) bool {
	_, exists := wss.nameToID[foldName(name)]
	return exists
}

// Get finds a worksheet by name, ignoring case
func (wss *WorksheetSet) Get(name string) (*Worksheet, bool) {
	id, exists := wss.nameToID[foldName(name)]
	if !exists {
		return nil, false
	}
	return wss.sheets[id], true
}

// GetByID finds a worksheet by ID
func (wss *WorksheetSet) GetByID(id uint32) (*Worksheet, bool) {
	ws, exists := wss.sheets[id]
	return ws, exists
}

// GetByPosition finds the worksheet at position. no match is NotFound; more
// than one match means the permutation is broken and is FailedPrecondition.
func (wss *WorksheetSet) GetByPosition(position int) (*Worksheet, error) {
	var found []*Worksheet
	for _, ws := range wss.sheets {
		if ws.position == position {
			found = append(found, ws)
		}
	}
	switch len(found) {
	case 0:
		return nil, newAppErrorf(NotFound, "no worksheet at position %d", position)
	case 1:
		return found[0], nil
	}
	return nil, newAppErrorf(FailedPrecondition, "%d worksheets claim position %d", len(found), position)
}

// All iterates the worksheets in position order
func (wss *WorksheetSet) All() iter.Seq[*Worksheet] {
	return func(yield func(*Worksheet) bool) {
		sorted := make([]*Worksheet, 0, len(wss.sheets))
		for _, ws := range wss.sheets {
			sorted = append(sorted, ws)
		}
		slices.SortFunc(sorted, func(a, b *Worksheet) int { return cmp.Compare(a.position, b.position) })
		for _, ws := range sorted {
			if !yield(ws) {
				return
			}
		}
	}
}

// Names returns the worksheet names in position order
func (wss *WorksheetSet) Names() []string {
	names := make([]string, 0, len(wss.sheets))
	for ws := range wss.All() {
		names = append(names, ws.name)
	}
	return names
}

// autoName returns the first free "SheetN", starting from N = count + 1
func (wss *WorksheetSet) autoName() string {
	for n := wss.Count() + 1; ; n++ {
		name := "Sheet" + strconv.Itoa(n)
		if !wss.Contains(name) {
			return name
		}
	}
}

// add registers a worksheet built by create at position (0 appends). all
// checks run before anything changes.
func (wss *WorksheetSet) add(name string, position int, create func(id uint32, name string) *Worksheet) (*Worksheet, error) {
	if name == "" {
		name = wss.autoName()
	}
	if err := ValidateSheetName(name); err != nil {
		return nil, err
	}
	if wss.Contains(name) {
		return nil, newAppErrorf(AlreadyExists, "worksheet %q already exists", name)
	}
	if position == 0 {
		position = wss.Count() + 1
	}
	if position < 1 || position > wss.Count()+1 {
		return nil, newAppErrorf(OutOfRange, "position %d is outside 1..%d", position, wss.Count()+1)
	}

	for _, ws := range wss.sheets {
		if ws.position >= position {
			ws.position++
		}
	}
	ws := create(wss.nextID, name)
	ws.position = position
	wss.nameToID[foldName(name)] = ws.id
	wss.sheets[ws.id] = ws
	wss.nextID++
	return ws, nil
}

// remove deletes a worksheet and compacts the positions after it
func (wss *WorksheetSet) remove(name string) (*Worksheet, error) {
	ws, exists := wss.Get(name)
	if !exists {
		return nil, newAppErrorf(NotFound, "worksheet %q does not exist", name)
	}
	delete(wss.nameToID, foldName(ws.name))
	delete(wss.sheets, ws.id)
	for _, other := range wss.sheets {
		if other.position > ws.position {
			other.position--
		}
	}
	return ws, nil
}

// move puts a worksheet at position, shifting the sheets in between by one
func (wss *WorksheetSet) move(name string, position int) error {
	ws, exists := wss.Get(name)
	if !exists {
		return newAppErrorf(NotFound, "worksheet %q does not exist", name)
	}
	if position < 1 || position > wss.Count() {
		return newAppErrorf(OutOfRange, "position %d is outside 1..%d", position, wss.Count())
	}
	old := ws.position
	for _, other := range wss.sheets {
		switch {
		case position < old && other.position >= position && other.position < old:
			other.position++
		case position > old && other.position > old && other.position <= position:
			other.position--
		}
	}
	ws.position = position
	return nil
}

// rename changes a worksheet's name. renaming to a name used by another
// sheet fails and keeps the old name; changing only the case is allowed.
func (wss *WorksheetSet) rename(oldName, newName string) (*Worksheet, error) {
	ws, exists := wss.Get(oldName)
	if !exists {
		return nil, newAppErrorf(NotFound, "worksheet %q does not exist", oldName)
	}
	if err := ValidateSheetName(newName); err != nil {
		return nil, err
	}
	if other, taken := wss.Get(newName); taken && other != ws {
		return nil, newAppErrorf(AlreadyExists, "worksheet %q already exists", newName)
	}
	delete(wss.nameToID, foldName(ws.name))
	ws.name = newName
	wss.nameToID[foldName(newName)] = ws.id
	return ws, nil
}
