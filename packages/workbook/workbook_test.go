package workbook

import (
	"slices"
	"testing"
)

type WorkbookTestCase struct {
	t        *testing.T
	name     string
	workbook *Workbook
	report   *ShiftReport
	err      error
	skipped  bool
}

func NewWorkbookTestCase(t *testing.T, name string, opts ...Option) *WorkbookTestCase {
	wb, err := NewWorkbook(opts...)
	if err != nil {
		t.Fatalf("%s: NewWorkbook failed: %v", name, err)
	}
	tc := &WorkbookTestCase{
		t:        t,
		name:     name,
		workbook: wb,
		err:      nil,
		skipped:  false,
	}
	return tc.AddWorksheet("Sheet1")
}

func (tc *WorkbookTestCase) Skip(reason string) *WorkbookTestCase {
	if !tc.skipped {
		tc.t.Skipf("%s: %s", tc.name, reason)
		tc.skipped = true
	}
	return tc
}

func (tc *WorkbookTestCase) sheet(name string) *Worksheet {
	ws, ok := tc.workbook.Worksheet(name)
	if !ok {
		tc.t.Fatalf("%s: worksheet %s does not exist", tc.name, name)
	}
	return ws
}

func (tc *WorkbookTestCase) AddWorksheet(name string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	_, tc.err = tc.workbook.AddWorksheet(name)
	return tc
}

func (tc *WorkbookTestCase) AddWorksheetAt(name string, position int) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	_, tc.err = tc.workbook.AddWorksheetAt(name, position)
	return tc
}

func (tc *WorkbookTestCase) DeleteWorksheet(name string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	tc.err = tc.workbook.DeleteWorksheet(name)
	return tc
}

func (tc *WorkbookTestCase) MoveWorksheet(name string, position int) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	tc.err = tc.workbook.MoveWorksheet(name, position)
	return tc
}

func (tc *WorkbookTestCase) RenameWorksheet(oldName, newName string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	tc.err = tc.workbook.RenameWorksheet(oldName, newName)
	return tc
}

func (tc *WorkbookTestCase) Set(sheet, address, text string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	tc.err = tc.sheet(sheet).Set(address, text)
	return tc
}

func (tc *WorkbookTestCase) SetFormula(sheet, address, formula string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	ws := tc.sheet(sheet)
	coord, err := ws.Address(address)
	if err != nil {
		tc.err = err
		return tc
	}
	tc.err = ws.SetFormula(coord, formula)
	return tc
}

func (tc *WorkbookTestCase) Merge(sheet, area string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	ws := tc.sheet(sheet)
	r, err := ws.Limits().ParseRange(area)
	if err != nil {
		tc.err = err
		return tc
	}
	_, tc.err = ws.Merge(r)
	return tc
}

func (tc *WorkbookTestCase) DefineName(name string, references ...string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	_, tc.err = tc.workbook.DefineName(name, references...)
	return tc
}

func (tc *WorkbookTestCase) InsertRows(sheet string, row uint32, count int) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	tc.report, tc.err = tc.sheet(sheet).InsertRowsAbove(row, count)
	return tc
}

func (tc *WorkbookTestCase) DeleteRows(sheet string, row uint32, count int) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	tc.report, tc.err = tc.sheet(sheet).DeleteRows(row, count)
	return tc
}

func (tc *WorkbookTestCase) InsertColumns(sheet string, column uint32, count int) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	tc.report, tc.err = tc.sheet(sheet).InsertColumnsBefore(column, count)
	return tc
}

func (tc *WorkbookTestCase) DeleteColumns(sheet string, column uint32, count int) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	tc.report, tc.err = tc.sheet(sheet).DeleteColumns(column, count)
	return tc
}

func (tc *WorkbookTestCase) AssertNoError() *WorkbookTestCase {
	if tc.skipped {
		return tc
	}
	if tc.err != nil {
		tc.t.Errorf("%s: unexpected error: %v", tc.name, tc.err)
	}
	return tc
}

func (tc *WorkbookTestCase) AssertCellText(sheet, address, expected string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	v, err := tc.sheet(sheet).Get(address)
	if err != nil {
		tc.t.Errorf("%s: Get(%s!%s) failed: %v", tc.name, sheet, address, err)
		return tc
	}
	if got := v.String(); got != expected {
		tc.t.Errorf("%s: %s!%s = %q, want %q", tc.name, sheet, address, got, expected)
	}
	return tc
}

func (tc *WorkbookTestCase) AssertCellEmpty(sheet, address string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	v, err := tc.sheet(sheet).Get(address)
	if err != nil {
		tc.t.Errorf("%s: Get(%s!%s) failed: %v", tc.name, sheet, address, err)
		return tc
	}
	if !v.IsBlank() {
		tc.t.Errorf("%s: %s!%s = %v, want blank", tc.name, sheet, address, v)
	}
	return tc
}

func (tc *WorkbookTestCase) AssertFormula(sheet, address, expected string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	ws := tc.sheet(sheet)
	coord, err := ws.Address(address)
	if err != nil {
		tc.t.Errorf("%s: bad address %s: %v", tc.name, address, err)
		return tc
	}
	cell, ok := ws.Cell(coord)
	if !ok {
		tc.t.Errorf("%s: no cell at %s!%s", tc.name, sheet, address)
		return tc
	}
	if cell.Formula() != expected {
		tc.t.Errorf("%s: formula at %s!%s = %q, want %q", tc.name, sheet, address, cell.Formula(), expected)
	}
	return tc
}

func (tc *WorkbookTestCase) AssertMerges(sheet string, expected ...string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	var got []string
	for r := range tc.sheet(sheet).MergedRanges().All() {
		got = append(got, r.String())
	}
	if !slices.Equal(got, expected) {
		tc.t.Errorf("%s: merges on %s = %v, want %v", tc.name, sheet, got, expected)
	}
	return tc
}

func (tc *WorkbookTestCase) AssertNameReferences(name string, expected ...string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	nr, ok := tc.workbook.NamedRanges().Get(name)
	if !ok {
		tc.t.Errorf("%s: named range %s does not exist", tc.name, name)
		return tc
	}
	if got := nr.References(); !slices.Equal(got, expected) {
		tc.t.Errorf("%s: references of %s = %v, want %v", tc.name, name, got, expected)
	}
	return tc
}

func (tc *WorkbookTestCase) AssertWorksheetExists(name string, shouldExist bool) *WorkbookTestCase {
	if tc.skipped {
		return tc
	}
	_, exists := tc.workbook.Worksheet(name)
	if exists != shouldExist {
		tc.t.Errorf("%s: Worksheet %s exists=%v, want %v", tc.name, name, exists, shouldExist)
	}
	return tc
}

// AssertWorksheetOrder checks names in position order and that the
// positions are exactly 1..n
func (tc *WorkbookTestCase) AssertWorksheetOrder(expected ...string) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	if got := tc.workbook.WorksheetNames(); !slices.Equal(got, expected) {
		tc.t.Errorf("%s: worksheet order = %v, want %v", tc.name, got, expected)
	}
	position := 1
	for ws := range tc.workbook.Worksheets() {
		if ws.Position() != position {
			tc.t.Errorf("%s: worksheet %s at position %d, want %d", tc.name, ws.Name(), ws.Position(), position)
		}
		position++
	}
	return tc
}

func (tc *WorkbookTestCase) AssertReport(fn func(t *testing.T, report *ShiftReport)) *WorkbookTestCase {
	if tc.skipped || tc.err != nil {
		return tc
	}
	if tc.report == nil {
		tc.t.Errorf("%s: no shift report recorded", tc.name)
		return tc
	}
	fn(tc.t, tc.report)
	return tc
}

func (tc *WorkbookTestCase) ExpectAppError(expectedCode AppErrorCode) *WorkbookTestCase {
	if tc.skipped {
		return tc
	}
	if tc.err == nil {
		tc.t.Errorf("%s: Expected error with code %v, but got no error", tc.name, expectedCode)
		return tc
	}
	if appErr, ok := tc.err.(*AppError); ok {
		if appErr.Code != expectedCode {
			tc.t.Errorf("%s: Got error code %v, want %v", tc.name, appErr.Code, expectedCode)
		}
	} else {
		tc.t.Errorf("%s: Got error %v, want AppError with code %v", tc.name, tc.err, expectedCode)
	}
	tc.err = nil
	return tc
}

func (tc *WorkbookTestCase) End() {
	if tc.skipped {
		return
	}
	if tc.err != nil {
		tc.t.Errorf("%s: unhandled error: %v", tc.name, tc.err)
	}
}

func TestWorksheetOperations(t *testing.T) {
	t.Run("AddWorksheet", func(t *testing.T) {
		NewWorkbookTestCase(t, "Add worksheet").
			AddWorksheet("Sheet2").
			AssertWorksheetExists("Sheet2", true).
			AssertWorksheetOrder("Sheet1", "Sheet2").
			End()

		NewWorkbookTestCase(t, "Add duplicate worksheet ignoring case").
			AddWorksheet("Data").
			AddWorksheet("DATA").
			ExpectAppError(AlreadyExists).
			End()

		NewWorkbookTestCase(t, "Add with generated name").
			AddWorksheet("").
			AddWorksheet("").
			AssertWorksheetOrder("Sheet1", "Sheet2", "Sheet3").
			End()
	})

	t.Run("InvalidNames", func(t *testing.T) {
		for _, name := range []string{"Sheet/1", "'Sheet1", "Sheet1'", "abcdefghijklmnopqrstuvwxyzABCDEF", "a:b", "a[1]", "why?", "star*"} {
			NewWorkbookTestCase(t, "Reject "+name).
				AddWorksheet(name).
				ExpectAppError(InvalidArgument).
				AssertWorksheetOrder("Sheet1").
				End()
		}

		NewWorkbookTestCase(t, "31 characters is allowed").
			AddWorksheet("abcdefghijklmnopqrstuvwxyzABCDE").
			AssertNoError().
			End()

		NewWorkbookTestCase(t, "Inner apostrophe is allowed").
			AddWorksheet("Bob's data").
			AssertWorksheetExists("bob's DATA", true).
			End()
	})

	t.Run("Positions", func(t *testing.T) {
		NewWorkbookTestCase(t, "Insert at position").
			AddWorksheet("B").
			AddWorksheet("C").
			AddWorksheetAt("X", 2).
			AssertWorksheetOrder("Sheet1", "X", "B", "C").
			End()

		NewWorkbookTestCase(t, "Insert at front").
			AddWorksheetAt("First", 1).
			AssertWorksheetOrder("First", "Sheet1").
			End()

		NewWorkbookTestCase(t, "Insert past the end").
			AddWorksheetAt("Far", 5).
			ExpectAppError(OutOfRange).
			AssertWorksheetOrder("Sheet1").
			End()

		NewWorkbookTestCase(t, "Delete compacts").
			AddWorksheet("B").
			AddWorksheet("C").
			AddWorksheet("D").
			DeleteWorksheet("B").
			AssertWorksheetOrder("Sheet1", "C", "D").
			End()

		NewWorkbookTestCase(t, "Move forward").
			AddWorksheet("B").
			AddWorksheet("C").
			AddWorksheet("D").
			MoveWorksheet("Sheet1", 3).
			AssertWorksheetOrder("B", "C", "Sheet1", "D").
			End()

		NewWorkbookTestCase(t, "Move backward").
			AddWorksheet("B").
			AddWorksheet("C").
			AddWorksheet("D").
			MoveWorksheet("D", 2).
			AssertWorksheetOrder("Sheet1", "D", "B", "C").
			End()

		NewWorkbookTestCase(t, "Move out of range").
			MoveWorksheet("Sheet1", 2).
			ExpectAppError(OutOfRange).
			End()
	})

	t.Run("DeleteWorksheet", func(t *testing.T) {
		NewWorkbookTestCase(t, "Delete non-existent").
			DeleteWorksheet("NoSheet").
			ExpectAppError(NotFound).
			End()
	})

	t.Run("RenameWorksheet", func(t *testing.T) {
		NewWorkbookTestCase(t, "Rename worksheet").
			AddWorksheet("OldName").
			RenameWorksheet("OldName", "NewName").
			AssertWorksheetExists("OldName", false).
			AssertWorksheetExists("NewName", true).
			End()

		NewWorkbookTestCase(t, "Rename to existing ignoring case").
			AddWorksheet("Sheet2").
			RenameWorksheet("Sheet2", "SHEET1").
			ExpectAppError(AlreadyExists).
			AssertWorksheetExists("Sheet2", true).
			AssertWorksheetOrder("Sheet1", "Sheet2").
			End()

		NewWorkbookTestCase(t, "Change case only").
			RenameWorksheet("Sheet1", "SHEET1").
			AssertWorksheetOrder("SHEET1").
			End()

		NewWorkbookTestCase(t, "Rename updates references").
			AddWorksheet("Data").
			Set("Data", "B2", "5").
			SetFormula("Sheet1", "A1", "=SUM(Data!B2:B4)+Data!C1").
			DefineName("Total", "Data!$B$2").
			RenameWorksheet("Data", "My Data").
			AssertFormula("Sheet1", "A1", "SUM('My Data'!B2:B4)+'My Data'!C1").
			AssertNameReferences("Total", "'My Data'!$B$2").
			End()
	})
}

func TestCellValues(t *testing.T) {
	NewWorkbookTestCase(t, "Typed text is converted").
		Set("Sheet1", "A1", "42").
		Set("Sheet1", "A2", "true").
		Set("Sheet1", "A3", "#DIV/0!").
		Set("Sheet1", "A4", "hello").
		Set("Sheet1", "A5", "").
		AssertCellText("Sheet1", "A1", "42").
		AssertCellText("Sheet1", "A2", "TRUE").
		AssertCellText("Sheet1", "A3", "#DIV/0!").
		AssertCellText("Sheet1", "A4", "hello").
		AssertCellEmpty("Sheet1", "A5").
		AssertCellEmpty("Sheet1", "Z99").
		End()

	NewWorkbookTestCase(t, "Address outside the limits", WithLimits(Limits{MaxRow: 10, MaxColumn: 5})).
		Set("Sheet1", "F1", "1").
		ExpectAppError(OutOfRange).
		End()

	NewWorkbookTestCase(t, "Culture of the workbook", WithConfig(Config{Limits: DefaultLimits(), Culture: "de-DE"})).
		Set("Sheet1", "A1", "1,5").
		AssertCellText("Sheet1", "A1", "1.5").
		End()
}

func TestStructuralEdits(t *testing.T) {
	t.Run("Merges", func(t *testing.T) {
		NewWorkbookTestCase(t, "Insert rows moves a merge").
			Merge("Sheet1", "A2:C4").
			InsertRows("Sheet1", 2, 2).
			AssertMerges("Sheet1", "A4:C6").
			End()

		NewWorkbookTestCase(t, "Merge above the edit stays").
			Merge("Sheet1", "A1:B1").
			InsertRows("Sheet1", 3, 5).
			AssertMerges("Sheet1", "A1:B1").
			End()

		NewWorkbookTestCase(t, "Deleting a row inside a merge drops it").
			Merge("Sheet1", "A2:C4").
			DeleteRows("Sheet1", 3, 1).
			AssertMerges("Sheet1").
			AssertReport(func(t *testing.T, report *ShiftReport) {
				if len(report.MergesDropped) != 1 || report.MergesDropped[0].String() != "A2:C4" {
					t.Errorf("dropped merges = %v, want [A2:C4]", report.MergesDropped)
				}
			}).
			End()

		NewWorkbookTestCase(t, "Delete columns before a merge").
			Merge("Sheet1", "D1:E2").
			DeleteColumns("Sheet1", 1, 2).
			AssertMerges("Sheet1", "B1:C2").
			End()
	})

	t.Run("Cells", func(t *testing.T) {
		NewWorkbookTestCase(t, "Insert rows moves values").
			Set("Sheet1", "A1", "top").
			Set("Sheet1", "A2", "moved").
			InsertRows("Sheet1", 2, 3).
			AssertCellText("Sheet1", "A1", "top").
			AssertCellEmpty("Sheet1", "A2").
			AssertCellText("Sheet1", "A5", "moved").
			End()

		NewWorkbookTestCase(t, "Delete columns removes and moves values").
			Set("Sheet1", "B1", "gone").
			Set("Sheet1", "D1", "kept").
			DeleteColumns("Sheet1", 2, 1).
			AssertCellEmpty("Sheet1", "D1").
			AssertCellText("Sheet1", "C1", "kept").
			AssertReport(func(t *testing.T, report *ShiftReport) {
				if report.CellsRemoved != 1 || report.CellsMoved != 1 {
					t.Errorf("removed %d moved %d, want 1 and 1", report.CellsRemoved, report.CellsMoved)
				}
			}).
			End()

		NewWorkbookTestCase(t, "Insert pushing content off the sheet", WithLimits(Limits{MaxRow: 10, MaxColumn: 10})).
			Set("Sheet1", "A9", "x").
			InsertRows("Sheet1", 1, 2).
			ExpectAppError(OutOfRange).
			AssertCellText("Sheet1", "A9", "x").
			End()
	})

	t.Run("Formulas", func(t *testing.T) {
		NewWorkbookTestCase(t, "Formulas follow inserted rows").
			SetFormula("Sheet1", "A1", "=SUM(B2:B4)*$C$3").
			InsertRows("Sheet1", 2, 1).
			AssertFormula("Sheet1", "A1", "SUM(B3:B5)*$C$4").
			End()

		NewWorkbookTestCase(t, "Deleted reference becomes #REF!").
			SetFormula("Sheet1", "A1", "=B3+B5").
			DeleteRows("Sheet1", 3, 1).
			AssertFormula("Sheet1", "A1", "#REF!+B4").
			End()

		NewWorkbookTestCase(t, "References to other sheets are left alone").
			AddWorksheet("Other").
			SetFormula("Sheet1", "A1", "=Other!B5+B5").
			InsertRows("Sheet1", 2, 1).
			AssertFormula("Sheet1", "A1", "Other!B5+B6").
			End()

		NewWorkbookTestCase(t, "Other sheets follow qualified references").
			AddWorksheet("Other").
			SetFormula("Other", "A1", "=Sheet1!C3").
			InsertColumns("Sheet1", 1, 2).
			AssertFormula("Other", "A1", "Sheet1!E3").
			End()
	})

	t.Run("NamedRanges", func(t *testing.T) {
		NewWorkbookTestCase(t, "Insert a row above a named cell").
			DefineName("Rate", "Sheet1!$B$2").
			InsertRows("Sheet1", 1, 1).
			AssertNameReferences("Rate", "Sheet1!$B$3").
			End()

		NewWorkbookTestCase(t, "Deleting the named cell drops the reference").
			DefineName("Rate", "Sheet1!$B$2", "Sheet1!$D$9").
			DeleteRows("Sheet1", 2, 1).
			AssertNameReferences("Rate", "Sheet1!$D$8").
			AssertReport(func(t *testing.T, report *ShiftReport) {
				if len(report.NamedReferencesDropped) != 1 || report.NamedReferencesDropped[0] != "Rate: Sheet1!$B$2" {
					t.Errorf("dropped references = %v", report.NamedReferencesDropped)
				}
			}).
			End()
	})
}
