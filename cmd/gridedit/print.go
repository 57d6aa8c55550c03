package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/workbook"
)

func joinRanges(ranges []workbook.RangeAddress) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ",")
}

func joinNumbers(ns []uint32) string {
	if len(ns) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		parts = append(parts, strconv.FormatUint(uint64(n), 10))
	}
	return strings.Join(parts, ",")
}

func printNames(w io.Writer, indent string, names *workbook.NamedRangeSet) {
	for nr := range names.All() {
		fmt.Fprintf(w, "%sname %s = %s\n", indent, nr.Name(), strings.Join(nr.References(), ","))
	}
}

// PrintStructure writes every worksheet's cells, merges, names, conditional
// formats, validations and page breaks, followed by the workbook names
func PrintStructure(w io.Writer, wb *workbook.Workbook) {
	for ws := range wb.Worksheets() {
		fmt.Fprintf(w, "sheet %s (position %d)\n", ws.Name(), ws.Position())
		if used, ok := ws.UsedRange(false); ok {
			fmt.Fprintf(w, "  used %s\n", used)
			for cell := range ws.CellsInRange(used) {
				if cell.HasFormula() {
					fmt.Fprintf(w, "  %s =%s\n", cell.Coordinate(), cell.Formula())
					continue
				}
				if !cell.Value().IsBlank() {
					fmt.Fprintf(w, "  %s %s\n", cell.Coordinate(), cell.Value().ToString(wb.Culture()))
				}
			}
		}
		for m := range ws.MergedRanges().All() {
			fmt.Fprintf(w, "  merge %s\n", m)
		}
		printNames(w, "  ", ws.NamedRanges())
		for cf := range ws.ConditionalFormats().All() {
			fmt.Fprintf(w, "  conditional %s %s\n", cf.Rule().Type, joinRanges(cf.Ranges()))
		}
		for dv := range ws.DataValidations().All() {
			fmt.Fprintf(w, "  validation %s %s\n", dv.Rule().Type, joinRanges(dv.Ranges()))
		}
		fmt.Fprintf(w, "  row breaks %s\n", joinNumbers(slices.Collect(ws.PageBreaks().RowBreaks())))
		fmt.Fprintf(w, "  column breaks %s\n", joinNumbers(slices.Collect(ws.PageBreaks().ColumnBreaks())))
		if level := ws.MaxRowOutlineLevel(); level > 0 {
			fmt.Fprintf(w, "  row outline depth %d\n", level)
		}
	}
	printNames(w, "", wb.NamedRanges())
}
