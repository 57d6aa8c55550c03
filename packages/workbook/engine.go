package workbook

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ShiftReport records what a structural edit did, including every derived
// structure it had to drop
type ShiftReport struct {
	Shift        Shift
	CellsMoved   int
	CellsRemoved int

	MergesDropped             []RangeAddress
	NamedReferencesDropped    []string // "name: reference"
	ConditionalRangesDropped  int
	ConditionalFormatsRemoved []uuid.UUID
	ValidationRangesDropped   int
	ValidationsRemoved        []uuid.UUID
	PageBreaksDropped         []uint32
	FormulasRewritten         int
}

func (r *ShiftReport) droppedByKind() map[string]int {
	return map[string]int{
		"merge":              len(r.MergesDropped),
		"named_reference":    len(r.NamedReferencesDropped),
		"conditional_format": len(r.ConditionalFormatsRemoved),
		"data_validation":    len(r.ValidationsRemoved),
		"page_break":         len(r.PageBreaksDropped),
	}
}

// Dropped returns the number of derived entries the edit removed
func (r *ShiftReport) Dropped() int {
	total := 0
	for _, n := range r.droppedByKind() {
		total += n
	}
	return total
}

// MutationEngine runs structural edits. it updates the grid first, then
// walks each derived collection once, then rewrites cell formulas.
type MutationEngine struct {
	book     *Workbook
	rewriter FormulaRewriter
	logger   *slog.Logger
	metrics  bool
}

func newMutationEngine(book *Workbook) *MutationEngine {
	return &MutationEngine{
		book:     book,
		rewriter: book.rewriter,
		logger:   book.logger,
		metrics:  book.config.MetricsEnabled,
	}
}

// Shift inserts (delta > 0) or deletes (delta < 0) lines along axis a on
// ws. the anchor's first row (or column) is the first line affected and its
// cross extent limits which cells move; an anchor spanning the whole cross
// axis moves whole rows or columns. ctx only carries tracing.
func (e *MutationEngine) Shift(ctx context.Context, ws *Worksheet, a Axis, anchor RangeAddress, delta int) (*ShiftReport, error) {
	if err := ws.checkShift(a, anchor, delta); err != nil {
		return nil, err
	}

	shift := Shift{Sheet: ws.name, Axis: a, Anchor: anchor, Delta: delta}
	ctx, span := startShiftSpan(ctx, shift)
	defer span.End()
	start := time.Now()

	report := &ShiftReport{Shift: shift}
	first := anchor.First.along(a)

	e.logger.Debug("shift",
		slog.String("sheet", ws.name),
		slog.String("axis", a.String()),
		slog.String("anchor", anchor.String()),
		slog.Int("delta", delta),
	)

	// grid storage, reverse indices and outline counters
	report.CellsMoved, report.CellsRemoved = ws.shiftCells(a, anchor, delta)
	if ws.limits.spansCross(anchor, a) {
		ws.shiftLines(a, first, delta)
	}

	report.MergesDropped = ws.merges.shift(a, anchor, delta)
	for _, m := range report.MergesDropped {
		e.logDropped("merge", m.String(), "cut by shift")
	}

	for sheet := range e.book.worksheets.All() {
		contextSheet := sheet.name
		dropped := sheet.names.rewrite(func(ref string) string {
			return e.rewriter.Rewrite(ref, contextSheet, shift)
		})
		report.NamedReferencesDropped = append(report.NamedReferencesDropped, dropped...)
	}
	report.NamedReferencesDropped = append(report.NamedReferencesDropped, e.book.names.rewrite(func(ref string) string {
		return e.rewriter.Rewrite(ref, "", shift)
	})...)
	for _, ref := range report.NamedReferencesDropped {
		e.logDropped("named_reference", ref, "reference no longer exists")
	}

	var removedFormats []*ConditionalFormat
	report.ConditionalRangesDropped, removedFormats = ws.conditionalFormats.shift(a, first, delta)
	for _, cf := range removedFormats {
		report.ConditionalFormatsRemoved = append(report.ConditionalFormatsRemoved, cf.id)
		e.logDropped("conditional_format", cf.id.String(), "no valid range left")
	}

	var removedValidations []*DataValidation
	report.ValidationRangesDropped, removedValidations = ws.validations.shift(a, first, delta)
	for _, dv := range removedValidations {
		report.ValidationsRemoved = append(report.ValidationsRemoved, dv.id)
		e.logDropped("data_validation", dv.id.String(), "no valid range left")
	}

	report.PageBreaksDropped = ws.pageBreaks.shift(a, first, delta)
	for _, n := range report.PageBreaksDropped {
		e.logDropped("page_break", a.String(), "moved off the sheet", slog.Uint64("position", uint64(n)))
	}

	report.FormulasRewritten = e.rewriteFormulas(shift)

	setShiftSpanResult(span, report)
	if e.metrics {
		recordShiftMetrics(ctx, shift, time.Since(start), report)
	}
	return report, nil
}

func (e *MutationEngine) logDropped(kind, what, reason string, attrs ...any) {
	args := append([]any{
		slog.String("kind", kind),
		slog.String("range", what),
		slog.String("reason", reason),
	}, attrs...)
	e.logger.Debug("dropped derived structure", args...)
}

// rewriteFormulas passes every cell formula of the workbook through the
// rewriter. a reference that dies becomes #REF!.
func (e *MutationEngine) rewriteFormulas(shift Shift) int {
	cellRewriter, keepsDead := e.rewriter.(formulaCellRewriter)
	rewritten := 0
	for sheet := range e.book.worksheets.All() {
		for _, cell := range sheet.cells {
			if cell.formula == "" {
				continue
			}
			var updated string
			if keepsDead {
				updated = cellRewriter.RewriteFormula(cell.formula, sheet.name, shift)
			} else if updated = e.rewriter.Rewrite(cell.formula, sheet.name, shift); updated == "" {
				updated = refErrorLiteral
			}
			if updated != cell.formula {
				cell.formula = updated
				rewritten++
			}
		}
	}
	return rewritten
}

// renameSheet follows a worksheet rename in every named range and formula.
// rewriters that cannot rename leave the text untouched.
func (e *MutationEngine) renameSheet(oldName, newName string) {
	renamer, ok := e.rewriter.(sheetRenamer)
	if !ok {
		return
	}
	rename := func(text string) string { return renamer.RenameSheet(text, oldName, newName) }
	for sheet := range e.book.worksheets.All() {
		sheet.names.rewrite(rename)
		for _, cell := range sheet.cells {
			if cell.formula != "" {
				cell.formula = rename(cell.formula)
			}
		}
	}
	e.book.names.rewrite(rename)
}
