package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vogtb/go-spreadsheet/packages/workbook"
	"gopkg.in/yaml.v3"
)

// Script is a list of edits replayed in order against one workbook
type Script struct {
	Steps []Step `yaml:"steps" validate:"dive"`
}

// Step is one edit. which fields matter depends on Op.
type Step struct {
	Op    string `yaml:"op" validate:"required,oneof=add_sheet set formula merge name conditional_format validation page_break group_rows insert_rows delete_rows insert_columns delete_columns"`
	Sheet string `yaml:"sheet"`

	Cell    string `yaml:"cell"`
	Value   string `yaml:"value"`
	Formula string `yaml:"formula"`
	Range   string `yaml:"range"`

	// name
	Name  string   `yaml:"name"`
	Refs  []string `yaml:"refs"`
	Scope string   `yaml:"scope" validate:"omitempty,oneof=sheet workbook"`

	// conditional_format and validation
	Type     string   `yaml:"type"`
	Operator string   `yaml:"operator"`
	Formulas []string `yaml:"formulas"`
	Ranges   []string `yaml:"ranges"`

	// page_break, group_rows and the structural edits
	Axis     string `yaml:"axis" validate:"omitempty,oneof=rows columns"`
	At       uint32 `yaml:"at"`
	Last     uint32 `yaml:"last"`
	Count    int    `yaml:"count" validate:"gte=0"`
	Collapse bool   `yaml:"collapse"`
}

var validate = validator.New()

// ParseScript reads and validates a YAML script
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := validate.Struct(script); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &script, nil
}

// LoadScript reads a script file
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(data)
}

// Apply runs every step. the first failing step stops the run and is named
// in the error.
func (s *Script) Apply(wb *workbook.Workbook, logger *slog.Logger) error {
	for i, step := range s.Steps {
		if err := step.apply(wb, logger); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return nil
}

func (st Step) sheet(wb *workbook.Workbook) (*workbook.Worksheet, error) {
	if st.Sheet == "" {
		return wb.WorksheetAt(1)
	}
	ws, ok := wb.Worksheet(st.Sheet)
	if !ok {
		return nil, workbook.NewApplicationError(workbook.NotFound, fmt.Sprintf("worksheet %q does not exist", st.Sheet))
	}
	return ws, nil
}

func (st Step) count() int {
	if st.Count == 0 {
		return 1
	}
	return st.Count
}

func parseRanges(limits workbook.Limits, texts []string) ([]workbook.RangeAddress, error) {
	ranges := make([]workbook.RangeAddress, 0, len(texts))
	for _, text := range texts {
		r, err := limits.ParseRange(text)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func (st Step) apply(wb *workbook.Workbook, logger *slog.Logger) error {
	if st.Op == "add_sheet" {
		_, err := wb.AddWorksheet(st.Sheet)
		return err
	}
	if st.Op == "name" && st.Scope != "sheet" {
		_, err := wb.DefineName(st.Name, st.Refs...)
		return err
	}

	ws, err := st.sheet(wb)
	if err != nil {
		return err
	}
	limits := wb.Limits()

	var report *workbook.ShiftReport
	switch st.Op {
	case "set":
		return ws.Set(st.Cell, st.Value)

	case "formula":
		c, err := ws.Address(st.Cell)
		if err != nil {
			return err
		}
		return ws.SetFormula(c, st.Formula)

	case "merge":
		r, err := limits.ParseRange(st.Range)
		if err != nil {
			return err
		}
		_, err = ws.Merge(r)
		return err

	case "name":
		_, err := ws.DefineName(st.Name, st.Refs...)
		return err

	case "conditional_format":
		ranges, err := parseRanges(limits, st.Ranges)
		if err != nil {
			return err
		}
		_, err = ws.ConditionalFormats().Add(workbook.ConditionalFormatRule{
			Type:     workbook.ConditionalFormatType(st.Type),
			Operator: st.Operator,
			Formulas: st.Formulas,
		}, ranges...)
		return err

	case "validation":
		ranges, err := parseRanges(limits, st.Ranges)
		if err != nil {
			return err
		}
		rule := workbook.ValidationRule{Type: workbook.ValidationType(st.Type), Operator: st.Operator}
		if len(st.Formulas) > 0 {
			rule.Formula1 = st.Formulas[0]
		}
		if len(st.Formulas) > 1 {
			rule.Formula2 = st.Formulas[1]
		}
		_, err = ws.DataValidations().Add(rule, ranges...)
		return err

	case "page_break":
		if st.Axis == "columns" {
			return ws.PageBreaks().AddColumnBreak(st.At)
		}
		return ws.PageBreaks().AddRowBreak(st.At)

	case "group_rows":
		last := st.Last
		if last == 0 {
			last = st.At
		}
		return ws.GroupRows(st.At, last, st.Collapse)

	case "insert_rows":
		report, err = ws.InsertRowsAbove(st.At, st.count())
	case "delete_rows":
		report, err = ws.DeleteRows(st.At, st.count())
	case "insert_columns":
		report, err = ws.InsertColumnsBefore(st.At, st.count())
	case "delete_columns":
		report, err = ws.DeleteColumns(st.At, st.count())
	}
	if err != nil {
		return err
	}
	if report != nil {
		logShift(logger, report)
	}
	return nil
}

func logShift(logger *slog.Logger, report *workbook.ShiftReport) {
	attrs := []any{
		slog.String("sheet", report.Shift.Sheet),
		slog.String("axis", report.Shift.Axis.String()),
		slog.Int("delta", report.Shift.Delta),
		slog.Int("cells_moved", report.CellsMoved),
		slog.Int("cells_removed", report.CellsRemoved),
		slog.Int("formulas_rewritten", report.FormulasRewritten),
	}
	if dropped := report.Dropped(); dropped > 0 {
		attrs = append(attrs, slog.Int("dropped", dropped))
	}
	if len(report.NamedReferencesDropped) > 0 {
		attrs = append(attrs, slog.String("dead_references", strings.Join(report.NamedReferencesDropped, "; ")))
	}
	logger.Info("shift applied", attrs...)
}
