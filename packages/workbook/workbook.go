package workbook

import (
	"iter"
	"log/slog"

	"github.com/google/uuid"
)

// Workbook is the document root. it owns the limits, the worksheets, the
// workbook-scoped names and the shared string table, and runs every
// structural edit through its MutationEngine.
//
// a workbook is not safe for concurrent use; callers serialize access.
type Workbook struct {
	id      uuid.UUID
	config  Config
	limits  Limits
	culture *Culture
	logger  *slog.Logger

	worksheets *WorksheetSet
	names      *NamedRangeSet
	strings    *SharedStrings
	styles     StyleResolver
	rewriter   FormulaRewriter
	engine     *MutationEngine
}

// Option configures a workbook
type Option func(*Workbook)

// WithConfig replaces the default config
func WithConfig(cfg Config) Option {
	return func(wb *Workbook) { wb.config = cfg }
}

// WithLimits overrides only the limits of the config
func WithLimits(limits Limits) Option {
	return func(wb *Workbook) { wb.config.Limits = limits }
}

// WithLogger sets the logger; the default is slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(wb *Workbook) { wb.logger = logger }
}

// WithStyleResolver sets where default styles come from
func WithStyleResolver(styles StyleResolver) Option {
	return func(wb *Workbook) { wb.styles = styles }
}

// WithFormulaRewriter replaces the A1 rewriter used on shifts
func WithFormulaRewriter(rewriter FormulaRewriter) Option {
	return func(wb *Workbook) { wb.rewriter = rewriter }
}

// NewWorkbook creates an empty workbook. the config is validated and its
// limits are fixed for the workbook's lifetime.
func NewWorkbook(opts ...Option) (*Workbook, error) {
	wb := &Workbook{
		id:     uuid.New(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(wb)
	}
	if err := wb.config.Validate(); err != nil {
		return nil, err
	}
	culture, err := ParseCulture(wb.config.Culture)
	if err != nil {
		return nil, err
	}

	wb.limits = wb.config.Limits
	wb.culture = culture
	if wb.logger == nil {
		wb.logger = slog.Default()
	}
	wb.logger = wb.logger.With(slog.String("component", "workbook"), slog.String("workbook", wb.id.String()))
	if wb.styles == nil {
		wb.styles = zeroStyle{}
	}
	if wb.rewriter == nil {
		wb.rewriter = NewA1Rewriter(wb.limits)
	}
	wb.worksheets = NewWorksheetSet()
	wb.names = NewNamedRangeSet()
	wb.strings = NewSharedStrings()
	wb.engine = newMutationEngine(wb)
	return wb, nil
}

func (wb *Workbook) ID() uuid.UUID                 { return wb.id }
func (wb *Workbook) Config() Config                { return wb.config }
func (wb *Workbook) Limits() Limits                { return wb.limits }
func (wb *Workbook) Culture() *Culture             { return wb.culture }
func (wb *Workbook) NamedRanges() *NamedRangeSet   { return wb.names }
func (wb *Workbook) SharedStrings() *SharedStrings { return wb.strings }
func (wb *Workbook) Engine() *MutationEngine       { return wb.engine }

// AddWorksheet appends a worksheet. an empty name picks "SheetN".
func (wb *Workbook) AddWorksheet(name string) (*Worksheet, error) {
	return wb.AddWorksheetAt(name, 0)
}

// AddWorksheetAt inserts a worksheet at a 1-based position; the sheets at
// or after it move one position back
func (wb *Workbook) AddWorksheetAt(name string, position int) (*Worksheet, error) {
	ws, err := wb.worksheets.add(name, position, func(id uint32, name string) *Worksheet {
		return newWorksheet(wb, id, name)
	})
	if err != nil {
		return nil, err
	}
	wb.logger.Debug("worksheet added", slog.String("sheet", ws.name), slog.Int("position", ws.position))
	return ws, nil
}

// Worksheet finds a worksheet by name, ignoring case
func (wb *Workbook) Worksheet(name string) (*Worksheet, bool) {
	return wb.worksheets.Get(name)
}

// WorksheetAt finds the worksheet at a 1-based position
func (wb *Workbook) WorksheetAt(position int) (*Worksheet, error) {
	return wb.worksheets.GetByPosition(position)
}

// WorksheetByID finds a worksheet by the ID its cells carry
func (wb *Workbook) WorksheetByID(id uint32) (*Worksheet, bool) {
	return wb.worksheets.GetByID(id)
}

// Worksheets iterates the worksheets in position order
func (wb *Workbook) Worksheets() iter.Seq[*Worksheet] {
	return wb.worksheets.All()
}

// WorksheetNames returns the names in position order
func (wb *Workbook) WorksheetNames() []string {
	return wb.worksheets.Names()
}

// WorksheetCount returns the number of worksheets
func (wb *Workbook) WorksheetCount() int {
	return wb.worksheets.Count()
}

// DeleteWorksheet removes a worksheet and releases its strings
func (wb *Workbook) DeleteWorksheet(name string) error {
	ws, err := wb.worksheets.remove(name)
	if err != nil {
		return err
	}
	for _, cell := range ws.cells {
		if cell.stringID != 0 {
			wb.strings.Release(cell.stringID)
		}
	}
	wb.logger.Debug("worksheet deleted", slog.String("sheet", ws.name))
	return nil
}

// MoveWorksheet moves a worksheet to a 1-based position
func (wb *Workbook) MoveWorksheet(name string, position int) error {
	if err := wb.worksheets.move(name, position); err != nil {
		return err
	}
	wb.logger.Debug("worksheet moved", slog.String("sheet", name), slog.Int("position", position))
	return nil
}

// RenameWorksheet renames a worksheet and updates the references to it in
// named ranges and cell formulas
func (wb *Workbook) RenameWorksheet(oldName, newName string) error {
	ws, exists := wb.worksheets.Get(oldName)
	if !exists {
		return newAppErrorf(NotFound, "worksheet %q does not exist", oldName)
	}
	previous := ws.name
	if _, err := wb.worksheets.rename(oldName, newName); err != nil {
		return err
	}
	wb.engine.renameSheet(previous, newName)
	wb.logger.Debug("worksheet renamed", slog.String("from", previous), slog.String("to", newName))
	return nil
}

// DefineName adds a workbook-scoped named range. its references should be
// sheet-qualified.
func (wb *Workbook) DefineName(name string, references ...string) (*NamedRange, error) {
	return wb.names.Add(name, references...)
}
