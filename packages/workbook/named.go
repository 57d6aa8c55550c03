package workbook

import (
	"iter"
	"slices"
	"strings"

	"github.com/xuri/efp"
)

// NamedRange is a defined name: a list of references (formula text such as
// "Sheet1!$B$2:$C$4") with a comment and a visibility flag. a named range
// whose references all died stays defined with none until it is deleted.
type NamedRange struct {
	id         uint32
	name       string
	references []string
	comment    string
	visible    bool
}

func (nr *NamedRange) ID() uint32      { return nr.id }
func (nr *NamedRange) Name() string    { return nr.name }
func (nr *NamedRange) Comment() string { return nr.comment }
func (nr *NamedRange) IsVisible() bool { return nr.visible }

func (nr *NamedRange) SetComment(comment string) { nr.comment = comment }
func (nr *NamedRange) SetVisible(visible bool)   { nr.visible = visible }

// References returns a copy of the reference list
func (nr *NamedRange) References() []string {
	return slices.Clone(nr.references)
}

// ReferenceCount returns how many references remain
func (nr *NamedRange) ReferenceCount() int {
	return len(nr.references)
}

// AddReference appends reference text. a leading "=" is dropped.
func (nr *NamedRange) AddReference(text string) error {
	text = strings.TrimPrefix(strings.TrimSpace(text), "=")
	if text == "" {
		return newAppErrorf(InvalidArgument, "named range %q: empty reference", nr.name)
	}
	nr.references = append(nr.references, text)
	return nil
}

// ClearReferences removes every reference
func (nr *NamedRange) ClearReferences() {
	nr.references = nil
}

// SheetRange is a range on a named sheet
type SheetRange struct {
	Sheet string
	Range RangeAddress
}

func (sr SheetRange) String() string {
	return QuoteSheetName(sr.Sheet) + "!" + sr.Range.String()
}

// Ranges resolves the references to sheet ranges. operands are extracted
// with the formula parser, so a reference like "Sheet1!A1:A3,Sheet1!C1"
// yields two ranges. unqualified operands belong to contextSheet. operands
// that are not ranges (constants, other names) are skipped.
func (nr *NamedRange) Ranges(limits Limits, contextSheet string) ([]SheetRange, error) {
	var result []SheetRange
	for _, text := range nr.references {
		ps := efp.ExcelParser()
		for _, token := range ps.Parse("=" + text) {
			if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
				continue
			}
			sr, ok, err := resolveOperand(limits, token.TValue, contextSheet)
			if err != nil {
				return nil, newAppErrorf(InvalidArgument, "named range %q: %v", nr.name, err)
			}
			if ok {
				result = append(result, sr)
			}
		}
	}
	return result, nil
}

// resolveOperand splits an operand into sheet and area. names that are not
// A1 references report ok = false.
func resolveOperand(limits Limits, operand, contextSheet string) (SheetRange, bool, error) {
	// the formula parser unquotes sheet prefixes ('My Sheet'!A1 arrives as
	// My Sheet!A1), so quote them again before lexing
	if i := strings.LastIndex(operand, "!"); i > 0 {
		sheet := operand[:i]
		if !(strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'")) {
			operand = QuoteSheetName(sheet) + operand[i:]
		}
	}
	tokens, err := NewLexer(operand).Tokenize()
	if err != nil {
		return SheetRange{}, false, err
	}
	if len(tokens) != 1 || tokens[0].Type != TokenReference {
		return SheetRange{}, false, nil
	}
	ref := tokens[0].Ref
	sheet := ref.Sheet
	if sheet == "" {
		sheet = contextSheet
	}
	r := ref.Range(limits)
	if err := limits.CheckRange(r); err != nil {
		return SheetRange{}, false, err
	}
	return SheetRange{Sheet: sheet, Range: r}, true, nil
}

// NamedRangeSet holds the named ranges of one scope: a worksheet or the
// workbook. names are unique case-insensitively within the set.
type NamedRangeSet struct {
	nameToID map[string]uint32 // folded name -> ID
	ranges   map[uint32]*NamedRange
	nextID   uint32
}

// NewNamedRangeSet creates an empty set
func NewNamedRangeSet() *NamedRangeSet {
	return &NamedRangeSet{
		nameToID: make(map[string]uint32),
		ranges:   make(map[uint32]*NamedRange),
		nextID:   1, // start at 1, reserve 0 for no range
	}
}

// Add defines a new name with the given references
func (nrs *NamedRangeSet) Add(name string, references ...string) (*NamedRange, error) {
	if err := validateDefinedName(name); err != nil {
		return nil, err
	}
	key := foldName(name)
	if _, exists := nrs.nameToID[key]; exists {
		return nil, newAppErrorf(AlreadyExists, "named range %q already exists", name)
	}

	nr := &NamedRange{id: nrs.nextID, name: name, visible: true}
	for _, ref := range references {
		if err := nr.AddReference(ref); err != nil {
			return nil, err
		}
	}
	nrs.nextID++
	nrs.nameToID[key] = nr.id
	nrs.ranges[nr.id] = nr
	return nr, nil
}

// Get looks a name up case-insensitively
func (nrs *NamedRangeSet) Get(name string) (*NamedRange, bool) {
	id, exists := nrs.nameToID[foldName(name)]
	if !exists {
		return nil, false
	}
	return nrs.ranges[id], true
}

// Contains checks if a name is defined
func (nrs *NamedRangeSet) Contains(name string) bool {
	_, exists := nrs.nameToID[foldName(name)]
	return exists
}

// Delete removes a name. returns false when it was not defined.
func (nrs *NamedRangeSet) Delete(name string) bool {
	key := foldName(name)
	id, exists := nrs.nameToID[key]
	if !exists {
		return false
	}
	delete(nrs.nameToID, key)
	delete(nrs.ranges, id)
	return true
}

// Rename changes a name, keeping its ID and references
func (nrs *NamedRangeSet) Rename(oldName, newName string) error {
	if err := validateDefinedName(newName); err != nil {
		return err
	}
	oldKey, newKey := foldName(oldName), foldName(newName)
	id, exists := nrs.nameToID[oldKey]
	if !exists {
		return newAppErrorf(NotFound, "named range %q does not exist", oldName)
	}
	if other, taken := nrs.nameToID[newKey]; taken && other != id {
		return newAppErrorf(AlreadyExists, "named range %q already exists", newName)
	}
	delete(nrs.nameToID, oldKey)
	nrs.nameToID[newKey] = id
	nrs.ranges[id].name = newName
	return nil
}

// Count returns the number of names
func (nrs *NamedRangeSet) Count() int {
	return len(nrs.ranges)
}

// All iterates the named ranges in name order
func (nrs *NamedRangeSet) All() iter.Seq[*NamedRange] {
	return func(yield func(*NamedRange) bool) {
		sorted := make([]*NamedRange, 0, len(nrs.ranges))
		for _, nr := range nrs.ranges {
			sorted = append(sorted, nr)
		}
		slices.SortFunc(sorted, func(a, b *NamedRange) int {
			return strings.Compare(foldName(a.name), foldName(b.name))
		})
		for _, nr := range sorted {
			if !yield(nr) {
				return
			}
		}
	}
}

// rewrite passes every reference through fn. references mapped to "" are
// removed and returned as "name: reference".
func (nrs *NamedRangeSet) rewrite(fn func(string) string) []string {
	var dropped []string
	for nr := range nrs.All() {
		kept := nr.references[:0]
		for _, ref := range nr.references {
			rewritten := fn(ref)
			if rewritten == "" {
				dropped = append(dropped, nr.name+": "+ref)
				continue
			}
			kept = append(kept, rewritten)
		}
		nr.references = kept
	}
	return dropped
}
