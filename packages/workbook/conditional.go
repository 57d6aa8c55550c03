package workbook

import (
	"iter"
	"slices"

	"github.com/google/uuid"
)

// regions is the list of ranges a conditional format or data validation
// applies to. every range is an owned copy.
type regions struct {
	ranges []RangeAddress
}

func newRegions(limits Limits, ranges []RangeAddress) (regions, error) {
	if len(ranges) == 0 {
		return regions{}, newAppErrorf(InvalidArgument, "at least one range is required")
	}
	for _, r := range ranges {
		if err := limits.CheckRange(r); err != nil {
			return regions{}, err
		}
	}
	return regions{ranges: slices.Clone(ranges)}, nil
}

// Ranges returns a copy of the ranges
func (rg *regions) Ranges() []RangeAddress {
	return slices.Clone(rg.ranges)
}

// shift adjusts the ranges for an edit along axis a starting at first. when
// first is 1 nothing moves. a range touching the line just before an
// insertion (or the first deleted line) grows or shrinks at its far end; a
// range starting after it is translated, never to before first. it returns
// the ranges that became invalid.
func (rg *regions) shift(a Axis, first uint32, delta int, limit uint32) []RangeAddress {
	if first == 1 {
		return nil
	}
	probe := int64(first)
	if delta > 0 {
		probe--
	}

	var dropped []RangeAddress
	kept := rg.ranges[:0]
	for _, r := range rg.ranges {
		lo, hi := r.span(a)
		newLo, newHi := int64(lo), int64(hi)
		switch {
		case int64(lo) <= probe && probe <= int64(hi):
			newHi = min(int64(limit), newHi+int64(delta))
		case lo >= first:
			newLo = max(newLo+int64(delta), int64(first))
			newHi = min(int64(limit), newHi+int64(delta))
		}
		if newLo < 1 || newHi < newLo {
			dropped = append(dropped, r)
			continue
		}
		kept = append(kept, r.withSpan(a, uint32(newLo), uint32(newHi)))
	}
	rg.ranges = kept
	return dropped
}

// ConditionalFormatType names the kind of rule
type ConditionalFormatType string

const (
	CellIs        ConditionalFormatType = "cellIs"
	Expression    ConditionalFormatType = "expression"
	ColorScale    ConditionalFormatType = "colorScale"
	DataBar       ConditionalFormatType = "dataBar"
	IconSet       ConditionalFormatType = "iconSet"
	Top10         ConditionalFormatType = "top10"
	DuplicateVals ConditionalFormatType = "duplicateValues"
	ContainsText  ConditionalFormatType = "containsText"
)

// ConditionalFormatRule describes when and how a format applies. the
// document keeps the rule opaque; only its ranges take part in shifts.
type ConditionalFormatRule struct {
	Type       ConditionalFormatType
	Operator   string
	Formulas   []string
	Style      StyleID
	Priority   int
	StopIfTrue bool
}

// ConditionalFormat is a rule applied to one or more regions
type ConditionalFormat struct {
	regions
	id   uuid.UUID
	rule ConditionalFormatRule
}

func (cf *ConditionalFormat) ID() uuid.UUID               { return cf.id }
func (cf *ConditionalFormat) Rule() ConditionalFormatRule { return cf.rule }

// ConditionalFormats is the ordered list of conditional formats of one
// worksheet
type ConditionalFormats struct {
	limits  Limits
	formats []*ConditionalFormat
}

func newConditionalFormats(limits Limits) *ConditionalFormats {
	return &ConditionalFormats{limits: limits}
}

// Add registers a rule over the given ranges
func (cfs *ConditionalFormats) Add(rule ConditionalFormatRule, ranges ...RangeAddress) (*ConditionalFormat, error) {
	if rule.Type == "" {
		return nil, newAppErrorf(InvalidArgument, "conditional format type is required")
	}
	rg, err := newRegions(cfs.limits, ranges)
	if err != nil {
		return nil, err
	}
	rule.Formulas = slices.Clone(rule.Formulas)
	cf := &ConditionalFormat{regions: rg, id: uuid.New(), rule: rule}
	cfs.formats = append(cfs.formats, cf)
	return cf, nil
}

// Get finds a conditional format by ID
func (cfs *ConditionalFormats) Get(id uuid.UUID) (*ConditionalFormat, bool) {
	for _, cf := range cfs.formats {
		if cf.id == id {
			return cf, true
		}
	}
	return nil, false
}

// Remove deletes a conditional format by ID
func (cfs *ConditionalFormats) Remove(id uuid.UUID) bool {
	n := len(cfs.formats)
	cfs.formats = slices.DeleteFunc(cfs.formats, func(cf *ConditionalFormat) bool { return cf.id == id })
	return len(cfs.formats) < n
}

// Len returns the number of conditional formats
func (cfs *ConditionalFormats) Len() int {
	return len(cfs.formats)
}

// All iterates the conditional formats in insertion order
func (cfs *ConditionalFormats) All() iter.Seq[*ConditionalFormat] {
	return slices.Values(slices.Clone(cfs.formats))
}

// shift adjusts every format and removes those left without ranges. it
// returns the number of ranges dropped and the formats removed.
func (cfs *ConditionalFormats) shift(a Axis, first uint32, delta int) (int, []*ConditionalFormat) {
	var droppedRanges int
	var removed []*ConditionalFormat
	limit := cfs.limits.max(a)
	cfs.formats = slices.DeleteFunc(cfs.formats, func(cf *ConditionalFormat) bool {
		droppedRanges += len(cf.shift(a, first, delta, limit))
		if len(cf.ranges) == 0 {
			removed = append(removed, cf)
			return true
		}
		return false
	})
	return droppedRanges, removed
}
