package workbook

import (
	"iter"
	"slices"

	"github.com/google/uuid"
)

type ValidationType string

const (
	AnyValue      ValidationType = "none"
	WholeNumber   ValidationType = "whole"
	DecimalNumber ValidationType = "decimal"
	ValueList     ValidationType = "list"
	DateValue     ValidationType = "date"
	TimeValue     ValidationType = "time"
	TextLength    ValidationType = "textLength"
	CustomFormula ValidationType = "custom"
)

// ValidationRule is the constraint and the messages shown around it
type ValidationRule struct {
	Type         ValidationType
	Operator     string
	Formula1     string
	Formula2     string
	AllowBlank   bool
	ShowInput    bool
	InputTitle   string
	InputMessage string
	ShowError    bool
	ErrorTitle   string
	ErrorMessage string
}

// DataValidation restricts what may be entered into its regions
type DataValidation struct {
	regions
	id   uuid.UUID
	rule ValidationRule
}

func (dv *DataValidation) ID() uuid.UUID        { return dv.id }
func (dv *DataValidation) Rule() ValidationRule { return dv.rule }

// DataValidations is the list of validations of one worksheet
type DataValidations struct {
	limits      Limits
	validations []*DataValidation
}

func newDataValidations(limits Limits) *DataValidations {
	return &DataValidations{limits: limits}
}

// Add registers a validation over the given ranges
func (dvs *DataValidations) Add(rule ValidationRule, ranges ...RangeAddress) (*DataValidation, error) {
	if rule.Type == "" {
		rule.Type = AnyValue
	}
	rg, err := newRegions(dvs.limits, ranges)
	if err != nil {
		return nil, err
	}
	dv := &DataValidation{regions: rg, id: uuid.New(), rule: rule}
	dvs.validations = append(dvs.validations, dv)
	return dv, nil
}

// Find returns the validation whose regions contain c
func (dvs *DataValidations) Find(c Coordinate) (*DataValidation, bool) {
	for _, dv := range dvs.validations {
		for _, r := range dv.ranges {
			if r.Contains(c) {
				return dv, true
			}
		}
	}
	return nil, false
}

// Remove deletes a validation by ID
func (dvs *DataValidations) Remove(id uuid.UUID) bool {
	n := len(dvs.validations)
	dvs.validations = slices.DeleteFunc(dvs.validations, func(dv *DataValidation) bool { return dv.id == id })
	return len(dvs.validations) < n
}

func (dvs *DataValidations) Len() int {
	return len(dvs.validations)
}

func (dvs *DataValidations) All() iter.Seq[*DataValidation] {
	return slices.Values(slices.Clone(dvs.validations))
}

func (dvs *DataValidations) shift(a Axis, first uint32, delta int) (int, []*DataValidation) {
	var droppedRanges int
	var removed []*DataValidation
	limit := dvs.limits.max(a)
	dvs.validations = slices.DeleteFunc(dvs.validations, func(dv *DataValidation) bool {
		droppedRanges += len(dv.shift(a, first, delta, limit))
		if len(dv.ranges) == 0 {
			removed = append(removed, dv)
			return true
		}
		return false
	})
	return droppedRanges, removed
}
