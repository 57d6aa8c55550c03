package workbook

import (
	"strings"

	"golang.org/x/text/cases"
)

// Shift describes one structural edit: Delta lines inserted (positive) or
// deleted (negative) along Axis on Sheet, starting at the anchor's first
// line and limited to the anchor's cross extent.
type Shift struct {
	Sheet  string
	Axis   Axis
	Anchor RangeAddress
	Delta  int
}

// FormulaRewriter translates the addresses in formula or reference text for
// a shift. contextSheet is the sheet unqualified addresses belong to. an
// empty result means the text no longer refers to anything representable.
type FormulaRewriter interface {
	Rewrite(text, contextSheet string, shift Shift) string
}

// formulaCellRewriter is implemented by rewriters that can keep a cell
// formula alive when one of its references dies
type formulaCellRewriter interface {
	RewriteFormula(text, contextSheet string, shift Shift) string
}

// sheetRenamer is implemented by rewriters that can follow a sheet rename
type sheetRenamer interface {
	RenameSheet(text, oldName, newName string) string
}

// foldName folds a sheet or defined name for case-insensitive comparison.
// a Caser keeps state, so each call gets its own.
func foldName(name string) string {
	return cases.Fold().String(name)
}

func sameName(a, b string) bool {
	return foldName(a) == foldName(b)
}

// A1Rewriter rewrites A1-style references found by the reference lexer
type A1Rewriter struct {
	limits Limits
}

// NewA1Rewriter creates a rewriter for documents bounded by limits
func NewA1Rewriter(limits Limits) *A1Rewriter {
	return &A1Rewriter{limits: limits}
}

// refErrorLiteral replaces references that no longer exist in cell formulas
const refErrorLiteral = "#REF!"

// Rewrite returns text with every affected reference moved. when any
// reference dies the result is "". text that cannot be tokenized is
// returned unchanged.
func (rw *A1Rewriter) Rewrite(text, contextSheet string, shift Shift) string {
	out, alive := rw.rewrite(text, contextSheet, shift, false)
	if !alive {
		return ""
	}
	return out
}

// RewriteFormula works like Rewrite, but a reference that dies becomes
// #REF! and the rest of the formula is kept.
func (rw *A1Rewriter) RewriteFormula(text, contextSheet string, shift Shift) string {
	out, _ := rw.rewrite(text, contextSheet, shift, true)
	return out
}

func (rw *A1Rewriter) rewrite(text, contextSheet string, shift Shift, keepDead bool) (string, bool) {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return text, true
	}

	var sb strings.Builder
	alive := true
	for _, tok := range tokens {
		if tok.Type != TokenReference {
			sb.WriteString(tok.Value)
			continue
		}
		ref := tok.Ref
		if !rw.affected(ref, contextSheet, shift) {
			sb.WriteString(tok.Value)
			continue
		}
		if !rw.shiftReference(ref, shift) {
			alive = false
			if keepDead {
				sb.WriteString(ref.sheetText + refErrorLiteral)
			}
			continue
		}
		sb.WriteString(ref.String())
	}
	return sb.String(), alive
}

// affected reports whether a shift can move ref. references on another
// sheet, outside the limits, beside the anchor's cross extent, before the
// anchor, or spanning every line of the shift axis stay as they are.
func (rw *A1Rewriter) affected(ref *Reference, contextSheet string, shift Shift) bool {
	sheet := ref.Sheet
	if sheet == "" {
		sheet = contextSheet
	}
	if sheet == "" || !sameName(sheet, shift.Sheet) {
		return false
	}

	r := ref.Range(rw.limits)
	if rw.limits.CheckRange(r) != nil {
		return false
	}
	a := shift.Axis
	if lo, hi := r.span(a); lo == 1 && hi == rw.limits.max(a) {
		return false
	}
	c1, c2 := shift.Anchor.span(a.cross())
	q1, q2 := r.span(a.cross())
	if q1 < c1 || q2 > c2 {
		return false
	}
	_, p2 := r.span(a)
	return p2 >= shift.Anchor.First.along(a)
}

// shiftReference applies the shift to an affected reference. it returns
// false when the reference collapses or falls off the sheet.
func (rw *A1Rewriter) shiftReference(ref *Reference, shift Shift) bool {
	a := shift.Axis
	a1 := int64(shift.Anchor.First.along(a))
	p1, p2 := int64(ref.first.along(a)), int64(ref.last.along(a))
	limit := int64(rw.limits.max(a))
	d := int64(shift.Delta)

	var n1, n2 int64
	if d > 0 {
		n1, n2 = p1, p2+d
		if p1 >= a1 {
			n1 = p1 + d
		}
		if n1 > limit {
			return false
		}
		n2 = min(n2, limit)
	} else {
		n := -d
		bandLast := a1 + n - 1
		switch {
		case p1 < a1:
			n1 = p1
		case p1 > bandLast:
			n1 = p1 - n
		default:
			n1 = a1
		}
		if p2 > bandLast {
			n2 = p2 - n
		} else {
			n2 = a1 - 1
		}
		if n1 > n2 || n2 < 1 {
			return false
		}
	}
	ref.setSpan(a, uint32(n1), uint32(n2))
	return true
}

// RenameSheet rewrites every reference qualified with oldName to newName.
// unqualified references are left alone.
func (rw *A1Rewriter) RenameSheet(text, oldName, newName string) string {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return text
	}
	var sb strings.Builder
	for _, tok := range tokens {
		if tok.Type == TokenReference && tok.Ref.Sheet != "" && sameName(tok.Ref.Sheet, oldName) {
			tok.Ref.setSheet(newName)
			sb.WriteString(tok.Ref.String())
			continue
		}
		sb.WriteString(tok.Value)
	}
	return sb.String()
}
