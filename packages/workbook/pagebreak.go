package workbook

import (
	"iter"
	"slices"
)

// PageBreaks holds the row and column positions that force a new printed
// page. a break at n falls after line n.
type PageBreaks struct {
	limits Limits
	breaks [2][]uint32 // sorted, indexed by Axis
}

func newPageBreaks(limits Limits) *PageBreaks {
	return &PageBreaks{limits: limits}
}

func (pb *PageBreaks) add(a Axis, n uint32) error {
	if n < 1 || n > pb.limits.max(a) {
		return newAppErrorf(OutOfRange, "page break %d is outside 1..%d", n, pb.limits.max(a))
	}
	i, found := slices.BinarySearch(pb.breaks[a], n)
	if !found {
		pb.breaks[a] = slices.Insert(pb.breaks[a], i, n)
	}
	return nil
}

func (pb *PageBreaks) remove(a Axis, n uint32) bool {
	i, found := slices.BinarySearch(pb.breaks[a], n)
	if found {
		pb.breaks[a] = slices.Delete(pb.breaks[a], i, i+1)
	}
	return found
}

// AddRowBreak adds a break after row n
func (pb *PageBreaks) AddRowBreak(n uint32) error { return pb.add(Rows, n) }

// AddColumnBreak adds a break after column n
func (pb *PageBreaks) AddColumnBreak(n uint32) error { return pb.add(Columns, n) }

func (pb *PageBreaks) RemoveRowBreak(n uint32) bool    { return pb.remove(Rows, n) }
func (pb *PageBreaks) RemoveColumnBreak(n uint32) bool { return pb.remove(Columns, n) }

// RowBreaks iterates the row breaks in ascending order
func (pb *PageBreaks) RowBreaks() iter.Seq[uint32] {
	return slices.Values(slices.Clone(pb.breaks[Rows]))
}

// ColumnBreaks iterates the column breaks in ascending order
func (pb *PageBreaks) ColumnBreaks() iter.Seq[uint32] {
	return slices.Values(slices.Clone(pb.breaks[Columns]))
}

// shift moves every break at or after first by delta. breaks that land
// outside the sheet are dropped, and breaks landing on the same line merge.
func (pb *PageBreaks) shift(a Axis, first uint32, delta int) []uint32 {
	limit := int64(pb.limits.max(a))
	var dropped []uint32
	moved := make([]uint32, 0, len(pb.breaks[a]))
	for _, n := range pb.breaks[a] {
		if n < first {
			moved = append(moved, n)
			continue
		}
		target := int64(n) + int64(delta)
		if target < 1 || target > limit {
			dropped = append(dropped, n)
			continue
		}
		moved = append(moved, uint32(target))
	}
	slices.Sort(moved)
	pb.breaks[a] = slices.Compact(moved)
	return dropped
}
