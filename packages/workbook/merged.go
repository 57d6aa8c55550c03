package workbook

import (
	"cmp"
	"iter"
	"slices"
)

// MergedRanges is the list of merged regions of one worksheet. no two
// regions intersect and none is a single cell.
type MergedRanges struct {
	limits Limits
	ranges []RangeAddress
}

func newMergedRanges(limits Limits) *MergedRanges {
	return &MergedRanges{limits: limits}
}

// Add merges r. merges intersecting r are replaced by it and returned.
func (mr *MergedRanges) Add(r RangeAddress) ([]RangeAddress, error) {
	if err := mr.limits.CheckRange(r); err != nil {
		return nil, err
	}
	if r.IsSingleCell() {
		return nil, newAppErrorf(InvalidArgument, "cannot merge the single cell %s", r.First)
	}

	var replaced []RangeAddress
	kept := mr.ranges[:0]
	for _, existing := range mr.ranges {
		if existing.Intersects(r) {
			replaced = append(replaced, existing)
			continue
		}
		kept = append(kept, existing)
	}
	mr.ranges = append(kept, r)
	return replaced, nil
}

// Remove unmerges exactly r
func (mr *MergedRanges) Remove(r RangeAddress) bool {
	i := slices.Index(mr.ranges, r)
	if i < 0 {
		return false
	}
	mr.ranges = slices.Delete(mr.ranges, i, i+1)
	return true
}

// Find returns the merge covering c
func (mr *MergedRanges) Find(c Coordinate) (RangeAddress, bool) {
	for _, r := range mr.ranges {
		if r.Contains(c) {
			return r, true
		}
	}
	return RangeAddress{}, false
}

// Len returns the number of merged regions
func (mr *MergedRanges) Len() int {
	return len(mr.ranges)
}

// All iterates the merges ordered by their top-left cell
func (mr *MergedRanges) All() iter.Seq[RangeAddress] {
	return func(yield func(RangeAddress) bool) {
		sorted := slices.Clone(mr.ranges)
		slices.SortFunc(sorted, compareRanges)
		for _, r := range sorted {
			if !yield(r) {
				return
			}
		}
	}
}

func compareRanges(a, b RangeAddress) int {
	if c := cmp.Compare(a.First.Row, b.First.Row); c != 0 {
		return c
	}
	if c := cmp.Compare(a.First.Column, b.First.Column); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Last.Row, b.Last.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Last.Column, b.Last.Column)
}

// shift rebuilds the list for a structural edit along axis a and returns
// the merges it dropped. a merge moves only when it starts at or after the
// anchor and lies inside the anchor's cross extent. a merge that ends
// before the anchor stays, and so does one that starts at or after the
// anchor but lies wholly beside the anchor's cross extent. any other merge,
// including one the anchor line cuts through, is dropped.
func (mr *MergedRanges) shift(a Axis, anchor RangeAddress, delta int) []RangeAddress {
	a1 := anchor.First.along(a)
	c1, c2 := anchor.span(a.cross())
	limit := uint64(mr.limits.max(a))

	var dropped []RangeAddress
	kept := make([]RangeAddress, 0, len(mr.ranges))
	for _, m := range mr.ranges {
		m1, m2 := m.span(a)
		q1, q2 := m.span(a.cross())

		switch {
		case m1 >= a1 && q1 >= c1 && q2 <= c2:
			if delta > 0 {
				if uint64(m2)+uint64(delta) > limit {
					dropped = append(dropped, m)
					continue
				}
				kept = append(kept, m.withSpan(a, m1+uint32(delta), m2+uint32(delta)))
				continue
			}
			n := uint32(-delta)
			if m1 >= a1+n {
				kept = append(kept, m.withSpan(a, m1-n, m2-n))
				continue
			}
			dropped = append(dropped, m)

		case m2 < a1:
			kept = append(kept, m)

		case m1 >= a1 && (q2 < c1 || q1 > c2):
			kept = append(kept, m)

		default:
			dropped = append(dropped, m)
		}
	}
	mr.ranges = kept
	return dropped
}
