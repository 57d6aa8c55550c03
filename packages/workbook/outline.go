package workbook

// MaxOutlineLevel is the deepest grouping level a row or column can have
const MaxOutlineLevel uint8 = 8

// OutlineCounter tracks how many rows (or columns) sit at each outline
// level, so the deepest active level is known without scanning records.
// level 0 means "not grouped" and is not counted.
type OutlineCounter struct {
	counts map[uint8]int
}

// NewOutlineCounter creates an empty counter
func NewOutlineCounter() *OutlineCounter {
	return &OutlineCounter{counts: make(map[uint8]int)}
}

// Increment records one more line at level
func (oc *OutlineCounter) Increment(level uint8) {
	if level == 0 {
		return
	}
	oc.counts[level]++
}

// Decrement records one line leaving level
func (oc *OutlineCounter) Decrement(level uint8) {
	if level == 0 {
		return
	}
	if oc.counts[level] <= 1 {
		delete(oc.counts, level)
		return
	}
	oc.counts[level]--
}

// Move records a line changing from one level to another
func (oc *OutlineCounter) Move(from, to uint8) {
	if from == to {
		return
	}
	oc.Decrement(from)
	oc.Increment(to)
}

// Count returns the number of lines at level
func (oc *OutlineCounter) Count(level uint8) int {
	return oc.counts[level]
}

// Max returns the deepest level in use, or 0 when nothing is grouped
func (oc *OutlineCounter) Max() uint8 {
	var deepest uint8
	for level := range oc.counts {
		if level > deepest {
			deepest = level
		}
	}
	return deepest
}
