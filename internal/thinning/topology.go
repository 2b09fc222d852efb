package thinning

// Cyclic neighbour positions around a pixel. Even positions are the
// orthogonal neighbours, odd positions the diagonal ones.
const (
	posN = iota
	posNE
	posE
	posSE
	posS
	posSW
	posW
	posNW
	numPositions
)

var cyclicOffsets = [numPositions][2]int{
	posN:  {0, -1},
	posNE: {1, -1},
	posE:  {1, 0},
	posSE: {1, 1},
	posS:  {0, 1},
	posSW: {-1, 1},
	posW:  {-1, 0},
	posNW: {-1, -1},
}

// neighborSet is a bit set over the 8 cyclic positions.
type neighborSet uint8

func (s neighborSet) has(pos int) bool {
	return s&(1<<uint((pos+numPositions)%numPositions)) != 0
}

func (s neighborSet) count() int {
	n := 0
	for pos := 0; pos < numPositions; pos++ {
		if s.has(pos) {
			n++
		}
	}
	return n
}

// retainedNeighbors collects the neighbours of (x,y) whose status is not Removed.
// The caller guarantees (x,y) is not on the image border.
func retainedNeighbors(m *StatusMap, x, y int) neighborSet {
	var s neighborSet
	for pos, o := range cyclicOffsets {
		if m.Get(x+o[0], y+o[1]) != Removed {
			s |= 1 << uint(pos)
		}
	}
	return s
}

// IsSimple reports whether removing (x,y) leaves the local topology
// unchanged. The retained neighbours form a graph whose vertices are linked
// when they are cyclically adjacent, or when they are two orthogonal
// neighbours meeting at a corner. A diagonal neighbour flanked by both
// orthogonal neighbours is already implied by them and is discounted.
// The point is simple iff vertices - edges == 1, i.e. the graph is a tree.
// Image-border pixels are always simple.
func IsSimple(m *StatusMap, x, y int) bool {
	if m.isBorder(x, y) {
		return true
	}
	return isSimpleSet(retainedNeighbors(m, x, y))
}

func isSimpleSet(s neighborSet) bool {
	vertices, edges := 0, 0
	for pos := 0; pos < numPositions; pos++ {
		if !s.has(pos) {
			continue
		}
		vertices++
		orthogonal := pos%2 == 0
		if s.has(pos+1) || (orthogonal && s.has(pos+2)) {
			edges++
		}
		if !orthogonal && s.has(pos-1) && s.has(pos+1) {
			vertices--
			edges--
		}
	}
	return vertices-edges == 1
}

// IsEndPoint reports whether (x,y) terminates a curve: it has a single
// retained neighbour, or exactly two that are cyclically adjacent.
// Image-border pixels are never end points.
func IsEndPoint(m *StatusMap, x, y int) bool {
	if m.isBorder(x, y) {
		return false
	}
	return isEndPointSet(retainedNeighbors(m, x, y))
}

func isEndPointSet(s neighborSet) bool {
	switch s.count() {
	case 0, 1:
		return true
	case 2:
		for pos := 0; pos < numPositions; pos++ {
			if s.has(pos) && s.has(pos+1) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
