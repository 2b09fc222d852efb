package thinning

import "hjs-skeleton/internal/raster"

// Status is the per-pixel state of the thinning state machine.
type Status uint8

const (
	Searching Status = iota
	Removed
	SkeletonCandidate
)

func (s Status) String() string {
	switch s {
	case Searching:
		return "searching"
	case Removed:
		return "removed"
	case SkeletonCandidate:
		return "skeleton_candidate"
	default:
		return "unknown"
	}
}

// StatusMap is a dense width x height grid of Status values.
type StatusMap struct {
	width  int
	height int
	data   []Status
}

func NewStatusMap(width, height int) *StatusMap {
	return &StatusMap{
		width:  width,
		height: height,
		data:   make([]Status, width*height),
	}
}

// StatusMapFromMask marks every foreground pixel of interior as
// SkeletonCandidate and every other pixel as Removed.
func StatusMapFromMask(interior *raster.Mask) *StatusMap {
	m := NewStatusMap(interior.Width, interior.Height)
	for i, v := range interior.Data {
		if v != 0 {
			m.data[i] = SkeletonCandidate
		} else {
			m.data[i] = Removed
		}
	}
	return m
}

func (m *StatusMap) Width() int  { return m.width }
func (m *StatusMap) Height() int { return m.height }

func (m *StatusMap) Get(x, y int) Status {
	return m.data[y*m.width+x]
}

func (m *StatusMap) Set(x, y int, s Status) {
	m.data[y*m.width+x] = s
}

func (m *StatusMap) isBorder(x, y int) bool {
	return raster.IsBorder(x, y, m.width, m.height)
}

// Candidates returns a {0,1} mask of the pixels currently in SkeletonCandidate,
// excluding the image border.
func (m *StatusMap) Candidates() *raster.Mask {
	out := raster.MustMask(m.width, m.height)
	for y := 1; y < m.height-1; y++ {
		for x := 1; x < m.width-1; x++ {
			if m.data[y*m.width+x] == SkeletonCandidate {
				out.Data[y*m.width+x] = 1
			}
		}
	}
	return out
}
