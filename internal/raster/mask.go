package raster

import "fmt"

// Mask is a row-major uint8 grid. Binary frames use {0,255}; skeleton
// masks produced by the engine use {0,1}. Any non-zero value is foreground.
type Mask struct {
	Width  int
	Height int
	Data   []uint8
}

func NewMask(width, height int) (*Mask, error) {
	if err := validateSize(width, height); err != nil {
		return nil, err
	}
	return &Mask{
		Width:  width,
		Height: height,
		Data:   make([]uint8, width*height),
	}, nil
}

// MustMask is NewMask for sizes already validated by the caller.
func MustMask(width, height int) *Mask {
	m, err := NewMask(width, height)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

func (m *Mask) At(x, y int) uint8 {
	return m.Data[y*m.Width+x]
}

func (m *Mask) Set(x, y int, v uint8) {
	m.Data[y*m.Width+x] = v
}

// On reports whether (x,y) is foreground.
func (m *Mask) On(x, y int) bool {
	return m.Data[y*m.Width+x] != 0
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

func (m *Mask) Clone() *Mask {
	data := make([]uint8, len(m.Data))
	copy(data, m.Data)
	return &Mask{Width: m.Width, Height: m.Height, Data: data}
}

// Points lists foreground pixels in row-major order.
func (m *Mask) Points() []Point {
	points := make([]Point, 0)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Data[y*m.Width+x] != 0 {
				points = append(points, Point{X: x, Y: y})
			}
		}
	}
	return points
}

// Binary returns a copy with every foreground pixel set to value.
func (m *Mask) Binary(value uint8) *Mask {
	out := m.Clone()
	for i, v := range out.Data {
		if v != 0 {
			out.Data[i] = value
		}
	}
	return out
}

// And returns the pixelwise logical AND of m and other as a {0,1} mask.
func (m *Mask) And(other *Mask) (*Mask, error) {
	if err := m.checkSameSize(other); err != nil {
		return nil, err
	}
	out := MustMask(m.Width, m.Height)
	for i := range m.Data {
		if m.Data[i] != 0 && other.Data[i] != 0 {
			out.Data[i] = 1
		}
	}
	return out, nil
}

// SubsetOf reports whether every foreground pixel of m is also foreground in other.
func (m *Mask) SubsetOf(other *Mask) bool {
	if m.checkSameSize(other) != nil {
		return false
	}
	for i := range m.Data {
		if m.Data[i] != 0 && other.Data[i] == 0 {
			return false
		}
	}
	return true
}

func (m *Mask) checkSameSize(other *Mask) error {
	if other == nil {
		return fmt.Errorf("nil mask: %w", ErrSizeMismatch)
	}
	if other.Width != m.Width || other.Height != m.Height {
		return fmt.Errorf("%dx%d vs %dx%d: %w", m.Width, m.Height, other.Width, other.Height, ErrSizeMismatch)
	}
	return nil
}
