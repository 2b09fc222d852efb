// Package raster holds the dense 2D buffers shared by every stage of the
// skeleton engine: float32 scalar fields, {0,1} masks and the data-parallel
// iteration helper used for per-pixel passes.
package raster

import (
	"errors"
	"fmt"
	"image"
	"math"
)

var (
	ErrSizeMismatch = errors.New("raster size mismatch")
	ErrInvalidSize  = errors.New("invalid raster size")
)

// Point is an integer pixel coordinate.
type Point = image.Point

// Field is a row-major float32 grid with its origin at the top-left corner.
type Field struct {
	Width  int
	Height int
	Data   []float32
}

func NewField(width, height int) (*Field, error) {
	if err := validateSize(width, height); err != nil {
		return nil, err
	}
	return &Field{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height),
	}, nil
}

// MustField is NewField for sizes already validated by the caller.
func MustField(width, height int) *Field {
	f, err := NewField(width, height)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Field) Index(x, y int) int {
	return y*f.Width + x
}

func (f *Field) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.Width && y < f.Height
}

func (f *Field) At(x, y int) float32 {
	return f.Data[y*f.Width+x]
}

func (f *Field) Set(x, y int, v float32) {
	f.Data[y*f.Width+x] = v
}

func (f *Field) Clone() *Field {
	data := make([]float32, len(f.Data))
	copy(data, f.Data)
	return &Field{Width: f.Width, Height: f.Height, Data: data}
}

// MinMax returns the smallest and largest values of the field.
func (f *Field) MinMax() (minVal, maxVal float32) {
	minVal = float32(math.Inf(1))
	maxVal = float32(math.Inf(-1))
	for _, v := range f.Data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

func (f *Field) SameSize(width, height int) bool {
	return f.Width == width && f.Height == height
}

// CheckSameSize returns ErrSizeMismatch when any field differs from f in size.
func (f *Field) CheckSameSize(others ...*Field) error {
	for _, o := range others {
		if o == nil {
			return fmt.Errorf("nil field: %w", ErrSizeMismatch)
		}
		if !o.SameSize(f.Width, f.Height) {
			return fmt.Errorf("%dx%d vs %dx%d: %w", f.Width, f.Height, o.Width, o.Height, ErrSizeMismatch)
		}
	}
	return nil
}

// IsBorder reports whether (x,y) lies on the outermost ring of a width x height grid.
func IsBorder(x, y, width, height int) bool {
	return x <= 0 || y <= 0 || x >= width-1 || y >= height-1
}

func validateSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%dx%d: %w", width, height, ErrInvalidSize)
	}
	if width > 32768 || height > 32768 {
		return fmt.Errorf("%dx%d exceeds maximum size: %w", width, height, ErrInvalidSize)
	}
	return nil
}
