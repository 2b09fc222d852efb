package bridge

import (
	"fmt"
	"image"
	"math"

	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/raster"

	"gocv.io/x/gocv"
)

// byteAllocator is implemented by trackers that also enforce an allocation
// budget, such as memory.Manager.
type byteAllocator interface {
	FromBytes(rows, cols int, matType gocv.MatType, data []byte, tag string) (*safe.Mat, error)
}

func fromBytes(rows, cols int, matType gocv.MatType, data []byte, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	if allocator, ok := tracker.(byteAllocator); ok {
		return allocator.FromBytes(rows, cols, matType, data, tag)
	}
	return safe.NewMatFromBytesWithTracker(rows, cols, matType, data, tracker, tag)
}

// MaskToMat copies a mask into a CV_8UC1 Mat, mapping non-zero to 255.
func MaskToMat(m *raster.Mask, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	if m == nil {
		return nil, fmt.Errorf("mask is nil")
	}
	return fromBytes(m.Height, m.Width, gocv.MatTypeCV8UC1, m.Binary(255).Data, tracker, tag)
}

// MatToMask copies a CV_8UC1 Mat into a {0,1} mask.
func MatToMask(mat *safe.Mat) (*raster.Mask, error) {
	if err := safe.ValidateMask(mat, "MatToMask"); err != nil {
		return nil, err
	}
	data, err := mat.Bytes()
	if err != nil {
		return nil, err
	}
	m, err := raster.NewMask(mat.Cols(), mat.Rows())
	if err != nil {
		return nil, err
	}
	if len(data) != len(m.Data) {
		return nil, fmt.Errorf("Mat buffer holds %d bytes, expected %d", len(data), len(m.Data))
	}
	for i, v := range data {
		if v != 0 {
			m.Data[i] = 1
		}
	}
	return m, nil
}

// FieldToMat copies a field into a CV_32FC1 Mat.
func FieldToMat(f *raster.Field, tracker safe.MemoryTracker, tag string) (*safe.Mat, error) {
	if f == nil {
		return nil, fmt.Errorf("field is nil")
	}
	buf := make([]byte, len(f.Data)*4)
	for i, v := range f.Data {
		bits := math.Float32bits(v)
		buf[4*i] = byte(bits)
		buf[4*i+1] = byte(bits >> 8)
		buf[4*i+2] = byte(bits >> 16)
		buf[4*i+3] = byte(bits >> 24)
	}
	return fromBytes(f.Height, f.Width, gocv.MatTypeCV32FC1, buf, tracker, tag)
}

// MatToField copies a CV_32FC1 Mat into a field.
func MatToField(mat *safe.Mat) (*raster.Field, error) {
	if err := safe.ValidateField(mat, "MatToField"); err != nil {
		return nil, err
	}
	data, err := mat.Float32Data()
	if err != nil {
		return nil, err
	}
	f, err := raster.NewField(mat.Cols(), mat.Rows())
	if err != nil {
		return nil, err
	}
	if len(data) != len(f.Data) {
		return nil, fmt.Errorf("Mat holds %d floats, expected %d", len(data), len(f.Data))
	}
	copy(f.Data, data)
	return f, nil
}

// MaskImage renders a mask as black and white.
func MaskImage(m *raster.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(img.Pix, m.Binary(255).Data)
	return img
}

// FieldImage stretches a field linearly to the 0..255 range. A constant
// field renders black.
func FieldImage(f *raster.Field) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	lo, hi := f.MinMax()
	span := hi - lo
	if span == 0 {
		return img
	}
	for i, v := range f.Data {
		img.Pix[i] = uint8(math.Round(float64((v - lo) / span * 255)))
	}
	return img
}
