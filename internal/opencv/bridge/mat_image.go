package bridge

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"hjs-skeleton/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MatToImage converts an 8-bit Mat with 1, 3 (BGR) or 4 (BGRA) channels.
func MatToImage(mat *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(mat, "MatToImage"); err != nil {
		return nil, err
	}

	rows, cols, channels := mat.Rows(), mat.Cols(), mat.Channels()
	data, err := mat.Bytes()
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols*channels {
		return nil, fmt.Errorf("Mat buffer holds %d bytes, expected %d", len(data), rows*cols*channels)
	}

	switch channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, cols, rows))
		copy(img.Pix, data)
		return img, nil
	case 3, 4:
		img := image.NewRGBA(image.Rect(0, 0, cols, rows))
		for i, j := 0, 0; i < len(data); i, j = i+channels, j+4 {
			img.Pix[j] = data[i+2]
			img.Pix[j+1] = data[i+1]
			img.Pix[j+2] = data[i]
			img.Pix[j+3] = 255
			if channels == 4 {
				img.Pix[j+3] = data[i+3]
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported number of channels: %d", channels)
	}
}

// ImageToMat converts a decoded image to a CV_8UC1 Mat for gray images and
// a BGR CV_8UC3 Mat for everything else.
func ImageToMat(img image.Image, tracker safe.MemoryTracker) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		buf := make([]byte, 0, width*height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := gray.Pix[gray.PixOffset(bounds.Min.X, y):]
			buf = append(buf, row[:width]...)
		}
		return safe.NewMatFromBytesWithTracker(height, width, gocv.MatTypeCV8UC1, buf, tracker, "decoded_gray")
	}

	rgba := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	buf := make([]byte, width*height*3)
	for i, j := 0, 0; i < len(rgba.Pix); i, j = i+4, j+3 {
		buf[j] = rgba.Pix[i+2]
		buf[j+1] = rgba.Pix[i+1]
		buf[j+2] = rgba.Pix[i]
	}
	return safe.NewMatFromBytesWithTracker(height, width, gocv.MatTypeCV8UC3, buf, tracker, "decoded_bgr")
}

// Overlay paints the mask in gray and the skeleton in red.
func Overlay(mask, skeleton image.Image) *image.RGBA {
	bounds := mask.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			g := color.GrayModel.Convert(mask.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			c := color.RGBA{R: g.Y / 2, G: g.Y / 2, B: g.Y / 2, A: 255}
			if skeleton != nil {
				s := color.GrayModel.Convert(skeleton.At(skeleton.Bounds().Min.X+x, skeleton.Bounds().Min.Y+y)).(color.Gray)
				if s.Y > 0 {
					c = color.RGBA{R: 255, A: 255}
				}
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out
}
