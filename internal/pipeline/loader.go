package pipeline

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/memory"
	"hjs-skeleton/internal/opencv/safe"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type imageLoader struct {
	memoryManager *memory.Manager
	logger        logger.Logger
}

func (l *imageLoader) LoadFromPath(path string) (*ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	imageData, err := l.LoadFromReader(file, path)
	if err != nil {
		return nil, err
	}
	imageData.Path = path
	return imageData, nil
}

func (l *imageLoader) LoadFromReader(reader io.Reader, name string) (*ImageData, error) {
	extension := strings.ToLower(filepath.Ext(name))

	data, err := io.ReadAll(bufio.NewReader(reader))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return l.LoadFromBytes(data, extension)
}

func (l *imageLoader) LoadFromBytes(data []byte, format string) (*ImageData, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	_, standardLibFormat, _ := image.DecodeConfig(bytes.NewReader(data))

	safeMat, err := l.decodeMat(data, img)
	if err != nil {
		return nil, err
	}

	actualFormat := l.determineActualFormat(format, standardLibFormat)
	bounds := img.Bounds()

	imageData := &ImageData{
		Image:    img,
		Mat:      safeMat,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: safeMat.Channels(),
		Format:   actualFormat,
	}

	l.logger.Info("ImageLoader", "image loaded", map[string]interface{}{
		"width":    imageData.Width,
		"height":   imageData.Height,
		"channels": imageData.Channels,
		"format":   actualFormat,
	})

	return imageData, nil
}

// decodeMat prefers OpenCV's grayscale decoder and falls back to converting
// the Go image for formats OpenCV was built without, such as GIF.
func (l *imageLoader) decodeMat(data []byte, img image.Image) (*safe.Mat, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err == nil && !mat.Empty() && mat.Cols() == img.Bounds().Dx() && mat.Rows() == img.Bounds().Dy() {
		safeMat, err := l.memoryManager.Adopt(mat, "loaded_image")
		if err != nil {
			return nil, fmt.Errorf("failed to create safe Mat: %w", err)
		}
		return safeMat, nil
	}
	if err == nil {
		mat.Close()
	}

	l.logger.Debug("ImageLoader", "OpenCV could not decode image, converting decoded image", nil)
	safeMat, err := bridge.ImageToMat(img, l.memoryManager)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to Mat: %w", err)
	}
	return safeMat, nil
}

func (l *imageLoader) determineActualFormat(extension, stdLibFormat string) string {
	switch extension {
	case ".tiff", ".tif":
		return "tiff"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".bmp":
		return "bmp"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		if stdLibFormat != "" {
			return stdLibFormat
		}
		return "unknown"
	}
}
