package pipeline

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"hjs-skeleton/internal/logger"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

type imageSaver struct {
	logger logger.Logger
}

// FormatFromPath maps a file extension to a save format, defaulting to png.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".webp":
		return "webp"
	default:
		return "png"
	}
}

func (s *imageSaver) SaveToWriter(writer io.Writer, img image.Image, format string) error {
	if img == nil {
		return fmt.Errorf("no image data to save")
	}

	saveFormat := strings.ToLower(format)
	if saveFormat == "" {
		saveFormat = "png"
	}

	var err error
	switch saveFormat {
	case "webp":
		// lossless: skeleton lines are one pixel wide
		err = webp.Encode(writer, img, &webp.Options{Lossless: true})
	case "jpeg", "jpg":
		err = imaging.Encode(writer, img, imaging.JPEG, imaging.JPEGQuality(95))
	case "png":
		err = imaging.Encode(writer, img, imaging.PNG)
	case "gif":
		err = imaging.Encode(writer, img, imaging.GIF)
	case "bmp":
		err = imaging.Encode(writer, img, imaging.BMP)
	case "tiff", "tif":
		err = imaging.Encode(writer, img, imaging.TIFF)
	default:
		s.logger.Warning("ImageSaver", "format not supported, using PNG", map[string]interface{}{
			"requested_format": strings.ToUpper(saveFormat),
		})
		saveFormat = "png"
		err = imaging.Encode(writer, img, imaging.PNG)
	}

	if err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{
			"format": saveFormat,
		})
		return err
	}

	s.logger.Debug("ImageSaver", "image encoded", map[string]interface{}{
		"format": saveFormat,
	})

	return nil
}

// SaveToPath writes img to path. An empty format is derived from the extension.
func (s *imageSaver) SaveToPath(path string, img image.Image, format string) error {
	if format == "" {
		format = FormatFromPath(path)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := s.SaveToWriter(file, img, format); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
