package conversion

import (
	"fmt"

	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/raster"

	"gocv.io/x/gocv"
)

func validateColorConversion(src *safe.Mat, code gocv.ColorConversionCode) error {
	if err := safe.ValidateMatForOperation(src, "CvtColor"); err != nil {
		return err
	}

	channels := src.Channels()
	switch code {
	case gocv.ColorBGRToGray:
		if channels != 3 {
			return fmt.Errorf("BGR to Gray conversion requires 3 channels, got %d", channels)
		}
	case gocv.ColorBGRAToGray:
		if channels != 4 {
			return fmt.Errorf("BGRA to Gray conversion requires 4 channels, got %d", channels)
		}
	case gocv.ColorGrayToBGR:
		if channels != 1 {
			return fmt.Errorf("Gray to BGR conversion requires 1 channel, got %d", channels)
		}
	}
	return nil
}

func CvtColorSafe(src *safe.Mat, dst *safe.Mat, code gocv.ColorConversionCode) error {
	if err := validateColorConversion(src, code); err != nil {
		return fmt.Errorf("color conversion validation failed: %w", err)
	}

	if err := safe.ValidateMatForOperation(dst, "CvtColor destination"); err != nil {
		return fmt.Errorf("destination mat validation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	if err := gocv.CvtColor(srcMat, &dstMat, code); err != nil {
		return fmt.Errorf("cvtColor %v: %w", code, err)
	}
	return nil
}

// ConvertToGrayscale returns a CV_8UC1 copy of a 1, 3 or 4 channel Mat.
func ConvertToGrayscale(src *safe.Mat, tracker safe.MemoryTracker) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "ConvertToGrayscale"); err != nil {
		return nil, err
	}

	var code gocv.ColorConversionCode
	switch channels := src.Channels(); channels {
	case 1:
		return src.Clone()
	case 3:
		code = gocv.ColorBGRToGray
	case 4:
		code = gocv.ColorBGRAToGray
	default:
		return nil, fmt.Errorf("unsupported channel count for grayscale conversion: %d", channels)
	}

	dst, err := safe.NewMatWithTracker(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1, tracker, "gray")
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	if err := CvtColorSafe(src, dst, code); err != nil {
		dst.Close()
		return nil, fmt.Errorf("color conversion failed: %w", err)
	}
	return dst, nil
}

// Binarize maps every pixel above threshold to 255 and the rest to 0.
// The source must already be single-channel 8-bit.
func Binarize(src *safe.Mat, threshold float32, tracker safe.MemoryTracker) (*safe.Mat, error) {
	if err := safe.ValidateMask(src, "Binarize"); err != nil {
		return nil, err
	}

	dst, err := safe.NewMatWithTracker(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1, tracker, "binary")
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	// Threshold reports no error; it returns the threshold it applied.
	gocv.Threshold(srcMat, &dstMat, threshold, 255, gocv.ThresholdBinary)
	return dst, nil
}

// ToBinaryMask converts any decoded Mat into the single-channel 8-bit
// {0,255} mask the skeleton engine expects.
func ToBinaryMask(src *safe.Mat, threshold float32, tracker safe.MemoryTracker) (*safe.Mat, error) {
	gray, err := ConvertToGrayscale(src, tracker)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	return Binarize(gray, threshold, tracker)
}

// ToRasterMask binarizes src and copies it into a {0,1} raster mask.
func ToRasterMask(src *safe.Mat, threshold float32, tracker safe.MemoryTracker) (*raster.Mask, error) {
	binary, err := ToBinaryMask(src, threshold, tracker)
	if err != nil {
		return nil, fmt.Errorf("binarize input: %w", err)
	}
	defer binary.Close()

	return bridge.MatToMask(binary)
}
