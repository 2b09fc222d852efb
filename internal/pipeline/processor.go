package pipeline

import (
	"context"
	"fmt"
	"time"

	"hjs-skeleton/internal/algorithms"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/memory"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/skeleton"
)

// Summary condenses a skeleton run for display and logging.
type Summary struct {
	Pixels        int
	Unpruned      int
	Pruned        int
	Circles       int
	EndPoints     int
	Removed       int
	FluxThreshold float32
	Diffused      bool
	Elapsed       time.Duration
}

// Summarize returns nil for a nil result.
func Summarize(result *skeleton.Result) *Summary {
	if result == nil || result.Skeleton == nil || result.Unpruned == nil {
		return nil
	}
	pixels, unpruned := result.Skeleton.Count(), result.Unpruned.Count()
	return &Summary{
		Pixels:        pixels,
		Unpruned:      unpruned,
		Pruned:        unpruned - pixels,
		Circles:       len(result.Circles),
		EndPoints:     result.Thinning.EndPoints,
		Removed:       result.Thinning.Removed,
		FluxThreshold: result.FluxThreshold,
		Diffused:      result.Diffused,
		Elapsed:       result.Elapsed,
	}
}

func (s *Summary) fields() map[string]interface{} {
	return map[string]interface{}{
		"skeleton_pixels": s.Pixels,
		"pruned_pixels":   s.Pruned,
		"circles":         s.Circles,
		"end_points":      s.EndPoints,
		"thinned":         s.Removed,
		"flux_threshold":  s.FluxThreshold,
		"diffused":        s.Diffused,
	}
}

type imageProcessor struct {
	memoryManager    *memory.Manager
	logger           logger.Logger
	algorithmManager *algorithms.Manager
}

func (p *imageProcessor) ProcessImage(inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error) {
	return p.ProcessImageWithContext(context.Background(), inputData, algorithm, params)
}

// ProcessImageWithContext runs algorithm on the input Mat and renders its
// output. Skeleton algorithms also attach a Summary of their last result.
func (p *imageProcessor) ProcessImageWithContext(ctx context.Context, inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error) {
	if err := safe.ValidateMatForOperation(inputData.Mat, "ProcessImage"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resultMat, err := p.run(ctx, inputData.Mat, algorithm, params)
	if err != nil {
		return nil, err
	}

	processed, err := p.render(ctx, inputData, resultMat)
	if err != nil {
		p.memoryManager.ReleaseMat(resultMat)
		return nil, err
	}

	fields := map[string]interface{}{
		"algorithm": algorithm.GetName(),
		"size":      fmt.Sprintf("%dx%d", processed.Width, processed.Height),
	}
	if provider, ok := algorithm.(algorithms.ResultProvider); ok {
		if result, err := provider.LastResult(); err == nil {
			processed.Summary = Summarize(result)
		}
	}
	if processed.Summary != nil {
		for k, v := range processed.Summary.fields() {
			fields[k] = v
		}
	}
	p.logger.Info("ImageProcessor", "processing completed", fields)

	return processed, nil
}

func (p *imageProcessor) run(ctx context.Context, input *safe.Mat, algorithm algorithms.Algorithm, params map[string]interface{}) (*safe.Mat, error) {
	var (
		out *safe.Mat
		err error
	)
	if contextual, ok := algorithm.(algorithms.ContextualAlgorithm); ok {
		out, err = contextual.ProcessWithContext(ctx, input, params)
	} else {
		out, err = algorithm.Process(input, params)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", algorithm.GetName(), err)
	}
	if out == nil {
		return nil, fmt.Errorf("%s returned no output", algorithm.GetName())
	}
	return out, nil
}

// render converts the algorithm output into an ImageData that owns out.
func (p *imageProcessor) render(ctx context.Context, input *ImageData, out *safe.Mat) (*ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := bridge.MatToImage(out)
	if err != nil {
		return nil, fmt.Errorf("render output: %w", err)
	}
	if img == nil {
		return nil, fmt.Errorf("render output: no image")
	}

	bounds := img.Bounds()
	return &ImageData{
		Image:    img,
		Mat:      out,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: out.Channels(),
		Format:   input.Format,
		Path:     input.Path,
	}, nil
}
