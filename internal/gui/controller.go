package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"hjs-skeleton/internal/algorithms"
	"hjs-skeleton/internal/algorithms/hjs"
	"hjs-skeleton/internal/config"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/pipeline"

	"fyne.io/fyne/v2"
)

const (
	debounceDelay     = 250 * time.Millisecond
	processingTimeout = 60 * time.Second
)

type Controller struct {
	view             *View
	coordinator      pipeline.ProcessingCoordinator
	algorithmManager *algorithms.Manager
	logger           logger.Logger

	mu               sync.Mutex
	currentAlgorithm string
	live             bool
	debounce         *time.Timer
	processCancel    context.CancelFunc
	generation       uint64
}

func NewController(coord pipeline.ProcessingCoordinator, log logger.Logger) *Controller {
	algMgr := coord.AlgorithmManager()
	return &Controller{
		coordinator:      coord,
		algorithmManager: algMgr,
		logger:           log,
		currentAlgorithm: algMgr.GetCurrentAlgorithm(),
		live:             true,
	}
}

func (c *Controller) SetView(view *View) {
	c.view = view
	c.refreshParameterPanel()
}

func (c *Controller) refreshParameterPanel() {
	algorithm := c.getCurrentAlgorithm()
	params := c.algorithmManager.GetParameters(algorithm)

	fyne.Do(func() {
		c.view.UpdateParameterPanel(algorithm, params)
	})
}

func (c *Controller) LoadImage() {
	c.view.ShowFileDialog(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			c.handleError("File selection error", err)
			return
		}
		if reader == nil {
			return
		}

		c.updateStatus("Loading image...")

		go func() {
			defer reader.Close()
			c.finishLoad(c.coordinator.LoadImageFromReader(reader, reader.URI().Name()))
		}()
	})
}

// LoadPath loads an image from disk without a dialog.
func (c *Controller) LoadPath(path string) {
	c.updateStatus("Loading image...")
	go func() {
		c.finishLoad(c.coordinator.LoadImage(path))
	}()
}

func (c *Controller) finishLoad(imageData *pipeline.ImageData, err error) {
	if err != nil {
		c.handleError("Image load error", err)
		c.updateStatus("Ready")
		return
	}

	fyne.Do(func() {
		c.view.SetSilhouette(imageData.Image)
		c.view.SetStatus("Image loaded")
	})

	c.logger.Info("Controller", "image loaded", map[string]interface{}{
		"width":  imageData.Width,
		"height": imageData.Height,
		"format": imageData.Format,
	})

	c.scheduleProcessing()
}

func (c *Controller) SaveImage() {
	processedImg := c.coordinator.GetProcessedImage()
	if processedImg == nil {
		c.handleError("Save error", fmt.Errorf("no processed image to save"))
		return
	}

	c.view.ShowSaveDialog(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			c.handleError("File save error", err)
			return
		}
		if writer == nil {
			return
		}

		c.updateStatus("Saving image...")

		go func() {
			defer writer.Close()

			format := pipeline.FormatFromPath(writer.URI().Path())
			if err := c.coordinator.SaveImageToWriter(writer, processedImg.Image, format); err != nil {
				c.handleError("Image save error", err)
				c.updateStatus("Ready")
				return
			}
			c.updateStatus("Image saved")
			c.logger.Info("Controller", "image saved", map[string]interface{}{
				"path":   writer.URI().Path(),
				"format": format,
			})
		}()
	})
}

func (c *Controller) ChangeAlgorithm(algorithm string) {
	if err := c.algorithmManager.SetCurrentAlgorithm(algorithm); err != nil {
		c.handleError("Algorithm change error", err)
		return
	}

	c.mu.Lock()
	c.currentAlgorithm = algorithm
	c.mu.Unlock()

	c.refreshParameterPanel()
	c.scheduleProcessing()
}

func (c *Controller) UpdateParameter(name string, value interface{}) {
	if err := c.algorithmManager.SetParameter(c.getCurrentAlgorithm(), name, value); err != nil {
		c.handleError("Parameter update error", err)
		return
	}
	c.scheduleProcessing()
}

// ApplyConfig replaces the skeleton parameters with those of cfg.
func (c *Controller) ApplyConfig(cfg *config.Config) {
	params := c.algorithmManager.GetParameters(hjs.Name)
	cfg.ApplyToParams(params)
	if err := c.algorithmManager.SetParameters(hjs.Name, params); err != nil {
		c.handleError("Configuration error", err)
		return
	}

	c.logger.Info("Controller", "configuration applied", map[string]interface{}{
		"gamma":     cfg.Skeleton.Gamma,
		"epsilon":   cfg.Skeleton.Epsilon,
		"pruning":   cfg.Pruning.Enabled,
		"diffusion": cfg.Diffusion.Enabled,
	})

	if c.getCurrentAlgorithm() == hjs.Name {
		c.refreshParameterPanel()
	}
	c.scheduleProcessing()
}

func (c *Controller) SetLive(live bool) {
	c.mu.Lock()
	c.live = live
	c.mu.Unlock()

	if live {
		c.scheduleProcessing()
	}
}

// scheduleProcessing restarts the debounce timer so a burst of slider
// events triggers a single recomputation.
func (c *Controller) scheduleProcessing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live {
		return
	}
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(debounceDelay, func() {
		if c.coordinator.GetOriginalImage() != nil {
			c.ProcessImage()
		}
	})
}

// ProcessImage cancels any computation in flight and starts a new one with
// the current parameters. Results of superseded runs are discarded.
func (c *Controller) ProcessImage() {
	if c.coordinator.GetOriginalImage() == nil {
		c.handleError("Processing error", fmt.Errorf("no image loaded"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), processingTimeout)

	c.mu.Lock()
	if c.processCancel != nil {
		c.processCancel()
	}
	c.processCancel = cancel
	c.generation++
	generation := c.generation
	algorithm := c.currentAlgorithm
	c.mu.Unlock()

	params := c.algorithmManager.GetParameters(algorithm)
	c.updateStatus("Processing...")

	go func() {
		defer cancel()

		start := time.Now()
		processed, err := c.coordinator.ProcessImageWithContext(ctx, algorithm, params)
		if !c.isCurrent(generation) {
			return
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.handleError("Processing error", err)
			c.updateStatus("Processing failed")
			return
		}

		preview := c.preview(algorithm, processed)
		elapsed := time.Since(start)

		fyne.Do(func() {
			c.view.SetPreviewImage(preview)
			c.view.ShowSummary(processed.Summary)
			c.view.SetStatus("Processing completed")
		})

		fields := map[string]interface{}{
			"algorithm":       algorithm,
			"processing_time": elapsed,
		}
		if s := processed.Summary; s != nil {
			fields["skeleton_pixels"] = s.Pixels
			fields["pruned_pixels"] = s.Pruned
		}
		c.logger.Info("Controller", "processing completed", fields)
	}()
}

// preview draws skeleton runs over the silhouette; other outputs are shown
// as produced.
func (c *Controller) preview(algorithm string, processed *pipeline.ImageData) image.Image {
	if algorithm != hjs.Name {
		return processed.Image
	}
	overlay, err := c.coordinator.Overlay()
	if err != nil {
		c.logger.Warning("Controller", "overlay unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return processed.Image
	}
	return overlay
}

func (c *Controller) isCurrent(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation == c.generation
}

func (c *Controller) CancelProcessing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.debounce != nil {
		c.debounce.Stop()
	}
	if c.processCancel != nil {
		c.processCancel()
	}
}

func (c *Controller) updateStatus(status string) {
	fyne.Do(func() {
		c.view.SetStatus(status)
	})
}

func (c *Controller) handleError(title string, err error) {
	c.logger.Error("Controller", err, map[string]interface{}{
		"title": title,
	})

	fyne.Do(func() {
		c.view.ShowError(title, err)
	})
}

func (c *Controller) getCurrentAlgorithm() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentAlgorithm
}

func (c *Controller) Shutdown() {
	c.CancelProcessing()
	c.logger.Info("Controller", "shutdown completed", nil)
}
