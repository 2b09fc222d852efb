package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"
	"time"

	"hjs-skeleton/internal/algorithms"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/memory"
	"hjs-skeleton/internal/opencv/safe"
	"hjs-skeleton/internal/raster"
	"hjs-skeleton/internal/skeleton"
)

type ImageProcessor interface {
	ProcessImage(inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error)
	ProcessImageWithContext(ctx context.Context, inputData *ImageData, algorithm algorithms.Algorithm, params map[string]interface{}) (*ImageData, error)
}

type ImageLoader interface {
	LoadFromPath(path string) (*ImageData, error)
	LoadFromReader(reader io.Reader, name string) (*ImageData, error)
	LoadFromBytes(data []byte, format string) (*ImageData, error)
}

type ImageSaver interface {
	SaveToWriter(writer io.Writer, img image.Image, format string) error
	SaveToPath(path string, img image.Image, format string) error
}

type ProcessingCoordinator interface {
	AlgorithmManager() *algorithms.Manager
	LoadImage(path string) (*ImageData, error)
	LoadImageFromReader(reader io.Reader, name string) (*ImageData, error)
	ProcessImage(algorithmName string, params map[string]interface{}) (*ImageData, error)
	ProcessImageWithContext(ctx context.Context, algorithmName string, params map[string]interface{}) (*ImageData, error)
	LastResult() (*skeleton.Result, error)
	Overlay() (image.Image, error)
	SaveImage(path string, img image.Image) error
	SaveImageToWriter(writer io.Writer, img image.Image, format string) error
	GetOriginalImage() *ImageData
	GetProcessedImage() *ImageData
	Context() context.Context
	Cancel()
}

type ImageData struct {
	Image    image.Image
	Mat      *safe.Mat
	Width    int
	Height   int
	Channels int
	Format   string
	Path     string
	// Summary is set for skeleton runs only.
	Summary *Summary
}

type Coordinator struct {
	mu               sync.RWMutex
	originalImage    *ImageData
	processedImage   *ImageData
	memoryManager    *memory.Manager
	logger           logger.Logger
	algorithmManager *algorithms.Manager
	loader           ImageLoader
	processor        ImageProcessor
	saver            ImageSaver
	ctx              context.Context
	cancel           context.CancelFunc
}

var _ ProcessingCoordinator = (*Coordinator)(nil)

func NewCoordinator(memMgr *memory.Manager, geometry skeleton.Geometry, log logger.Logger) *Coordinator {
	algMgr := algorithms.NewManager(geometry, memMgr, log)
	ctx, cancel := context.WithCancel(context.Background())

	coord := &Coordinator{
		memoryManager:    memMgr,
		logger:           log,
		algorithmManager: algMgr,
		ctx:              ctx,
		cancel:           cancel,
	}

	coord.loader = &imageLoader{
		memoryManager: memMgr,
		logger:        log,
	}

	coord.processor = &imageProcessor{
		memoryManager:    memMgr,
		logger:           log,
		algorithmManager: algMgr,
	}

	coord.saver = &imageSaver{
		logger: log,
	}

	log.Info("PipelineCoordinator", "initialized", nil)
	return coord
}

func (c *Coordinator) AlgorithmManager() *algorithms.Manager {
	return c.algorithmManager
}

func (c *Coordinator) LoadImage(path string) (*ImageData, error) {
	return c.load(func() (*ImageData, error) { return c.loader.LoadFromPath(path) })
}

func (c *Coordinator) LoadImageFromReader(reader io.Reader, name string) (*ImageData, error) {
	return c.load(func() (*ImageData, error) { return c.loader.LoadFromReader(reader, name) })
}

func (c *Coordinator) load(read func() (*ImageData, error)) (*ImageData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()

	imageData, err := read()
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "load_image",
		})
		return nil, err
	}

	c.releaseImages()
	c.originalImage = imageData

	c.logger.Info("PipelineCoordinator", "image loaded", map[string]interface{}{
		"width":     imageData.Width,
		"height":    imageData.Height,
		"channels":  imageData.Channels,
		"format":    imageData.Format,
		"load_time": time.Since(start),
	})

	return imageData, nil
}

func (c *Coordinator) ProcessImage(algorithmName string, params map[string]interface{}) (*ImageData, error) {
	return c.ProcessImageWithContext(c.ctx, algorithmName, params)
}

func (c *Coordinator) ProcessImageWithContext(ctx context.Context, algorithmName string, params map[string]interface{}) (*ImageData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.originalImage == nil {
		return nil, fmt.Errorf("no image loaded")
	}

	algorithm, err := c.algorithmManager.GetAlgorithm(algorithmName)
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"algorithm": algorithmName,
		})
		return nil, fmt.Errorf("failed to get algorithm: %w", err)
	}

	start := time.Now()
	processedData, err := c.processor.ProcessImageWithContext(ctx, c.originalImage, algorithm, params)
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"algorithm": algorithmName,
		})
		return nil, err
	}

	if c.processedImage != nil {
		c.memoryManager.ReleaseMat(c.processedImage.Mat)
	}
	c.processedImage = processedData

	c.logger.Info("PipelineCoordinator", "image processed", map[string]interface{}{
		"algorithm":       algorithmName,
		"width":           processedData.Width,
		"height":          processedData.Height,
		"processing_time": time.Since(start),
	})

	return processedData, nil
}

// LastResult returns the full skeleton result of the last skeleton run.
func (c *Coordinator) LastResult() (*skeleton.Result, error) {
	algorithm, err := c.algorithmManager.GetAlgorithm(c.algorithmManager.GetCurrentAlgorithm())
	if err != nil {
		return nil, err
	}
	provider, ok := algorithm.(algorithms.ResultProvider)
	if !ok {
		return nil, fmt.Errorf("algorithm %s does not produce a skeleton", algorithm.GetName())
	}
	return provider.LastResult()
}

// Overlay draws the processed image in red over the dimmed original.
func (c *Coordinator) Overlay() (image.Image, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.originalImage == nil || c.processedImage == nil {
		return nil, fmt.Errorf("nothing to overlay")
	}
	return bridge.Overlay(c.originalImage.Image, c.processedImage.Image), nil
}

func (c *Coordinator) SaveImage(path string, img image.Image) error {
	start := time.Now()
	if err := c.saver.SaveToPath(path, img, ""); err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "save_image",
			"path":      path,
		})
		return err
	}

	c.logger.Info("PipelineCoordinator", "image saved", map[string]interface{}{
		"path":      path,
		"save_time": time.Since(start),
	})
	return nil
}

func (c *Coordinator) SaveImageToWriter(writer io.Writer, img image.Image, format string) error {
	start := time.Now()
	err := c.saver.SaveToWriter(writer, img, strings.ToLower(format))
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "save_image_with_format",
			"format":    format,
		})
		return err
	}

	c.logger.Info("PipelineCoordinator", "image saved with format", map[string]interface{}{
		"format":    format,
		"save_time": time.Since(start),
	})

	return nil
}

// SaveField writes field stretched to 8 bits.
func (c *Coordinator) SaveField(path string, field *raster.Field) error {
	if field == nil {
		return fmt.Errorf("no field to save")
	}
	return c.SaveImage(path, bridge.FieldImage(field))
}

func (c *Coordinator) GetOriginalImage() *ImageData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.originalImage
}

func (c *Coordinator) GetProcessedImage() *ImageData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processedImage
}

func (c *Coordinator) Context() context.Context {
	return c.ctx
}

func (c *Coordinator) Cancel() {
	c.cancel()
}

func (c *Coordinator) releaseImages() {
	if c.originalImage != nil {
		c.memoryManager.ReleaseMat(c.originalImage.Mat)
		c.originalImage = nil
	}
	if c.processedImage != nil {
		c.memoryManager.ReleaseMat(c.processedImage.Mat)
		c.processedImage = nil
	}
}

func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("PipelineCoordinator", "shutdown started", nil)

	c.cancel()
	c.releaseImages()

	c.logger.Info("PipelineCoordinator", "shutdown completed", nil)
}
