package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"hjs-skeleton/internal/algorithms/hjs"
	"hjs-skeleton/internal/branches"
	"hjs-skeleton/internal/config"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/metrics"
	"hjs-skeleton/internal/opencv/bridge"
	"hjs-skeleton/internal/opencv/conversion"
	"hjs-skeleton/internal/opencv/memory"
	"hjs-skeleton/internal/opencv/shape"
	"hjs-skeleton/internal/pipeline"
	"hjs-skeleton/internal/raster"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

type options struct {
	input       string
	output      string
	configPath  string
	diffusion   bool
	gamma       float64
	epsilon     float64
	angle       float64
	branches    bool
	fluxOut     string
	distanceOut string
	overlay     bool
	reference   string
	tolerance   int
	baseline    bool
	logLevel    string
	memLimit    int64
	writeConfig string
}

func main() {
	var opts options

	flag.StringVar(&opts.input, "input", "", "binary silhouette image (png/jpg/bmp/tiff/webp/gif)")
	flag.StringVar(&opts.output, "output", "skeleton.png", "skeleton output path, format from extension")
	flag.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flag.BoolVar(&opts.diffusion, "diffusion", false, "smooth the distance field before extraction")
	flag.Float64Var(&opts.gamma, "gamma", 2.5, "divides the minimum flux; end points with flux at or below min(flux)/gamma are kept")
	flag.Float64Var(&opts.epsilon, "epsilon", 1.0, "reserved tuning value, validated as positive; does not change the result")
	flag.Float64Var(&opts.angle, "angle", 0, "arc angle threshold in degrees for pruning, 0 disables")
	flag.BoolVar(&opts.branches, "branches", false, "remove short branches that touch the boundary")
	flag.StringVar(&opts.fluxOut, "flux-out", "", "write the flux field to this path")
	flag.StringVar(&opts.distanceOut, "distance-out", "", "write the distance field to this path")
	flag.BoolVar(&opts.overlay, "overlay", false, "draw the skeleton over the input instead of saving it alone")
	flag.StringVar(&opts.reference, "reference", "", "reference skeleton image to score the result against")
	flag.IntVar(&opts.tolerance, "tolerance", 1, "pixel tolerance for -reference and -baseline")
	flag.BoolVar(&opts.baseline, "baseline", false, "compare with a morphological skeleton of the input")
	flag.StringVar(&opts.logLevel, "log-level", "", "debug|info|warning|error (default LOG_LEVEL or config)")
	flag.Int64Var(&opts.memLimit, "mem-limit", 0, "cap on OpenCV Mat memory in MiB, 0 keeps the default")
	flag.StringVar(&opts.writeConfig, "write-config", "", "write the effective configuration to this path and exit")
	flag.Parse()

	if opts.input == "" && opts.writeConfig == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -input shape.png [-output skeleton.png] [-config hjs.yaml] [-angle 30] [-diffusion]\n",
			filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(opts, setFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "hjs-skeleton: %v\n", err)
		os.Exit(1)
	}
}

// setFlags returns the names of the flags given on the command line, which
// take precedence over the configuration file.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

func loadConfig(opts options, set map[string]bool) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadFromFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if set["gamma"] {
		cfg.Skeleton.Gamma = opts.gamma
	}
	if set["epsilon"] {
		cfg.Skeleton.Epsilon = opts.epsilon
	}
	if set["angle"] {
		cfg.Pruning.ArcAngleThreshold = opts.angle
		cfg.Pruning.Enabled = opts.angle > 0
	}
	if set["diffusion"] {
		cfg.Diffusion.Enabled = opts.diffusion
	}
	if set["branches"] {
		cfg.Branches.Enabled = opts.branches
	}
	if set["flux-out"] {
		cfg.Output.FluxPath = opts.fluxOut
	}
	if set["distance-out"] {
		cfg.Output.DistancePath = opts.distanceOut
	}
	if set["overlay"] {
		cfg.Output.Overlay = opts.overlay
	}
	if set["log-level"] {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// logLevel prefers -log-level, then LOG_LEVEL, then the configuration.
func logLevel(cfg *config.Config, set map[string]bool) (zerolog.Level, error) {
	if !set["log-level"] && os.Getenv("LOG_LEVEL") != "" {
		return logger.LevelFromEnv(), nil
	}
	return logger.ParseLevel(cfg.Logging.Level)
}

func newLogger(cfg *config.Config, set map[string]bool) (logger.Logger, error) {
	level, err := logLevel(cfg, set)
	if err != nil {
		return nil, err
	}
	return logger.NewConsoleLogger(level), nil
}

func memoryOptions(opts options) ([]memory.Option, error) {
	if opts.memLimit < 0 {
		return nil, fmt.Errorf("mem-limit must be non-negative, got: %d", opts.memLimit)
	}
	if opts.memLimit == 0 {
		return nil, nil
	}
	return []memory.Option{memory.WithLimit(opts.memLimit << 20)}, nil
}

func run(opts options, set map[string]bool) error {
	cfg, err := loadConfig(opts, set)
	if err != nil {
		return err
	}

	if opts.writeConfig != "" {
		return cfg.SaveToFile(opts.writeConfig)
	}

	log, err := newLogger(cfg, set)
	if err != nil {
		return err
	}

	memOpts, err := memoryOptions(opts)
	if err != nil {
		return err
	}
	mem := memory.NewManager(log, 0, memOpts...)
	defer mem.Shutdown()

	coordinator := pipeline.NewCoordinator(mem, shape.NewBackend(mem, log), log)
	defer coordinator.Shutdown()

	algorithmManager := coordinator.AlgorithmManager()
	if err := algorithmManager.SetParameters(hjs.Name, cfg.Settings().ToParameters()); err != nil {
		return err
	}

	if _, err := coordinator.LoadImage(opts.input); err != nil {
		return err
	}

	processed, err := coordinator.ProcessImage(hjs.Name, algorithmManager.GetParameters(hjs.Name))
	if err != nil {
		return err
	}

	result, err := coordinator.LastResult()
	if err != nil {
		return err
	}

	output := processed.Image
	if cfg.Output.Overlay {
		if output, err = coordinator.Overlay(); err != nil {
			return err
		}
	}
	if err := saveImage(coordinator, opts.output, cfg.Output.Format, output); err != nil {
		return err
	}

	if cfg.Output.FluxPath != "" {
		if err := coordinator.SaveField(cfg.Output.FluxPath, result.Flux); err != nil {
			return err
		}
	}
	if cfg.Output.DistancePath != "" {
		if err := coordinator.SaveField(cfg.Output.DistancePath, result.Distance); err != nil {
			return err
		}
	}

	fields := map[string]interface{}{
		"skeleton_pixels": result.Skeleton.Count(),
		"unpruned_pixels": result.Unpruned.Count(),
		"circles":         len(result.Circles),
		"flux_threshold":  result.FluxThreshold,
		"diffused":        result.Diffused,
		"elapsed":         result.Elapsed,
		"output":          opts.output,
	}
	if err := classify(cfg.Branches, mem, result.Skeleton, fields); err != nil {
		return err
	}
	log.Info("Skeleton", "skeleton computed", fields)

	return compare(opts, cfg, mem, result.Skeleton, log)
}

func saveImage(coordinator *pipeline.Coordinator, path, format string, img image.Image) error {
	if format == "" {
		format = pipeline.FormatFromPath(path)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := coordinator.SaveImageToWriter(file, img, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func classify(options branches.Options, mem *memory.Manager, skeleton *raster.Mask, fields map[string]interface{}) error {
	analyzer, err := branches.NewAnalyzer(options, mem)
	if err != nil {
		return err
	}
	classification, err := analyzer.Classify(skeleton)
	if err != nil {
		return err
	}
	fields["junctions"] = classification.Junctions.Count()
	fields["end_points"] = classification.EndPoints.Count()
	return nil
}

// compare scores the skeleton against a reference image and, with
// -baseline, against the morphological skeleton of the input.
func compare(opts options, cfg *config.Config, mem *memory.Manager, skeleton *raster.Mask, log logger.Logger) error {
	if opts.reference == "" && !opts.baseline {
		return nil
	}

	comparator, err := metrics.NewComparator(opts.tolerance, mem)
	if err != nil {
		return err
	}

	if opts.reference != "" {
		reference, err := loadMask(opts.reference, float32(cfg.Input.BinaryThreshold), mem)
		if err != nil {
			return err
		}
		score, err := comparator.Compare(skeleton, reference)
		if err != nil {
			return err
		}
		logComparison(log, "reference", opts.reference, score)
	}

	if opts.baseline {
		input, err := loadMask(opts.input, float32(cfg.Input.BinaryThreshold), mem)
		if err != nil {
			return err
		}
		baseline, err := metrics.MorphologicalSkeleton(input, mem)
		if err != nil {
			return err
		}
		score, err := comparator.Compare(skeleton, baseline)
		if err != nil {
			return err
		}
		logComparison(log, "baseline", "morphological", score)
	}
	return nil
}

func loadMask(path string, threshold float32, mem *memory.Manager) (*raster.Mask, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	mat, err := bridge.ImageToMat(img, mem)
	if err != nil {
		return nil, err
	}
	defer mem.ReleaseMat(mat)
	return conversion.ToRasterMask(mat, threshold, mem)
}

func logComparison(log logger.Logger, kind, source string, score *metrics.Comparison) {
	log.Info("Metrics", kind+" comparison", map[string]interface{}{
		"source":           source,
		"similarity":       score.Similarity,
		"precision":        score.Precision,
		"recall":           score.Recall,
		"candidate_pixels": score.CandidatePixel,
		"reference_pixels": score.ReferencePixel,
	})
}
