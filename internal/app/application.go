package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"hjs-skeleton/internal/config"
	"hjs-skeleton/internal/gui"
	"hjs-skeleton/internal/gui/widgets"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/opencv/memory"
	"hjs-skeleton/internal/opencv/shape"
	"hjs-skeleton/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const (
	AppName    = "HJ Skeleton Viewer"
	AppID      = "io.hjs-skeleton.viewer"
	AppVersion = "1.0.0"
)

type shutdownHandler interface {
	Shutdown()
}

// Options are the command line settings of the viewer.
type Options struct {
	ConfigPath string
	InputPath  string
	// LogLevel overrides LOG_LEVEL and the configuration file when set.
	LogLevel string
}

type Application struct {
	fyneApp       fyne.App
	window        fyne.Window
	guiManager    *gui.Manager
	coordinator   *pipeline.Coordinator
	memoryManager *memory.Manager
	logger        logger.Logger
	options       Options
	shutdownables []shutdownHandler
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	shutdown      chan struct{}
}

func NewApplication(options Options) (*Application, error) {
	cfg := config.Default()
	if options.ConfigPath != "" {
		loaded, err := config.LoadFromFile(options.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	levelName := cfg.Logging.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		levelName = env
	}
	if options.LogLevel != "" {
		levelName = options.LogLevel
	}
	logLevel, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	log := logger.NewConsoleLogger(logLevel)

	app.SetMetadata(fyne.AppMetadata{
		ID:      AppID,
		Name:    AppName,
		Version: AppVersion,
		Build:   1,
	})

	fyneApp := app.NewWithID(AppID)
	window := fyneApp.NewWindow(AppName)

	windowSize := calculateMinimumWindowSize()
	window.Resize(windowSize)
	window.SetFixedSize(false)
	window.SetPadded(false)
	window.CenterOnScreen()
	window.SetMaster()

	ctx, cancel := context.WithCancel(context.Background())

	log.Info("Application", "starting application", map[string]interface{}{
		"version":       AppVersion,
		"window_width":  windowSize.Width,
		"window_height": windowSize.Height,
		"log_level":     logLevel.String(),
		"config":        options.ConfigPath,
	})

	memoryManager := memory.NewDefaultManager(log)
	coordinator := pipeline.NewCoordinator(memoryManager, shape.NewBackend(memoryManager, log), log)
	guiManager := gui.NewManager(window, coordinator, log)
	guiManager.ApplyConfig(cfg)

	application := &Application{
		fyneApp:       fyneApp,
		window:        window,
		guiManager:    guiManager,
		coordinator:   coordinator,
		memoryManager: memoryManager,
		logger:        log,
		options:       options,
		ctx:           ctx,
		cancel:        cancel,
		shutdown:      make(chan struct{}),
		shutdownables: []shutdownHandler{
			memoryManager,
			coordinator,
			guiManager,
		},
	}

	if err := application.watchConfig(); err != nil {
		cancel()
		return nil, err
	}
	application.setupMenu()
	application.setupSignalHandling()
	log.Info("Application", "initialization complete", nil)
	return application, nil
}

// watchConfig re-applies the configuration file whenever it changes. A file
// that fails to parse is reported and the current settings are kept.
func (a *Application) watchConfig() error {
	if a.options.ConfigPath == "" {
		return nil
	}

	return config.Watch(a.ctx, a.options.ConfigPath, func(cfg *config.Config, err error) {
		if err != nil {
			a.logger.Warning("Application", "configuration reload failed", map[string]interface{}{
				"path":  a.options.ConfigPath,
				"error": err.Error(),
			})
			return
		}
		a.logger.Info("Application", "configuration reloaded", map[string]interface{}{
			"path": a.options.ConfigPath,
		})
		a.guiManager.ApplyConfig(cfg)
	})
}

func (a *Application) setupMenu() {
	aboutAction := func() {
		fyne.Do(func() {
			a.showAbout()
		})
	}

	fileMenu := fyne.NewMenu("File")
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", aboutAction),
	)

	a.window.SetMainMenu(fyne.NewMainMenu(fileMenu, helpMenu))
}

func (a *Application) showAbout() {
	metadata := a.fyneApp.Metadata()

	name := metadata.Name
	if name == "" {
		name = AppName
	}

	version := metadata.Version
	if version == "" {
		version = AppVersion
	}

	stats := a.memoryManager.Stats()
	aboutContent := container.NewVBox(
		widget.NewLabel(name),
		widget.NewLabel(fmt.Sprintf("Version: %s", version)),
		widget.NewLabel(""),
		widget.NewLabel("Hamilton-Jacobi flux skeletons of binary silhouettes."),
		widget.NewLabel(""),
		widget.NewLabel("Runtime Info:"),
		widget.NewLabel(fmt.Sprintf("Go: %s", runtime.Version())),
		widget.NewLabel(fmt.Sprintf("Platform: %s/%s", runtime.GOOS, runtime.GOARCH)),
		widget.NewLabel(fmt.Sprintf("Active Mats: %d (%d bytes)", stats.ActiveMats, stats.UsedBytes)),
	)

	dialog.ShowCustom("About", "Close", aboutContent, a.window)
}

func calculateMinimumWindowSize() fyne.Size {
	imageDisplayWidth := widgets.ImageAreaWidth * 2
	toolbarHeight := float32(50)
	parametersHeight := float32(150)

	minimumWidth := float32(imageDisplayWidth + 100)
	minimumHeight := float32(widgets.ImageAreaHeight + toolbarHeight + parametersHeight + 100)

	return fyne.Size{
		Width:  minimumWidth,
		Height: minimumHeight,
	}
}

func (a *Application) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("Application", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			a.initiateShutdown()
		case <-a.ctx.Done():
			return
		}
	}()
}

func (a *Application) Run() error {
	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "shutdown requested via window close", nil)
		a.initiateShutdown()
		a.window.Close()
	})

	fyne.Do(func() {
		a.guiManager.Show()
		if a.options.InputPath != "" {
			a.guiManager.LoadPath(a.options.InputPath)
		}
	})

	go func() {
		<-a.shutdown
		fyne.Do(func() {
			a.fyneApp.Quit()
		})
	}()

	a.fyneApp.Run()
	a.wg.Wait()
	return nil
}

func (a *Application) initiateShutdown() {
	select {
	case <-a.shutdown:
		return
	default:
		close(a.shutdown)
	}

	a.logger.Info("Application", "shutdown sequence initiated", map[string]interface{}{
		"components": len(a.shutdownables),
	})

	a.cancel()

	for i := len(a.shutdownables) - 1; i >= 0; i-- {
		component := a.shutdownables[i]

		done := make(chan struct{})
		go func() {
			defer close(done)
			component.Shutdown()
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			a.logger.Warning("Application", "component shutdown timeout", map[string]interface{}{
				"component_index": i,
			})
		}
	}

	a.logger.Info("Application", "shutdown sequence completed", nil)
}

func (a *Application) Shutdown(ctx context.Context) error {
	a.initiateShutdown()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
