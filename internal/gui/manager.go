package gui

import (
	"hjs-skeleton/internal/config"
	"hjs-skeleton/internal/logger"
	"hjs-skeleton/internal/pipeline"

	"fyne.io/fyne/v2"
)

type Manager struct {
	window     fyne.Window
	controller *Controller
	view       *View
	logger     logger.Logger
	isShutdown bool
}

func NewManager(window fyne.Window, coordinator pipeline.ProcessingCoordinator, log logger.Logger) *Manager {
	manager := &Manager{
		window: window,
		logger: log,
	}

	algMgr := coordinator.AlgorithmManager()
	manager.view = NewView(window, algMgr.GetAvailableAlgorithms(), algMgr.GetCurrentAlgorithm())
	manager.controller = NewController(coordinator, log)

	manager.view.SetController(manager.controller)
	manager.controller.SetView(manager.view)

	log.Info("GUIManager", "initialized with MVC pattern", map[string]interface{}{
		"window_title": window.Title(),
	})

	return manager
}

func (m *Manager) Controller() *Controller {
	return m.controller
}

func (m *Manager) GetWindow() fyne.Window {
	return m.window
}

func (m *Manager) Show() {
	m.view.Show()
	m.logger.Info("GUIManager", "GUI displayed", nil)
}

func (m *Manager) LoadPath(path string) {
	m.controller.LoadPath(path)
}

func (m *Manager) ApplyConfig(cfg *config.Config) {
	m.controller.ApplyConfig(cfg)
}

func (m *Manager) ShowError(title string, err error) {
	fyne.Do(func() {
		m.view.ShowError(title, err)
	})
}

func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}

	m.isShutdown = true
	m.logger.Info("GUIManager", "shutdown initiated", nil)

	if m.controller != nil {
		m.controller.Shutdown()
	}

	m.logger.Info("GUIManager", "shutdown completed", nil)
}
