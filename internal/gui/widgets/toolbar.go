package widgets

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type Toolbar struct {
	container       *fyne.Container
	loadButton      *widget.Button
	saveButton      *widget.Button
	processButton   *widget.Button
	algorithmSelect *widget.Select
	liveCheck       *widget.Check
	statusLabel     *widget.Label
	metricsLabel    *widget.Label

	loadHandler      func()
	saveHandler      func()
	processHandler   func()
	algorithmHandler func(string)
	liveHandler      func(bool)
}

func NewToolbar(algorithms []string, current string) *Toolbar {
	toolbar := &Toolbar{}
	toolbar.createComponents(algorithms, current)
	toolbar.buildLayout()
	return toolbar
}

func (t *Toolbar) createComponents(algorithms []string, current string) {
	t.loadButton = widget.NewButton("Load", t.onLoadClicked)
	t.loadButton.Importance = widget.HighImportance

	t.saveButton = widget.NewButton("Save", t.onSaveClicked)
	t.saveButton.Importance = widget.HighImportance

	t.processButton = widget.NewButton("Process", t.onProcessClicked)
	t.processButton.Importance = widget.HighImportance

	t.algorithmSelect = widget.NewSelect(algorithms, t.onAlgorithmChanged)
	t.algorithmSelect.Selected = current

	t.liveCheck = widget.NewCheck("Live", t.onLiveChanged)
	t.liveCheck.Checked = true

	t.statusLabel = widget.NewLabel("Ready")
	t.metricsLabel = widget.NewLabel("Skeleton: --")
}

func (t *Toolbar) buildLayout() {
	background := canvas.NewRectangle(color.RGBA{R: 250, G: 249, B: 245, A: 255})
	border := canvas.NewRectangle(color.Transparent)
	border.StrokeWidth = 1.0
	border.StrokeColor = color.RGBA{R: 231, G: 231, B: 231, A: 255}

	leftSection := container.NewHBox(t.loadButton, t.saveButton)
	centerSection := container.NewHBox(t.algorithmSelect, t.processButton, t.liveCheck)
	statusSection := container.NewHBox(t.statusLabel)
	rightSection := container.NewHBox(t.metricsLabel)

	content := container.NewBorder(
		nil, nil,
		leftSection,
		rightSection,
		container.NewHBox(centerSection, widget.NewSeparator(), statusSection),
	)

	t.container = container.NewStack(
		border,
		container.NewPadded(
			container.NewStack(background, container.NewPadded(content)),
		),
	)
}

func (t *Toolbar) onLoadClicked() {
	if t.loadHandler != nil {
		t.loadHandler()
	}
}

func (t *Toolbar) onSaveClicked() {
	if t.saveHandler != nil {
		t.saveHandler()
	}
}

func (t *Toolbar) onProcessClicked() {
	if t.processHandler != nil {
		t.processHandler()
	}
}

func (t *Toolbar) onAlgorithmChanged(algorithm string) {
	if t.algorithmHandler != nil {
		t.algorithmHandler(algorithm)
	}
}

func (t *Toolbar) onLiveChanged(live bool) {
	if t.liveHandler != nil {
		t.liveHandler(live)
	}
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

func (t *Toolbar) SetLoadHandler(handler func()) {
	t.loadHandler = handler
}

func (t *Toolbar) SetSaveHandler(handler func()) {
	t.saveHandler = handler
}

func (t *Toolbar) SetProcessHandler(handler func()) {
	t.processHandler = handler
}

func (t *Toolbar) SetAlgorithmChangeHandler(handler func(string)) {
	t.algorithmHandler = handler
}

func (t *Toolbar) SetLiveHandler(handler func(bool)) {
	t.liveHandler = handler
}

func (t *Toolbar) SetStatus(status string) {
	t.statusLabel.SetText(status)
}

// SetMetrics shows the skeleton size, the number of inscribed circles and
// the computation time. A negative pixel count clears the label.
func (t *Toolbar) SetMetrics(pixels, circles int, elapsed time.Duration) {
	if pixels < 0 {
		t.metricsLabel.SetText("Skeleton: --")
		return
	}
	t.metricsLabel.SetText(fmt.Sprintf("Skeleton: %d px | Circles: %d | %d ms", pixels, circles, elapsed.Milliseconds()))
}
