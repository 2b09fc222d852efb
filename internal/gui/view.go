package gui

import (
	"fmt"
	"image"
	"strings"

	"hjs-skeleton/internal/gui/widgets"
	"hjs-skeleton/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// View lays out the silhouette and skeleton previews above the toolbar,
// the skeleton statistics and the parameter panel.
type View struct {
	window fyne.Window

	toolbar    *widgets.Toolbar
	display    *widgets.ImageDisplay
	parameters *widgets.ParameterPanel
	stats      *widget.Label
	content    *fyne.Container
}

func NewView(window fyne.Window, algorithms []string, current string) *View {
	v := &View{
		window:     window,
		toolbar:    widgets.NewToolbar(algorithms, current),
		display:    widgets.NewImageDisplay(),
		parameters: widgets.NewParameterPanel(),
		stats:      widget.NewLabel(""),
	}
	v.stats.Wrapping = fyne.TextWrapWord

	v.content = container.NewVBox(
		v.display.GetContainer(),
		v.toolbar.GetContainer(),
		v.stats,
		v.parameters.GetContainer(),
	)
	return v
}

func (v *View) SetController(controller *Controller) {
	if controller == nil {
		return
	}

	v.toolbar.SetLoadHandler(controller.LoadImage)
	v.toolbar.SetSaveHandler(controller.SaveImage)
	v.toolbar.SetProcessHandler(controller.ProcessImage)
	v.toolbar.SetAlgorithmChangeHandler(controller.ChangeAlgorithm)
	v.toolbar.SetLiveHandler(controller.SetLive)
	v.parameters.SetParameterChangeHandler(controller.UpdateParameter)
}

// SetSilhouette shows the loaded input and clears the previous skeleton.
func (v *View) SetSilhouette(img image.Image) {
	v.display.SetOriginalImage(img)
	v.display.SetPreviewImage(nil)
	v.ShowSummary(nil)
}

func (v *View) SetPreviewImage(img image.Image) {
	v.display.SetPreviewImage(img)
}

// ShowSummary updates the toolbar metrics and the statistics line. A nil
// summary clears both.
func (v *View) ShowSummary(summary *pipeline.Summary) {
	if summary == nil {
		v.toolbar.SetMetrics(-1, 0, 0)
		v.stats.SetText("")
		return
	}
	v.toolbar.SetMetrics(summary.Pixels, summary.Circles, summary.Elapsed)
	v.stats.SetText(SummaryText(summary))
}

// SummaryText describes what thinning and pruning did in one line.
func SummaryText(s *pipeline.Summary) string {
	if s == nil {
		return ""
	}
	parts := []string{
		fmt.Sprintf("Thinned %d px", s.Removed),
		fmt.Sprintf("kept %d end points", s.EndPoints),
		fmt.Sprintf("flux threshold %.3f", s.FluxThreshold),
	}
	if s.Pruned > 0 {
		parts = append(parts, fmt.Sprintf("pruned %d of %d px", s.Pruned, s.Unpruned))
	} else {
		parts = append(parts, "nothing pruned")
	}
	if s.Diffused {
		parts = append(parts, "diffused")
	}
	return strings.Join(parts, " | ")
}

func (v *View) UpdateParameterPanel(algorithm string, params map[string]interface{}) {
	v.parameters.UpdateParameters(algorithm, params)
}

func (v *View) SetStatus(status string) {
	v.toolbar.SetStatus(status)
}

func (v *View) ShowError(title string, err error) {
	dialog.ShowError(fmt.Errorf("%s: %w", title, err), v.window)
}

func (v *View) ShowFileDialog(callback func(fyne.URIReadCloser, error)) {
	dialog.ShowFileOpen(callback, v.window)
}

func (v *View) ShowSaveDialog(callback func(fyne.URIWriteCloser, error)) {
	dialog.ShowFileSave(callback, v.window)
}

func (v *View) Show() {
	v.window.SetContent(v.content)
	v.window.Show()
}
