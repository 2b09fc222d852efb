package widgets

import (
	"strconv"

	"hjs-skeleton/internal/algorithms/fluxmap"
	"hjs-skeleton/internal/algorithms/hjs"
	"hjs-skeleton/internal/algorithms/param"
	"hjs-skeleton/internal/algorithms/smoothing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type ParameterPanel struct {
	container              *fyne.Container
	parametersContent      *fyne.Container
	parameterChangeHandler func(string, interface{})

	// Skeleton widgets
	gammaSlider        *widget.Slider
	gammaLabel         *widget.Label
	epsilonSlider      *widget.Slider
	epsilonLabel       *widget.Label
	angleSlider        *widget.Slider
	angleLabel         *widget.Label
	diffusionCheck     *widget.Check
	branchRemovalCheck *widget.Check
	branchLengthSlider *widget.Slider
	branchLengthLabel  *widget.Label

	// Flux field widgets
	fieldSelect *widget.Select

	// Diffusion widgets
	iterationsSlider    *widget.Slider
	iterationsLabel     *widget.Label
	timeStepSlider      *widget.Slider
	timeStepLabel       *widget.Label
	tangentWeightSlider *widget.Slider
	tangentWeightLabel  *widget.Label

	currentAlgorithm string
	// updating suppresses change events while values are pushed from the model.
	updating bool
}

func NewParameterPanel() *ParameterPanel {
	panel := &ParameterPanel{}
	panel.setupPanel()
	panel.createWidgets()
	return panel
}

func (pp *ParameterPanel) setupPanel() {
	pp.parametersContent = container.NewVBox(
		widget.NewLabel("Parameters:"),
	)
	pp.container = container.NewVBox(pp.parametersContent)
}

func (pp *ParameterPanel) createWidgets() {
	pp.gammaSlider = widget.NewSlider(0.1, 5.0)
	pp.gammaSlider.Step = 0.1
	pp.gammaLabel = widget.NewLabel("Gamma: 2.5")

	pp.epsilonSlider = widget.NewSlider(0.1, 5.0)
	pp.epsilonSlider.Step = 0.1
	pp.epsilonLabel = widget.NewLabel("Epsilon: 1.0")

	pp.angleSlider = widget.NewSlider(0, 180)
	pp.angleSlider.Step = 1
	pp.angleLabel = widget.NewLabel("Arc Angle: off")

	pp.diffusionCheck = widget.NewCheck("Anisotropic Diffusion", nil)
	pp.branchRemovalCheck = widget.NewCheck("Remove Boundary Branches", nil)

	pp.branchLengthSlider = widget.NewSlider(1, 200)
	pp.branchLengthSlider.Step = 1
	pp.branchLengthLabel = widget.NewLabel("Min Branch Length: 50")

	pp.fieldSelect = widget.NewSelect([]string{fluxmap.FieldFlux, fluxmap.FieldDistance}, nil)

	pp.iterationsSlider = widget.NewSlider(0, 500)
	pp.iterationsSlider.Step = 10
	pp.iterationsLabel = widget.NewLabel("Iterations: 100")

	pp.timeStepSlider = widget.NewSlider(0.01, 0.25)
	pp.timeStepSlider.Step = 0.01
	pp.timeStepLabel = widget.NewLabel("Time Step: 0.05")

	pp.tangentWeightSlider = widget.NewSlider(0, 2)
	pp.tangentWeightSlider.Step = 0.05
	pp.tangentWeightLabel = widget.NewLabel("Tangent Weight: 0.50")
}

func (pp *ParameterPanel) GetContainer() *fyne.Container {
	return pp.container
}

func (pp *ParameterPanel) SetParameterChangeHandler(handler func(string, interface{})) {
	pp.parameterChangeHandler = handler
	pp.setupEventHandlers()
}

func (pp *ParameterPanel) emit(name string, value interface{}) {
	if pp.updating || pp.parameterChangeHandler == nil {
		return
	}
	pp.parameterChangeHandler(name, value)
}

func (pp *ParameterPanel) setupEventHandlers() {
	if pp.parameterChangeHandler == nil {
		return
	}

	pp.gammaSlider.OnChanged = func(value float64) {
		pp.gammaLabel.SetText("Gamma: " + strconv.FormatFloat(value, 'f', 1, 64))
		pp.emit("gamma", value)
	}

	pp.epsilonSlider.OnChanged = func(value float64) {
		pp.epsilonLabel.SetText("Epsilon: " + strconv.FormatFloat(value, 'f', 1, 64))
		pp.emit("epsilon", value)
	}

	pp.angleSlider.OnChanged = func(value float64) {
		pp.angleLabel.SetText(angleText(value))
		pp.emit("arc_angle_threshold", value)
	}

	pp.diffusionCheck.OnChanged = func(checked bool) {
		pp.emit("diffusion", checked)
	}

	pp.branchRemovalCheck.OnChanged = func(checked bool) {
		pp.emit("branch_removal", checked)
	}

	pp.branchLengthSlider.OnChanged = func(value float64) {
		intValue := int(value)
		pp.branchLengthLabel.SetText("Min Branch Length: " + strconv.Itoa(intValue))
		pp.emit("min_branch_length", intValue)
	}

	pp.fieldSelect.OnChanged = func(value string) {
		pp.emit("field", value)
	}

	pp.iterationsSlider.OnChanged = func(value float64) {
		intValue := int(value)
		pp.iterationsLabel.SetText("Iterations: " + strconv.Itoa(intValue))
		pp.emit("iterations", intValue)
	}

	pp.timeStepSlider.OnChanged = func(value float64) {
		pp.timeStepLabel.SetText("Time Step: " + strconv.FormatFloat(value, 'f', 2, 64))
		pp.emit("time_step", value)
	}

	pp.tangentWeightSlider.OnChanged = func(value float64) {
		pp.tangentWeightLabel.SetText("Tangent Weight: " + strconv.FormatFloat(value, 'f', 2, 64))
		pp.emit("tangent_weight", value)
	}
}

func angleText(value float64) string {
	if value <= 0 {
		return "Arc Angle: off"
	}
	return "Arc Angle: " + strconv.Itoa(int(value)) + "°"
}

// UpdateParameters rebuilds the panel when the algorithm changes and
// otherwise only pushes the new values into the existing widgets.
func (pp *ParameterPanel) UpdateParameters(algorithm string, params map[string]interface{}) {
	pp.updating = true
	defer func() { pp.updating = false }()

	if pp.currentAlgorithm == algorithm {
		pp.updateValues(params)
		return
	}

	pp.currentAlgorithm = algorithm
	pp.parametersContent.RemoveAll()
	pp.parametersContent.Add(widget.NewLabel("Parameters:"))

	pp.updateValues(params)
	switch algorithm {
	case hjs.Name:
		pp.parametersContent.Add(container.NewVBox(
			container.NewGridWithColumns(3,
				container.NewVBox(pp.gammaLabel, pp.gammaSlider),
				container.NewVBox(pp.epsilonLabel, pp.epsilonSlider),
				container.NewVBox(pp.angleLabel, pp.angleSlider),
			),
			container.NewHBox(pp.diffusionCheck, pp.branchRemovalCheck),
			container.NewVBox(pp.branchLengthLabel, pp.branchLengthSlider),
		))
	case fluxmap.Name:
		pp.parametersContent.Add(container.NewHBox(widget.NewLabel("Field"), pp.fieldSelect))
	case smoothing.Name:
		pp.parametersContent.Add(container.NewGridWithColumns(3,
			container.NewVBox(pp.iterationsLabel, pp.iterationsSlider),
			container.NewVBox(pp.timeStepLabel, pp.timeStepSlider),
			container.NewVBox(pp.tangentWeightLabel, pp.tangentWeightSlider),
		))
	}

	pp.container.Refresh()
}

func (pp *ParameterPanel) updateValues(params map[string]interface{}) {
	switch pp.currentAlgorithm {
	case hjs.Name:
		pp.updateSkeletonValues(params)
	case fluxmap.Name:
		if field := param.String(params, "field", fluxmap.FieldFlux); field != pp.fieldSelect.Selected {
			pp.fieldSelect.SetSelected(field)
		}
	case smoothing.Name:
		pp.updateDiffusionValues(params)
	}
}

func (pp *ParameterPanel) updateSkeletonValues(params map[string]interface{}) {
	if gamma := param.Float(params, "gamma", 2.5); gamma != pp.gammaSlider.Value {
		pp.gammaSlider.SetValue(gamma)
	}
	pp.gammaLabel.SetText("Gamma: " + strconv.FormatFloat(pp.gammaSlider.Value, 'f', 1, 64))

	if epsilon := param.Float(params, "epsilon", 1.0); epsilon != pp.epsilonSlider.Value {
		pp.epsilonSlider.SetValue(epsilon)
	}
	pp.epsilonLabel.SetText("Epsilon: " + strconv.FormatFloat(pp.epsilonSlider.Value, 'f', 1, 64))

	if angle := param.Float(params, "arc_angle_threshold", 0); angle != pp.angleSlider.Value {
		pp.angleSlider.SetValue(angle)
	}
	pp.angleLabel.SetText(angleText(pp.angleSlider.Value))

	if diffusion := param.Bool(params, "diffusion", false); diffusion != pp.diffusionCheck.Checked {
		pp.diffusionCheck.SetChecked(diffusion)
	}
	if removal := param.Bool(params, "branch_removal", false); removal != pp.branchRemovalCheck.Checked {
		pp.branchRemovalCheck.SetChecked(removal)
	}
	if length := param.Int(params, "min_branch_length", 50); float64(length) != pp.branchLengthSlider.Value {
		pp.branchLengthSlider.SetValue(float64(length))
	}
	pp.branchLengthLabel.SetText("Min Branch Length: " + strconv.Itoa(int(pp.branchLengthSlider.Value)))
}

func (pp *ParameterPanel) updateDiffusionValues(params map[string]interface{}) {
	if iterations := param.Int(params, "iterations", 100); float64(iterations) != pp.iterationsSlider.Value {
		pp.iterationsSlider.SetValue(float64(iterations))
	}
	pp.iterationsLabel.SetText("Iterations: " + strconv.Itoa(int(pp.iterationsSlider.Value)))

	if step := param.Float(params, "time_step", 0.05); step != pp.timeStepSlider.Value {
		pp.timeStepSlider.SetValue(step)
	}
	pp.timeStepLabel.SetText("Time Step: " + strconv.FormatFloat(pp.timeStepSlider.Value, 'f', 2, 64))

	if weight := param.Float(params, "tangent_weight", 0.5); weight != pp.tangentWeightSlider.Value {
		pp.tangentWeightSlider.SetValue(weight)
	}
	pp.tangentWeightLabel.SetText("Tangent Weight: " + strconv.FormatFloat(pp.tangentWeightSlider.Value, 'f', 2, 64))
}
