package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// busyBlocker covers the window and swallows taps while a picker is open.
type busyBlocker struct {
	widget.BaseWidget
	content *fyne.Container
}

func newBusyBlocker(content *fyne.Container) *busyBlocker {
	b := &busyBlocker{content: content}
	b.ExtendBaseWidget(b)
	return b
}

func (b *busyBlocker) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(b.content)
}

func (b *busyBlocker) Tapped(_ *fyne.PointEvent)          {}
func (b *busyBlocker) TappedSecondary(_ *fyne.PointEvent) {}

// BusyOverlay covers the window while a provider call is outstanding.
// Its Cancel button stops the window waiting; it does not close a dialog
// the platform already shows. All methods run on the fyne goroutine.
type BusyOverlay struct {
	label    *widget.Label
	cancel   *widget.Button
	onCancel func()
	root     *fyne.Container
}

func NewBusyOverlay() *BusyOverlay {
	bo := &BusyOverlay{label: widget.NewLabel("Working...")}
	bo.label.Alignment = fyne.TextAlignCenter
	bo.label.Importance = widget.HighImportance
	bo.cancel = widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), bo.cancelTapped)

	bg := canvas.NewRectangle(color.NRGBA{A: 96})
	panel := container.NewCenter(container.NewPadded(container.NewVBox(
		widget.NewProgressBarInfinite(),
		bo.label,
		container.NewCenter(bo.cancel),
	)))
	bo.root = container.NewStack(newBusyBlocker(container.NewStack(bg, panel)))
	bo.root.Hide()
	return bo
}

func (bo *BusyOverlay) GetContainer() *fyne.Container { return bo.root }

// Show displays text over the window. A nil onCancel hides the Cancel
// button.
func (bo *BusyOverlay) Show(text string, onCancel func()) {
	if text != "" {
		bo.label.SetText(text)
	}
	bo.onCancel = onCancel
	if onCancel == nil {
		bo.cancel.Hide()
	} else {
		bo.cancel.Enable()
		bo.cancel.Show()
	}
	bo.root.Show()
}

func (bo *BusyOverlay) Hide() {
	bo.onCancel = nil
	bo.root.Hide()
}

func (bo *BusyOverlay) IsVisible() bool { return bo.root.Visible() }

func (bo *BusyOverlay) cancelTapped() {
	if bo.onCancel == nil {
		return
	}
	bo.label.SetText("Cancelling...")
	bo.cancel.Disable()
	bo.onCancel()
	bo.onCancel = nil
}
