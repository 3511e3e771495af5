package ui

import (
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	apperrors "storagekit/internal/errors"
)

// ShowMessageDialog displays a simple OK dialog with a title and message.
// It returns immediately after showing.
func ShowMessageDialog(parent fyne.Window, title, message string) {
	d := dialog.NewInformation(title, message, parent)
	d.Show()
}

// ShowErrorDialog reports err with a title matching its kind.
func ShowErrorDialog(parent fyne.Window, err error) {
	ShowMessageDialog(parent, errorTitle(err), err.Error())
}

func errorTitle(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return "Error"
	}
	switch appErr.Type {
	case apperrors.ErrorTypeUnsupported:
		return "Not supported"
	case apperrors.ErrorTypeUnreachable:
		return "Item unavailable"
	case apperrors.ErrorTypeTransport:
		return "Connection failed"
	case apperrors.ErrorTypePlatform:
		return "Picker failed"
	case apperrors.ErrorTypeConfig:
		return "Configuration error"
	}
	return "Error"
}
