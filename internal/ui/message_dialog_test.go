package ui

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "storagekit/internal/errors"
)

func TestErrorTitle(t *testing.T) {
	assert.Equal(t, "Error", errorTitle(errors.New("plain")))
	assert.Equal(t, "Not supported", errorTitle(apperrors.NewUnsupportedError("open", "no dialogs")))
	assert.Equal(t, "Item unavailable",
		errorTitle(fmt.Errorf("resolve: %w", apperrors.NewUnreachableError("resolve", "/x", "gone", nil))))
	assert.Equal(t, "Connection failed", errorTitle(apperrors.NewTransportError("dial", "refused", nil)))
	assert.Equal(t, "Picker failed", errorTitle(apperrors.NewPlatformError("open", "", 2, "portal error", nil)))
	assert.Equal(t, "Error", errorTitle(apperrors.NewFileSystemError("list", "/x", "denied", nil)))
}
