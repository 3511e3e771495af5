package storage

import (
	"context"

	apperrors "storagekit/internal/errors"
)

// Capabilities are static per provider instance. Callers check them before
// invoking an operation so they can degrade instead of failing late.
type Capabilities struct {
	CanOpen       bool
	CanSave       bool
	CanPickFolder bool
}

// Provider satisfies pick, save and bookmark-resolution requests through one
// concrete mechanism.
//
// A cancelled dialog is not an error: OpenFilePicker returns an empty slice and
// the single-item operations return nil. Calling an operation whose capability
// flag is false fails with an error matching errors.ErrUnsupported without
// touching the underlying mechanism.
type Provider interface {
	Capabilities() Capabilities

	OpenFilePicker(ctx context.Context, opts FilePickerOpenOptions) ([]File, error)
	SaveFilePicker(ctx context.Context, opts FilePickerSaveOptions) (File, error)
	OpenFolderPicker(ctx context.Context, opts FolderPickerOpenOptions) (Folder, error)

	// ResolveFileBookmark re-opens a file from a token produced by
	// SaveBookmark on an item of this provider. It fails with an error
	// matching errors.ErrUnreachable when the target is gone or access was
	// revoked.
	ResolveFileBookmark(ctx context.Context, token string) (File, error)
	ResolveFolderBookmark(ctx context.Context, token string) (Folder, error)
}

// Operation names a capability-gated provider operation.
type Operation string

const (
	OpOpen       Operation = "open_file_picker"
	OpSave       Operation = "save_file_picker"
	OpPickFolder Operation = "open_folder_picker"
)

// Allows reports whether c permits op.
func (c Capabilities) Allows(op Operation) bool {
	switch op {
	case OpOpen:
		return c.CanOpen
	case OpSave:
		return c.CanSave
	case OpPickFolder:
		return c.CanPickFolder
	}
	return false
}

// Require returns a capability-unavailable error when c does not permit op.
func (c Capabilities) Require(op Operation, provider string) error {
	if c.Allows(op) {
		return nil
	}
	return apperrors.NewUnsupportedError(string(op), provider+" does not support this operation")
}
