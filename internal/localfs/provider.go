package localfs

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"storagekit/internal/bookmark"
	apperrors "storagekit/internal/errors"
	"storagekit/internal/logging"
	"storagekit/internal/storage"
)

// ProviderName identifies path bookmarks issued by this package.
const ProviderName = "local"

// Mode selects what a Chooser is asked to pick.
type Mode int

const (
	ModeOpen Mode = iota
	ModeSave
	ModeFolder
)

// Request is what a Chooser receives for one pick.
type Request struct {
	Mode          Mode
	Title         string
	Start         storage.Folder
	Filters       []storage.FileType
	AllowMultiple bool
	SuggestedName string

	// OverwritePrompt asks the chooser to confirm replacing an existing file.
	OverwritePrompt bool
}

// Chooser is the dialog mechanism behind Provider. It returns the picked
// items, or none when the user cancelled. In ModeSave it returns one File
// that may not exist yet.
type Chooser interface {
	Choose(ctx context.Context, req Request) ([]storage.Item, error)
}

// Provider is the direct-filesystem provider.
// Without a Chooser it cannot pick but still resolves bookmarks.
type Provider struct {
	chooser Chooser
	logger  *zap.Logger
}

var _ storage.Provider = (*Provider)(nil)

// NewProvider creates a direct-filesystem provider. chooser may be nil.
func NewProvider(chooser Chooser, logger *zap.Logger) *Provider {
	return &Provider{chooser: chooser, logger: logging.OrNop(logger)}
}

func (p *Provider) Capabilities() storage.Capabilities {
	has := p.chooser != nil
	return storage.Capabilities{CanOpen: has, CanSave: has, CanPickFolder: has}
}

func (p *Provider) OpenFilePicker(ctx context.Context, opts storage.FilePickerOpenOptions) ([]storage.File, error) {
	if err := p.Capabilities().Require(storage.OpOpen, ProviderName); err != nil {
		return nil, err
	}
	items, err := p.chooser.Choose(ctx, Request{
		Mode:          ModeOpen,
		Title:         opts.Title,
		Start:         opts.SuggestedStartLocation,
		Filters:       opts.FileTypeFilter,
		AllowMultiple: opts.AllowMultiple,
	})
	if err != nil {
		return nil, err
	}
	files := make([]storage.File, 0, len(items))
	for _, it := range items {
		if f, ok := it.(storage.File); ok {
			files = append(files, f)
		}
	}
	if !opts.AllowMultiple && len(files) > 1 {
		files = files[:1]
	}
	p.logger.Debug("open picker finished", zap.Int("count", len(files)))
	return files, nil
}

func (p *Provider) SaveFilePicker(ctx context.Context, opts storage.FilePickerSaveOptions) (storage.File, error) {
	if err := p.Capabilities().Require(storage.OpSave, ProviderName); err != nil {
		return nil, err
	}
	items, err := p.chooser.Choose(ctx, Request{
		Mode:            ModeSave,
		Title:           opts.Title,
		Start:           opts.SuggestedStartLocation,
		Filters:         opts.FileTypeChoices,
		SuggestedName:   opts.SuggestedFileName,
		OverwritePrompt: opts.ShowOverwritePrompt,
	})
	if err != nil || len(items) == 0 {
		return nil, err
	}
	f, ok := items[0].(storage.File)
	if !ok {
		return nil, nil
	}
	if lf, ok := f.(*File); ok && opts.DefaultExtension != "" && filepath.Ext(lf.path) == "" {
		withExt, err := NewSaveTarget(lf.path + "." + strings.TrimPrefix(opts.DefaultExtension, "."))
		if err != nil {
			return nil, err
		}
		return withExt, nil
	}
	return f, nil
}

func (p *Provider) OpenFolderPicker(ctx context.Context, opts storage.FolderPickerOpenOptions) (storage.Folder, error) {
	if err := p.Capabilities().Require(storage.OpPickFolder, ProviderName); err != nil {
		return nil, err
	}
	items, err := p.chooser.Choose(ctx, Request{
		Mode:  ModeFolder,
		Title: opts.Title,
		Start: opts.SuggestedStartLocation,
	})
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if d, ok := it.(storage.Folder); ok {
			return d, nil
		}
	}
	return nil, nil
}

// ResolveFileBookmark re-opens a file from its path token.
func (p *Provider) ResolveFileBookmark(ctx context.Context, token string) (storage.File, error) {
	path, err := bookmark.DecodePath(token)
	if err != nil {
		return nil, apperrors.NewUnreachableError("resolve_file_bookmark", "", "malformed bookmark", err)
	}
	f, err := NewFile(path)
	if err != nil {
		p.logger.Debug("file bookmark unreachable", zap.String("path", path), zap.Error(err))
		return nil, apperrors.NewUnreachableError("resolve_file_bookmark", path, "file no longer exists", err)
	}
	return f, nil
}

// ResolveFolderBookmark re-opens a folder from its path token.
func (p *Provider) ResolveFolderBookmark(ctx context.Context, token string) (storage.Folder, error) {
	path, err := bookmark.DecodePath(token)
	if err != nil {
		return nil, apperrors.NewUnreachableError("resolve_folder_bookmark", "", "malformed bookmark", err)
	}
	d, err := NewFolder(path)
	if err != nil {
		p.logger.Debug("folder bookmark unreachable", zap.String("path", path), zap.Error(err))
		return nil, apperrors.NewUnreachableError("resolve_folder_bookmark", path, "folder no longer exists", err)
	}
	return d, nil
}
