package scoped

import (
	"context"

	"go.uber.org/zap"

	"storagekit/internal/bookmark"
	apperrors "storagekit/internal/errors"
	"storagekit/internal/localfs"
	"storagekit/internal/logging"
	"storagekit/internal/storage"
)

// ProviderName identifies scoped bookmark tokens.
const ProviderName = "scoped"

// Picker is the dialog mechanism that hands out scoped resources.
// It returns no resources when the user cancelled.
type Picker interface {
	Pick(ctx context.Context, req localfs.Request) ([]Resource, error)
}

// Provider resolves scoped bookmarks and, when it has a Picker, picks
// scoped items.
type Provider struct {
	resolver Resolver
	picker   Picker
	logger   *zap.Logger
}

var _ storage.Provider = (*Provider)(nil)

// NewProvider creates a scoped provider. picker may be nil.
func NewProvider(resolver Resolver, picker Picker, logger *zap.Logger) *Provider {
	return &Provider{resolver: resolver, picker: picker, logger: logging.OrNop(logger)}
}

func (p *Provider) Capabilities() storage.Capabilities {
	has := p.picker != nil
	return storage.Capabilities{CanOpen: has, CanSave: has, CanPickFolder: has}
}

func (p *Provider) OpenFilePicker(ctx context.Context, opts storage.FilePickerOpenOptions) ([]storage.File, error) {
	if err := p.Capabilities().Require(storage.OpOpen, ProviderName); err != nil {
		return nil, err
	}
	res, err := p.picker.Pick(ctx, localfs.Request{
		Mode:          localfs.ModeOpen,
		Title:         opts.Title,
		Start:         opts.SuggestedStartLocation,
		Filters:       opts.FileTypeFilter,
		AllowMultiple: opts.AllowMultiple,
	})
	if err != nil {
		return nil, err
	}
	var files []storage.File
	for _, r := range res {
		if r.IsDir() {
			continue
		}
		files = append(files, NewFile(r, p.logger))
		if !opts.AllowMultiple {
			break
		}
	}
	return files, nil
}

func (p *Provider) SaveFilePicker(ctx context.Context, opts storage.FilePickerSaveOptions) (storage.File, error) {
	if err := p.Capabilities().Require(storage.OpSave, ProviderName); err != nil {
		return nil, err
	}
	res, err := p.picker.Pick(ctx, localfs.Request{
		Mode:            localfs.ModeSave,
		Title:           opts.Title,
		Start:           opts.SuggestedStartLocation,
		Filters:         opts.FileTypeChoices,
		SuggestedName:   opts.SuggestedFileName,
		OverwritePrompt: opts.ShowOverwritePrompt,
	})
	if err != nil {
		return nil, err
	}
	for _, r := range res {
		if !r.IsDir() {
			return NewFile(r, p.logger), nil
		}
	}
	return nil, nil
}

func (p *Provider) OpenFolderPicker(ctx context.Context, opts storage.FolderPickerOpenOptions) (storage.Folder, error) {
	if err := p.Capabilities().Require(storage.OpPickFolder, ProviderName); err != nil {
		return nil, err
	}
	res, err := p.picker.Pick(ctx, localfs.Request{
		Mode:  localfs.ModeFolder,
		Title: opts.Title,
		Start: opts.SuggestedStartLocation,
	})
	if err != nil {
		return nil, err
	}
	for _, r := range res {
		if r.IsDir() {
			return NewFolder(r, p.logger), nil
		}
	}
	return nil, nil
}

func (p *Provider) ResolveFileBookmark(ctx context.Context, token string) (storage.File, error) {
	res, err := p.resolve(ctx, "resolve_file_bookmark", token)
	if err != nil {
		return nil, err
	}
	if res.IsDir() {
		return nil, apperrors.NewUnreachableError("resolve_file_bookmark", res.Name(), "bookmark points to a folder", nil)
	}
	return NewFile(res, p.logger), nil
}

func (p *Provider) ResolveFolderBookmark(ctx context.Context, token string) (storage.Folder, error) {
	res, err := p.resolve(ctx, "resolve_folder_bookmark", token)
	if err != nil {
		return nil, err
	}
	if !res.IsDir() {
		return nil, apperrors.NewUnreachableError("resolve_folder_bookmark", res.Name(), "bookmark points to a file", nil)
	}
	return NewFolder(res, p.logger), nil
}

func (p *Provider) resolve(ctx context.Context, op, token string) (Resource, error) {
	data, err := bookmark.DecodeScoped(token)
	if err != nil {
		return nil, apperrors.NewUnreachableError(op, "", "malformed bookmark", err)
	}
	if p.resolver == nil {
		return nil, apperrors.NewUnsupportedError(op, "no scoped resolver configured")
	}
	res, err := p.resolver.Resolve(ctx, data)
	if err != nil {
		p.logger.Warn("scoped bookmark unreachable", zap.Int("code", ErrorCode(err)), zap.Error(err))
		return nil, apperrors.NewUnreachableError(op, "", "bookmark target unreachable", err)
	}
	return res, nil
}
