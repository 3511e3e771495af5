// Package native bridges a callback-driven dialog API into the storage
// provider contract. Each picker call hands the dialog layer one Completion
// and waits for its single callback.
package native

import (
	"context"

	"go.uber.org/zap"

	apperrors "storagekit/internal/errors"
	"storagekit/internal/localfs"
	"storagekit/internal/logging"
	"storagekit/internal/storage"
)

// ProviderName identifies the native provider in logs and bookmark entries.
const ProviderName = "native"

// ExtensionSeparator joins extension lists passed to Dialogs.
const ExtensionSeparator = ";"

// Dialogs is the native dialog layer. Each method shows a dialog and
// returns immediately; the result is delivered through events.
// dir is a plain path or "", extensions is an ExtensionSeparator-joined list
// of bare extensions or "".
type Dialogs interface {
	OpenFileDialog(events Events, allowMultiple bool, title, dir, extensions string) error
	SaveFileDialog(events Events, title, dir, name, extensions string) error
	SelectFolderDialog(events Events, title, dir string) error
}

// Provider is a direct-filesystem provider whose pickers are native dialogs.
// Results are local paths, so bookmarks resolve like local ones.
type Provider struct {
	*localfs.Provider
}

var _ storage.Provider = (*Provider)(nil)

// NewProvider creates a provider over dialogs. A nil dialogs yields a
// provider without picker capabilities. A nil registry means DefaultRegistry.
func NewProvider(dialogs Dialogs, registry *Registry, logger *zap.Logger) *Provider {
	logger = logging.OrNop(logger)
	if dialogs == nil {
		return &Provider{Provider: localfs.NewProvider(nil, logger)}
	}
	if registry == nil {
		registry = DefaultRegistry
	}
	c := &chooser{dialogs: dialogs, registry: registry, logger: logger}
	return &Provider{Provider: localfs.NewProvider(c, logger)}
}

type chooser struct {
	dialogs  Dialogs
	registry *Registry
	logger   *zap.Logger
}

func (c *chooser) Choose(ctx context.Context, req localfs.Request) ([]storage.Item, error) {
	done := c.registry.New()
	defer done.Close()

	dir := storage.StartPath(req.Start)
	exts := storage.JoinExtensions(req.Filters, ExtensionSeparator)

	var err error
	switch req.Mode {
	case localfs.ModeOpen:
		err = c.dialogs.OpenFileDialog(done, req.AllowMultiple, req.Title, dir, exts)
	case localfs.ModeSave:
		err = c.dialogs.SaveFileDialog(done, req.Title, dir, req.SuggestedName, exts)
	case localfs.ModeFolder:
		err = c.dialogs.SelectFolderDialog(done, req.Title, dir)
	}
	if err != nil {
		return nil, apperrors.NewPlatformError("native_dialog", dir, 0, "dialog could not be shown", err)
	}

	paths, err := done.Wait(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("native dialog completed", zap.Uint64("handle", uint64(done.Handle())), zap.Int("count", len(paths)))
	return wrap(req.Mode, paths, c.logger), nil
}

func wrap(mode localfs.Mode, paths []string, logger *zap.Logger) []storage.Item {
	items := make([]storage.Item, 0, len(paths))
	for _, p := range paths {
		var (
			it  storage.Item
			err error
		)
		switch mode {
		case localfs.ModeSave:
			it, err = localfs.NewSaveTarget(p)
		case localfs.ModeFolder:
			it, err = localfs.NewFolder(p)
		default:
			it, err = localfs.NewFile(p)
		}
		if err != nil {
			logger.Warn("native dialog returned an unusable path", zap.String("path", p), zap.Error(err))
			continue
		}
		items = append(items, it)
	}
	return items
}
