// Package platform picks the storage provider for the running environment
// and routes bookmark resolution to the provider family that issued a token.
package platform

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"storagekit/internal/bookmark"
	"storagekit/internal/config"
	apperrors "storagekit/internal/errors"
	"storagekit/internal/localfs"
	"storagekit/internal/logging"
	"storagekit/internal/native"
	"storagekit/internal/portal"
	"storagekit/internal/scoped"
	"storagekit/internal/storage"
)

const probeTimeout = 3 * time.Second

// Options configures Select.
type Options struct {
	Config *config.Config
	Logger *zap.Logger

	// Dialogs is the native dialog layer, nil when running headless.
	Dialogs native.Dialogs
	// Chooser is the managed picker used by the direct provider.
	Chooser localfs.Chooser
	// Resolver resolves scoped bookmarks such as SMB locations.
	Resolver scoped.Resolver
	// Connect opens the session bus. Defaults to portal.Connect.
	Connect func() (portal.Bus, error)
}

// Selection is the chosen picker provider plus bookmark routing.
type Selection struct {
	storage.Provider
	name    string
	local   *localfs.Provider
	scoped  *scoped.Provider
	logger  *zap.Logger
	closers []io.Closer

	hasResolver bool
}

var _ storage.Provider = (*Selection)(nil)

// Select builds the provider chain described by the config: portal, then
// native dialogs, then the managed picker. An explicit provider choice
// fails instead of falling back.
func Select(ctx context.Context, opts Options) (*Selection, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, apperrors.NewConfigError("select_provider", "no configuration", nil)
	}
	logger := logging.OrNop(opts.Logger)
	s := &Selection{
		local:  localfs.NewProvider(opts.Chooser, logger),
		scoped: scoped.NewProvider(opts.Resolver, nil, logger),
		logger: logger,

		hasResolver: opts.Resolver != nil,
	}

	switch cfg.Picker.Provider {
	case config.ProviderPortal:
		if err := s.usePortal(ctx, opts); err != nil {
			return nil, err
		}
	case config.ProviderNative:
		if opts.Dialogs == nil {
			return nil, apperrors.NewUnsupportedError("select_provider", "native dialogs are not available")
		}
		s.useNative(opts)
	case config.ProviderManaged:
		s.useManaged()
	default:
		if cfg.Portal.Disabled {
			logger.Debug("portal disabled by configuration")
		} else if err := s.usePortal(ctx, opts); err != nil {
			logger.Info("portal unavailable, falling back", zap.Error(err))
		}
		if s.Provider != nil {
			break
		}
		if opts.Dialogs != nil {
			s.useNative(opts)
			break
		}
		s.useManaged()
	}

	logger.Debug("storage provider selected", zap.String("provider", s.name))
	return s, nil
}

func (s *Selection) usePortal(ctx context.Context, opts Options) error {
	connect := opts.Connect
	if connect == nil {
		connect = func() (portal.Bus, error) {
			bus, err := portal.Connect()
			if err != nil {
				return nil, err
			}
			return bus, nil
		}
	}
	bus, err := connect()
	if err != nil {
		return apperrors.NewTransportError("select_provider", "cannot connect to session bus", err)
	}
	pctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	p, err := portal.New(pctx, bus, portal.Options{
		ParentWindow: opts.Config.Portal.ParentWindow,
		Logger:       s.logger,
	})
	if err != nil {
		_ = busCloser{bus}.Close()
		return err
	}
	s.closers = append(s.closers, p, busCloser{bus})
	s.Provider = p
	s.name = portal.ProviderName
	return nil
}

// busCloser drops the bus's cached probe and closes it if it can be closed.
type busCloser struct{ bus portal.Bus }

func (c busCloser) Close() error {
	portal.Forget(c.bus)
	if cl, ok := c.bus.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (s *Selection) useNative(opts Options) {
	s.Provider = native.NewProvider(opts.Dialogs, nil, s.logger)
	s.name = native.ProviderName
}

func (s *Selection) useManaged() {
	s.Provider = s.local
	s.name = localfs.ProviderName
}

// Name is the selected provider name.
func (s *Selection) Name() string { return s.name }

// ResolveFileBookmark resolves path tokens locally and everything else as
// a scoped bookmark.
func (s *Selection) ResolveFileBookmark(ctx context.Context, token string) (storage.File, error) {
	if isPathToken(token) {
		f, err := s.local.ResolveFileBookmark(ctx, token)
		if err == nil || !s.scopedFallback(token) {
			return f, err
		}
	}
	return s.scoped.ResolveFileBookmark(ctx, token)
}

// ResolveFolderBookmark is the folder counterpart of ResolveFileBookmark.
func (s *Selection) ResolveFolderBookmark(ctx context.Context, token string) (storage.Folder, error) {
	if isPathToken(token) {
		d, err := s.local.ResolveFolderBookmark(ctx, token)
		if err == nil || !s.scopedFallback(token) {
			return d, err
		}
	}
	return s.scoped.ResolveFolderBookmark(ctx, token)
}

// Resolve resolves a stored bookmark entry using the family it was saved by.
func (s *Selection) Resolve(ctx context.Context, e bookmark.Entry) (storage.Item, error) {
	switch {
	case e.Provider == scoped.ProviderName && e.Kind == bookmark.KindFolder:
		return wrapFolder(s.scoped.ResolveFolderBookmark(ctx, e.Token))
	case e.Provider == scoped.ProviderName:
		return wrapFile(s.scoped.ResolveFileBookmark(ctx, e.Token))
	case e.Kind == bookmark.KindFolder:
		return wrapFolder(s.local.ResolveFolderBookmark(ctx, e.Token))
	default:
		return wrapFile(s.local.ResolveFileBookmark(ctx, e.Token))
	}
}

// Family returns the bookmark family a provider's items belong to.
func Family(item storage.Item) string {
	switch item.(type) {
	case *scoped.File, *scoped.Folder:
		return scoped.ProviderName
	}
	return localfs.ProviderName
}

// Close releases the portal connection, if any.
func (s *Selection) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// A base64 token can begin with '/', so a path-shaped token that does
// not resolve locally is retried as a scoped one.
func (s *Selection) scopedFallback(token string) bool {
	if !s.hasResolver {
		return false
	}
	_, err := bookmark.DecodeScoped(token)
	return err == nil
}

func isPathToken(token string) bool {
	_, err := bookmark.DecodePath(token)
	return err == nil
}

func wrapFile(f storage.File, err error) (storage.Item, error) {
	if err != nil || f == nil {
		return nil, err
	}
	return f, nil
}

func wrapFolder(d storage.Folder, err error) (storage.Item, error) {
	if err != nil || d == nil {
		return nil, err
	}
	return d, nil
}
