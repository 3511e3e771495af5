// Package portal implements the storage provider on top of the
// xdg-desktop-portal FileChooser interface.
//
// Each picker call creates a portal Request object. The provider subscribes
// to the Response signal on the predicted request path before issuing the
// call, then waits for the one signal that settles the request.
package portal

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	apperrors "storagekit/internal/errors"
	"storagekit/internal/localfs"
	"storagekit/internal/logging"
	"storagekit/internal/storage"
)

// ProviderName identifies the portal provider in logs and bookmark entries.
// Its bookmarks are plain paths, so they resolve like local ones.
const ProviderName = "portal"

type response struct {
	code    uint32
	results map[string]dbus.Variant
}

type pendingRequest struct {
	done chan response
}

// earlyLimit bounds how many responses for not yet subscribed paths are
// kept. A re-keyed request subscribes to its real path only after the
// call returns, and the portal may answer before that.
const earlyLimit = 16

type earlyResponse struct {
	path dbus.ObjectPath
	resp response
}

// Provider picks files through the FileChooser portal.
type Provider struct {
	bus     Bus
	parent  string
	version uint32
	logger  *zap.Logger
	local   *localfs.Provider

	mu      sync.Mutex
	pending map[dbus.ObjectPath]*pendingRequest
	early   []earlyResponse

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ storage.Provider = (*Provider)(nil)

// Options configures New.
type Options struct {
	// ParentWindow is passed as parent_window; see WindowIdentifier.
	ParentWindow string
	Logger       *zap.Logger
}

type probeResult struct {
	version uint32
	err     error
}

var (
	probeMu    sync.Mutex
	probeCache = map[Bus]probeResult{}
)

// Forget drops the cached probe result for bus. It is called when the bus
// closes so a closed connection is not kept alive by the cache.
func Forget(bus Bus) {
	probeMu.Lock()
	delete(probeCache, bus)
	probeMu.Unlock()
}

// probe reads the FileChooser version once per bus.
func probe(ctx context.Context, bus Bus) (uint32, error) {
	probeMu.Lock()
	defer probeMu.Unlock()
	if r, ok := probeCache[bus]; ok {
		return r.version, r.err
	}
	v, err := bus.Version(ctx)
	probeCache[bus] = probeResult{version: v, err: err}
	return v, err
}

// New probes the portal and returns a provider, or an error matching
// errors.ErrTransport when the portal cannot be used. Callers fall back
// to another provider in that case.
func New(ctx context.Context, bus Bus, opts Options) (*Provider, error) {
	logger := logging.OrNop(opts.Logger)
	version, err := probe(ctx, bus)
	if err != nil {
		logger.Info("file chooser portal unavailable", zap.Error(err))
		if apperrors.IsTransport(err) {
			return nil, err
		}
		return nil, apperrors.NewTransportError("portal_probe", "FileChooser portal not available", err)
	}
	p := &Provider{
		bus:     bus,
		parent:  opts.ParentWindow,
		version: version,
		logger:  logger,
		local:   localfs.NewProvider(nil, logger),
		pending: make(map[dbus.ObjectPath]*pendingRequest),
		closed:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.dispatch()
	logger.Debug("file chooser portal ready", zap.Uint32("version", version))
	return p, nil
}

// Version is the FileChooser interface version reported by the probe.
func (p *Provider) Version() uint32 { return p.version }

// Close stops signal dispatching. Requests still waiting fail.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	p.wg.Wait()
	return nil
}

func (p *Provider) Capabilities() storage.Capabilities {
	return storage.Capabilities{CanOpen: true, CanSave: true, CanPickFolder: true}
}

func (p *Provider) OpenFilePicker(ctx context.Context, opts storage.FilePickerOpenOptions) ([]storage.File, error) {
	token := newHandleToken()
	resp, err := p.request(ctx, "OpenFile", opts.Title, token, openOptions(token, opts))
	if err != nil || resp == nil {
		return nil, err
	}
	paths := p.paths(resp)
	files := make([]storage.File, 0, len(paths))
	for _, path := range paths {
		f, err := localfs.NewFile(path)
		if err != nil {
			p.logger.Warn("portal returned an unusable file", zap.String("path", path), zap.Error(err))
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

func (p *Provider) SaveFilePicker(ctx context.Context, opts storage.FilePickerSaveOptions) (storage.File, error) {
	token := newHandleToken()
	resp, err := p.request(ctx, "SaveFile", opts.Title, token, saveOptions(token, opts))
	if err != nil || resp == nil {
		return nil, err
	}
	paths := p.paths(resp)
	if len(paths) == 0 {
		return nil, nil
	}
	path := paths[0]
	if opts.DefaultExtension != "" && filepath.Ext(path) == "" {
		path += "." + strings.TrimPrefix(opts.DefaultExtension, ".")
	}
	f, err := localfs.NewSaveTarget(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (p *Provider) OpenFolderPicker(ctx context.Context, opts storage.FolderPickerOpenOptions) (storage.Folder, error) {
	token := newHandleToken()
	resp, err := p.request(ctx, "OpenFile", opts.Title, token, folderOptions(token, opts))
	if err != nil || resp == nil {
		return nil, err
	}
	for _, path := range p.paths(resp) {
		d, err := localfs.NewFolder(path)
		if err != nil {
			p.logger.Warn("portal returned an unusable folder", zap.String("path", path), zap.Error(err))
			continue
		}
		return d, nil
	}
	return nil, nil
}

// ResolveFileBookmark resolves a path token; portal items bookmark as paths.
func (p *Provider) ResolveFileBookmark(ctx context.Context, token string) (storage.File, error) {
	return p.local.ResolveFileBookmark(ctx, token)
}

// ResolveFolderBookmark resolves a path token; portal items bookmark as paths.
func (p *Provider) ResolveFolderBookmark(ctx context.Context, token string) (storage.Folder, error) {
	return p.local.ResolveFolderBookmark(ctx, token)
}

func (p *Provider) paths(resp *response) []string {
	paths, skipped := uriPaths(resp.results)
	for _, uri := range skipped {
		p.logger.Warn("ignoring non-local uri from portal", zap.String("uri", uri))
	}
	return paths
}

// request runs one portal round trip. A nil response with a nil error means
// the user cancelled.
func (p *Provider) request(ctx context.Context, method, title, token string, options map[string]dbus.Variant) (*response, error) {
	predicted := RequestPath(p.bus.UniqueName(), token)
	pr := &pendingRequest{done: make(chan response, 1)}
	if err := p.subscribe(predicted, pr); err != nil {
		return nil, err
	}
	path := predicted
	defer func() { p.unsubscribe(path) }()

	handle, err := p.bus.CallChooser(ctx, method, p.parent, title, options)
	if err != nil {
		return nil, err
	}
	if handle != predicted {
		// Portals older than the handle_token option pick their own path.
		p.logger.Debug("portal request path differs from prediction",
			zap.String("predicted", string(predicted)), zap.String("actual", string(handle)))
		if err := p.subscribe(handle, pr); err != nil {
			return nil, err
		}
		p.unsubscribe(predicted)
		path = handle
	}

	var resp response
	select {
	case resp = <-pr.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.closed:
		return nil, apperrors.NewTransportError("portal_"+method, "provider closed while waiting", nil)
	}

	switch resp.code {
	case responseSuccess:
		return &resp, nil
	case responseCancelled:
		p.logger.Debug("portal request cancelled by user", zap.String("method", method))
		return nil, nil
	default:
		return nil, apperrors.NewPlatformError("portal_"+method, string(path), int(resp.code), "portal request failed", nil)
	}
}

func (p *Provider) subscribe(path dbus.ObjectPath, pr *pendingRequest) error {
	p.mu.Lock()
	p.pending[path] = pr
	resp, ok := p.takeEarly(path)
	p.mu.Unlock()
	if ok {
		p.logger.Debug("portal response arrived before subscription", zap.String("path", string(path)))
		select {
		case pr.done <- resp:
		default:
		}
	}
	if err := p.bus.Watch(path); err != nil {
		p.mu.Lock()
		delete(p.pending, path)
		p.mu.Unlock()
		return apperrors.NewTransportError("portal_subscribe", "cannot watch "+string(path), err)
	}
	return nil
}

func (p *Provider) unsubscribe(path dbus.ObjectPath) {
	p.mu.Lock()
	_, ok := p.pending[path]
	delete(p.pending, path)
	p.mu.Unlock()
	if !ok {
		return
	}
	if err := p.bus.Unwatch(path); err != nil {
		p.logger.Debug("portal unwatch failed", zap.String("path", string(path)), zap.Error(err))
	}
}

// PendingCount reports how many requests are waiting for a response.
func (p *Provider) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Provider) dispatch() {
	defer p.wg.Done()
	signals := p.bus.Signals()
	for {
		select {
		case <-p.closed:
			return
		case sig, ok := <-signals:
			if !ok {
				Forget(p.bus)
				return
			}
			p.deliver(sig)
		}
	}
}

func (p *Provider) deliver(sig *dbus.Signal) {
	if sig == nil || sig.Name != responseSignal {
		return
	}
	resp, ok := parseResponse(sig.Body)
	if !ok {
		p.logger.Warn("malformed portal response", zap.String("path", string(sig.Path)))
		return
	}
	p.mu.Lock()
	pr := p.pending[sig.Path]
	if pr == nil {
		p.keepEarly(sig.Path, resp)
	}
	p.mu.Unlock()
	if pr == nil {
		p.logger.Debug("keeping response for unsubscribed request", zap.String("path", string(sig.Path)))
		return
	}
	select {
	case pr.done <- resp:
	default:
	}
}

// keepEarly buffers a response nobody waits for yet, dropping the oldest
// beyond earlyLimit. Callers hold p.mu.
func (p *Provider) keepEarly(path dbus.ObjectPath, resp response) {
	p.early = append(p.early, earlyResponse{path: path, resp: resp})
	if n := len(p.early) - earlyLimit; n > 0 {
		p.early = append(p.early[:0:0], p.early[n:]...)
	}
}

// takeEarly removes and returns the buffered response for path. Callers
// hold p.mu.
func (p *Provider) takeEarly(path dbus.ObjectPath) (response, bool) {
	for i, e := range p.early {
		if e.path == path {
			p.early = append(p.early[:i], p.early[i+1:]...)
			return e.resp, true
		}
	}
	return response{}, false
}

func parseResponse(body []interface{}) (response, bool) {
	if len(body) < 2 {
		return response{}, false
	}
	code, ok := body[0].(uint32)
	if !ok {
		return response{}, false
	}
	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return response{}, false
	}
	return response{code: code, results: results}, true
}
