// Package watcher polls a storage folder and reports what changed between
// polls. Polling works the same for every provider, including archives,
// portal grants and SMB shares, none of which deliver change events.
package watcher

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"storagekit/internal/logging"
	"storagekit/internal/storage"
)

const (
	DefaultInterval = 2 * time.Second
	changeBuffer    = 10
)

// Entry is the part of an item compared between polls.
type Entry struct {
	Name     string
	Folder   bool
	Size     uint64
	Modified time.Time
}

// Changes represents items that changed since the previous poll
type Changes struct {
	Added    []Entry
	Deleted  []Entry
	Modified []Entry
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Deleted) == 0 && len(c.Modified) == 0
}

// ChangeFunc receives the folder's current items and what changed. It runs
// on the watcher's own goroutine.
type ChangeFunc func(items []storage.Item, changes Changes)

// holder is a folder whose access can be held across several calls.
type holder interface {
	Hold() (release func(), err error)
}

type pendingChanges struct {
	items   []storage.Item
	changes Changes
}

// FolderWatcher handles incremental folder change detection
type FolderWatcher struct {
	folder   storage.Folder
	interval time.Duration
	onChange ChangeFunc
	logger   *zap.Logger

	mu       sync.Mutex
	previous map[string]Entry // keyed by item name
	stopChan chan struct{}
	running  bool
}

// New creates a watcher for folder. A non-positive interval uses
// DefaultInterval.
func New(folder storage.Folder, interval time.Duration, onChange ChangeFunc, logger *zap.Logger) *FolderWatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if onChange == nil {
		onChange = func([]storage.Item, Changes) {}
	}
	return &FolderWatcher{
		folder:   folder,
		interval: interval,
		onChange: onChange,
		logger:   logging.OrNop(logger),
		previous: make(map[string]Entry),
	}
}

// Start takes the initial snapshot and begins polling. It is a no-op on a
// running watcher.
func (w *FolderWatcher) Start(ctx context.Context) error {
	_, snap, err := w.poll(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.running = true
	w.previous = snap
	stop := make(chan struct{})
	w.stopChan = stop
	changeChan := make(chan *pendingChanges, changeBuffer)

	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.checkForChanges(stop, changeChan)
			case <-stop:
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case p := <-changeChan:
				w.onChange(p.items, p.changes)
			case <-stop:
				return
			}
		}
	}()
	return nil
}

// Stop stops polling. Stopping twice is harmless.
func (w *FolderWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopChan)
	w.stopChan = nil
}

// checkForChanges lists the folder once and queues any difference. The
// snapshot advances only when the change was queued, so a dropped batch
// is reported again on the next poll.
func (w *FolderWatcher) checkForChanges(stop <-chan struct{}, out chan<- *pendingChanges) {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	items, current, err := w.poll(ctx)
	if err != nil {
		w.logger.Debug("folder poll failed", zap.String("folder", storage.DisplayPath(w.folder)), zap.Error(err))
		return
	}
	changes := w.detectChanges(current)
	if changes.Empty() {
		return
	}

	select {
	case out <- &pendingChanges{items: items, changes: changes}:
		w.mu.Lock()
		w.previous = current
		w.mu.Unlock()
	case <-stop:
	default:
		w.logger.Debug("change channel full, skipping update")
	}
}

// poll lists the folder and reads every item's properties. A folder that
// can hold its access keeps it for the whole poll.
func (w *FolderWatcher) poll(ctx context.Context) ([]storage.Item, map[string]Entry, error) {
	if h, ok := w.folder.(holder); ok {
		release, err := h.Hold()
		if err != nil {
			return nil, nil, err
		}
		defer release()
	}
	items, err := w.folder.Items(ctx)
	if err != nil {
		return nil, nil, err
	}
	return items, snapshot(ctx, items), nil
}

// detectChanges compares current and previous states to find differences
func (w *FolderWatcher) detectChanges(current map[string]Entry) Changes {
	w.mu.Lock()
	defer w.mu.Unlock()

	var c Changes
	for name, e := range current {
		prev, exists := w.previous[name]
		switch {
		case !exists:
			c.Added = append(c.Added, e)
		case !e.Modified.Equal(prev.Modified) || e.Size != prev.Size || e.Folder != prev.Folder:
			c.Modified = append(c.Modified, e)
		}
	}
	for name, e := range w.previous {
		if _, exists := current[name]; !exists {
			c.Deleted = append(c.Deleted, e)
		}
	}
	sortEntries(c.Added)
	sortEntries(c.Deleted)
	sortEntries(c.Modified)
	return c
}

func snapshot(ctx context.Context, items []storage.Item) map[string]Entry {
	m := make(map[string]Entry, len(items))
	for _, it := range items {
		e := Entry{Name: it.Name()}
		_, e.Folder = it.(storage.Folder)
		if props, err := it.BasicProperties(ctx); err == nil {
			if props.Size != nil {
				e.Size = *props.Size
			}
			if props.DateModified != nil {
				e.Modified = *props.DateModified
			}
		}
		m[e.Name] = e
	}
	return m
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool { return es[i].Name < es[j].Name })
}
