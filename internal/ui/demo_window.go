package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"storagekit/internal/bookmark"
	"storagekit/internal/config"
	"storagekit/internal/localfs"
	"storagekit/internal/logging"
	"storagekit/internal/storage"
	"storagekit/internal/watcher"
)

// Storage is the provider the demo window drives. Resolve reopens a
// stored bookmark entry.
type Storage interface {
	storage.Provider
	Resolve(ctx context.Context, e bookmark.Entry) (storage.Item, error)
}

// DemoOptions configures NewDemoWindow.
type DemoOptions struct {
	Storage   Storage
	Family    func(storage.Item) string
	Bookmarks bookmark.Store
	Config    *config.Config
	Manager   config.ManagerInterface
	Logger    *zap.Logger
}

// DemoWindow exercises a provider: pick, save, list and bookmark items.
type DemoWindow struct {
	window fyne.Window
	opts   DemoOptions
	logger *zap.Logger

	busy      *BusyOverlay
	status    *widget.Label
	results   binding.StringList
	marks     []bookmark.Entry
	markList  *widget.List
	current   storage.Item
	resultSet []storage.Item

	watchMu sync.Mutex
	watch   *watcher.FolderWatcher
}

// NewDemoWindow builds the window content. Provider calls run off the
// fyne goroutine because dialog providers block until the user answers.
func NewDemoWindow(w fyne.Window, opts DemoOptions) *DemoWindow {
	d := &DemoWindow{
		window:  w,
		opts:    opts,
		logger:  logging.OrNop(opts.Logger),
		busy:    NewBusyOverlay(),
		status:  widget.NewLabel("Ready"),
		results: binding.NewStringList(),
	}
	d.setupUI()
	d.reloadBookmarks()
	return d
}

func (d *DemoWindow) Window() fyne.Window { return d.window }

func (d *DemoWindow) setupUI() {
	caps := d.opts.Storage.Capabilities()

	openBtn := widget.NewButtonWithIcon("Open", theme.FileIcon(), d.openFiles)
	saveBtn := widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), d.saveFile)
	folderBtn := widget.NewButtonWithIcon("Folder", theme.FolderOpenIcon(), d.pickFolder)
	markBtn := widget.NewButtonWithIcon("Bookmark", theme.ContentAddIcon(), d.bookmarkCurrent)
	if !caps.CanOpen {
		openBtn.Disable()
	}
	if !caps.CanSave {
		saveBtn.Disable()
	}
	if !caps.CanPickFolder {
		folderBtn.Disable()
	}

	resultList := widget.NewListWithData(d.results,
		func() fyne.CanvasObject { return widget.NewLabel("item") },
		func(item binding.DataItem, obj fyne.CanvasObject) {
			s, _ := item.(binding.String).Get()
			obj.(*widget.Label).SetText(s)
		},
	)
	resultList.OnSelected = func(id widget.ListItemID) {
		if id >= 0 && id < len(d.resultSet) {
			d.current = d.resultSet[id]
			d.status.SetText("Selected " + d.current.Name())
		}
	}

	d.markList = widget.NewList(
		func() int { return len(d.marks) },
		func() fyne.CanvasObject { return widget.NewLabel("bookmark") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			e := d.marks[id]
			obj.(*widget.Label).SetText(fmt.Sprintf("%s (%s %s)", e.Name, e.Provider, e.Kind))
		},
	)
	d.markList.OnSelected = func(id widget.ListItemID) {
		d.markList.UnselectAll()
		if id >= 0 && id < len(d.marks) {
			d.resolveBookmark(d.marks[id])
		}
	}

	split := container.NewHSplit(
		widget.NewCard("Items", "", resultList),
		widget.NewCard("Bookmarks", "", d.markList),
	)
	split.Offset = 0.65

	content := container.NewBorder(
		container.NewHBox(openBtn, saveBtn, folderBtn, markBtn),
		d.status, nil, nil,
		split,
	)
	d.window.SetContent(container.NewStack(content, d.busy.GetContainer()))
	d.window.SetOnClosed(d.unwatch)
	cfg := d.opts.Config
	if cfg != nil {
		d.window.Resize(fyne.NewSize(float32(cfg.Window.Width), float32(cfg.Window.Height)))
	}
}

// run executes fn in the background with the overlay shown. The
// overlay's Cancel button cancels ctx.
func (d *DemoWindow) run(text string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(context.Background())
	d.busy.Show(text, cancel)
	go func() {
		defer cancel()
		err := fn(ctx)
		fyne.Do(func() {
			d.busy.Hide()
			if errors.Is(err, context.Canceled) {
				d.status.SetText("Cancelled")
				return
			}
			if err != nil {
				d.logger.Warn("demo action failed", zap.Error(err))
				ShowErrorDialog(d.window, err)
			}
		})
	}()
}

func (d *DemoWindow) startFolder() storage.Folder {
	if d.opts.Config == nil {
		return nil
	}
	p := d.opts.Config.SuggestedStart()
	if p == "" {
		return nil
	}
	f, err := localfs.NewFolder(p)
	if err != nil {
		return nil
	}
	return f
}

func (d *DemoWindow) openFiles() {
	d.run("Waiting for the file picker...", func(ctx context.Context) error {
		files, err := d.opts.Storage.OpenFilePicker(ctx, storage.FilePickerOpenOptions{
			Title:                  "Open files",
			FileTypeFilter:         []storage.FileType{storage.FileTypeAll, storage.FileTypeTextPlain, storage.FileTypeImageAll},
			AllowMultiple:          true,
			SuggestedStartLocation: d.startFolder(),
		})
		if err != nil {
			return err
		}
		d.unwatch()
		items := make([]storage.Item, len(files))
		for i, f := range files {
			items[i] = f
		}
		d.show(ctx, "Opened", items)
		return nil
	})
}

func (d *DemoWindow) saveFile() {
	d.run("Waiting for the save dialog...", func(ctx context.Context) error {
		f, err := d.opts.Storage.SaveFilePicker(ctx, storage.FilePickerSaveOptions{
			Title:                  "Save note",
			FileTypeChoices:        []storage.FileType{storage.FileTypeTextPlain},
			SuggestedFileName:      "note.txt",
			DefaultExtension:       "txt",
			ShowOverwritePrompt:    true,
			SuggestedStartLocation: d.startFolder(),
		})
		if err != nil || f == nil {
			return err
		}
		w, err := f.OpenWrite(ctx)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, "written by storagekit at "+time.Now().Format(time.RFC3339)+"\n"); err != nil {
			_ = w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		d.unwatch()
		d.show(ctx, "Saved", []storage.Item{f})
		return nil
	})
}

func (d *DemoWindow) pickFolder() {
	d.run("Waiting for the folder picker...", func(ctx context.Context) error {
		folder, err := d.opts.Storage.OpenFolderPicker(ctx, storage.FolderPickerOpenOptions{
			Title:                  "Pick a folder",
			SuggestedStartLocation: d.startFolder(),
		})
		if err != nil || folder == nil {
			return err
		}
		d.remember(folder)
		return d.showFolder(ctx, folder)
	})
}

// showFolder lists folder and keeps the listing current while it is shown.
func (d *DemoWindow) showFolder(ctx context.Context, folder storage.Folder) error {
	items, err := folder.Items(ctx)
	if err != nil {
		return err
	}
	title := "Folder " + folder.Name()
	d.show(ctx, title, append([]storage.Item{folder}, items...))

	var interval time.Duration
	if d.opts.Config != nil {
		interval = d.opts.Config.WatchInterval()
	}
	w := watcher.New(folder, interval, func(items []storage.Item, c watcher.Changes) {
		d.logger.Debug("folder changed",
			zap.String("folder", folder.Name()),
			zap.Int("added", len(c.Added)),
			zap.Int("deleted", len(c.Deleted)),
			zap.Int("modified", len(c.Modified)))
		d.show(context.Background(), title, append([]storage.Item{folder}, items...))
	}, d.logger)

	if err := w.Start(ctx); err != nil {
		d.logger.Debug("folder watch not started", zap.Error(err))
		d.unwatch()
		return nil
	}
	d.watchMu.Lock()
	if d.watch != nil {
		d.watch.Stop()
	}
	d.watch = w
	d.watchMu.Unlock()
	return nil
}

func (d *DemoWindow) unwatch() {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	if d.watch != nil {
		d.watch.Stop()
		d.watch = nil
	}
}

func (d *DemoWindow) bookmarkCurrent() {
	item := d.current
	if item == nil {
		ShowMessageDialog(d.window, "Bookmark", "Select an item first")
		return
	}
	if !item.CanBookmark() {
		ShowMessageDialog(d.window, "Bookmark", item.Name()+" cannot be bookmarked")
		return
	}
	entry := widget.NewEntry()
	entry.SetText(item.Name())
	dialog.ShowForm("Bookmark", "Save", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", entry)},
		func(ok bool) {
			if !ok || entry.Text == "" {
				return
			}
			name := entry.Text
			d.run("Saving bookmark...", func(ctx context.Context) error {
				return d.saveBookmark(ctx, name, item)
			})
		}, d.window)
}

func (d *DemoWindow) saveBookmark(ctx context.Context, name string, item storage.Item) error {
	token, ok := item.SaveBookmark(ctx)
	if !ok {
		return fmt.Errorf("%s could not be bookmarked", item.Name())
	}
	kind := bookmark.KindFile
	if _, isFolder := item.(storage.Folder); isFolder {
		kind = bookmark.KindFolder
	}
	family := localfs.ProviderName
	if d.opts.Family != nil {
		family = d.opts.Family(item)
	}
	err := d.opts.Bookmarks.Put(bookmark.Entry{
		Name:     name,
		Provider: family,
		Kind:     kind,
		Token:    token,
		SavedAt:  time.Now(),
	})
	if err != nil {
		return err
	}
	fyne.Do(d.reloadBookmarks)
	return nil
}

func (d *DemoWindow) resolveBookmark(e bookmark.Entry) {
	d.run("Resolving "+e.Name+"...", func(ctx context.Context) error {
		item, err := d.opts.Storage.Resolve(ctx, e)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("bookmark %s did not resolve", e.Name)
		}
		d.unwatch()
		if folder, ok := item.(storage.Folder); ok {
			return d.showFolder(ctx, folder)
		}
		d.show(ctx, "Resolved "+e.Name, []storage.Item{item})
		return nil
	})
}

// show describes items off the fyne goroutine and publishes them on it.
func (d *DemoWindow) show(ctx context.Context, title string, items []storage.Item) {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = storage.Describe(ctx, it)
	}
	fyne.Do(func() {
		d.resultSet = items
		d.current = nil
		_ = d.results.Set(lines)
		d.status.SetText(fmt.Sprintf("%s: %d item(s)", title, len(items)))
	})
}

func (d *DemoWindow) remember(folder storage.Folder) {
	cfg := d.opts.Config
	p, ok := folder.FullPath()
	if cfg == nil || !ok {
		return
	}
	cfg.AddRecentFolder(p)
	if d.opts.Manager == nil {
		return
	}
	if err := d.opts.Manager.Save(cfg); err != nil {
		d.logger.Warn("saving recent folders failed", zap.Error(err))
	}
}

func (d *DemoWindow) reloadBookmarks() {
	if d.opts.Bookmarks == nil {
		return
	}
	marks, err := d.opts.Bookmarks.List()
	if err != nil {
		d.logger.Warn("listing bookmarks failed", zap.Error(err))
		return
	}
	d.marks = marks
	if d.markList != nil {
		d.markList.Refresh()
	}
}
