package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"storagekit/internal/logging"
	"storagekit/internal/native"
)

// FyneDialogs shows fyne's file dialogs and completes the native events
// from their callbacks. Calls return as soon as the dialog is scheduled;
// they must not be made from the fyne goroutine while it is waited on.
type FyneDialogs struct {
	parent fyne.Window
	logger *zap.Logger
}

var _ native.Dialogs = (*FyneDialogs)(nil)

func NewFyneDialogs(parent fyne.Window, logger *zap.Logger) *FyneDialogs {
	return &FyneDialogs{parent: parent, logger: logging.OrNop(logger)}
}

func (d *FyneDialogs) OpenFileDialog(events native.Events, allowMultiple bool, title, dir, extensions string) error {
	if allowMultiple {
		d.logger.Debug("fyne file dialog selects a single file", zap.String("title", title))
	}
	fyne.Do(func() {
		fd := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil || r == nil {
				d.dismissed("open", err)
				events.OnCompleted(nil)
				return
			}
			path := r.URI().Path()
			_ = r.Close()
			events.OnCompleted([]string{path})
		}, d.parent)
		d.prepare(fd, dir, extensions)
		fd.Show()
	})
	return nil
}

// SaveFileDialog picks a folder and then asks for the file name. Nothing
// is created or truncated here; the caller opens the returned path.
func (d *FyneDialogs) SaveFileDialog(events native.Events, title, dir, name, extensions string) error {
	fyne.Do(func() {
		fd := dialog.NewFolderOpen(func(u fyne.ListableURI, err error) {
			if err != nil || u == nil {
				d.dismissed("save", err)
				events.OnCompleted(nil)
				return
			}
			d.askName(events, title, u.Path(), name)
		}, d.parent)
		d.prepare(fd, dir, "")
		fd.Show()
	})
	return nil
}

// askName shows the name form for a save into folder and confirms
// replacing an existing file. Declining the replacement asks again.
func (d *FyneDialogs) askName(events native.Events, title, folder, name string) {
	if title == "" {
		title = "Save"
	}
	entry := widget.NewEntry()
	entry.SetText(name)
	entry.Validator = validSaveName

	form := dialog.NewForm(title, "Save", "Cancel",
		[]*widget.FormItem{
			widget.NewFormItem("Folder", widget.NewLabel(folder)),
			widget.NewFormItem("Name", entry),
		},
		func(ok bool) {
			if !ok {
				d.dismissed("save", nil)
				events.OnCompleted(nil)
				return
			}
			target := saveTarget(folder, entry.Text)
			if !exists(target) {
				events.OnCompleted([]string{target})
				return
			}
			dialog.ShowConfirm("Replace file?",
				filepath.Base(target)+" already exists. Do you want to replace it?",
				func(replace bool) {
					if replace {
						events.OnCompleted([]string{target})
						return
					}
					d.askName(events, title, folder, entry.Text)
				}, d.parent)
		}, d.parent)
	form.Resize(fyne.NewSize(460, 200))
	form.Show()
	d.parent.Canvas().Focus(entry)
}

// saveTarget joins a typed name onto folder.
func saveTarget(folder, name string) string {
	return filepath.Join(folder, strings.TrimSpace(name))
}

// validSaveName accepts a single path element.
func validSaveName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return errors.New("a file name is required")
	case name == "." || name == "..":
		return errors.New("not a file name")
	case strings.ContainsAny(name, `/\`):
		return errors.New("the name cannot contain a path separator")
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (d *FyneDialogs) SelectFolderDialog(events native.Events, title, dir string) error {
	fyne.Do(func() {
		fd := dialog.NewFolderOpen(func(u fyne.ListableURI, err error) {
			if err != nil || u == nil {
				d.dismissed("folder", err)
				events.OnCompleted(nil)
				return
			}
			events.OnCompleted([]string{u.Path()})
		}, d.parent)
		d.prepare(fd, dir, "")
		fd.Show()
	})
	return nil
}

func (d *FyneDialogs) prepare(fd *dialog.FileDialog, dir, extensions string) {
	if exts := splitExtensions(extensions); len(exts) > 0 {
		fd.SetFilter(storage.NewExtensionFileFilter(exts))
	}
	if dir == "" {
		return
	}
	lister, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		d.logger.Debug("dialog start folder not listable", zap.String("dir", dir), zap.Error(err))
		return
	}
	fd.SetLocation(lister)
}

func (d *FyneDialogs) dismissed(kind string, err error) {
	if err != nil {
		d.logger.Warn("file dialog failed", zap.String("dialog", kind), zap.Error(err))
		return
	}
	d.logger.Debug("file dialog dismissed", zap.String("dialog", kind))
}

// splitExtensions turns "txt;jpg" into [".txt", ".jpg"]. A "*" entry
// disables filtering.
func splitExtensions(s string) []string {
	var out []string
	for _, e := range strings.Split(s, native.ExtensionSeparator) {
		e = strings.TrimSpace(e)
		if e == "*" || e == "*.*" {
			return nil
		}
		e = strings.TrimPrefix(strings.TrimPrefix(e, "*"), ".")
		if e == "" {
			continue
		}
		out = append(out, "."+strings.ToLower(e))
	}
	return out
}
