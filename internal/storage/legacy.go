package storage

import "context"

// FileDialogFilter is the filter shape of the path-based dialog API.
type FileDialogFilter struct {
	Name       string
	Extensions []string
}

// FileDialog is the path-based dialog request kept for callers that predate
// the option objects. It translates into option objects and delegates.
type FileDialog struct {
	Title           string
	Directory       string
	InitialFileName string
	Filters         []FileDialogFilter
	AllowMultiple   bool
}

func (d FileDialog) fileTypes() []FileType {
	if len(d.Filters) == 0 {
		return nil
	}
	out := make([]FileType, 0, len(d.Filters))
	for _, f := range d.Filters {
		out = append(out, FileType{Name: f.Name, Patterns: f.Extensions})
	}
	return out
}

// ShowOpenFileDialog returns selected paths, or nil when the provider cannot
// open or the user cancelled. Items without a path contribute their name.
func ShowOpenFileDialog(ctx context.Context, p Provider, d FileDialog, start Folder) ([]string, error) {
	if !p.Capabilities().CanOpen {
		return nil, nil
	}
	files, err := p.OpenFilePicker(ctx, FilePickerOpenOptions{
		Title:                  d.Title,
		FileTypeFilter:         d.fileTypes(),
		AllowMultiple:          d.AllowMultiple,
		SuggestedStartLocation: start,
	})
	if err != nil || len(files) == 0 {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, DisplayPath(f))
	}
	return paths, nil
}

// ShowSaveFileDialog returns the chosen path, or "" when unsupported or cancelled.
func ShowSaveFileDialog(ctx context.Context, p Provider, d FileDialog, start Folder) (string, error) {
	if !p.Capabilities().CanSave {
		return "", nil
	}
	f, err := p.SaveFilePicker(ctx, FilePickerSaveOptions{
		Title:                  d.Title,
		FileTypeChoices:        d.fileTypes(),
		SuggestedFileName:      d.InitialFileName,
		SuggestedStartLocation: start,
	})
	if err != nil || f == nil {
		return "", err
	}
	return DisplayPath(f), nil
}

// ShowFolderDialog returns the chosen folder path, or "" when unsupported,
// cancelled, or the folder has no local path.
func ShowFolderDialog(ctx context.Context, p Provider, title string, start Folder) (string, error) {
	if !p.Capabilities().CanPickFolder {
		return "", nil
	}
	f, err := p.OpenFolderPicker(ctx, FolderPickerOpenOptions{Title: title, SuggestedStartLocation: start})
	if err != nil || f == nil {
		return "", err
	}
	if path, ok := f.FullPath(); ok {
		return path, nil
	}
	return "", nil
}
