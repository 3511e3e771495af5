package storage

// FilePickerOpenOptions configures OpenFilePicker.
type FilePickerOpenOptions struct {
	Title                  string
	FileTypeFilter         []FileType
	AllowMultiple          bool
	SuggestedStartLocation Folder
}

// FilePickerSaveOptions configures SaveFilePicker.
type FilePickerSaveOptions struct {
	Title                  string
	FileTypeChoices        []FileType
	SuggestedFileName      string
	DefaultExtension       string
	ShowOverwritePrompt    bool
	SuggestedStartLocation Folder
}

// FolderPickerOpenOptions configures OpenFolderPicker.
type FolderPickerOpenOptions struct {
	Title                  string
	SuggestedStartLocation Folder
}

// StartPath returns the local path of the suggested start location, or "".
func StartPath(f Folder) string {
	if f == nil {
		return ""
	}
	if p, ok := f.FullPath(); ok {
		return p
	}
	return ""
}
