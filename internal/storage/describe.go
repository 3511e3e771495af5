package storage

import (
	"context"
	"fmt"
	"strings"
)

// FormatSize renders a byte count with binary units.
func FormatSize(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := uint64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// Describe renders an item on one line: path, kind, size and modification
// time when known.
func Describe(ctx context.Context, item Item) string {
	var b strings.Builder
	b.WriteString(DisplayPath(item))
	if _, ok := item.(Folder); ok {
		b.WriteString("  <dir>")
	}
	props, err := item.BasicProperties(ctx)
	if err != nil {
		return b.String()
	}
	if props.Size != nil {
		b.WriteString("  " + FormatSize(*props.Size))
	}
	if props.DateModified != nil {
		b.WriteString("  " + props.DateModified.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
