//go:build windows

package localfs

import (
	"os"
	"syscall"
	"time"
)

func fileTimes(path string, fi os.FileInfo) (created, accessed time.Time) {
	d, ok := fi.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return time.Time{}, time.Time{}
	}
	created = time.Unix(0, d.CreationTime.Nanoseconds()).UTC()
	accessed = time.Unix(0, d.LastAccessTime.Nanoseconds()).UTC()
	return created, accessed
}
