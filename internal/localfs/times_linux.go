//go:build linux

package localfs

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// fileTimes returns birth and access time. Filesystems without birth time
// support leave created zero.
func fileTimes(path string, fi os.FileInfo) (created, accessed time.Time) {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_BTIME|unix.STATX_ATIME, &stx); err != nil {
		return time.Time{}, time.Time{}
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		created = time.Unix(int64(stx.Btime.Sec), int64(stx.Btime.Nsec)).UTC()
	}
	if stx.Mask&unix.STATX_ATIME != 0 {
		accessed = time.Unix(int64(stx.Atime.Sec), int64(stx.Atime.Nsec)).UTC()
	}
	return created, accessed
}
