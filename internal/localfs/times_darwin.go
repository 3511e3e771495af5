//go:build darwin

package localfs

import (
	"os"
	"syscall"
	"time"
)

func fileTimes(path string, fi os.FileInfo) (created, accessed time.Time) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, time.Time{}
	}
	created = time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec).UTC()
	accessed = time.Unix(st.Atimespec.Sec, st.Atimespec.Nsec).UTC()
	return created, accessed
}
