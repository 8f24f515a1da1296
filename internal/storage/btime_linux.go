package storage

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime returns the file creation time via statx, falling back to the
// modification time on file systems that do not record it.
func birthTime(abs string, info fs.FileInfo) time.Time {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, abs, 0, unix.STATX_BTIME, &stx); err != nil {
		return info.ModTime()
	}
	if stx.Mask&unix.STATX_BTIME == 0 || stx.Btime.Sec == 0 {
		return info.ModTime()
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}
