//go:build darwin

package filesystem

import (
	"io/fs"
	"syscall"
	"time"
)

func accessTime(info fs.FileInfo) time.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return info.ModTime()
	}
	return time.Unix(int64(st.Atimespec.Sec), int64(st.Atimespec.Nsec))
}
