//go:build !linux && !darwin

package filesystem

import (
	"io/fs"
	"time"
)

// Platforms without a portable atime report the modification time.
func accessTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
