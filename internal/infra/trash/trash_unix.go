//go:build unix

package trash

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

var renameAt = unix.Renameat

func fileDevice(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Dev), nil
}

func prepareTrashDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return err
	}
	fd, err := openDirNoFollow(path)
	if err != nil {
		return err
	}
	return unix.Close(fd)
}

// moveEntry renames src into dst relative to parent descriptors opened
// with O_NOFOLLOW.
func moveEntry(src, dst string) error {
	srcParent, err := openDirNoFollow(filepath.Dir(src))
	if err != nil {
		return err
	}
	defer unix.Close(srcParent)

	dstParent, err := openDirNoFollow(filepath.Dir(dst))
	if err != nil {
		return err
	}
	defer unix.Close(dstParent)

	var srcStat, dstStat unix.Stat_t
	if err := unix.Fstatat(srcParent, filepath.Base(src), &srcStat, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return err
	}
	if err := unix.Fstat(dstParent, &dstStat); err != nil {
		return err
	}
	if srcStat.Dev != dstStat.Dev {
		return ErrCrossDevice
	}

	err = renameAt(srcParent, filepath.Base(src), dstParent, filepath.Base(dst))
	if errors.Is(err, unix.EXDEV) {
		return ErrCrossDevice
	}
	return err
}

func openDirNoFollow(path string) (int, error) {
	if !filepath.IsAbs(path) {
		return -1, unix.EINVAL
	}
	cur, err := unix.Open(string(filepath.Separator), unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW, 0)
	if err != nil {
		return -1, err
	}
	for _, c := range strings.Split(strings.TrimPrefix(filepath.Clean(path), string(filepath.Separator)), string(filepath.Separator)) {
		if c == "" || c == "." {
			continue
		}
		next, err := unix.Openat(cur, c, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW, 0)
		_ = unix.Close(cur)
		if err != nil {
			return -1, err
		}
		cur = next
	}
	return cur, nil
}
