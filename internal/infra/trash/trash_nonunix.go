//go:build !unix

package trash

import "os"

func prepareTrashDir(path string) error {
	return os.MkdirAll(path, 0o700)
}

func moveEntry(src, dst string) error {
	return os.Rename(src, dst)
}

// fileDevice has no portable answer here; every path shares the home trash.
func fileDevice(string) (uint64, error) {
	return 0, nil
}
