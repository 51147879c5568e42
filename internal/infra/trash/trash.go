package trash

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
)

// ErrCrossDevice is returned when the item lives on a different filesystem
// than the home trash and no trash directory could be set up on its own
// mount.
var ErrCrossDevice = errors.New("item is on a different filesystem than the trash")

type Trasher interface {
	Trash(path string) error
}

// Bin is a freedesktop.org style trash: payloads under files/, a
// .trashinfo record per payload under info/.
type Bin struct {
	Dir string
	now func() time.Time
}

func New(dir string) *Bin {
	return &Bin{Dir: dir, now: time.Now}
}

const maxReserveAttempts = 32

var (
	deviceOf   = fileDevice
	mountPoint = partitionTop
	partitions = disk.Partitions
)

// partitionTop returns the mount point holding path: the longest mounted
// directory that is path or one of its ancestors.
func partitionTop(path string) (string, error) {
	parts, err := partitions(true)
	if err != nil {
		return "", err
	}
	best := ""
	for _, p := range parts {
		mp := filepath.Clean(p.Mountpoint)
		under := path == mp || mp == string(filepath.Separator) ||
			strings.HasPrefix(path, mp+string(filepath.Separator))
		if under && len(mp) > len(best) {
			best = mp
		}
	}
	if best == "" {
		return "", fmt.Errorf("no mount point holds %s", path)
	}
	return best, nil
}

func (b *Bin) Trash(src string) error {
	if strings.TrimSpace(src) == "" || !filepath.IsAbs(src) {
		return fmt.Errorf("PATH_INVALID: trash source must be absolute: %q", src)
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(filepath.Clean(src)))
	if err != nil {
		return err
	}
	src = filepath.Join(parent, filepath.Base(src))
	if _, err := os.Lstat(src); err != nil {
		return err
	}

	if err := os.MkdirAll(b.Dir, 0o700); err != nil {
		return fmt.Errorf("prepare trash dir %s: %w", b.Dir, err)
	}
	dir, err := filepath.EvalSymlinks(b.Dir)
	if err != nil {
		return err
	}
	topdir := ""
	if b.onOtherDevice(src, dir) {
		dir, topdir, err = volumeTrash(src)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCrossDevice, err)
		}
	}
	filesDir := filepath.Join(dir, "files")
	infoDir := filepath.Join(dir, "info")
	for _, d := range []string{filesDir, infoDir} {
		if err := prepareTrashDir(d); err != nil {
			if topdir != "" {
				return fmt.Errorf("%w: prepare trash dir %s: %w", ErrCrossDevice, d, err)
			}
			return fmt.Errorf("prepare trash dir %s: %w", d, err)
		}
	}

	recorded := src
	if topdir != "" {
		rel, err := filepath.Rel(topdir, src)
		if err != nil {
			return err
		}
		recorded = filepath.ToSlash(rel)
	}
	name, infoPath, err := b.reserve(src, recorded, filesDir, infoDir)
	if err != nil {
		return err
	}
	if err := moveEntry(src, filepath.Join(filesDir, name)); err != nil {
		_ = os.Remove(infoPath)
		return err
	}
	return nil
}

func (b *Bin) onOtherDevice(src, trashDir string) bool {
	srcDev, err := deviceOf(src)
	if err != nil {
		return false
	}
	trashDev, err := deviceOf(trashDir)
	if err != nil {
		return false
	}
	return srcDev != trashDev
}

// volumeTrash returns the per-user trash at the top of the mount holding
// src, $topdir/.Trash-$uid, along with that topdir.
func volumeTrash(src string) (string, string, error) {
	top, err := mountPoint(src)
	if err != nil {
		return "", "", err
	}
	if resolved, err := filepath.EvalSymlinks(top); err == nil {
		top = resolved
	}
	return filepath.Join(top, ".Trash-"+strconv.Itoa(os.Getuid())), top, nil
}

// reserve claims a payload name by exclusively creating its info record.
// The record stores recorded, which is relative to the topdir for
// per-mount trash directories.
func (b *Bin) reserve(src, recorded, filesDir, infoDir string) (string, string, error) {
	base := filepath.Base(src)
	for i := 0; i < maxReserveAttempts; i++ {
		name := base
		if i > 0 {
			name = base + "." + strconv.Itoa(i)
		}
		if _, err := os.Lstat(filepath.Join(filesDir, name)); err == nil {
			continue
		}
		infoPath := filepath.Join(infoDir, name+".trashinfo")
		f, err := os.OpenFile(infoPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return "", "", err
		}
		_, werr := f.WriteString(infoRecord(recorded, b.now()))
		cerr := f.Close()
		if werr != nil || cerr != nil {
			_ = os.Remove(infoPath)
			return "", "", errors.Join(werr, cerr)
		}
		return name, infoPath, nil
	}
	return "", "", fmt.Errorf("failed to reserve unique trash name for %s", src)
}

func infoRecord(path string, at time.Time) string {
	escaped := (&url.URL{Path: path}).EscapedPath()
	return "[Trash Info]\nPath=" + escaped + "\nDeletionDate=" + at.Format("2006-01-02T15:04:05") + "\n"
}
