//go:build unix

package trash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestTrashCrossDeviceRemovesInfo(t *testing.T) {
	b := newBin(t)
	src := filepath.Join(t.TempDir(), "far")
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	original := renameAt
	renameAt = func(int, string, int, string) error { return unix.EXDEV }
	t.Cleanup(func() { renameAt = original })

	err := b.Trash(src)
	require.ErrorIs(t, err, ErrCrossDevice)
	_, statErr := os.Stat(src)
	assert.NoError(t, statErr)
	entries, _ := os.ReadDir(filepath.Join(b.Dir, "info"))
	assert.Empty(t, entries)
}

func TestTrashResolvesSymlinkedParent(t *testing.T) {
	b := newBin(t)
	realDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(realDir, "f"), nil, 0o644))
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(realDir, link))

	require.NoError(t, b.Trash(filepath.Join(link, "f")))
	_, err := os.Lstat(filepath.Join(realDir, "f"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Lstat(link)
	assert.NoError(t, err, "the link itself stays")
}

func TestPartitionTopPicksDeepestMount(t *testing.T) {
	orig := partitions
	partitions = func(bool) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{
			{Mountpoint: "/"},
			{Mountpoint: "/mnt"},
			{Mountpoint: "/mnt/data"},
			{Mountpoint: "/mnt/dat"},
		}, nil
	}
	t.Cleanup(func() { partitions = orig })

	top, err := partitionTop("/mnt/data/cache/x")
	require.NoError(t, err)
	assert.Equal(t, "/mnt/data", top)

	top, err = partitionTop("/home/u/x")
	require.NoError(t, err)
	assert.Equal(t, "/", top)
}
