package system

import (
	"cachesweep/internal/domain/model"

	"github.com/shirou/gopsutil/v4/disk"
)

var diskUsage = disk.Usage

// FilesystemUsage reports free and total space of the filesystem holding
// path, or nil when it cannot be determined.
func FilesystemUsage(path string) *model.FilesystemUsage {
	u, err := diskUsage(path)
	if err != nil || u == nil {
		return nil
	}
	return &model.FilesystemUsage{
		Mountpoint: u.Path,
		FreeBytes:  u.Free,
		TotalBytes: u.Total,
	}
}

// Annotate fills Filesystem on every existing target, one lookup per
// distinct path.
func Annotate(targets []model.ScanTarget) {
	seen := make(map[string]*model.FilesystemUsage)
	for i := range targets {
		if !targets[i].Exists {
			continue
		}
		p := targets[i].Path
		u, ok := seen[p]
		if !ok {
			u = FilesystemUsage(p)
			seen[p] = u
		}
		targets[i].Filesystem = u
	}
}
