package storage

import (
	"github.com/shirou/gopsutil/v3/disk"
)

// Usage describes the filesystem holding the temp directory.
type Usage struct {
	Path        string  `json:"path"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// DiskUsage reports capacity of the filesystem backing s's temp directory.
// Temp artifacts of long merges can be large, so the health endpoint exposes it.
func (s *LocalStorage) DiskUsage() (Usage, error) {
	u, err := disk.Usage(s.tempDir)
	if err != nil {
		return Usage{}, &FilesystemError{Op: "statfs", Path: s.tempDir, Err: err}
	}
	return Usage{
		Path:        s.tempDir,
		TotalBytes:  u.Total,
		FreeBytes:   u.Free,
		UsedPercent: u.UsedPercent,
	}, nil
}
