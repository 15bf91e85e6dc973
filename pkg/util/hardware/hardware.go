package hardware

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/lk2023060901/persistence-go/pkg/log"
)

// GetCPUNum 返回可用的逻辑 CPU 数，至少为 1。
// GOMAXPROCS 已被 automaxprocs 按容器配额调整时，以较小者为准。
func GetCPUNum() int {
	n := runtime.GOMAXPROCS(0)
	cnt, err := cpu.Counts(true)
	if err != nil {
		log.L().Warn("failed to get cpu counts", zap.Error(err))
		return max(n, 1)
	}
	return max(min(n, cnt), 1)
}

// DiskUsage 描述某个路径所在文件系统的空间占用。
type DiskUsage struct {
	Path        string  `json:"path" yaml:"path"`
	Total       uint64  `json:"total" yaml:"total"`
	Free        uint64  `json:"free" yaml:"free"`
	Used        uint64  `json:"used" yaml:"used"`
	UsedPercent float64 `json:"usedPercent" yaml:"usedPercent"`
}

// GetDiskUsage 返回 path 所在分区的使用情况。
func GetDiskUsage(path string) (DiskUsage, error) {
	stat, err := disk.Usage(path)
	if err != nil {
		return DiskUsage{}, err
	}
	return DiskUsage{
		Path:        stat.Path,
		Total:       stat.Total,
		Free:        stat.Free,
		Used:        stat.Used,
		UsedPercent: stat.UsedPercent,
	}, nil
}
