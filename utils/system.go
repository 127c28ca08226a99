package utils

import (
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
)

// GetOptimalWorkerCount determines how many scrape workers to run based on
// config and system resources.
func GetOptimalWorkerCount(configValue string) int {
	// 1. Check for manual override
	if manualWorkers, err := strconv.Atoi(configValue); err == nil && manualWorkers > 0 {
		zap.L().Info("using manually configured worker count", zap.Int("workers", manualWorkers))
		return manualWorkers
	}

	// 2. If set to "auto" or invalid, calculate automatically
	if configValue != "auto" && configValue != "" {
		zap.L().Warn("invalid workers value, defaulting to auto", zap.String("value", configValue))
	}

	// Logical cores (true) because crawling is mostly I/O bound and
	// hyper-threading helps there.
	cpuCores, err := cpu.Counts(true)
	if err != nil {
		zap.L().Warn("could not detect CPU cores, falling back to 2 workers", zap.Error(err))
		return 2
	}

	// Half of the available cores keeps browser instances from
	// overwhelming the machine.
	optimalCount := cpuCores / 2
	if optimalCount < 1 {
		optimalCount = 1
	}
	if optimalCount > 16 {
		optimalCount = 16
	}

	zap.L().Info("auto-sized worker pool", zap.Int("cores", cpuCores), zap.Int("workers", optimalCount))
	return optimalCount
}
