package metrics

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"papermesh/logger"
)

// SystemCollector 周期性采集主机资源指标
type SystemCollector struct {
	interval time.Duration
}

// NewSystemCollector 创建系统指标采集器
func NewSystemCollector(intervalSeconds int) *SystemCollector {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}
	return &SystemCollector{interval: time.Duration(intervalSeconds) * time.Second}
}

// Start 启动采集循环，ctx 取消后退出
func (c *SystemCollector) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.collect()
			}
		}
	}()
	logger.Info("✅ 系统指标采集已启动 (间隔 %v)", c.interval)
}

func (c *SystemCollector) collect() {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		SystemCPUPercent.Set(percents[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		SystemMemoryPercent.Set(vm.UsedPercent)
		SystemMemoryUsedMB.Set(float64(vm.Used) / 1024 / 1024)
	}
}
