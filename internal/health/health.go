package health

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db        Pinger
	redisUp   func() bool
	startedAt time.Time
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database ComponentHealth `json:"database"`
	Redis    ComponentHealth `json:"redis"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms,omitempty"`
}

type DetailedStatus struct {
	HealthStatus
	UptimeSeconds int64      `json:"uptime_seconds"`
	Goroutines    int        `json:"goroutines"`
	Host          HostHealth `json:"host"`
}

type HostHealth struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskFreeGB    float64 `json:"disk_free_gb"`
}

// NewHealthChecker builds a checker; redisUp may be nil when Redis is not used
func NewHealthChecker(db Pinger, redisUp func() bool) *HealthChecker {
	return &HealthChecker{db: db, redisUp: redisUp, startedAt: time.Now()}
}

// CheckBasic reports unhealthy only when the database is down. Redis is an
// optional cache, so its state is informational.
func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := h.checkDatabase()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
		Redis:    h.checkRedis(),
	}
}

func (h *HealthChecker) CheckDetailed() DetailedStatus {
	return DetailedStatus{
		HealthStatus:  h.CheckBasic(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		Host:          hostHealth(),
	}
}

func (h *HealthChecker) checkDatabase() ComponentHealth {
	if h.db == nil {
		return ComponentHealth{Status: "unhealthy"}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{Status: "unhealthy", ResponseTime: responseTime}
	}
	return ComponentHealth{Status: "healthy", ResponseTime: responseTime}
}

func (h *HealthChecker) checkRedis() ComponentHealth {
	if h.redisUp == nil {
		return ComponentHealth{Status: "disabled"}
	}
	start := time.Now()
	up := h.redisUp()
	responseTime := time.Since(start).Milliseconds()
	if !up {
		return ComponentHealth{Status: "unavailable", ResponseTime: responseTime}
	}
	return ComponentHealth{Status: "healthy", ResponseTime: responseTime}
}

// hostHealth samples host figures; fields stay zero where the platform
// does not expose them
func hostHealth() HostHealth {
	var hh HostHealth
	if cpuPercents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercents) > 0 {
		hh.CPUPercent = cpuPercents[0]
	}
	if memStats, err := mem.VirtualMemory(); err == nil {
		hh.MemoryPercent = memStats.UsedPercent
		hh.MemoryUsedMB = memStats.Used / 1024 / 1024
		hh.MemoryTotalMB = memStats.Total / 1024 / 1024
	}
	if diskStats, err := disk.Usage("/"); err == nil {
		hh.DiskPercent = diskStats.UsedPercent
		hh.DiskFreeGB = float64(diskStats.Free) / 1024 / 1024 / 1024
	}
	return hh
}
