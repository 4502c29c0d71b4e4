package app

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/talkincode/prodcatalog/internal/catalog"
)

const (
	defaultStatsInterval = 5 * time.Minute
	statsTaskTimeout     = 30 * time.Second
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ProcessStats resource usage sampled by the monitor job
type ProcessStats struct {
	CPUPercent       float64 `json:"cpuPercent"`
	MemRSSMB         uint64  `json:"memRssMb"`
	SystemCPUPercent float64 `json:"systemCpuPercent"`
	SystemMemUsedMB  uint64  `json:"systemMemUsedMb"`
}

// jobState keeps the latest job results
type jobState struct {
	mu        sync.RWMutex
	stats     catalog.Stats
	statsAt   time.Time
	process   ProcessStats
	processAt time.Time
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// StartBackgroundJobs schedules the catalog stats and process monitor jobs
func (a *Application) StartBackgroundJobs() error {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(zap.L())))),
	)

	interval := a.appConfig.Jobs.StatsInterval
	if interval <= 0 {
		interval = defaultStatsInterval
	}
	if _, err = a.sched.AddFunc("@every "+interval.String(), a.SchedCatalogStatsTask); err != nil {
		zap.S().Errorf("init job error %s", err.Error())
		return err
	}
	if _, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedProcessMonitorTask()
	}); err != nil {
		zap.S().Errorf("init job error %s", err.Error())
		return err
	}

	a.sched.Start()
	return nil
}

// SchedCatalogStatsTask summarizes the catalog and logs the result
func (a *Application) SchedCatalogStatsTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), statsTaskTimeout)
	defer cancel()
	s, err := a.catalogService.Stats(ctx)
	if err != nil {
		zap.L().Error("catalog stats failed", zap.Error(err))
		return
	}

	a.jobs.mu.Lock()
	a.jobs.stats = s
	a.jobs.statsAt = time.Now()
	a.jobs.mu.Unlock()

	zap.L().Info("catalog stats",
		zap.Int("products", s.Products),
		zap.Int("featured", s.Featured),
		zap.Int("rated", s.Rated),
		zap.Float64("mean_price", s.MeanPrice),
		zap.Float64("median_price", s.MedianPrice),
		zap.Float64("max_price", s.MaxPrice),
		zap.Float64("mean_rating", s.MeanRating))
}

// LastCatalogStats result of the latest stats run, zero time before the first
func (a *Application) LastCatalogStats() (catalog.Stats, time.Time) {
	a.jobs.mu.RLock()
	defer a.jobs.mu.RUnlock()
	return a.jobs.stats, a.jobs.statsAt
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	var sample ProcessStats
	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		sample.SystemCPUPercent = _cpuuse[0]
	}
	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		sample.SystemMemUsedMB = _meminfo.Used / 1024 / 1024
	}

	a.jobs.mu.Lock()
	a.jobs.process.SystemCPUPercent = sample.SystemCPUPercent
	a.jobs.process.SystemMemUsedMB = sample.SystemMemUsedMB
	a.jobs.mu.Unlock()
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}

	cpuuse, cerr := p.CPUPercent()
	meminfo, merr := p.MemoryInfo()

	a.jobs.mu.Lock()
	if cerr == nil {
		a.jobs.process.CPUPercent = cpuuse
	}
	if merr == nil {
		a.jobs.process.MemRSSMB = meminfo.RSS / 1024 / 1024
	}
	a.jobs.processAt = time.Now()
	sample := a.jobs.process
	a.jobs.mu.Unlock()

	zap.L().Debug("process usage",
		zap.Float64("cpu_percent", sample.CPUPercent),
		zap.Uint64("rss_mb", sample.MemRSSMB))
}

// LastProcessStats latest resource sample, zero time before the first
func (a *Application) LastProcessStats() (ProcessStats, time.Time) {
	a.jobs.mu.RLock()
	defer a.jobs.mu.RUnlock()
	return a.jobs.process, a.jobs.processAt
}
