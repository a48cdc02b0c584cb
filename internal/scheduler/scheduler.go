// Package scheduler 负责一轮刷新的编排，以及按 cron 周期触发刷新
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/LJTian/PautaFacil/internal/logger"
	"github.com/robfig/cron/v3"
)

// DefaultStartupDelay 启动后首轮刷新前的等待，让 HTTP 服务先起来
const DefaultStartupDelay = 2 * time.Second

// Refresher 由 Orchestrator 实现
type Refresher interface {
	Refresh(ctx context.Context) (*CycleReport, error)
}

// Scheduler 外部定时触发器，自身不持有任何刷新状态
type Scheduler struct {
	cron         *cron.Cron
	refresher    Refresher
	log          logger.Interface
	startupDelay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func New(spec string, r Refresher, log logger.Interface) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	c := cron.New()

	s := &Scheduler{
		cron:         c,
		refresher:    r,
		log:          log,
		startupDelay: DefaultStartupDelay,
	}

	_, err := c.AddFunc(spec, s.runOnce)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// SetStartupDelay 小于 0 时不做启动后的首轮刷新
func (s *Scheduler) SetStartupDelay(d time.Duration) {
	s.startupDelay = d
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.startupDelay < 0 {
		return
	}
	s.mu.Lock()
	s.timer = time.AfterFunc(s.startupDelay, s.runOnce)
	s.mu.Unlock()
}

// Stop 停止定时器并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	report, err := s.refresher.Refresh(context.Background())
	if errors.Is(err, ErrCycleInFlight) {
		s.log.Info("scheduled refresh skipped, previous cycle still running")
		return
	}
	if err != nil {
		s.log.Error("scheduled refresh failed", "error", err)
		return
	}
	ok, failed := report.Counts()
	s.log.Info("scheduled refresh done", "cycle", report.Cycle, "ok", ok, "failed", failed)
}
