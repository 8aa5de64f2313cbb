package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper 周期性清理已过期的记录
// 清理是尽力而为的后台任务，业务侧的存活判断不依赖它，
// 始终以 expires_at 的显式比较为准。
type Sweeper struct {
	store    LinkStore
	interval time.Duration
	stopChan chan struct{}
	logger   *zap.SugaredLogger
}

// NewSweeper 创建清理器
func NewSweeper(store LinkStore, interval time.Duration, logger *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
		logger:   logger.Named("expiry_sweeper"),
	}
}

// Start 启动后台清理任务
func (s *Sweeper) Start() {
	s.logger.Infof("启动过期清理任务，周期 %s", s.interval)
	go s.run()
}

// Stop 停止清理任务
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			s.logger.Info("过期清理任务已停止")
			return
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	purged, err := s.store.PurgeExpired(ctx, time.Now())
	if err != nil {
		s.logger.Errorf("清理过期记录失败: %v", err)
		return
	}
	if purged > 0 {
		s.logger.Infof("已清理 %d 条过期记录", purged)
	}
}
