package service

import (
	"context"
	"sync"

	"vtt-fusion/app/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler 定时批量转写调度器
// 配置了 cron 表达式时按计划触发，否则只响应 HTTP 触发
type Scheduler struct {
	logger *logger.Logger
	svc    *BatchService
	cron   *cron.Cron
	mu     sync.Mutex // 保证同一时刻只有一次定时运行
}

// NewScheduler 创建调度器
func NewScheduler(svc *BatchService, log *logger.Logger) *Scheduler {
	return &Scheduler{
		logger: log,
		svc:    svc,
	}
}

// Start 按 cron 表达式启动定时触发，表达式为空时不启动
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		s.logger.Infof("未配置定时计划，仅响应 HTTP 触发")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return err
	}
	s.cron.Start()

	s.logger.Infof("定时批量转写已启动, 计划: %s", spec)
	return nil
}

// Stop 停止定时触发并等待进行中的任务结束
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Infof("定时批量转写已停止")
}

// trigger 执行一次定时运行；上一次尚未结束时跳过本次
func (s *Scheduler) trigger() {
	if !s.mu.TryLock() {
		s.logger.Warnf("上一次批量运行尚未结束，跳过本次定时触发")
		return
	}
	defer s.mu.Unlock()

	summary, err := s.svc.Run(context.Background())
	if err != nil {
		s.logger.Errorf("定时批量转写失败: %v", err)
		return
	}
	s.logger.Infof("定时批量转写完成: 运行标识=%s, 成功=%d", summary.RunID, summary.Succeeded)
}
