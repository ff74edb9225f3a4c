package cron

import (
	"context"
	"time"

	"costwatch/internal/monitor"

	"github.com/google/wire"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ProviderSet = wire.NewSet(NewCron)

type Cron struct {
	logger  *zap.Logger
	server  *cron.Cron
	monitor *monitor.BudgetMonitor
}

// NewCron .
func NewCron(logger *zap.Logger, budgetMonitor *monitor.BudgetMonitor) *Cron {
	// 預算週期以 UTC 為準，排程也用 UTC
	server := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.UTC),
	)

	return &Cron{
		logger:  logger,
		server:  server,
		monitor: budgetMonitor,
	}
}

func (c *Cron) Run() error {
	// 每分鐘檢查一次週期邊界：ingestion 閒置時也要翻日/翻月
	if _, err := c.server.AddFunc("0 * * * * *", c.monitor.Rollover); err != nil {
		return err
	}
	// 每日 00:01 (UTC) 記錄狀態快照，留下前一日收盤後的稽核軌跡
	if _, err := c.server.AddFunc("0 1 0 * * *", c.logDailyStatus); err != nil {
		return err
	}

	c.server.Start()
	return nil
}

func (c *Cron) logDailyStatus() {
	status := c.monitor.GetStatus()
	c.logger.Info("daily budget status",
		zap.String("daily_total_usd", status.DailyTotalUSD),
		zap.String("monthly_total_usd", status.MonthlyTotalUSD),
		zap.Uint64("events_processed", status.EventsProcessed),
	)
}

func (c *Cron) Stop(ctx context.Context) error {
	c.server.Stop()
	return nil
}
