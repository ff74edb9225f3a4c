package service

import (
	"context"

	"costwatch/internal/dto"
	"costwatch/internal/monitor"
	cErr "costwatch/internal/pkg/error"
	"costwatch/internal/telemetry"

	"github.com/shopspring/decimal"
)

type BudgetService struct {
	trace   *telemetry.Trace
	monitor *monitor.BudgetMonitor
}

func NewBudgetService(trace *telemetry.Trace, budgetMonitor *monitor.BudgetMonitor) *BudgetService {
	return &BudgetService{trace: trace, monitor: budgetMonitor}
}

// 即時預算狀態（監視器記憶體快照，不打資料庫）
func (s *BudgetService) GetStatus(ctx context.Context) (*dto.BudgetStatus, error) {
	_, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	status := s.monitor.GetStatus()
	return &status, nil
}

// 更新預算門檻（部分更新；負值拒絕、保留原設定）
func (s *BudgetService) UpdateThresholds(ctx context.Context, req *dto.UpdateThresholdsDto) (*dto.BudgetThresholds, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	daily, parseError := parseThreshold(req.DailyUSD, "daily_threshold_usd")
	if parseError != nil {
		return nil, parseError
	}
	monthly, parseError := parseThreshold(req.MonthlyUSD, "monthly_threshold_usd")
	if parseError != nil {
		return nil, parseError
	}
	if daily == nil && monthly == nil {
		return nil, cErr.InvalidThresholdConfig("at least one threshold must be provided")
	}

	return s.monitor.UpdateThresholds(ctx, daily, monthly)
}

func parseThreshold(raw *string, field string) (*decimal.Decimal, *cErr.Error) {
	if raw == nil {
		return nil, nil
	}
	value, parseError := decimal.NewFromString(*raw)
	if parseError != nil {
		return nil, cErr.InvalidThresholdConfig(field + " is not a valid decimal: " + *raw)
	}
	if value.IsNegative() {
		return nil, cErr.InvalidThresholdConfig(field + " must not be negative")
	}
	return &value, nil
}
