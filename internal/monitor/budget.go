package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"costwatch/internal/core"
	"costwatch/internal/dto"
	cErr "costwatch/internal/pkg/error"
	"costwatch/internal/telemetry"

	"github.com/google/wire"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ProviderSet = wire.NewSet(NewBudgetMonitor)

// CostTotalsSource 暖機時取得本日／本月累計的權威來源（通常是 CostEventRepository）
type CostTotalsSource interface {
	GetCurrentDayCost(ctx context.Context) (decimal.Decimal, error)
	GetCurrentMonthCost(ctx context.Context) (decimal.Decimal, error)
}

// ThresholdStore 門檻設定的持久層（通常是 ThresholdRepository）
type ThresholdStore interface {
	Get(ctx context.Context) (*dto.BudgetThresholds, error)
	Set(ctx context.Context, dailyUSD, monthlyUSD *decimal.Decimal) (*dto.BudgetThresholds, error)
}

// AlertSink 門檻突破時的通知出口（Fluentd 轉送）；失敗只記 log，不影響記帳
type AlertSink interface {
	LogBudgetAlert(ctx context.Context, alert dto.BudgetAlert) error
}

// BudgetMonitor 行程內唯一的即時預算累計器
// 所有讀寫都在同一把 mutex 內完成：rollover 檢查與累加視為單一原子單位，
// 並發的 ingestion worker 不會重複套用 rollover 或遺失累加。
// 記憶體狀態不落地；重啟後由 WarmUp 從儲存層重建。
type BudgetMonitor struct {
	mu sync.Mutex

	logger     *zap.Logger
	thresholds ThresholdStore
	alertSink  AlertSink
	now        func() time.Time // 測試注入用

	dayAnchor   time.Time // 目前累計代表的 UTC 日（00:00）
	monthAnchor time.Time // 目前累計代表的 UTC 月（1 日 00:00）

	dailyTotal   decimal.Decimal
	monthlyTotal decimal.Decimal
	byTypeDaily  map[core.CostType]decimal.Decimal

	dailyThresholdUSD   *decimal.Decimal
	monthlyThresholdUSD *decimal.Decimal

	dailyAlertFired   bool
	monthlyAlertFired bool

	eventsProcessed uint64
	warmed          bool
}

func NewBudgetMonitor(logger *zap.Logger, thresholds ThresholdStore, alertSink AlertSink) *BudgetMonitor {
	return &BudgetMonitor{
		logger:       logger,
		thresholds:   thresholds,
		alertSink:    alertSink,
		now:          time.Now,
		dailyTotal:   decimal.Zero,
		monthlyTotal: decimal.Zero,
		byTypeDaily:  make(map[core.CostType]decimal.Decimal),
	}
}

// WarmUp 啟動時從儲存層重建累計；必須在 ingestion 開放前完成。
// 任一讀取失敗直接回傳錯誤讓啟動失敗——寧可拒絕服務也不要從歸零狀態開始記帳。
func (monitor *BudgetMonitor) WarmUp(ctx context.Context, totals CostTotalsSource) error {
	dayCost, dayError := totals.GetCurrentDayCost(ctx)
	if dayError != nil {
		return fmt.Errorf("warm up current day cost: %w", dayError)
	}
	monthCost, monthError := totals.GetCurrentMonthCost(ctx)
	if monthError != nil {
		return fmt.Errorf("warm up current month cost: %w", monthError)
	}
	thresholds, thresholdError := monitor.thresholds.Get(ctx)
	if thresholdError != nil {
		return fmt.Errorf("warm up thresholds: %w", thresholdError)
	}

	monitor.mu.Lock()
	defer monitor.mu.Unlock()

	nowUTC := monitor.now().UTC()
	monitor.dayAnchor = startOfUTCDay(nowUTC)
	monitor.monthAnchor = startOfUTCMonth(nowUTC)
	monitor.dailyTotal = dayCost
	monitor.monthlyTotal = monthCost
	monitor.byTypeDaily = make(map[core.CostType]decimal.Decimal)

	if thresholds != nil {
		monitor.dailyThresholdUSD = thresholds.DailyUSD
		monitor.monthlyThresholdUSD = thresholds.MonthlyUSD
	}

	// 暖機後若已超標，直接標記已觸發，避免重啟後重複告警
	monitor.dailyAlertFired = exceeds(monitor.dailyTotal, monitor.dailyThresholdUSD)
	monitor.monthlyAlertFired = exceeds(monitor.monthlyTotal, monitor.monthlyThresholdUSD)
	monitor.warmed = true

	monitor.logger.Info("budget monitor warmed up",
		zap.String("daily_total_usd", monitor.dailyTotal.String()),
		zap.String("monthly_total_usd", monitor.monthlyTotal.String()),
		zap.Bool("daily_alert_fired", monitor.dailyAlertFired),
		zap.Bool("monthly_alert_fired", monitor.monthlyAlertFired),
	)
	return nil
}

// RecordCost 累加單筆成本；先做 rollover 檢查，再累加，再判斷是否跨越門檻。
// 同一週期內只觸發一次 BREACHED 轉換；之後的事件只更新累計。
// 暖機完成前的事件一律丟棄：未重建的累計上記帳會低報當期總額。
func (monitor *BudgetMonitor) RecordCost(ctx context.Context, costType core.CostType, amountUSD decimal.Decimal) {
	monitor.mu.Lock()

	if !monitor.warmed {
		monitor.mu.Unlock()
		monitor.logger.Warn("cost recorded before warm up, dropped",
			zap.String("cost_type", string(costType)),
			zap.String("amount_usd", amountUSD.String()),
		)
		return
	}

	monitor.rolloverLocked()

	monitor.dailyTotal = monitor.dailyTotal.Add(amountUSD)
	monitor.monthlyTotal = monitor.monthlyTotal.Add(amountUSD)
	monitor.byTypeDaily[costType] = monitor.byTypeDaily[costType].Add(amountUSD)
	monitor.eventsProcessed++

	var fired []dto.BudgetAlert
	if !monitor.dailyAlertFired && exceeds(monitor.dailyTotal, monitor.dailyThresholdUSD) {
		monitor.dailyAlertFired = true
		fired = append(fired, dto.BudgetAlert{
			Period:       string(core.BudgetPeriodDaily),
			TotalUSD:     monitor.dailyTotal.String(),
			ThresholdUSD: monitor.dailyThresholdUSD.String(),
			FiredAt:      monitor.now().UTC(),
		})
	}
	if !monitor.monthlyAlertFired && exceeds(monitor.monthlyTotal, monitor.monthlyThresholdUSD) {
		monitor.monthlyAlertFired = true
		fired = append(fired, dto.BudgetAlert{
			Period:       string(core.BudgetPeriodMonthly),
			TotalUSD:     monitor.monthlyTotal.String(),
			ThresholdUSD: monitor.monthlyThresholdUSD.String(),
			FiredAt:      monitor.now().UTC(),
		})
	}
	monitor.mu.Unlock()

	// 告警通知在鎖外送出；sink 失敗不影響記帳
	for _, alert := range fired {
		monitor.logger.Warn("budget threshold breached",
			zap.String("period", alert.Period),
			zap.String("total_usd", alert.TotalUSD),
			zap.String("threshold_usd", alert.ThresholdUSD),
		)
		if monitor.alertSink != nil {
			if sinkError := monitor.alertSink.LogBudgetAlert(ctx, alert); sinkError != nil {
				monitor.logger.Error("failed to forward budget alert", zap.Error(sinkError))
			}
		}
	}
}

// Rollover 對外的週期檢查入口（cron 每分鐘呼叫，ingestion 閒置時也能翻日）
func (monitor *BudgetMonitor) Rollover() {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	monitor.rolloverLocked()
}

// rolloverLocked 與「目前」的 UTC 週期比對，不逐段重播錯過的邊界：
// 行程離線跨多個邊界後，anchor 直接跳到當前週期。
func (monitor *BudgetMonitor) rolloverLocked() {
	// 暖機前 anchor 尚未建立，沒有週期可翻
	if !monitor.warmed {
		return
	}
	nowUTC := monitor.now().UTC()

	currentDay := startOfUTCDay(nowUTC)
	if !currentDay.Equal(monitor.dayAnchor) {
		monitor.logger.Info("daily budget period rolled over",
			zap.Time("from", monitor.dayAnchor),
			zap.Time("to", currentDay),
			zap.String("closing_daily_total_usd", monitor.dailyTotal.String()),
		)
		monitor.dayAnchor = currentDay
		monitor.dailyTotal = decimal.Zero
		monitor.byTypeDaily = make(map[core.CostType]decimal.Decimal)
		monitor.dailyAlertFired = false
	}

	currentMonth := startOfUTCMonth(nowUTC)
	if !currentMonth.Equal(monitor.monthAnchor) {
		monitor.logger.Info("monthly budget period rolled over",
			zap.Time("from", monitor.monthAnchor),
			zap.Time("to", currentMonth),
			zap.String("closing_monthly_total_usd", monitor.monthlyTotal.String()),
		)
		monitor.monthAnchor = currentMonth
		monitor.monthlyTotal = decimal.Zero
		monitor.monthlyAlertFired = false
	}
}

// GetStatus 回傳即時狀態快照（先做 rollover 檢查，跨界後查詢不會看到舊週期）
func (monitor *BudgetMonitor) GetStatus() dto.BudgetStatus {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()

	monitor.rolloverLocked()

	status := dto.BudgetStatus{
		DailyTotalUSD:         monitor.dailyTotal.String(),
		DailyUtilizationPct:   utilizationPct(monitor.dailyTotal, monitor.dailyThresholdUSD),
		MonthlyTotalUSD:       monitor.monthlyTotal.String(),
		MonthlyUtilizationPct: utilizationPct(monitor.monthlyTotal, monitor.monthlyThresholdUSD),
		DailyAlertFired:       monitor.dailyAlertFired,
		MonthlyAlertFired:     monitor.monthlyAlertFired,
		DailyByType:           make(map[string]string, len(monitor.byTypeDaily)),
		EventsProcessed:       monitor.eventsProcessed,
	}
	if monitor.dailyThresholdUSD != nil {
		s := monitor.dailyThresholdUSD.String()
		status.DailyThresholdUSD = &s
	}
	if monitor.monthlyThresholdUSD != nil {
		s := monitor.monthlyThresholdUSD.String()
		status.MonthlyThresholdUSD = &s
	}
	for costType, total := range monitor.byTypeDaily {
		status.DailyByType[string(costType)] = total.String()
	}
	return status
}

// UpdateThresholds 更新門檻：先持久化再改記憶體狀態；持久化失敗時保留原設定。
// 門檻調高到目前累計之上時，對應的告警旗標會被清除（設定變更可以降級狀態）。
func (monitor *BudgetMonitor) UpdateThresholds(
	ctx context.Context,
	dailyUSD, monthlyUSD *decimal.Decimal,
) (*dto.BudgetThresholds, error) {

	if dailyUSD != nil && dailyUSD.IsNegative() {
		return nil, cErr.InvalidThresholdConfig("daily threshold must not be negative")
	}
	if monthlyUSD != nil && monthlyUSD.IsNegative() {
		return nil, cErr.InvalidThresholdConfig("monthly threshold must not be negative")
	}

	persisted, persistError := monitor.thresholds.Set(ctx, dailyUSD, monthlyUSD)
	if persistError != nil {
		return nil, persistError
	}

	monitor.mu.Lock()
	defer monitor.mu.Unlock()

	if dailyUSD != nil {
		monitor.dailyThresholdUSD = dailyUSD
		if monitor.dailyAlertFired && dailyUSD.GreaterThan(monitor.dailyTotal) {
			monitor.dailyAlertFired = false
		}
	}
	if monthlyUSD != nil {
		monitor.monthlyThresholdUSD = monthlyUSD
		if monitor.monthlyAlertFired && monthlyUSD.GreaterThan(monitor.monthlyTotal) {
			monitor.monthlyAlertFired = false
		}
	}

	monitor.logger.Info("budget thresholds updated",
		zap.Stringp("daily_usd", decimalStringP(monitor.dailyThresholdUSD)),
		zap.Stringp("monthly_usd", decimalStringP(monitor.monthlyThresholdUSD)),
	)
	return persisted, nil
}

// BudgetSnapshot 遙測收集器的拉取介面；gauge 用途，decimal 轉 float 可接受
func (monitor *BudgetMonitor) BudgetSnapshot() telemetry.BudgetSnapshot {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()

	snapshot := telemetry.BudgetSnapshot{
		DailyTotal:      monitor.dailyTotal.InexactFloat64(),
		MonthlyTotal:    monitor.monthlyTotal.InexactFloat64(),
		DailyUtilPct:    utilizationPct(monitor.dailyTotal, monitor.dailyThresholdUSD),
		MonthlyUtilPct:  utilizationPct(monitor.monthlyTotal, monitor.monthlyThresholdUSD),
		DailyByType:     make(map[string]float64, len(monitor.byTypeDaily)),
		EventsProcessed: monitor.eventsProcessed,
	}
	if monitor.dailyThresholdUSD != nil {
		snapshot.DailyThreshold = monitor.dailyThresholdUSD.InexactFloat64()
	}
	if monitor.monthlyThresholdUSD != nil {
		snapshot.MonthlyThreshold = monitor.monthlyThresholdUSD.InexactFloat64()
	}
	for costType, total := range monitor.byTypeDaily {
		snapshot.DailyByType[string(costType)] = total.InexactFloat64()
	}
	return snapshot
}

// Close 關機時輸出最終累計（記憶體狀態不落地，下次啟動由 WarmUp 重建）
func (monitor *BudgetMonitor) Close() {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	monitor.logger.Info("budget monitor shutting down",
		zap.String("daily_total_usd", monitor.dailyTotal.String()),
		zap.String("monthly_total_usd", monitor.monthlyTotal.String()),
		zap.Uint64("events_processed", monitor.eventsProcessed),
	)
}

// SetClock 測試注入時鐘；必須在啟動前呼叫
func (monitor *BudgetMonitor) SetClock(now func() time.Time) {
	monitor.now = now
}

// ─── helpers ───────────────────────────────────────────────────────────────────

func exceeds(total decimal.Decimal, thresholdUSD *decimal.Decimal) bool {
	return thresholdUSD != nil && total.GreaterThan(*thresholdUSD)
}

func utilizationPct(total decimal.Decimal, thresholdUSD *decimal.Decimal) float64 {
	if thresholdUSD == nil || thresholdUSD.IsZero() {
		return 0
	}
	return total.Div(*thresholdUSD).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

func decimalStringP(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}

func startOfUTCDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfUTCMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
