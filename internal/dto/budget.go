package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetThresholds 預算門檻；nil 代表未設限
type BudgetThresholds struct {
	DailyUSD   *decimal.Decimal `json:"daily_threshold_usd,omitempty"`
	MonthlyUSD *decimal.Decimal `json:"monthly_threshold_usd,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// UpdateThresholdsDto 部分更新請求；缺漏欄位保持原值
type UpdateThresholdsDto struct {
	DailyUSD   *string `json:"daily_threshold_usd"`
	MonthlyUSD *string `json:"monthly_threshold_usd"`
}

// BudgetStatus BudgetMonitor 即時狀態快照
type BudgetStatus struct {
	DailyTotalUSD         string            `json:"daily_total_usd"`
	DailyThresholdUSD     *string           `json:"daily_threshold_usd"`
	DailyUtilizationPct   float64           `json:"daily_utilization_pct"`
	MonthlyTotalUSD       string            `json:"monthly_total_usd"`
	MonthlyThresholdUSD   *string           `json:"monthly_threshold_usd"`
	MonthlyUtilizationPct float64           `json:"monthly_utilization_pct"`
	DailyAlertFired       bool              `json:"daily_alert_fired"`
	MonthlyAlertFired     bool              `json:"monthly_alert_fired"`
	DailyByType           map[string]string `json:"daily_by_type"`
	EventsProcessed       uint64            `json:"events_processed"`
}

// BudgetAlert 門檻突破通知（僅回報，不阻擋流量）
type BudgetAlert struct {
	Period       string    `json:"period"` // daily / monthly
	TotalUSD     string    `json:"total_usd"`
	ThresholdUSD string    `json:"threshold_usd"`
	FiredAt      time.Time `json:"fired_at"`
}
