package model

// BudgetAlertLog 門檻突破通知（轉送 Fluentd，僅回報不阻擋）
type BudgetAlertLog struct {
	Period       string `json:"period"` // daily / monthly
	TotalUSD     string `json:"total_usd"`
	ThresholdUSD string `json:"threshold_usd"`
	ServiceName  string `json:"service_name"`
	Version      string `json:"version"`
	FiredAt      string `json:"fired_at"`
	LoggedAt     string `json:"logged_at"`
}

// RejectedEventLog 驗證失敗被拒收的成本事件稽核紀錄
type RejectedEventLog struct {
	Reason     string `json:"reason"`
	Detail     string `json:"detail"`
	RawPayload string `json:"raw_payload,omitempty"`
	RejectedAt string `json:"rejected_at"`
	Version    string `json:"version"`
	LoggedAt   string `json:"logged_at"`
}
