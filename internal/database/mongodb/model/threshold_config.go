package model

import "time"

// ThresholdConfig 預算門檻設定；全部署單例（固定 _id），支援部分更新
// 金額同樣以字串保存
type ThresholdConfig struct {
	ID                  string    `bson:"_id" json:"id"`
	DailyThresholdUSD   *string   `bson:"daily_threshold_usd,omitempty" json:"daily_threshold_usd,omitempty"`
	MonthlyThresholdUSD *string   `bson:"monthly_threshold_usd,omitempty" json:"monthly_threshold_usd,omitempty"`
	UpdatedAt           time.Time `bson:"updatedAt" json:"updated_at"`
}
