package config

type Cost struct {
	// 成本事件保留天數；0 代表不過期（不建 TTL 索引）
	RetentionDays int `mapstructure:"RETENTION_DAYS" json:"retention_days" yaml:"retentionDays"`
	// 訂閱的成本事件 channel；空值使用預設
	EventChannel string `mapstructure:"EVENT_CHANNEL" json:"event_channel" yaml:"eventChannel"`
}
