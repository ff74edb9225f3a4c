package config

// MongoDB 成本事件與門檻設定的儲存層連線設定
type MongoDB struct {
	URI     string `mapstructure:"URI" json:"uri" yaml:"uri"`
	Options string `mapstructure:"OPTIONS" json:"options" yaml:"options"`
}
