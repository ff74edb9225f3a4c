package core

// ─── Database Types ────────────────────────────────────────────────────────────

// DatabaseType defines the type of database
type DatabaseType string

const (
	Mongo DatabaseType = "mongo"
	Redis DatabaseType = "redis"
)

// Databases contains all supported database types
var Databases = []DatabaseType{Mongo, Redis}

type MongoDatabaseName string
type MongoCollection string
type RedisKey string
type RedisChannel string
type FluentdSubTag string

// ─── MongoDB ───────────────────────────────────────────────────────────────────
const (
	MongoDBCostwatch MongoDatabaseName = "costwatch"
)

// MongoDB collections
const (
	MongoCollectionCostEvents       MongoCollection = "costwatch_cost_events"
	MongoCollectionBudgetThresholds MongoCollection = "costwatch_budget_thresholds"
)

// ThresholdConfigID 門檻設定為單例文件，固定 _id
const ThresholdConfigID = "budget_thresholds"

// ─── Redis ─────────────────────────────────────────────────────────────────────

const (
	RedisKeyServerName RedisKey = "costwatch" // 伺服器名稱

	// RedisChannelCostEvents 各服務發布成本事件的 pub/sub channel
	RedisChannelCostEvents RedisChannel = "costwatch:cost_events"
)

// ─── Fluentd ───────────────────────────────────────────────────────────────────

const (
	FluentdBudgetAlert   FluentdSubTag = "budget_alert_log"
	FluentdEventRejected FluentdSubTag = "cost_event_rejected_log"
)
