package model

import (
	"time"

	"costwatch/internal/core"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CostEvent 單筆成本事件；事件不可變，寫入後僅由 TTL 索引自動過期
// amount_usd 以字串保存，避免二進位浮點數精度流失
type CostEvent struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID       string             `bson:"event_id" json:"event_id"`
	CostType      core.CostType      `bson:"cost_type" json:"cost_type"`
	AmountUSD     string             `bson:"amount_usd" json:"amount_usd"`
	Quantity      int64              `bson:"quantity" json:"quantity"`
	Unit          core.CostUnit      `bson:"unit" json:"unit"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
	SourceService string             `bson:"source_service" json:"source_service"`
	Success       bool               `bson:"success" json:"success"`
	Metadata      map[string]any     `bson:"metadata,omitempty" json:"metadata,omitempty"`

	// 歸因欄位（選填；稀疏索引）
	FactoryID       string `bson:"factory_id,omitempty" json:"factory_id,omitempty"`
	RequestID       string `bson:"request_id,omitempty" json:"request_id,omitempty"`
	AgentType       string `bson:"agent_type,omitempty" json:"agent_type,omitempty"`
	Model           string `bson:"model,omitempty" json:"model,omitempty"`
	KnowledgeDomain string `bson:"knowledge_domain,omitempty" json:"knowledge_domain,omitempty"`
}
