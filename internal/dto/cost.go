package dto

import (
	"time"
)

// CostEventInput 來自事件匯流排的單筆成本事件（JSON 格式）
type CostEventInput struct {
	ID            string         `json:"id"`
	CostType      string         `json:"cost_type" validate:"required,oneof=llm document embedding messaging"`
	AmountUSD     string         `json:"amount_usd" validate:"required"`
	Quantity      int64          `json:"quantity" validate:"gte=0"`
	Unit          string         `json:"unit" validate:"required,oneof=tokens pages messages queries"`
	Timestamp     time.Time      `json:"timestamp"`
	SourceService string         `json:"source_service" validate:"required"`
	Success       *bool          `json:"success"`
	Metadata      map[string]any `json:"metadata"`

	// 選填的歸因欄位（稀疏索引）
	FactoryID       string `json:"factory_id"`
	RequestID       string `json:"request_id"`
	AgentType       string `json:"agent_type"`
	Model           string `json:"model"`
	KnowledgeDomain string `json:"knowledge_domain"`
}

// CostTypeSummary 依種類彙總的單列結果
type CostTypeSummary struct {
	CostType          string  `json:"cost_type"`
	TotalCostUSD      string  `json:"total_cost_usd"`
	TotalQuantity     int64   `json:"total_quantity"`
	RequestCount      int64   `json:"request_count"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
}

// CostSummaryResponse 彙總查詢回應；DataAvailableFrom 用來區分「真的沒花費」與「資料已過期」
type CostSummaryResponse struct {
	From              time.Time         `json:"from"`
	To                time.Time         `json:"to"`
	TotalCostUSD      string            `json:"total_cost_usd"`
	ByType            []CostTypeSummary `json:"by_type"`
	DataAvailableFrom *time.Time        `json:"data_available_from,omitempty"`
}

// DailyCostPoint 單日成本（含各種類小計）
type DailyCostPoint struct {
	Date         string            `json:"date"`
	TotalCostUSD string            `json:"total_cost_usd"`
	ByType       map[string]string `json:"by_type"`
}

// LLMCostByAttribution llm 成本依歸因欄位（agent_type / model）分組的單列結果
type LLMCostByAttribution struct {
	Key          string `json:"key"`
	TotalCostUSD string `json:"total_cost_usd"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	TotalTokens  int64  `json:"total_tokens"`
	RequestCount int64  `json:"request_count"`
}

// EmbeddingCostByDomain embedding 成本依 knowledge_domain 分組的單列結果
type EmbeddingCostByDomain struct {
	KnowledgeDomain string `json:"knowledge_domain"`
	TotalCostUSD    string `json:"total_cost_usd"`
	TotalQueries    int64  `json:"total_queries"`
	RequestCount    int64  `json:"request_count"`
}

// RejectedEvent 驗證失敗而被丟棄的事件（稽核用，絕不落地）
type RejectedEvent struct {
	Reason     string    `json:"reason"`
	Detail     string    `json:"detail"`
	RawPayload string    `json:"raw_payload"`
	RejectedAt time.Time `json:"rejected_at"`
}

// CurrentPeriodCost 本日／本月至今的總花費
type CurrentPeriodCost struct {
	PeriodStart  time.Time `json:"period_start"`
	TotalCostUSD string    `json:"total_cost_usd"`
}
