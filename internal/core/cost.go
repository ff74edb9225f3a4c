package core

// ─── Cost Types ─────────────────────────────────────────────────────────────────

// CostType 成本事件種類
type CostType string

const (
	CostTypeLLM       CostType = "llm"
	CostTypeDocument  CostType = "document"
	CostTypeEmbedding CostType = "embedding"
	CostTypeMessaging CostType = "messaging"
)

// CostTypes contains all supported cost types
var CostTypes = []CostType{CostTypeLLM, CostTypeDocument, CostTypeEmbedding, CostTypeMessaging}

// CostUnit 計費單位
type CostUnit string

const (
	CostUnitTokens   CostUnit = "tokens"
	CostUnitPages    CostUnit = "pages"
	CostUnitMessages CostUnit = "messages"
	CostUnitQueries  CostUnit = "queries"
)

// costUnitWhitelist 固定的 (cost_type, unit) 白名單；不在表內的組合一律拒收
var costUnitWhitelist = map[CostType]CostUnit{
	CostTypeLLM:       CostUnitTokens,
	CostTypeDocument:  CostUnitPages,
	CostTypeEmbedding: CostUnitQueries,
	CostTypeMessaging: CostUnitMessages,
}

// IsValidCostType 檢查成本種類
func IsValidCostType(costType string) bool {
	_, ok := costUnitWhitelist[CostType(costType)]
	return ok
}

// IsValidCostUnitPair 檢查 (cost_type, unit) 是否為合法組合
func IsValidCostUnitPair(costType CostType, unit CostUnit) bool {
	expected, ok := costUnitWhitelist[costType]
	return ok && expected == unit
}

// BudgetPeriod 預算週期種類
type BudgetPeriod string

const (
	BudgetPeriodDaily   BudgetPeriod = "daily"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
)
