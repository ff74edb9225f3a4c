package router

import (
	"costwatch/internal/handler"

	"github.com/gin-gonic/gin"
)

type CostRouter struct {
	costHandler *handler.CostHandler
}

func NewCostRouter(costHandler *handler.CostHandler) *CostRouter {
	return &CostRouter{costHandler: costHandler}
}

// RegisterRoutes 成本查詢 API（外部閘道使用）
func (costRouter *CostRouter) RegisterRoutes(r *gin.Engine) {
	g := r.Group("/api/costs")
	{
		g.GET("/summary", costRouter.costHandler.GetSummary)
		g.GET("/trend", costRouter.costHandler.GetDailyTrend)
		g.GET("/today", costRouter.costHandler.GetToday)
		g.GET("/llm/by-agent-type", costRouter.costHandler.GetLLMByAgentType)
		g.GET("/llm/by-model", costRouter.costHandler.GetLLMByModel)
		g.GET("/embedding/by-domain", costRouter.costHandler.GetEmbeddingByDomain)
	}
}

type BudgetRouter struct {
	budgetHandler *handler.BudgetHandler
}

func NewBudgetRouter(budgetHandler *handler.BudgetHandler) *BudgetRouter {
	return &BudgetRouter{budgetHandler: budgetHandler}
}

// RegisterRoutes 預算狀態與門檻設定 API
func (budgetRouter *BudgetRouter) RegisterRoutes(r *gin.Engine) {
	g := r.Group("/api/budget")
	{
		g.GET("/status", budgetRouter.budgetHandler.GetStatus)
		g.PUT("/thresholds", budgetRouter.budgetHandler.UpdateThresholds)
	}
}
