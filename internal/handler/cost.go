package handler

import (
	cErr "costwatch/internal/pkg/error"
	"costwatch/internal/pkg/response"
	"costwatch/internal/service"
	"costwatch/internal/telemetry"
	"costwatch/utils/validate"

	"github.com/gin-gonic/gin"
)

type CostHandler struct {
	trace       *telemetry.Trace
	costService *service.CostService
}

func NewCostHandler(trace *telemetry.Trace, costService *service.CostService) *CostHandler {
	return &CostHandler{trace: trace, costService: costService}
}

// daysQuery 讀取 ?days= 查詢參數；缺漏回 0（service 端套預設值）
func daysQuery(c *gin.Context) (int64, error) {
	return validate.GetInt64Query(c, "days", 0)
}

// GetSummary 依種類彙總的花費
// @Summary 取得時間窗內各種類的花費與占比
// @Tags Costs
// @Produce json
// @Param days query int false "Window size in days (default 30)"
// @Success 200 {object} dto.CostSummaryResponse
// @Failure 500 {object} map[string]string
// @Router /api/costs/summary [get]
func (h *CostHandler) GetSummary(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	days, cause := daysQuery(c)
	if cause != nil {
		end(cause)
		response.AbortWithError(c, cErr.BadRequestParams("invalid days"))
		return
	}

	summary, err := h.costService.GetSummary(ctx, days)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, summary)
}

// GetDailyTrend 每日花費走勢
// @Summary 取得最近 N 天的每日花費（日期升冪）
// @Tags Costs
// @Produce json
// @Param days query int false "Window size in days (default 30)"
// @Success 200 {array} dto.DailyCostPoint
// @Failure 500 {object} map[string]string
// @Router /api/costs/trend [get]
func (h *CostHandler) GetDailyTrend(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	days, cause := daysQuery(c)
	if cause != nil {
		end(cause)
		response.AbortWithError(c, cErr.BadRequestParams("invalid days"))
		return
	}

	points, err := h.costService.GetDailyTrend(ctx, days)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, points)
}

// GetToday 本日至今的花費
// @Summary 取得本日（UTC）至今的總花費
// @Tags Costs
// @Produce json
// @Success 200 {object} dto.CurrentPeriodCost
// @Failure 500 {object} map[string]string
// @Router /api/costs/today [get]
func (h *CostHandler) GetToday(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	today, err := h.costService.GetTodayCost(ctx)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, today)
}

// GetLLMByAgentType llm 花費依 agent_type 分組
// @Summary 取得 llm 花費依 agent_type 的分組彙總
// @Tags Costs
// @Produce json
// @Param days query int false "Window size in days (default 30)"
// @Success 200 {array} dto.LLMCostByAttribution
// @Failure 500 {object} map[string]string
// @Router /api/costs/llm/by-agent-type [get]
func (h *CostHandler) GetLLMByAgentType(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	days, cause := daysQuery(c)
	if cause != nil {
		end(cause)
		response.AbortWithError(c, cErr.BadRequestParams("invalid days"))
		return
	}

	rows, err := h.costService.GetLLMCostByAgentType(ctx, days)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, rows)
}

// GetLLMByModel llm 花費依 model 分組
// @Summary 取得 llm 花費依 model 的分組彙總
// @Tags Costs
// @Produce json
// @Param days query int false "Window size in days (default 30)"
// @Success 200 {array} dto.LLMCostByAttribution
// @Failure 500 {object} map[string]string
// @Router /api/costs/llm/by-model [get]
func (h *CostHandler) GetLLMByModel(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	days, cause := daysQuery(c)
	if cause != nil {
		end(cause)
		response.AbortWithError(c, cErr.BadRequestParams("invalid days"))
		return
	}

	rows, err := h.costService.GetLLMCostByModel(ctx, days)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, rows)
}

// GetEmbeddingByDomain embedding 花費依 knowledge_domain 分組
// @Summary 取得 embedding 花費依 knowledge_domain 的分組彙總
// @Tags Costs
// @Produce json
// @Param days query int false "Window size in days (default 30)"
// @Success 200 {array} dto.EmbeddingCostByDomain
// @Failure 500 {object} map[string]string
// @Router /api/costs/embedding/by-domain [get]
func (h *CostHandler) GetEmbeddingByDomain(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	days, cause := daysQuery(c)
	if cause != nil {
		end(cause)
		response.AbortWithError(c, cErr.BadRequestParams("invalid days"))
		return
	}

	rows, err := h.costService.GetEmbeddingCostByDomain(ctx, days)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, rows)
}
