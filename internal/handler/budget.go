package handler

import (
	"costwatch/internal/dto"
	"costwatch/internal/pkg/response"
	"costwatch/internal/service"
	"costwatch/internal/telemetry"
	"costwatch/utils/validate"

	"github.com/gin-gonic/gin"
)

type BudgetHandler struct {
	trace         *telemetry.Trace
	budgetService *service.BudgetService
}

func NewBudgetHandler(trace *telemetry.Trace, budgetService *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{trace: trace, budgetService: budgetService}
}

// GetStatus 即時預算狀態
// @Summary 取得即時預算狀態（記憶體快照）
// @Tags Budget
// @Produce json
// @Success 200 {object} dto.BudgetStatus
// @Failure 500 {object} map[string]string
// @Router /api/budget/status [get]
func (h *BudgetHandler) GetStatus(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	status, err := h.budgetService.GetStatus(ctx)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, status)
}

// UpdateThresholds 更新預算門檻
// @Summary 更新每日/每月預算門檻（部分更新）
// @Tags Budget
// @Accept json
// @Produce json
// @Param body body dto.UpdateThresholdsDto true "thresholds"
// @Success 200 {object} dto.BudgetThresholds
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/budget/thresholds [put]
func (h *BudgetHandler) UpdateThresholds(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)
	defer end(nil)

	var req dto.UpdateThresholdsDto
	if cause, respErr := validate.BindAndValidate(c, &req); cause != nil {
		end(cause)
		response.AbortWithError(c, respErr)
		return
	}

	updated, err := h.budgetService.UpdateThresholds(ctx, &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, updated)
}
