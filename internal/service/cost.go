package service

import (
	"context"
	"time"

	"costwatch/internal/database/mongodb/repository"
	"costwatch/internal/dto"
	cErr "costwatch/internal/pkg/error"
	"costwatch/internal/telemetry"

	"github.com/shopspring/decimal"
)

// 查詢天數的邊界（防止惡意或誤用的大範圍掃描）
const (
	defaultQueryDays = 30
	maxQueryDays     = 365
)

type CostService struct {
	trace    *telemetry.Trace
	costRepo *repository.CostEventRepository
}

func NewCostService(trace *telemetry.Trace, costRepo *repository.CostEventRepository) *CostService {
	return &CostService{trace: trace, costRepo: costRepo}
}

// clampDays 非法或缺漏的天數回退到預設值
func clampDays(days int64) int {
	if days <= 0 {
		return defaultQueryDays
	}
	if days > maxQueryDays {
		return maxQueryDays
	}
	return int(days)
}

// 依種類彙總最近 N 天的花費（含占比與資料可得起點）
func (s *CostService) GetSummary(ctx context.Context, days int64) (*dto.CostSummaryResponse, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -clampDays(days))

	byType, err := s.costRepo.GetSummaryByType(ctx, from, now)
	if err != nil {
		return nil, cErr.DatabaseError("database GetSummary error")
	}

	grandTotal := decimal.Zero
	for _, row := range byType {
		amount, parseError := decimal.NewFromString(row.TotalCostUSD)
		if parseError != nil {
			return nil, cErr.InternalServer("invalid stored amount: " + row.TotalCostUSD)
		}
		grandTotal = grandTotal.Add(amount)
	}

	response := &dto.CostSummaryResponse{
		From:         from,
		To:           now,
		TotalCostUSD: grandTotal.String(),
		ByType:       byType,
	}
	// retention 停用時不標示資料起點（資料永久保留）
	if availableFrom := s.costRepo.DataAvailableFrom(now); !availableFrom.IsZero() {
		response.DataAvailableFrom = &availableFrom
	}
	return response, nil
}

// 最近 N 天的每日花費走勢
func (s *CostService) GetDailyTrend(ctx context.Context, days int64) ([]dto.DailyCostPoint, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	points, err := s.costRepo.GetDailyTrend(ctx, clampDays(days))
	if err != nil {
		return nil, cErr.DatabaseError("database GetDailyTrend error")
	}
	return points, nil
}

// 本日（UTC）至今的總花費
func (s *CostService) GetTodayCost(ctx context.Context) (*dto.CurrentPeriodCost, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	total, err := s.costRepo.GetCurrentDayCost(ctx)
	if err != nil {
		return nil, cErr.DatabaseError("database GetTodayCost error")
	}
	now := time.Now().UTC()
	return &dto.CurrentPeriodCost{
		PeriodStart:  time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		TotalCostUSD: total.String(),
	}, nil
}

// llm 花費依 agent_type 分組
func (s *CostService) GetLLMCostByAgentType(ctx context.Context, days int64) ([]dto.LLMCostByAttribution, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	now := time.Now().UTC()
	rows, err := s.costRepo.GetLLMCostByAgentType(ctx, now.AddDate(0, 0, -clampDays(days)), now)
	if err != nil {
		return nil, cErr.DatabaseError("database GetLLMCostByAgentType error")
	}
	return rows, nil
}

// llm 花費依 model 分組
func (s *CostService) GetLLMCostByModel(ctx context.Context, days int64) ([]dto.LLMCostByAttribution, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	now := time.Now().UTC()
	rows, err := s.costRepo.GetLLMCostByModel(ctx, now.AddDate(0, 0, -clampDays(days)), now)
	if err != nil {
		return nil, cErr.DatabaseError("database GetLLMCostByModel error")
	}
	return rows, nil
}

// embedding 花費依 knowledge_domain 分組
func (s *CostService) GetEmbeddingCostByDomain(ctx context.Context, days int64) ([]dto.EmbeddingCostByDomain, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	now := time.Now().UTC()
	rows, err := s.costRepo.GetEmbeddingCostByDomain(ctx, now.AddDate(0, 0, -clampDays(days)), now)
	if err != nil {
		return nil, cErr.DatabaseError("database GetEmbeddingCostByDomain error")
	}
	return rows, nil
}
