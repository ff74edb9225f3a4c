package repository

import (
	"testing"
	"time"

	"costwatch/internal/database/mongodb/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func d128(t *testing.T, s string) primitive.Decimal128 {
	t.Helper()
	value, err := primitive.ParseDecimal128(s)
	require.NoError(t, err)
	return value
}

func TestSummarizeByTypePercentages(t *testing.T) {
	rows := []typeAggRow{
		{CostType: "document", TotalCost: d128(t, "0.50"), TotalQuantity: 10, RequestCount: 2},
		{CostType: "llm", TotalCost: d128(t, "0.06"), TotalQuantity: 1500, RequestCount: 1},
	}

	summaries, err := summarizeByType(rows)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "document", summaries[0].CostType)
	assert.Equal(t, "0.5", summaries[0].TotalCostUSD)
	assert.InDelta(t, 89.29, summaries[0].PercentageOfTotal, 0.001)

	assert.Equal(t, "llm", summaries[1].CostType)
	assert.Equal(t, "0.06", summaries[1].TotalCostUSD)
	assert.InDelta(t, 10.71, summaries[1].PercentageOfTotal, 0.001)

	sum := summaries[0].PercentageOfTotal + summaries[1].PercentageOfTotal
	assert.InDelta(t, 100.0, sum, 0.01, "percentages must sum to 100 within rounding")
}

func TestSummarizeByTypePercentagesSumExactWithFourTypes(t *testing.T) {
	// 四列各自捨入最壞情況會偏離 ±0.02；餘數法下加總必須正好 100
	rows := []typeAggRow{
		{CostType: "llm", TotalCost: d128(t, "25.015")},
		{CostType: "document", TotalCost: d128(t, "24.995")},
		{CostType: "embedding", TotalCost: d128(t, "24.995")},
		{CostType: "messaging", TotalCost: d128(t, "24.995")},
	}

	summaries, err := summarizeByType(rows)
	require.NoError(t, err)
	require.Len(t, summaries, 4)

	sum := 0.0
	for _, summary := range summaries {
		sum += summary.PercentageOfTotal
	}
	assert.InDelta(t, 100.0, sum, 0.01)

	assert.InDelta(t, 25.02, summaries[0].PercentageOfTotal, 0.001)
	assert.InDelta(t, 25.00, summaries[1].PercentageOfTotal, 0.001)
	assert.InDelta(t, 25.00, summaries[2].PercentageOfTotal, 0.001)
	assert.InDelta(t, 24.98, summaries[3].PercentageOfTotal, 0.001, "last row absorbs the rounding remainder")
}

func TestSummarizeByTypeSingleRowIsHundredPercent(t *testing.T) {
	rows := []typeAggRow{
		{CostType: "llm", TotalCost: d128(t, "0.42"), RequestCount: 7},
	}
	summaries, err := summarizeByType(rows)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.InDelta(t, 100.0, summaries[0].PercentageOfTotal, 0.0001)
}

func TestSummarizeByTypeEmptyWindow(t *testing.T) {
	summaries, err := summarizeByType(nil)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestSummarizeByTypeZeroTotal(t *testing.T) {
	rows := []typeAggRow{
		{CostType: "llm", TotalCost: d128(t, "0"), RequestCount: 3},
	}
	summaries, err := summarizeByType(rows)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Zero(t, summaries[0].PercentageOfTotal, "zero grand total must not divide by zero")
}

func TestBuildDailyTrendGroupsByDate(t *testing.T) {
	rows := []dailyAggRow{}
	add := func(date, costType, amount string) {
		row := dailyAggRow{TotalCost: d128(t, amount)}
		row.ID.Date = date
		row.ID.CostType = costType
		rows = append(rows, row)
	}
	// $sort 已保證日期升冪
	add("2026-03-09", "llm", "0.30")
	add("2026-03-09", "document", "0.20")
	add("2026-03-10", "llm", "0.10")

	points, err := buildDailyTrend(rows)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "2026-03-09", points[0].Date)
	assert.Equal(t, "0.5", points[0].TotalCostUSD)
	assert.Equal(t, "0.3", points[0].ByType["llm"])
	assert.Equal(t, "0.2", points[0].ByType["document"])

	assert.Equal(t, "2026-03-10", points[1].Date)
	assert.Equal(t, "0.1", points[1].TotalCostUSD)
}

func TestBuildDailyTrendEmpty(t *testing.T) {
	points, err := buildDailyTrend(nil)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestDataAvailableFrom(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	withRetention := &CostEventRepository{retentionDays: 90}
	assert.Equal(t, now.AddDate(0, 0, -90), withRetention.DataAvailableFrom(now))

	noRetention := &CostEventRepository{retentionDays: 0}
	assert.True(t, noRetention.DataAvailableFrom(now).IsZero(), "disabled retention reports no cutoff")
}

func TestDecimalFromD128PreservesFractionalDigits(t *testing.T) {
	parsed, err := decimalFromD128(d128(t, "12.345678"))
	require.NoError(t, err)
	assert.Equal(t, "12.345678", parsed.String())

	// 100 筆相同金額加總後小數位完全保留
	total := decimal.Zero
	for i := 0; i < 100; i++ {
		total = total.Add(parsed)
	}
	assert.Equal(t, "1234.5678", total.String())
}

func TestStartOfUTCPeriodHelpers(t *testing.T) {
	local := time.Date(2026, 3, 10, 1, 30, 0, 0, time.FixedZone("CST", 8*3600))
	// 2026-03-10 01:30 +08:00 是 UTC 的 03-09 17:30
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), startOfUTCDay(local))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), startOfUTCMonth(local))
}

func TestThresholdsFromModel(t *testing.T) {
	daily := "80"
	updatedAt := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	thresholds, err := thresholdsFromModel(&model.ThresholdConfig{
		DailyThresholdUSD: &daily,
		UpdatedAt:         updatedAt,
	})
	require.NoError(t, err)
	require.NotNil(t, thresholds.DailyUSD)
	assert.Equal(t, "80", thresholds.DailyUSD.String())
	assert.Nil(t, thresholds.MonthlyUSD)
	assert.Equal(t, updatedAt, thresholds.UpdatedAt)
}

func TestThresholdsFromModelRejectsBadDecimal(t *testing.T) {
	bad := "not-a-number"
	_, err := thresholdsFromModel(&model.ThresholdConfig{MonthlyThresholdUSD: &bad})
	require.Error(t, err)
}
