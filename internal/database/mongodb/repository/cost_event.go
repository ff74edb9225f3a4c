package repository

import (
	"context"
	"fmt"
	"time"

	"costwatch/config"
	"costwatch/internal/core"
	client "costwatch/internal/database/client"
	"costwatch/internal/database/mongodb/model"
	"costwatch/internal/dto"
	"costwatch/internal/telemetry"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const secondsPerDay = 86400

// CostEventRepository 成本事件的唯一儲存層：append-only 寫入 + 彙總查詢
type CostEventRepository struct {
	collection    *mongo.Collection
	trace         *telemetry.Trace
	retentionDays int
}

func NewCostEventRepository(mongoClient *client.MongoClient, conf *config.Configuration, trace *telemetry.Trace) *CostEventRepository {
	return &CostEventRepository{
		collection: mongoClient.Client().
			Database(string(core.MongoDBCostwatch)).
			Collection(string(core.MongoCollectionCostEvents)),
		trace:         trace,
		retentionDays: conf.Cost.RetentionDays,
	}
}

// EnsureIndexes 建立查詢與保留策略所需的索引（冪等；啟動失敗視為致命，由呼叫端決定）
// retentionDays = 0 時不建 TTL 索引（資料永久保留）
func (repository *CostEventRepository) EnsureIndexes(contextValue context.Context) (returnedError error) {
	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	indexModels := []mongo.IndexModel{
		{ // 依時間倒序查最近事件
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_timestamp_desc"),
		},
		{ // 依種類查詢
			Keys:    bson.D{{Key: "cost_type", Value: 1}},
			Options: options.Index().SetName("idx_cost_type"),
		},
		{ // 種類 + 時間的複合查詢（彙總 pipeline 的主索引）
			Keys:    bson.D{{Key: "cost_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_cost_type_timestamp"),
		},
	}

	// 歸因欄位皆為選填，使用 sparse 索引
	for _, field := range []string{"factory_id", "agent_type", "model", "knowledge_domain", "request_id"} {
		indexModels = append(indexModels, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetName("idx_" + field + "_sparse").SetSparse(true),
		})
	}

	if repository.retentionDays > 0 {
		indexModels = append(indexModels, mongo.IndexModel{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().
				SetName("idx_timestamp_ttl").
				SetExpireAfterSeconds(int32(repository.retentionDays * secondsPerDay)),
		})
	}

	if _, returnedError = repository.collection.Indexes().CreateMany(contextValue, indexModels); returnedError != nil {
		return fmt.Errorf("create cost event indexes: %w", returnedError)
	}
	return nil
}

// Insert 寫入單筆事件；儲存層失敗直接回傳（重試/丟棄由呼叫端決定）
func (repository *CostEventRepository) Insert(
	contextValue context.Context,
	event *model.CostEvent,
) (_ *model.CostEvent, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	event.Timestamp = event.Timestamp.UTC()

	repository.trace.ApplyTraceAttributes(span, core.TraceCostEventMeta{
		EventID:       event.EventID,
		CostType:      string(event.CostType),
		Unit:          string(event.Unit),
		AmountUSD:     event.AmountUSD,
		Quantity:      event.Quantity,
		SourceService: event.SourceService,
		Success:       event.Success,
	})

	insertResult, insertError := repository.collection.InsertOne(contextValue, event)
	if insertError != nil {
		returnedError = fmt.Errorf("insert cost event: %w", insertError)
		return nil, returnedError
	}
	objectID, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		returnedError = fmt.Errorf("unexpected InsertedID type: %T", insertResult.InsertedID)
		return nil, returnedError
	}
	event.ID = objectID
	return event, nil
}

// typeAggRow 依種類分組的中繼結果（金額為 Decimal128，由 $toDecimal 產生）
type typeAggRow struct {
	CostType      string               `bson:"_id"`
	TotalCost     primitive.Decimal128 `bson:"totalCost"`
	TotalQuantity int64                `bson:"totalQuantity"`
	RequestCount  int64                `bson:"requestCount"`
}

// GetSummaryByType 回傳時間窗內各種類的花費、占比；占比以 decimal 計算，加總 ≈ 100
func (repository *CostEventRepository) GetSummaryByType(
	contextValue context.Context,
	from, to time.Time,
) (_ []dto.CostTypeSummary, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"timestamp": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$cost_type",
			"totalCost":     bson.M{"$sum": bson.M{"$toDecimal": "$amount_usd"}},
			"totalQuantity": bson.M{"$sum": "$quantity"},
			"requestCount":  bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalCost", Value: -1}}}},
	}

	cursor, aggregateError := repository.collection.Aggregate(contextValue, pipeline)
	if aggregateError != nil {
		returnedError = fmt.Errorf("aggregate summary by type: %w", aggregateError)
		return nil, returnedError
	}
	defer cursor.Close(contextValue)

	var rows []typeAggRow
	if returnedError = cursor.All(contextValue, &rows); returnedError != nil {
		return nil, returnedError
	}

	summaries, sumError := summarizeByType(rows)
	if sumError != nil {
		returnedError = sumError
		return nil, returnedError
	}

	repository.trace.ApplyTraceAttributes(span, core.TraceCostQueryMeta{
		Op:          "summary_by_type",
		From:        from.UTC().Format(time.RFC3339),
		To:          to.UTC().Format(time.RFC3339),
		ResultCount: len(summaries),
	})
	return summaries, nil
}

// summarizeByType 將分組結果轉為輸出列並計算占比（純函式，金額走 decimal）
func summarizeByType(rows []typeAggRow) ([]dto.CostTypeSummary, error) {
	grandTotal := decimal.Zero
	totals := make([]decimal.Decimal, len(rows))
	for i, row := range rows {
		amount, parseError := decimalFromD128(row.TotalCost)
		if parseError != nil {
			return nil, parseError
		}
		totals[i] = amount
		grandTotal = grandTotal.Add(amount)
	}

	// 各列獨立捨入會讓加總偏離 100；最後一列改取餘數，加總必為 100
	summaries := make([]dto.CostTypeSummary, len(rows))
	remaining := decimal.NewFromInt(100)
	for i, row := range rows {
		percentage := decimal.Zero
		if grandTotal.IsPositive() {
			if i == len(rows)-1 {
				percentage = remaining
			} else {
				percentage = totals[i].
					Div(grandTotal).
					Mul(decimal.NewFromInt(100)).
					Round(2)
				remaining = remaining.Sub(percentage)
			}
		}
		summaries[i] = dto.CostTypeSummary{
			CostType:          row.CostType,
			TotalCostUSD:      totals[i].String(),
			TotalQuantity:     row.TotalQuantity,
			RequestCount:      row.RequestCount,
			PercentageOfTotal: percentage.InexactFloat64(),
		}
	}
	return summaries, nil
}

type dailyAggRow struct {
	ID struct {
		Date     string `bson:"date"`
		CostType string `bson:"cost_type"`
	} `bson:"_id"`
	TotalCost primitive.Decimal128 `bson:"totalCost"`
}

// GetDailyTrend 回傳最近 days 天的每日花費（日期升冪，含各種類小計）
func (repository *CostEventRepository) GetDailyTrend(
	contextValue context.Context,
	days int,
) (_ []dto.DailyCostPoint, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	now := time.Now().UTC()
	from := startOfUTCDay(now).AddDate(0, 0, -(days - 1))

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"timestamp": bson.M{"$gte": from},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"date": bson.M{"$dateToString": bson.M{
					"format": "%Y-%m-%d",
					"date":   "$timestamp",
				}},
				"cost_type": "$cost_type",
			},
			"totalCost": bson.M{"$sum": bson.M{"$toDecimal": "$amount_usd"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.date", Value: 1}}}},
	}

	cursor, aggregateError := repository.collection.Aggregate(contextValue, pipeline)
	if aggregateError != nil {
		returnedError = fmt.Errorf("aggregate daily trend: %w", aggregateError)
		return nil, returnedError
	}
	defer cursor.Close(contextValue)

	var rows []dailyAggRow
	if returnedError = cursor.All(contextValue, &rows); returnedError != nil {
		return nil, returnedError
	}

	points, buildError := buildDailyTrend(rows)
	if buildError != nil {
		returnedError = buildError
		return nil, returnedError
	}

	repository.trace.ApplyTraceAttributes(span, core.TraceCostQueryMeta{
		Op:          "daily_trend",
		Days:        days,
		ResultCount: len(points),
	})
	return points, nil
}

// buildDailyTrend 將 (日期, 種類) 分組列組回日期升冪的每日走勢（純函式）
func buildDailyTrend(rows []dailyAggRow) ([]dto.DailyCostPoint, error) {
	byDate := make(map[string]*dto.DailyCostPoint)
	dayTotals := make(map[string]decimal.Decimal)
	var order []string

	for _, row := range rows {
		amount, parseError := decimalFromD128(row.TotalCost)
		if parseError != nil {
			return nil, parseError
		}
		point, exists := byDate[row.ID.Date]
		if !exists {
			point = &dto.DailyCostPoint{Date: row.ID.Date, ByType: map[string]string{}}
			byDate[row.ID.Date] = point
			order = append(order, row.ID.Date)
		}
		point.ByType[row.ID.CostType] = amount.String()
		dayTotals[row.ID.Date] = dayTotals[row.ID.Date].Add(amount)
	}

	// $sort 已保證日期升冪；order 依掃描順序即為升冪
	points := make([]dto.DailyCostPoint, 0, len(order))
	for _, date := range order {
		point := byDate[date]
		point.TotalCostUSD = dayTotals[date].String()
		points = append(points, *point)
	}
	return points, nil
}

// GetCurrentDayCost 回傳 [UTC 今日 00:00, now) 的總花費；BudgetMonitor 暖機的權威來源
func (repository *CostEventRepository) GetCurrentDayCost(contextValue context.Context) (decimal.Decimal, error) {
	now := time.Now().UTC()
	return repository.sumWindow(contextValue, startOfUTCDay(now), now, "current_day_cost")
}

// GetCurrentMonthCost 回傳 [UTC 本月 1 日 00:00, now) 的總花費
func (repository *CostEventRepository) GetCurrentMonthCost(contextValue context.Context) (decimal.Decimal, error) {
	now := time.Now().UTC()
	return repository.sumWindow(contextValue, startOfUTCMonth(now), now, "current_month_cost")
}

func (repository *CostEventRepository) sumWindow(
	contextValue context.Context,
	from, to time.Time,
	op string,
) (_ decimal.Decimal, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"timestamp": bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"totalCost": bson.M{"$sum": bson.M{"$toDecimal": "$amount_usd"}},
		}}},
	}

	cursor, aggregateError := repository.collection.Aggregate(contextValue, pipeline)
	if aggregateError != nil {
		returnedError = fmt.Errorf("aggregate %s: %w", op, aggregateError)
		return decimal.Zero, returnedError
	}
	defer cursor.Close(contextValue)

	var rows []struct {
		TotalCost primitive.Decimal128 `bson:"totalCost"`
	}
	if returnedError = cursor.All(contextValue, &rows); returnedError != nil {
		return decimal.Zero, returnedError
	}

	repository.trace.ApplyTraceAttributes(span, core.TraceCostQueryMeta{
		Op:   op,
		From: from.Format(time.RFC3339),
		To:   to.Format(time.RFC3339),
	})

	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return decimalFromD128(rows[0].TotalCost)
}

type llmAggRow struct {
	Key          string               `bson:"_id"`
	TotalCost    primitive.Decimal128 `bson:"totalCost"`
	InputTokens  int64                `bson:"inputTokens"`
	OutputTokens int64                `bson:"outputTokens"`
	TotalTokens  int64                `bson:"totalTokens"`
	RequestCount int64                `bson:"requestCount"`
}

// GetLLMCostByAgentType llm 成本依 agent_type 分組，token 量依 metadata 的輸入/輸出方向拆分
func (repository *CostEventRepository) GetLLMCostByAgentType(
	contextValue context.Context,
	from, to time.Time,
) ([]dto.LLMCostByAttribution, error) {
	return repository.llmCostBy(contextValue, "$agent_type", "agent_type", from, to, "llm_cost_by_agent_type")
}

// GetLLMCostByModel llm 成本依 model 分組
func (repository *CostEventRepository) GetLLMCostByModel(
	contextValue context.Context,
	from, to time.Time,
) ([]dto.LLMCostByAttribution, error) {
	return repository.llmCostBy(contextValue, "$model", "model", from, to, "llm_cost_by_model")
}

func (repository *CostEventRepository) llmCostBy(
	contextValue context.Context,
	groupExpr string,
	existsField string,
	from, to time.Time,
	op string,
) (_ []dto.LLMCostByAttribution, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"cost_type": core.CostTypeLLM,
			"timestamp": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
			existsField: bson.M{"$exists": true},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":          groupExpr,
			"totalCost":    bson.M{"$sum": bson.M{"$toDecimal": "$amount_usd"}},
			"inputTokens":  bson.M{"$sum": bson.M{"$ifNull": bson.A{"$metadata.input_tokens", 0}}},
			"outputTokens": bson.M{"$sum": bson.M{"$ifNull": bson.A{"$metadata.output_tokens", 0}}},
			"totalTokens":  bson.M{"$sum": "$quantity"},
			"requestCount": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalCost", Value: -1}}}},
	}

	cursor, aggregateError := repository.collection.Aggregate(contextValue, pipeline)
	if aggregateError != nil {
		returnedError = fmt.Errorf("aggregate %s: %w", op, aggregateError)
		return nil, returnedError
	}
	defer cursor.Close(contextValue)

	var rows []llmAggRow
	if returnedError = cursor.All(contextValue, &rows); returnedError != nil {
		return nil, returnedError
	}

	results := make([]dto.LLMCostByAttribution, len(rows))
	for i, row := range rows {
		amount, parseError := decimalFromD128(row.TotalCost)
		if parseError != nil {
			returnedError = parseError
			return nil, returnedError
		}
		results[i] = dto.LLMCostByAttribution{
			Key:          row.Key,
			TotalCostUSD: amount.String(),
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
			TotalTokens:  row.TotalTokens,
			RequestCount: row.RequestCount,
		}
	}

	repository.trace.ApplyTraceAttributes(span, core.TraceCostQueryMeta{
		Op:          op,
		From:        from.UTC().Format(time.RFC3339),
		To:          to.UTC().Format(time.RFC3339),
		ResultCount: len(results),
	})
	return results, nil
}

// GetEmbeddingCostByDomain embedding 成本依 knowledge_domain 分組
func (repository *CostEventRepository) GetEmbeddingCostByDomain(
	contextValue context.Context,
	from, to time.Time,
) (_ []dto.EmbeddingCostByDomain, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"cost_type":        core.CostTypeEmbedding,
			"timestamp":        bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
			"knowledge_domain": bson.M{"$exists": true},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$knowledge_domain",
			"totalCost":     bson.M{"$sum": bson.M{"$toDecimal": "$amount_usd"}},
			"totalQuantity": bson.M{"$sum": "$quantity"},
			"requestCount":  bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalCost", Value: -1}}}},
	}

	cursor, aggregateError := repository.collection.Aggregate(contextValue, pipeline)
	if aggregateError != nil {
		returnedError = fmt.Errorf("aggregate embedding cost by domain: %w", aggregateError)
		return nil, returnedError
	}
	defer cursor.Close(contextValue)

	var rows []struct {
		KnowledgeDomain string               `bson:"_id"`
		TotalCost       primitive.Decimal128 `bson:"totalCost"`
		TotalQuantity   int64                `bson:"totalQuantity"`
		RequestCount    int64                `bson:"requestCount"`
	}
	if returnedError = cursor.All(contextValue, &rows); returnedError != nil {
		return nil, returnedError
	}

	results := make([]dto.EmbeddingCostByDomain, len(rows))
	for i, row := range rows {
		amount, parseError := decimalFromD128(row.TotalCost)
		if parseError != nil {
			returnedError = parseError
			return nil, returnedError
		}
		results[i] = dto.EmbeddingCostByDomain{
			KnowledgeDomain: row.KnowledgeDomain,
			TotalCostUSD:    amount.String(),
			TotalQueries:    row.TotalQuantity,
			RequestCount:    row.RequestCount,
		}
	}

	repository.trace.ApplyTraceAttributes(span, core.TraceCostQueryMeta{
		Op:          "embedding_cost_by_domain",
		From:        from.UTC().Format(time.RFC3339),
		To:          to.UTC().Format(time.RFC3339),
		ResultCount: len(results),
	})
	return results, nil
}

// DataAvailableFrom 回傳保留策略下仍保證存在的最早時間點；retention 停用時回傳零值
// 查詢端用它區分「花費為零」與「資料已過期」
func (repository *CostEventRepository) DataAvailableFrom(now time.Time) time.Time {
	if repository.retentionDays <= 0 {
		return time.Time{}
	}
	return now.UTC().Add(-time.Duration(repository.retentionDays) * 24 * time.Hour)
}

// ─── 時間/數值 helpers ──────────────────────────────────────────────────────────

func startOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfUTCMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// decimalFromD128 Decimal128 → shopspring decimal（經十進位字串，不經 float）
func decimalFromD128(value primitive.Decimal128) (decimal.Decimal, error) {
	parsed, parseError := decimal.NewFromString(value.String())
	if parseError != nil {
		return decimal.Zero, fmt.Errorf("parse decimal128 %q: %w", value.String(), parseError)
	}
	return parsed, nil
}
