package repository

import (
	"context"
	"errors"
	"fmt"

	"costwatch/internal/core"
	client "costwatch/internal/database/client"
	"costwatch/internal/database/mongodb/model"
	"costwatch/internal/dto"
	"costwatch/internal/telemetry"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ThresholdRepository 預算門檻的單例設定文件（固定 _id，首次設定時建立）
type ThresholdRepository struct {
	collection *mongo.Collection
	trace      *telemetry.Trace
}

func NewThresholdRepository(mongoClient *client.MongoClient, trace *telemetry.Trace) *ThresholdRepository {
	return &ThresholdRepository{
		collection: mongoClient.Client().
			Database(string(core.MongoDBCostwatch)).
			Collection(string(core.MongoCollectionBudgetThresholds)),
		trace: trace,
	}
}

// Get 讀取目前門檻；從未設定時回傳 nil（非錯誤）
func (repository *ThresholdRepository) Get(
	contextValue context.Context,
) (_ *dto.BudgetThresholds, returnedError error) {

	contextValue, _, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	var config model.ThresholdConfig
	findError := repository.collection.FindOne(contextValue, bson.M{"_id": core.ThresholdConfigID}).Decode(&config)
	if findError != nil {
		if errors.Is(findError, mongo.ErrNoDocuments) {
			return nil, nil
		}
		returnedError = fmt.Errorf("get budget thresholds: %w", findError)
		return nil, returnedError
	}
	return thresholdsFromModel(&config)
}

// Set 部分更新門檻（nil 欄位不動），upsert + updatedAt 蓋時戳
func (repository *ThresholdRepository) Set(
	contextValue context.Context,
	dailyUSD, monthlyUSD *decimal.Decimal,
) (_ *dto.BudgetThresholds, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	setFields := bson.M{}
	traceMetadata := core.TraceThresholdMeta{Op: "set"}
	if dailyUSD != nil {
		setFields["daily_threshold_usd"] = dailyUSD.String()
		traceMetadata.DailyUSD = dailyUSD.String()
	}
	if monthlyUSD != nil {
		setFields["monthly_threshold_usd"] = monthlyUSD.String()
		traceMetadata.MonthlyUSD = monthlyUSD.String()
	}
	repository.trace.ApplyTraceAttributes(span, traceMetadata)

	update := bson.M{
		"$set":         setFields,
		"$currentDate": bson.M{"updatedAt": true},
	}
	_, updateError := repository.collection.UpdateOne(
		contextValue,
		bson.M{"_id": core.ThresholdConfigID},
		update,
		options.Update().SetUpsert(true),
	)
	if updateError != nil {
		returnedError = fmt.Errorf("set budget thresholds: %w", updateError)
		return nil, returnedError
	}
	return repository.Get(contextValue)
}

func thresholdsFromModel(config *model.ThresholdConfig) (*dto.BudgetThresholds, error) {
	thresholds := &dto.BudgetThresholds{UpdatedAt: config.UpdatedAt}
	if config.DailyThresholdUSD != nil {
		daily, parseError := decimal.NewFromString(*config.DailyThresholdUSD)
		if parseError != nil {
			return nil, fmt.Errorf("parse daily threshold %q: %w", *config.DailyThresholdUSD, parseError)
		}
		thresholds.DailyUSD = &daily
	}
	if config.MonthlyThresholdUSD != nil {
		monthly, parseError := decimal.NewFromString(*config.MonthlyThresholdUSD)
		if parseError != nil {
			return nil, fmt.Errorf("parse monthly threshold %q: %w", *config.MonthlyThresholdUSD, parseError)
		}
		thresholds.MonthlyUSD = &monthly
	}
	return thresholds, nil
}
