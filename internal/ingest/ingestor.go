package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"costwatch/config"
	"costwatch/internal/core"
	client "costwatch/internal/database/client"
	"costwatch/internal/database/mongodb/model"
	"costwatch/internal/dto"
	"costwatch/internal/telemetry"
	"costwatch/utils/validate"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/google/wire"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ProviderSet = wire.NewSet(NewCostIngestor)

// EventStore 驗證通過事件的持久層（通常是 CostEventRepository）
type EventStore interface {
	Insert(ctx context.Context, event *model.CostEvent) (*model.CostEvent, error)
}

// CostRecorder 即時預算累計（通常是 BudgetMonitor）
type CostRecorder interface {
	RecordCost(ctx context.Context, costType core.CostType, amountUSD decimal.Decimal)
}

// AuditSink 被拒絕事件的稽核出口（Fluentd 轉送）；失敗只記 log
type AuditSink interface {
	LogRejectedEvent(ctx context.Context, rejected dto.RejectedEvent) error
}

// CostIngestor 訂閱 Redis pub/sub 上的成本事件，驗證後寫入儲存層並
// 轉交預算累計。順序固定：先持久化、再累計——寫入失敗的事件絕不
// 影響記憶體預算狀態。重送與重試是匯流排的責任，這裡不做去重。
type CostIngestor struct {
	logger      *zap.Logger
	config      *config.Configuration
	redisClient *client.RedisClient
	store       EventStore
	recorder    CostRecorder
	audit       AuditSink
	metric      *telemetry.Metric
	trace       *telemetry.Trace
	validator   *validator.Validate

	stopped chan struct{}
}

func NewCostIngestor(
	logger *zap.Logger,
	config *config.Configuration,
	redisClient *client.RedisClient,
	store EventStore,
	recorder CostRecorder,
	audit AuditSink,
	metric *telemetry.Metric,
	trace *telemetry.Trace,
) *CostIngestor {
	return &CostIngestor{
		logger:      logger,
		config:      config,
		redisClient: redisClient,
		store:       store,
		recorder:    recorder,
		audit:       audit,
		metric:      metric,
		trace:       trace,
		validator:   validator.New(),
		stopped:     make(chan struct{}),
	}
}

func (ingestor *CostIngestor) channelName() string {
	if ingestor.config.Cost.EventChannel != "" {
		return ingestor.config.Cost.EventChannel
	}
	return string(core.RedisChannelCostEvents)
}

// Start 啟動訂閱迴圈；ctx 取消時結束。必須在索引建立與暖機完成後才呼叫。
func (ingestor *CostIngestor) Start(ctx context.Context) {
	channel := ingestor.channelName()
	subscription := ingestor.redisClient.Client().Subscribe(ctx, channel)
	ingestor.logger.Info("cost ingestor subscribed", zap.String("channel", channel))

	go func() {
		defer close(ingestor.stopped)
		defer func() {
			if closeError := subscription.Close(); closeError != nil {
				ingestor.logger.Error("failed to close subscription", zap.Error(closeError))
			}
		}()

		messages := subscription.Channel()
		for {
			select {
			case <-ctx.Done():
				ingestor.logger.Info("cost ingestor stopping", zap.String("channel", channel))
				return
			case message, ok := <-messages:
				if !ok {
					ingestor.logger.Warn("cost event channel closed", zap.String("channel", channel))
					return
				}
				ingestor.handleMessage(ctx, []byte(message.Payload))
			}
		}
	}()
}

// WaitStopped 等訂閱迴圈完全收尾（關機時用）
func (ingestor *CostIngestor) WaitStopped(timeout time.Duration) {
	select {
	case <-ingestor.stopped:
	case <-time.After(timeout):
		ingestor.logger.Warn("cost ingestor did not stop in time")
	}
}

// handleMessage 單筆事件處理：decode → validate → insert → record
func (ingestor *CostIngestor) handleMessage(contextValue context.Context, payload []byte) {
	contextValue, span, endSpan := ingestor.trace.WithSpan(contextValue, string(core.SpanCostIngest))
	var returnedError error
	defer func() { endSpan(returnedError) }()

	var input dto.CostEventInput
	if decodeError := json.Unmarshal(payload, &input); decodeError != nil {
		returnedError = decodeError
		ingestor.reject(contextValue, "malformed_json", decodeError.Error(), string(payload))
		return
	}

	amount, validateError := ingestor.validateEvent(&input)
	if validateError != nil {
		returnedError = validateError
		ingestor.reject(contextValue, "validation_failed", validateError.Error(), string(payload))
		return
	}

	event := eventFromInput(&input, amount)
	ingestor.trace.ApplyTraceAttributes(span, core.TraceCostEventMeta{
		EventID:       event.EventID,
		CostType:      input.CostType,
		Unit:          input.Unit,
		AmountUSD:     event.AmountUSD,
		Quantity:      input.Quantity,
		SourceService: input.SourceService,
		Success:       event.Success,
	})

	if _, insertError := ingestor.store.Insert(contextValue, event); insertError != nil {
		// 儲存失敗：事件丟棄、不進預算累計，重試交給匯流排
		returnedError = insertError
		ingestor.logger.Error("failed to store cost event",
			zap.String("event_id", event.EventID),
			zap.String("cost_type", input.CostType),
			zap.Error(insertError),
		)
		if ingestor.metric.IngestFailTotal != nil {
			ingestor.metric.IngestFailTotal.WithLabelValues("storage_error").Inc()
		}
		return
	}

	ingestor.recorder.RecordCost(contextValue, core.CostType(input.CostType), amount)
	if ingestor.metric.IngestSuccessTotal != nil {
		ingestor.metric.IngestSuccessTotal.WithLabelValues(input.CostType, input.SourceService).Inc()
	}
}

// validateEvent 結構驗證 + (cost_type, unit) 白名單 + 金額十進位解析
func (ingestor *CostIngestor) validateEvent(input *dto.CostEventInput) (decimal.Decimal, error) {
	if structError := ingestor.validator.Struct(input); structError != nil {
		return decimal.Zero, errors.New(validate.ValidationErrorResponse(input, structError))
	}
	if !core.IsValidCostUnitPair(core.CostType(input.CostType), core.CostUnit(input.Unit)) {
		return decimal.Zero, errors.New("unit " + input.Unit + " is not valid for cost_type " + input.CostType)
	}
	amount, parseError := decimal.NewFromString(input.AmountUSD)
	if parseError != nil {
		return decimal.Zero, errors.New("amount_usd is not a valid decimal: " + input.AmountUSD)
	}
	if amount.IsNegative() {
		return decimal.Zero, errors.New("amount_usd must not be negative: " + input.AmountUSD)
	}
	return amount, nil
}

// reject 驗證失敗事件：不落地，記 log + 稽核轉送 + 計數
func (ingestor *CostIngestor) reject(ctx context.Context, reason, detail, payload string) {
	ingestor.logger.Warn("cost event rejected",
		zap.String("reason", reason),
		zap.String("detail", detail),
	)
	if ingestor.metric.IngestRejectTotal != nil {
		ingestor.metric.IngestRejectTotal.WithLabelValues(reason).Inc()
	}
	if ingestor.audit != nil {
		rejected := dto.RejectedEvent{
			Reason:     reason,
			Detail:     detail,
			RawPayload: payload,
			RejectedAt: time.Now().UTC(),
		}
		if auditError := ingestor.audit.LogRejectedEvent(ctx, rejected); auditError != nil {
			ingestor.logger.Error("failed to forward rejected event", zap.Error(auditError))
		}
	}
}

// eventFromInput 轉儲存模型：缺 id 補 uuid、缺時戳補現在、時間一律 UTC
func eventFromInput(input *dto.CostEventInput, amount decimal.Decimal) *model.CostEvent {
	eventID := input.ID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	success := true
	if input.Success != nil {
		success = *input.Success
	}
	return &model.CostEvent{
		EventID:         eventID,
		CostType:        core.CostType(input.CostType),
		AmountUSD:       amount.String(),
		Quantity:        input.Quantity,
		Unit:            core.CostUnit(input.Unit),
		Timestamp:       timestamp.UTC(),
		SourceService:   input.SourceService,
		Success:         success,
		Metadata:        input.Metadata,
		FactoryID:       input.FactoryID,
		RequestID:       input.RequestID,
		AgentType:       input.AgentType,
		Model:           input.Model,
		KnowledgeDomain: input.KnowledgeDomain,
	}
}
