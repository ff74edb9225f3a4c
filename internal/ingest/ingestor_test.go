package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"costwatch/config"
	"costwatch/internal/core"
	"costwatch/internal/database/mongodb/model"
	"costwatch/internal/dto"
	"costwatch/internal/telemetry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEventStore struct {
	inserted []*model.CostEvent
	err      error
}

func (f *fakeEventStore) Insert(ctx context.Context, event *model.CostEvent) (*model.CostEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserted = append(f.inserted, event)
	return event, nil
}

type fakeRecorder struct {
	costTypes []core.CostType
	amounts   []decimal.Decimal
}

func (f *fakeRecorder) RecordCost(ctx context.Context, costType core.CostType, amountUSD decimal.Decimal) {
	f.costTypes = append(f.costTypes, costType)
	f.amounts = append(f.amounts, amountUSD)
}

type fakeAudit struct {
	rejected []dto.RejectedEvent
}

func (f *fakeAudit) LogRejectedEvent(ctx context.Context, rejected dto.RejectedEvent) error {
	f.rejected = append(f.rejected, rejected)
	return nil
}

type ingestorFixture struct {
	ingestor *CostIngestor
	store    *fakeEventStore
	recorder *fakeRecorder
	audit    *fakeAudit
}

func newIngestorFixture(t *testing.T) *ingestorFixture {
	t.Helper()
	trace, err := telemetry.NewTrace(nil)
	require.NoError(t, err)
	store := &fakeEventStore{}
	recorder := &fakeRecorder{}
	audit := &fakeAudit{}
	ingestor := NewCostIngestor(
		zap.NewNop(),
		&config.Configuration{},
		nil, // redis 不參與單筆處理
		store,
		recorder,
		audit,
		telemetry.NewMetric(nil),
		trace,
	)
	return &ingestorFixture{ingestor: ingestor, store: store, recorder: recorder, audit: audit}
}

func validPayload() string {
	return `{
		"cost_type": "llm",
		"amount_usd": "0.123456",
		"quantity": 1500,
		"unit": "tokens",
		"timestamp": "2026-03-10T08:30:00Z",
		"source_service": "chat-api",
		"agent_type": "planner",
		"model": "gpt-4o",
		"metadata": {"input_tokens": 1000, "output_tokens": 500}
	}`
}

func TestHandleMessageStoresThenRecords(t *testing.T) {
	f := newIngestorFixture(t)

	f.ingestor.handleMessage(context.Background(), []byte(validPayload()))

	require.Len(t, f.store.inserted, 1)
	event := f.store.inserted[0]
	assert.Equal(t, core.CostTypeLLM, event.CostType)
	assert.Equal(t, "0.123456", event.AmountUSD, "amount is stored as the exact decimal string")
	assert.Equal(t, core.CostUnitTokens, event.Unit)
	assert.Equal(t, "chat-api", event.SourceService)
	assert.True(t, event.Success, "success defaults to true when omitted")
	assert.NotEmpty(t, event.EventID, "missing id gets a generated uuid")
	assert.Equal(t, time.UTC, event.Timestamp.Location())

	require.Len(t, f.recorder.amounts, 1)
	assert.Equal(t, "0.123456", f.recorder.amounts[0].String())
	assert.Equal(t, core.CostTypeLLM, f.recorder.costTypes[0])
	assert.Empty(t, f.audit.rejected)
}

func TestHandleMessageRejectsMalformedJSON(t *testing.T) {
	f := newIngestorFixture(t)

	f.ingestor.handleMessage(context.Background(), []byte(`{not json`))

	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.recorder.amounts)
	require.Len(t, f.audit.rejected, 1)
	assert.Equal(t, "malformed_json", f.audit.rejected[0].Reason)
	assert.Equal(t, `{not json`, f.audit.rejected[0].RawPayload)
}

func TestHandleMessageRejectsInvalidUnitPair(t *testing.T) {
	f := newIngestorFixture(t)

	payload := `{"cost_type":"llm","amount_usd":"0.10","quantity":3,"unit":"pages","source_service":"doc-api"}`
	f.ingestor.handleMessage(context.Background(), []byte(payload))

	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.recorder.amounts)
	require.Len(t, f.audit.rejected, 1)
	assert.Equal(t, "validation_failed", f.audit.rejected[0].Reason)
	assert.Contains(t, f.audit.rejected[0].Detail, "pages")
}

func TestHandleMessageRejectsNegativeAmount(t *testing.T) {
	f := newIngestorFixture(t)

	payload := `{"cost_type":"messaging","amount_usd":"-0.01","quantity":1,"unit":"messages","source_service":"notify"}`
	f.ingestor.handleMessage(context.Background(), []byte(payload))

	assert.Empty(t, f.store.inserted)
	require.Len(t, f.audit.rejected, 1)
	assert.Equal(t, "validation_failed", f.audit.rejected[0].Reason)
}

func TestHandleMessageRejectsMissingRequiredFields(t *testing.T) {
	f := newIngestorFixture(t)

	payload := `{"cost_type":"embedding","unit":"queries"}`
	f.ingestor.handleMessage(context.Background(), []byte(payload))

	assert.Empty(t, f.store.inserted)
	require.Len(t, f.audit.rejected, 1)
	assert.Equal(t, "validation_failed", f.audit.rejected[0].Reason)
}

func TestHandleMessageStorageFailureSkipsRecorder(t *testing.T) {
	f := newIngestorFixture(t)
	f.store.err = errors.New("mongo down")

	f.ingestor.handleMessage(context.Background(), []byte(validPayload()))

	assert.Empty(t, f.recorder.amounts, "budget state must not move when persistence fails")
	assert.Empty(t, f.audit.rejected, "storage failure is a drop, not a validation reject")
}

func TestEventFromInputPreservesExplicitFields(t *testing.T) {
	timestamp := time.Date(2026, 3, 10, 8, 30, 0, 0, time.FixedZone("CST", 8*3600))
	success := false
	input := &dto.CostEventInput{
		ID:              "evt-123",
		CostType:        "document",
		AmountUSD:       "1.25",
		Quantity:        10,
		Unit:            "pages",
		Timestamp:       timestamp,
		SourceService:   "doc-api",
		Success:         &success,
		FactoryID:       "factory-7",
		RequestID:       "req-9",
		KnowledgeDomain: "contracts",
	}
	amount, err := decimal.NewFromString(input.AmountUSD)
	require.NoError(t, err)

	event := eventFromInput(input, amount)
	assert.Equal(t, "evt-123", event.EventID)
	assert.Equal(t, core.CostTypeDocument, event.CostType)
	assert.False(t, event.Success)
	assert.Equal(t, timestamp.UTC(), event.Timestamp, "timestamps are normalized to UTC")
	assert.Equal(t, "factory-7", event.FactoryID)
	assert.Equal(t, "contracts", event.KnowledgeDomain)
}

func TestValidateEventAcceptsZeroAmount(t *testing.T) {
	f := newIngestorFixture(t)
	input := &dto.CostEventInput{
		CostType:      "embedding",
		AmountUSD:     "0",
		Quantity:      2,
		Unit:          "queries",
		SourceService: "search",
	}
	amount, err := f.ingestor.validateEvent(input)
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}

func TestValidateEventRejectsUnparseableAmount(t *testing.T) {
	f := newIngestorFixture(t)
	input := &dto.CostEventInput{
		CostType:      "llm",
		AmountUSD:     "12.3.4",
		Quantity:      1,
		Unit:          "tokens",
		SourceService: "chat-api",
	}
	_, err := f.ingestor.validateEvent(input)
	require.Error(t, err)
}
