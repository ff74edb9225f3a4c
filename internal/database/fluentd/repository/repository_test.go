package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"costwatch/config"
	"costwatch/internal/core"
	"costwatch/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFluentdClient struct {
	tags    []string
	records []map[string]any
	err     error
}

func (f *fakeFluentdClient) Post(ctx context.Context, tag string, record map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.tags = append(f.tags, tag)
	f.records = append(f.records, record)
	return nil
}

func (f *fakeFluentdClient) Close() error { return nil }

func newTestRepository(fluentdClient *fakeFluentdClient) *AlertLogRepository {
	conf := &config.Configuration{}
	conf.App.Name = "costwatch"
	conf.App.Version = "2.1.0"
	return NewAlertLogRepository(conf, fluentdClient)
}

func TestLogBudgetAlertForwardsStampedRecord(t *testing.T) {
	fluentdClient := &fakeFluentdClient{}
	repo := newTestRepository(fluentdClient)

	alert := dto.BudgetAlert{
		Period:       "daily",
		TotalUSD:     "85",
		ThresholdUSD: "80",
		FiredAt:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.LogBudgetAlert(context.Background(), alert))

	require.Len(t, fluentdClient.records, 1)
	assert.Equal(t, string(core.FluentdBudgetAlert), fluentdClient.tags[0])
	record := fluentdClient.records[0]
	assert.Equal(t, "daily", record["period"])
	assert.Equal(t, "85", record["total_usd"])
	assert.Equal(t, "80", record["threshold_usd"])
	assert.Equal(t, "costwatch", record["service_name"])
	assert.Equal(t, "2.1.0", record["version"])
	assert.NotEmpty(t, record["logged_at"])
}

func TestLogRejectedEventForwardsAuditRecord(t *testing.T) {
	fluentdClient := &fakeFluentdClient{}
	repo := newTestRepository(fluentdClient)

	rejected := dto.RejectedEvent{
		Reason:     "validation_failed",
		Detail:     "unit pages is not valid for cost_type llm",
		RawPayload: `{"cost_type":"llm","unit":"pages"}`,
		RejectedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.LogRejectedEvent(context.Background(), rejected))

	require.Len(t, fluentdClient.records, 1)
	assert.Equal(t, string(core.FluentdEventRejected), fluentdClient.tags[0])
	record := fluentdClient.records[0]
	assert.Equal(t, "validation_failed", record["reason"])
	assert.Equal(t, `{"cost_type":"llm","unit":"pages"}`, record["raw_payload"])
}

func TestPostReturnsMarshalError(t *testing.T) {
	fluentdClient := &fakeFluentdClient{}
	repo := newTestRepository(fluentdClient)

	// channel 無法序列化成 JSON，錯誤必須往上傳而非靜默丟紀錄
	err := repo.post(context.Background(), core.FluentdBudgetAlert, map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Empty(t, fluentdClient.records)
}

func TestPostPropagatesClientError(t *testing.T) {
	fluentdClient := &fakeFluentdClient{err: errors.New("fluentd down")}
	repo := newTestRepository(fluentdClient)

	err := repo.LogBudgetAlert(context.Background(), dto.BudgetAlert{Period: "daily"})
	require.Error(t, err)
}
