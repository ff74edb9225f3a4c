package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"costwatch/config"
	"costwatch/internal/core"
	"costwatch/internal/database/client"
	"costwatch/internal/database/fluentd/model"
	"costwatch/internal/dto"

	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(NewAlertLogRepository)

const loggedAtLayout = "2006-01-02 15:04:05.999999 UTC"

// AlertLogRepository 統一負責發送預算告警與拒收稽核到 Fluentd
type AlertLogRepository struct {
	fluentdClient client.Client
	serviceName   string
	version       string
}

func NewAlertLogRepository(config *config.Configuration, client client.Client) *AlertLogRepository {
	version := "1.0.0"
	if config.App.Version != "" {
		version = config.App.Version
	}
	return &AlertLogRepository{
		fluentdClient: client,
		serviceName:   config.App.Name,
		version:       version,
	}
}

func (repository *AlertLogRepository) LogBudgetAlert(ctx context.Context, alert dto.BudgetAlert) error {
	record := model.BudgetAlertLog{
		Period:       alert.Period,
		TotalUSD:     alert.TotalUSD,
		ThresholdUSD: alert.ThresholdUSD,
		ServiceName:  repository.serviceName,
		Version:      repository.version,
		FiredAt:      alert.FiredAt.UTC().Format(loggedAtLayout),
		LoggedAt:     time.Now().UTC().Format(loggedAtLayout),
	}
	return repository.post(ctx, core.FluentdBudgetAlert, record)
}

func (repository *AlertLogRepository) LogRejectedEvent(ctx context.Context, rejected dto.RejectedEvent) error {
	record := model.RejectedEventLog{
		Reason:     rejected.Reason,
		Detail:     rejected.Detail,
		RawPayload: rejected.RawPayload,
		RejectedAt: rejected.RejectedAt.UTC().Format(loggedAtLayout),
		Version:    repository.version,
		LoggedAt:   time.Now().UTC().Format(loggedAtLayout),
	}
	return repository.post(ctx, core.FluentdEventRejected, record)
}

// post 先經 JSON round-trip 轉成 map 再轉送；序列化失敗回傳錯誤而非靜默丟棄
func (repository *AlertLogRepository) post(ctx context.Context, tag core.FluentdSubTag, record any) error {
	encoded, marshalError := json.Marshal(record)
	if marshalError != nil {
		return fmt.Errorf("marshal fluentd record: %w", marshalError)
	}
	var fluentdMessage map[string]any
	if unmarshalError := json.Unmarshal(encoded, &fluentdMessage); unmarshalError != nil {
		return fmt.Errorf("decode fluentd record: %w", unmarshalError)
	}
	return repository.fluentdClient.Post(ctx, string(tag), fluentdMessage)
}
