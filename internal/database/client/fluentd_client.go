package client

import (
	"context"
	"time"

	"costwatch/config"

	"github.com/fluent/fluent-logger-golang/fluent"
	"go.uber.org/zap"
)

// Client 告警/稽核轉送的最小介面；Fluentd 停用時以 NoopClient 替代
type Client interface {
	Post(ctx context.Context, tag string, record map[string]any) error
	Close() error
}

var (
	_ Client = (*FluentdClient)(nil)
	_ Client = (*NoopClient)(nil)
)

// FluentdClient implements Client using fluent-logger-golang.
type FluentdClient struct {
	client *fluent.Fluent
}

// NewFluentdClient 建立 Fluentd forward client；Enabled=false 時回傳 NoopClient
func NewFluentdClient(logger *zap.Logger, config *config.Configuration) (Client, error) {
	if !config.Fluentd.Enabled {
		logger.Info("fluentd forwarding disabled")
		return &NoopClient{}, nil
	}

	prefix := "costwatch"
	if config.Fluentd.TagPrefix != "" {
		prefix = config.Fluentd.TagPrefix
	}
	var timeout time.Duration
	if config.Fluentd.Timeout > 0 {
		timeout = time.Duration(config.Fluentd.Timeout) * time.Millisecond
	}

	fluent, err := fluent.New(fluent.Config{
		FluentHost: config.Fluentd.Host,
		FluentPort: config.Fluentd.Port,
		Timeout:    timeout,
		TagPrefix:  prefix, // Post 時由 fluent client 自動加前綴
	})
	if err != nil {
		return nil, err
	}
	return &FluentdClient{client: fluent}, nil
}

func (c *FluentdClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Post 轉送單筆紀錄；fluent client 不吃 context，逾時由 Timeout 控制
func (c *FluentdClient) Post(ctx context.Context, tag string, record map[string]any) error {
	return c.client.Post(tag, record)
}

// NoopClient 停用模式：吞掉所有轉送
type NoopClient struct{}

func (n *NoopClient) Post(ctx context.Context, tag string, record map[string]any) error { return nil }
func (n *NoopClient) Close() error                                                      { return nil }
