package core

const ContextTraceKey = "telemetry_trace_ctx"

// ==== 型別安全 span name ====
// 專案全域建議都寫這裡，方便集中管理
type TraceSpanName string

const (
	SpanHttpRequest        TraceSpanName = "http_request"
	SpanLoggerMiddleware   TraceSpanName = "logger_middleware"
	SpanRecoveryMiddleware TraceSpanName = "recovery_middleware"
	SpanCorsMiddleware     TraceSpanName = "cors_middleware"
	SpanResponseMiddleware TraceSpanName = "response_middleware"
	SpanCostIngest         TraceSpanName = "cost_ingest"
)

// 指標名稱常數
type MetricName string

const (
	MetricHttpRequestsTotal   MetricName = "requests_total"
	MetricHttpRequestDuration MetricName = "request_duration_seconds"
	MetricIngestSuccessTotal  MetricName = "ingest_success_total"
	MetricIngestRejectTotal   MetricName = "ingest_reject_total"
	MetricIngestFailTotal     MetricName = "ingest_fail_total"

	MetricBudgetDailyTotal         MetricName = "budget_daily_total_usd"
	MetricBudgetMonthlyTotal       MetricName = "budget_monthly_total_usd"
	MetricBudgetDailyThreshold     MetricName = "budget_daily_threshold_usd"
	MetricBudgetMonthlyThreshold   MetricName = "budget_monthly_threshold_usd"
	MetricBudgetDailyUtilization   MetricName = "budget_daily_utilization_pct"
	MetricBudgetMonthlyUtilization MetricName = "budget_monthly_utilization_pct"
	MetricBudgetDailyByType        MetricName = "budget_daily_cost_by_type_usd"
	MetricBudgetEventsProcessed    MetricName = "budget_events_processed_total"
)

// label name 常數
type MetricLabelName string

const (
	MetricLabelEndpoint MetricLabelName = "endpoint"
	MetricLabelStatus   MetricLabelName = "status"
	MetricLabelReason   MetricLabelName = "reason"
	MetricLabelCostType MetricLabelName = "cost_type"
	MetricLabelSource   MetricLabelName = "source_service"
)

type LoggerRequestMeta struct {
	Method     string            `trace:"request.method"`
	Path       string            `trace:"request.path"`
	FullPath   string            `trace:"request.full_path"`
	Query      string            `trace:"request.query"`
	Body       string            `trace:"request.body"`
	Scheme     string            `trace:"http.scheme"`
	Host       string            `trace:"http.host"`
	UserAgent  string            `trace:"http.user_agent"`
	ContentLen int64             `trace:"http.request_content_length"`
	Proto      string            `trace:"http.flavor"`
	ClientIP   string            `trace:"net.peer.ip"`
	Headers    map[string]string `trace:"http.request.header"`
	Params     map[string]string `trace:"http.request.param"`
}

type TraceHttpServerMeta struct {
	ClientAddr        string `trace:"client.address"`
	HttpRequestMethod string `trace:"http.request.method"`
	HttpRoute         string `trace:"http.route"`
	HttpStatusCode    int    `trace:"http.response.status_code"`
	UrlPath           string `trace:"url.path"`
	UrlScheme         string `trace:"url.scheme"`
	UserAgent         string `trace:"user_agent.original"`
	ServerAddress     string `trace:"server.address"`
	NetworkPeerAddr   string `trace:"network.peer.address"`
	NetworkPeerPort   int    `trace:"network.peer.port"`
	NetworkProtoVer   string `trace:"network.protocol.version"`
	SpanTraceID       string `trace:"span.trace_id"`
}

type TracePanicMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	ClientIP   string  `trace:"net.peer.ip"`
	UserAgent  string  `trace:"http.user_agent"`
	DurationMs float64 `trace:"response.latency_ms"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"error.message"`
	Stack      string  `trace:"error.stack"`
}

type TraceErrorMeta struct {
	Code       int     `trace:"error.code"`
	Message    string  `trace:"error.message"`
	Detail     string  `trace:"error.detail"`
	Status     int     `trace:"http.status_code"`
	DurationMs float64 `trace:"response.latency_ms"`
}

type TraceResponseMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"response.message"`
	Code       int     `trace:"response.code"`
	DurationMs float64 `trace:"response.latency_ms"`
	Data       string  `trace:"response.data"`
}

// 供 CostIngestor 寫入事件時使用
type TraceCostEventMeta struct {
	EventID       string `trace:"cost.event_id"`
	CostType      string `trace:"cost.type"`
	Unit          string `trace:"cost.unit"`
	AmountUSD     string `trace:"cost.amount_usd"`
	Quantity      int64  `trace:"cost.quantity"`
	SourceService string `trace:"cost.source_service"`
	Success       bool   `trace:"cost.success"`
}

// 供彙總查詢使用
type TraceCostQueryMeta struct {
	Op          string `trace:"cost.query.op"`
	Days        int    `trace:"cost.query.days,omitempty"`
	From        string `trace:"cost.query.from,omitempty"`
	To          string `trace:"cost.query.to,omitempty"`
	ResultCount int    `trace:"cost.query.result_count,omitempty"`
}

// 供門檻設定更新使用
type TraceThresholdMeta struct {
	DailyUSD   string `trace:"budget.threshold.daily_usd,omitempty"`
	MonthlyUSD string `trace:"budget.threshold.monthly_usd,omitempty"`
	Op         string `trace:"budget.threshold.op"`
}
