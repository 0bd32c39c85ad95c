package datadog

import (
	"context"
	"net/http"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// AuthAPI defines the key validation endpoint used by HealthCheck.
type AuthAPI interface {
	Validate(ctx context.Context) (datadogV1.AuthenticationValidationResponse, *http.Response, error)
}

// MetricsAPI defines the metrics operations used by MetricsClient.
type MetricsAPI interface {
	QueryMetrics(ctx context.Context, from int64, to int64, query string) (datadogV1.MetricsQueryResponse, *http.Response, error)
	ListActiveMetrics(ctx context.Context, from int64, o ...datadogV1.ListActiveMetricsOptionalParameters) (datadogV1.MetricsListResponse, *http.Response, error)
	GetMetricMetadata(ctx context.Context, metricName string) (datadogV1.MetricMetadata, *http.Response, error)
}

// LogsAPI defines the log operations used by LogsClient.
type LogsAPI interface {
	ListLogs(ctx context.Context, o ...datadogV2.ListLogsOptionalParameters) (datadogV2.LogsListResponse, *http.Response, error)
	AggregateLogs(ctx context.Context, body datadogV2.LogsAggregateRequest) (datadogV2.LogsAggregateResponse, *http.Response, error)
}
