package datadog

import (
	"context"
	"net/http"
	"testing"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
	"github.com/stretchr/testify/require"

	"github.com/systmms/devops/internal/config"
)

func setKeys(t *testing.T) {
	t.Helper()
	t.Setenv("DD_API_KEY", "api-key-123")
	t.Setenv("DD_APP_KEY", "app-key-456")
	t.Setenv("DD_SITE", "")
}

func testOptions(extra ...Option) []Option {
	return append([]Option{WithConfig(config.Empty())}, extra...)
}

func httpResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Status: http.StatusText(status)}
}

func apiError(status int, body string) (*http.Response, error) {
	return httpResponse(status), datadog.GenericOpenAPIError{
		ErrorBody:    []byte(body),
		ErrorMessage: http.StatusText(status),
	}
}

// contextKeys extracts the keys attached by Client.AuthContext.
func contextKeys(t *testing.T, ctx context.Context) (map[string]datadog.APIKey, map[string]string) {
	t.Helper()
	keys, ok := ctx.Value(datadog.ContextAPIKeys).(map[string]datadog.APIKey)
	require.True(t, ok)
	vars, ok := ctx.Value(datadog.ContextServerVariables).(map[string]string)
	require.True(t, ok)
	return keys, vars
}

type fakeAuth struct {
	valid bool
	resp  *http.Response
	err   error
	ctx   context.Context
}

func (f *fakeAuth) Validate(ctx context.Context) (datadogV1.AuthenticationValidationResponse, *http.Response, error) {
	f.ctx = ctx
	if f.err != nil {
		return datadogV1.AuthenticationValidationResponse{}, f.resp, f.err
	}
	return datadogV1.AuthenticationValidationResponse{Valid: &f.valid}, httpResponse(200), nil
}

type queryCall struct {
	from, to int64
	query    string
}

type fakeMetrics struct {
	query     datadogV1.MetricsQueryResponse
	queryResp *http.Response
	queryErr  error
	queries   []queryCall

	active      []string
	activeErr   error
	activeFrom  int64
	activeHost  *string
	activeCalls int

	metadata    map[string]datadogV1.MetricMetadata
	metadataErr error
}

func (f *fakeMetrics) QueryMetrics(_ context.Context, from, to int64, query string) (datadogV1.MetricsQueryResponse, *http.Response, error) {
	f.queries = append(f.queries, queryCall{from: from, to: to, query: query})
	if f.queryErr != nil {
		return datadogV1.MetricsQueryResponse{}, f.queryResp, f.queryErr
	}
	return f.query, httpResponse(200), nil
}

func (f *fakeMetrics) ListActiveMetrics(_ context.Context, from int64, o ...datadogV1.ListActiveMetricsOptionalParameters) (datadogV1.MetricsListResponse, *http.Response, error) {
	f.activeCalls++
	f.activeFrom = from
	if len(o) > 0 {
		f.activeHost = o[0].Host
	}
	if f.activeErr != nil {
		resp, _ := apiError(500, `{"errors":["boom"]}`)
		return datadogV1.MetricsListResponse{}, resp, f.activeErr
	}
	return datadogV1.MetricsListResponse{Metrics: f.active}, httpResponse(200), nil
}

func (f *fakeMetrics) GetMetricMetadata(_ context.Context, name string) (datadogV1.MetricMetadata, *http.Response, error) {
	if f.metadataErr != nil {
		resp, _ := apiError(500, "")
		return datadogV1.MetricMetadata{}, resp, f.metadataErr
	}
	meta, ok := f.metadata[name]
	if !ok {
		resp, err := apiError(404, `{"errors":["Metric not found"]}`)
		return datadogV1.MetricMetadata{}, resp, err
	}
	return meta, httpResponse(200), nil
}

type fakeLogs struct {
	logs    []datadogV2.Log
	buckets *datadogV2.LogsAggregateResponseData
	err     error
	resp    *http.Response

	listBody *datadogV2.LogsListRequest
	aggBody  *datadogV2.LogsAggregateRequest
}

func (f *fakeLogs) ListLogs(_ context.Context, o ...datadogV2.ListLogsOptionalParameters) (datadogV2.LogsListResponse, *http.Response, error) {
	if len(o) > 0 {
		f.listBody = o[0].Body
	}
	if f.err != nil {
		return datadogV2.LogsListResponse{}, f.resp, f.err
	}
	return datadogV2.LogsListResponse{Data: f.logs}, httpResponse(200), nil
}

func (f *fakeLogs) AggregateLogs(_ context.Context, body datadogV2.LogsAggregateRequest) (datadogV2.LogsAggregateResponse, *http.Response, error) {
	f.aggBody = &body
	if f.err != nil {
		return datadogV2.LogsAggregateResponse{}, f.resp, f.err
	}
	return datadogV2.LogsAggregateResponse{Data: f.buckets}, httpResponse(200), nil
}
