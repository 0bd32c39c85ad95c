package datadog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"

	opserrors "github.com/systmms/devops/internal/errors"
)

// Default query windows.
const (
	DefaultQueryWindow        = time.Hour
	DefaultActiveMetricWindow = 24 * time.Hour
)

// MetricsClient queries timeseries and metric metadata.
type MetricsClient struct {
	*Client

	now func() time.Time
}

// NewMetricsClient creates a metrics client.
func NewMetricsClient(opts ...Option) (*MetricsClient, error) {
	c, err := NewClient("MetricsClient", opts...)
	if err != nil {
		return nil, err
	}
	return &MetricsClient{Client: c, now: time.Now}, nil
}

// QueryMetrics evaluates a metrics query over [from, to]. A zero to means
// now and a zero from means one hour before to.
func (c *MetricsClient) QueryMetrics(ctx context.Context, query string, from, to time.Time) (resp datadogV1.MetricsQueryResponse, err error) {
	defer c.Observe("QueryMetrics", time.Now(), &err)

	if to.IsZero() {
		to = c.now()
	}
	if from.IsZero() {
		from = to.Add(-DefaultQueryWindow)
	}

	resp, httpResp, err := c.Metrics().QueryMetrics(c.AuthContext(ctx), from.Unix(), to.Unix(), query)
	if err != nil {
		return resp, c.WrapError(err, httpResp, "Datadog metrics query failed")
	}
	if resp.GetStatus() == "error" {
		return resp, opserrors.NewDatadogAPIError(
			fmt.Sprintf("Datadog metrics query failed: %s", resp.GetError()),
			statusCode(httpResp),
			map[string]any{"query": query},
		)
	}
	return resp, nil
}

// ListActiveMetrics returns the names of metrics reporting since from,
// optionally restricted to host. A zero from means 24 hours ago.
func (c *MetricsClient) ListActiveMetrics(ctx context.Context, from time.Time, host string) (names []string, err error) {
	defer c.Observe("ListActiveMetrics", time.Now(), &err)

	if from.IsZero() {
		from = c.now().Add(-DefaultActiveMetricWindow)
	}

	params := datadogV1.NewListActiveMetricsOptionalParameters()
	if host != "" {
		params = params.WithHost(host)
	}

	resp, httpResp, err := c.Metrics().ListActiveMetrics(c.AuthContext(ctx), from.Unix(), *params)
	if err != nil {
		return nil, c.WrapError(err, httpResp, "Datadog list_active_metrics failed")
	}
	return resp.Metrics, nil
}

// GetMetricMetadata returns the metadata of metric name.
func (c *MetricsClient) GetMetricMetadata(ctx context.Context, name string) (meta datadogV1.MetricMetadata, err error) {
	defer c.Observe("GetMetricMetadata", time.Now(), &err)

	meta, httpResp, err := c.Metrics().GetMetricMetadata(c.AuthContext(ctx), name)
	if err != nil {
		if statusCode(httpResp) == http.StatusNotFound {
			return meta, opserrors.NewResourceNotFound("Metric", name).WithCause(err)
		}
		return meta, c.WrapError(err, httpResp, fmt.Sprintf("Datadog get_metric_metadata(%s) failed", name))
	}
	return meta, nil
}
