package datadog

import (
	"context"
	"strings"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Log search defaults.
const (
	DefaultLogQuery = "*"
	DefaultLogLimit = 100
	DefaultLogSort  = "-timestamp"
)

// LogsClient searches and aggregates logs.
type LogsClient struct {
	*Client
}

// NewLogsClient creates a logs client.
func NewLogsClient(opts ...Option) (*LogsClient, error) {
	c, err := NewClient("LogsClient", opts...)
	if err != nil {
		return nil, err
	}
	return &LogsClient{Client: c}, nil
}

// LogQuery selects the logs returned by SearchLogs and AggregateLogs. Zero
// From or To leave the window to the Datadog default.
type LogQuery struct {
	Query string
	From  time.Time
	To    time.Time

	// Limit defaults to DefaultLogLimit. Search only.
	Limit int32
	// Sort is "timestamp" or "-timestamp". Search only.
	Sort string
	// GroupBy lists facets to bucket by. Aggregate only.
	GroupBy []string
}

func (q LogQuery) filter() *datadogV2.LogsQueryFilter {
	query := q.Query
	if query == "" {
		query = DefaultLogQuery
	}
	f := &datadogV2.LogsQueryFilter{Query: &query}
	if !q.From.IsZero() {
		from := q.From.UTC().Format(time.RFC3339)
		f.From = &from
	}
	if !q.To.IsZero() {
		to := q.To.UTC().Format(time.RFC3339)
		f.To = &to
	}
	return f
}

func (q LogQuery) sort() datadogV2.LogsSort {
	s := q.Sort
	if s == "" {
		s = DefaultLogSort
	}
	if strings.HasPrefix(s, "-") {
		return datadogV2.LOGSSORT_TIMESTAMP_DESCENDING
	}
	return datadogV2.LOGSSORT_TIMESTAMP_ASCENDING
}

// SearchLogs returns the logs matching q, newest first by default.
func (c *LogsClient) SearchLogs(ctx context.Context, q LogQuery) (logs []datadogV2.Log, err error) {
	defer c.Observe("SearchLogs", time.Now(), &err)

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	body := datadogV2.LogsListRequest{
		Filter: q.filter(),
		Sort:   q.sort().Ptr(),
		Page:   &datadogV2.LogsListRequestPage{Limit: &limit},
	}

	resp, httpResp, err := c.Logs().ListLogs(c.AuthContext(ctx), *datadogV2.NewListLogsOptionalParameters().WithBody(body))
	if err != nil {
		return nil, c.WrapError(err, httpResp, "Datadog logs search failed")
	}
	return resp.Data, nil
}

// AggregateLogs counts the logs matching q, bucketed by q.GroupBy.
func (c *LogsClient) AggregateLogs(ctx context.Context, q LogQuery) (buckets []datadogV2.LogsAggregateBucket, err error) {
	defer c.Observe("AggregateLogs", time.Now(), &err)

	body := datadogV2.LogsAggregateRequest{
		Compute: []datadogV2.LogsCompute{{
			Aggregation: datadogV2.LOGSAGGREGATIONFUNCTION_COUNT,
			Type:        datadogV2.LOGSCOMPUTETYPE_TOTAL.Ptr(),
		}},
		Filter: q.filter(),
	}
	for _, facet := range q.GroupBy {
		body.GroupBy = append(body.GroupBy, datadogV2.LogsGroupBy{Facet: facet})
	}

	resp, httpResp, err := c.Logs().AggregateLogs(c.AuthContext(ctx), body)
	if err != nil {
		return nil, c.WrapError(err, httpResp, "Datadog logs aggregate failed")
	}
	if resp.Data == nil {
		return nil, nil
	}
	return resp.Data.Buckets, nil
}
