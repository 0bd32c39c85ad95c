package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	opserrors "github.com/systmms/devops/internal/errors"
)

// Query defaults.
const (
	DefaultMetricPeriod int32 = 300
	DefaultLogLimit     int32 = 100
)

// CloudWatchClient queries CloudWatch metrics and CloudWatch Logs.
type CloudWatchClient struct {
	*Client
}

// NewCloudWatchClient creates a CloudWatch client.
func NewCloudWatchClient(opts ...Option) (*CloudWatchClient, error) {
	c, err := NewClient("CloudWatchClient", opts...)
	if err != nil {
		return nil, err
	}
	return &CloudWatchClient{Client: c}, nil
}

// MetricQuery selects the datapoints returned by GetMetricStatistics.
type MetricQuery struct {
	Namespace  string
	MetricName string
	Dimensions []cwtypes.Dimension
	Start      time.Time
	End        time.Time
	// Period in seconds; zero means DefaultMetricPeriod.
	Period int32
	// Statistics defaults to Average.
	Statistics []cwtypes.Statistic
}

// LogWindow bounds a log query. Zero times are left open.
type LogWindow struct {
	Start time.Time
	End   time.Time
	// Limit defaults to DefaultLogLimit.
	Limit int32
}

// GetMetricStatistics returns the datapoints of q ordered by timestamp.
func (c *CloudWatchClient) GetMetricStatistics(ctx context.Context, q MetricQuery) (points []cwtypes.Datapoint, err error) {
	defer c.Observe("GetMetricStatistics", time.Now(), &err)

	if q.Period <= 0 {
		q.Period = DefaultMetricPeriod
	}
	if len(q.Statistics) == 0 {
		q.Statistics = []cwtypes.Statistic{cwtypes.StatisticAverage}
	}

	api, err := c.CloudWatch(ctx)
	if err != nil {
		return nil, err
	}

	out, err := api.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  awssdk.String(q.Namespace),
		MetricName: awssdk.String(q.MetricName),
		Dimensions: q.Dimensions,
		StartTime:  awssdk.Time(q.Start),
		EndTime:    awssdk.Time(q.End),
		Period:     awssdk.Int32(q.Period),
		Statistics: q.Statistics,
	})
	if err != nil {
		return nil, c.WrapError(err, "CloudWatch get_metric_statistics failed")
	}

	points = out.Datapoints
	sort.SliceStable(points, func(i, j int) bool {
		return awssdk.ToTime(points[i].Timestamp).Before(awssdk.ToTime(points[j].Timestamp))
	})
	return points, nil
}

// ListMetrics returns metrics, optionally filtered by namespace and name.
func (c *CloudWatchClient) ListMetrics(ctx context.Context, namespace, name string) (metrics []cwtypes.Metric, err error) {
	defer c.Observe("ListMetrics", time.Now(), &err)

	api, err := c.CloudWatch(ctx)
	if err != nil {
		return nil, err
	}

	input := &cloudwatch.ListMetricsInput{}
	if namespace != "" {
		input.Namespace = awssdk.String(namespace)
	}
	if name != "" {
		input.MetricName = awssdk.String(name)
	}

	paginator := cloudwatch.NewListMetricsPaginator(api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.WrapError(err, "CloudWatch list_metrics failed")
		}
		metrics = append(metrics, page.Metrics...)
	}
	return metrics, nil
}

// ListLogGroups returns log groups, optionally filtered by name prefix.
func (c *CloudWatchClient) ListLogGroups(ctx context.Context, prefix string) (groups []logstypes.LogGroup, err error) {
	defer c.Observe("ListLogGroups", time.Now(), &err)

	api, err := c.CloudWatchLogs(ctx)
	if err != nil {
		return nil, err
	}

	input := &cloudwatchlogs.DescribeLogGroupsInput{}
	if prefix != "" {
		input.LogGroupNamePrefix = awssdk.String(prefix)
	}

	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.WrapError(err, "CloudWatch Logs describe_log_groups failed")
		}
		groups = append(groups, page.LogGroups...)
	}
	return groups, nil
}

// GetLogEvents returns events of one log stream, oldest first.
func (c *CloudWatchClient) GetLogEvents(ctx context.Context, group, stream string, w LogWindow) (events []logstypes.OutputLogEvent, err error) {
	defer c.Observe("GetLogEvents", time.Now(), &err)

	api, err := c.CloudWatchLogs(ctx)
	if err != nil {
		return nil, err
	}

	input := &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  awssdk.String(group),
		LogStreamName: awssdk.String(stream),
		Limit:         awssdk.Int32(w.limit()),
		StartFromHead: awssdk.Bool(true),
		StartTime:     millis(w.Start),
		EndTime:       millis(w.End),
	}

	out, err := api.GetLogEvents(ctx, input)
	if err != nil {
		if ErrorCode(err) == "ResourceNotFoundException" {
			return nil, opserrors.NewResourceNotFound("CloudWatch Log Stream", stream).WithCause(err)
		}
		return nil, c.WrapError(err, "CloudWatch Logs get_log_events failed")
	}
	return out.Events, nil
}

// FilterLogEvents searches every stream of group for pattern.
func (c *CloudWatchClient) FilterLogEvents(ctx context.Context, group, pattern string, w LogWindow) (events []logstypes.FilteredLogEvent, err error) {
	defer c.Observe("FilterLogEvents", time.Now(), &err)

	api, err := c.CloudWatchLogs(ctx)
	if err != nil {
		return nil, err
	}

	input := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName:  awssdk.String(group),
		FilterPattern: awssdk.String(pattern),
		Limit:         awssdk.Int32(w.limit()),
		StartTime:     millis(w.Start),
		EndTime:       millis(w.End),
	}

	out, err := api.FilterLogEvents(ctx, input)
	if err != nil {
		if ErrorCode(err) == "ResourceNotFoundException" {
			return nil, opserrors.NewResourceNotFound("CloudWatch Log Group", group).WithCause(err)
		}
		return nil, c.WrapError(err, fmt.Sprintf("CloudWatch Logs filter_log_events(%s)", group))
	}
	return out.Events, nil
}

func (w LogWindow) limit() int32 {
	if w.Limit <= 0 {
		return DefaultLogLimit
	}
	return w.Limit
}

// millis converts t to epoch milliseconds, nil for the zero time.
func millis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	return awssdk.Int64(t.UnixMilli())
}
