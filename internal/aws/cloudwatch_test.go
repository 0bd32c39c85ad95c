package aws

import (
	"context"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opserrors "github.com/systmms/devops/internal/errors"
)

func newCloudWatchClient(t *testing.T, cw *fakeCloudWatch, logs *fakeLogs) *CloudWatchClient {
	t.Helper()
	c, err := NewCloudWatchClient(testOptions(WithCloudWatchAPI(cw), WithCloudWatchLogsAPI(logs))...)
	require.NoError(t, err)
	return c
}

func TestGetMetricStatistics_SortsAndDefaults(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cw := &fakeCloudWatch{stats: &cloudwatch.GetMetricStatisticsOutput{Datapoints: []cwtypes.Datapoint{
		{Timestamp: awssdk.Time(base.Add(10 * time.Minute)), Average: awssdk.Float64(3)},
		{Timestamp: awssdk.Time(base), Average: awssdk.Float64(1)},
		{Timestamp: awssdk.Time(base.Add(5 * time.Minute)), Average: awssdk.Float64(2)},
	}}}
	c := newCloudWatchClient(t, cw, &fakeLogs{})

	points, err := c.GetMetricStatistics(context.Background(), MetricQuery{
		Namespace:  "AWS/EC2",
		MetricName: "CPUUtilization",
		Dimensions: []cwtypes.Dimension{{Name: awssdk.String("InstanceId"), Value: awssdk.String("i-1")}},
		Start:      base,
		End:        base.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 1.0, *points[0].Average)
	assert.Equal(t, 3.0, *points[2].Average)

	assert.Equal(t, int32(300), *cw.statsInput.Period)
	assert.Equal(t, []cwtypes.Statistic{cwtypes.StatisticAverage}, cw.statsInput.Statistics)
}

func TestListMetrics(t *testing.T) {
	cw := &fakeCloudWatch{metrics: []*cloudwatch.ListMetricsOutput{
		{Metrics: []cwtypes.Metric{{MetricName: awssdk.String("CPUUtilization")}}, NextToken: awssdk.String("t")},
		{Metrics: []cwtypes.Metric{{MetricName: awssdk.String("NetworkIn")}}},
	}}
	c := newCloudWatchClient(t, cw, &fakeLogs{})

	got, err := c.ListMetrics(context.Background(), "AWS/EC2", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListLogGroups(t *testing.T) {
	logs := &fakeLogs{groups: []*cloudwatchlogs.DescribeLogGroupsOutput{
		{LogGroups: []logstypes.LogGroup{{LogGroupName: awssdk.String("/aws/lambda/a")}}, NextToken: awssdk.String("t")},
		{LogGroups: []logstypes.LogGroup{{LogGroupName: awssdk.String("/aws/lambda/b")}}},
	}}
	c := newCloudWatchClient(t, &fakeCloudWatch{}, logs)

	got, err := c.ListLogGroups(context.Background(), "/aws/lambda")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGetLogEvents(t *testing.T) {
	logs := &fakeLogs{events: &cloudwatchlogs.GetLogEventsOutput{
		Events: []logstypes.OutputLogEvent{{Message: awssdk.String("hello")}},
	}}
	c := newCloudWatchClient(t, &fakeCloudWatch{}, logs)
	start := time.UnixMilli(1_700_000_000_000)

	got, err := c.GetLogEvents(context.Background(), "/app", "stream-1", LogWindow{Start: start})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(100), *logs.eventsInput.Limit)
	assert.True(t, *logs.eventsInput.StartFromHead)
	assert.Equal(t, int64(1_700_000_000_000), *logs.eventsInput.StartTime)
	assert.Nil(t, logs.eventsInput.EndTime)

	logs.err = apiError(400, "ResourceNotFoundException", "The specified log stream does not exist.")
	_, err = c.GetLogEvents(context.Background(), "/app", "stream-2", LogWindow{})
	require.Error(t, err)
	e, ok := opserrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "CloudWatch Log Stream", e.ResourceType)
	assert.Equal(t, "stream-2", e.Identifier)
}

func TestFilterLogEvents(t *testing.T) {
	logs := &fakeLogs{filtered: &cloudwatchlogs.FilterLogEventsOutput{
		Events: []logstypes.FilteredLogEvent{{Message: awssdk.String("ERROR boom")}},
	}}
	c := newCloudWatchClient(t, &fakeCloudWatch{}, logs)

	got, err := c.FilterLogEvents(context.Background(), "/app", "ERROR", LogWindow{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ERROR", *logs.filterInput.FilterPattern)
	assert.Equal(t, int32(10), *logs.filterInput.Limit)

	logs.err = apiError(400, "ResourceNotFoundException", "The specified log group does not exist.")
	_, err = c.FilterLogEvents(context.Background(), "/missing", "", LogWindow{})
	e, ok := opserrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "CloudWatch Log Group", e.ResourceType)

	logs.err = apiError(400, "InvalidParameterException", "bad pattern")
	_, err = c.FilterLogEvents(context.Background(), "/app", "[", LogWindow{})
	assert.ErrorIs(t, err, opserrors.ErrAWSAPI)
}
