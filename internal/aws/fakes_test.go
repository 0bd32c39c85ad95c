package aws

import (
	"context"
	"net/http"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/systmms/devops/internal/config"
)

// apiError builds the error shape the SDK returns for a failed call.
func apiError(status int, code, message string) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      &smithy.GenericAPIError{Code: code, Message: message},
		},
		RequestID: "req-1",
	}
}

// testOptions keeps clients off the real credential chain.
func testOptions(extra ...Option) []Option {
	return append([]Option{
		WithConfig(config.Empty()),
		WithAWSConfig(awssdk.Config{Region: "us-east-1"}),
	}, extra...)
}

type fakeEC2 struct {
	pages        []*ec2.DescribeInstancesOutput
	describeErr  error
	describeCall []*ec2.DescribeInstancesInput

	status    *ec2.DescribeInstanceStatusOutput
	statusErr error

	start    *ec2.StartInstancesOutput
	stop     *ec2.StopInstancesOutput
	startErr error
	stopErr  error
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.describeCall = append(f.describeCall, in)
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	i := len(f.describeCall) - 1
	if i >= len(f.pages) {
		return &ec2.DescribeInstancesOutput{}, nil
	}
	return f.pages[i], nil
}

func (f *fakeEC2) DescribeInstanceStatus(_ context.Context, _ *ec2.DescribeInstanceStatusInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeEC2) StartInstances(_ context.Context, _ *ec2.StartInstancesInput, _ ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.start, nil
}

func (f *fakeEC2) StopInstances(_ context.Context, _ *ec2.StopInstancesInput, _ ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return f.stop, nil
}

type fakeRDS struct {
	instances    []*rds.DescribeDBInstancesOutput
	instancesErr error
	clusters     []*rds.DescribeDBClustersOutput
	clustersErr  error
	events       *rds.DescribeEventsOutput
	eventsErr    error

	instanceCalls int
	clusterCalls  int
	eventsInput   *rds.DescribeEventsInput
}

func (f *fakeRDS) DescribeDBInstances(_ context.Context, _ *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	f.instanceCalls++
	if f.instancesErr != nil {
		return nil, f.instancesErr
	}
	if f.instanceCalls > len(f.instances) {
		return &rds.DescribeDBInstancesOutput{}, nil
	}
	return f.instances[f.instanceCalls-1], nil
}

func (f *fakeRDS) DescribeDBClusters(_ context.Context, _ *rds.DescribeDBClustersInput, _ ...func(*rds.Options)) (*rds.DescribeDBClustersOutput, error) {
	f.clusterCalls++
	if f.clustersErr != nil {
		return nil, f.clustersErr
	}
	if f.clusterCalls > len(f.clusters) {
		return &rds.DescribeDBClustersOutput{}, nil
	}
	return f.clusters[f.clusterCalls-1], nil
}

func (f *fakeRDS) DescribeEvents(_ context.Context, in *rds.DescribeEventsInput, _ ...func(*rds.Options)) (*rds.DescribeEventsOutput, error) {
	f.eventsInput = in
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

type fakeLambda struct {
	functions []*lambda.ListFunctionsOutput
	listCalls int
	listErr   error

	getErr    error
	getOutput *lambda.GetFunctionOutput
	cfgOutput *lambda.GetFunctionConfigurationOutput

	invokeInput  *lambda.InvokeInput
	invokeOutput *lambda.InvokeOutput
	invokeErr    error
}

func (f *fakeLambda) ListFunctions(_ context.Context, _ *lambda.ListFunctionsInput, _ ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listCalls > len(f.functions) {
		return &lambda.ListFunctionsOutput{}, nil
	}
	return f.functions[f.listCalls-1], nil
}

func (f *fakeLambda) GetFunction(_ context.Context, _ *lambda.GetFunctionInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOutput, nil
}

func (f *fakeLambda) GetFunctionConfiguration(_ context.Context, _ *lambda.GetFunctionConfigurationInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.cfgOutput, nil
}

func (f *fakeLambda) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.invokeInput = in
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return f.invokeOutput, nil
}

type fakeCloudWatch struct {
	stats      *cloudwatch.GetMetricStatisticsOutput
	statsInput *cloudwatch.GetMetricStatisticsInput
	metrics    []*cloudwatch.ListMetricsOutput
	calls      int
	err        error
}

func (f *fakeCloudWatch) GetMetricStatistics(_ context.Context, in *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	f.statsInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func (f *fakeCloudWatch) ListMetrics(_ context.Context, _ *cloudwatch.ListMetricsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.ListMetricsOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls > len(f.metrics) {
		return &cloudwatch.ListMetricsOutput{}, nil
	}
	return f.metrics[f.calls-1], nil
}

type fakeLogs struct {
	groups      []*cloudwatchlogs.DescribeLogGroupsOutput
	groupCalls  int
	eventsInput *cloudwatchlogs.GetLogEventsInput
	events      *cloudwatchlogs.GetLogEventsOutput
	filterInput *cloudwatchlogs.FilterLogEventsInput
	filtered    *cloudwatchlogs.FilterLogEventsOutput
	err         error
}

func (f *fakeLogs) DescribeLogGroups(_ context.Context, _ *cloudwatchlogs.DescribeLogGroupsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	f.groupCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.groupCalls > len(f.groups) {
		return &cloudwatchlogs.DescribeLogGroupsOutput{}, nil
	}
	return f.groups[f.groupCalls-1], nil
}

func (f *fakeLogs) GetLogEvents(_ context.Context, in *cloudwatchlogs.GetLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetLogEventsOutput, error) {
	f.eventsInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeLogs) FilterLogEvents(_ context.Context, in *cloudwatchlogs.FilterLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.filterInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.filtered, nil
}

type fakeSTS struct {
	calls int
	err   error
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{
		Account: awssdk.String("123456789012"),
		Arn:     awssdk.String("arn:aws:iam::123456789012:user/ops"),
	}, nil
}
