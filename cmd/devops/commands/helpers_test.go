package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"

	awsclient "github.com/systmms/devops/internal/aws"
	"github.com/systmms/devops/internal/config"
)

// newTestEnv returns an Env with a clean environment, a config path that
// does not exist yet, and captured output.
func newTestEnv(t *testing.T) (*Env, *bytes.Buffer) {
	t.Helper()
	for _, r := range config.Empty().Settings() {
		for _, v := range r.EnvVars {
			t.Setenv(v, "")
		}
	}
	t.Setenv("LOG_LEVEL", "ERROR")

	out := &bytes.Buffer{}
	env := NewEnv()
	env.Out = out
	env.Err = io.Discard
	env.ConfigPath = filepath.Join(t.TempDir(), "config.yaml")
	env.AWSOptions = []awsclient.Option{awsclient.WithAWSConfig(awssdk.Config{Region: "us-east-1"})}
	return env, out
}

func run(env *Env, args ...string) error {
	return Execute(env, "test", append(args, "--no-color"))
}

type fakeEC2 struct {
	instances []ec2types.Instance
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	var out []ec2types.Instance
	for _, inst := range f.instances {
		if len(in.Filters) > 0 && inst.State.Name != ec2types.InstanceStateNameRunning {
			continue
		}
		out = append(out, inst)
	}
	return &ec2.DescribeInstancesOutput{Reservations: []ec2types.Reservation{{Instances: out}}}, nil
}

func (f *fakeEC2) DescribeInstanceStatus(_ context.Context, _ *ec2.DescribeInstanceStatusInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error) {
	return &ec2.DescribeInstanceStatusOutput{}, nil
}

func (f *fakeEC2) StartInstances(_ context.Context, in *ec2.StartInstancesInput, _ ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	return &ec2.StartInstancesOutput{StartingInstances: []ec2types.InstanceStateChange{{
		InstanceId:    awssdk.String(in.InstanceIds[0]),
		PreviousState: &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopped},
		CurrentState:  &ec2types.InstanceState{Name: ec2types.InstanceStateNamePending},
	}}}, nil
}

func (f *fakeEC2) StopInstances(_ context.Context, _ *ec2.StopInstancesInput, _ ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	return &ec2.StopInstancesOutput{}, nil
}

func instance(id, name string, state ec2types.InstanceStateName) ec2types.Instance {
	return ec2types.Instance{
		InstanceId:       awssdk.String(id),
		InstanceType:     ec2types.InstanceTypeT3Micro,
		State:            &ec2types.InstanceState{Name: state},
		PrivateIpAddress: awssdk.String("10.0.0.5"),
		Tags:             []ec2types.Tag{{Key: awssdk.String("Name"), Value: awssdk.String(name)}},
	}
}

type fakeSTS struct {
	err error
}

func (f *fakeSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: awssdk.String("123456789012")}, nil
}

type fakeAuth struct {
	valid bool
}

func (f *fakeAuth) Validate(context.Context) (datadogV1.AuthenticationValidationResponse, *http.Response, error) {
	return datadogV1.AuthenticationValidationResponse{Valid: &f.valid}, &http.Response{StatusCode: 200}, nil
}

type fakeMetrics struct {
	active []string
	host   *string
}

func (f *fakeMetrics) QueryMetrics(_ context.Context, _, _ int64, query string) (datadogV1.MetricsQueryResponse, *http.Response, error) {
	metric, scope := "system.cpu.user", "host:web-1"
	v, ts := 42.5, 1.7e12
	return datadogV1.MetricsQueryResponse{
		Query: &query,
		Series: []datadogV1.MetricsQueryMetadata{{
			Metric:    &metric,
			Scope:     &scope,
			Pointlist: [][]*float64{{&ts, &v}},
		}},
	}, &http.Response{StatusCode: 200}, nil
}

func (f *fakeMetrics) ListActiveMetrics(_ context.Context, _ int64, o ...datadogV1.ListActiveMetricsOptionalParameters) (datadogV1.MetricsListResponse, *http.Response, error) {
	if len(o) > 0 {
		f.host = o[0].Host
	}
	return datadogV1.MetricsListResponse{Metrics: f.active}, &http.Response{StatusCode: 200}, nil
}

func (f *fakeMetrics) GetMetricMetadata(_ context.Context, _ string) (datadogV1.MetricMetadata, *http.Response, error) {
	unit := "percent"
	return datadogV1.MetricMetadata{Unit: &unit}, &http.Response{StatusCode: 200}, nil
}
