package commands

import (
	"encoding/json"
	"testing"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awsclient "github.com/systmms/devops/internal/aws"
	opserrors "github.com/systmms/devops/internal/errors"
)

func ec2Env(t *testing.T) (*Env, *fakeEC2) {
	t.Helper()
	env, _ := newTestEnv(t)
	api := &fakeEC2{instances: []ec2types.Instance{
		instance("i-1", "web", ec2types.InstanceStateNameRunning),
		instance("i-2", "batch", ec2types.InstanceStateNameStopped),
	}}
	env.AWSOptions = append(env.AWSOptions, awsclient.WithEC2API(api))
	return env, api
}

func TestAWSListInstances_Table(t *testing.T) {
	env, _ := ec2Env(t)
	out := env.Out.(interface{ String() string })

	require.NoError(t, run(env, "aws", "list-instances"))
	assert.Contains(t, out.String(), "INSTANCE ID")
	assert.Contains(t, out.String(), "i-1")
	assert.Contains(t, out.String(), "web")
	assert.Contains(t, out.String(), "i-2")
	assert.Contains(t, out.String(), "stopped")
}

func TestAWSListInstances_RunningJSON(t *testing.T) {
	env, _ := ec2Env(t)
	out := env.Out.(interface{ Bytes() []byte })

	require.NoError(t, run(env, "aws", "list-instances", "--running", "-o", "json"))

	var got []ec2types.Instance
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "i-1", *got[0].InstanceId)
}

func TestAWSStartInstance(t *testing.T) {
	env, _ := ec2Env(t)
	out := env.Out.(interface{ String() string })

	require.NoError(t, run(env, "aws", "start-instance", "i-2"))
	assert.Contains(t, out.String(), "stopped")
	assert.Contains(t, out.String(), "pending")
}

func TestAWSStopInstance_EmptyResponse(t *testing.T) {
	env, _ := ec2Env(t)

	err := run(env, "aws", "stop-instance", "i-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, opserrors.ErrAWSAPI)
	assert.Contains(t, err.Error(), "i-1")
}

func TestAWSInvokeFunction_BadPayload(t *testing.T) {
	env, _ := newTestEnv(t)

	err := run(env, "aws", "invoke-function", "fn", "--payload", "{not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--payload")
}

func TestAWS_RequiresArgs(t *testing.T) {
	env, _ := newTestEnv(t)
	assert.Error(t, run(env, "aws", "describe-instance"))
}
