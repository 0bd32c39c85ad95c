package commands

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"

	awsclient "github.com/systmms/devops/internal/aws"
	"github.com/systmms/devops/internal/datadog"
	"github.com/systmms/devops/internal/eks"
)

func healthyEnv(t *testing.T) *Env {
	t.Helper()
	env, _ := newTestEnv(t)
	t.Setenv("DD_API_KEY", "api")
	t.Setenv("DD_APP_KEY", "app")
	env.AWSOptions = append(env.AWSOptions, awsclient.WithSTSAPI(&fakeSTS{}))
	env.EKSOptions = []eks.Option{eks.WithClientset(fake.NewSimpleClientset())}
	env.DatadogOptions = []datadog.Option{datadog.WithAuthAPI(&fakeAuth{valid: true})}
	return env
}

func TestHealth_AllHealthy(t *testing.T) {
	env := healthyEnv(t)
	out := env.Out.(interface{ String() string })

	require.NoError(t, run(env, "health"))
	assert.Contains(t, out.String(), "INTEGRATION")
	assert.Contains(t, out.String(), "aws")
	assert.Contains(t, out.String(), "kubernetes")
	assert.Contains(t, out.String(), "datadog")
	assert.Contains(t, out.String(), "3/3 integrations healthy")
	assert.NotContains(t, out.String(), "\033[")
}

func TestHealth_OneUnhealthy(t *testing.T) {
	env := healthyEnv(t)
	env.AWSOptions = append(env.AWSOptions, awsclient.WithSTSAPI(&fakeSTS{err: errors.New("no EC2 IMDS role found")}))
	out := env.Out.(interface{ String() string })

	err := run(env, "health")
	require.Error(t, err)
	assert.Contains(t, out.String(), "2/3 integrations healthy")
	assert.Contains(t, out.String(), "unhealthy")
}

func TestHealth_ConstructionFailureIsReported(t *testing.T) {
	env := healthyEnv(t)
	t.Setenv("DD_APP_KEY", "")
	out := env.Out.(interface{ Bytes() []byte })

	err := run(env, "health", "-o", "json")
	require.Error(t, err)

	var results []IntegrationHealth
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "datadog", results[2].Integration)
	assert.False(t, results[2].Healthy)
	assert.Contains(t, results[2].Message, "datadog_app_key")
	assert.Contains(t, results[2].Hint, "DD_API_KEY")
	assert.True(t, results[0].Healthy)
	assert.True(t, results[1].Healthy)
}
