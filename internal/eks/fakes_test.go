package eks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/systmms/devops/internal/config"
)

// testOptions keeps clients off the local kubeconfig.
func testOptions(cs *fake.Clientset, extra ...Option) []Option {
	return append([]Option{
		WithConfig(config.Empty()),
		WithNamespace("default"),
		WithClientset(cs),
	}, extra...)
}

// failWith makes every verb on resource return err.
func failWith(cs *fake.Clientset, verb, resource string, err error) {
	cs.PrependReactor(verb, resource, func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, err
	})
}

func unauthorized() error {
	return apierrors.NewUnauthorized("token expired")
}

func forbidden(resource string) error {
	return apierrors.NewForbidden(schema.GroupResource{Resource: resource}, "", errors.New("rbac denied"))
}

func internalError() error {
	return apierrors.NewInternalError(errors.New("etcd unavailable"))
}

func newPods(t *testing.T, cs *fake.Clientset) *PodsClient {
	t.Helper()
	c, err := NewPodsClient(testOptions(cs)...)
	require.NoError(t, err)
	return c
}

func newDeployments(t *testing.T, cs *fake.Clientset) *DeploymentsClient {
	t.Helper()
	c, err := NewDeploymentsClient(testOptions(cs)...)
	require.NoError(t, err)
	return c
}

func newServices(t *testing.T, cs *fake.Clientset) *ServicesClient {
	t.Helper()
	c, err := NewServicesClient(testOptions(cs)...)
	require.NoError(t, err)
	return c
}
