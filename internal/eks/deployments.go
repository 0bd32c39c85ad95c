package eks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	opserrors "github.com/systmms/devops/internal/errors"
)

// RestartedAtAnnotation is the pod template annotation kubectl rollout
// restart sets.
const RestartedAtAnnotation = "kubectl.kubernetes.io/restartedAt"

// DeploymentsClient lists, inspects, scales and restarts deployments.
type DeploymentsClient struct {
	*Client

	now func() time.Time
}

// NewDeploymentsClient creates a deployment client.
func NewDeploymentsClient(opts ...Option) (*DeploymentsClient, error) {
	c, err := NewClient("DeploymentsClient", opts...)
	if err != nil {
		return nil, err
	}
	return &DeploymentsClient{Client: c, now: time.Now}, nil
}

// ListDeployments returns the deployments in namespace matching selector.
func (c *DeploymentsClient) ListDeployments(ctx context.Context, namespace, selector string) (deployments []appsv1.Deployment, err error) {
	defer c.Observe("ListDeployments", time.Now(), &err)

	cs, err := c.Clientset()
	if err != nil {
		return nil, err
	}
	ns := c.ns(namespace)

	list, err := cs.AppsV1().Deployments(ns).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, c.WrapError(err, fmt.Sprintf("list_namespaced_deployment(ns=%s)", ns))
	}
	return list.Items, nil
}

// GetDeployment returns the deployment called name.
func (c *DeploymentsClient) GetDeployment(ctx context.Context, name, namespace string) (d *appsv1.Deployment, err error) {
	defer c.Observe("GetDeployment", time.Now(), &err)

	cs, err := c.Clientset()
	if err != nil {
		return nil, err
	}
	ns := c.ns(namespace)

	d, err = cs.AppsV1().Deployments(ns).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, c.notFoundOr(err, "Deployment", name, fmt.Sprintf("read_namespaced_deployment(%s)", name))
	}
	return d, nil
}

// ScaleDeployment sets the replica count of name.
func (c *DeploymentsClient) ScaleDeployment(ctx context.Context, name string, replicas int32, namespace string) (d *appsv1.Deployment, err error) {
	defer c.Observe("ScaleDeployment", time.Now(), &err)

	patch, err := mergePatch(map[string]any{
		"spec": map[string]any{"replicas": replicas},
	})
	if err != nil {
		return nil, err
	}

	d, err = c.patch(ctx, name, namespace, patch, fmt.Sprintf("patch_namespaced_deployment_scale(%s, replicas=%d)", name, replicas))
	if err != nil {
		return nil, err
	}
	c.Logger().Info("scaled deployment %s/%s to %d replicas", c.ns(namespace), name, replicas)
	return d, nil
}

// RestartDeployment triggers a rolling restart by stamping the pod template
// with the current time, the same way kubectl rollout restart does.
func (c *DeploymentsClient) RestartDeployment(ctx context.Context, name, namespace string) (d *appsv1.Deployment, err error) {
	defer c.Observe("RestartDeployment", time.Now(), &err)

	patch, err := mergePatch(map[string]any{
		"spec": map[string]any{
			"template": map[string]any{
				"metadata": map[string]any{
					"annotations": map[string]string{
						RestartedAtAnnotation: c.now().UTC().Format(time.RFC3339),
					},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	d, err = c.patch(ctx, name, namespace, patch, fmt.Sprintf("restart_deployment(%s)", name))
	if err != nil {
		return nil, err
	}
	c.Logger().Info("restarted deployment %s/%s", c.ns(namespace), name)
	return d, nil
}

func mergePatch(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, opserrors.NewKubernetesAPIError(fmt.Sprintf("encode merge patch: %v", err), 0, nil).WithCause(err)
	}
	return data, nil
}

func (c *DeploymentsClient) patch(ctx context.Context, name, namespace string, data []byte, op string) (*appsv1.Deployment, error) {
	cs, err := c.Clientset()
	if err != nil {
		return nil, err
	}

	d, err := cs.AppsV1().Deployments(c.ns(namespace)).Patch(ctx, name, types.MergePatchType, data, metav1.PatchOptions{})
	if err != nil {
		return nil, c.notFoundOr(err, "Deployment", name, op)
	}
	return d, nil
}
