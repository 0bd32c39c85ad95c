package eks

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DefaultTailLines is the number of log lines returned when none is given.
const DefaultTailLines int64 = 100

// PodsClient lists, inspects, reads logs from and deletes pods.
type PodsClient struct {
	*Client
}

// NewPodsClient creates a pod client.
func NewPodsClient(opts ...Option) (*PodsClient, error) {
	c, err := NewClient("PodsClient", opts...)
	if err != nil {
		return nil, err
	}
	return &PodsClient{Client: c}, nil
}

// LogOptions selects the log output returned by GetPodLogs.
type LogOptions struct {
	Container string
	// TailLines defaults to DefaultTailLines.
	TailLines int64
	// Previous returns the logs of the previous container instance.
	Previous bool
}

// ListPods returns the pods in namespace matching selector. An empty
// namespace means the client namespace.
func (c *PodsClient) ListPods(ctx context.Context, namespace, selector string) (pods []corev1.Pod, err error) {
	defer c.Observe("ListPods", time.Now(), &err)

	cs, err := c.Clientset()
	if err != nil {
		return nil, err
	}
	ns := c.ns(namespace)

	list, err := cs.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, c.WrapError(err, fmt.Sprintf("list_namespaced_pod(ns=%s)", ns))
	}
	return list.Items, nil
}

// GetPod returns the pod called name.
func (c *PodsClient) GetPod(ctx context.Context, name, namespace string) (pod *corev1.Pod, err error) {
	defer c.Observe("GetPod", time.Now(), &err)

	cs, err := c.Clientset()
	if err != nil {
		return nil, err
	}
	ns := c.ns(namespace)

	pod, err = cs.CoreV1().Pods(ns).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, c.notFoundOr(err, "Pod", name, fmt.Sprintf("read_namespaced_pod(%s, ns=%s)", name, ns))
	}
	return pod, nil
}

// GetPodLogs returns the log output of a pod container.
func (c *PodsClient) GetPodLogs(ctx context.Context, name, namespace string, opts LogOptions) (logs string, err error) {
	defer c.Observe("GetPodLogs", time.Now(), &err)

	cs, err := c.Clientset()
	if err != nil {
		return "", err
	}
	ns := c.ns(namespace)

	tail := opts.TailLines
	if tail <= 0 {
		tail = DefaultTailLines
	}

	raw, err := cs.CoreV1().Pods(ns).GetLogs(name, &corev1.PodLogOptions{
		Container: opts.Container,
		TailLines: &tail,
		Previous:  opts.Previous,
	}).DoRaw(ctx)
	if err != nil {
		return "", c.notFoundOr(err, "Pod", name, fmt.Sprintf("read_namespaced_pod_log(%s)", name))
	}
	return string(raw), nil
}

// DeletePod deletes the pod called name. A controller-managed pod is
// recreated by its controller.
func (c *PodsClient) DeletePod(ctx context.Context, name, namespace string) (err error) {
	defer c.Observe("DeletePod", time.Now(), &err)

	cs, err := c.Clientset()
	if err != nil {
		return err
	}
	ns := c.ns(namespace)

	if err := cs.CoreV1().Pods(ns).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return c.notFoundOr(err, "Pod", name, fmt.Sprintf("delete_namespaced_pod(%s)", name))
	}
	c.Logger().Info("deleted pod %s/%s", ns, name)
	return nil
}
