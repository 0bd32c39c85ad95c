package eks

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	discoveryv1 "k8s.io/api/discovery/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// ServicesClient lists and inspects services and their endpoints.
type ServicesClient struct {
	*Client
}

// NewServicesClient creates a service client.
func NewServicesClient(opts ...Option) (*ServicesClient, error) {
	c, err := NewClient("ServicesClient", opts...)
	if err != nil {
		return nil, err
	}
	return &ServicesClient{Client: c}, nil
}

// ListServices returns the services in namespace matching selector.
func (c *ServicesClient) ListServices(ctx context.Context, namespace, selector string) (services []corev1.Service, err error) {
	defer c.Observe("ListServices", time.Now(), &err)

	cs, err := c.Clientset()
	if err != nil {
		return nil, err
	}
	ns := c.ns(namespace)

	list, err := cs.CoreV1().Services(ns).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, c.WrapError(err, fmt.Sprintf("list_namespaced_service(ns=%s)", ns))
	}
	return list.Items, nil
}

// GetService returns the service called name.
func (c *ServicesClient) GetService(ctx context.Context, name, namespace string) (svc *corev1.Service, err error) {
	defer c.Observe("GetService", time.Now(), &err)

	cs, err := c.Clientset()
	if err != nil {
		return nil, err
	}
	ns := c.ns(namespace)

	svc, err = cs.CoreV1().Services(ns).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, c.notFoundOr(err, "Service", name, fmt.Sprintf("read_namespaced_service(%s)", name))
	}
	return svc, nil
}

// GetEndpoints returns the endpoint slices backing service name. A missing
// service is reported as missing endpoints.
func (c *ServicesClient) GetEndpoints(ctx context.Context, name, namespace string) (slices []discoveryv1.EndpointSlice, err error) {
	defer c.Observe("GetEndpoints", time.Now(), &err)

	cs, err := c.Clientset()
	if err != nil {
		return nil, err
	}
	ns := c.ns(namespace)

	if _, err := cs.CoreV1().Services(ns).Get(ctx, name, metav1.GetOptions{}); err != nil {
		return nil, c.notFoundOr(err, "Endpoints", name, fmt.Sprintf("read_namespaced_service(%s)", name))
	}

	selector := labels.Set{discoveryv1.LabelServiceName: name}.AsSelector().String()
	list, err := cs.DiscoveryV1().EndpointSlices(ns).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, c.WrapError(err, fmt.Sprintf("list_namespaced_endpoint_slice(%s)", name))
	}
	return list.Items, nil
}
