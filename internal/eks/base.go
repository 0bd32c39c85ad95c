// Package eks implements the Kubernetes integration: pods, deployments and
// services through client-go, plus EKS control plane lookups through the
// AWS integration.
package eks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/systmms/devops/internal/config"
	opserrors "github.com/systmms/devops/internal/errors"
	"github.com/systmms/devops/internal/integration"
	"github.com/systmms/devops/internal/logging"
	"github.com/systmms/devops/internal/telemetry"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	integration.Options

	namespace   string
	kubeContext string
	kubeconfig  string
	clientset   kubernetes.Interface
}

// WithConfig sets the configuration used to resolve namespace, context and
// kubeconfig.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.Config = cfg }
}

// WithLogger sets the parent logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.Logger = l }
}

// WithRecorder attaches a call metrics recorder.
func WithRecorder(r *telemetry.Recorder) Option {
	return func(o *options) { o.Recorder = r }
}

// WithNamespace overrides the configured eks_namespace.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithKubeContext overrides the configured eks_context.
func WithKubeContext(name string) Option {
	return func(o *options) { o.kubeContext = name }
}

// WithKubeconfig overrides the configured eks_kubeconfig path.
func WithKubeconfig(path string) Option {
	return func(o *options) { o.kubeconfig = path }
}

// WithClientset sets a custom clientset (for testing).
func WithClientset(cs kubernetes.Interface) Option {
	return func(o *options) { o.clientset = cs }
}

// Client is the Kubernetes base client. The kubeconfig is loaded and the
// clientset built on first use.
type Client struct {
	*integration.Base

	namespace   string
	kubeContext string
	kubeconfig  string

	restConfig integration.Lazy[*rest.Config]
	clientset  integration.Lazy[kubernetes.Interface]
}

// NewClient creates a Kubernetes base client named name.
func NewClient(name string, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	base, err := integration.NewBase(opserrors.IntegrationKubernetes, name, o.Options)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Base:        base,
		namespace:   o.namespace,
		kubeContext: o.kubeContext,
		kubeconfig:  o.kubeconfig,
	}
	if c.namespace == "" {
		c.namespace = base.Config().EKSNamespace()
	}
	if c.kubeContext == "" {
		c.kubeContext = base.Config().EKSContext()
	}
	if c.kubeconfig == "" {
		c.kubeconfig = base.Config().EKSKubeconfig()
	}
	if o.clientset != nil {
		c.clientset.Set(o.clientset)
	}
	return c, nil
}

// Namespace returns the default namespace for namespaced operations.
func (c *Client) Namespace() string {
	return c.namespace
}

// KubeContext returns the kubeconfig context in use, "" for current-context.
func (c *Client) KubeContext() string {
	return c.kubeContext
}

func (c *Client) ns(namespace string) string {
	if namespace != "" {
		return namespace
	}
	return c.namespace
}

// RESTConfig loads the kubeconfig, falling back to the in-cluster service
// account when no kubeconfig can be loaded.
func (c *Client) RESTConfig() (*rest.Config, error) {
	return c.restConfig.Get(func() (*rest.Config, error) {
		rules := c.loadingRules()
		loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{
			CurrentContext: c.kubeContext,
		})

		cfg, err := loader.ClientConfig()
		if err == nil {
			c.Logger().Debug("loaded kubeconfig (context=%q host=%s)", c.kubeContext, cfg.Host)
			return cfg, nil
		}

		inCluster, icErr := rest.InClusterConfig()
		if icErr == nil {
			c.Logger().Debug("using in-cluster configuration")
			return inCluster, nil
		}

		return nil, opserrors.NewEKSAuthError(
			"Failed to load Kubernetes configuration: no kubeconfig found and not running in-cluster",
		).WithCause(errors.Join(err, icErr))
	})
}

// loadingRules treats the kubeconfig setting like KUBECONFIG: a single path
// must exist, a path list is merged in order and missing entries are skipped.
func (c *Client) loadingRules() *clientcmd.ClientConfigLoadingRules {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	switch {
	case c.kubeconfig == "":
	case strings.ContainsRune(c.kubeconfig, os.PathListSeparator):
		rules.Precedence = filepath.SplitList(c.kubeconfig)
	default:
		rules.ExplicitPath = c.kubeconfig
	}
	return rules
}

// Clientset returns the memoized clientset.
func (c *Client) Clientset() (kubernetes.Interface, error) {
	return c.clientset.Get(func() (kubernetes.Interface, error) {
		cfg, err := c.RESTConfig()
		if err != nil {
			return nil, err
		}
		cs, err := kubernetes.NewForConfig(cfg)
		if err != nil {
			return nil, opserrors.NewEKSAuthError(fmt.Sprintf("Failed to create Kubernetes client: %v", err)).WithCause(err)
		}
		return cs, nil
	})
}

// HealthCheck lists a single namespace.
func (c *Client) HealthCheck(ctx context.Context) bool {
	return c.Probe(ctx, func(ctx context.Context) (err error) {
		defer c.Observe("HealthCheck", time.Now(), &err)

		cs, err := c.Clientset()
		if err != nil {
			return err
		}
		if _, err := cs.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
			return c.WrapError(err, "list_namespace")
		}
		return nil
	})
}

// WrapError converts a client-go error into the error taxonomy, prefixing
// the message with context. A 401 becomes an authentication error.
func (c *Client) WrapError(err error, context string) error {
	return wrapError(err, context)
}

func wrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	if _, ok := opserrors.As(err); ok {
		return err
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		st := status.Status()
		code := int(st.Code)
		message := fmt.Sprintf("%s: [%d] %s", context, code, st.Reason)
		if code == http.StatusUnauthorized {
			return opserrors.NewEKSAuthError(message).WithCause(err)
		}
		return opserrors.NewKubernetesAPIError(message, code, map[string]any{
			"reason":  string(st.Reason),
			"message": st.Message,
		}).WithCause(err)
	}

	return opserrors.NewKubernetesAPIError(fmt.Sprintf("%s: %v", context, err), 0, nil).WithCause(err)
}

// notFoundOr maps a 404 to a resource not found error and anything else
// through WrapError.
func (c *Client) notFoundOr(err error, resourceType, name, context string) error {
	if apierrors.IsNotFound(err) {
		return opserrors.NewResourceNotFound(resourceType, name).WithCause(err)
	}
	return c.WrapError(err, context)
}
