// Package datadog implements the Datadog integration on top of the official
// API client: metric queries and metadata through the v1 API, log search and
// aggregation through the v2 API.
package datadog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

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

	site    string
	auth    AuthAPI
	metrics MetricsAPI
	logs    LogsAPI
}

// WithConfig sets the configuration used to resolve keys and site.
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

// WithSite overrides the configured datadog_site.
func WithSite(site string) Option {
	return func(o *options) { o.site = site }
}

// WithAuthAPI sets a custom validation client (for testing).
func WithAuthAPI(api AuthAPI) Option {
	return func(o *options) { o.auth = api }
}

// WithMetricsAPI sets a custom metrics client (for testing).
func WithMetricsAPI(api MetricsAPI) Option {
	return func(o *options) { o.metrics = api }
}

// WithLogsAPI sets a custom logs client (for testing).
func WithLogsAPI(api LogsAPI) Option {
	return func(o *options) { o.logs = api }
}

// Client is the Datadog base client. Both keys are checked at construction;
// the API client is built on first use.
type Client struct {
	*integration.Base

	site   string
	apiKey logging.Secret
	appKey logging.Secret

	api     integration.Lazy[*datadog.APIClient]
	auth    integration.Lazy[AuthAPI]
	metrics integration.Lazy[MetricsAPI]
	logs    integration.Lazy[LogsAPI]
}

// NewClient creates a Datadog base client named name. It fails with a
// Datadog auth error when either key is missing.
func NewClient(name string, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	base, err := integration.NewBase(opserrors.IntegrationDatadog, name, o.Options)
	if err != nil {
		return nil, err
	}

	cfg := base.Config()
	if err := cfg.Require("datadog_api_key", "datadog_app_key"); err != nil {
		return nil, opserrors.NewDatadogAuthError(fmt.Sprintf("Datadog credentials are not configured: %v", err)).WithCause(err)
	}

	c := &Client{
		Base:   base,
		site:   o.site,
		apiKey: logging.Secret(cfg.DatadogAPIKey()),
		appKey: logging.Secret(cfg.DatadogAppKey()),
	}
	if c.site == "" {
		c.site = cfg.DatadogSite()
	}

	if o.auth != nil {
		c.auth.Set(o.auth)
	}
	if o.metrics != nil {
		c.metrics.Set(o.metrics)
	}
	if o.logs != nil {
		c.logs.Set(o.logs)
	}
	return c, nil
}

// Site returns the Datadog site the client talks to.
func (c *Client) Site() string {
	return c.site
}

// APIClient returns the memoized Datadog API client.
func (c *Client) APIClient() *datadog.APIClient {
	client, _ := c.api.Get(func() (*datadog.APIClient, error) {
		cfg := datadog.NewConfiguration()
		cfg.UserAgent = "devops-cli"
		c.Logger().Debug("Datadog client ready (site=%s api_key=%s)", c.site, c.apiKey)
		return datadog.NewAPIClient(cfg), nil
	})
	return client
}

// AuthContext returns ctx carrying the API keys and site server variable
// every Datadog request needs.
func (c *Client) AuthContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, datadog.ContextAPIKeys, map[string]datadog.APIKey{
		"apiKeyAuth": {Key: string(c.apiKey)},
		"appKeyAuth": {Key: string(c.appKey)},
	})
	return context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{
		"site": c.site,
	})
}

// Auth returns the memoized validation client.
func (c *Client) Auth() AuthAPI {
	api, _ := c.auth.Get(func() (AuthAPI, error) {
		return datadogV1.NewAuthenticationApi(c.APIClient()), nil
	})
	return api
}

// Metrics returns the memoized v1 metrics client.
func (c *Client) Metrics() MetricsAPI {
	api, _ := c.metrics.Get(func() (MetricsAPI, error) {
		return datadogV1.NewMetricsApi(c.APIClient()), nil
	})
	return api
}

// Logs returns the memoized v2 logs client.
func (c *Client) Logs() LogsAPI {
	api, _ := c.logs.Get(func() (LogsAPI, error) {
		return datadogV2.NewLogsApi(c.APIClient()), nil
	})
	return api
}

// HealthCheck validates the API key.
func (c *Client) HealthCheck(ctx context.Context) bool {
	return c.Probe(ctx, func(ctx context.Context) (err error) {
		defer c.Observe("HealthCheck", time.Now(), &err)

		resp, httpResp, err := c.Auth().Validate(c.AuthContext(ctx))
		if err != nil {
			return c.WrapError(err, httpResp, "validate")
		}
		if !resp.GetValid() {
			return opserrors.NewDatadogAuthError("Datadog API key validation returned valid=false")
		}
		return nil
	})
}

// WrapError converts a Datadog client error into the error taxonomy. The
// HTTP status comes from resp when the request reached the server.
func (c *Client) WrapError(err error, resp *http.Response, context string) error {
	return wrapError(err, resp, context)
}

func wrapError(err error, resp *http.Response, context string) error {
	if err == nil {
		return nil
	}
	if _, ok := opserrors.As(err); ok {
		return err
	}

	status := statusCode(resp)
	details := map[string]any{}

	var apiErr datadog.GenericOpenAPIError
	if errors.As(err, &apiErr) && len(apiErr.Body()) > 0 {
		details["body"] = string(apiErr.Body())
	}

	if status == 0 {
		return opserrors.NewDatadogAPIError(fmt.Sprintf("%s: %v", context, err), 0, details).WithCause(err)
	}

	message := fmt.Sprintf("%s: [%d] %v", context, status, err)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return opserrors.NewDatadogAuthError(message).WithCause(err)
	}
	return opserrors.NewDatadogAPIError(message, status, details).WithCause(err)
}

func statusCode(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
