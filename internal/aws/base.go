// Package aws implements the AWS integration: one lazily built SDK
// configuration per client, shared by the EC2, RDS, Lambda, CloudWatch and
// EKS resource clients.
package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	devopsconfig "github.com/systmms/devops/internal/config"
	opserrors "github.com/systmms/devops/internal/errors"
	"github.com/systmms/devops/internal/integration"
	"github.com/systmms/devops/internal/logging"
	"github.com/systmms/devops/internal/telemetry"
)

// Retry settings applied to every SDK client built by this package.
const (
	RetryMaxAttempts = 3
	RetryMode        = awssdk.RetryModeAdaptive
)

// Option configures a Client.
type Option func(*options)

type options struct {
	integration.Options

	region  string
	profile string
	roleARN string

	awsConfig  *awssdk.Config
	ec2        EC2API
	rds        RDSAPI
	lambda     LambdaAPI
	cloudwatch CloudWatchAPI
	logs       CloudWatchLogsAPI
	eks        EKSAPI
	sts        STSAPI
}

// WithConfig sets the configuration used to resolve region, profile and role.
func WithConfig(cfg *devopsconfig.Config) Option {
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

// WithRegion overrides the configured aws_region.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithProfile overrides the configured aws_profile.
func WithProfile(profile string) Option {
	return func(o *options) { o.profile = profile }
}

// WithRoleARN overrides the configured aws_role_arn.
func WithRoleARN(arn string) Option {
	return func(o *options) { o.roleARN = arn }
}

// WithAWSConfig uses cfg instead of loading the default credential chain.
func WithAWSConfig(cfg awssdk.Config) Option {
	return func(o *options) { o.awsConfig = &cfg }
}

// WithEC2API sets a custom EC2 client (for testing).
func WithEC2API(api EC2API) Option {
	return func(o *options) { o.ec2 = api }
}

// WithRDSAPI sets a custom RDS client (for testing).
func WithRDSAPI(api RDSAPI) Option {
	return func(o *options) { o.rds = api }
}

// WithLambdaAPI sets a custom Lambda client (for testing).
func WithLambdaAPI(api LambdaAPI) Option {
	return func(o *options) { o.lambda = api }
}

// WithCloudWatchAPI sets a custom CloudWatch client (for testing).
func WithCloudWatchAPI(api CloudWatchAPI) Option {
	return func(o *options) { o.cloudwatch = api }
}

// WithCloudWatchLogsAPI sets a custom CloudWatch Logs client (for testing).
func WithCloudWatchLogsAPI(api CloudWatchLogsAPI) Option {
	return func(o *options) { o.logs = api }
}

// WithEKSAPI sets a custom EKS control plane client (for testing).
func WithEKSAPI(api EKSAPI) Option {
	return func(o *options) { o.eks = api }
}

// WithSTSAPI sets a custom STS client (for testing).
func WithSTSAPI(api STSAPI) Option {
	return func(o *options) { o.sts = api }
}

// Client is the AWS base client. The SDK configuration and each service
// client are built on first use and reused afterwards.
type Client struct {
	*integration.Base

	region  string
	profile string
	roleARN string

	awsConfig  integration.Lazy[awssdk.Config]
	ec2        integration.Lazy[EC2API]
	rds        integration.Lazy[RDSAPI]
	lambda     integration.Lazy[LambdaAPI]
	cloudwatch integration.Lazy[CloudWatchAPI]
	logs       integration.Lazy[CloudWatchLogsAPI]
	eks        integration.Lazy[EKSAPI]
	sts        integration.Lazy[STSAPI]
}

// NewClient creates an AWS base client named name. Explicit region, profile
// and role options win over the configuration.
func NewClient(name string, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	base, err := integration.NewBase(opserrors.IntegrationAWS, name, o.Options)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Base:    base,
		region:  firstNonEmpty(o.region, base.Config().AWSRegion()),
		profile: firstNonEmpty(o.profile, base.Config().AWSProfile()),
		roleARN: firstNonEmpty(o.roleARN, base.Config().AWSRoleARN()),
	}

	if o.awsConfig != nil {
		c.awsConfig.Set(*o.awsConfig)
	}
	if o.ec2 != nil {
		c.ec2.Set(o.ec2)
	}
	if o.rds != nil {
		c.rds.Set(o.rds)
	}
	if o.lambda != nil {
		c.lambda.Set(o.lambda)
	}
	if o.cloudwatch != nil {
		c.cloudwatch.Set(o.cloudwatch)
	}
	if o.logs != nil {
		c.logs.Set(o.logs)
	}
	if o.eks != nil {
		c.eks.Set(o.eks)
	}
	if o.sts != nil {
		c.sts.Set(o.sts)
	}

	return c, nil
}

// Region returns the region the client targets.
func (c *Client) Region() string {
	return c.region
}

// Profile returns the shared config profile, or "" for the default chain.
func (c *Client) Profile() string {
	return c.profile
}

// AWSConfig returns the SDK configuration, loading it on first use.
func (c *Client) AWSConfig(ctx context.Context) (awssdk.Config, error) {
	return c.awsConfig.Get(func() (awssdk.Config, error) {
		return c.loadAWSConfig(ctx)
	})
}

func (c *Client) loadAWSConfig(ctx context.Context) (awssdk.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(c.region),
		config.WithRetryMaxAttempts(RetryMaxAttempts),
		config.WithRetryMode(RetryMode),
	}
	if c.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(c.profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return awssdk.Config{}, opserrors.NewAWSAuthError(fmt.Sprintf("Failed to create AWS session: %v", err)).WithCause(err)
	}

	if c.roleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), c.roleARN, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = fmt.Sprintf("devops-%d", time.Now().Unix())
		})
		cfg.Credentials = awssdk.NewCredentialsCache(provider)
		c.Logger().Debug("assuming role %s", c.roleARN)
	}

	c.Logger().Debug("AWS session ready (region=%s profile=%s)", c.region, c.profile)
	return cfg, nil
}

// EC2 returns the memoized EC2 client.
func (c *Client) EC2(ctx context.Context) (EC2API, error) {
	return c.ec2.Get(func() (EC2API, error) {
		cfg, err := c.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return ec2.NewFromConfig(cfg), nil
	})
}

// RDS returns the memoized RDS client.
func (c *Client) RDS(ctx context.Context) (RDSAPI, error) {
	return c.rds.Get(func() (RDSAPI, error) {
		cfg, err := c.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return rds.NewFromConfig(cfg), nil
	})
}

// Lambda returns the memoized Lambda client.
func (c *Client) Lambda(ctx context.Context) (LambdaAPI, error) {
	return c.lambda.Get(func() (LambdaAPI, error) {
		cfg, err := c.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return lambda.NewFromConfig(cfg), nil
	})
}

// CloudWatch returns the memoized CloudWatch client.
func (c *Client) CloudWatch(ctx context.Context) (CloudWatchAPI, error) {
	return c.cloudwatch.Get(func() (CloudWatchAPI, error) {
		cfg, err := c.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return cloudwatch.NewFromConfig(cfg), nil
	})
}

// CloudWatchLogs returns the memoized CloudWatch Logs client.
func (c *Client) CloudWatchLogs(ctx context.Context) (CloudWatchLogsAPI, error) {
	return c.logs.Get(func() (CloudWatchLogsAPI, error) {
		cfg, err := c.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return cloudwatchlogs.NewFromConfig(cfg), nil
	})
}

// EKS returns the memoized EKS control plane client.
func (c *Client) EKS(ctx context.Context) (EKSAPI, error) {
	return c.eks.Get(func() (EKSAPI, error) {
		cfg, err := c.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return eks.NewFromConfig(cfg), nil
	})
}

// STS returns the memoized STS client.
func (c *Client) STS(ctx context.Context) (STSAPI, error) {
	return c.sts.Get(func() (STSAPI, error) {
		cfg, err := c.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return sts.NewFromConfig(cfg), nil
	})
}

// CallerIdentity returns the identity the credentials resolve to.
func (c *Client) CallerIdentity(ctx context.Context) (out *sts.GetCallerIdentityOutput, err error) {
	defer c.Observe("CallerIdentity", time.Now(), &err)

	api, err := c.STS(ctx)
	if err != nil {
		return nil, err
	}
	out, err = api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, c.WrapError(err, "STS get_caller_identity failed")
	}
	return out, nil
}

// HealthCheck verifies the credentials with sts:GetCallerIdentity.
func (c *Client) HealthCheck(ctx context.Context) bool {
	return c.Probe(ctx, func(ctx context.Context) error {
		_, err := c.CallerIdentity(ctx)
		return err
	})
}

// WrapError converts an SDK error into the error taxonomy, prefixing the
// message with context. Errors already in the taxonomy pass through.
func (c *Client) WrapError(err error, context string) error {
	return wrapError(err, context)
}

// credentialErrorCodes are service codes meaning the caller's credentials
// were rejected rather than the request.
var credentialErrorCodes = map[string]bool{
	"UnrecognizedClientException": true,
	"InvalidClientTokenId":        true,
	"ExpiredToken":                true,
	"ExpiredTokenException":       true,
	"AuthFailure":                 true,
	"SignatureDoesNotMatch":       true,
	"InvalidSignatureException":   true,
	"MissingAuthenticationToken":  true,
}

func wrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	if _, ok := opserrors.As(err); ok {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		message := fmt.Sprintf("%s: [%s] %s", context, code, apiErr.ErrorMessage())
		if credentialErrorCodes[code] {
			return opserrors.NewAWSAuthError(message).WithCause(err)
		}
		return opserrors.NewAWSAPIError(message, httpStatus(err), map[string]any{"error_code": code}).WithCause(err)
	}

	if isCredentialFailure(err) {
		return opserrors.NewAWSAuthError(fmt.Sprintf("%s: AWS credentials not found: %v", context, err)).WithCause(err)
	}

	return opserrors.NewAWSAPIError(fmt.Sprintf("%s: %v", context, err), httpStatus(err), nil).WithCause(err)
}

func httpStatus(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

// ErrorCode returns the service error code carried by err, or "".
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isCredentialFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "failed to refresh cached credentials") ||
		strings.Contains(msg, "no EC2 IMDS role found") ||
		strings.Contains(msg, "failed to retrieve credentials") ||
		strings.Contains(msg, "static credentials are empty")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
