package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_RendersMessageWithoutDetails(t *testing.T) {
	err := NewConfigError("boom")
	assert.Equal(t, "boom", err.Error())
	assert.NotNil(t, err.Details)
	assert.Empty(t, err.Details)
}

func TestError_RendersDetailsWhenPresent(t *testing.T) {
	err := NewAWSAPIError("EC2 describe_instances failed: [Throttling] slow down", 400, map[string]any{"error_code": "Throttling"})
	assert.Equal(t, "EC2 describe_instances failed: [Throttling] slow down | details={error_code: Throttling}", err.Error())
	assert.Equal(t, 400, err.StatusCode)
}

func TestResourceNotFound(t *testing.T) {
	err := NewResourceNotFound("Widget", "w-1")

	assert.Equal(t, "Widget 'w-1' not found", err.Message)
	assert.Contains(t, err.Error(), "Widget")
	assert.Contains(t, err.Error(), "w-1")
	assert.Equal(t, "Widget", err.ResourceType)
	assert.Equal(t, "w-1", err.Identifier)
	assert.Equal(t, map[string]any{"resource_type": "Widget", "identifier": "w-1"}, err.Details)
	assert.Contains(t, err.Error(), "identifier: w-1")
	assert.Contains(t, err.Error(), "resource_type: Widget")
}

func TestAPIError_DetailsAreCopied(t *testing.T) {
	details := map[string]any{"reason": "NotFound"}
	err := NewKubernetesAPIError("x", 0, details)
	details["reason"] = "changed"

	assert.Equal(t, "NotFound", err.Details["reason"])
	assert.Zero(t, err.StatusCode)
}

func TestHierarchyCompleteness(t *testing.T) {
	all := []*Error{
		NewAWSAuthError("a"),
		NewEKSAuthError("b"),
		NewDatadogAuthError("c"),
		NewResourceNotFound("Pod", "p"),
		NewAWSAPIError("d", 500, nil),
		NewKubernetesAPIError("e", 500, nil),
		NewDatadogAPIError("f", 500, nil),
		NewConfigError("g"),
	}

	for _, err := range all {
		assert.True(t, errors.Is(err, ErrDevOps), "%q should be a DevOps error", err.Message)

		var target *Error
		assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	}
}

func TestHierarchyBranches(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		matches []error
		misses  []error
	}{
		{
			name:    "aws auth",
			err:     NewAWSAuthError("x"),
			matches: []error{ErrAuth, ErrAWSAuth},
			misses:  []error{ErrEKSAuth, ErrDatadogAuth, ErrAPI, ErrConfig, ErrNotFound},
		},
		{
			name:    "eks auth",
			err:     NewEKSAuthError("x"),
			matches: []error{ErrAuth, ErrEKSAuth},
			misses:  []error{ErrAWSAuth, ErrKubernetesAPI},
		},
		{
			name:    "datadog api",
			err:     NewDatadogAPIError("x", 500, nil),
			matches: []error{ErrAPI, ErrDatadogAPI},
			misses:  []error{ErrAWSAPI, ErrKubernetesAPI, ErrAuth},
		},
		{
			name:    "not found",
			err:     NewResourceNotFound("Pod", "p"),
			matches: []error{ErrNotFound},
			misses:  []error{ErrAPI, ErrAuth, ErrConfig},
		},
		{
			name:    "config is its own branch",
			err:     NewConfigError("x"),
			matches: []error{ErrConfig},
			misses:  []error{ErrAPI, ErrAuth, ErrNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, m := range tt.matches {
				assert.ErrorIs(t, tt.err, m)
			}
			for _, m := range tt.misses {
				assert.NotErrorIs(t, tt.err, m)
			}
		})
	}
}

func TestWithCause(t *testing.T) {
	cause := NewConfigError("datadog_api_key is not set")
	err := NewDatadogAuthError("Datadog API key is not set").WithCause(cause)

	assert.ErrorIs(t, err, ErrDatadogAuth)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, KindAuth, KindOf(err))
}

func TestIs_IdentityForNonSentinels(t *testing.T) {
	a := NewConfigError("a")
	b := NewConfigError("a")

	assert.ErrorIs(t, a, a)
	assert.False(t, errors.Is(a, b))
}

func TestAs(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)

	e, ok := As(fmt.Errorf("ctx: %w", NewResourceNotFound("Pod", "api-0")))
	require.True(t, ok)
	assert.Equal(t, "api-0", e.Identifier)
	assert.True(t, IsNotFound(e))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "auth", KindAuth.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "api", KindAPI.String())
	assert.Equal(t, "config", KindConfig.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestHint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"aws auth", NewAWSAuthError("x"), "AWS_PROFILE"},
		{"eks auth", NewEKSAuthError("x"), "KUBECONFIG"},
		{"datadog auth", NewDatadogAuthError("x"), "DD_API_KEY"},
		{"not found", NewResourceNotFound("Pod", "p"), "namespace"},
		{"config", NewConfigError("x"), "config validate"},
		{"access denied", NewAWSAPIError("x", 403, map[string]any{"error_code": "AccessDeniedException"}), "IAM"},
		{"throttling", NewAWSAPIError("x", 400, map[string]any{"error_code": "ThrottlingException"}), "rate limit"},
		{"forbidden", NewKubernetesAPIError("x", 403, nil), "permission"},
		{"plain timeout", errors.New("i/o timeout"), "timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Hint(tt.err), tt.contains)
		})
	}

	assert.Empty(t, Hint(errors.New("something odd")))
}
