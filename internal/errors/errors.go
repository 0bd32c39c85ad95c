package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the taxonomy branch an Error belongs to.
type Kind int

const (
	// KindUnknown is only used by the root sentinel ErrDevOps.
	KindUnknown Kind = iota
	KindAuth
	KindNotFound
	KindAPI
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindAPI:
		return "api"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Integration identifies which external platform raised an error.
type Integration string

const (
	IntegrationAWS        Integration = "aws"
	IntegrationKubernetes Integration = "kubernetes"
	IntegrationDatadog    Integration = "datadog"
)

// Error is the single error type raised by every client in this module.
//
// Kind and Integration together select the taxonomy leaf. Resource not found
// errors fill ResourceType and Identifier, API errors may fill StatusCode
// (zero when the remote call did not report one).
type Error struct {
	Kind        Kind
	Integration Integration
	Message     string
	Details     map[string]any

	StatusCode   int
	ResourceType string
	Identifier   string

	Err error
}

// Class sentinels. Use them with errors.Is to catch broadly or narrowly:
//
//	errors.Is(err, opserrors.ErrAuth)     // any authentication failure
//	errors.Is(err, opserrors.ErrAWSAuth)  // only AWS authentication failures
var (
	ErrDevOps = &Error{}

	ErrAuth        = &Error{Kind: KindAuth}
	ErrAWSAuth     = &Error{Kind: KindAuth, Integration: IntegrationAWS}
	ErrEKSAuth     = &Error{Kind: KindAuth, Integration: IntegrationKubernetes}
	ErrDatadogAuth = &Error{Kind: KindAuth, Integration: IntegrationDatadog}

	ErrNotFound = &Error{Kind: KindNotFound}

	ErrAPI           = &Error{Kind: KindAPI}
	ErrAWSAPI        = &Error{Kind: KindAPI, Integration: IntegrationAWS}
	ErrKubernetesAPI = &Error{Kind: KindAPI, Integration: IntegrationKubernetes}
	ErrDatadogAPI    = &Error{Kind: KindAPI, Integration: IntegrationDatadog}

	ErrConfig = &Error{Kind: KindConfig}
)

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + " | details=" + renderDetails(e.Details)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether e belongs to the class described by target. A target
// with a message is compared by identity; a bare target (the sentinels above)
// matches on Kind and, when set, Integration.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" || len(t.Details) > 0 {
		return e == t
	}
	if t.Kind != KindUnknown && t.Kind != e.Kind {
		return false
	}
	if t.Integration != "" && t.Integration != e.Integration {
		return false
	}
	return true
}

// WithCause returns e with its cause set.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func renderDetails(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, details[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func cloneDetails(details map[string]any) map[string]any {
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}

// NewAuthError returns an authentication failure for the given integration.
func NewAuthError(integration Integration, message string) *Error {
	return &Error{Kind: KindAuth, Integration: integration, Message: message, Details: map[string]any{}}
}

func NewAWSAuthError(message string) *Error { return NewAuthError(IntegrationAWS, message) }

func NewEKSAuthError(message string) *Error { return NewAuthError(IntegrationKubernetes, message) }

func NewDatadogAuthError(message string) *Error { return NewAuthError(IntegrationDatadog, message) }

// NewAPIError returns a remote API failure. statusCode may be zero and
// details may be nil.
func NewAPIError(integration Integration, message string, statusCode int, details map[string]any) *Error {
	return &Error{
		Kind:        KindAPI,
		Integration: integration,
		Message:     message,
		StatusCode:  statusCode,
		Details:     cloneDetails(details),
	}
}

func NewAWSAPIError(message string, statusCode int, details map[string]any) *Error {
	return NewAPIError(IntegrationAWS, message, statusCode, details)
}

func NewKubernetesAPIError(message string, statusCode int, details map[string]any) *Error {
	return NewAPIError(IntegrationKubernetes, message, statusCode, details)
}

func NewDatadogAPIError(message string, statusCode int, details map[string]any) *Error {
	return NewAPIError(IntegrationDatadog, message, statusCode, details)
}

// NewResourceNotFound returns the error raised when a named resource does
// not exist.
func NewResourceNotFound(resourceType, identifier string) *Error {
	return &Error{
		Kind:         KindNotFound,
		Message:      fmt.Sprintf("%s '%s' not found", resourceType, identifier),
		ResourceType: resourceType,
		Identifier:   identifier,
		Details: map[string]any{
			"resource_type": resourceType,
			"identifier":    identifier,
		},
	}
}

// NewConfigError returns a local configuration failure.
func NewConfigError(message string) *Error {
	return &Error{Kind: KindConfig, Message: message, Details: map[string]any{}}
}

// NewConfigErrorf is NewConfigError with formatting.
func NewConfigErrorf(format string, args ...any) *Error {
	return NewConfigError(fmt.Sprintf(format, args...))
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a resource not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
