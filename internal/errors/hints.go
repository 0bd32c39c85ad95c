package errors

import "strings"

// Hint returns an operator-facing suggestion for err, or an empty string when
// there is nothing more useful to say than the message itself.
func Hint(err error) string {
	e, ok := As(err)
	if !ok {
		return genericHint(err.Error())
	}

	switch e.Kind {
	case KindAuth:
		switch e.Integration {
		case IntegrationAWS:
			return "Configure AWS credentials: 'aws configure', set AWS_PROFILE, or export AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY"
		case IntegrationKubernetes:
			return "Point KUBECONFIG at a valid kubeconfig or run 'aws eks update-kubeconfig --name <cluster>'"
		case IntegrationDatadog:
			return "Set DD_API_KEY and DD_APP_KEY, add datadog.api_key/app_key to your config.yaml, or run 'devops datadog login'"
		}
	case KindNotFound:
		return "Verify the identifier and that you are targeting the right region, context, or namespace"
	case KindConfig:
		return "Run 'devops config validate' to check your configuration file"
	case KindAPI:
		if code, ok := e.Details["error_code"].(string); ok {
			if strings.Contains(code, "AccessDenied") || strings.Contains(code, "UnauthorizedOperation") {
				return "Check the IAM permissions of the active AWS identity ('aws sts get-caller-identity')"
			}
			if strings.Contains(code, "Throttling") {
				return "AWS rate limit exceeded. Wait a moment and try again"
			}
		}
		switch e.StatusCode {
		case 403:
			return "The credentials are valid but lack permission for this operation"
		case 429:
			return "Rate limit exceeded. Wait a moment and try again"
		}
	}

	return genericHint(e.Error())
}

func genericHint(msg string) string {
	if strings.Contains(msg, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
		return "Unable to connect. Check your network and endpoint configuration"
	}
	return ""
}
