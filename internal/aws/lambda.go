package aws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	opserrors "github.com/systmms/devops/internal/errors"
)

const resourceLambdaFunction = "Lambda Function"

// FunctionsClient lists, inspects and invokes Lambda functions.
type FunctionsClient struct {
	*Client
}

// NewFunctionsClient creates a Lambda client.
func NewFunctionsClient(opts ...Option) (*FunctionsClient, error) {
	c, err := NewClient("FunctionsClient", opts...)
	if err != nil {
		return nil, err
	}
	return &FunctionsClient{Client: c}, nil
}

// InvokeResult is the decoded outcome of a function invocation.
type InvokeResult struct {
	StatusCode      int32  `json:"status_code"`
	FunctionError   string `json:"function_error,omitempty"`
	ExecutedVersion string `json:"executed_version,omitempty"`
	// LogResult is the decoded tail of the execution log, synchronous
	// invocations only.
	LogResult string `json:"log_result,omitempty"`
	// Payload is the decoded JSON response, or the raw text when the
	// response is not JSON.
	Payload any `json:"payload,omitempty"`
}

// ListFunctions returns every function in the region.
func (c *FunctionsClient) ListFunctions(ctx context.Context) (functions []types.FunctionConfiguration, err error) {
	defer c.Observe("ListFunctions", time.Now(), &err)

	api, err := c.Lambda(ctx)
	if err != nil {
		return nil, err
	}

	paginator := lambda.NewListFunctionsPaginator(api, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.WrapError(err, "Lambda list_functions failed")
		}
		functions = append(functions, page.Functions...)
	}
	return functions, nil
}

// GetFunction returns the configuration and code location of name.
func (c *FunctionsClient) GetFunction(ctx context.Context, name string) (out *lambda.GetFunctionOutput, err error) {
	defer c.Observe("GetFunction", time.Now(), &err)

	api, err := c.Lambda(ctx)
	if err != nil {
		return nil, err
	}

	out, err = api.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: awssdk.String(name)})
	if err != nil {
		if ErrorCode(err) == "ResourceNotFoundException" {
			return nil, opserrors.NewResourceNotFound(resourceLambdaFunction, name).WithCause(err)
		}
		return nil, c.WrapError(err, fmt.Sprintf("Lambda get_function(%s)", name))
	}
	return out, nil
}

// GetFunctionConfiguration returns only the configuration of name.
func (c *FunctionsClient) GetFunctionConfiguration(ctx context.Context, name string) (out *lambda.GetFunctionConfigurationOutput, err error) {
	defer c.Observe("GetFunctionConfiguration", time.Now(), &err)

	api, err := c.Lambda(ctx)
	if err != nil {
		return nil, err
	}

	out, err = api.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{FunctionName: awssdk.String(name)})
	if err != nil {
		if ErrorCode(err) == "ResourceNotFoundException" {
			return nil, opserrors.NewResourceNotFound(resourceLambdaFunction, name).WithCause(err)
		}
		return nil, c.WrapError(err, fmt.Sprintf("Lambda get_function_configuration(%s)", name))
	}
	return out, nil
}

// Invoke calls name with payload encoded as JSON (nil sends no payload).
// An empty invocationType means RequestResponse. A function error reported
// by Lambda is returned as an API error carrying the payload in its details.
func (c *FunctionsClient) Invoke(ctx context.Context, name string, payload any, invocationType types.InvocationType) (result *InvokeResult, err error) {
	defer c.Observe("Invoke", time.Now(), &err)

	if invocationType == "" {
		invocationType = types.InvocationTypeRequestResponse
	}

	input := &lambda.InvokeInput{
		FunctionName:   awssdk.String(name),
		InvocationType: invocationType,
	}
	if invocationType == types.InvocationTypeRequestResponse {
		input.LogType = types.LogTypeTail
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, opserrors.NewConfigErrorf("invalid payload for %s: %v", name, err).WithCause(err)
		}
		input.Payload = data
	}

	api, err := c.Lambda(ctx)
	if err != nil {
		return nil, err
	}

	out, err := api.Invoke(ctx, input)
	if err != nil {
		if ErrorCode(err) == "ResourceNotFoundException" {
			return nil, opserrors.NewResourceNotFound(resourceLambdaFunction, name).WithCause(err)
		}
		return nil, c.WrapError(err, fmt.Sprintf("Lambda invoke(%s)", name))
	}

	result = &InvokeResult{
		StatusCode:      out.StatusCode,
		FunctionError:   awssdk.ToString(out.FunctionError),
		ExecutedVersion: awssdk.ToString(out.ExecutedVersion),
		Payload:         decodePayload(out.Payload),
	}
	if out.LogResult != nil {
		if decoded, err := base64.StdEncoding.DecodeString(*out.LogResult); err == nil {
			result.LogResult = string(decoded)
		} else {
			result.LogResult = *out.LogResult
		}
	}

	if result.FunctionError != "" {
		return nil, opserrors.NewAWSAPIError(
			fmt.Sprintf("Lambda function '%s' returned error: %v", name, result.Payload),
			int(out.StatusCode),
			map[string]any{"payload": result.Payload, "function_error": result.FunctionError},
		)
	}

	c.Logger().Info("invoked %s (%s, status %d)", name, invocationType, out.StatusCode)
	return result, nil
}

func decodePayload(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}
