package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/sethvargo/go-retry"
)

// Chat sends one system+user exchange and returns the reply text from
// choices[0].message.content.
func Chat(ctx context.Context, client *openai.Client, model, system, user string, maxTokens int64) (string, error) {
	if client == nil {
		return "", errors.New("provider.Chat: client is nil")
	}
	if model == "" {
		return "", errors.New("provider.Chat: model is empty")
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(maxTokens)
	}

	resp, err := CallWithRetry(ctx, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("provider.Chat: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatJSON is Chat with a strict JSON-schema response format.
func ChatJSON(ctx context.Context, client *openai.Client, model, system, user string, schemaName string, schema map[string]interface{}, maxTokens int64) (string, error) {
	if client == nil {
		return "", errors.New("provider.ChatJSON: client is nil")
	}
	if model == "" {
		return "", errors.New("provider.ChatJSON: model is empty")
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(maxTokens)
	}

	resp, err := CallWithRetry(ctx, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("provider.ChatJSON: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

const (
	retryMaxAttempts = 5
	retryBase        = 2 * time.Second
	retryCap         = 60 * time.Second
	retryHintCap     = 90 * time.Second
)

// CallWithRetry retries rate-limit and server errors with capped exponential
// backoff and jitter. When the server supplies a retry delay, that delay is
// honored before the backoff's own wait. Other errors are returned as-is.
func CallWithRetry[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	backoff := retry.WithMaxRetries(retryMaxAttempts-1,
		retry.WithCappedDuration(retryCap,
			retry.WithJitterPercent(25,
				retry.NewExponential(retryBase))))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			if IsRateLimitError(err) || IsServerError(err) {
				if d, ok := retryDelayHint(err); ok {
					if serr := sleepCtx(ctx, d); serr != nil {
						return serr
					}
				}
				return retry.RetryableError(err)
			}
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// retryDelayHint extracts a server-supplied Retry-After delay, capped so a
// pathological header can't stall the pipeline.
func retryDelayHint(err error) (time.Duration, bool) {
	var apierr *openai.Error
	if !errors.As(err, &apierr) || apierr.Response == nil {
		return 0, false
	}
	h := strings.TrimSpace(apierr.Response.Header.Get("Retry-After"))
	if h == "" {
		return 0, false
	}
	secs, perr := strconv.ParseFloat(h, 64)
	if perr != nil || secs <= 0 {
		return 0, false
	}
	d := time.Duration(secs * float64(time.Second))
	if d > retryHintCap {
		d = retryHintCap
	}
	return d, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.StatusCode == 429 {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func IsServerError(err error) bool {
	if err == nil {
		return false
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.StatusCode >= 500 {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}

// GenerateSchema builds an OpenAI-compliant strict JSON schema for T.
func GenerateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureOpenAICompliance(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func ensureOpenAICompliance(schema map[string]interface{}) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
			var requiredFields []string
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureOpenAICompliance(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureOpenAICompliance(additionalProps)
	}
}

// UpstreamErrorMessage formats an upstream failure for user display, keeping
// the HTTP status when the error carries one.
func UpstreamErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return fmt.Sprintf("upstream error (HTTP %d): %s", apierr.StatusCode, apierr.Message)
	}
	return err.Error()
}
