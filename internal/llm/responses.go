package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"go.uber.org/zap"
)

// ResponsesClient implementa LLMClient sobre la Responses API, con salida JSON
// estricta cuando la Request trae esquema.
type ResponsesClient struct {
	client     *openai.Client
	model      string
	maxRetries int
	backoff    []time.Duration
	logger     *zap.Logger
}

// NewResponsesClient construye el cliente con la API key y, si se indica, una base URL alternativa.
func NewResponsesClient(baseURL, apiKey, model string, logger *zap.Logger) *ResponsesClient {
	// Los reintentos los maneja callWithRetry.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := openai.NewClient(opts...)
	return &ResponsesClient{
		client:     &client,
		model:      model,
		maxRetries: 3,
		backoff:    []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second},
		logger:     logger,
	}
}

func (c *ResponsesClient) Generate(ctx context.Context, in Request) (string, error) {
	if c.client == nil {
		return "", errors.New("responses client is nil")
	}
	if c.model == "" {
		return "", errors.New("responses client: model is empty")
	}

	items := make([]responses.ResponseInputItemUnionParam, 0, len(in.Turns))
	for _, t := range in.Turns {
		role := responses.EasyInputMessageRoleUser
		if t.Role == RoleAssistant {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(t.Content, role))
	}
	if len(items) == 0 {
		return "", fmt.Errorf("llm empty request")
	}

	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if strings.TrimSpace(in.System) != "" {
		params.Instructions = openai.String(in.System)
	}
	if in.Schema != nil {
		name := in.SchemaName
		if name == "" {
			name = "Reply"
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        name,
					Schema:      in.Schema,
					Strict:      openai.Bool(true),
					Description: openai.String(name + " JSON"),
					Type:        "json_schema",
				},
			},
		}
	}

	resp, err := c.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.OutputText())
	if out == "" {
		return "", fmt.Errorf("llm empty response")
	}
	return out, nil
}

func (c *ResponsesClient) callWithRetry(ctx context.Context, params responses.ResponseNewParams) (*responses.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		resp, err := c.client.Responses.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == c.maxRetries-1 {
			break
		}
		wait := c.backoff[min(attempt, len(c.backoff)-1)]
		c.logger.Warn("llm call failed, retrying", zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("responses call: %w", lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	s := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "too many requests", "internal server error", "server_error"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
