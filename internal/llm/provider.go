package llm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ProviderChat      = "chat"
	ProviderResponses = "responses"
)

// NewClient elige la implementación según LLM_PROVIDER.
func NewClient(provider, baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderChat:
		return NewHTTPClient(baseURL, apiKey, model, timeout, logger), nil
	case ProviderResponses:
		return NewResponsesClient(baseURL, apiKey, model, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
