// Package openaiclient builds go-openai clients and maps their errors onto
// domain errors. It is shared by the OpenAI embedding and LLM adapters.
package openaiclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/retry"
)

// Provider is the name used in classified errors.
const Provider = "openai"

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// New returns a client for the OpenAI API or any compatible endpoint.
func New(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}

// Classify maps a go-openai error onto the domain error taxonomy.
//
// Refusals become *domain.ContentPolicyError. Statuses are classified with
// retry.StatusError, so 408, 429 and 5xx are transient. Anything without
// a status is a transport failure.
func Classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if isPolicyCode(apiErr.Code) || isPolicyType(apiErr.Type) {
			return &domain.ContentPolicyError{Provider: Provider, Reason: apiErr.Message}
		}
		return retry.StatusError(Provider, op, &http.Response{StatusCode: apiErr.HTTPStatusCode, Header: http.Header{}}, []byte(apiErr.Message))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.Error()
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return retry.StatusError(Provider, op, &http.Response{StatusCode: reqErr.HTTPStatusCode, Header: http.Header{}}, []byte(msg))
	}

	return retry.TransportError(ctx, Provider, op, err)
}

func isPolicyCode(code any) bool {
	s, ok := code.(string)
	if !ok {
		return false
	}
	switch s {
	case "content_policy_violation", "content_filter", "ResponsibleAIPolicyViolation":
		return true
	}
	return false
}

func isPolicyType(t string) bool {
	return t == "content_policy_violation"
}
