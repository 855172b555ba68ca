package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/surveysense/backend/internal/metrics"
	"github.com/surveysense/backend/pkg/logger"
)

// Client wraps a single Azure OpenAI chat deployment. Routing, summaries,
// answer synthesis and the legacy sentiment path all go through Complete
// with their own prompts and temperatures.
type Client struct {
	client     *openai.Client
	deployment string
	maxTokens  int
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
	JSONResponse bool
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func NewClient(endpoint, apiKey, deployment, apiVersion string, maxTokens, timeoutSec int) *Client {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	cfg.HTTPClient = &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}

	logger.Info("LLM client initialized",
		zap.String("endpoint", endpoint),
		zap.String("deployment", deployment),
	)

	return &Client{
		client:     openai.NewClientWithConfig(cfg),
		deployment: deployment,
		maxTokens:  maxTokens,
	}
}

// Complete issues one chat completion. Failures propagate to the caller;
// there is no retry and no fallback text.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	temperature := req.Temperature
	if temperature == 0 {
		// The openai client drops a zero temperature from the payload,
		// which would leave the routing calls at the service default.
		temperature = math.SmallestNonzeroFloat32
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	request := openai.ChatCompletionRequest{
		Model:       c.deployment,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSONResponse {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	logger.Debug("Completion generated",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	metrics.LLMTokensUsed.WithLabelValues(c.deployment, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(c.deployment, "completion").Add(float64(resp.Usage.CompletionTokens))

	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
