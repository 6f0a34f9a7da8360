package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-research-platform/internal/config"
	"ai-research-platform/internal/models"
	"ai-research-platform/internal/utils"

	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/responses"
	"github.com/openai/openai-go/v2/shared"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Background response states reported by the Responses API
const (
	responseStatusCompleted  = "completed"
	responseStatusFailed     = "failed"
	responseStatusCancelled  = "cancelled"
	responseStatusIncomplete = "incomplete"
)

// maxPollErrors is how many consecutive failed polls abort a research call
const maxPollErrors = 3

// researchTools are the hosted tools every deep research call runs with
var researchTools = []map[string]interface{}{
	{"type": "web_search_preview"},
	{"type": "code_interpreter", "container": map[string]string{"type": "auto"}},
}

// maxToolCalls bounds the hosted tool calls of one research call
var maxToolCalls = map[models.ResearchType]int64{
	models.ResearchTypeValidation: 40,
	models.ResearchTypeMarket:     50,
	models.ResearchTypeFinancial:  50,
	models.ResearchTypeCustom:     40,
}

// OpenAIResearchClient runs research phases as background deep research
// responses and enriches custom prompts through chat completions
type OpenAIResearchClient struct {
	responses    openaiclient.Client
	chat         *openai.Client
	enrichModel  string
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewOpenAIResearchClient creates a research backend from OpenAI settings
func NewOpenAIResearchClient(cfg config.OpenAIConfig, logger *zap.Logger) *OpenAIResearchClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(cfg.APIKey),
		openaioption.WithMaxRetries(0),
	}
	chatCfg := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(baseURL+"/"))
		chatCfg.BaseURL = baseURL
	}

	enrichModel := cfg.EnrichModel
	if enrichModel == "" {
		enrichModel = "gpt-4.1"
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return &OpenAIResearchClient{
		responses:    openaiclient.NewClient(opts...),
		chat:         openai.NewClientWithConfig(chatCfg),
		enrichModel:  enrichModel,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Research starts a background response and polls it until it resolves or
// ctx ends. The phase timeout is carried by ctx.
func (c *OpenAIResearchClient) Research(ctx context.Context, req BackendRequest) (*BackendResponse, error) {
	query := req.Query
	// Only free-form research is rewritten; the phase prompts are already structured
	if req.EnrichPrompt && req.ResearchType == models.ResearchTypeCustom {
		query = c.EnrichPrompt(ctx, query, "general")
	}

	toolCalls, ok := maxToolCalls[req.ResearchType]
	if !ok {
		toolCalls = maxToolCalls[models.ResearchTypeCustom]
	}

	created, err := c.responses.Responses.New(ctx, responses.ResponseNewParams{
		Model:        shared.ResponsesModel(req.Model),
		Input:        responses.ResponseNewParamsInputUnion{OfString: openaiclient.String(buildPrompt(req.ResearchType, query, req.MaxCitations))},
		Background:   openaiclient.Bool(true),
		MaxToolCalls: openaiclient.Int(toolCalls),
	}, openaioption.WithJSONSet("tools", researchTools))
	if err != nil {
		return nil, fmt.Errorf("research request failed: %w", err)
	}

	c.logger.Debug("research response started",
		zap.String("response_id", created.ID),
		zap.String("phase", string(req.ResearchType)),
		zap.String("model", req.Model),
	)

	final, err := c.waitForCompletion(ctx, created)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(final.OutputText())
	if text == "" {
		return nil, fmt.Errorf("research response from %s was empty", req.Model)
	}

	return &BackendResponse{
		Text:      text,
		Citations: utils.CountCitations(text),
	}, nil
}

// waitForCompletion polls a background response until it reaches a final state
func (c *OpenAIResearchClient) waitForCompletion(ctx context.Context, resp *responses.Response) (*responses.Response, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	pollErrors := 0
	for {
		switch string(resp.Status) {
		case responseStatusCompleted:
			return resp, nil
		case responseStatusFailed, responseStatusCancelled, responseStatusIncomplete:
			return nil, responseFailure(resp)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("research response %s still %s: %w", resp.ID, resp.Status, ctx.Err())
		case <-ticker.C:
		}

		next, err := c.responses.Responses.Get(ctx, resp.ID, responses.ResponseGetParams{})
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("research response %s still %s: %w", resp.ID, resp.Status, ctx.Err())
			}
			pollErrors++
			c.logger.Warn("failed to poll research response",
				zap.String("response_id", resp.ID),
				zap.Int("attempt", pollErrors),
				zap.Error(err),
			)
			if pollErrors >= maxPollErrors {
				return nil, fmt.Errorf("failed to poll research response %s: %w", resp.ID, err)
			}
			continue
		}
		pollErrors = 0
		resp = next
	}
}

func responseFailure(resp *responses.Response) error {
	message := strings.TrimSpace(resp.Error.Message)
	if message == "" {
		message = "no error details"
	}
	return errors.New("research response " + resp.ID + " " + string(resp.Status) + ": " + message)
}

// EnrichPrompt rewrites a user request into detailed researcher instructions.
// On failure the original request is returned unchanged.
func (c *OpenAIResearchClient) EnrichPrompt(ctx context.Context, userRequest, researchType string) string {
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.enrichModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(enrichmentInstructions, researchType)},
			{Role: openai.ChatMessageRoleUser, Content: userRequest},
		},
	})
	if err != nil {
		c.logger.Warn("prompt enrichment failed, using original query", zap.Error(err))
		return userRequest
	}

	if enriched := firstChoice(resp); enriched != "" {
		return enriched
	}
	return userRequest
}

func firstChoice(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// AvailableModels lists the research models with their phase timeouts
func AvailableModels(cfg config.ResearchConfig) map[string]models.ModelInfo {
	return map[string]models.ModelInfo{
		cfg.SlowModel: {
			Name:        "O3 Deep Research",
			Description: "Most comprehensive research model with advanced reasoning",
			BestFor:     "Complex analysis, detailed reports, comprehensive research",
			Speed:       "Slower",
			TimeoutSecs: cfg.SlowModelTimeout.Seconds(),
		},
		cfg.FastModel: {
			Name:        "O4 Mini Deep Research",
			Description: "Faster, cost-effective research model for quicker insights",
			BestFor:     "Quick research, initial exploration, cost-sensitive tasks",
			Speed:       "Faster",
			TimeoutSecs: cfg.FastModelTimeout.Seconds(),
		},
	}
}
