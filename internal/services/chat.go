package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/acme/supportlens/internal/config"
	"github.com/acme/supportlens/pkg/logger"
	"github.com/acme/supportlens/pkg/template"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

const (
	defaultPromptName  = "customer_support"
	defaultTemperature = 0.7
	defaultContext     = "No specific context provided."
)

// ChatService orchestrates one model call: it resolves and renders the
// prompt, invokes the configured provider, then records the interaction and
// its cost. The model call itself is the only latency-bearing step; the
// caller bounds it through ctx.
type ChatService struct {
	prompts *PromptService
	ledger  *LedgerService
	costs   *CostService
	llm     *config.LLMConfig
}

func NewChatService(prompts *PromptService, ledger *LedgerService, costs *CostService, llm *config.LLMConfig) *ChatService {
	return &ChatService{
		prompts: prompts,
		ledger:  ledger,
		costs:   costs,
		llm:     llm,
	}
}

type ChatRequest struct {
	Question      string            `json:"question" binding:"required"`
	Context       string            `json:"context"`
	SessionID     string            `json:"session_id"`
	PromptName    string            `json:"prompt_name"`
	PromptVersion string            `json:"prompt_version"`
	Model         string            `json:"model"`
	Temperature   float64           `json:"temperature"`
	Metadata      map[string]string `json:"metadata"`

	// Params overrides the default question/context parameter map, for
	// prompts with other placeholder names (e.g. the evaluator).
	Params map[string]string `json:"-"`
}

type ChatResult struct {
	Response      string `json:"response"`
	InteractionID uint   `json:"interaction_id"`
	SessionID     string `json:"session_id"`
	LatencyMs     int    `json:"latency_ms"`
	TokensInput   int    `json:"tokens_input"`
	TokensOutput  int    `json:"tokens_output"`
	PromptVersion string `json:"prompt_version"`
}

// Generate answers one question: prompt resolution, model call, ledger and
// cost writes. Prompt and parameter problems surface before anything is
// written; model errors surface before the ledger write.
func (s *ChatService) Generate(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.PromptName == "" {
		req.PromptName = defaultPromptName
	}
	if req.Model == "" {
		req.Model = s.llm.Model
	}
	if req.Temperature == 0 {
		req.Temperature = defaultTemperature
	}

	prompt, err := s.prompts.Get(req.PromptName, req.PromptVersion)
	if err != nil {
		return nil, err
	}

	params := req.Params
	if params == nil {
		contextText := req.Context
		if contextText == "" {
			contextText = defaultContext
		}
		params = map[string]string{
			"question": req.Question,
			"context":  contextText,
		}
	}
	promptText, err := template.Render(prompt.Template, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	responseText, tokensInput, tokensOutput, err := s.complete(ctx, req.Model, req.Temperature, promptText)
	if err != nil {
		return nil, err
	}
	latencyMs := int(time.Since(start).Milliseconds())

	metadataJSON := "{}"
	if len(req.Metadata) > 0 {
		if data, err := json.Marshal(req.Metadata); err == nil {
			metadataJSON = string(data)
		}
	}

	interactionID, err := s.ledger.RecordInteraction(RecordInteractionParams{
		SessionID:     req.SessionID,
		PromptName:    req.PromptName,
		PromptVersion: prompt.Version,
		PromptText:    promptText,
		ResponseText:  responseText,
		TokensInput:   tokensInput,
		TokensOutput:  tokensOutput,
		LatencyMs:     latencyMs,
		Model:         req.Model,
		Temperature:   req.Temperature,
		Metadata:      metadataJSON,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.costs.TrackInteractionCost(interactionID, tokensInput, tokensOutput, req.Model); err != nil {
		return nil, err
	}

	return &ChatResult{
		Response:      responseText,
		InteractionID: interactionID,
		SessionID:     req.SessionID,
		LatencyMs:     latencyMs,
		TokensInput:   tokensInput,
		TokensOutput:  tokensOutput,
		PromptVersion: prompt.Version,
	}, nil
}

// complete dispatches to the configured provider and returns the response
// text plus prompt/completion token counts.
func (s *ChatService) complete(ctx context.Context, model string, temperature float64, prompt string) (string, int, int, error) {
	logger.Info().
		Str("provider", s.llm.Provider).
		Str("model", model).
		Int("prompt_chars", len(prompt)).
		Msg("calling model")

	switch s.llm.Provider {
	case "anthropic":
		return s.completeAnthropic(ctx, model, prompt)
	default:
		// openai and OpenAI-compatible endpoints
		return s.completeOpenAI(ctx, model, temperature, prompt)
	}
}

func (s *ChatService) completeOpenAI(ctx context.Context, model string, temperature float64, prompt string) (string, int, int, error) {
	clientConfig := openai.DefaultConfig(s.llm.APIKey)
	if s.llm.BaseURL != "" {
		clientConfig.BaseURL = s.llm.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	maxTokens := s.llm.MaxTokens
	if maxTokens == 0 {
		maxTokens = 500
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", 0, 0, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	return content, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil
}

func (s *ChatService) completeAnthropic(ctx context.Context, model string, prompt string) (string, int, int, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(s.llm.APIKey),
	)

	maxTokens := int64(s.llm.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 500
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", 0, 0, fmt.Errorf("Anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	return content, int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens), nil
}
