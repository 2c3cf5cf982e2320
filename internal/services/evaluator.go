package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/acme/supportlens/pkg/logger"

	"github.com/google/uuid"
)

// EvaluatorService scores responses with a secondary model call using the
// "evaluator" prompt. Evaluations are themselves logged interactions, so
// they show up in the ledger and cost reports like any other call.
type EvaluatorService struct {
	chat *ChatService
}

func NewEvaluatorService(chat *ChatService) *EvaluatorService {
	return &EvaluatorService{chat: chat}
}

type EvaluationResult struct {
	Score         float64 `json:"score"`
	Explanation   string  `json:"explanation"`
	EvaluationID  string  `json:"evaluation_id"`
	InteractionID uint    `json:"interaction_id"`
}

// EvaluateFactuality asks the evaluator model whether response is supported
// by context. An unparseable model reply yields score 0 with an explanation,
// not an error.
func (s *EvaluatorService) EvaluateFactuality(ctx context.Context, response, contextText string) (*EvaluationResult, error) {
	result, err := s.chat.Generate(ctx, &ChatRequest{
		Question:    "factuality_check",
		PromptName:  "evaluator",
		Model:       "gpt-4",
		Temperature: 0.1,
		Params: map[string]string{
			"task":     "factuality_check",
			"context":  contextText,
			"response": response,
		},
	})
	if err != nil {
		return nil, err
	}

	evaluation := &EvaluationResult{
		EvaluationID:  uuid.NewString(),
		InteractionID: result.InteractionID,
	}

	var parsed struct {
		Score       float64 `json:"score"`
		Explanation string  `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(extractJSON(result.Response)), &parsed); err != nil {
		logger.Warnf("[Evaluator] Failed to parse evaluation result: %v", err)
		evaluation.Explanation = "Failed to parse evaluation result"
		return evaluation, nil
	}

	evaluation.Score = parsed.Score
	evaluation.Explanation = parsed.Explanation
	return evaluation, nil
}

// extractJSON pulls the first {...} span out of a model reply, tolerating
// prose or code fences around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
