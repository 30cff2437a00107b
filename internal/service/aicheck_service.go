package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// AICheckItem is one question/answer pair submitted for cross-checking.
type AICheckItem struct {
	QuestionID       string `json:"question_id" binding:"required"`
	QuestionText     string `json:"question_text" binding:"required"`
	InstructorAnswer string `json:"instructor_answer" binding:"required"`
}

// AICheckResult is the model's verdict on one item.
type AICheckResult struct {
	QuestionID       string  `json:"question_id"`
	InstructorAnswer string  `json:"instructor_answer"`
	AIAnswer         float64 `json:"ai_answer"`
	Agrees           bool    `json:"agrees"`
	Reasoning        string  `json:"reasoning"`
}

// ChatCompleter is the slice of the OpenAI client the checker needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AICheckService cross-checks instructor-entered canonical answers against
// an OpenAI-compatible model. It is an authoring aid only; the grading
// engine never consults it.
type AICheckService struct {
	api   ChatCompleter
	model string
	log   zerolog.Logger
}

// NewAICheckService creates a new AICheckService. An empty baseURL uses the
// default OpenAI endpoint.
func NewAICheckService(baseURL, apiKey, modelName string) *AICheckService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &AICheckService{
		api:   openai.NewClientWithConfig(cfg),
		model: modelName,
		log:   log.With().Str("component", "aicheck_service").Logger(),
	}
}

const aiCheckSystemPrompt = `You are a school-level mathematics evaluator and a university computer science evaluator.

Rules:
- Solve each question independently.
- Compute the correct answer.
- Compare with the instructor answer using NUMERIC VALUES ONLY.
- Ignore all units such as cm, m, cm^2, m^2, sq cm, sq m, Rs, etc.
- Treat values like '12', '12 cm', and '12 cm^2' as identical.
- Do NOT penalize missing or extra units.
- Decide agreement strictly based on numerical correctness.
- ALWAYS return ai_answer as a DECIMAL NUMBER.
- NEVER return fractions like 5/6 or 3/4.
- Return ONLY valid JSON.
`

// CheckAnswers asks the model to independently solve each question and
// report whether it agrees with the instructor's answer, comparing by
// numeric value only.
func (s *AICheckService) CheckAnswers(ctx context.Context, items []AICheckItem) ([]AICheckResult, error) {
	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: aiCheckSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildCheckPrompt(items)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("answer check API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("answer check returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	var parsed struct {
		Results []struct {
			AIAnswer  *float64 `json:"ai_answer"`
			Agrees    bool     `json:"agrees"`
			Reasoning string   `json:"reasoning"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		s.log.Error().Str("raw", raw).Msg("answer check returned invalid JSON")
		return nil, fmt.Errorf("parse answer check response: %w", err)
	}
	if len(parsed.Results) != len(items) {
		return nil, fmt.Errorf("answer check returned %d results for %d items", len(parsed.Results), len(items))
	}

	results := make([]AICheckResult, len(items))
	for i, r := range parsed.Results {
		if r.AIAnswer == nil {
			return nil, fmt.Errorf("answer check result %d has no numeric ai_answer", i)
		}
		results[i] = AICheckResult{
			QuestionID:       items[i].QuestionID,
			InstructorAnswer: items[i].InstructorAnswer,
			AIAnswer:         *r.AIAnswer,
			Agrees:           r.Agrees,
			Reasoning:        r.Reasoning,
		}
	}
	return results, nil
}

// buildCheckPrompt lays the items out as numbered question blocks followed
// by the required response shape.
func buildCheckPrompt(items []AICheckItem) string {
	var b strings.Builder
	for i, q := range items {
		fmt.Fprintf(&b, "Question %d:\n%s\n\nInstructor Answer:\n%s\n\n", i+1, q.QuestionText, q.InstructorAnswer)
	}
	b.WriteString("\nReturn JSON in this format:\n\n" +
		"{\n" +
		"  \"results\": [\n" +
		"    {\n" +
		"      \"ai_answer\": number,\n" +
		"      \"agrees\": true | false,\n" +
		"      \"reasoning\": \"short explanation\"\n" +
		"    }\n" +
		"  ]\n" +
		"}\n")
	return b.String()
}
