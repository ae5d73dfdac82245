package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mplacona/ThreadScout/internal/model"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type openaiAgent struct {
	client openai.Client
	model  string
}

// NewOpenAI builds the live scoring client. The structured-output schema
// nudges the model toward the expected shape, but the response is still
// treated as raw text downstream.
func NewOpenAI(cfg OpenAIConfig) (ScoringService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	mdl := cfg.Model
	if mdl == "" {
		mdl = "gpt-4o-mini"
	}

	return &openaiAgent{
		client: openai.NewClient(opts...),
		model:  mdl,
	}, nil
}

// analysisSchema mirrors the upstream response contract for the
// structured-output request.
type analysisSchema struct {
	Score        float64        `json:"score"`
	WhyFit       string         `json:"whyFit"`
	RulesSummary []string       `json:"rulesSummary"`
	Risks        []string       `json:"risks"`
	VariantA     variantSchema  `json:"variantA"`
	VariantB     variantBSchema `json:"variantB"`
}

type variantSchema struct {
	Text string `json:"text"`
}

type variantBSchema struct {
	Text       string `json:"text"`
	Disclosure string `json:"disclosure"`
}

func (a *openaiAgent) AnalyzeThread(ctx context.Context, thread *model.FullThread, rules model.RulesSummary, keywords []string) (string, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "thread_analysis",
		Description: openai.String("Thread relevance score and reply drafts"),
		Schema:      generateSchema[analysisSchema](),
		Strict:      openai.Bool(true),
	}

	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(thread, rules, keywords)),
		},
		MaxTokens: openai.Int(1200),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	}

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(ctx, err)
	}

	slog.DebugContext(ctx, "scoring call completed",
		"model", a.model,
		"thread_id", thread.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *openaiAgent) Name() string {
	return "openai:" + a.model
}

// classifyError maps rate-limit and server errors onto ErrUnavailable so the
// session surfaces them as a distinguishable failure class.
func classifyError(ctx context.Context, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			slog.WarnContext(ctx, "scoring service unavailable",
				"status_code", apiErr.StatusCode)
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return fmt.Errorf("scoring call: %w", err)
}

func generateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
