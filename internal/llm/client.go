package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/yeren66/LLM4ArxivPaper/internal/retry"
)

// Client is the single LLM capability the pipeline depends on. Callers pick
// the model per call, so one client serves both ranking and summarization.
type Client interface {
	// Complete runs one chat completion and returns the raw text.
	Complete(ctx context.Context, model, system, user string) (string, error)
	// CompleteJSON runs one chat completion constrained to a JSON object and
	// returns the JSON text with any code fences stripped.
	CompleteJSON(ctx context.Context, model, system, user string) (string, error)
	// ExtractPDF uploads the file at path to the files API and asks the model
	// for a plain-text extraction. The remote file is deleted before return.
	ExtractPDF(ctx context.Context, model, path string) (string, error)
}

// Config carries what the client needs from the openai config section.
type Config struct {
	APIKey      string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int // retry budget per call; negative means no retries
}

// OpenAIClient talks to an OpenAI-compatible endpoint.
type OpenAIClient struct {
	client      openai.Client
	temperature float64
	timeout     time.Duration
	retryCfg    retry.Config
}

// NewOpenAIClient builds a client against cfg.BaseURL (or the public API
// when empty).
func NewOpenAIClient(cfg Config) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		temperature: cfg.Temperature,
		timeout:     timeout,
		retryCfg:    retry.Config{MaxRetries: retries, BaseDelay: time.Second},
	}
}

// Complete runs one chat completion and returns the raw text.
func (c *OpenAIClient) Complete(ctx context.Context, model, system, user string) (string, error) {
	return c.complete(ctx, model, system, user, false)
}

// CompleteJSON runs one chat completion in JSON mode.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, model, system, user string) (string, error) {
	text, err := c.complete(ctx, model, system, user, true)
	if err != nil {
		return "", err
	}
	return StripCodeFences(text), nil
}

func (c *OpenAIClient) complete(ctx context.Context, model, system, user string, jsonMode bool) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
	}
	if jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	var text string
	err := retry.WithBackoff(ctx, c.retryCfg, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Chat.Completions.New(callCtx, params)
		if err != nil {
			return fmt.Errorf("chat completion (model %s): %w", model, err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion (model %s): empty choices", model)
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// ExtractPDF uploads a local PDF and asks the model to return its text.
func (c *OpenAIClient) ExtractPDF(ctx context.Context, model, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	uploadCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	uploaded, err := c.client.Files.New(uploadCtx, openai.FileNewParams{
		File:    f,
		Purpose: openai.FilePurposeUserData,
	})
	if err != nil {
		return "", fmt.Errorf("uploading pdf %s: %w", path, err)
	}
	defer func() {
		// Best effort; a leaked remote file is not worth failing the paper.
		deleteCtx, cancelDelete := context.WithTimeout(context.Background(), c.timeout)
		defer cancelDelete()
		_, _ = c.client.Files.Delete(deleteCtx, uploaded.ID)
	}()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You extract the complete readable text of academic papers."),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				{
					OfFile: &openai.ChatCompletionContentPartFileParam{
						File: openai.ChatCompletionContentPartFileFileParam{
							FileID: openai.String(uploaded.ID),
						},
					},
				},
				{
					OfText: &openai.ChatCompletionContentPartTextParam{
						Text: "Extract the full text of this paper as plain text. Keep section headings. Do not summarize.",
					},
				},
			}),
		},
	}

	callCtx, cancelCall := context.WithTimeout(ctx, c.timeout)
	defer cancelCall()

	resp, err := c.client.Chat.Completions.New(callCtx, params)
	if err != nil {
		return "", fmt.Errorf("pdf extraction (model %s): %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("pdf extraction (model %s): empty choices", model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// StripCodeFences removes a surrounding markdown code fence from an LLM
// response, tolerating a language tag after the opening backticks.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// LanguageInstruction returns the prompt suffix enforcing the configured
// output language.
func LanguageInstruction(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "zh", "zh-cn", "zh-hans", "chinese":
		return "请使用简体中文回答。"
	default:
		return "Answer in English."
	}
}
