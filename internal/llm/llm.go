package llm

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sjlee-edu/mathtutor/internal/model"
)

const (
	// analysisSystemPrompt frames every image-analysis call.
	analysisSystemPrompt = "이미지는 학생의 수학 서술형 답안입니다."
	// analysisUserPrompt asks for a grader-friendly description with LaTeX
	// math and any Korean text transcribed.
	analysisUserPrompt = "학생의 수학 서술형 풀이를 설명해주세요. 수식은 latex로 변환하여 작성하고, " +
		"한글로 보이는 부분이 있다면 써주세요. 이 답안을 채점할 예정입니다. 교사가 채점하기 좋도록 설명해주세요."
)

// Config selects the model identities and output bounds per operation.
type Config struct {
	FeedbackModel     string
	VisionModel       string
	HintModel         string
	FeedbackMaxTokens int
	HintMaxTokens     int
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api *openai.Client
	cfg Config

	// analyses memoizes image analysis per exact image bytes and MIME type.
	// Unbounded for the process lifetime; load is one classroom session.
	mu       sync.Mutex
	analyses map[string]string
}

// New creates a new LLM client.
func New(baseURL, apiKey string, cfg Config) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:      openai.NewClientWithConfig(config),
		cfg:      cfg,
		analyses: make(map[string]string),
	}
}

// Ping verifies the API endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// AnalyzeImage asks the vision model for a prose description of the
// handwritten work. Identical uploads within one process lifetime hit the
// cache and return byte-identical text without a second API call.
func (c *Client) AnalyzeImage(ctx context.Context, img model.ImageUpload) (string, error) {
	key := cacheKey(img)

	c.mu.Lock()
	if cached, ok := c.analyses[key]; ok {
		c.mu.Unlock()
		slog.Debug("image analysis cache hit", "key", key[:12])
		return cached, nil
	}
	c.mu.Unlock()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: analysisUserPrompt},
					imagePart(img),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("image analysis API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("image analysis returned no choices")
	}

	analysis := strings.TrimSpace(resp.Choices[0].Message.Content)

	c.mu.Lock()
	c.analyses[key] = analysis
	c.mu.Unlock()

	return analysis, nil
}

// Feedback sends the composed template as the system instruction and the
// combined student input (plus the raw image, when present) as the user
// message, bounded to the configured output length.
func (c *Client) Feedback(ctx context.Context, instruction, combined string, img *model.ImageUpload) (string, error) {
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: combined},
	}
	if img != nil {
		parts = append(parts, imagePart(*img))
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.FeedbackModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		MaxTokens: c.cfg.FeedbackMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("feedback API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("feedback returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Hint requests a hint with a dedicated model and a smaller output bound.
func (c *Client) Hint(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.HintModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: c.cfg.HintMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("hint API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("hint returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func imagePart(img model.ImageUpload) openai.ChatMessagePart {
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL: dataURI(img),
		},
	}
}

func dataURI(img model.ImageUpload) string {
	mime := img.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func cacheKey(img model.ImageUpload) string {
	h := sha256.New()
	h.Write([]byte(img.MIME))
	h.Write([]byte{0})
	h.Write(img.Data)
	return hex.EncodeToString(h.Sum(nil))
}
