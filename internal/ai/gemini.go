// Package ai talks to Gemini for moment reasoning and frame descriptions.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("ai: empty response")

// generator is the subset of *genai.Models the client uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is a rate limited Gemini client. It satisfies both the reasoning and
// the vision collaborator interfaces of the pipeline.
type Client struct {
	models  generator
	model   string
	limiter *rate.Limiter
}

// NewClient connects to the Gemini API. perMinute bounds the request rate
// across every caller sharing the client.
func NewClient(ctx context.Context, apiKey, model string, perMinute int) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ai: api key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(gc.Models, model, perMinute), nil
}

func newClient(models generator, model string, perMinute int) *Client {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Client{
		models:  models,
		model:   model,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Complete sends a text-only request with a system instruction.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.4),
	}
	return c.generate(ctx, genai.Text(user), cfg)
}

// DescribeImage asks for a short description of a JPEG frame.
func (c *Client) DescribeImage(ctx context.Context, jpeg []byte, instruction string) (string, error) {
	if len(jpeg) == 0 {
		return "", errors.New("ai: image is empty")
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(jpeg, "image/jpeg"),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.2),
		MaxOutputTokens: 120,
	}
	return c.generate(ctx, contents, cfg)
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ai: rate limit wait: %w", err)
	}

	started := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("ai: generate content: %w", err)
	}
	text := responseText(resp)
	slog.DebugContext(ctx, "ai response", "model", c.model, "chars", len(text), "elapsed", time.Since(started))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
