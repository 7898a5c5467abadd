package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"pennywise/internal/logger"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("gemini API key not configured")

// generateFunc sends contents to the model and returns its text answer.
type generateFunc func(ctx context.Context, contents []*genai.Content) (string, error)

// Gemini implements Suggester with Google's Gemini models.
type Gemini struct {
	model    string
	generate generateFunc
	now      func() time.Time
}

// NewGemini creates a Gemini suggester. It returns ErrNotConfigured when
// apiKey is empty so callers can run without the AI features.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	generate := func(ctx context.Context, contents []*genai.Content) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return newGemini(model, generate), nil
}

func newGemini(model string, generate generateFunc) *Gemini {
	return &Gemini{model: model, generate: generate, now: time.Now}
}

var _ Suggester = (*Gemini)(nil)

// Suggest asks the model to review one batch. The answer is matched back to
// the batch by id; ids the model invents are ignored.
func (g *Gemini) Suggest(ctx context.Context, batch []Summary, instructions string) ([]Suggestion, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	prompt := buildReviewPrompt(string(payload), instructions)
	start := time.Now()
	raw, err := g.generate(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformed)
	}

	known := make(map[string]bool, len(batch))
	for _, s := range batch {
		known[s.ID] = true
	}
	suggestions, err := ParseSuggestions(raw, known)
	if err != nil {
		return nil, err
	}

	logger.Get().Debugw("review batch answered",
		"model", g.model,
		"batch_size", len(batch),
		"suggestions", len(suggestions),
		"elapsed", time.Since(start),
	)
	return suggestions, nil
}

// ScanReceipt reads a receipt image into a draft.
func (g *Gemini) ScanReceipt(ctx context.Context, image []byte, mimeType string, categories []string) (*Receipt, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrMalformed)
	}
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildReceiptPrompt(categories)},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			},
		},
	}

	raw, err := g.generate(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return ParseReceipt(raw, g.now())
}
