package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

// GeminiAnalyzer implements Analyzer with the Gemini API.
type GeminiAnalyzer struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGeminiAnalyzer creates a client for the given model. Close releases it.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, apperrors.New(apperrors.CodeAIUnavailable, "API key not configured for gemini")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAIUnavailable, "failed to create Gemini client")
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(0)
	m.ResponseMIMEType = "application/json"

	return &GeminiAnalyzer{client: client, model: m, name: model}, nil
}

func (g *GeminiAnalyzer) Name() string {
	return g.name
}

// Analyze sends the invoice prompt and one JPEG page to the model.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, image []byte) (string, error) {
	resp, err := g.model.GenerateContent(ctx,
		genai.Text(invoicePrompt),
		genai.ImageData("jpeg", image),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from Gemini API")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from Gemini API (FinishReason: %v)", resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

func (g *GeminiAnalyzer) Close() error {
	return g.client.Close()
}
