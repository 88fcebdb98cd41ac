package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements Generator and Scanner using Google Gemini
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a new Gemini client
func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: modelName,
	}, nil
}

// Generate sends a text prompt and returns the text of every candidate
func (g *Gemini) Generate(ctx context.Context, prompt Prompt) ([]string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(prompt.Temperature)
	if prompt.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(prompt.MaxTokens))
	}

	parts := make([]genai.Part, 0, 2)
	if prompt.System != "" {
		parts = append(parts, genai.Text(prompt.System))
	}
	parts = append(parts, genai.Text(prompt.User))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	out := make([]string, 0, len(resp.Candidates))
	for _, cand := range resp.Candidates {
		if text := candidateText(cand); text != "" {
			out = append(out, text)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}
	return out, nil
}

// ReadQRCode asks the vision model for the QR payload of a receipt photo
func (g *Gemini) ReadQRCode(ctx context.Context, imageData []byte, contentType string) (string, error) {
	pngData, err := preparePhoto(imageData, contentType)
	if err != nil {
		return "", err
	}

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0)

	// genai.ImageData takes the format suffix, not the full MIME type
	resp, err := model.GenerateContent(ctx, genai.ImageData("png", pngData), genai.Text(qrReadPrompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}
	return parseQRPayload(candidateText(resp.Candidates[0]))
}

func candidateText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
