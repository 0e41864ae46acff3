package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiRecognizer implements the OCR and image-classification
// capabilities on top of the Gemini vision models.
type GeminiRecognizer struct {
	apiKey string
	model  string
}

func NewGeminiRecognizer(apiKey, model string) *GeminiRecognizer {
	return &GeminiRecognizer{apiKey: strings.TrimSpace(apiKey), model: model}
}

func (r *GeminiRecognizer) client(ctx context.Context) (*genai.Client, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("ocr api key not configured")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  r.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (r *GeminiRecognizer) generate(ctx context.Context, image []byte, prompt string) (string, error) {
	client, err := r.client(ctx)
	if err != nil {
		return "", err
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: http.DetectContentType(image), Data: image}},
		{Text: prompt},
	}
	resp, err := client.Models.GenerateContent(ctx, r.model, []*genai.Content{{Parts: parts}}, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// RecognizeText transcribes the page image in accurate mode with
// language correction under the given hints.
func (r *GeminiRecognizer) RecognizeText(ctx context.Context, image []byte, languageHints []string) (string, error) {
	hints := strings.Join(languageHints, ", ")
	if hints == "" {
		hints = "es"
	}
	prompt := fmt.Sprintf(`Transcribe ALL text visible in this scanned page image.
- Probable languages, in priority order: %s.
- Correct obvious recognition mistakes using the detected language.
- Preserve the reading order and paragraph breaks.
- Output only the transcribed text, nothing else.
- If the page contains no text, output nothing.`, hints)
	text, err := r.generate(ctx, image, prompt)
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

// ClassifyImage returns ordered descriptive labels for the image.
// Callers treat it as best-effort.
func (r *GeminiRecognizer) ClassifyImage(ctx context.Context, image []byte) ([]string, error) {
	prompt := `Classify the content of this image.
Return a JSON array of up to 5 short descriptive labels, most confident first.
Return the JSON array only.`
	out, err := r.generate(ctx, image, prompt)
	if err != nil {
		return nil, fmt.Errorf("classify image: %w", err)
	}
	return parseLabels(out)
}

func parseLabels(output string) ([]string, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	var labels []string
	if err := json.Unmarshal([]byte(clean), &labels); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}
