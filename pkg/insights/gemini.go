package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator produces a narrative insight from one day's metrics.
type Generator interface {
	Generate(ctx context.Context, m Metrics) (*Insight, error)
}

// GeminiGenerator generates insights with Google Gemini. The model is
// prompted for a strict JSON object matching the Insight schema; free
// text responses are rejected rather than pattern-matched.
type GeminiGenerator struct {
	APIKey string
	Model  string
}

func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiGenerator{APIKey: apiKey, Model: model}
}

func (g *GeminiGenerator) Generate(ctx context.Context, m Metrics) (*Insight, error) {
	if g.APIKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.Model)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(800)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(m)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content generated")
	}

	raw := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			raw += string(text)
		}
	}

	// Some models wrap JSON in a fenced block despite the MIME hint.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var ins Insight
	if err := json.Unmarshal([]byte(raw), &ins); err != nil {
		return nil, fmt.Errorf("generator returned non-JSON output: %w", err)
	}
	if err := Validate(&ins); err != nil {
		return nil, fmt.Errorf("generator output failed validation: %w", err)
	}
	return &ins, nil
}

func buildPrompt(m Metrics) string {
	return fmt.Sprintf(`Analyze the following health data for one user and one day, and provide personalized health insights and recommendations:

- Steps: %d
- Sleep duration: %.1f hours
- Resting heart rate: %d bpm
- HRV (heart rate variability): %d ms
- Calories burned: %d kcal
- Active minutes: %d

Respond with ONLY a JSON object, no surrounding text, matching exactly this shape:
{
  "summary": "2-3 sentence overall assessment of current health",
  "activity": "analysis of steps and active minutes against a 10,000 step target",
  "sleep": "analysis of sleep duration against the optimal 7-9 hour range",
  "cardioHealth": "analysis based on resting heart rate and HRV",
  "recommendations": ["three specific, actionable recommendations covering activity, HRV and sleep"]
}

Write in a professional but accessible tone, positive and motivating. Briefly explain any medical terminology.`,
		m.Steps, m.SleepHours, m.RestingHeartRate, m.HRV, m.Calories, m.ActiveMinutes)
}
