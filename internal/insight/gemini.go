package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	appLog "tetcal/internal/log"
	"tetcal/internal/model"
)

const promptTemplate = `Hãy gợi ý một thông điệp truyền cảm hứng cho %s năm %d tại Việt Nam.
Trả về kết quả dưới định dạng JSON với các trường:
- vibe: Một từ hoặc cụm từ ngắn gọn về "khí chất" của tháng này.
- suggestion: Một hoạt động nên làm trong tháng này.
- quote: Một câu trích dẫn ý nghĩa.`

// generator is the slice of the genai client the provider needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider asks a Gemini model for a structured month insight.
type GeminiProvider struct {
	models  generator
	model   string
	year    int
	timeout time.Duration
}

// GeminiOptions configures NewGeminiProvider.
type GeminiOptions struct {
	APIKey  string
	Model   string
	Year    int
	Timeout time.Duration
}

// NewGeminiProvider builds a provider backed by the Gemini API.
func NewGeminiProvider(ctx context.Context, opts GeminiOptions) (*GeminiProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("insight: gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("insight: create gemini client: %w", err)
	}
	return newGeminiProvider(client.Models, opts), nil
}

func newGeminiProvider(g generator, opts GeminiOptions) *GeminiProvider {
	if opts.Model == "" {
		opts.Model = "gemini-3-flash-preview"
	}
	if opts.Year == 0 {
		opts.Year = 2026
	}
	return &GeminiProvider{
		models:  g,
		model:   opts.Model,
		year:    opts.Year,
		timeout: opts.Timeout,
	}
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"vibe":       {Type: genai.TypeString},
			"suggestion": {Type: genai.TypeString},
			"quote":      {Type: genai.TypeString},
		},
		Required: []string{"vibe", "suggestion", "quote"},
	}
}

// FetchMonthInsight implements Provider.
func (p *GeminiProvider) FetchMonthInsight(ctx context.Context, monthName string) (model.MonthInsight, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(promptTemplate, monthName, p.year)
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	}

	start := time.Now()
	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(prompt), cfg)
	if err != nil {
		return model.MonthInsight{}, fmt.Errorf("gemini generate: %w", err)
	}
	appLog.Debug("gemini insight response", "month", monthName, "model", p.model, "elapsed", time.Since(start).String())

	if resp == nil {
		return model.MonthInsight{}, errors.New("gemini: empty response")
	}
	return decodeInsight(resp.Text())
}

// decodeInsight parses the model's JSON text. Some models wrap JSON in a
// markdown fence even in JSON mode; the fence is stripped first.
func decodeInsight(text string) (model.MonthInsight, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return model.MonthInsight{}, errors.New("gemini: no text in response")
	}

	var v model.MonthInsight
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return model.MonthInsight{}, fmt.Errorf("gemini: decode insight: %w", err)
	}
	if !v.Complete() {
		return model.MonthInsight{}, ErrIncomplete
	}
	return v, nil
}
