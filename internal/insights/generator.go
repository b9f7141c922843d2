// Package insights turns a merged analytics report into a
// human-readable narrative: one prompt to a hosted language model,
// then best-effort parsing of the delimited sections it returns.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	defaultModel   = "gpt-4-1106-preview"
	defaultTimeout = 120 * time.Second

	systemPrompt = "You are a professional analytics assistant."

	// maxTokens bounds the completion; the three sections fit well
	// within it.
	maxTokens = 300
)

// ErrGeneration wraps any transport or API failure from the model
// call. It is surfaced to the user as a retryable failure; there is no
// automatic retry.
var ErrGeneration = errors.New("insight generation failed")

// ProfileContext carries the business framing embedded into the prompt.
type ProfileContext struct {
	BusinessName        string
	BusinessDescription string
	Goals               []string
}

// Generator sends a single chat completion request per report.
// Safe for concurrent use; construct once at process start.
type Generator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGenerator creates a generator for the given API key.
func NewGenerator(apiKey string) *Generator {
	return &Generator{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    openAIBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// BuildPrompt assembles the single prompt: summarized report data,
// optional business context, and the strict formatting contract the
// parser depends on (three literal section markers, constrained
// bullet syntax).
func BuildPrompt(summaryText string, profile ProfileContext) string {
	var b strings.Builder
	if profile.BusinessName != "" || profile.BusinessDescription != "" {
		fmt.Fprintf(&b, "Business context: %s", profile.BusinessName)
		if profile.BusinessDescription != "" {
			fmt.Fprintf(&b, ", %s", profile.BusinessDescription)
		}
		b.WriteString("\n")
	}
	if len(profile.Goals) > 0 {
		fmt.Fprintf(&b, "The user's ranked goals: %s\n", strings.Join(profile.Goals, ", "))
	}
	fmt.Fprintf(&b, "Analyze this summarized data: %s\n\n", summaryText)
	b.WriteString("### Summary:\n")
	b.WriteString("Provide a concise 3-4 sentence summary. Avoid using a list format.\n")
	b.WriteString("### Key Insights:\n")
	b.WriteString("Generate 4 key insights. Each insight should include: a one-word title, " +
		"a numeric data point or one word metric (only list the number or one word, " +
		"dont do '1.39 sessions/user', do '1.39'. Dont do '0.94 seconds', do '0.94s'. " +
		"We need this to be as short as possible), and one brief explanatory comment " +
		"no more than 90 characters. Format each insight as a single bullet point. " +
		"Follow this strict example: 'Traffic - 21.5k - Consistent growth in site visits', " +
		"'Source - Organic - Google is a key organic traffic driver.'\n")
	b.WriteString("### Actionable Strategies:\n")
	b.WriteString("Suggest 4 actionable strategies based on the data, 1-2 sentences each, " +
		"using corresponding emojis as bullet points. Here is a format example: " +
		"'- 📈 Enhance SEO and content strategy to leverage Google as a significant organic traffic driver.'")
	return b.String()
}

// Generate sends one completion request and returns the raw model
// text. Any failure is wrapped in ErrGeneration.
func (g *Generator) Generate(ctx context.Context, summaryText string, profile ProfileContext) (string, error) {
	body := map[string]interface{}{
		"model":       g.model,
		"temperature": 1,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": BuildPrompt(summaryText, profile)},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrGeneration, resp.StatusCode, snippet)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGeneration, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response carried no choices", ErrGeneration)
	}
	return out.Choices[0].Message.Content, nil
}
