package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	models "github.com/Desarso/chatsync/models"
	"github.com/joho/godotenv"
)

const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel      = "openai/gpt-4o-mini"
	DefaultAPIKeyEnv  = "OPENROUTER_API_KEY"
)

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// OpenRouter_Model implements models.Model against the OpenRouter API.
// Also supports any OpenAI-compatible API endpoint via BaseURL/APIKeyEnv.
type OpenRouter_Model struct {
	Model     string        // Model identifier (e.g., "openai/gpt-4o-mini")
	Params    models.Params // Fixed generation parameters
	SiteURL   string        // Optional: your site URL for OpenRouter rankings
	SiteName  string        // Optional: your site name for OpenRouter rankings
	BaseURL   string        // Optional: custom API base URL (defaults to OpenRouter)
	APIKeyEnv string        // Optional: env var holding the API key

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Generate sends one chat completion request and returns the generated text.
func (o *OpenRouter_Model) Generate(ctx context.Context, turns []models.ChatTurn) (string, error) {
	keyEnv := o.APIKeyEnv
	if keyEnv == "" {
		keyEnv = DefaultAPIKeyEnv
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return "", fmt.Errorf("%s environment variable not set", keyEnv)
	}

	modelToUse := o.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	params := o.Params
	if params.MaxTokens == 0 {
		params = models.DefaultParams()
	}

	messages := make([]Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, Message{Role: turn.Role, Content: turn.Content})
	}

	reqBody := OpenRouterRequest{
		Model:       modelToUse,
		Messages:    messages,
		MaxTokens:   &params.MaxTokens,
		Temperature: &params.Temperature,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if o.SiteURL != "" {
		httpReq.Header.Set("HTTP-Referer", o.SiteURL)
	}
	if o.SiteName != "" {
		httpReq.Header.Set("X-Title", o.SiteName)
	}

	client := o.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp OpenRouterResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no response from model %s", modelToUse)
	}

	return apiResp.Choices[0].Message.Content, nil
}
