package gemini

import (
	"context"
	"fmt"
	"log"

	models "github.com/Desarso/chatsync/models"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Gemini_Model implements models.Model against the Gemini API. The client
// reads its API key from GEMINI_API_KEY via the genai SDK defaults.
type Gemini_Model struct {
	Model  string        `json:"model"`
	Params models.Params `json:"params"`
}

// Generate sends the context window as a multi-turn request and returns the
// generated text.
func (g *Gemini_Model) Generate(ctx context.Context, turns []models.ChatTurn) (string, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelToUse := g.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	params := g.Params
	if params.MaxTokens == 0 {
		params = models.DefaultParams()
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(params.Temperature)),
		MaxOutputTokens: int32(params.MaxTokens),
	}

	// Gemini takes the system turn as a separate instruction, the rest as
	// alternating user/model contents.
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleSystem:
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: turn.Content}},
			}
		case models.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: turn.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: turn.Content}},
			})
		}
	}

	result, err := client.Models.GenerateContent(ctx, modelToUse, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no response from model %s", modelToUse)
	}

	return text, nil
}
