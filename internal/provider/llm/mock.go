package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient возвращает детерминированную историю без обращения к сети.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (MockClient) GenerateText(_ context.Context, systemPrompt, userInput string, _ GenerationParams) (string, UsageInfo, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return "", UsageInfo{}, fmt.Errorf("%w: empty system prompt", ErrAIGenerationFailed)
	}
	subject := strings.TrimSpace(userInput)
	if len(subject) > 60 {
		subject = subject[:60]
	}
	subject = strings.NewReplacer(`"`, "'", `\`, "/", "\n", " ").Replace(subject)
	if subject == "" {
		subject = "a quiet town"
	}
	text := fmt.Sprintf(`{
  "title": "The Tale of %[1]s",
  "scenes": [
    {"number": 1, "description": "Morning light over %[1]s.", "action": "The hero wakes."},
    {"number": 2, "description": "A stranger arrives in %[1]s.", "dialogue": "Who are you?"},
    {"number": 3, "description": "Sunset, the two part ways.", "action": "They walk off."}
  ],
  "characters": [
    {"name": "Hero", "description": "A curious young traveler in a green coat."},
    {"name": "Stranger", "description": "A tall figure with a silver lantern."}
  ]
}`, subject)
	return text, UsageInfo{}, nil
}
