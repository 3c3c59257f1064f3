package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"storyreel/internal/models"
)

// ExtractJSONObject вырезает JSON-объект из ответа модели: снимает code fence
// и берет текст от первой '{' до последней '}'.
func ExtractJSONObject(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object in model output", models.ErrInvalidProviderResponse)
	}
	return s[start : end+1], nil
}

// ParseStory разбирает ответ модели в Story. RawText сохраняет исходный ответ.
func ParseStory(raw string) (*models.Story, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	var story models.Story
	if err := json.Unmarshal([]byte(obj), &story); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidProviderResponse, err)
	}
	if len(story.Scenes) == 0 {
		return nil, fmt.Errorf("%w: story has no scenes", models.ErrInvalidProviderResponse)
	}
	for i := range story.Scenes {
		if story.Scenes[i].Number == 0 {
			story.Scenes[i].Number = i + 1
		}
	}
	story.RawText = raw
	return &story, nil
}
