// Package storywriter превращает запросы пользователя в версии истории через языковую модель.
package storywriter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyreel/internal/models"
	"storyreel/internal/provider/llm"
)

const storySchema = `Respond with a single JSON object and nothing else:
{"title": string, "scenes": [{"number": int, "description": string, "dialogue": string, "action": string}],
 "characters": [{"name": string, "description": string, "role": string}],
 "locations": [{"name": string, "description": string}],
 "sceneVisuals": [{"sceneNumber": int, "shot": string, "lighting": string, "mood": string}]}`

const (
	generateSystemPrompt = "You are a screenwriter for short animated videos. Write a compact visual story. " +
		"Each scene description must be a self-contained visual description usable as an image prompt.\n" + storySchema
	improveSystemPrompt = "You revise an existing short video story according to the user's notes. " +
		"Keep what the notes do not ask to change.\n" + storySchema
	expandSystemPrompt = "You continue an existing short video story. Keep all existing scenes unchanged " +
		"and append new scenes that continue the plot.\n" + storySchema
	enhanceSystemPrompt = "You write detailed visual descriptions for image generation. " +
		"Return only the improved description as plain text, one paragraph, no preamble."
)

// Options - параметры генерации новой истории.
type Options struct {
	SceneCount int
	Style      string
}

// Writer генерирует и правит истории.
type Writer struct {
	ai     llm.AIClient
	params llm.GenerationParams
	logger *zap.Logger
	now    func() time.Time
}

func New(ai llm.AIClient, params llm.GenerationParams, logger *zap.Logger) *Writer {
	return &Writer{ai: ai, params: params, logger: logger.Named("StoryWriter"), now: func() time.Time { return time.Now().UTC() }}
}

// Generate создает новую историю по запросу пользователя.
func (w *Writer) Generate(ctx context.Context, prompt string, opts Options) (*models.Story, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("generate story: %w: empty prompt", models.ErrInvalidInput)
	}
	var sb strings.Builder
	sb.WriteString("Story idea:\n")
	sb.WriteString(prompt)
	if opts.SceneCount > 0 {
		fmt.Fprintf(&sb, "\n\nNumber of scenes: %d", opts.SceneCount)
	}
	if opts.Style != "" {
		fmt.Fprintf(&sb, "\nVisual style: %s", opts.Style)
	}
	return w.complete(ctx, "generate story", generateSystemPrompt, sb.String())
}

// Improve возвращает исправленную версию истории.
func (w *Writer) Improve(ctx context.Context, current *models.Story, notes string) (*models.Story, error) {
	if current == nil {
		return nil, fmt.Errorf("improve story: %w: no current story", models.ErrInvalidState)
	}
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("improve story: %w: empty notes", models.ErrInvalidInput)
	}
	body, err := storyJSON(current)
	if err != nil {
		return nil, err
	}
	return w.complete(ctx, "improve story", improveSystemPrompt, "Current story:\n"+body+"\n\nRevision notes:\n"+notes)
}

// Expand дописывает продолжение истории.
func (w *Writer) Expand(ctx context.Context, current *models.Story) (*models.Story, error) {
	if current == nil {
		return nil, fmt.Errorf("expand story: %w: no current story", models.ErrInvalidState)
	}
	body, err := storyJSON(current)
	if err != nil {
		return nil, err
	}
	return w.complete(ctx, "expand story", expandSystemPrompt, "Current story:\n"+body)
}

// EnhanceDescription переписывает описание персонажа или сцены для генерации изображения.
func (w *Writer) EnhanceDescription(ctx context.Context, kind, name, description string) (string, error) {
	input := fmt.Sprintf("%s: %s\nDescription: %s", kind, name, description)
	text, _, err := w.ai.GenerateText(ctx, enhanceSystemPrompt, input, w.params)
	if err != nil {
		return "", fmt.Errorf("enhance %s %q: %w", kind, name, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("enhance %s %q: %w: empty text", kind, name, models.ErrInvalidProviderResponse)
	}
	return text, nil
}

func (w *Writer) complete(ctx context.Context, op, system, input string) (*models.Story, error) {
	params := w.params
	params.JSONMode = true
	text, usage, err := w.ai.GenerateText(ctx, system, input, params)
	if err != nil {
		if errors.Is(err, llm.ErrAIGenerationFailed) {
			return nil, fmt.Errorf("%s: %w: %v", op, models.ErrGenerationFailed, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	story, err := llm.ParseStory(text)
	if err != nil {
		w.logger.Warn("Model returned unparsable story", zap.String("op", op), zap.Int("length", len(text)), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	story.CreatedAt = w.now()
	w.logger.Info("Story version produced",
		zap.String("op", op),
		zap.String("title", story.Title),
		zap.Int("scenes", len(story.Scenes)),
		zap.Int("total_tokens", usage.TotalTokens),
	)
	return story, nil
}

func storyJSON(s *models.Story) (string, error) {
	view := *s
	view.RawText = ""
	b, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal story: %w", err)
	}
	return string(b), nil
}
