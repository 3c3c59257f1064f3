// Package imagegen - синхронная генерация изображений для персонажей и сцен.
package imagegen

import (
	"context"
	"fmt"

	"storyreel/internal/models"
)

// Request - параметры генерации одного изображения.
type Request struct {
	Prompt        string
	Size          string
	Quality       string
	Style         string
	ReferenceURLs []string // изображения персонажей для сохранения внешности
	Owner         string   // id проекта, под которым сохраняются файлы
}

// Result - ссылка на изображение и промпт, переписанный провайдером (если был).
type Result struct {
	URL           string
	RevisedPrompt string
}

// Generator генерирует одно изображение.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// checkResult проверяет, что провайдер вернул ссылку.
func checkResult(provider string, res Result) (Result, error) {
	if res.URL == "" {
		return Result{}, fmt.Errorf("%s: %w: no image url in response", provider, models.ErrInvalidProviderResponse)
	}
	return res, nil
}
