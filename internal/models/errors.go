package models

import (
	"errors"
	"fmt"
)

// Общие ошибки доменного слоя. Проверяются через errors.Is.
var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidState            = errors.New("invalid state")
	ErrInvalidInput            = errors.New("invalid input")
	ErrDuplicateName           = errors.New("name already exists")
	ErrGenerationFailed        = errors.New("generation failed")
	ErrGenerationTimeout       = errors.New("generation timed out")
	ErrInvalidProviderResponse = errors.New("invalid provider response")
	ErrProvider                = errors.New("provider error")
)

// ProviderError описывает отказ внешнего провайдера: HTTP-статус и/или код ответа в конверте.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int    // HTTP статус, 0 если запрос не дошел до сервера
	Code       int    // код из тела ответа, если провайдер его присылает
	Message    string
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Code != 0:
		return fmt.Sprintf("%s %s: http %d, code %d: %s", e.Provider, e.Op, e.StatusCode, e.Code, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: http %d: %s", e.Provider, e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
	}
}

// Unwrap позволяет сравнивать любую ошибку провайдера с ErrProvider.
func (e *ProviderError) Unwrap() error {
	return ErrProvider
}
