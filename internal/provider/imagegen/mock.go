package imagegen

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Mock возвращает детерминированную ссылку-заглушку без обращения к сети.
type Mock struct{}

var _ Generator = Mock{}

func (Mock) Generate(_ context.Context, req Request) (Result, error) {
	sum := sha1.Sum([]byte(req.Prompt))
	seed := hex.EncodeToString(sum[:6])
	return Result{
		URL:           fmt.Sprintf("https://picsum.photos/seed/%s/1024/576", seed),
		RevisedPrompt: req.Prompt,
	}, nil
}
