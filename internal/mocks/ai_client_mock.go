package mocks

import (
	"context"

	"storyreel/internal/provider/llm"

	"github.com/stretchr/testify/mock"
)

// MockAIClient is a mock type for the llm.AIClient type
type MockAIClient struct {
	mock.Mock
}

// GenerateText provides a mock function with given fields: ctx, systemPrompt, userInput, params
func (_m *MockAIClient) GenerateText(ctx context.Context, systemPrompt string, userInput string, params llm.GenerationParams) (string, llm.UsageInfo, error) {
	ret := _m.Called(ctx, systemPrompt, userInput, params)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string, llm.GenerationParams) string); ok {
		r0 = rf(ctx, systemPrompt, userInput, params)
	} else {
		r0 = ret.Get(0).(string)
	}

	var r1 llm.UsageInfo
	if rf, ok := ret.Get(1).(func(context.Context, string, string, llm.GenerationParams) llm.UsageInfo); ok {
		r1 = rf(ctx, systemPrompt, userInput, params)
	} else {
		r1 = ret.Get(1).(llm.UsageInfo)
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(context.Context, string, string, llm.GenerationParams) error); ok {
		r2 = rf(ctx, systemPrompt, userInput, params)
	} else {
		r2 = ret.Error(2)
	}
	return r0, r1, r2
}

// NewMockAIClient creates a new instance of MockAIClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockAIClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ llm.AIClient = (*MockAIClient)(nil)
