package mocks

import (
	"context"

	"storyreel/internal/provider/imagegen"

	"github.com/stretchr/testify/mock"
)

// MockImageGenerator is a mock type for the imagegen.Generator type
type MockImageGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, req
func (_m *MockImageGenerator) Generate(ctx context.Context, req imagegen.Request) (imagegen.Result, error) {
	ret := _m.Called(ctx, req)

	var r0 imagegen.Result
	if rf, ok := ret.Get(0).(func(context.Context, imagegen.Request) imagegen.Result); ok {
		r0 = rf(ctx, req)
	} else {
		r0 = ret.Get(0).(imagegen.Result)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, imagegen.Request) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// NewMockImageGenerator creates a new instance of MockImageGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockImageGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageGenerator {
	m := &MockImageGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ imagegen.Generator = (*MockImageGenerator)(nil)
