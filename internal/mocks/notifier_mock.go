package mocks

import (
	"context"

	"storyreel/internal/notify"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock type for the notify.Notifier type
type MockNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, ev
func (_m *MockNotifier) Notify(ctx context.Context, ev notify.Event) error {
	ret := _m.Called(ctx, ev)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, notify.Event) error); ok {
		r0 = rf(ctx, ev)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// NewMockNotifier creates a new instance of MockNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ notify.Notifier = (*MockNotifier)(nil)
