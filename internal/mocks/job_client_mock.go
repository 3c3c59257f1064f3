package mocks

import (
	"context"

	"storyreel/internal/jobs"
	"storyreel/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockJobClient is a mock type for the jobs.Client type
type MockJobClient struct {
	mock.Mock
}

// Kind provides a mock function with given fields:
func (_m *MockJobClient) Kind() models.ProviderKind {
	ret := _m.Called()

	var r0 models.ProviderKind
	if rf, ok := ret.Get(0).(func() models.ProviderKind); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(models.ProviderKind)
	}
	return r0
}

// CreateTask provides a mock function with given fields: ctx, in
func (_m *MockJobClient) CreateTask(ctx context.Context, in jobs.Input) (jobs.Status, error) {
	ret := _m.Called(ctx, in)

	var r0 jobs.Status
	if rf, ok := ret.Get(0).(func(context.Context, jobs.Input) jobs.Status); ok {
		r0 = rf(ctx, in)
	} else {
		r0 = ret.Get(0).(jobs.Status)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, jobs.Input) error); ok {
		r1 = rf(ctx, in)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// GetStatus provides a mock function with given fields: ctx, jobID
func (_m *MockJobClient) GetStatus(ctx context.Context, jobID string) (jobs.Status, error) {
	ret := _m.Called(ctx, jobID)

	var r0 jobs.Status
	if rf, ok := ret.Get(0).(func(context.Context, string) jobs.Status); ok {
		r0 = rf(ctx, jobID)
	} else {
		r0 = ret.Get(0).(jobs.Status)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, jobID)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// NewMockJobClient creates a new instance of MockJobClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockJobClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockJobClient {
	m := &MockJobClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ jobs.Client = (*MockJobClient)(nil)
