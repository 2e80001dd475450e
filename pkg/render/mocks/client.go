// Package mocks provides test doubles for the render client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	render "github.com/CEOAOVA/controlnotdev-sub000/pkg/render"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// NewMockClient creates a new MockClient and registers cleanup assertions.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Preview provides a mock function with given fields: ctx, req
func (_m *MockClient) Preview(ctx context.Context, req render.PreviewRequest) (*render.PreviewResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Preview")
	}

	var r0 *render.PreviewResponse
	if rf, ok := ret.Get(0).(func(context.Context, render.PreviewRequest) *render.PreviewResponse); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*render.PreviewResponse)
	}

	return r0, ret.Error(1)
}

// Generate provides a mock function with given fields: ctx, req
func (_m *MockClient) Generate(ctx context.Context, req render.GenerateRequest) (*render.GenerateResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Generate")
	}

	var r0 *render.GenerateResponse
	if rf, ok := ret.Get(0).(func(context.Context, render.GenerateRequest) *render.GenerateResponse); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*render.GenerateResponse)
	}

	return r0, ret.Error(1)
}
