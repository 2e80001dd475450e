// Package mocks provides test doubles for the notify client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	notify "github.com/CEOAOVA/controlnotdev-sub000/pkg/notify"
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

// SendEmail provides a mock function with given fields: ctx, req
func (_m *MockClient) SendEmail(ctx context.Context, req notify.SendEmailRequest) (*notify.SendEmailResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for SendEmail")
	}

	var r0 *notify.SendEmailResponse
	if rf, ok := ret.Get(0).(func(context.Context, notify.SendEmailRequest) *notify.SendEmailResponse); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*notify.SendEmailResponse)
	}

	return r0, ret.Error(1)
}
