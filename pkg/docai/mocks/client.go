// Package mocks provides test doubles for the docai client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	docai "github.com/CEOAOVA/controlnotdev-sub000/pkg/docai"
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

// UploadCategorized provides a mock function with given fields: ctx, req
func (_m *MockClient) UploadCategorized(ctx context.Context, req docai.UploadRequest) (*docai.UploadResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for UploadCategorized")
	}

	var r0 *docai.UploadResponse
	if rf, ok := ret.Get(0).(func(context.Context, docai.UploadRequest) *docai.UploadResponse); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*docai.UploadResponse)
	}

	return r0, ret.Error(1)
}

// ExtractVision provides a mock function with given fields: ctx, req
func (_m *MockClient) ExtractVision(ctx context.Context, req docai.VisionRequest) (*docai.VisionResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for ExtractVision")
	}

	var r0 *docai.VisionResponse
	if rf, ok := ret.Get(0).(func(context.Context, docai.VisionRequest) *docai.VisionResponse); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*docai.VisionResponse)
	}

	return r0, ret.Error(1)
}

// ExtractOCR provides a mock function with given fields: ctx, sessionID
func (_m *MockClient) ExtractOCR(ctx context.Context, sessionID string) (*docai.OCRResponse, error) {
	ret := _m.Called(ctx, sessionID)

	if len(ret) == 0 {
		panic("no return value specified for ExtractOCR")
	}

	var r0 *docai.OCRResponse
	if rf, ok := ret.Get(0).(func(context.Context, string) *docai.OCRResponse); ok {
		r0 = rf(ctx, sessionID)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*docai.OCRResponse)
	}

	return r0, ret.Error(1)
}

// ExtractLegacy provides a mock function with given fields: ctx, req
func (_m *MockClient) ExtractLegacy(ctx context.Context, req docai.LegacyRequest) (*docai.LegacyResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for ExtractLegacy")
	}

	var r0 *docai.LegacyResponse
	if rf, ok := ret.Get(0).(func(context.Context, docai.LegacyRequest) *docai.LegacyResponse); ok {
		r0 = rf(ctx, req)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*docai.LegacyResponse)
	}

	return r0, ret.Error(1)
}

// Fields provides a mock function with given fields: ctx, documentType
func (_m *MockClient) Fields(ctx context.Context, documentType string) (*docai.FieldsResponse, error) {
	ret := _m.Called(ctx, documentType)

	if len(ret) == 0 {
		panic("no return value specified for Fields")
	}

	var r0 *docai.FieldsResponse
	if rf, ok := ret.Get(0).(func(context.Context, string) *docai.FieldsResponse); ok {
		r0 = rf(ctx, documentType)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*docai.FieldsResponse)
	}

	return r0, ret.Error(1)
}
