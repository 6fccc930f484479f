// Package mocks provides test doubles for the dashapi client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/salesdash/internal/model"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// FilteredData provides a mock function with given fields: ctx, q
func (_m *MockClient) FilteredData(ctx context.Context, q model.Query) (*model.ResultPage, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for FilteredData")
	}

	var r0 *model.ResultPage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.Query) (*model.ResultPage, error)); ok {
		return rf(ctx, q)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.ResultPage)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Cities provides a mock function with given fields: ctx
func (_m *MockClient) Cities(ctx context.Context) ([]string, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Cities")
	}

	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}

// StoreAnalysis provides a mock function with given fields: ctx
func (_m *MockClient) StoreAnalysis(ctx context.Context) (*model.StoreData, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for StoreAnalysis")
	}

	var r0 *model.StoreData
	if rf, ok := ret.Get(0).(func(context.Context) (*model.StoreData, error)); ok {
		return rf(ctx)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.StoreData)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
