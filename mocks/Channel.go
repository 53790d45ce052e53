package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pdf/goavea/common"
)

type Channel struct {
	mock.Mock
}

// EnableNotifications provides a mock function with given fields: ctx, handler
func (_m *Channel) EnableNotifications(ctx context.Context, handler common.NotificationHandler) error {
	ret := _m.Called(ctx, handler)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, common.NotificationHandler) error); ok {
		r0 = rf(ctx, handler)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Write provides a mock function with given fields: ctx, data
func (_m *Channel) Write(ctx context.Context, data []byte) error {
	ret := _m.Called(ctx, data)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, []byte) error); ok {
		r0 = rf(ctx, data)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
