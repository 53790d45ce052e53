package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pdf/goavea/common"
)

type Peripheral struct {
	mock.Mock
}

// ID provides a mock function with given fields:
func (_m *Peripheral) ID() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// Connect provides a mock function with given fields: ctx
func (_m *Peripheral) Connect(ctx context.Context) error {
	ret := _m.Called(ctx)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// SetStateHandler provides a mock function with given fields: handler
func (_m *Peripheral) SetStateHandler(handler common.StateHandler) {
	_m.Called(handler)
}

// DiscoverChannel provides a mock function with given fields: ctx, service, characteristic
func (_m *Peripheral) DiscoverChannel(ctx context.Context, service string, characteristic string) (common.Channel, error) {
	ret := _m.Called(ctx, service, characteristic)

	var r0 common.Channel
	if rf, ok := ret.Get(0).(func(context.Context, string, string) common.Channel); ok {
		r0 = rf(ctx, service, characteristic)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(common.Channel)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, service, characteristic)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
