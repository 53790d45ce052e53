package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pdf/goavea/common"
)

type Bulb struct {
	SubscriptionTarget
	mock.Mock
}

// ID provides a mock function with given fields:
func (_m *Bulb) ID() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// State provides a mock function with given fields:
func (_m *Bulb) State() common.ConnectionState {
	ret := _m.Called()

	var r0 common.ConnectionState
	if rf, ok := ret.Get(0).(func() common.ConnectionState); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(common.ConnectionState)
	}

	return r0
}

// Connect provides a mock function with given fields: ctx
func (_m *Bulb) Connect(ctx context.Context) error {
	ret := _m.Called(ctx)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetName provides a mock function with given fields: ctx
func (_m *Bulb) GetName(ctx context.Context) (string, error) {
	ret := _m.Called(ctx)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context) string); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(string)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CachedName provides a mock function with given fields:
func (_m *Bulb) CachedName() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// GetColor provides a mock function with given fields: ctx
func (_m *Bulb) GetColor(ctx context.Context) (common.Color, error) {
	ret := _m.Called(ctx)

	var r0 common.Color
	if rf, ok := ret.Get(0).(func(context.Context) common.Color); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(common.Color)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SetColor provides a mock function with given fields: ctx, color, delay
func (_m *Bulb) SetColor(ctx context.Context, color common.Color, delay time.Duration) error {
	ret := _m.Called(ctx, color, delay)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, common.Color, time.Duration) error); ok {
		r0 = rf(ctx, color, delay)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// CachedColor provides a mock function with given fields:
func (_m *Bulb) CachedColor() common.Color {
	ret := _m.Called()

	var r0 common.Color
	if rf, ok := ret.Get(0).(func() common.Color); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(common.Color)
	}

	return r0
}

// GetBrightness provides a mock function with given fields: ctx
func (_m *Bulb) GetBrightness(ctx context.Context) (int16, error) {
	ret := _m.Called(ctx)

	var r0 int16
	if rf, ok := ret.Get(0).(func(context.Context) int16); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(int16)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SetBrightness provides a mock function with given fields: ctx, brightness
func (_m *Bulb) SetBrightness(ctx context.Context, brightness int16) error {
	ret := _m.Called(ctx, brightness)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, int16) error); ok {
		r0 = rf(ctx, brightness)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// CachedBrightness provides a mock function with given fields:
func (_m *Bulb) CachedBrightness() int16 {
	ret := _m.Called()

	var r0 int16
	if rf, ok := ret.Get(0).(func() int16); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(int16)
	}

	return r0
}

// Close provides a mock function with given fields:
func (_m *Bulb) Close() error {
	ret := _m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}
