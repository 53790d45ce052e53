package common

import (
	"context"
	"time"
)

// ConnectionState tracks the link between the client and a bulb
type ConnectionState int

const (
	// Disconnected means no link is established
	Disconnected ConnectionState = iota
	// Connecting means a transport connect is in progress
	Connecting
	// Connected means the link is up and commands may be sent
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return `disconnected`
	case Connecting:
		return `connecting`
	case Connected:
		return `connected`
	default:
		return `unknown`
	}
}

// Bulb represents an Avea bulb
type Bulb interface {
	// ID returns the transport identity of the bulb
	ID() string
	// State returns the current connection state
	State() ConnectionState
	// Connect ensures the bulb is connected
	Connect(ctx context.Context) error

	// GetName requests the name of the bulb
	GetName(ctx context.Context) (string, error)
	// CachedName returns the last known name of the bulb
	CachedName() string

	// GetColor requests the current color of the bulb
	GetColor(ctx context.Context) (Color, error)
	// SetColor changes the color of the bulb, fading over delay
	SetColor(ctx context.Context, color Color, delay time.Duration) error
	// CachedColor returns the last known color of the bulb
	CachedColor() Color

	// GetBrightness requests the current brightness of the bulb
	GetBrightness(ctx context.Context) (int16, error)
	// SetBrightness changes the brightness of the bulb
	SetBrightness(ctx context.Context, brightness int16) error
	// CachedBrightness returns the last known brightness of the bulb
	CachedBrightness() int16

	// Close releases the bulb, pending commands fail with ErrClosed
	Close() error

	// Bulb is a SubscriptionTarget
	SubscriptionTarget
}
