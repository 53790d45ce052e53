package common

import "context"

// StateHandler receives connection lifecycle events from a Peripheral, true
// for connected and false for disconnected
type StateHandler func(connected bool)

// NotificationHandler receives notification packets from a Channel
type NotificationHandler func(data []byte)

// Peripheral is the radio-layer handle for one physical bulb
type Peripheral interface {
	// ID returns a stable identity for the bulb
	ID() string
	// Connect establishes the link, returning once connected or failed
	Connect(ctx context.Context) error
	// SetStateHandler registers the receiver of connected/disconnected events
	SetStateHandler(handler StateHandler)
	// DiscoverChannel locates the characteristic identified by service and
	// characteristic on the connected bulb
	DiscoverChannel(ctx context.Context, service, characteristic string) (Channel, error)
}

// Channel is the negotiated endpoint commands are written to. It is only
// valid for the connection it was discovered on.
type Channel interface {
	// EnableNotifications subscribes handler to notification packets
	EnableNotifications(ctx context.Context, handler NotificationHandler) error
	// Write sends a packet, returning when the transport has accepted it
	Write(ctx context.Context, data []byte) error
}

// Disconnecter is implemented by peripherals that can drop their link on
// request.  The disconnected event is delivered through the StateHandler.
type Disconnecter interface {
	Disconnect() error
}
