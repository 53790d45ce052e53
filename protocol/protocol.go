// Package protocol implements command dispatch for Avea bulbs.
//
// This package is not designed to used directly by end users, all interaction
// should occur via a Bulb from the protocol/device package, or the Client in
// the goavea package.
//
// Bulbs only correlate responses by opcode, so a Dispatcher keeps exactly one
// command in flight per bulb and sends the rest in submission order.
package protocol

import (
	"context"

	"github.com/pdf/goavea/common"
)

// Link is the dispatcher's view of a bulb, it ensures the bulb is connected
// and locates its command channel
type Link interface {
	// Connect returns once the bulb is connected, it must not start a second
	// transport connect while one is in progress
	Connect(ctx context.Context) error
	// DiscoverChannel locates the command characteristic on the connected bulb
	DiscoverChannel(ctx context.Context, service, characteristic string) (common.Channel, error)
}
