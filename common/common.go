// Package common contains the types and contracts shared between the goavea
// client, the protocol implementation and transports.
package common

import "time"

const (
	// DefaultConnectTimeout bounds a single transport connect attempt
	DefaultConnectTimeout = 30 * time.Second
	// DefaultResponseTimeout is zero, a sent command waits for its correlated
	// response until the bulb answers, disconnects, or the dispatcher closes
	DefaultResponseTimeout time.Duration = 0
	// DefaultTimeout bounds client lookups and subscription writes
	DefaultTimeout = 2 * time.Second
	// DefaultSetColorDelay is the fade duration used when SetColor is given a
	// zero delay
	DefaultSetColorDelay = 100 * time.Millisecond

	// ServiceID is the GATT service exposing the bulb's command channel
	ServiceID = `f815e810456c6761746f4d756e696368`
	// CharacteristicID is the GATT characteristic commands are written to and
	// responses are notified on
	CharacteristicID = `f815e811456c6761746f4d756e696368`
)
