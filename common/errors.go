package common

import "errors"

var (
	// ErrConnectTimeout is returned when a transport connect does not complete
	// within the connect timeout
	ErrConnectTimeout = errors.New(`connect timed out`)
	// ErrResponseTimeout is returned when a sent command receives no correlated
	// response within the configured response timeout
	ErrResponseTimeout = errors.New(`response timed out`)
	// ErrProtocolMismatch is returned for malformed or short packets
	ErrProtocolMismatch = errors.New(`protocol mismatch`)
	// ErrDisconnected is returned to a command that was in flight when the bulb
	// disconnected
	ErrDisconnected = errors.New(`disconnected`)
	// ErrClosed is returned when operating on a closed bulb or subscription
	ErrClosed = errors.New(`closed`)
	// ErrNotFound is returned when a lookup finds nothing
	ErrNotFound = errors.New(`not found`)
	// ErrDuplicate is returned when adding a bulb that is already known
	ErrDuplicate = errors.New(`duplicate`)
	// ErrTimeout is returned when a lookup or subscription write times out
	ErrTimeout = errors.New(`timeout`)
)
