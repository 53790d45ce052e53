// Copyright 2015 Peter Fern
// Use of this source code is governed by the MIT
// license that can be found in the LICENSE file

// Package goavea provides a simple Go interface to Elgato Avea bulbs over
// Bluetooth Low Energy.
//
// Also included in cmd/avea is a small CLI utility that allows interacting with
// a bulb, and bridging it to MQTT.
package goavea

import (
	"github.com/pdf/goavea/common"
)

const (
	// VERSION of this library
	VERSION = `0.1.0`
)

// NewClient returns a pointer to a new Client with no bulbs.  Bulbs are added
// with AddPeripheral as the transport finds them.
func NewClient() *Client {
	return &Client{
		bulbs:           make(map[string]common.Bulb),
		subscriptions:   make(map[string]*common.Subscription),
		timeout:         common.DefaultTimeout,
		connectTimeout:  common.DefaultConnectTimeout,
		responseTimeout: common.DefaultResponseTimeout,
	}
}

// SetLogger allows assigning a custom levelled logger that conforms to the
// common.Logger interface.  To capture logs generated during client creation,
// this should be called before creating a Client. Defaults to
// common.StubLogger, which does no logging at all.
func SetLogger(logger common.Logger) {
	common.SetLogger(logger)
}
