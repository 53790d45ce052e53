//go:build linux

package main

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// setupDevice opens the default HCI adapter
func setupDevice() error {
	d, err := linux.NewDevice()
	if err != nil {
		return err
	}
	ble.SetDefaultDevice(d)
	return nil
}
