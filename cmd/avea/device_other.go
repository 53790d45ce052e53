//go:build !linux

package main

import (
	"errors"
)

func setupDevice() error {
	return errors.New(`bluetooth is only supported on linux`)
}
