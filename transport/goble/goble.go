// Package goble implements the goavea transport contracts on top of
// github.com/go-ble/ble.
//
// The caller is responsible for selecting the HCI device with
// ble.SetDefaultDevice before connecting.
package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-ble/ble"

	"github.com/pdf/goavea/common"
)

var (
	// ErrServiceNotFound is returned when the bulb does not expose the
	// requested service
	ErrServiceNotFound = errors.New(`service not found`)
	// ErrCharacteristicNotFound is returned when the service does not expose
	// the requested characteristic
	ErrCharacteristicNotFound = errors.New(`characteristic not found`)
)

// gattClient is the subset of ble.Client used by the adapter
type gattClient interface {
	DiscoverServices(filter []ble.UUID) ([]*ble.Service, error)
	DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error)
	DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error)
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

type dialFunc func(ctx context.Context, addr ble.Addr) (gattClient, error)

func dial(ctx context.Context, addr ble.Addr) (gattClient, error) {
	cln, err := ble.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return cln, nil
}

// Peripheral is a bulb reachable at a BLE address
type Peripheral struct {
	addr    ble.Addr
	dial    dialFunc
	client  gattClient
	handler common.StateHandler
	sync.Mutex
}

// NewPeripheral returns a Peripheral for the bulb at addr, e.g.
// "7c:2f:80:aa:bb:cc"
func NewPeripheral(addr string) *Peripheral {
	return &Peripheral{
		addr: ble.NewAddr(addr),
		dial: dial,
	}
}

// ID returns the BLE address of the bulb
func (p *Peripheral) ID() string {
	return p.addr.String()
}

// SetStateHandler registers the receiver of connected/disconnected events
func (p *Peripheral) SetStateHandler(handler common.StateHandler) {
	p.Lock()
	p.handler = handler
	p.Unlock()
}

// Connect dials the bulb, returning once the link is up or ctx ends
func (p *Peripheral) Connect(ctx context.Context) error {
	cln, err := p.dial(ctx, p.addr)
	if err != nil {
		return err
	}

	p.Lock()
	previous := p.client
	p.client = cln
	handler := p.handler
	p.Unlock()

	if previous != nil && previous != cln {
		_ = previous.CancelConnection()
	}
	go p.watch(cln)
	if handler != nil {
		handler(true)
	}
	return nil
}

// Disconnect drops the link, the disconnected event follows asynchronously
func (p *Peripheral) Disconnect() error {
	p.Lock()
	cln := p.client
	p.Unlock()
	if cln == nil {
		return nil
	}
	return cln.CancelConnection()
}

func (p *Peripheral) watch(cln gattClient) {
	<-cln.Disconnected()

	p.Lock()
	current := p.client == cln
	if current {
		p.client = nil
	}
	handler := p.handler
	p.Unlock()

	if current && handler != nil {
		handler(false)
	}
}

// DiscoverChannel locates characteristic within service, and discovers its
// descriptors so notifications can be enabled
func (p *Peripheral) DiscoverChannel(ctx context.Context, service, characteristic string) (common.Channel, error) {
	p.Lock()
	cln := p.client
	p.Unlock()
	if cln == nil {
		return nil, common.ErrDisconnected
	}

	serviceUUID, err := ble.Parse(service)
	if err != nil {
		return nil, err
	}
	characteristicUUID, err := ble.Parse(characteristic)
	if err != nil {
		return nil, err
	}

	var char *ble.Characteristic
	err = withContext(ctx, func() error {
		services, err := cln.DiscoverServices([]ble.UUID{serviceUUID})
		if err != nil {
			return err
		}
		svc := findService(services, serviceUUID)
		if svc == nil {
			return fmt.Errorf("%w: %s", ErrServiceNotFound, service)
		}
		chars, err := cln.DiscoverCharacteristics([]ble.UUID{characteristicUUID}, svc)
		if err != nil {
			return err
		}
		char = findCharacteristic(chars, characteristicUUID)
		if char == nil {
			return fmt.Errorf("%w: %s", ErrCharacteristicNotFound, characteristic)
		}
		_, err = cln.DiscoverDescriptors(nil, char)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Channel{client: cln, characteristic: char}, nil
}

// Channel is the bulb's command characteristic on one connection
type Channel struct {
	client         gattClient
	characteristic *ble.Characteristic
}

// EnableNotifications subscribes handler to notifications on the
// characteristic
func (c *Channel) EnableNotifications(ctx context.Context, handler common.NotificationHandler) error {
	return withContext(ctx, func() error {
		return c.client.Subscribe(c.characteristic, false, func(data []byte) {
			handler(data)
		})
	})
}

// Write sends data as a write without response
func (c *Channel) Write(ctx context.Context, data []byte) error {
	return withContext(ctx, func() error {
		return c.client.WriteCharacteristic(c.characteristic, data, true)
	})
}

func findService(services []*ble.Service, id ble.UUID) *ble.Service {
	for _, svc := range services {
		if svc.UUID.Equal(id) {
			return svc
		}
	}
	return nil
}

func findCharacteristic(chars []*ble.Characteristic, id ble.UUID) *ble.Characteristic {
	for _, char := range chars {
		if char.UUID.Equal(id) {
			return char
		}
	}
	return nil
}

// withContext runs fn, returning early with ctx.Err() if ctx ends first.  go-ble
// calls are not cancellable, fn keeps running in the background.
func withContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result := make(chan error, 1)
	go func() {
		result <- fn()
	}()
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
