package mocks

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/pdf/goavea/common"
)

// ErrFakeUnknownChannel is returned by FakePeripheral.DiscoverChannel for any
// service or characteristic other than the bulb's command channel
var ErrFakeUnknownChannel = errors.New(`fake: unknown channel`)

// FakePeripheral is an in-memory bulb.  It persists name, color and brightness
// and answers every write with a notification echoing the request opcode.
type FakePeripheral struct {
	id         string
	name       string
	brightness int16
	color      [8]byte

	connected    bool
	connectCalls int
	writes       [][]byte
	handler      common.StateHandler
	notify       common.NotificationHandler

	// ConnectErr is returned by Connect when set
	ConnectErr error
	// ConnectBlock makes Connect wait until its context ends
	ConnectBlock bool
	// DiscoverErr is returned by DiscoverChannel when set
	DiscoverErr error
	// WriteErr is returned by Write when set
	WriteErr error
	// Silent lists opcodes the fake never answers
	Silent map[byte]bool
	// Garbage, when set, is notified before every response
	Garbage []byte

	sync.Mutex
}

// NewFakePeripheral returns a disconnected fake bulb called name
func NewFakePeripheral(id, name string) *FakePeripheral {
	return &FakePeripheral{
		id:     id,
		name:   name,
		color:  [8]byte{0x00, 0x80, 0x00, 0x30, 0x00, 0x20, 0x00, 0x10},
		Silent: make(map[byte]bool),
	}
}

func (f *FakePeripheral) ID() string {
	return f.id
}

func (f *FakePeripheral) SetStateHandler(handler common.StateHandler) {
	f.Lock()
	f.handler = handler
	f.Unlock()
}

func (f *FakePeripheral) Connect(ctx context.Context) error {
	f.Lock()
	f.connectCalls++
	block, err := f.ConnectBlock, f.ConnectErr
	f.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	f.Lock()
	f.connected = true
	handler := f.handler
	f.Unlock()
	if handler != nil {
		handler(true)
	}
	return nil
}

// Disconnect drops the link and emits a disconnected event
func (f *FakePeripheral) Disconnect() error {
	f.Lock()
	f.connected = false
	f.notify = nil
	handler := f.handler
	f.Unlock()
	if handler != nil {
		handler(false)
	}
	return nil
}

// Connected reports whether the link is up
func (f *FakePeripheral) Connected() bool {
	f.Lock()
	defer f.Unlock()
	return f.connected
}

func (f *FakePeripheral) DiscoverChannel(ctx context.Context, service, characteristic string) (common.Channel, error) {
	f.Lock()
	defer f.Unlock()
	if f.DiscoverErr != nil {
		return nil, f.DiscoverErr
	}
	if service != common.ServiceID || characteristic != common.CharacteristicID {
		return nil, ErrFakeUnknownChannel
	}
	return &fakeChannel{peripheral: f}, nil
}

// ConnectCalls returns the number of transport connect attempts
func (f *FakePeripheral) ConnectCalls() int {
	f.Lock()
	defer f.Unlock()
	return f.connectCalls
}

// Writes returns every packet written so far
func (f *FakePeripheral) Writes() [][]byte {
	f.Lock()
	defer f.Unlock()
	writes := make([][]byte, len(f.writes))
	copy(writes, f.writes)
	return writes
}

// Notify delivers data to the current notification handler
func (f *FakePeripheral) Notify(data []byte) {
	f.Lock()
	notify := f.notify
	f.Unlock()
	if notify != nil {
		notify(data)
	}
}

func (f *FakePeripheral) respond(data []byte) {
	f.Lock()
	var response []byte
	switch data[0] {
	case 0x58:
		response = append([]byte{0x58}, f.name...)
		response = append(response, 0)
	case 0x57:
		if len(data) >= 3 {
			f.brightness = int16(binary.LittleEndian.Uint16(data[1:3]))
		}
		response = make([]byte, 3)
		response[0] = 0x57
		binary.LittleEndian.PutUint16(response[1:], uint16(f.brightness))
	case 0x35:
		if len(data) >= 13 {
			copy(f.color[:], data[5:13])
		}
		response = append([]byte{0x35, 0x00, 0x00, 0x00}, f.color[:]...)
	default:
		response = []byte{data[0]}
	}
	garbage := f.Garbage
	f.Unlock()

	if garbage != nil {
		f.Notify(garbage)
	}
	f.Notify(response)
}

type fakeChannel struct {
	peripheral *FakePeripheral
}

func (c *fakeChannel) EnableNotifications(ctx context.Context, handler common.NotificationHandler) error {
	c.peripheral.Lock()
	c.peripheral.notify = handler
	c.peripheral.Unlock()
	return nil
}

func (c *fakeChannel) Write(ctx context.Context, data []byte) error {
	f := c.peripheral
	f.Lock()
	if f.WriteErr != nil {
		err := f.WriteErr
		f.Unlock()
		return err
	}
	if !f.connected {
		f.Unlock()
		return common.ErrDisconnected
	}
	pkt := make([]byte, len(data))
	copy(pkt, data)
	f.writes = append(f.writes, pkt)
	silent := f.Silent[pkt[0]]
	f.Unlock()

	if !silent {
		go f.respond(pkt)
	}
	return nil
}
