// Package device implements an Avea bulb handle.
//
// A Bulb owns the connection lifecycle for one peripheral and exposes the
// bulb's operations on top of a protocol.Dispatcher.
package device

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pdf/goavea/common"
	"github.com/pdf/goavea/protocol"
	"github.com/pdf/goavea/protocol/packet"
)

// Option configures a Bulb
type Option func(*Bulb)

// WithConnectTimeout bounds each transport connect attempt
func WithConnectTimeout(timeout time.Duration) Option {
	return func(b *Bulb) {
		b.connectTimeout = timeout
	}
}

// WithResponseTimeout bounds the wait for each command's response, zero waits
// indefinitely
func WithResponseTimeout(timeout time.Duration) Option {
	return func(b *Bulb) {
		b.responseTimeout = timeout
	}
}

var _ common.Bulb = (*Bulb)(nil)

// Bulb is the handle for one physical Avea bulb
type Bulb struct {
	peripheral      common.Peripheral
	dispatcher      *protocol.Dispatcher
	connectTimeout  time.Duration
	responseTimeout time.Duration
	connecting      singleflight.Group

	state      common.ConnectionState
	name       string
	color      common.Color
	brightness int16
	closed     bool

	subscriptions map[string]*common.Subscription
	sync.RWMutex
}

// New returns a Bulb for peripheral and registers for its connection events
func New(peripheral common.Peripheral, opts ...Option) *Bulb {
	b := &Bulb{
		peripheral:      peripheral,
		connectTimeout:  common.DefaultConnectTimeout,
		responseTimeout: common.DefaultResponseTimeout,
		subscriptions:   make(map[string]*common.Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.dispatcher = protocol.NewDispatcher(b,
		protocol.WithID(peripheral.ID()),
		protocol.WithResponseTimeout(b.responseTimeout),
		protocol.WithAcquireTimeout(b.connectTimeout),
	)
	peripheral.SetStateHandler(b.HandleConnectionEvent)
	common.Log.Debugf("New bulb found: %v\n", b.ID())

	return b
}

// ID returns the transport identity of the bulb
func (b *Bulb) ID() string {
	return b.peripheral.ID()
}

// State returns the current connection state
func (b *Bulb) State() common.ConnectionState {
	b.RLock()
	defer b.RUnlock()
	return b.state
}

// HandleConnectionEvent applies a connected/disconnected event from the
// transport.  A disconnect invalidates the command channel.
func (b *Bulb) HandleConnectionEvent(connected bool) {
	if connected {
		common.Log.Debugf("Connected: %v\n", b.ID())
		b.setState(common.Connected)
		return
	}
	common.Log.Debugf("Disconnected: %v\n", b.ID())
	b.setState(common.Disconnected)
	b.dispatcher.Invalidate()
}

// Connect ensures the bulb is connected.  It returns immediately when already
// connected, and concurrent callers share a single transport connect attempt.
// The attempt fails with common.ErrConnectTimeout if it does not complete
// within the connect timeout, transport errors are returned unchanged.
func (b *Bulb) Connect(ctx context.Context) error {
	b.RLock()
	state, closed := b.state, b.closed
	b.RUnlock()
	if closed {
		return common.ErrClosed
	}
	if state == common.Connected {
		return nil
	}

	result := b.connecting.DoChan(`connect`, func() (any, error) {
		return nil, b.connect()
	})
	select {
	case res := <-result:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulb) connect() error {
	if b.State() == common.Connected {
		return nil
	}
	// The transport may report the link up before Connect returns, and
	// commands sent from then on must keep the channel they acquire.
	b.dispatcher.Invalidate()
	b.setState(common.Connecting)
	common.Log.Debugf("Connecting: %v\n", b.ID())

	ctx, cancel := context.WithTimeout(context.Background(), b.connectTimeout)
	defer cancel()
	result := make(chan error, 1)
	go func() {
		result <- b.peripheral.Connect(ctx)
	}()

	var err error
	select {
	case err = <-result:
		if err != nil && ctx.Err() != nil {
			err = common.ErrConnectTimeout
		}
	case <-ctx.Done():
		err = common.ErrConnectTimeout
	}
	if err != nil {
		common.Log.Errorf("Failed to connect to %v: %v\n", b.ID(), err)
		b.setState(common.Disconnected)
		return err
	}

	b.setState(common.Connected)
	return nil
}

// DiscoverChannel locates the command channel on the connected bulb
func (b *Bulb) DiscoverChannel(ctx context.Context, service, characteristic string) (common.Channel, error) {
	return b.peripheral.DiscoverChannel(ctx, service, characteristic)
}

// GetName requests the name of the bulb
func (b *Bulb) GetName(ctx context.Context) (string, error) {
	response, err := b.send(ctx, packet.NewGetName())
	if err != nil {
		return ``, err
	}
	name, err := packet.DecodeName(response)
	if err != nil {
		return ``, err
	}
	common.Log.Debugf("Got name (%v): %v\n", b.ID(), name)

	b.Lock()
	changed := b.name != name
	b.name = name
	b.Unlock()
	if changed {
		b.publish(common.EventUpdateName{Name: name})
	}
	return name, nil
}

// CachedName returns the last known name of the bulb
func (b *Bulb) CachedName() string {
	b.RLock()
	defer b.RUnlock()
	return b.name
}

// GetColor requests the current color of the bulb
func (b *Bulb) GetColor(ctx context.Context) (common.Color, error) {
	response, err := b.send(ctx, packet.NewGetColor())
	if err != nil {
		return common.Color{}, err
	}
	color, err := packet.DecodeColor(response)
	if err != nil {
		return common.Color{}, err
	}
	common.Log.Debugf("Got color (%v): %v\n", b.ID(), color)
	b.updateColor(color)
	return color, nil
}

// SetColor changes the color of the bulb, fading over delay.  A zero delay
// uses common.DefaultSetColorDelay.
func (b *Bulb) SetColor(ctx context.Context, color common.Color, delay time.Duration) error {
	if delay == 0 {
		delay = common.DefaultSetColorDelay
	}
	pkt, err := packet.NewSetColor(color, delay)
	if err != nil {
		return err
	}
	common.Log.Debugf("Setting color on %v: %v (delay %v)\n", b.ID(), color, delay)
	if _, err := b.send(ctx, pkt); err != nil {
		return err
	}
	b.updateColor(color.Clamped())
	return nil
}

// CachedColor returns the last known color of the bulb
func (b *Bulb) CachedColor() common.Color {
	b.RLock()
	defer b.RUnlock()
	return b.color
}

// GetBrightness requests the current brightness of the bulb
func (b *Bulb) GetBrightness(ctx context.Context) (int16, error) {
	response, err := b.send(ctx, packet.NewGetBrightness())
	if err != nil {
		return 0, err
	}
	brightness, err := packet.DecodeBrightness(response)
	if err != nil {
		return 0, err
	}
	common.Log.Debugf("Got brightness (%v): %v\n", b.ID(), brightness)
	b.updateBrightness(brightness)
	return brightness, nil
}

// SetBrightness changes the brightness of the bulb
func (b *Bulb) SetBrightness(ctx context.Context, brightness int16) error {
	pkt, err := packet.NewSetBrightness(brightness)
	if err != nil {
		return err
	}
	common.Log.Debugf("Setting brightness on %v: %v\n", b.ID(), brightness)
	if _, err := b.send(ctx, pkt); err != nil {
		return err
	}
	b.updateBrightness(brightness)
	return nil
}

// CachedBrightness returns the last known brightness of the bulb
func (b *Bulb) CachedBrightness() int16 {
	b.RLock()
	defer b.RUnlock()
	return b.brightness
}

// NewSubscription returns a new *common.Subscription for receiving events from
// this bulb.
func (b *Bulb) NewSubscription() (*common.Subscription, error) {
	sub := common.NewSubscription(b)
	b.Lock()
	b.subscriptions[sub.ID()] = sub
	b.Unlock()
	return sub, nil
}

// CloseSubscription is a callback for handling the closing of subscriptions.
func (b *Bulb) CloseSubscription(sub *common.Subscription) error {
	b.Lock()
	defer b.Unlock()
	if _, ok := b.subscriptions[sub.ID()]; !ok {
		return common.ErrNotFound
	}
	delete(b.subscriptions, sub.ID())
	return nil
}

// Close fails all pending commands with common.ErrClosed and drops the link
// when the peripheral supports it.  The bulb can not be used afterwards.
func (b *Bulb) Close() error {
	common.Log.Debugf("Closing bulb %v with %d pending commands\n", b.ID(), b.dispatcher.Pending())
	b.Lock()
	if b.closed {
		b.Unlock()
		return common.ErrClosed
	}
	b.closed = true
	b.Unlock()

	err := b.dispatcher.Close()
	if d, ok := b.peripheral.(common.Disconnecter); ok {
		if derr := d.Disconnect(); derr != nil && err == nil {
			err = derr
		}
	}
	return err
}

func (b *Bulb) send(ctx context.Context, pkt *packet.Packet) ([]byte, error) {
	return b.dispatcher.Submit(pkt.Encode()).Wait(ctx)
}

func (b *Bulb) setState(state common.ConnectionState) {
	b.Lock()
	changed := b.state != state
	b.state = state
	b.Unlock()
	if changed {
		b.publish(common.EventUpdateState{State: state})
	}
}

func (b *Bulb) updateColor(color common.Color) {
	b.Lock()
	changed := b.color != color
	b.color = color
	b.Unlock()
	if changed {
		b.publish(common.EventUpdateColor{Color: color})
	}
}

func (b *Bulb) updateBrightness(brightness int16) {
	b.Lock()
	changed := b.brightness != brightness
	b.brightness = brightness
	b.Unlock()
	if changed {
		b.publish(common.EventUpdateBrightness{Brightness: brightness})
	}
}

// Pushes an event to subscribers
func (b *Bulb) publish(event any) {
	b.RLock()
	subs := make([]*common.Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.RUnlock()

	for _, sub := range subs {
		if err := sub.Write(event); err != nil {
			common.Log.Warnf("Failed publishing %T on %v to subscription %v: %v\n", event, b.ID(), sub.ID(), err)
		}
	}
}
