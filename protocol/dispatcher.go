package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pdf/goavea/common"
)

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithID sets the bulb ID used in log messages
func WithID(id string) DispatcherOption {
	return func(d *Dispatcher) {
		d.id = id
	}
}

// WithResponseTimeout bounds the wait for a correlated response after a
// successful write.  Zero waits until the bulb answers, disconnects, or the
// dispatcher is closed.
func WithResponseTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.responseTimeout = timeout
	}
}

// WithAcquireTimeout bounds channel discovery and notification setup
func WithAcquireTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.acquireTimeout = timeout
	}
}

// inFlight is the single command awaiting its response
type inFlight struct {
	opcode   byte
	response chan []byte
}

// Dispatcher serializes commands to one bulb.  Submitted requests are queued in
// order, and a single drain goroutine sends them one at a time, waiting for the
// notification carrying the request opcode before sending the next.
type Dispatcher struct {
	id              string
	link            Link
	responseTimeout time.Duration
	acquireTimeout  time.Duration

	mu       sync.Mutex
	backlog  []*Request
	running  bool
	closed   bool
	channel  common.Channel
	epoch    uint64
	lost     chan struct{}
	inFlight *inFlight

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher returns a Dispatcher sending commands over link
func NewDispatcher(link Link, opts ...DispatcherOption) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		link:            link,
		responseTimeout: common.DefaultResponseTimeout,
		acquireTimeout:  common.DefaultConnectTimeout,
		lost:            make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit queues pkt for sending and returns immediately.  Commands are sent in
// submission order, and the returned Request completes with the response
// payload, minus the opcode.
func (d *Dispatcher) Submit(pkt []byte) *Request {
	req := newRequest(d, pkt)
	if len(pkt) == 0 {
		req.complete(nil, fmt.Errorf("%w: empty request", common.ErrProtocolMismatch))
		return req
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		req.complete(nil, common.ErrClosed)
		return req
	}
	d.backlog = append(d.backlog, req)
	start := !d.running
	d.running = true
	d.mu.Unlock()

	if start {
		go d.drain()
	}
	return req
}

// Invalidate discards the cached channel.  Any command waiting for a response
// on it fails with common.ErrDisconnected, and the next command rediscovers the
// channel.
func (d *Dispatcher) Invalidate() {
	d.mu.Lock()
	d.channel = nil
	d.epoch++
	close(d.lost)
	d.lost = make(chan struct{})
	d.mu.Unlock()
}

// Pending returns the number of queued commands, excluding the one in flight.
// It is a point-in-time snapshot for diagnostics, the backlog may change as
// soon as it returns.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.backlog)
}

// Close fails every queued and in-flight command with common.ErrClosed
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return common.ErrClosed
	}
	d.closed = true
	queued := d.backlog
	d.backlog = nil
	d.channel = nil
	d.mu.Unlock()

	d.cancel()
	for _, req := range queued {
		req.complete(nil, common.ErrClosed)
	}
	return nil
}

func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.backlog) == 0 || d.closed {
			d.running = false
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()

		ch, lost, err := d.acquire()
		if err != nil {
			d.failQueued(err)
			continue
		}

		d.mu.Lock()
		if len(d.backlog) == 0 || d.closed {
			d.mu.Unlock()
			continue
		}
		req := d.backlog[0]
		d.backlog[0] = nil
		d.backlog = d.backlog[1:]
		f := &inFlight{opcode: req.Opcode(), response: make(chan []byte, 1)}
		d.inFlight = f
		d.mu.Unlock()

		response, err := d.roundTrip(ch, lost, f, req)

		d.mu.Lock()
		if d.inFlight == f {
			d.inFlight = nil
		}
		d.mu.Unlock()
		req.complete(response, err)
	}
}

// acquire ensures the bulb is connected and returns the channel for the
// current connection epoch, with the channel that is closed when the epoch
// ends.
func (d *Dispatcher) acquire() (common.Channel, <-chan struct{}, error) {
	if err := d.link.Connect(d.ctx); err != nil {
		return nil, nil, err
	}

	d.mu.Lock()
	if d.channel != nil {
		ch, lost := d.channel, d.lost
		d.mu.Unlock()
		return ch, lost, nil
	}
	epoch := d.epoch
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(d.ctx, d.acquireTimeout)
	defer cancel()

	common.Log.Debugf("Discovering command channel on %v\n", d.id)
	ch, err := d.link.DiscoverChannel(ctx, common.ServiceID, common.CharacteristicID)
	if err != nil {
		return nil, nil, err
	}
	if err := ch.EnableNotifications(ctx, d.notificationHandler(epoch)); err != nil {
		return nil, nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, nil, common.ErrClosed
	}
	if d.epoch != epoch {
		return nil, nil, common.ErrDisconnected
	}
	d.channel = ch
	return ch, d.lost, nil
}

func (d *Dispatcher) roundTrip(ch common.Channel, lost <-chan struct{}, f *inFlight, req *Request) ([]byte, error) {
	common.Log.Debugf("Sending to %v: %x\n", d.id, req.packet)
	if err := ch.Write(d.ctx, req.packet); err != nil {
		common.Log.Warnf("Failed writing to %v: %v\n", d.id, err)
		return nil, err
	}

	var timeout <-chan time.Time
	if d.responseTimeout > 0 {
		timer := time.NewTimer(d.responseTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case response := <-f.response:
		return response, nil
	case <-lost:
		return nil, common.ErrDisconnected
	case <-timeout:
		common.Log.Warnf("No response from %v for opcode 0x%02x after %v\n", d.id, f.opcode, d.responseTimeout)
		return nil, common.ErrResponseTimeout
	case <-d.ctx.Done():
		return nil, common.ErrClosed
	}
}

func (d *Dispatcher) notificationHandler(epoch uint64) common.NotificationHandler {
	return func(data []byte) {
		d.handleNotification(epoch, data)
	}
}

func (d *Dispatcher) handleNotification(epoch uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if epoch != d.epoch {
		common.Log.Debugf("Dropping notification from stale channel on %v: %x\n", d.id, data)
		return
	}
	f := d.inFlight
	if len(data) == 0 || f == nil || data[0] != f.opcode {
		common.Log.Debugf("Dropping uncorrelated notification on %v: %x\n", d.id, data)
		return
	}
	common.Log.Debugf("Received from %v: %x\n", d.id, data)
	response := make([]byte, len(data)-1)
	copy(response, data[1:])
	d.inFlight = nil
	f.response <- response
}

// failQueued completes every queued command with err
func (d *Dispatcher) failQueued(err error) {
	d.mu.Lock()
	queued := d.backlog
	d.backlog = nil
	d.mu.Unlock()

	if len(queued) > 0 {
		common.Log.Errorf("Failed acquiring channel on %v, failing %d commands: %v\n", d.id, len(queued), err)
	}
	for _, req := range queued {
		req.complete(nil, err)
	}
}

// withdraw removes req from the backlog if it has not been sent yet
func (d *Dispatcher) withdraw(req *Request) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, queued := range d.backlog {
		if queued == req {
			d.backlog = append(d.backlog[:i], d.backlog[i+1:]...)
			return true
		}
	}
	return false
}
