package protocol

import (
	"context"
	"sync"
)

// Request is a command submitted to a Dispatcher.  It completes exactly once,
// with the response payload (opcode stripped) or an error.
type Request struct {
	packet   []byte
	done     chan struct{}
	response []byte
	err      error
	once     sync.Once
	owner    *Dispatcher
}

func newRequest(owner *Dispatcher, pkt []byte) *Request {
	data := make([]byte, len(pkt))
	copy(data, pkt)
	return &Request{
		packet: data,
		done:   make(chan struct{}),
		owner:  owner,
	}
}

// Opcode returns the correlation key of the request
func (r *Request) Opcode() byte {
	return r.packet[0]
}

// Done is closed when the request completes
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Result returns the response payload and error, it is only meaningful once
// Done is closed
func (r *Request) Result() ([]byte, error) {
	return r.response, r.err
}

// Wait blocks until the request completes or ctx is done.  If ctx ends while
// the request is still queued it is withdrawn and will never be sent.  A
// request that has already been sent keeps the channel until its response
// arrives, only the wait is abandoned.
func (r *Request) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-r.done:
		return r.Result()
	case <-ctx.Done():
	}

	// A completed request reports its own result even if ctx ended too
	select {
	case <-r.done:
		return r.Result()
	default:
	}

	if r.owner != nil && r.owner.withdraw(r) {
		r.complete(nil, ctx.Err())
		return r.Result()
	}
	return nil, ctx.Err()
}

func (r *Request) complete(response []byte, err error) bool {
	completed := false
	r.once.Do(func() {
		r.response = response
		r.err = err
		close(r.done)
		completed = true
	})
	return completed
}
