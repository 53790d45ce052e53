package goavea

import (
	"context"
	"sync"
	"time"

	"github.com/pdf/goavea/common"
	"github.com/pdf/goavea/protocol/device"
)

// Client keeps track of the bulbs known to the application.  Every bulb has its
// own command backlog, so a slow or stalled bulb never delays another.  Client
// can not be instantiated manually or it will not function - always use
// NewClient() to obtain a Client instance.
type Client struct {
	bulbs           map[string]common.Bulb
	subscriptions   map[string]*common.Subscription
	timeout         time.Duration
	connectTimeout  time.Duration
	responseTimeout time.Duration
	closed          bool
	sync.RWMutex
}

// AddPeripheral creates a bulb handle for p and adds it to the client's known
// bulbs.  Returns common.ErrDuplicate if a bulb with the same ID is already
// known.
func (c *Client) AddPeripheral(p common.Peripheral) (common.Bulb, error) {
	c.Lock()
	if c.closed {
		c.Unlock()
		return nil, common.ErrClosed
	}
	if _, ok := c.bulbs[p.ID()]; ok {
		c.Unlock()
		return nil, common.ErrDuplicate
	}
	bulb := device.New(p,
		device.WithConnectTimeout(c.connectTimeout),
		device.WithResponseTimeout(c.responseTimeout),
	)
	c.bulbs[bulb.ID()] = bulb
	c.Unlock()

	c.publish(common.EventNewBulb{Bulb: bulb})
	return bulb, nil
}

// AddBulb adds an existing bulb to the client's known bulbs.  Returns
// common.ErrDuplicate if the bulb is already known.
func (c *Client) AddBulb(bulb common.Bulb) error {
	c.Lock()
	if c.closed {
		c.Unlock()
		return common.ErrClosed
	}
	if _, ok := c.bulbs[bulb.ID()]; ok {
		c.Unlock()
		return common.ErrDuplicate
	}
	c.bulbs[bulb.ID()] = bulb
	c.Unlock()

	c.publish(common.EventNewBulb{Bulb: bulb})
	return nil
}

// RemoveBulbByID looks up a bulb by it's id, closes it and removes it from the
// client's list of known bulbs, or returns common.ErrNotFound if the bulb is
// not known at this time.
func (c *Client) RemoveBulbByID(id string) error {
	c.Lock()
	bulb, ok := c.bulbs[id]
	if !ok {
		c.Unlock()
		return common.ErrNotFound
	}
	delete(c.bulbs, id)
	c.Unlock()

	if err := bulb.Close(); err != nil {
		common.Log.Warnf("Failed closing removed bulb %v: %v\n", id, err)
	}
	c.publish(common.EventExpiredBulb{Bulb: bulb})
	return nil
}

// GetBulbs returns a slice of all bulbs known to the client, or
// common.ErrNotFound if no bulbs are currently known.
func (c *Client) GetBulbs() ([]common.Bulb, error) {
	c.RLock()
	defer c.RUnlock()
	bulbs := make([]common.Bulb, 0, len(c.bulbs))
	for _, bulb := range c.bulbs {
		bulbs = append(bulbs, bulb)
	}
	if len(bulbs) == 0 {
		return bulbs, common.ErrNotFound
	}
	return bulbs, nil
}

// GetBulbByID looks up a bulb by it's id and returns a common.Bulb, or
// common.ErrNotFound if the bulb is not known.
func (c *Client) GetBulbByID(id string) (common.Bulb, error) {
	c.RLock()
	defer c.RUnlock()
	bulb, ok := c.bulbs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return bulb, nil
}

// GetBulbByName asks every known bulb for it's name and returns the first one
// matching name.  Bulbs are queried concurrently, the lookup gives up with
// common.ErrNotFound after the client timeout.
func (c *Client) GetBulbByName(ctx context.Context, name string) (common.Bulb, error) {
	bulbs, err := c.GetBulbs()
	if err != nil {
		return nil, err
	}
	for _, bulb := range bulbs {
		if bulb.CachedName() == name {
			return bulb, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.GetTimeout())
	defer cancel()
	found := make(chan common.Bulb, len(bulbs))
	for _, bulb := range bulbs {
		go func(bulb common.Bulb) {
			res, err := bulb.GetName(ctx)
			if err != nil {
				common.Log.Debugf("Failed reading name of %v: %v\n", bulb.ID(), err)
				return
			}
			if res == name {
				found <- bulb
			}
		}(bulb)
	}

	select {
	case bulb := <-found:
		return bulb, nil
	case <-ctx.Done():
		return nil, common.ErrNotFound
	}
}

// SetTimeout sets the time that client lookups wait for results before
// returning an error
func (c *Client) SetTimeout(timeout time.Duration) {
	c.Lock()
	c.timeout = timeout
	c.Unlock()
}

// GetTimeout returns the currently configured lookup timeout
func (c *Client) GetTimeout() time.Duration {
	c.RLock()
	defer c.RUnlock()
	return c.timeout
}

// SetConnectTimeout sets the connect timeout for bulbs added after the call
func (c *Client) SetConnectTimeout(timeout time.Duration) {
	c.Lock()
	c.connectTimeout = timeout
	c.Unlock()
}

// SetResponseTimeout sets the response timeout for bulbs added after the call,
// zero waits for responses indefinitely
func (c *Client) SetResponseTimeout(timeout time.Duration) {
	c.Lock()
	c.responseTimeout = timeout
	c.Unlock()
}

// NewSubscription returns a new *common.Subscription for receiving
// EventNewBulb and EventExpiredBulb events from this client.
func (c *Client) NewSubscription() (*common.Subscription, error) {
	sub := common.NewSubscription(c)
	c.Lock()
	c.subscriptions[sub.ID()] = sub
	c.Unlock()
	return sub, nil
}

// CloseSubscription is a callback for handling the closing of subscriptions.
func (c *Client) CloseSubscription(sub *common.Subscription) error {
	c.Lock()
	defer c.Unlock()
	if _, ok := c.subscriptions[sub.ID()]; !ok {
		return common.ErrNotFound
	}
	delete(c.subscriptions, sub.ID())
	return nil
}

// Close signals the termination of this client, and closes every known bulb
func (c *Client) Close() error {
	c.Lock()
	if c.closed {
		c.Unlock()
		return common.ErrClosed
	}
	c.closed = true
	bulbs := c.bulbs
	c.bulbs = make(map[string]common.Bulb)
	c.Unlock()

	for id, bulb := range bulbs {
		if err := bulb.Close(); err != nil {
			common.Log.Errorf("Failed closing bulb '%v': %v\n", id, err)
		}
	}
	return nil
}

func (c *Client) publish(event any) {
	c.RLock()
	subs := make([]*common.Subscription, 0, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		subs = append(subs, sub)
	}
	c.RUnlock()

	for _, sub := range subs {
		if err := sub.Write(event); err != nil {
			common.Log.Warnf("Failed publishing %T to subscription %v: %v\n", event, sub.ID(), err)
		}
	}
}
