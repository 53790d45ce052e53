// Package bridge exposes a single bulb on an MQTT broker.  Commands arrive as
// JSON on <prefix>/<id>/set, and the bulb's state is published as JSON on
// <prefix>/<id>/state whenever it changes.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/pdf/goavea/common"
	"github.com/pdf/goavea/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultKeepAlive      = 60 * time.Second
)

// ErrEmptyCommand is returned for a command that changes nothing
var ErrEmptyCommand = errors.New(`empty command`)

// Client is the subset of pahomqtt.Client used by the bridge
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Unsubscribe(topics ...string) pahomqtt.Token
}

// Command is the payload accepted on the command topic.  Unset fields leave the
// corresponding bulb setting unchanged.
type Command struct {
	// Brightness in the bulb's native signed range
	Brightness *int16 `json:"brightness,omitempty"`
	// Color as #rrggbb
	Color *string `json:"color,omitempty"`
	// White channel as a fraction from 0 to 1
	White *float64 `json:"white,omitempty"`
	// DelayMS is the color fade duration in milliseconds
	DelayMS *int `json:"delay_ms,omitempty"`
}

// State is the payload published on the state topic
type State struct {
	ID         string `json:"id"`
	Connection string `json:"connection"`
	Name       string `json:"name,omitempty"`
	Brightness int16  `json:"brightness"`
	Color      string `json:"color"`
	White      uint16 `json:"white"`
}

// NewClientOptions builds paho options from cfg
func NewClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != `` {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		common.Log.Infof("Connected to MQTT broker %s\n", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		common.Log.Warnf("Lost connection to MQTT broker %s: %v\n", cfg.Broker, err)
	})
	return opts
}

// Bridge relays commands and state between one bulb and an MQTT broker
type Bridge struct {
	bulb         common.Bulb
	client       Client
	prefix       string
	qos          byte
	retain       bool
	timeout      time.Duration
	subscription *common.Subscription
	wg           sync.WaitGroup
	sync.Mutex
}

// New returns a Bridge for bulb over client, which must already be connected.
// Each command is bounded by timeout.
func New(bulb common.Bulb, client Client, cfg config.MQTTConfig, timeout time.Duration) *Bridge {
	return &Bridge{
		bulb:    bulb,
		client:  client,
		prefix:  strings.TrimSuffix(cfg.TopicPrefix, `/`),
		qos:     byte(cfg.QoS),
		retain:  cfg.Retain,
		timeout: timeout,
	}
}

// CommandTopic returns the topic commands are read from
func (b *Bridge) CommandTopic() string {
	return fmt.Sprintf("%s/%s/set", b.prefix, b.bulb.ID())
}

// StateTopic returns the topic state is published to
func (b *Bridge) StateTopic() string {
	return fmt.Sprintf("%s/%s/state", b.prefix, b.bulb.ID())
}

// Start subscribes to the command topic and begins publishing state changes
func (b *Bridge) Start() error {
	b.Lock()
	defer b.Unlock()
	if b.subscription != nil {
		return common.ErrDuplicate
	}

	sub, err := b.bulb.NewSubscription()
	if err != nil {
		return err
	}

	token := b.client.Subscribe(b.CommandTopic(), b.qos, b.onMessage)
	if !token.WaitTimeout(defaultConnectTimeout) {
		_ = sub.Close()
		return common.ErrTimeout
	}
	if err := token.Error(); err != nil {
		_ = sub.Close()
		return err
	}

	b.subscription = sub
	b.wg.Add(1)
	go b.forward(sub)
	common.Log.Infof("Bridging %s on %s\n", b.bulb.ID(), b.CommandTopic())

	return b.PublishState()
}

// Stop unsubscribes from the command topic and stops publishing state
func (b *Bridge) Stop() error {
	b.Lock()
	sub := b.subscription
	b.subscription = nil
	b.Unlock()
	if sub == nil {
		return common.ErrClosed
	}

	token := b.client.Unsubscribe(b.CommandTopic())
	token.WaitTimeout(defaultConnectTimeout)
	err := sub.Close()
	b.wg.Wait()
	if err != nil {
		return err
	}
	return token.Error()
}

// HandleCommand applies a JSON encoded Command to the bulb
func (b *Bridge) HandleCommand(ctx context.Context, payload []byte) error {
	cmd := Command{}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding command: %w", err)
	}
	if cmd.Brightness == nil && cmd.Color == nil && cmd.White == nil {
		return ErrEmptyCommand
	}

	if cmd.Color != nil || cmd.White != nil {
		color, err := b.commandColor(cmd)
		if err != nil {
			return err
		}
		var delay time.Duration
		if cmd.DelayMS != nil {
			delay = time.Duration(*cmd.DelayMS) * time.Millisecond
		}
		if err := b.bulb.SetColor(ctx, color, delay); err != nil {
			return err
		}
	}

	if cmd.Brightness != nil {
		if err := b.bulb.SetBrightness(ctx, *cmd.Brightness); err != nil {
			return err
		}
	}

	return nil
}

// commandColor merges the command's color fields over the cached color
func (b *Bridge) commandColor(cmd Command) (common.Color, error) {
	color := b.bulb.CachedColor()
	if cmd.Color != nil {
		rgb, err := colorful.Hex(*cmd.Color)
		if err != nil {
			return common.Color{}, fmt.Errorf("decoding color %q: %w", *cmd.Color, err)
		}
		white := color.White
		color = common.ColorFromColorful(rgb, 0)
		color.White = white
	}
	if cmd.White != nil {
		color.White = common.ColorFromColorful(colorful.Color{}, *cmd.White).White
	}
	return color, nil
}

// PublishState publishes the bulb's cached state
func (b *Bridge) PublishState() error {
	color := b.bulb.CachedColor()
	state := State{
		ID:         b.bulb.ID(),
		Connection: b.bulb.State().String(),
		Name:       b.bulb.CachedName(),
		Brightness: b.bulb.CachedBrightness(),
		Color:      color.Hex(),
		White:      color.White,
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}

	token := b.client.Publish(b.StateTopic(), b.qos, b.retain, payload)
	if !token.WaitTimeout(b.timeout) {
		return common.ErrTimeout
	}
	return token.Error()
}

func (b *Bridge) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	common.Log.Debugf("Command for %s: %s\n", b.bulb.ID(), msg.Payload())
	if err := b.HandleCommand(ctx, msg.Payload()); err != nil {
		common.Log.Warnf("Failed applying command to %s: %v\n", b.bulb.ID(), err)
	}
}

func (b *Bridge) forward(sub *common.Subscription) {
	defer b.wg.Done()
	for event := range sub.Events() {
		switch event.(type) {
		case common.EventUpdateName, common.EventUpdateColor, common.EventUpdateBrightness, common.EventUpdateState:
			if err := b.PublishState(); err != nil {
				common.Log.Warnf("Failed publishing state for %s: %v\n", b.bulb.ID(), err)
			}
		}
	}
}
