package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pdf/goavea/bridge"
	"github.com/pdf/goavea/common"
	"github.com/pdf/goavea/config"
	"github.com/pdf/goavea/mocks"
	"github.com/pdf/goavea/protocol/device"
)

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                       { return true }
func (t *doneToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *doneToken) Error() error                     { return t.err }
func (t *doneToken) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

type message struct {
	topic   string
	payload []byte
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 1 }
func (m *message) Retained() bool    { return false }
func (m *message) Topic() string     { return m.topic }
func (m *message) MessageID() uint16 { return 1 }
func (m *message) Payload() []byte   { return m.payload }
func (m *message) Ack()              {}

type fakeClient struct {
	published    map[string][][]byte
	handlers     map[string]pahomqtt.MessageHandler
	unsubscribed []string
	subscribeErr error
	sync.Mutex
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		published: make(map[string][][]byte),
		handlers:  make(map[string]pahomqtt.MessageHandler),
	}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	c.Lock()
	defer c.Unlock()
	c.published[topic] = append(c.published[topic], payload.([]byte))
	return &doneToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	c.Lock()
	defer c.Unlock()
	if c.subscribeErr != nil {
		return &doneToken{err: c.subscribeErr}
	}
	c.handlers[topic] = callback
	return &doneToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) pahomqtt.Token {
	c.Lock()
	defer c.Unlock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	return &doneToken{}
}

func (c *fakeClient) deliver(topic string, payload string) {
	c.Lock()
	handler := c.handlers[topic]
	c.Unlock()
	Expect(handler).NotTo(BeNil())
	handler(nil, &message{topic: topic, payload: []byte(payload)})
}

func (c *fakeClient) lastState(topic string) bridge.State {
	c.Lock()
	defer c.Unlock()
	state := bridge.State{}
	payloads := c.published[topic]
	if len(payloads) > 0 {
		Expect(json.Unmarshal(payloads[len(payloads)-1], &state)).To(Succeed())
	}
	return state
}

var _ = Describe("Bridge", func() {
	var (
		fake       *mocks.FakePeripheral
		bulb       *device.Bulb
		client     *fakeClient
		b          *bridge.Bridge
		ctx        context.Context
		cancel     context.CancelFunc
		bulbID     = `7c:2f:80:aa:bb:cc`
		setTopic   = `avea/7c:2f:80:aa:bb:cc/set`
		stateTopic = `avea/7c:2f:80:aa:bb:cc/state`
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), time.Second)
		fake = mocks.NewFakePeripheral(bulbID, `Kitchen`)
		bulb = device.New(fake)
		client = newFakeClient()
		b = bridge.New(bulb, client, config.Default().MQTT, time.Second)
	})

	AfterEach(func() {
		cancel()
		_ = bulb.Close()
	})

	It("should derive topics from the prefix and bulb ID", func() {
		Expect(b.CommandTopic()).To(Equal(setTopic))
		Expect(b.StateTopic()).To(Equal(stateTopic))
	})

	Context("when started", func() {
		BeforeEach(func() {
			Expect(b.Start()).To(Succeed())
		})

		AfterEach(func() {
			_ = b.Stop()
		})

		It("should publish the initial state", func() {
			state := client.lastState(stateTopic)
			Expect(state.ID).To(Equal(bulbID))
			Expect(state.Connection).To(Equal(`disconnected`))
		})

		It("should refuse to start twice", func() {
			Expect(b.Start()).To(MatchError(common.ErrDuplicate))
		})

		It("should apply brightness commands and publish the result", func() {
			client.deliver(setTopic, `{"brightness":500}`)
			Expect(bulb.CachedBrightness()).To(Equal(int16(500)))
			Eventually(func() int16 {
				return client.lastState(stateTopic).Brightness
			}).Should(Equal(int16(500)))
			Expect(client.lastState(stateTopic).Connection).To(Equal(`connected`))
		})

		It("should apply color commands", func() {
			client.deliver(setTopic, `{"color":"#ff0000","white":0.5,"delay_ms":250}`)
			writes := fake.Writes()
			Expect(writes).NotTo(BeEmpty())
			last := writes[len(writes)-1]
			Expect(last[:5]).To(Equal([]byte{0x35, 0xfa, 0x00, 0x0a, 0x00}))
			Expect(bulb.CachedColor()).To(Equal(common.Color{White: 2048, Red: common.MaxChannel}))
			Eventually(func() string {
				return client.lastState(stateTopic).Color
			}).Should(Equal(`#ff0000`))
		})

		It("should unsubscribe on stop", func() {
			Expect(b.Stop()).To(Succeed())
			Expect(client.unsubscribed).To(ConsistOf(setTopic))
			Expect(b.Stop()).To(MatchError(common.ErrClosed))
		})
	})

	It("should keep the cached white channel when only the color changes", func() {
		Expect(bulb.SetColor(ctx, common.Color{White: 100}, 0)).To(Succeed())
		Expect(b.HandleCommand(ctx, []byte(`{"color":"#0000ff"}`))).To(Succeed())
		Expect(bulb.CachedColor()).To(Equal(common.Color{White: 100, Blue: common.MaxChannel}))
	})

	It("should reject malformed commands", func() {
		Expect(b.HandleCommand(ctx, []byte(`{`))).To(HaveOccurred())
		Expect(b.HandleCommand(ctx, []byte(`{}`))).To(MatchError(bridge.ErrEmptyCommand))
		Expect(b.HandleCommand(ctx, []byte(`{"color":"red"}`))).To(HaveOccurred())
		Expect(fake.Writes()).To(BeEmpty())
	})

	It("should return bulb errors", func() {
		fake.ConnectErr = errors.New(`adapter down`)
		Expect(b.HandleCommand(ctx, []byte(`{"brightness":1}`))).To(MatchError(fake.ConnectErr))
	})

	It("should fail to start when the subscribe fails", func() {
		client.subscribeErr = errors.New(`not authorized`)
		Expect(b.Start()).To(MatchError(client.subscribeErr))
		Expect(b.Stop()).To(MatchError(common.ErrClosed))
	})
})
