package goble

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-ble/ble"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pdf/goavea/common"
)

type fakeClient struct {
	services     []*ble.Service
	chars        []*ble.Characteristic
	discoverErr  error
	descriptors  int
	written      [][]byte
	noRsp        bool
	subscribed   ble.NotificationHandler
	cancelled    int
	disconnected chan struct{}
	sync.Mutex
}

func newFakeClient() *fakeClient {
	svc := &ble.Service{UUID: ble.MustParse(common.ServiceID)}
	char := &ble.Characteristic{UUID: ble.MustParse(common.CharacteristicID)}
	svc.Characteristics = []*ble.Characteristic{char}
	return &fakeClient{
		services:     []*ble.Service{svc},
		chars:        []*ble.Characteristic{char},
		disconnected: make(chan struct{}),
	}
}

func (c *fakeClient) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	return c.services, c.discoverErr
}

func (c *fakeClient) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	return c.chars, nil
}

func (c *fakeClient) DiscoverDescriptors(filter []ble.UUID, char *ble.Characteristic) ([]*ble.Descriptor, error) {
	c.Lock()
	c.descriptors++
	c.Unlock()
	return nil, nil
}

func (c *fakeClient) Subscribe(char *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	c.Lock()
	c.subscribed = h
	c.Unlock()
	return nil
}

func (c *fakeClient) WriteCharacteristic(char *ble.Characteristic, value []byte, noRsp bool) error {
	c.Lock()
	c.written = append(c.written, value)
	c.noRsp = noRsp
	c.Unlock()
	return nil
}

func (c *fakeClient) CancelConnection() error {
	c.Lock()
	c.cancelled++
	c.Unlock()
	close(c.disconnected)
	return nil
}

func (c *fakeClient) Disconnected() <-chan struct{} {
	return c.disconnected
}

var _ = Describe("Goble", func() {
	var (
		peripheral *Peripheral
		client     *fakeClient
		events     chan bool
		dialErr    error
		ctx        context.Context
		cancel     context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), time.Second)
		client = newFakeClient()
		dialErr = nil
		events = make(chan bool, 4)
		peripheral = NewPeripheral(`7c:2f:80:aa:bb:cc`)
		peripheral.dial = func(ctx context.Context, addr ble.Addr) (gattClient, error) {
			if dialErr != nil {
				return nil, dialErr
			}
			return client, nil
		}
		peripheral.SetStateHandler(func(connected bool) {
			events <- connected
		})
	})

	AfterEach(func() {
		cancel()
	})

	It("should use the address as ID", func() {
		Expect(peripheral.ID()).To(Equal(`7c:2f:80:aa:bb:cc`))
	})

	It("should report connection events", func() {
		Expect(peripheral.Connect(ctx)).To(Succeed())
		Eventually(events).Should(Receive(BeTrue()))
		Expect(peripheral.Disconnect()).To(Succeed())
		Eventually(events).Should(Receive(BeFalse()))
	})

	It("should forward dial errors", func() {
		dialErr = errors.New(`no adapter`)
		Expect(peripheral.Connect(ctx)).To(MatchError(dialErr))
		Consistently(events).ShouldNot(Receive())
	})

	It("should refuse discovery while disconnected", func() {
		_, err := peripheral.DiscoverChannel(ctx, common.ServiceID, common.CharacteristicID)
		Expect(err).To(MatchError(common.ErrDisconnected))
	})

	Context("when connected", func() {
		BeforeEach(func() {
			Expect(peripheral.Connect(ctx)).To(Succeed())
		})

		It("should discover the channel and its descriptors", func() {
			ch, err := peripheral.DiscoverChannel(ctx, common.ServiceID, common.CharacteristicID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ch).NotTo(BeNil())
			Expect(client.descriptors).To(Equal(1))
		})

		It("should write without response", func() {
			ch, err := peripheral.DiscoverChannel(ctx, common.ServiceID, common.CharacteristicID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ch.Write(ctx, []byte{0x58})).To(Succeed())
			Expect(client.written).To(Equal([][]byte{{0x58}}))
			Expect(client.noRsp).To(BeTrue())
		})

		It("should deliver notifications", func() {
			ch, err := peripheral.DiscoverChannel(ctx, common.ServiceID, common.CharacteristicID)
			Expect(err).NotTo(HaveOccurred())
			received := make(chan []byte, 1)
			Expect(ch.EnableNotifications(ctx, func(data []byte) {
				received <- data
			})).To(Succeed())
			client.subscribed([]byte{0x57, 0x01, 0x00})
			Eventually(received).Should(Receive(Equal([]byte{0x57, 0x01, 0x00})))
		})

		It("should report a missing service", func() {
			client.services = nil
			_, err := peripheral.DiscoverChannel(ctx, common.ServiceID, common.CharacteristicID)
			Expect(errors.Is(err, ErrServiceNotFound)).To(BeTrue())
		})

		It("should report a missing characteristic", func() {
			client.chars = nil
			_, err := peripheral.DiscoverChannel(ctx, common.ServiceID, common.CharacteristicID)
			Expect(errors.Is(err, ErrCharacteristicNotFound)).To(BeTrue())
		})

		It("should forward discovery errors", func() {
			client.discoverErr = errors.New(`att error`)
			_, err := peripheral.DiscoverChannel(ctx, common.ServiceID, common.CharacteristicID)
			Expect(err).To(MatchError(client.discoverErr))
		})

		It("should give up when the context ends", func() {
			cancel()
			_, err := peripheral.DiscoverChannel(ctx, common.ServiceID, common.CharacteristicID)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
