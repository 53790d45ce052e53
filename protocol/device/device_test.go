package device_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/pdf/goavea/common"
	"github.com/pdf/goavea/mocks"
	"github.com/pdf/goavea/protocol/device"
)

// slowConnectPeripheral reports the link up before its Connect returns
type slowConnectPeripheral struct {
	*mocks.FakePeripheral
	delay time.Duration
}

func (p *slowConnectPeripheral) Connect(ctx context.Context) error {
	if err := p.FakePeripheral.Connect(ctx); err != nil {
		return err
	}
	time.Sleep(p.delay)
	return nil
}

var _ = Describe("Bulb", func() {
	var (
		fake    *mocks.FakePeripheral
		bulb    *device.Bulb
		ctx     context.Context
		cancel  context.CancelFunc
		timeout = time.Second
		color   = common.Color{White: 100, Red: 4095, Green: 200, Blue: 0}
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
		fake = mocks.NewFakePeripheral(`bulb-1`, `Living Room`)
		bulb = device.New(fake)
	})

	AfterEach(func() {
		_ = bulb.Close()
		cancel()
	})

	It("should report the peripheral identity", func() {
		Expect(bulb.ID()).To(Equal(`bulb-1`))
		Expect(bulb.State()).To(Equal(common.Disconnected))
	})

	It("should read the name without its terminator", func() {
		name, err := bulb.GetName(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal(`Living Room`))
		Expect(bulb.CachedName()).To(Equal(`Living Room`))
		Expect(fake.Writes()).To(Equal([][]byte{{0x58}}))
	})

	It("should connect lazily on the first operation", func() {
		_, err := bulb.GetBrightness(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(bulb.State()).To(Equal(common.Connected))
		Expect(fake.ConnectCalls()).To(Equal(1))

		_, err = bulb.GetName(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.ConnectCalls()).To(Equal(1))
	})

	It("should read back a brightness it has set", func() {
		Expect(bulb.SetBrightness(ctx, 500)).To(Succeed())
		Expect(fake.Writes()[0]).To(Equal([]byte{0x57, 0xf4, 0x01}))

		brightness, err := bulb.GetBrightness(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(brightness).To(Equal(int16(500)))
		Expect(bulb.CachedBrightness()).To(Equal(int16(500)))
	})

	It("should encode the fade delay when setting a color", func() {
		Expect(bulb.SetColor(ctx, color, 250*time.Millisecond)).To(Succeed())
		Expect(fake.Writes()[0][:5]).To(Equal([]byte{0x35, 0xfa, 0x00, 10, 0}))
		Expect(fake.Writes()[0]).To(HaveLen(13))
	})

	It("should default the fade delay to 100ms", func() {
		Expect(bulb.SetColor(ctx, color, 0)).To(Succeed())
		Expect(fake.Writes()[0][:3]).To(Equal([]byte{0x35, 0x64, 0x00}))
	})

	It("should read back a color it has set", func() {
		Expect(bulb.SetColor(ctx, color, 0)).To(Succeed())
		Expect(bulb.CachedColor()).To(Equal(color))

		got, err := bulb.GetColor(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(color))
	})

	It("should reconnect and rediscover the channel after a disconnect", func() {
		_, err := bulb.GetName(ctx)
		Expect(err).NotTo(HaveOccurred())

		fake.Disconnect()
		Expect(bulb.State()).To(Equal(common.Disconnected))

		_, err = bulb.GetName(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.ConnectCalls()).To(Equal(2))
		Expect(bulb.State()).To(Equal(common.Connected))
	})

	It("should fail the in-flight command when the bulb disconnects", func() {
		fake.Silent[0x35] = true
		errs := make(chan error, 1)
		go func() {
			_, err := bulb.GetColor(ctx)
			errs <- err
		}()
		Eventually(fake.Writes, timeout).Should(HaveLen(1))
		fake.Disconnect()
		Eventually(errs, timeout).Should(Receive(MatchError(common.ErrDisconnected)))
	})

	It("should fail every queued command with ErrConnectTimeout", func() {
		_ = bulb.Close()
		fake.ConnectBlock = true
		bulb = device.New(fake, device.WithConnectTimeout(100*time.Millisecond))

		errs := make(chan error, 3)
		go func() {
			_, err := bulb.GetName(ctx)
			errs <- err
		}()
		go func() {
			_, err := bulb.GetColor(ctx)
			errs <- err
		}()
		go func() {
			errs <- bulb.SetBrightness(ctx, 10)
		}()

		for i := 0; i < 3; i++ {
			Eventually(errs, timeout).Should(Receive(MatchError(common.ErrConnectTimeout)))
		}
		Expect(bulb.State()).To(Equal(common.Disconnected))
		Expect(fake.Writes()).To(BeEmpty())
	})

	It("should forward transport connect errors unchanged", func() {
		connectErr := errors.New(`adapter powered off`)
		fake.ConnectErr = connectErr
		Expect(bulb.Connect(ctx)).To(Equal(connectErr))
		_, err := bulb.GetName(ctx)
		Expect(err).To(Equal(connectErr))
	})

	It("should return a response timeout when configured", func() {
		_ = bulb.Close()
		fake.Silent[0x58] = true
		bulb = device.New(fake, device.WithResponseTimeout(50*time.Millisecond))

		_, err := bulb.GetName(ctx)
		Expect(err).To(MatchError(common.ErrResponseTimeout))
		_, err = bulb.GetBrightness(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should publish updates to subscribers", func() {
		sub, err := bulb.NewSubscription()
		Expect(err).NotTo(HaveOccurred())
		defer sub.Close()

		Expect(bulb.SetBrightness(ctx, 42)).To(Succeed())
		Eventually(sub.Events(), timeout).Should(Receive(Equal(common.EventUpdateState{State: common.Connecting})))
		Eventually(sub.Events(), timeout).Should(Receive(Equal(common.EventUpdateState{State: common.Connected})))
		Eventually(sub.Events(), timeout).Should(Receive(Equal(common.EventUpdateBrightness{Brightness: 42})))
	})

	It("should fail operations once closed", func() {
		Expect(bulb.Close()).To(Succeed())
		Expect(bulb.Close()).To(MatchError(common.ErrClosed))
		_, err := bulb.GetName(ctx)
		Expect(err).To(MatchError(common.ErrClosed))
		Expect(bulb.Connect(ctx)).To(MatchError(common.ErrClosed))
	})

	It("should drop the link on close", func() {
		_, err := bulb.GetName(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Connected()).To(BeTrue())

		Expect(bulb.Close()).To(Succeed())
		Expect(fake.Connected()).To(BeFalse())
		Expect(bulb.State()).To(Equal(common.Disconnected))
	})

	It("should keep commands sent while the transport finishes connecting", func() {
		_ = bulb.Close()
		fake = mocks.NewFakePeripheral(`bulb-1`, `Living Room`)
		fake.Silent[0x58] = true
		bulb = device.New(&slowConnectPeripheral{FakePeripheral: fake, delay: 100 * time.Millisecond})

		go func() {
			_ = bulb.Connect(ctx)
		}()
		Eventually(bulb.State, timeout).Should(Equal(common.Connected))

		go func() {
			time.Sleep(150 * time.Millisecond)
			fake.Notify(append([]byte{0x58}, "Living Room\x00"...))
		}()
		name, err := bulb.GetName(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal(`Living Room`))
		Expect(fake.ConnectCalls()).To(Equal(1))
	})

	Describe("with a mock peripheral", func() {
		var (
			peripheral *mocks.Peripheral
			channel    *mocks.Channel
			handler    *atomic.Value
		)

		BeforeEach(func() {
			handler = new(atomic.Value)
			peripheral = new(mocks.Peripheral)
			channel = new(mocks.Channel)
			peripheral.On(`ID`).Return(`mock-bulb`)
			peripheral.On(`SetStateHandler`, mock.Anything).Return()
			peripheral.On(`DiscoverChannel`, mock.Anything, common.ServiceID, common.CharacteristicID).Return(channel, nil)
			channel.On(`EnableNotifications`, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
				handler.Store(args.Get(1).(common.NotificationHandler))
			}).Return(nil)
		})

		It("should not connect again while connected", func() {
			peripheral.On(`Connect`, mock.Anything).Return(nil).Once()
			b := device.New(peripheral)
			defer b.Close()

			Expect(b.Connect(ctx)).To(Succeed())
			Expect(b.Connect(ctx)).To(Succeed())
			Expect(b.Connect(ctx)).To(Succeed())
			peripheral.AssertNumberOfCalls(GinkgoT(), `Connect`, 1)
		})

		It("should share one transport connect between concurrent callers", func() {
			release := make(chan struct{})
			peripheral.On(`Connect`, mock.Anything).Return(func(ctx context.Context) error {
				<-release
				return nil
			})
			b := device.New(peripheral)
			defer b.Close()

			var wg sync.WaitGroup
			errs := make(chan error, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- b.Connect(ctx)
				}()
			}
			time.Sleep(50 * time.Millisecond)
			close(release)
			wg.Wait()
			close(errs)
			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
			peripheral.AssertNumberOfCalls(GinkgoT(), `Connect`, 1)
		})

		It("should only abandon its own wait when the caller's context ends", func() {
			release := make(chan struct{})
			peripheral.On(`Connect`, mock.Anything).Return(func(ctx context.Context) error {
				<-release
				return nil
			})
			b := device.New(peripheral)
			defer b.Close()

			short, shortCancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer shortCancel()
			errs := make(chan error, 1)
			go func() {
				errs <- b.Connect(ctx)
			}()
			Expect(b.Connect(short)).To(MatchError(context.DeadlineExceeded))

			close(release)
			Eventually(errs, timeout).Should(Receive(BeNil()))
			Expect(b.State()).To(Equal(common.Connected))
			peripheral.AssertNumberOfCalls(GinkgoT(), `Connect`, 1)
		})

		It("should reject a short brightness response", func() {
			peripheral.On(`Connect`, mock.Anything).Return(nil)
			channel.On(`Write`, mock.Anything, []byte{0x57}).Run(func(args mock.Arguments) {
				notify := handler.Load().(common.NotificationHandler)
				go notify([]byte{0x57, 0x01})
			}).Return(nil)
			b := device.New(peripheral)
			defer b.Close()

			_, err := b.GetBrightness(ctx)
			Expect(err).To(MatchError(common.ErrProtocolMismatch))
		})

		It("should return the transport write error", func() {
			writeErr := errors.New(`att error`)
			peripheral.On(`Connect`, mock.Anything).Return(nil)
			channel.On(`Write`, mock.Anything, mock.Anything).Return(writeErr)
			b := device.New(peripheral)
			defer b.Close()

			Expect(b.SetBrightness(ctx, 1)).To(Equal(writeErr))
			Expect(b.CachedBrightness()).To(Equal(int16(0)))
		})
	})
})
