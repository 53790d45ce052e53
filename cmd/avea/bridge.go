package main

import (
	"os"
	"os/signal"
	"syscall"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdf/goavea/bridge"
)

// quiesce is how long, in milliseconds, paho may spend flushing on disconnect
const quiesce = 250

var cmdBridge = &cobra.Command{
	Use:     `bridge`,
	Short:   `relay commands and state between the bulb and an MQTT broker`,
	PreRun:  setupBulb,
	Run:     runBridge,
	PostRun: closeClient,
}

func runBridge(c *cobra.Command, args []string) {
	if err := cfg.ValidateMQTT(); err != nil {
		logger.WithField(`error`, err).Fatalln(`Invalid configuration`)
	}

	mqtt := pahomqtt.NewClient(bridge.NewClientOptions(cfg.MQTT))
	token := mqtt.Connect()
	if !token.WaitTimeout(cfg.Bulb.ConnectTimeout) || token.Error() != nil {
		logger.WithFields(logrus.Fields{
			`broker`: cfg.MQTT.Broker,
			`error`:  token.Error(),
		}).Fatalln(`Failed connecting to broker`)
	}
	defer mqtt.Disconnect(quiesce)

	b := bridge.New(bulb, mqtt, cfg.MQTT, cfg.Bulb.Timeout)
	if err := b.Start(); err != nil {
		logger.WithField(`error`, err).Fatalln(`Failed starting bridge`)
	}

	ctx, cancel := operationContext()
	if err := bulb.Connect(ctx); err != nil {
		logger.WithField(`error`, err).Warnln(`Bulb not reachable yet, will connect on the first command`)
	}
	cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals

	if err := b.Stop(); err != nil {
		logger.WithField(`error`, err).Errorln(`Failed stopping bridge`)
	}
}
