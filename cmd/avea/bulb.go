package main

import (
	"fmt"
	"strconv"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdf/goavea/common"
)

var (
	flagColorWhite float64
	flagColorDelay time.Duration

	cmdName = &cobra.Command{
		Use:     `name`,
		Short:   `print the bulb name`,
		PreRun:  setupBulb,
		Run:     name,
		PostRun: closeClient,
	}

	cmdColor = &cobra.Command{
		Use:   `color`,
		Short: `color operations`,
		Run:   usage,
	}

	cmdColorGet = &cobra.Command{
		Use:     `get`,
		Short:   `print the bulb color`,
		PreRun:  setupBulb,
		Run:     colorGet,
		PostRun: closeClient,
	}

	cmdColorSet = &cobra.Command{
		Use:     `set <#rrggbb>`,
		Short:   `fade the bulb to a color`,
		PreRun:  setupBulb,
		Run:     colorSet,
		PostRun: closeClient,
	}

	cmdBrightness = &cobra.Command{
		Use:   `brightness`,
		Short: `brightness operations`,
		Run:   usage,
	}

	cmdBrightnessGet = &cobra.Command{
		Use:     `get`,
		Short:   `print the bulb brightness`,
		PreRun:  setupBulb,
		Run:     brightnessGet,
		PostRun: closeClient,
	}

	cmdBrightnessSet = &cobra.Command{
		Use:     `set <level>`,
		Short:   `set the bulb brightness`,
		PreRun:  setupBulb,
		Run:     brightnessSet,
		PostRun: closeClient,
	}
)

func init() {
	cmdColorSet.Flags().Float64VarP(&flagColorWhite, `white`, `w`, 0, `white channel, from 0 to 1`)
	cmdColorSet.Flags().DurationVarP(&flagColorDelay, `delay`, `d`, common.DefaultSetColorDelay, `fade duration`)

	cmdColor.AddCommand(cmdColorGet)
	cmdColor.AddCommand(cmdColorSet)
	cmdBrightness.AddCommand(cmdBrightnessGet)
	cmdBrightness.AddCommand(cmdBrightnessSet)
}

func name(c *cobra.Command, args []string) {
	ctx, cancel := operationContext()
	defer cancel()

	n, err := bulb.GetName(ctx)
	if err != nil {
		logger.WithField(`error`, err).Fatalln(`Failed reading name`)
	}
	fmt.Println(n)
}

func colorGet(c *cobra.Command, args []string) {
	ctx, cancel := operationContext()
	defer cancel()

	color, err := bulb.GetColor(ctx)
	if err != nil {
		logger.WithField(`error`, err).Fatalln(`Failed reading color`)
	}
	fmt.Printf("%s (%s)\n", color.Hex(), color)
}

func colorSet(c *cobra.Command, args []string) {
	if len(args) != 1 {
		c.Usage()
		fmt.Println()
		logger.Fatalln(`Missing color`)
	}

	rgb, err := colorful.Hex(args[0])
	if err != nil {
		logger.WithFields(logrus.Fields{
			`color`: args[0],
			`error`: err,
		}).Fatalln(`Invalid color`)
	}

	ctx, cancel := operationContext()
	defer cancel()

	color := common.ColorFromColorful(rgb, flagColorWhite)
	if err := bulb.SetColor(ctx, color, flagColorDelay); err != nil {
		logger.WithField(`error`, err).Fatalln(`Failed setting color`)
	}
	logger.Debugf("Set %s to %s\n", bulb.ID(), color)
}

func brightnessGet(c *cobra.Command, args []string) {
	ctx, cancel := operationContext()
	defer cancel()

	brightness, err := bulb.GetBrightness(ctx)
	if err != nil {
		logger.WithField(`error`, err).Fatalln(`Failed reading brightness`)
	}
	fmt.Println(brightness)
}

func brightnessSet(c *cobra.Command, args []string) {
	if len(args) != 1 {
		c.Usage()
		fmt.Println()
		logger.Fatalln(`Missing brightness`)
	}

	level, err := strconv.ParseInt(args[0], 10, 16)
	if err != nil {
		logger.WithFields(logrus.Fields{
			`brightness`: args[0],
			`error`:      err,
		}).Fatalln(`Invalid brightness`)
	}

	ctx, cancel := operationContext()
	defer cancel()

	if err := bulb.SetBrightness(ctx, int16(level)); err != nil {
		logger.WithField(`error`, err).Fatalln(`Failed setting brightness`)
	}
}
