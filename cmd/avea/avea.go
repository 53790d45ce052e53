// Command avea performs basic operations on an Elgato Avea bulb over Bluetooth
// Low Energy
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/pdf/goavea"
	"github.com/pdf/goavea/common"
	"github.com/pdf/goavea/config"
	"github.com/pdf/goavea/transport/goble"
)

var (
	client *goavea.Client
	bulb   common.Bulb
	cfg    *config.Config

	flagConfig          string
	flagAddress         string
	flagTimeout         time.Duration
	flagConnectTimeout  time.Duration
	flagResponseTimeout time.Duration
	flagLogLevel        string

	logger = logrus.New()
	app    = &cobra.Command{
		Use:     `avea`,
		Version: goavea.VERSION,
		PersistentPreRun: func(c *cobra.Command, args []string) {
			loadConfig(c)
			setLogger()
		},
	}

	cmdGenerateBashComp = &cobra.Command{
		Use:   `bashcomp <filename>`,
		Short: "generate bash completion at <file>",
		Run:   generateBashComp,
	}

	cmdGenerateDocs = &cobra.Command{
		Use:   `docs <path>`,
		Short: "generate markdown documentation at <path>",
		Run:   generateDocs,
	}
)

func init() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	goavea.SetLogger(logger)

	app.PersistentFlags().StringVarP(&flagConfig, `config`, `c`, ``, `path to a YAML configuration file`)
	app.PersistentFlags().StringVarP(&flagAddress, `address`, `a`, ``, `BLE address of the bulb`)
	app.PersistentFlags().DurationVarP(&flagTimeout, `timeout`, `t`, common.DefaultConnectTimeout+common.DefaultTimeout, `timeout for each operation`)
	app.PersistentFlags().DurationVar(&flagConnectTimeout, `connect-timeout`, common.DefaultConnectTimeout, `timeout for connecting to the bulb`)
	app.PersistentFlags().DurationVar(&flagResponseTimeout, `response-timeout`, common.DefaultResponseTimeout, `timeout for each response, 0 waits forever`)
	app.PersistentFlags().StringVarP(&flagLogLevel, `log-level`, `L`, `info`, `log level, one of: [debug,info,warn,error]`)

	app.AddCommand(cmdName)
	app.AddCommand(cmdColor)
	app.AddCommand(cmdBrightness)
	app.AddCommand(cmdBridge)
	app.AddCommand(cmdGenerateBashComp)
	app.AddCommand(cmdGenerateDocs)
}

func main() {
	if err := app.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file, and applies any flags set on the
// command line over it
func loadConfig(c *cobra.Command) {
	var err error

	cfg, err = config.Load(flagConfig)
	if err != nil {
		logger.WithFields(logrus.Fields{
			`filename`: flagConfig,
			`error`:    err,
		}).Fatalln(`Could not load configuration`)
	}

	flags := c.Flags()
	if flags.Changed(`address`) {
		cfg.Bulb.Address = flagAddress
	}
	if flags.Changed(`timeout`) {
		cfg.Bulb.Timeout = flagTimeout
	}
	if flags.Changed(`connect-timeout`) {
		cfg.Bulb.ConnectTimeout = flagConnectTimeout
	}
	if flags.Changed(`response-timeout`) {
		cfg.Bulb.ResponseTimeout = flagResponseTimeout
	}
	if flags.Changed(`log-level`) {
		cfg.Logging.Level = flagLogLevel
	}
}

func setupBulb(c *cobra.Command, args []string) {
	var err error

	if err = cfg.Validate(); err != nil {
		logger.WithField(`error`, err).Fatalln(`Invalid configuration`)
	}
	if err = setupDevice(); err != nil {
		logger.WithField(`error`, err).Fatalln(`Failed initializing Bluetooth device`)
	}

	client = goavea.NewClient()
	client.SetTimeout(cfg.Bulb.Timeout)
	client.SetConnectTimeout(cfg.Bulb.ConnectTimeout)
	client.SetResponseTimeout(cfg.Bulb.ResponseTimeout)

	bulb, err = client.AddPeripheral(goble.NewPeripheral(cfg.Bulb.Address))
	if err != nil {
		logger.WithFields(logrus.Fields{
			`address`: cfg.Bulb.Address,
			`error`:   err,
		}).Fatalln(`Failed initializing bulb`)
	}
}

func closeClient(c *cobra.Command, args []string) {
	err := client.Close()
	if err != nil {
		logger.WithField(`error`, err).Fatalln(`Failed closing client`)
	}
}

// operationContext bounds a single bulb operation by the configured timeout
func operationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), client.GetTimeout())
}

func generateBashComp(c *cobra.Command, args []string) {
	if len(args) != 1 {
		c.Usage()
		fmt.Println()
		logger.Fatalln(`Missing filename`)
	}

	buf := new(bytes.Buffer)
	f, err := os.Create(args[0])
	if err != nil {
		logger.WithFields(logrus.Fields{
			`filename`: args[0],
			`error`:    err,
		}).Fatalln(`Could not open file`)
	}
	defer f.Close()
	app.GenBashCompletion(buf)
	buf.WriteTo(f)
}

func generateDocs(c *cobra.Command, args []string) {
	if len(args) != 1 {
		c.Usage()
		fmt.Println()
		logger.Fatalln(`Missing output path`)
	}

	path := args[0]
	if path[len(path)-1] != os.PathSeparator {
		path += string(os.PathSeparator)
	}
	if err := doc.GenMarkdownTree(app, path); err != nil {
		logger.WithFields(logrus.Fields{
			`path`:  path,
			`error`: err,
		}).Fatalln(`Could not generate documentation`)
	}
}

func usage(c *cobra.Command, args []string) {
	c.Usage()
}

func setLogger() {
	switch cfg.Logging.Level {
	case `debug`:
		logger.Level = logrus.DebugLevel
	case `info`:
		logger.Level = logrus.InfoLevel
	case `warn`:
		logger.Level = logrus.WarnLevel
	case `error`:
		logger.Level = logrus.ErrorLevel
	default:
		logger.Level = logrus.InfoLevel
	}
}
