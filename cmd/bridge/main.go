package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/brutella/hc/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	toofar "github.com/cloudkucooland/toofar-tailwind"
	"github.com/cloudkucooland/toofar-tailwind/config"
	"github.com/cloudkucooland/toofar-tailwind/platform"
)

func main() {
	var dir, file string
	var debug bool

	app := cli.App{
		Name:  "toofar-tailwind",
		Usage: "HomeKit, HTTP and MQTT bridge for Tailwind garage controllers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Value:       "config",
				Usage:       "configuration directory",
				Destination: &dir,
			},
			&cli.StringFlag{
				Name:        "config",
				Value:       "server.json",
				Usage:       "configuration file",
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "log at debug level, overrides log_level",
				Destination: &debug,
			},
		},
		Action: func(c *cli.Context) error {
			fulldir, err := filepath.Abs(dir)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			conf, err := config.Load(fulldir, file)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if debug {
				conf.LogLevel = "debug"
			}
			config.Set(conf)

			logger := setupLogging(conf)
			defer logger.Close()

			// spin up platforms to listen to devices
			toofar.BootstrapPlatforms(conf)

			// load accessory configs
			accs, err := toofar.LoadAccessories(filepath.Join(fulldir, "accessories"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			for _, a := range accs {
				if err := toofar.AddAccessory(a); err != nil {
					log.Info.Printf("[%s]: %s", a.Name, err.Error())
				}
			}

			// HC can only be started once all accessories are known
			if err := toofar.StartHC(conf); err != nil {
				platform.ShutdownAllPlatforms()
				return cli.Exit(err.Error(), 1)
			}

			// run all the background processes
			platform.Background()

			// wait for signal to shut down
			sigch := make(chan os.Signal, 3)
			signal.Notify(sigch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)

			// loop until signal sent
			sig := <-sigch

			log.Info.Printf("shutdown requested by signal: %s", sig)
			platform.ShutdownAllPlatforms()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

type logSink struct {
	info, debug interface{ Close() error }
}

func (l logSink) Close() {
	l.info.Close()
	if l.debug != nil {
		l.debug.Close()
	}
}

// setupLogging points hc's Info and Debug loggers at logrus
func setupLogging(c *config.Config) logSink {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Warnf("log_level %q: %s, using info", c.LogLevel, err.Error())
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var sink logSink
	info := logger.WriterLevel(logrus.InfoLevel)
	log.Info.SetOutput(info)
	sink.info = info

	if level >= logrus.DebugLevel {
		debug := logger.WriterLevel(logrus.DebugLevel)
		log.Debug.Enable()
		log.Debug.SetOutput(debug)
		sink.debug = debug
	}
	return sink
}
