package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/dinacontroller/bridge/domain/control"
	"github.com/dinacontroller/bridge/pkg/api"
	"github.com/dinacontroller/bridge/pkg/config"
	customlog "github.com/dinacontroller/bridge/pkg/log"
	"github.com/dinacontroller/bridge/pkg/seriallink"
	"github.com/dinacontroller/bridge/pkg/telemetry"
	"github.com/dinacontroller/bridge/pkg/zeromq"
	"github.com/dinacontroller/bridge/services"
)

const shutdownTimeout = 5 * time.Second

func main() {
	app := cli.NewApp()
	app.Name = "bridge"
	app.Usage = "drive a differential-drive vehicle over a serial link"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config-dir",
			Usage:  "directory containing " + config.BootstrapFileName,
			Value:  "./config",
			EnvVar: "BRIDGE_CONFIG_DIR",
		},
		cli.IntFlag{
			Name:  "port",
			Usage: "HTTP port, overrides server.http_port (-1 keeps the config value)",
			Value: -1,
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level, overrides logging.level",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bridge: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadBridgeConfig(c.GlobalString("config-dir"))
	if err != nil {
		return err
	}
	if port := c.GlobalInt("port"); port >= 0 {
		cfg.Server.HTTPPort = port
	}
	if level := c.GlobalString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	logger, err := customlog.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.LogPath)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infof("Starting bridge with config from %s", c.GlobalString("config-dir"))

	profiles, err := services.NewProfileService(cfg.ProfilePath(), logger)
	if err != nil {
		return err
	}

	var sinks []telemetry.Sink
	var zmqService *zeromq.ZeroMQService
	if cfg.ZeroMQ.Enabled {
		zmqService, err = zeromq.NewZeroMQService(zeromq.Options{
			PublishAddress: cfg.ZeroMQ.PublishBindAddress,
			ControlAddress: cfg.ZeroMQ.ControlBindAddress,
		}, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, zeromq.NewTelemetrySink(zmqService))
	}
	if cfg.MQTT.Enabled {
		sinks = append(sinks, telemetry.NewMQTTSink(telemetry.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, logger))
	}
	dispatcher := telemetry.NewDispatcher(cfg.Telemetry.Workers, cfg.Telemetry.QueueSize, logger, sinks...)

	link := seriallink.New(seriallink.Options{
		Port:         cfg.Link.Port,
		ScanPatterns: cfg.Link.ScanPatterns,
		Serial: seriallink.PortOptions{
			BaudRate: cfg.Link.BaudRate,
			DataBits: cfg.Link.DataBits,
			StopBits: cfg.Link.StopBits,
			Parity:   cfg.Link.Parity,
		},
		RescanInterval: cfg.Link.RescanInterval(),
	}, logger)

	controller, err := control.New(control.Options{
		Link:         link,
		Params:       profiles.GetCurrentProfile(),
		TickInterval: cfg.Control.TickInterval(),
		SettleDelay:  cfg.Control.SettleDelay(),
		Publisher:    dispatcher,
		Session:      dispatcher.Session(),
	}, logger)
	if err != nil {
		if zmqService != nil {
			zmqService.Stop()
		}
		return err
	}
	profiles.SetApplier(controller)

	dispatcher.Start()
	if zmqService != nil {
		zeromq.RegisterControlHandlers(zmqService.Dispatcher(), controller, logger)
		zmqService.Start()
	}
	controller.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := link.Run(ctx, controller); err != nil {
			logger.Errorf("Serial link stopped: %v", err)
		}
	}()

	web := api.NewApp(api.Options{
		Control:   controller,
		Profile:   profiles,
		Logger:    logger,
		AccessLog: cfg.Logging.Level == "debug",
	})
	if cfg.Server.HTTPPort > 0 {
		go func() {
			logger.Infof("HTTP server starting on port %d", cfg.Server.HTTPPort)
			if err := web.Listen(":" + strconv.Itoa(cfg.Server.HTTPPort)); err != nil {
				logger.Errorf("HTTP server failed: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Infof("Shutting down bridge...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := web.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warnf("HTTP server forced to shutdown: %v", err)
	}

	controller.Close()
	wg.Wait()
	dispatcher.Stop()
	if zmqService != nil {
		zmqService.Stop()
	}

	logger.Infof("Bridge exited properly")
	return nil
}
