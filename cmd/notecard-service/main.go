package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"notecard-service/internal/config"
	"notecard-service/internal/core"
	"notecard-service/internal/hardware"
	"notecard-service/internal/logger"
	"notecard-service/internal/messaging"
	"notecard-service/internal/notecard"
	"notecard-service/internal/signals"
)

func main() {
	loader := config.NewLoader("notecard-service")
	cfg, err := loader.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create standard logger with appropriate format
	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		// Running under systemd, use minimal format
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		// Running interactively, use timestamps
		stdLogger = log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}

	l := logger.NewLogger(stdLogger, logger.ParseLevel(cfg.LogLevel))
	l.Infof("Starting notecard service...")

	loader.Watch(func(next *config.Config) {
		l.SetLevel(logger.ParseLevel(next.LogLevel))
		l.Infof("Config reloaded, log level %s", next.LogLevel)
	}, func(err error) {
		l.Warnf("Ignoring invalid config reload: %v", err)
	})

	transport, err := notecard.OpenSerial(cfg.Relay.Port, cfg.Relay.Baud, cfg.Relay.Timeout)
	if err != nil {
		l.Fatalf("Failed to open relay port: %v", err)
	}
	relay := notecard.NewClient(transport, l.WithTag("relay"))

	io := hardware.NewLinuxHardwareIO(l.WithTag("hw"),
		map[string]hardware.OutputMapping{
			"horn": {Chip: cfg.Horn.Chip, Line: cfg.Horn.Line},
		},
		map[string]hardware.AnalogMapping{
			"battery": {Device: cfg.Battery.Device, Channel: cfg.Battery.Channel},
		},
	)

	var redisClient *messaging.RedisClient
	var publisher core.StatePublisher
	if cfg.Redis.Enabled {
		redisClient = messaging.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, l.WithTag("redis"))
		publisher = redisClient
	}

	mode, _ := signals.ParseMode(cfg.Signals.Mode)
	signalLogger := l.WithTag("signals")
	var source signals.Source
	switch mode {
	case signals.ModeStream:
		aux, err := notecard.OpenSerialStream(cfg.Signals.Port, cfg.Signals.Baud)
		if err != nil {
			l.Fatalf("Failed to open AUX port: %v", err)
		}
		source = signals.NewLineSource(notecard.NewLineReader(aux, 0, signalLogger), cfg.Signals.PollInterval)
	case signals.ModeRequest:
		source = signals.NewRequestSource(relay, signalLogger)
	case signals.ModeRedis:
		source = signals.NewListSource(redisClient, cfg.Signals.RedisList, signalLogger)
	}
	l.Infof("Signal source: %s", mode)

	system := core.NewScooterSystem(core.Options{
		ProductUID:     cfg.ProductUID,
		SerialNumber:   cfg.SerialNumber,
		SignalMode:     mode,
		SampleInterval: cfg.SampleInterval,
		HornPulse:      cfg.Horn.Pulse,
	}, relay, io, publisher, source, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := system.Start(ctx); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}

	l.Infof("System started successfully")

	done := make(chan struct{})
	go func() {
		system.Run(ctx)
		close(done)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	l.Infof("Received signal %v, shutting down...", sig)
	cancel()
	<-done
	system.Shutdown()
	l.Infof("Shutdown complete")
}
