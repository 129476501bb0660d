// cmd/relayd/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/relayd/internal/config"
	"github.com/tamzrod/relayd/internal/controller"
	"github.com/tamzrod/relayd/internal/logging"
	"github.com/tamzrod/relayd/internal/mqtt"
	"github.com/tamzrod/relayd/internal/program"
)

var version = "dev"

// errProgramDone ends the run group once the work list is finished.
var errProgramDone = errors.New("program complete")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath     string
		port        string
		numRelays   int
		relayLists  []string
		durations   []int
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("relayd", pflag.ContinueOnError)
	flagSet.StringVarP(&cfgPath, "config", "c", "", "path to YAML config (defaults apply when omitted)")
	flagSet.StringVarP(&port, "port", "p", "", "serial device the relay board is attached to")
	flagSet.IntVarP(&numRelays, "num-relays", "n", 0, "number of relays the board is set up for")
	flagSet.StringArrayVarP(&relayLists, "relays", "r", nil, "comma-separated relays to run (repeat per work item)")
	flagSet.IntSliceVarP(&durations, "duration", "d", nil, "minutes to run the preceding relays (repeat per work item)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println("relayd", version)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	if flagSet.Changed("port") {
		cfg.Device.Port = port
	}
	if flagSet.Changed("num-relays") {
		cfg.Device.Relays = numRelays
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if len(relayLists) > 0 || len(durations) > 0 {
		steps, err := program.Parse(relayLists, durations)
		if err != nil {
			return err
		}
		cfg.Program = cfg.Program[:0]
		for i, s := range steps {
			cfg.Program = append(cfg.Program, config.StepConfig{Relays: s.Relays, Minutes: durations[i]})
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	logger, closeLog, err := logging.New(cfg.Logging, version)
	if err != nil {
		return err
	}
	defer closeLog()

	// --------------------
	// Build controller + bridge
	// --------------------

	ctrl, err := controller.Build(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MQTT.Enabled {
		bridge, err := mqtt.Connect(cfg.MQTT, ctrl, logger)
		if err != nil {
			return err
		}
		defer bridge.Close()
		ctrl.OnPass(bridge.PublishStatus)
	}

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	// Runs before bridge.Close so the stopped snapshot is published.
	defer ctrl.Stop()

	// --------------------
	// Run until the work list ends or a signal arrives
	// --------------------

	steps := program.FromConfig(cfg.Program)

	g, gctx := errgroup.WithContext(ctx)

	if len(steps) > 0 {
		g.Go(func() error {
			if err := program.Run(gctx, ctrl, steps, logger); err != nil {
				return err
			}
			return errProgramDone
		})
	} else {
		logger.Info("no program configured, holding relays until signalled")
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	switch {
	case err == nil, errors.Is(err, errProgramDone), errors.Is(err, context.Canceled):
		logger.Info("shutting down", "passes", ctrl.Snapshot().Passes)
		return nil
	default:
		return err
	}
}
