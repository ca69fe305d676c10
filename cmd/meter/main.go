package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/hkniberg/meter/internal/cliconfig"
	"github.com/hkniberg/meter/internal/display"
	"github.com/hkniberg/meter/internal/source"
	"github.com/hkniberg/meter/pkg/lifecycle"
	"github.com/hkniberg/meter/pkg/log"
	"github.com/hkniberg/meter/pkg/meter"
)

const helpDescription = `
Count pulses from an energy meter and relay them to a collector.

Every tick is persisted to a local counter before it is queued, and queued
ticks are delivered with retries until the collector acknowledges them.
Without --simulate, ticks are read from stdin: type "t" and press enter.
`

var exampleUsage = strings.TrimSpace(`
  meter --server-url http://collector.local/energy --meter-name kitchen
  meter --config /etc/meter/config.toml --simulate 5s --verbose
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "meter",
		Short:        "Count meter ticks and deliver them to a collector",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := log.NewConsoleLogger(cfg.Verbose)
			zl := logger.Logger()
			zl.Info().Interface("config", cfg).Msg("configuration")

			return runMeter(cfg, cfgFile, logger)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.meter/config.toml)")
	root.Flags().StringVar(&cfg.ServerURL, "server-url", cfg.ServerURL, "collector endpoint ticks are POSTed to")
	root.Flags().StringVar(&cfg.MeterName, "meter-name", cfg.MeterName, "name of this meter; waits for registration when empty")
	root.Flags().StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "file holding the durable tick count")

	root.Flags().DurationVar(&cfg.ServerTimeout, "timeout", cfg.ServerTimeout, "timeout of a single delivery attempt")
	root.Flags().DurationVar(&cfg.MinSendInterval, "min-send-interval", cfg.MinSendInterval, "minimum time between two sends")
	root.Flags().IntVar(&cfg.MaxBatchSize, "max-batch-size", cfg.MaxBatchSize, "maximum notifications per request")
	root.Flags().IntVar(&cfg.MaxEventsPerNotification, "max-events", cfg.MaxEventsPerNotification, "maximum ticks per notification (0 = unlimited)")

	root.Flags().IntVar(&cfg.RetryMaxAttempts, "retry-max-attempts", cfg.RetryMaxAttempts, "delivery attempts before giving up (0 = retry forever)")
	root.Flags().DurationVar(&cfg.RetryMinDelay, "retry-min-delay", cfg.RetryMinDelay, "delay before the first retry")
	root.Flags().DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "maximum delay between retries")
	root.Flags().Float64Var(&cfg.RetryFactor, "retry-factor", cfg.RetryFactor, "backoff growth factor")

	root.Flags().DurationVar(&cfg.Simulate, "simulate", cfg.Simulate, "emit a simulated tick at this interval instead of reading stdin")
	root.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log every delivery attempt")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve Prometheus metrics on (disabled when empty)")

	root.Flags().StringVar(&cfg.DeviceIDPath, "device-id-path", cfg.DeviceIDPath, "file holding the device id shown during registration")
	root.Flags().StringVar(&cfg.RegistrationURL, "registration-url", cfg.RegistrationURL, "URL users open to register this meter")
	for _, name := range []string{"device-id-path", "registration-url"} {
		if err := root.Flags().MarkHidden(name); err != nil {
			fmt.Fprintf(os.Stderr, "failed to hide %s flag: %v\n", name, err)
		}
	}

	if err := root.Execute(); err != nil {
		logger := log.NewConsoleLogger(false)
		logger.Error("meter", log.Err(err))
		os.Exit(1)
	}
}

func runMeter(cfg cliconfig.Config, cfgFile string, logger *log.ZerologAdapter) error {
	console := display.NewConsole(os.Stdout)

	if cfg.MeterName == "" {
		name, err := awaitRegistration(cfg, cfgFile, console, logger)
		if err != nil {
			return err
		}
		cfg.MeterName = name
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []meter.Option{
		meter.WithLogger(logger),
		meter.WithDisplay(console),
		meter.WithMetrics(reg),
	}
	if cfg.Simulate > 0 {
		logger.Info("simulating ticks", log.Duration("interval", cfg.Simulate))
	} else {
		logger.Info(`reading ticks from stdin, type "t" to register a tick`)
		opts = append(opts, meter.WithSource(source.Reader{R: os.Stdin}))
	}

	m, err := meter.New(cfg.MeterConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create meter: %w", err)
	}

	var g run.Group
	{
		stop := make(chan struct{})
		g.Add(func() error {
			if err := m.Start(context.Background()); err != nil {
				return fmt.Errorf("start meter: %w", err)
			}
			select {
			case <-m.Done():
				if err := m.Err(); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				logger.Info("tick source finished")
				return nil
			case <-stop:
				return nil
			}
		}, func(error) {
			close(stop)
			if err := m.Stop(); err != nil && !errors.Is(err, lifecycle.ErrNotRunning) {
				logger.Error("stop meter", log.Err(err))
			}
		})
	}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Add(func() error {
			logger.Info("serving metrics", log.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		}, func(error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
	}
	{
		cancel := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(c)
			select {
			case sig := <-c:
				logger.Info("received signal, stopping", log.String("signal", sig.String()))
			case <-cancel:
			}
			return nil
		}, func(error) {
			close(cancel)
		})
	}

	return g.Run()
}

// awaitRegistration shows the registration link and blocks until a meter
// name shows up in the config file.
func awaitRegistration(cfg cliconfig.Config, cfgFile string, console *display.Console, logger log.Logger) (string, error) {
	if cfgFile == "" {
		return "", errors.New("meter-name is required when no config file is available")
	}

	if link, err := cfg.RegistrationLink(); err != nil {
		logger.Warn("cannot build registration link", log.Err(err))
	} else if link != "" {
		logger.Info("register this meter", log.String("url", link))
	}
	console.ShowUnregistered(cfgFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name, err := cliconfig.WaitForMeterName(ctx, cfgFile, cliconfig.DefaultRegistrationPoll, logger)
	if err != nil {
		return "", fmt.Errorf("wait for meter name: %w", err)
	}
	return name, nil
}
