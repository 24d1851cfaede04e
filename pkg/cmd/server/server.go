package server

import (
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // profiling is opt-in via flag
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/controlbox-racing/controlbox-service-manager-go/log"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/config"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/db/postgres"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/dispatch"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/dispatch/natspub"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/ingest"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/pipeline"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/processing/classify"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/processing/snapshots"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/processing/spotter"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/profile"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/repository/incident"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/session"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/utils"
)

var appConfig config.Config // holds processed config values

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the telemetry relay server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			appConfig = config.Config{PrintMessage: config.PrintMessage}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer()
		},
	}
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format")
	cmd.Flags().StringVar(&config.ProfilesFile,
		"profiles-file",
		"",
		"discipline profiles file (yaml), merged over the built-in profiles")
	cmd.Flags().StringVar(&config.FlushInterval,
		"flush-interval",
		"1s",
		"interval for releasing due entries from the delay buffers")
	cmd.Flags().StringVar(&config.SweepInterval,
		"sweep-interval",
		"30s",
		"interval for the stale session sweeper")
	cmd.Flags().StringVar(&config.StaleDuration,
		"stale-duration",
		"5m",
		"session is removed if no data was received for this duration")
	cmd.Flags().IntVar(&config.IngestWorkers,
		"ingest-workers",
		4,
		"number of workers processing inbound telemetry")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().BoolVar(&config.PrintMessage,
		"print-message",
		false,
		"if true and log level is debug, the message payload will be printed")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func parseDuration(arg string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(arg)
	if err != nil {
		return defaultVal
	}
	return d
}

//nolint:funlen // server wiring
func startServer() error {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	log.ResetDefault(logger)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // localhost only
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	if err := waitForRequiredServices(); err != nil {
		return err
	}

	log.Info("Starting server")
	pool, err := postgres.InitWithURL(
		config.DB,
		postgres.WithTracer(logger.Named("sql")))
	if err != nil {
		log.Error("could not connect to database", log.ErrorField(err))
		return err
	}
	defer pool.Close()

	nc, err := nats.Connect(config.NatsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		log.Error("could not connect to NATS", log.ErrorField(err))
		return err
	}

	profiles := profile.NewStore()
	if config.ProfilesFile != "" {
		if err := profiles.Load(config.ProfilesFile); err != nil {
			log.Error("could not load profiles", log.ErrorField(err))
			return err
		}
		log.Info("Loaded discipline profiles", log.String("file", config.ProfilesFile))
	}

	registry := session.NewRegistry()
	ring := snapshots.NewRing(snapshots.DefaultCapacity)
	engine := classify.NewEngine(incident.NewStore(pool), ring, profiles)
	dispatcher := dispatch.NewDispatcher(natspub.NewPublisher(nc))
	watcher := spotter.NewSpotter(dispatcher)
	ingester := ingest.NewIngester(registry, dispatcher,
		ingest.WithSnapshotRecorder(ring),
		ingest.WithObserver(watcher))
	executor := pipeline.NewShardedExecutor(config.IngestWorkers)

	relay := &relayHandler{
		registry:   registry,
		engine:     engine,
		dispatcher: dispatcher,
		ingester:   ingester,
		spotter:    watcher,
		executor:   executor,
		l:          logger.Named("relay"),
	}
	subs, err := relay.subscribe(nc)
	if err != nil {
		log.Error("could not subscribe", log.ErrorField(err))
		return err
	}

	done := make(chan struct{})
	go flusher(registry, dispatcher, done)
	go sweeper(registry, ring, watcher, done)

	log.Info("Server started")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	v := <-sigChan
	log.Debug("Got signal", log.Any("signal", v))

	close(done)
	for _, sub := range subs {
		//nolint:errcheck // shutting down anyway
		sub.Unsubscribe()
	}
	executor.Shutdown()
	if err := nc.Drain(); err != nil {
		log.Warn("NATS drain failed", log.ErrorField(err))
	}
	log.Info("Server terminated")
	return nil
}

func waitForRequiredServices() error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if addr := utils.ExtractFromDBURL(config.DB); addr != "" {
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
	}
	if addr := utils.ExtractFromNatsURL(config.NatsURL); addr != "" {
		if err := utils.WaitForTCP(addr, timeout); err != nil {
			return fmt.Errorf("nats not ready: %w", err)
		}
	}
	return nil
}

// flusher periodically releases due entries from every session's delay
// buffer onto the public feed.
func flusher(
	registry *session.Registry,
	dispatcher *dispatch.Dispatcher,
	done <-chan struct{},
) {
	interval := parseDuration(config.FlushInterval, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			for _, sess := range registry.Sessions() {
				dispatcher.DispatchDelayed(sess, now)
			}
		}
	}
}

// sweeper removes sessions without recent data and drops their
// snapshot history and spotter state.
func sweeper(
	registry *session.Registry,
	ring *snapshots.Ring,
	watcher *spotter.Spotter,
	done <-chan struct{},
) {
	interval := parseDuration(config.SweepInterval, 30*time.Second)
	stale := parseDuration(config.StaleDuration, 5*time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for _, id := range registry.Sweep(stale) {
				ring.Drop(id)
				watcher.Drop(id)
			}
		}
	}
}
