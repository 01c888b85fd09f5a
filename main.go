package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/strivelabs/tenantkv/engine"
	"github.com/strivelabs/tenantkv/metrics"
	"github.com/strivelabs/tenantkv/storage"
	"github.com/strivelabs/tenantkv/sweeper"
	"github.com/strivelabs/tenantkv/userconfig"
)

func main() {
	// Log with filename and line number. This writes to stderr, so it should
	// be thread safe.
	// https://github.com/rs/zerolog/blob/7ccd4c940bf8a02fcc5f10e5475f9d3daff04d57/log/log.go#L13
	log.Logger = log.With().Caller().Logger()

	configPath := flag.String(
		"config",
		"./config.yaml",
		"path to a JSON or YAML file containing your configuration",
	)
	level := flag.String(
		"level",
		"info",
		`log level: "info", "debug", or "warn"`,
	)
	flag.Parse()

	switch *level {
	case "debug":
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	case "warn":
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	default:
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	log.Info().
		Str("configPath", *configPath).
		Msg("starting the storage engine")

	f, err := os.Open(*configPath)
	if err != nil {
		log.Error().
			Str("config-path", *configPath).
			Err(err).
			Msg("We can't open the application config file")
		os.Exit(1)
	}

	config, err := userconfig.Parse(f)
	f.Close()
	if err != nil {
		log.Error().
			Err(err).
			Msg("Problem parsing your config")
		os.Exit(1)
	}

	checkedConfig, err := config.CheckAndSetDefaults()
	if err != nil {
		log.Error().
			Err(err).
			Msg("Problem validating your config")
		os.Exit(1)
	}

	log.Info().Str("configPath", *configPath).Msg("successfully validated the config")

	db, err := storage.NewBadgerDB(&checkedConfig.Storage)
	if err != nil {
		log.Error().
			Err(err).
			Msg("We can't open the record store")
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("problem closing the record store")
		}
	}()

	registry, err := checkedConfig.TenantRegistry()
	if err != nil {
		log.Error().
			Err(err).
			Msg("Problem building the tenant registry")
		os.Exit(1)
	}
	log.Info().
		Int("count", len(checkedConfig.Tenants)).
		Msg("loaded the tenant registry")

	m := metrics.New(prometheus.DefaultRegisterer)

	// The engine's request operations are consumed by the request-handling
	// layer; this daemon owns the store, the sweeper, and the metrics
	// endpoint, and reports each tenant's usage at startup.
	eng := engine.New(db, registry, m)
	for _, entry := range checkedConfig.Tenants {
		usage, err := eng.Usage(entry.ID)
		if err != nil {
			log.Warn().
				Str("tenantId", entry.ID).
				Err(err).
				Msg("couldn't read the tenant's current usage")
			continue
		}
		log.Info().
			Str("tenantId", entry.ID).
			Uint64("usageBytes", usage).
			Str("storageLimit", entry.StorageLimit).
			Msg("tenant usage")
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info().
			Str("addr", checkedConfig.MetricsAddr).
			Msg("serving metrics")
		if err := http.ListenAndServe(checkedConfig.MetricsAddr, mux); err != nil {
			log.Error().Err(err).Msg("the metrics listener stopped")
		}
	}()

	sweepCadence := time.NewTicker(checkedConfig.Sweep.Interval)
	defer sweepCadence.Stop()
	stopCh := make(chan struct{})
	sweepConfig := sweeper.Config{
		TickCh:  sweepCadence.C,
		StopCh:  stopCh,
		Store:   db,
		Metrics: m,
	}
	go sweeper.StartLoop(&sweepConfig)
	log.Info().
		Dur("interval", checkedConfig.Sweep.Interval).
		Msg("launched the expiration sweeper")

	// Intercept interrupts so we can close the store cleanly before
	// exiting.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
	log.Info().Msg("interrupt: exiting")
	close(stopCh)
}
