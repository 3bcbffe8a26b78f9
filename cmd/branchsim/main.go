package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Lamikins/branch-prediction/internal/cfg"
	"github.com/Lamikins/branch-prediction/internal/dashboard"
	"github.com/Lamikins/branch-prediction/internal/metrics"
	"github.com/Lamikins/branch-prediction/internal/perceptron"
	"github.com/Lamikins/branch-prediction/internal/predictor"
	"github.com/Lamikins/branch-prediction/internal/sim"
	"github.com/Lamikins/branch-prediction/internal/storage"
)

func main() {
	var (
		tracePath  = flag.String("trace", "", "Path to a trace file (overrides config)")
		traceURL   = flag.String("url", "", "URL of a remote CSV trace (overrides config)")
		dataFormat = flag.String("format", "", "Trace format: auto, csv, json, boltdb")
		variant    = flag.String("variant", "", "Predictor variant: linear, margin, sign (overrides config)")
		iterations = flag.Int("iterations", 1000, "Iterations for the built-in synthetic workload")
		outputPath = flag.String("output", "", "Output directory for reports (overrides config)")
		serve      = flag.Bool("serve", false, "Serve Prometheus metrics and the accuracy dashboard")
		throttle   = flag.Duration("throttle", 0, "Delay between observations, useful with -serve")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env")
	}

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *tracePath != "" {
		config.TracePath = *tracePath
	}
	if *traceURL != "" {
		config.TraceURL = *traceURL
	}
	if *dataFormat != "" {
		config.TraceFormat = *dataFormat
	}
	if *variant != "" {
		config.Variant = *variant
	}
	if *outputPath != "" {
		config.OutputPath = *outputPath
	}

	pvariant, err := perceptron.ParseVariant(config.Variant)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid predictor variant")
	}

	m := metrics.New()
	bp, err := predictor.NewWithMetrics(pvariant, perceptron.Config{
		HistoryLength: config.HistoryLength,
		Eta:           config.Eta,
		Lambda:        config.Lambda,
		BatchSize:     config.BatchSize,
		Seed:          config.Seed,
	}, metrics.NewWrapper(m))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create branch predictor")
	}

	var store *storage.Store
	if config.RecordEvents {
		store, err = storage.New(config.DataPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open event store")
		}
		defer store.Close()
	}

	loader := sim.NewTraceLoader()
	if err := loadTrace(loader, config, *iterations); err != nil {
		log.Fatal().Err(err).Msg("Failed to load trace")
	}

	if *serve {
		go serveMetrics(config.MetricsPort)

		dash := dashboard.New(bp, config.DashboardPort, config.StreamInterval)
		if err := dash.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start dashboard")
		}
		defer dash.Stop()
	}

	engine := sim.NewEngine(bp, loader, store)
	engine.SetThrottle(*throttle)
	if err := engine.Run(); err != nil {
		log.Fatal().Err(err).Msg("Simulation failed")
	}
	if err := engine.PersistRun(config.Variant); err != nil {
		log.Error().Err(err).Msg("Failed to persist run summary")
	}

	reporter := sim.NewReporter(engine.Results(), config.OutputPath)
	if err := reporter.GenerateReport(); err != nil {
		log.Error().Err(err).Msg("Failed to generate reports")
	}
	reporter.PrintSummary()
}

// loadTrace fills the loader from the configured source, falling back to the
// built-in synthetic workload: a counted loop with a coin-flip branch in its
// body.
func loadTrace(loader *sim.TraceLoader, config cfg.Settings, iterations int) error {
	switch {
	case config.TraceURL != "":
		return loader.LoadFromURL(config.TraceURL)
	case config.TracePath != "":
		return loadTraceFile(loader, config)
	default:
		log.Info().Int("iterations", iterations).Msg("No trace configured, generating synthetic workload")
		gen := sim.NewGenerator(config.Seed)
		loader.Append(gen.Driver(iterations)...)
		return nil
	}
}

func loadTraceFile(loader *sim.TraceLoader, config cfg.Settings) error {
	format := config.TraceFormat
	if format == "auto" {
		format = detectFormat(config.TracePath)
	}

	switch format {
	case "csv":
		return loader.LoadFromCSV(config.TracePath)
	case "json":
		return loader.LoadFromJSON(config.TracePath)
	case "boltdb":
		store, err := storage.New(config.TracePath)
		if err != nil {
			return fmt.Errorf("failed to open trace store: %w", err)
		}
		defer store.Close()
		return loader.LoadFromStore(store)
	default:
		return fmt.Errorf("cannot determine trace format for %s", config.TracePath)
	}
}

func detectFormat(path string) string {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return "boltdb"
	}
	switch {
	case strings.HasSuffix(path, ".csv"):
		return "csv"
	case strings.HasSuffix(path, ".json"):
		return "json"
	}
	return ""
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	log.Info().Str("address", addr).Msg("Serving Prometheus metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
