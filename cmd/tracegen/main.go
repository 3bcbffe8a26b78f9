package main

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Lamikins/branch-prediction/internal/sim"
	"github.com/Lamikins/branch-prediction/internal/storage"
)

func main() {
	var (
		workload   = flag.String("workload", "driver", "Workload: driver, loop, random, alternating")
		tag        = flag.String("tag", "branch", "Branch site tag for single-site workloads")
		iterations = flag.Int("iterations", 1000, "Iterations (loop/driver) or record count (random/alternating)")
		bias       = flag.Float64("bias", 0.5, "Taken probability for the random workload")
		period     = flag.Int("period", 4, "Flip period for the alternating workload")
		seed       = flag.Int64("seed", 0, "Random seed")
		out        = flag.String("out", "trace.csv", "Output path: .csv, .json, or a directory for BoltDB")
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

	gen := sim.NewGenerator(*seed)
	var records []sim.BranchRecord

	switch *workload {
	case "driver":
		records = gen.Driver(*iterations)
	case "loop":
		records = gen.Loop(*tag, *iterations)
	case "random":
		records = gen.Random(*tag, *iterations, *bias)
	case "alternating":
		records = gen.Alternating(*tag, *period, *iterations)
	default:
		log.Fatal().Str("workload", *workload).Msg("Unknown workload")
	}

	loader := sim.NewTraceLoader()
	loader.Append(records...)

	if err := writeTrace(loader, records, *out); err != nil {
		log.Fatal().Err(err).Str("out", *out).Msg("Failed to write trace")
	}
	log.Info().Int("records", len(records)).Str("out", *out).Msg("Trace generated")
}

func writeTrace(loader *sim.TraceLoader, records []sim.BranchRecord, out string) error {
	switch {
	case strings.HasSuffix(out, ".csv"):
		return loader.WriteCSV(out)
	case strings.HasSuffix(out, ".json"):
		return loader.WriteJSON(out)
	default:
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		store, err := storage.New(out)
		if err != nil {
			return err
		}
		defer store.Close()

		events := make([]storage.BranchEvent, len(records))
		for i, r := range records {
			events[i] = storage.BranchEvent{Seq: r.Seq, Tag: r.Tag, Outcome: r.Outcome, Ts: time.Now()}
		}
		return store.StoreEvents(events)
	}
}
