package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"enrichquant/internal/models"
	"enrichquant/pkg/analysis"
	"enrichquant/pkg/config"
	"enrichquant/pkg/resolve"
)

func main() {
	inputDir := flag.String("input", "", "Base directory containing one subdirectory per condition")
	configPath := flag.String("config", "enrichquant.yaml", "Path to the YAML run configuration")
	workers := flag.Int("workers", 0, "Number of concurrent workers (0: use configured value)")
	maxBackground := flag.Float64("max-background", 0, "Upper bound for the background estimate (0: unbounded)")
	enlarge := flag.Int("enlarge", -1, "Extra dilation rounds applied to the dilated masks (-1: use configured value)")
	ringMasks := flag.Bool("ring-masks", false, "Write derived background rings as diagnostic TIFFs")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Flags override the file configuration for one-off runs.
	if *workers > 0 {
		cfg.Processing.Workers = *workers
	}
	if *maxBackground > 0 {
		cfg.Processing.MaxBackground = maxBackground
	}
	if *enlarge >= 0 {
		cfg.Processing.AdditionalEnlargement = *enlarge
	}
	if *ringMasks {
		cfg.Output.WriteRingMasks = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	level := zerolog.InfoLevel
	if *verbose || cfg.Output.Verbose {
		level = zerolog.DebugLevel
	}
	log = log.Level(level)

	orch := analysis.NewOrchestrator(*inputDir, cfg, resolve.NewKeywordResolver(), log)

	start := time.Now()
	summary, err := orch.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("analysis run failed")
	}

	emitted, skipped, records := 0, 0, 0
	for _, p := range summary.Pairs {
		switch p.Status {
		case models.RecordsEmitted:
			emitted++
			records += p.Records
		case models.Skipped:
			skipped++
		}
	}

	log.Info().
		Int("conditions", summary.Conditions).
		Int("pairs_emitted", emitted).
		Int("pairs_skipped", skipped).
		Int("records", records).
		Dur("elapsed", time.Since(start)).
		Msg("analysis run complete")
}
