// Package main provides the offline replay CLI: it runs a recorded
// session through the classification pipeline and prints the resulting
// events as JSON lines.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/emostream-io/emostream/internal/emotion"
	"github.com/emostream-io/emostream/internal/replay"
)

func main() {
	file := flag.String("file", "", "Recording CSV file (required)")
	speed := flag.Float64("speed", 1.0, "Playback speed multiplier")
	start := flag.Float64("start", 0, "Start offset in seconds")
	end := flag.Float64("end", 0, "End offset in seconds (0 = to the end)")
	batch := flag.Bool("batch", false, "Process without pacing")
	window := flag.Int("window", 5, "Centered smoothing window for batch mode")
	prototypes := flag.String("prototypes", "", "Path to a prototype override YAML")
	summaryOnly := flag.Bool("summary", false, "Print the recording summary and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if *file == "" {
		log.Fatal().Msg("--file is required")
	}

	rec, err := replay.LoadRecording(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to load recording")
	}

	out := json.NewEncoder(os.Stdout)

	if *summaryOnly {
		if err := out.Encode(rec.Summary()); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode summary")
		}
		return
	}

	classifier := emotion.NewClassifier()
	if *prototypes != "" {
		protos, err := emotion.LoadPrototypes(*prototypes)
		if err != nil {
			log.Fatal().Err(err).Str("path", *prototypes).Msg("Failed to load prototypes")
		}
		classifier = emotion.NewClassifierWith(protos)
	}

	engine := replay.NewEngineWith(rec, classifier, emotion.DefaultSmootherConfig())
	opts := replay.Options{Speed: *speed, StartOffset: *start, EndOffset: *end}

	if *batch {
		for _, ev := range engine.Batch(opts, *window) {
			if err := out.Encode(ev); err != nil {
				log.Fatal().Err(err).Msg("Failed to encode event")
			}
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for ev := range engine.Replay(ctx, opts) {
		if err := out.Encode(ev); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode event")
		}
	}
}
