package main

import (
	"context"
	"flag"
	"log"
	"pagediff/internal/capture"
	"pagediff/internal/config"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/runnable"
	"pagediff/internal/scenario"
	"pagediff/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	var storageLocation string
	var s3Endpoint string
	var scenariosFile string
	var chromeDevtoolsProtocolURL string
	var threshold float64
	var metric string
	var detectAntialiasing bool
	var maxPixels int64
	flag.StringVar(&storageLocation, "storage", config.EnvOrDefault("STORAGE", ""), "Artifact storage: a directory, file:///path or s3://bucket/prefix; empty keeps artifacts inline")
	flag.StringVar(&s3Endpoint, "s3-endpoint", config.EnvOrDefault("S3_ENDPOINT", ""), "Custom S3 endpoint (e.g. MinIO)")
	flag.StringVar(&scenariosFile, "scenarios-file", config.EnvOrDefault("SCENARIOS_FILE", "scenarios.json"), "JSON file scenarios and collections are persisted to")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", config.EnvOrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.Float64Var(&threshold, "threshold", config.EnvOrDefault("THRESHOLD", diffimage.DefaultOptions().Threshold), "Default color distance in [0, 1] above which a pixel differs")
	flag.StringVar(&metric, "metric", config.EnvOrDefault("METRIC", string(diffimage.MetricYIQ)), "Default color metric (yiq or ciede2000)")
	flag.BoolVar(&detectAntialiasing, "detect-antialiasing", config.EnvOrDefault("DETECT_ANTIALIASING", false), "Ignore anti-aliased pixels by default")
	flag.Int64Var(&maxPixels, "max-pixels", config.EnvOrDefault("MAX_PIXELS", int64(diffimage.DefaultMaxPixels)), "Largest image or canvas in pixels a comparison accepts; 0 disables the limit")
	flag.BoolVar(&runnable.Debug, "debug", config.EnvOrDefault("DEBUG", false), "Human readable logs and pprof endpoints")

	flag.Parse()

	ctx := context.Background()

	options := diffimage.DefaultOptions()
	options.Threshold = threshold
	options.Metric = diffimage.Metric(metric)
	options.DetectAntialiasing = detectAntialiasing
	options.MaxPixels = maxPixels
	if err := options.Validate(); err != nil {
		log.Fatalf("Invalid comparison options: %v", err)
	}

	playwrightConfig := capture.DefaultPlaywrightConfig()
	playwrightConfig.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	capturer, err := capture.NewPlaywrightCapturer(ctx, playwrightConfig)
	if err != nil {
		log.Fatalf("Failed to create capturer: %v", err)
	}

	store, err := scenario.NewFileStore(scenariosFile)
	if err != nil {
		log.Fatalf("Failed to open scenario store: %v", err)
	}

	deps := runnable.Dependencies{
		Capturer:  capturer,
		Inspector: capturer,
		Store:     store,
		Options:   options,
	}
	if storageLocation != "" {
		s, err := storage.Open(ctx, storageLocation, s3Endpoint)
		if err != nil {
			log.Fatalf("Failed to create storage backend: %v", err)
		}
		deps.Storage = s
	}

	if err := runnable.NewServer(deps).Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
