package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"pagediff/internal/batch"
	"pagediff/internal/capture"
	"pagediff/internal/config"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/retry"
	"pagediff/internal/storage"
	"time"

	"github.com/playwright-community/playwright-go"
)

func main() {
	var storageLocation string
	var s3Endpoint string
	var chromeDevtoolsProtocolURL string
	var callbackURL string
	var scheduled bool
	var threshold float64
	var metric string
	var detectAntialiasing bool
	var maxPixels int64
	var width int
	var height int
	var actions string
	var maskSelectors string
	var headers capture.HeaderFlag
	var retryOn string
	flag.StringVar(&storageLocation, "storage", config.EnvOrDefault("STORAGE", "/tmp"), "Artifact storage: a directory, file:///path or s3://bucket/prefix")
	flag.StringVar(&s3Endpoint, "s3-endpoint", config.EnvOrDefault("S3_ENDPOINT", ""), "Custom S3 endpoint (e.g. MinIO)")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", config.EnvOrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.StringVar(&callbackURL, "callback-url", config.EnvOrDefault("CALLBACK_URL", ""), "Artifacts URL to send results to; results are printed when empty")
	flag.BoolVar(&scheduled, "scheduled", false, "Compare a single URL with the previous run fetched from the callback URL")
	flag.Float64Var(&threshold, "threshold", config.EnvOrDefault("THRESHOLD", diffimage.DefaultOptions().Threshold), "Color distance in [0, 1] above which a pixel differs")
	flag.StringVar(&metric, "metric", config.EnvOrDefault("METRIC", string(diffimage.MetricYIQ)), "Color metric (yiq or ciede2000)")
	flag.BoolVar(&detectAntialiasing, "detect-antialiasing", config.EnvOrDefault("DETECT_ANTIALIASING", false), "Ignore anti-aliased pixels")
	flag.Int64Var(&maxPixels, "max-pixels", config.EnvOrDefault("MAX_PIXELS", int64(diffimage.DefaultMaxPixels)), "Largest image or canvas in pixels a comparison accepts; 0 disables the limit")
	flag.IntVar(&width, "width", 0, "Viewport width override in pixels")
	flag.IntVar(&height, "height", 0, "Viewport height override in pixels")
	flag.StringVar(&actions, "actions", "", `Actions replayed before capturing as JSON, e.g. [{"type":"click","selector":"#accept"}]`)
	flag.StringVar(&maskSelectors, "mask-selectors", "", "Comma-separated list of CSS selectors to mask during capture")
	flag.Var(&headers, "H", "Add HTTP header (can be used multiple times)")
	flag.StringVar(&retryOn, "retry-on", config.EnvOrDefault("RETRY_ON", "gateway-error,connect-failure,retriable-4xx"), "Callback retry conditions")

	flag.Parse()

	args := flag.Args()
	if scheduled && len(args) != 1 {
		log.Fatalf("target not specified")
	}
	if !scheduled && len(args) != 2 {
		log.Fatalf("baseline, target not specified")
	}
	if scheduled && callbackURL == "" {
		log.Fatalf("--scheduled requires --callback-url")
	}

	options := diffimage.DefaultOptions()
	options.Threshold = threshold
	options.Metric = diffimage.Metric(metric)
	options.DetectAntialiasing = detectAntialiasing
	options.MaxPixels = maxPixels
	if err := options.Validate(); err != nil {
		log.Fatalf("Invalid comparison options: %v", err)
	}

	parsedActions, err := parseActions(actions)
	if err != nil {
		log.Fatalf("Failed to parse actions: %v", err)
	}

	policy, err := retry.ParsePolicy(retryOn)
	if err != nil {
		log.Fatalf("Failed to parse retry conditions: %v", err)
	}

	ctx := context.Background()

	if err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
	}); err != nil {
		log.Fatalf("failed to install playwright browsers: %v", err)
	}

	playwrightConfig := capture.DefaultPlaywrightConfig()
	playwrightConfig.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	capturer, err := capture.NewPlaywrightCapturer(ctx, playwrightConfig)
	if err != nil {
		log.Fatalf("failed to initialize capturer: %v", err)
	}

	s, err := storage.Open(ctx, storageLocation, s3Endpoint)
	if err != nil {
		log.Fatalf("failed to create storage backend: %v", err)
	}

	worker := &Worker{
		Runner: &batch.Runner{
			Capturer:   capturer,
			Comparator: diffimage.NewComparator(options),
		},
		Storage: s,
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &retry.Transport{
				Base:    http.DefaultTransport,
				Backoff: &retry.Exponential{Base: 100 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 5},
				Policy:  policy,
			},
		},
	}

	pair := batch.Pair{
		Actions:       parsedActions,
		Width:         width,
		Height:        height,
		MaskSelectors: capture.SplitSelectors(maskSelectors),
		Headers:       headers,
	}

	var report *batch.Report
	if scheduled {
		pair.Baseline, pair.Target = args[0], args[0]
		report, err = worker.CompareWithPrevious(ctx, pair, callbackURL)
	} else {
		pair.Baseline, pair.Target = args[0], args[1]
		report, err = worker.Compare(ctx, pair)
	}
	if err != nil {
		log.Fatalf("failed to process comparison: %v", err)
	}

	if callbackURL == "" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			log.Fatalf("failed to encode result: %v", err)
		}
		return
	}

	if err := worker.Callback(ctx, callbackURL, report); err != nil {
		log.Fatalf("failed to send callback: %v", err)
	}
}
