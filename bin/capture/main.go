package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"pagediff/internal/capture"
	"pagediff/internal/config"
	"pagediff/internal/storage"
	"time"

	"github.com/dustin/go-humanize"
)

type CaptureOutput struct {
	ScreenshotPath string `json:"screenshotPath"`
	Bytes          int    `json:"bytes"`
}

func main() {
	var storageLocation string
	var s3Endpoint string
	var maskSelectors string
	var delay time.Duration
	var viewportWidth int
	var viewportHeight int
	var fullPage bool
	var chromeDevtoolsProtocolURL string
	var headers capture.HeaderFlag
	var actions capture.ActionFlag
	flag.StringVar(&storageLocation, "storage", config.EnvOrDefault("STORAGE", "/tmp"), "Output storage: a directory, file:///path or s3://bucket/prefix")
	flag.StringVar(&s3Endpoint, "s3-endpoint", config.EnvOrDefault("S3_ENDPOINT", ""), "Custom S3 endpoint (e.g. MinIO)")
	flag.StringVar(&maskSelectors, "mask-selectors", config.EnvOrDefault("MASK_SELECTORS", ""), "Comma-separated list of CSS selectors to mask during capture")
	flag.DurationVar(&delay, "delay", config.EnvOrDefault("DELAY", 0*time.Second), "Delay before capturing")
	flag.IntVar(&viewportWidth, "viewport-width", config.EnvOrDefault("VIEWPORT_WIDTH", 1280), "Viewport width in pixels")
	flag.IntVar(&viewportHeight, "viewport-height", config.EnvOrDefault("VIEWPORT_HEIGHT", 800), "Viewport height in pixels")
	flag.BoolVar(&fullPage, "full-page", config.EnvOrDefault("FULL_PAGE", false), "Capture the full scrollable page instead of the viewport")
	flag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", config.EnvOrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	flag.Var(&headers, "H", "Add HTTP header (can be used multiple times, e.g., -H 'Accept: text/html' -H 'Authorization: Bearer token')")
	flag.Var(&actions, "action", "Replay an action before capturing (can be used multiple times, e.g., -action click:#accept -action 'type:#q=shoes' -action wait:500)")

	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		log.Fatalf("url not specified")
	}
	url := args[0]

	ctx := context.Background()

	s, err := storage.Open(ctx, storageLocation, s3Endpoint)
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	playwrightConfig := capture.DefaultPlaywrightConfig()
	playwrightConfig.Delay = delay
	playwrightConfig.FullPage = fullPage
	playwrightConfig.ViewportWidth = viewportWidth
	playwrightConfig.ViewportHeight = viewportHeight
	playwrightConfig.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	if os.Getenv("DISPLAY") != "" {
		playwrightConfig.Headless = false
	}

	capturer, err := capture.NewPlaywrightCapturer(ctx, playwrightConfig)
	if err != nil {
		log.Fatalf("Failed to create capturer: %v", err)
	}

	result, err := capturer.Capture(ctx, url, capture.CaptureOptions{
		Actions:       actions,
		MaskSelectors: capture.SplitSelectors(maskSelectors),
		Headers:       headers,
	})
	if err != nil {
		log.Fatalf("Failed to capture screenshot: %v", err)
	}

	path, err := s.Put(ctx, storage.ObjectKey("capture", url, "png", time.Now()), result.Screenshot)
	if err != nil {
		log.Fatalf("Failed to save screenshot: %v", err)
	}

	log.Printf("Captured %s (%s) to %s", url, humanize.Bytes(uint64(len(result.Screenshot))), path)

	if err := json.NewEncoder(os.Stdout).Encode(CaptureOutput{
		ScreenshotPath: path,
		Bytes:          len(result.Screenshot),
	}); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}
