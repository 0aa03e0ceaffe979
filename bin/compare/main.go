package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"pagediff/internal/config"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/storage"
	"time"

	"github.com/dustin/go-humanize"
)

type CompareOutput struct {
	DiffPath    string  `json:"diffPath"`
	PixelCount  int64   `json:"pixelCount"`
	TotalPixels int64   `json:"totalPixels"`
	DiffPercent float64 `json:"diffPercent"`
}

func main() {
	var storageLocation string
	var s3Endpoint string
	var threshold float64
	var metric string
	var detectAntialiasing bool
	var maxPixels int64
	flag.StringVar(&storageLocation, "storage", config.EnvOrDefault("STORAGE", "/tmp"), "Output storage: a directory, file:///path or s3://bucket/prefix")
	flag.StringVar(&s3Endpoint, "s3-endpoint", config.EnvOrDefault("S3_ENDPOINT", ""), "Custom S3 endpoint (e.g. MinIO)")
	flag.Float64Var(&threshold, "threshold", config.EnvOrDefault("THRESHOLD", diffimage.DefaultOptions().Threshold), "Color distance in [0, 1] above which a pixel differs")
	flag.StringVar(&metric, "metric", config.EnvOrDefault("METRIC", string(diffimage.MetricYIQ)), "Color metric (yiq or ciede2000)")
	flag.BoolVar(&detectAntialiasing, "detect-antialiasing", config.EnvOrDefault("DETECT_ANTIALIASING", false), "Ignore anti-aliased pixels")
	flag.Int64Var(&maxPixels, "max-pixels", config.EnvOrDefault("MAX_PIXELS", int64(diffimage.DefaultMaxPixels)), "Largest image or canvas in pixels a comparison accepts; 0 disables the limit")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("baseline, target not specified")
	}
	baselinePath := args[0]
	targetPath := args[1]

	options := diffimage.DefaultOptions()
	options.Threshold = threshold
	options.Metric = diffimage.Metric(metric)
	options.DetectAntialiasing = detectAntialiasing
	options.MaxPixels = maxPixels
	if err := options.Validate(); err != nil {
		log.Fatalf("Invalid comparison options: %v", err)
	}

	baseline, err := os.ReadFile(baselinePath)
	if err != nil {
		log.Fatalf("Failed to read baseline image: %v", err)
	}
	target, err := os.ReadFile(targetPath)
	if err != nil {
		log.Fatalf("Failed to read target image: %v", err)
	}

	ctx := context.Background()
	s, err := storage.Open(ctx, storageLocation, s3Endpoint)
	if err != nil {
		log.Fatalf("Failed to create storage backend: %v", err)
	}

	result, err := diffimage.NewComparator(options).Compare(baseline, target)
	if err != nil {
		log.Fatalf("Failed to compare images: %v", err)
	}

	diffPath, err := s.Put(ctx, storage.ObjectKey("diff", baselinePath+targetPath, "png", time.Now()), result.Diff)
	if err != nil {
		log.Fatalf("Failed to save diff image: %v", err)
	}

	log.Printf("%s of %s pixels differ (%.2f%%), %dx%d",
		humanize.Comma(result.PixelCount), humanize.Comma(result.TotalPixels), result.DiffPercent, result.Width, result.Height)
	if result.DimensionsDiffer {
		log.Printf("Images differ in size, compared on a %dx%d canvas", result.Width, result.Height)
	}

	if err := json.NewEncoder(os.Stdout).Encode(CompareOutput{
		DiffPath:    diffPath,
		PixelCount:  result.PixelCount,
		TotalPixels: result.TotalPixels,
		DiffPercent: result.DiffPercent,
	}); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}
