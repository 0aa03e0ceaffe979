package batch

import (
	"context"
	"fmt"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/storage"
	"time"

	"golang.org/x/sync/errgroup"
)

type Artifacts struct {
	BaselineURL string `json:"baselineUrl,omitempty"`
	TargetURL   string `json:"targetUrl,omitempty"`
	DiffURL     string `json:"diffUrl,omitempty"`
}

// Upload stores the screenshots and the diff image of a successful outcome.
// A side whose screenshot is nil is skipped.
func Upload(ctx context.Context, s storage.Storage, o *Outcome, now time.Time) (*Artifacts, error) {
	if o.Result == nil {
		return nil, fmt.Errorf("nothing to upload for %s vs %s", o.Pair.Baseline, o.Pair.Target)
	}

	var artifacts Artifacts
	eg, ctx := errgroup.WithContext(ctx)
	put := func(dst *string, key string, data []byte) {
		eg.Go(func() error {
			url, err := s.Put(ctx, key, data)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", key, err)
			}
			*dst = url
			return nil
		})
	}

	if o.Baseline != nil {
		put(&artifacts.BaselineURL, storage.ObjectKey("capture", o.Pair.Baseline, "png", now), o.Baseline)
	}
	if o.Target != nil {
		put(&artifacts.TargetURL, storage.ObjectKey("capture", o.Pair.Target, "png", now), o.Target)
	}
	put(&artifacts.DiffURL, storage.ObjectKey("diff", o.Pair.Baseline+o.Pair.Target, "png", now), o.Result.Diff)

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &artifacts, nil
}

// Report is what a worker sends back once a comparison has been uploaded.
type Report struct {
	Artifacts
	PixelCount  int64                 `json:"pixelCount"`
	TotalPixels int64                 `json:"totalPixels"`
	DiffPercent float64               `json:"diffPercent"`
	Regions     []diffimage.Rectangle `json:"regions,omitempty"`
}

func NewReport(result *diffimage.Result, artifacts *Artifacts) Report {
	report := Report{
		PixelCount:  result.PixelCount,
		TotalPixels: result.TotalPixels,
		DiffPercent: result.DiffPercent,
		Regions:     result.Regions,
	}
	if artifacts != nil {
		report.Artifacts = *artifacts
	}
	return report
}
