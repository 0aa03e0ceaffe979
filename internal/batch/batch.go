// Package batch captures and compares many URL pairs concurrently.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"pagediff/internal/capture"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/scenario"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultLimitPercent is the diff percentage above which an outcome is
// highlighted as a regression.
const DefaultLimitPercent = 5.0

type Pair struct {
	ID       string           `json:"id,omitempty"`
	Label    string           `json:"label,omitempty"`
	Baseline string           `json:"url1"`
	Target   string           `json:"url2"`
	Actions  []capture.Action `json:"actions,omitempty"`
	Width    int              `json:"width,omitempty"`
	Height   int              `json:"height,omitempty"`

	MaskSelectors []string          `json:"maskSelectors,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
}

func FromScenario(s scenario.Scenario) Pair {
	return Pair{
		ID:       s.ID,
		Label:    s.Name,
		Baseline: s.URL1,
		Target:   s.URL2,
		Actions:  s.Actions,
	}
}

type Outcome struct {
	Pair     Pair
	Baseline []byte
	Target   []byte
	Result   *diffimage.Result
	Err      error
	Elapsed  time.Duration
}

// Exceeds reports whether the comparison succeeded with a diff strictly
// greater than limitPercent.
func (o *Outcome) Exceeds(limitPercent float64) bool {
	return o.Err == nil && o.Result != nil && o.Result.DiffPercent > limitPercent
}

type Runner struct {
	Capturer   capture.Capturer
	Comparator *diffimage.Comparator
	// Concurrency bounds how many pairs run at once; 0 means one.
	Concurrency int
}

// RunPair captures both sides of pair in parallel and compares them.
func (r *Runner) RunPair(ctx context.Context, pair Pair) (*Outcome, error) {
	start := time.Now()
	options := capture.CaptureOptions{
		Width:         pair.Width,
		Height:        pair.Height,
		Actions:       pair.Actions,
		MaskSelectors: pair.MaskSelectors,
		Headers:       pair.Headers,
	}

	var baseline, target *capture.CaptureResult
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		baseline, err = r.Capturer.Capture(egCtx, pair.Baseline, options)
		if err != nil {
			return fmt.Errorf("failed to capture %s: %w", pair.Baseline, err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		target, err = r.Capturer.Capture(egCtx, pair.Target, options)
		if err != nil {
			return fmt.Errorf("failed to capture %s: %w", pair.Target, err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result, err := r.Comparator.Compare(baseline.Screenshot, target.Screenshot)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Pair:     pair,
		Baseline: baseline.Screenshot,
		Target:   target.Screenshot,
		Result:   result,
		Elapsed:  time.Since(start),
	}, nil
}

// Run processes every pair and returns one outcome per pair in input order.
// A failing pair records its error in its outcome and does not stop the rest.
func (r *Runner) Run(ctx context.Context, pairs []Pair) []Outcome {
	outcomes := make([]Outcome, len(pairs))

	var eg errgroup.Group
	eg.SetLimit(max(r.Concurrency, 1))
	for i, pair := range pairs {
		eg.Go(func() error {
			outcome, err := r.RunPair(ctx, pair)
			if err != nil {
				slog.Warn("comparison failed", "baseline", pair.Baseline, "target", pair.Target, "error", err)
				outcomes[i] = Outcome{Pair: pair, Err: err}
				return nil
			}
			outcomes[i] = *outcome
			return nil
		})
	}
	_ = eg.Wait()

	return outcomes
}

type Summary struct {
	Total    int
	Failed   int
	Exceeded int
}

func Summarize(outcomes []Outcome, limitPercent float64) Summary {
	s := Summary{Total: len(outcomes)}
	for i := range outcomes {
		switch {
		case outcomes[i].Err != nil:
			s.Failed++
		case outcomes[i].Exceeds(limitPercent):
			s.Exceeded++
		}
	}
	return s
}
