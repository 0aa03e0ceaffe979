package batch_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"pagediff/internal/batch"
	"pagediff/internal/capture"
	diffimage "pagediff/internal/diff/image"
	"sync"
	"testing"
)

type fakeCapturer struct {
	mu       sync.Mutex
	pages    map[string][]byte
	captured []string
}

func (f *fakeCapturer) Capture(ctx context.Context, url string, options capture.CaptureOptions) (*capture.CaptureResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, url)

	data, ok := f.pages[url]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return &capture.CaptureResult{Screenshot: data}, nil
}

// page renders a 10x10 white page with the first rows painted black.
func page(t *testing.T, blackRows int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, 10, blackRows), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	capturer := &fakeCapturer{pages: map[string][]byte{
		"https://blank":    page(t, 0),
		"https://one-row":  page(t, 1),
		"https://half":     page(t, 5),
		"https://blank-v2": page(t, 0),
	}}
	runner := &batch.Runner{
		Capturer:    capturer,
		Comparator:  diffimage.NewComparator(diffimage.DefaultOptions()),
		Concurrency: 2,
	}

	pairs := []batch.Pair{
		{Label: "same", Baseline: "https://blank", Target: "https://blank-v2"},
		{Label: "broken", Baseline: "https://blank", Target: "https://down"},
		{Label: "small", Baseline: "https://blank", Target: "https://one-row"},
		{Label: "large", Baseline: "https://blank", Target: "https://half"},
	}
	outcomes := runner.Run(context.Background(), pairs)

	if len(outcomes) != len(pairs) {
		t.Fatalf("Expected %d outcomes, got %d", len(pairs), len(outcomes))
	}
	for i := range pairs {
		if outcomes[i].Pair.Label != pairs[i].Label {
			t.Errorf("Expected outcome %d to be %s, got %s", i, pairs[i].Label, outcomes[i].Pair.Label)
		}
	}

	if outcomes[1].Err == nil {
		t.Error("Expected the broken pair to fail")
	}
	if outcomes[0].Err != nil || outcomes[0].Result.DiffPercent != 0 {
		t.Errorf("Expected no difference, got %+v", outcomes[0])
	}
	if got := outcomes[2].Result.DiffPercent; got != 10 {
		t.Errorf("Expected 10%%, got %v", got)
	}
	if got := outcomes[3].Result.DiffPercent; got != 50 {
		t.Errorf("Expected 50%%, got %v", got)
	}

	summary := batch.Summarize(outcomes, 10)
	if summary != (batch.Summary{Total: 4, Failed: 1, Exceeded: 1}) {
		t.Errorf("Unexpected summary %+v", summary)
	}
}

func TestOutcome_Exceeds(t *testing.T) {
	t.Parallel()

	at := func(percent float64) *batch.Outcome {
		return &batch.Outcome{Result: &diffimage.Result{DiffPercent: percent}}
	}

	if at(5).Exceeds(batch.DefaultLimitPercent) {
		t.Error("Expected exactly the limit not to exceed it")
	}
	if !at(5.01).Exceeds(batch.DefaultLimitPercent) {
		t.Error("Expected 5.01 to exceed 5")
	}
	if (&batch.Outcome{Err: errors.New("boom")}).Exceeds(0) {
		t.Error("Expected failed outcomes never to exceed")
	}
}
