package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"pagediff/internal/batch"
	"pagediff/internal/capture"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/storage"
	"time"

	"golang.org/x/xerrors"
)

type Worker struct {
	Runner  *batch.Runner
	Storage storage.Storage
	Client  *http.Client
}

// previousRun is the part of the artifacts callback response a scheduled
// run compares against.
type previousRun struct {
	TargetURL string `json:"targetUrl"`
	Target    string `json:"target"`
}

// Compare captures both sides of pair and uploads the screenshots and the diff.
func (w *Worker) Compare(ctx context.Context, pair batch.Pair) (*batch.Report, error) {
	outcome, err := w.Runner.RunPair(ctx, pair)
	if err != nil {
		return nil, xerrors.Errorf("failed to compare %s with %s: %w", pair.Baseline, pair.Target, err)
	}

	artifacts, err := batch.Upload(ctx, w.Storage, outcome, time.Now())
	if err != nil {
		return nil, xerrors.Errorf("failed to upload artifacts: %w", err)
	}

	report := batch.NewReport(outcome.Result, artifacts)
	return &report, nil
}

// CompareWithPrevious captures pair.Target and compares it with the target of
// the previous run, fetched from callbackURL. The first run only uploads the
// capture.
func (w *Worker) CompareWithPrevious(ctx context.Context, pair batch.Pair, callbackURL string) (*batch.Report, error) {
	previous, err := w.previous(ctx, callbackURL)
	if err != nil {
		return nil, err
	}

	result, err := w.Runner.Capturer.Capture(ctx, pair.Target, capture.CaptureOptions{
		Width:         pair.Width,
		Height:        pair.Height,
		Actions:       pair.Actions,
		MaskSelectors: pair.MaskSelectors,
		Headers:       pair.Headers,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to capture screenshot: %w", err)
	}

	now := time.Now()
	if previous.TargetURL == "" || previous.Target == "" {
		url, err := w.Storage.Put(ctx, storage.ObjectKey("capture", pair.Target, "png", now), result.Screenshot)
		if err != nil {
			return nil, xerrors.Errorf("failed to upload screenshot: %w", err)
		}
		return &batch.Report{Artifacts: batch.Artifacts{TargetURL: url}}, nil
	}

	baseline, err := diffimage.DecodeBase64String(previous.Target)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode previous screenshot: %w", err)
	}
	diff, err := w.Runner.Comparator.Compare(baseline, result.Screenshot)
	if err != nil {
		return nil, xerrors.Errorf("failed to generate diff: %w", err)
	}

	artifacts, err := batch.Upload(ctx, w.Storage, &batch.Outcome{Pair: pair, Target: result.Screenshot, Result: diff}, now)
	if err != nil {
		return nil, xerrors.Errorf("failed to upload artifacts: %w", err)
	}
	artifacts.BaselineURL = previous.TargetURL

	report := batch.NewReport(diff, artifacts)
	return &report, nil
}

func (w *Worker) previous(ctx context.Context, callbackURL string) (*previousRun, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, callbackURL, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}

	response, err := w.Client.Do(request)
	if err != nil {
		return nil, xerrors.Errorf("failed to fetch previous artifacts: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("failed to fetch previous artifacts: %s", response.Status)
	}

	var previous previousRun
	if err := json.NewDecoder(response.Body).Decode(&previous); err != nil {
		return nil, xerrors.Errorf("failed to decode previous artifacts: %w", err)
	}
	return &previous, nil
}

// Callback PATCHes report to callbackURL.
func (w *Worker) Callback(ctx context.Context, callbackURL string, report *batch.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return xerrors.Errorf("failed to marshal report: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, callbackURL, bytes.NewReader(body))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := w.Client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		message, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return xerrors.Errorf("callback rejected with %s: %s", response.Status, bytes.TrimSpace(message))
	}
	return nil
}

func parseActions(s string) ([]capture.Action, error) {
	if s == "" {
		return nil, nil
	}
	var actions []capture.Action
	if err := json.Unmarshal([]byte(s), &actions); err != nil {
		return nil, fmt.Errorf("invalid actions %q: %w", s, err)
	}
	if err := capture.ValidateActions(actions); err != nil {
		return nil, err
	}
	return actions, nil
}
