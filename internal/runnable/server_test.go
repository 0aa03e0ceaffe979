package runnable

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"pagediff/internal/capture"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/scenario"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
)

type nopCapturer struct{}

func (nopCapturer) Capture(ctx context.Context, url string, options capture.CaptureOptions) (*capture.CaptureResult, error) {
	return &capture.CaptureResult{}, nil
}

func TestServer_Handler(t *testing.T) {
	t.Setenv("COMPARE_CACHE_SIZE", "4")

	store, err := scenario.NewFileStore(filepath.Join(t.TempDir(), "scenarios.json"))
	if err != nil {
		t.Fatal(err)
	}
	histogram, err := noop.NewMeterProvider().Meter("test").Int64Histogram("http_requests_duration_micro_seconds")
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		deps   Dependencies
		method string
		target string
		body   string
		status int
	}{
		{"healthz", Dependencies{}, http.MethodGet, "/healthz", "", http.StatusOK},
		{"metrics", Dependencies{}, http.MethodGet, "/metrics", "", http.StatusOK},
		{"compare", Dependencies{}, http.MethodPost, "/api/compare", `{}`, http.StatusBadRequest},
		{"screenshot without browser", Dependencies{}, http.MethodPost, "/api/screenshot", `{}`, http.StatusNotFound},
		{"screenshot", Dependencies{Capturer: nopCapturer{}}, http.MethodPost, "/api/screenshot", `{}`, http.StatusBadRequest},
		{"batch", Dependencies{Capturer: nopCapturer{}}, http.MethodPost, "/api/batch", `{}`, http.StatusBadRequest},
		{"scenarios without store", Dependencies{}, http.MethodGet, "/api/scenarios", "", http.StatusNotFound},
		{"scenarios", Dependencies{Store: store}, http.MethodGet, "/api/scenarios", "", http.StatusOK},
		{"collections", Dependencies{Store: store}, http.MethodGet, "/api/scenarios/collections", "", http.StatusOK},
		{"unknown scenario", Dependencies{Store: store}, http.MethodDelete, "/api/scenarios/nope", "", http.StatusNotFound},
		{"artifacts without kubernetes", Dependencies{}, http.MethodPatch, "/api/default/pagediff.dev/v1/comparison/x/artifacts", `{}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.deps.Options = diffimage.DefaultOptions()
			handler, err := NewServer(tt.deps).Handler(logger, histogram, nil)
			if err != nil {
				t.Fatal(err)
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))
			if recorder.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, recorder.Code, recorder.Body.String())
			}
		})
	}
}
