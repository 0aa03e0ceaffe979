package routes_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"pagediff/internal/routes"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	dynamicfake "k8s.io/client-go/dynamic/fake"
)

const artifactsPattern = "/api/{namespace}/{group}/{version}/{kind}/{name}/artifacts"

func TestListArtifacts(t *testing.T) {
	t.Parallel()

	s := newMemStorage()
	diffURL, _ := s.Put(t.Context(), "diff/abc/20240101000000.png", []byte("diff"))
	targetURL, _ := s.Put(t.Context(), "capture/abc/20240101000000.png", []byte("target"))

	comparison := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "pagediff.dev/v1",
		"kind":       "Comparison",
		"metadata": map[string]any{
			"name":      "landing",
			"namespace": "default",
		},
		"spec": map[string]any{
			"baseline": "https://a.example",
			"target":   "https://b.example",
		},
		"status": map[string]any{
			"targetUrl":   targetURL,
			"diffUrl":     diffURL,
			"baselineUrl": "mem://gone",
			"pixelCount":  int64(12),
			"totalPixels": int64(400),
			"diffPercent": float64(3),
		},
	}}
	client := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme(), comparison)
	handler := routes.ListArtifacts(client, s)

	recorder := serve("GET "+artifactsPattern, handler, http.MethodGet, "/api/default/pagediff.dev/v1/comparison/landing/artifacts", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var got routes.ArtifactsResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.PixelCount != 12 || got.TotalPixels != 400 || got.DiffPercent != 3 {
		t.Errorf("Unexpected metrics %+v", got.Report)
	}
	if got.Diff != base64.StdEncoding.EncodeToString([]byte("diff")) || got.Target != base64.StdEncoding.EncodeToString([]byte("target")) {
		t.Errorf("Unexpected images %q %q", got.Diff, got.Target)
	}
	if got.Baseline != "" || got.BaselineURL != "mem://gone" {
		t.Errorf("Expected a missing baseline to be skipped, got %q", got.Baseline)
	}

	for target, status := range map[string]int{
		"/api/default/pagediff.dev/v1/comparison/missing/artifacts": http.StatusNotFound,
		"/api/default/pagediff.dev/v1/pod/landing/artifacts":        http.StatusBadRequest,
	} {
		if recorder := serve("GET "+artifactsPattern, handler, http.MethodGet, target, ""); recorder.Code != status {
			t.Errorf("%s: expected %d, got %d", target, status, recorder.Code)
		}
	}
}

func TestUpdateArtifacts(t *testing.T) {
	t.Parallel()

	handler := routes.UpdateArtifacts(dynamicfake.NewSimpleDynamicClient(runtime.NewScheme()))

	for _, tt := range []struct {
		target string
		body   string
		status int
	}{
		{"/api/default/pagediff.dev/v1/pod/landing/artifacts", `{}`, http.StatusBadRequest},
		{"/api/default/pagediff.dev/v1/comparison/landing/artifacts", `{"diffUrl":`, http.StatusBadRequest},
		{"/api/default/pagediff.dev/v1/comparison/landing/artifacts", `{"diffUrl":"mem://diff.png","pixelCount":1}`, http.StatusNotFound},
	} {
		if recorder := serve("PATCH "+artifactsPattern, handler, http.MethodPatch, tt.target, tt.body); recorder.Code != tt.status {
			t.Errorf("%s %s: expected %d, got %d", tt.target, tt.body, tt.status, recorder.Code)
		}
	}
}
