package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	v1 "pagediff/api/v1"
	"pagediff/internal/batch"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/myhttp"
	"pagediff/internal/storage"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
)

const (
	comparisonKind          = "comparison"
	scheduledComparisonKind = "scheduledcomparison"
)

type ArtifactsResponse struct {
	batch.Report
	// Baseline, Target and Diff are the stored images, base64 encoded.
	Baseline           string       `json:"baseline,omitempty"`
	Target             string       `json:"target,omitempty"`
	Diff               string       `json:"diff,omitempty"`
	LastComparisonTime *metav1.Time `json:"lastComparisonTime,omitempty"`
}

func resultOf(kind string, u *unstructured.Unstructured) (*v1.ComparisonResult, error) {
	switch kind {
	case comparisonKind:
		var comparison v1.Comparison
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &comparison); err != nil {
			return nil, fmt.Errorf("failed to convert comparison: %w", err)
		}
		return &comparison.Status.ComparisonResult, nil
	case scheduledComparisonKind:
		var scheduled v1.ScheduledComparison
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &scheduled); err != nil {
			return nil, fmt.Errorf("failed to convert scheduled comparison: %w", err)
		}
		return &scheduled.Status.ComparisonResult, nil
	}
	return nil, fmt.Errorf("unsupported resource kind %q", kind)
}

func supportedKind(kind string) bool {
	return kind == comparisonKind || kind == scheduledComparisonKind
}

func resourceOf(r *http.Request) schema.GroupVersionResource {
	return schema.GroupVersionResource{
		Group:    r.PathValue("group"),
		Version:  r.PathValue("version"),
		Resource: r.PathValue("kind") + "s",
	}
}

// ListArtifacts returns the latest comparison result of a resource together
// with its stored images.
func ListArtifacts(dynamicClient dynamic.Interface, storageClient storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())
		kind := r.PathValue("kind")
		if !supportedKind(kind) {
			myhttp.WriteError(w, http.StatusBadRequest, "Unsupported resource kind")
			return
		}

		u, err := dynamicClient.Resource(resourceOf(r)).Namespace(r.PathValue("namespace")).Get(r.Context(), r.PathValue("name"), metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				myhttp.WriteError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
				return
			}
			logger.Error(fmt.Sprintf("failed to get resource: %s", err))
			myhttp.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}

		result, err := resultOf(kind, u)
		if err != nil {
			logger.Error(err.Error())
			myhttp.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}

		response := ArtifactsResponse{
			Report: batch.Report{
				Artifacts: batch.Artifacts{
					BaselineURL: result.BaselineURL,
					TargetURL:   result.TargetURL,
					DiffURL:     result.DiffURL,
				},
				PixelCount:  result.PixelCount,
				TotalPixels: result.TotalPixels,
				DiffPercent: result.DiffPercent,
			},
			LastComparisonTime: result.LastComparisonTime,
		}
		for _, artifact := range []struct {
			url string
			dst *string
		}{
			{result.BaselineURL, &response.Baseline},
			{result.TargetURL, &response.Target},
			{result.DiffURL, &response.Diff},
		} {
			if artifact.url == "" {
				continue
			}
			data, err := storageClient.Get(r.Context(), artifact.url)
			if err != nil {
				logger.Warn(fmt.Sprintf("failed to get artifact %s: %s", artifact.url, err))
				continue
			}
			*artifact.dst = diffimage.EncodeBase64(data)
		}

		myhttp.WriteJSON(w, r, http.StatusOK, response)
	}
}

// UpdateArtifacts records a worker's report in the status of a resource.
func UpdateArtifacts(dynamicClient dynamic.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())
		if !supportedKind(r.PathValue("kind")) {
			myhttp.WriteError(w, http.StatusBadRequest, "Unsupported resource kind")
			return
		}

		var report batch.Report
		if err := myhttp.DecodeJSON(w, r, &report); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Every field is written so that a merge patch also clears stale values.
		patchData, err := json.Marshal(map[string]any{
			"status": map[string]any{
				"baselineUrl":        report.BaselineURL,
				"targetUrl":          report.TargetURL,
				"diffUrl":            report.DiffURL,
				"pixelCount":         report.PixelCount,
				"totalPixels":        report.TotalPixels,
				"diffPercent":        report.DiffPercent,
				"lastComparisonTime": metav1.NewTime(time.Now()),
			},
		})
		if err != nil {
			logger.Error(fmt.Sprintf("failed to marshal patch data: %s", err))
			myhttp.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}

		u, err := dynamicClient.Resource(resourceOf(r)).Namespace(r.PathValue("namespace")).Patch(
			r.Context(),
			r.PathValue("name"),
			types.MergePatchType,
			patchData,
			metav1.PatchOptions{},
			"status",
		)
		if err != nil {
			if apierrors.IsNotFound(err) {
				myhttp.WriteError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
				return
			}
			logger.Error(fmt.Sprintf("failed to patch status: %s", err))
			myhttp.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}

		b, err := u.MarshalJSON()
		if err != nil {
			logger.Error(fmt.Sprintf("failed to marshal json: %s", err))
			myhttp.WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}
}
