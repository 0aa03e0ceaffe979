package routes

import (
	"fmt"
	"net/http"
	"pagediff/internal/capture"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/myhttp"
	"pagediff/internal/storage"
	"time"
)

type ScreenshotRequest struct {
	URL           string            `json:"url"`
	Actions       []capture.Action  `json:"actions,omitempty"`
	Width         int               `json:"width,omitempty"`
	Height        int               `json:"height,omitempty"`
	MaskSelectors []string          `json:"maskSelectors,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
}

type ScreenshotResponse struct {
	Screenshot string `json:"screenshot"`
	// URL is set when the server keeps screenshots in storage.
	URL string `json:"url,omitempty"`
}

// Screenshot captures url and returns it as base64 PNG. storageClient may be nil.
func Screenshot(capturer capture.Capturer, storageClient storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		var request ScreenshotRequest
		if err := myhttp.DecodeJSON(w, r, &request); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if request.URL == "" {
			myhttp.WriteError(w, http.StatusBadRequest, "URL is required")
			return
		}
		if err := capture.ValidateActions(request.Actions); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := capturer.Capture(r.Context(), request.URL, capture.CaptureOptions{
			Width:         request.Width,
			Height:        request.Height,
			Actions:       request.Actions,
			MaskSelectors: request.MaskSelectors,
			Headers:       request.Headers,
		})
		if err != nil {
			logger.Error(fmt.Sprintf("failed to capture %s: %s", request.URL, err))
			myhttp.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		response := ScreenshotResponse{Screenshot: diffimage.EncodeBase64(result.Screenshot)}
		if storageClient != nil {
			url, err := storageClient.Put(r.Context(), storage.ObjectKey("capture", request.URL, "png", time.Now()), result.Screenshot)
			if err != nil {
				logger.Warn(fmt.Sprintf("failed to store screenshot: %s", err))
			} else {
				response.URL = url
			}
		}

		myhttp.WriteJSON(w, r, http.StatusOK, response)
	}
}
