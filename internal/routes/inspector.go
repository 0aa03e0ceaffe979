package routes

import (
	"fmt"
	"net/http"
	"pagediff/internal/capture"
	"pagediff/internal/myhttp"
)

type InspectorRequest struct {
	URL    string  `json:"url"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

// Inspector reports the element found at (x, y) of the rendered page.
func Inspector(inspector capture.Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request InspectorRequest
		if err := myhttp.DecodeJSON(w, r, &request); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if request.URL == "" {
			myhttp.WriteError(w, http.StatusBadRequest, "URL is required")
			return
		}

		element, err := inspector.Inspect(r.Context(), request.URL, request.X, request.Y, capture.CaptureOptions{
			Width:  request.Width,
			Height: request.Height,
		})
		if err != nil {
			myhttp.Logger(r.Context()).Error(fmt.Sprintf("failed to inspect %s: %s", request.URL, err))
			myhttp.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		myhttp.WriteJSON(w, r, http.StatusOK, element)
	}
}
