package capture

import (
	"context"
)

type CaptureResult struct {
	Screenshot []byte
}

type CaptureOptions struct {
	// Width and Height override the configured viewport when positive.
	Width   int
	Height  int
	Actions []Action

	MaskSelectors []string
	Headers       map[string]string
}

type Capturer interface {
	Capture(ctx context.Context, url string, options CaptureOptions) (*CaptureResult, error)
}

// Element describes the DOM element found under a viewport coordinate.
type Element struct {
	Selector  string `json:"selector"`
	TagName   string `json:"tagName"`
	InnerText string `json:"innerText"`
}

type Inspector interface {
	Inspect(ctx context.Context, url string, x float64, y float64, options CaptureOptions) (*Element, error)
}
