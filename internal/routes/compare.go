package routes

import (
	"errors"
	"fmt"
	"net/http"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/myhttp"
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
)

// DiffSettings overrides the server's diff options for one request.
type DiffSettings struct {
	Threshold          *float64 `json:"threshold,omitempty"`
	Metric             string   `json:"metric,omitempty"`
	DetectAntialiasing *bool    `json:"detectAntialiasing,omitempty"`
}

func (d DiffSettings) apply(defaults diffimage.Options) (diffimage.Options, error) {
	options := defaults
	if d.Threshold != nil {
		if *d.Threshold < 0 || *d.Threshold > 1 {
			return options, fmt.Errorf("threshold must be between 0 and 1, got %g", *d.Threshold)
		}
		options.Threshold = *d.Threshold
	}
	if d.Metric != "" {
		metric := diffimage.Metric(d.Metric)
		if !metric.Valid() {
			return options, fmt.Errorf("unknown metric %q", d.Metric)
		}
		options.Metric = metric
	}
	if d.DetectAntialiasing != nil {
		options.DetectAntialiasing = *d.DetectAntialiasing
	}
	return options, nil
}

type CompareRequest struct {
	Screenshot1 string `json:"screenshot1"`
	Screenshot2 string `json:"screenshot2"`
	DiffSettings
}

type CompareResponse struct {
	Diff        string                `json:"diff"`
	PixelCount  int64                 `json:"pixelCount"`
	TotalPixels int64                 `json:"totalPixels"`
	DiffPercent float64               `json:"diffPercent"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Regions     []diffimage.Rectangle `json:"regions"`
}

func newCompareResponse(result *diffimage.Result) *CompareResponse {
	regions := result.Regions
	if regions == nil {
		regions = []diffimage.Rectangle{}
	}
	return &CompareResponse{
		Diff:        diffimage.EncodeBase64(result.Diff),
		PixelCount:  result.PixelCount,
		TotalPixels: result.TotalPixels,
		DiffPercent: result.DiffPercent,
		Width:       result.Width,
		Height:      result.Height,
		Regions:     regions,
	}
}

// CompareCache holds recent comparison responses keyed by a hash of the
// screenshots and the effective options.
type CompareCache struct {
	cache *lru.Cache
}

func NewCompareCache(size int) (*CompareCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CompareCache{cache: cache}, nil
}

func (c *CompareCache) get(key uint64) (*CompareResponse, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*CompareResponse), true
}

func (c *CompareCache) add(key uint64, response *CompareResponse) {
	if c == nil {
		return
	}
	c.cache.Add(key, response)
}

func (c *CompareCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

func compareKey(request *CompareRequest, options diffimage.Options) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(request.Screenshot1)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(request.Screenshot2)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(strconv.FormatFloat(options.Threshold, 'g', -1, 64))
	_, _ = d.WriteString(string(options.Metric))
	_, _ = d.WriteString(strconv.FormatBool(options.DetectAntialiasing))
	return d.Sum64()
}

func compareStatus(err error) (int, string) {
	var decodeErr *diffimage.DecodeError
	switch {
	case errors.Is(err, diffimage.ErrMissingInput):
		return http.StatusBadRequest, "Both screenshots are required"
	case errors.Is(err, diffimage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, decodeErr.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// Compare diffs two base64 encoded screenshots. cache may be nil.
func Compare(defaults diffimage.Options, cache *CompareCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		var request CompareRequest
		if err := myhttp.DecodeJSON(w, r, &request); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		options, err := request.apply(defaults)
		if err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		key := compareKey(&request, options)
		if response, ok := cache.get(key); ok {
			logger.Debug("compare cache hit")
			myhttp.WriteJSON(w, r, http.StatusOK, response)
			return
		}

		result, err := diffimage.NewComparator(options).CompareBase64(request.Screenshot1, request.Screenshot2)
		if err != nil {
			status, message := compareStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error(fmt.Sprintf("failed to compare screenshots: %s", err))
			}
			myhttp.WriteError(w, status, message)
			return
		}

		response := newCompareResponse(result)
		cache.add(key, response)
		myhttp.WriteJSON(w, r, http.StatusOK, response)
	}
}
