package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"pagediff/internal/batch"
	"pagediff/internal/capture"
	diffimage "pagediff/internal/diff/image"
	"pagediff/internal/myhttp"
	"pagediff/internal/scenario"
	"pagediff/internal/storage"
	"time"
)

// BatchConfig holds what the batch endpoint needs. Store and Storage may be nil.
type BatchConfig struct {
	Store       scenario.Store
	Capturer    capture.Capturer
	Storage     storage.Storage
	Options     diffimage.Options
	Concurrency int
}

type BatchRequest struct {
	CollectionID string       `json:"collectionId,omitempty"`
	ScenarioIDs  []string     `json:"scenarioIds,omitempty"`
	Pairs        []batch.Pair `json:"pairs,omitempty"`
	LimitPercent *float64     `json:"limitPercent,omitempty"`
	DiffSettings
}

type BatchOutcome struct {
	ID          string                `json:"id,omitempty"`
	Label       string                `json:"label,omitempty"`
	URL1        string                `json:"url1"`
	URL2        string                `json:"url2"`
	PixelCount  int64                 `json:"pixelCount"`
	TotalPixels int64                 `json:"totalPixels"`
	DiffPercent float64               `json:"diffPercent"`
	Regions     []diffimage.Rectangle `json:"regions,omitempty"`
	Exceeded    bool                  `json:"exceeded"`
	// Diff is only inlined when the server has no artifact storage.
	Diff      string           `json:"diff,omitempty"`
	Artifacts *batch.Artifacts `json:"artifacts,omitempty"`
	Error     string           `json:"error,omitempty"`
	ElapsedMs int64            `json:"elapsedMs"`
}

type BatchResponse struct {
	Outcomes     []BatchOutcome `json:"outcomes"`
	Total        int            `json:"total"`
	Failed       int            `json:"failed"`
	Exceeded     int            `json:"exceeded"`
	LimitPercent float64        `json:"limitPercent"`
}

var errNoPairs = errors.New("nothing to compare: give pairs, scenarioIds or collectionId")

func resolvePairs(ctx context.Context, store scenario.Store, request *BatchRequest) ([]batch.Pair, error) {
	if len(request.Pairs) > 0 {
		return request.Pairs, nil
	}
	if store == nil || (len(request.ScenarioIDs) == 0 && request.CollectionID == "") {
		return nil, errNoPairs
	}

	var scenarios []scenario.Scenario
	if len(request.ScenarioIDs) > 0 {
		for _, id := range request.ScenarioIDs {
			s, err := store.GetScenario(ctx, id)
			if err != nil {
				return nil, err
			}
			scenarios = append(scenarios, *s)
		}
	} else {
		var err error
		scenarios, err = store.ListScenarios(ctx, request.CollectionID)
		if err != nil {
			return nil, err
		}
	}

	pairs := make([]batch.Pair, 0, len(scenarios))
	for _, s := range scenarios {
		pairs = append(pairs, batch.FromScenario(s))
	}
	return pairs, nil
}

func validatePairs(pairs []batch.Pair) error {
	if len(pairs) == 0 {
		return errNoPairs
	}
	for i, pair := range pairs {
		if pair.Baseline == "" || pair.Target == "" {
			return fmt.Errorf("pair %d: url1 and url2 are required", i)
		}
		if err := capture.ValidateActions(pair.Actions); err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
	}
	return nil
}

// Batch captures and compares many URL pairs, taken from the request or
// from saved scenarios.
func Batch(config BatchConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		var request BatchRequest
		if err := myhttp.DecodeJSON(w, r, &request); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		options, err := request.apply(config.Options)
		if err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		limitPercent := batch.DefaultLimitPercent
		if request.LimitPercent != nil {
			limitPercent = *request.LimitPercent
		}

		pairs, err := resolvePairs(r.Context(), config.Store, &request)
		if err != nil {
			if errors.Is(err, errNoPairs) {
				myhttp.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeStoreError(w, r, err, "Scenario")
			return
		}
		if err := validatePairs(pairs); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		runner := &batch.Runner{
			Capturer:    config.Capturer,
			Comparator:  diffimage.NewComparator(options),
			Concurrency: config.Concurrency,
		}
		outcomes := runner.Run(r.Context(), pairs)
		summary := batch.Summarize(outcomes, limitPercent)

		response := BatchResponse{
			Outcomes:     make([]BatchOutcome, 0, len(outcomes)),
			Total:        summary.Total,
			Failed:       summary.Failed,
			Exceeded:     summary.Exceeded,
			LimitPercent: limitPercent,
		}
		now := time.Now()
		for i := range outcomes {
			o := &outcomes[i]
			item := BatchOutcome{
				ID:        o.Pair.ID,
				Label:     o.Pair.Label,
				URL1:      o.Pair.Baseline,
				URL2:      o.Pair.Target,
				Exceeded:  o.Exceeds(limitPercent),
				ElapsedMs: o.Elapsed.Milliseconds(),
			}
			if o.Err != nil {
				item.Error = o.Err.Error()
				response.Outcomes = append(response.Outcomes, item)
				continue
			}

			item.PixelCount = o.Result.PixelCount
			item.TotalPixels = o.Result.TotalPixels
			item.DiffPercent = o.Result.DiffPercent
			item.Regions = o.Result.Regions
			if config.Storage != nil {
				artifacts, err := batch.Upload(r.Context(), config.Storage, o, now)
				if err != nil {
					logger.Warn(fmt.Sprintf("failed to store artifacts: %s", err))
				}
				item.Artifacts = artifacts
			} else {
				item.Diff = diffimage.EncodeBase64(o.Result.Diff)
			}
			response.Outcomes = append(response.Outcomes, item)
		}

		myhttp.WriteJSON(w, r, http.StatusOK, response)
	}
}
