package routes

import (
	"errors"
	"fmt"
	"net/http"
	"pagediff/internal/capture"
	"pagediff/internal/myhttp"
	"pagediff/internal/scenario"
)

type successResponse struct {
	Success bool `json:"success"`
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error, subject string) {
	switch {
	case errors.Is(err, scenario.ErrNotFound):
		myhttp.WriteError(w, http.StatusNotFound, subject+" not found")
	case errors.Is(err, scenario.ErrNameRequired):
		myhttp.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		myhttp.Logger(r.Context()).Error(fmt.Sprintf("scenario store failed: %s", err))
		myhttp.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func ListScenarios(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scenarios, err := store.ListScenarios(r.Context(), r.URL.Query().Get("collectionId"))
		if err != nil {
			writeStoreError(w, r, err, "Scenario")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusOK, scenarios)
	}
}

func GetScenario(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.GetScenario(r.Context(), r.PathValue("id"))
		if err != nil {
			writeStoreError(w, r, err, "Scenario")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusOK, s)
	}
}

func CreateScenario(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request scenario.Scenario
		if err := myhttp.DecodeJSON(w, r, &request); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := capture.ValidateActions(request.Actions); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		s, err := store.CreateScenario(r.Context(), request)
		if err != nil {
			writeStoreError(w, r, err, "Scenario")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusCreated, s)
	}
}

func UpdateScenario(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch scenario.ScenarioPatch
		if err := myhttp.DecodeJSON(w, r, &patch); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if patch.Actions != nil {
			if err := capture.ValidateActions(*patch.Actions); err != nil {
				myhttp.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		s, err := store.UpdateScenario(r.Context(), r.PathValue("id"), patch)
		if err != nil {
			writeStoreError(w, r, err, "Scenario")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusOK, s)
	}
}

func DeleteScenario(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteScenario(r.Context(), r.PathValue("id")); err != nil {
			writeStoreError(w, r, err, "Scenario")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusOK, successResponse{Success: true})
	}
}

type ImportRequest struct {
	Text         string `json:"text"`
	CollectionID string `json:"collectionId"`
}

type ImportResponse struct {
	Scenarios []scenario.Scenario `json:"scenarios"`
	Unpaired  int                 `json:"unpaired"`
}

// ImportScenarios turns a list of URLs, one per line, into scenarios
// comparing consecutive lines.
func ImportScenarios(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request ImportRequest
		if err := myhttp.DecodeJSON(w, r, &request); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if pairs, _ := scenario.ParseURLPairs(request.Text); len(pairs) == 0 {
			myhttp.WriteError(w, http.StatusBadRequest, "at least two URLs are required")
			return
		}

		created, unpaired, err := scenario.Import(r.Context(), store, request.Text, request.CollectionID)
		if err != nil {
			writeStoreError(w, r, err, "Scenario")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusCreated, ImportResponse{Scenarios: created, Unpaired: unpaired})
	}
}
