package routes

import (
	"net/http"
	"pagediff/internal/myhttp"
	"pagediff/internal/scenario"
)

func ListCollections(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collections, err := store.ListCollections(r.Context())
		if err != nil {
			writeStoreError(w, r, err, "Collection")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusOK, collections)
	}
}

func CreateCollection(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request scenario.Collection
		if err := myhttp.DecodeJSON(w, r, &request); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		c, err := store.CreateCollection(r.Context(), request)
		if err != nil {
			writeStoreError(w, r, err, "Collection")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusCreated, c)
	}
}

func UpdateCollection(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch scenario.CollectionPatch
		if err := myhttp.DecodeJSON(w, r, &patch); err != nil {
			myhttp.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		c, err := store.UpdateCollection(r.Context(), r.PathValue("id"), patch)
		if err != nil {
			writeStoreError(w, r, err, "Collection")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusOK, c)
	}
}

// DeleteCollection removes the collection together with its scenarios.
func DeleteCollection(store scenario.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteCollection(r.Context(), r.PathValue("id")); err != nil {
			writeStoreError(w, r, err, "Collection")
			return
		}
		myhttp.WriteJSON(w, r, http.StatusOK, successResponse{Success: true})
	}
}
