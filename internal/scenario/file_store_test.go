package scenario_test

import (
	"context"
	"errors"
	"os"
	"pagediff/internal/capture"
	"pagediff/internal/scenario"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newStore(t *testing.T) (*scenario.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "scenarios.json")
	s, err := scenario.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	return s, path
}

func ptr[T any](v T) *T {
	return &v
}

func TestFileStore_Scenarios(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)

	got, err := s.ListScenarios(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("Expected an empty store, got %v", got)
	}

	if _, err := s.CreateScenario(ctx, scenario.Scenario{URL1: "https://a"}); !errors.Is(err, scenario.ErrNameRequired) {
		t.Errorf("Expected ErrNameRequired, got %v", err)
	}

	home, err := s.CreateScenario(ctx, scenario.Scenario{Name: "home", URL1: "https://a", URL2: "https://b", CollectionID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if home.ID == "" || home.CreatedAt.IsZero() {
		t.Errorf("Expected id and createdAt to be set, got %+v", home)
	}
	if home.Actions == nil {
		t.Error("Expected actions to default to an empty list")
	}
	other, err := s.CreateScenario(ctx, scenario.Scenario{Name: "other"})
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == home.ID {
		t.Error("Expected unique ids")
	}

	inCollection, err := s.ListScenarios(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]scenario.Scenario{*home}, inCollection, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	actions := []capture.Action{{Type: capture.ClickAction, Selector: "#go"}}
	updated, err := s.UpdateScenario(ctx, home.ID, scenario.ScenarioPatch{URL2: ptr("https://c"), Actions: &actions})
	if err != nil {
		t.Fatal(err)
	}
	want := *home
	want.URL2 = "https://c"
	want.Actions = actions
	if diff := cmp.Diff(&want, updated, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	fetched, err := s.GetScenario(ctx, home.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(updated, fetched, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := s.UpdateScenario(ctx, "missing", scenario.ScenarioPatch{}); !errors.Is(err, scenario.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteScenario(ctx, "missing"); !errors.Is(err, scenario.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteScenario(ctx, other.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetScenario(ctx, other.ID); !errors.Is(err, scenario.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_Collections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)

	if _, err := s.CreateCollection(ctx, scenario.Collection{}); !errors.Is(err, scenario.ErrNameRequired) {
		t.Errorf("Expected ErrNameRequired, got %v", err)
	}

	keep, err := s.CreateCollection(ctx, scenario.Collection{Name: "keep"})
	if err != nil {
		t.Fatal(err)
	}
	drop, err := s.CreateCollection(ctx, scenario.Collection{Name: "drop", Description: "to be deleted"})
	if err != nil {
		t.Fatal(err)
	}

	renamed, err := s.UpdateCollection(ctx, keep.ID, scenario.CollectionPatch{Description: ptr("stays")})
	if err != nil {
		t.Fatal(err)
	}
	if renamed.Name != "keep" || renamed.Description != "stays" {
		t.Errorf("Expected a partial update, got %+v", renamed)
	}

	for _, c := range []*scenario.Collection{keep, drop, drop} {
		if _, err := s.CreateScenario(ctx, scenario.Scenario{Name: "s", CollectionID: c.ID}); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeleteCollection(ctx, drop.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCollection(ctx, drop.ID); !errors.Is(err, scenario.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	collections, err := s.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(collections) != 1 || collections[0].ID != keep.ID {
		t.Errorf("Expected only %s to remain, got %+v", keep.ID, collections)
	}
	scenarios, err := s.ListScenarios(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(scenarios) != 1 || scenarios[0].CollectionID != keep.ID {
		t.Errorf("Expected scenarios of the deleted collection to be removed, got %+v", scenarios)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, path := newStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Expected a corrupt file to read as empty, got %v", got)
	}

	if _, err := s.CreateCollection(ctx, scenario.Collection{Name: "fresh"}); err != nil {
		t.Fatal(err)
	}
	reopened, err := scenario.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err = reopened.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "fresh" {
		t.Errorf("Expected the rewritten file to persist, got %v", got)
	}
}
