package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"pagediff/internal/capture"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type document struct {
	Collections []Collection `json:"collections"`
	Scenarios   []Scenario   `json:"scenarios"`
}

// FileStore keeps all scenarios and collections in a single JSON file.
// Writes go to a temporary file that is renamed over the previous one.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{
		path: path,
		now:  time.Now,
	}, nil
}

// load treats a missing or unreadable file as an empty store.
func (s *FileStore) load() document {
	doc := document{Collections: []Collection{}, Scenarios: []Scenario{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read scenario store", "path", s.path, "error", err)
		}
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("failed to parse scenario store", "path", s.path, "error", err)
		return document{Collections: []Collection{}, Scenarios: []Scenario{}}
	}
	if doc.Collections == nil {
		doc.Collections = []Collection{}
	}
	if doc.Scenarios == nil {
		doc.Scenarios = []Scenario{}
	}
	return doc
}

func (s *FileStore) save(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize scenario store: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scenario store: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename scenario store: %w", err)
	}
	return nil
}

func (s *FileStore) ListScenarios(ctx context.Context, collectionID string) ([]Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenarios := s.load().Scenarios
	if collectionID == "" {
		return scenarios, nil
	}
	filtered := []Scenario{}
	for _, sc := range scenarios {
		if sc.CollectionID == collectionID {
			filtered = append(filtered, sc)
		}
	}
	return filtered, nil
}

func (s *FileStore) GetScenario(ctx context.Context, id string) (*Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	i := slices.IndexFunc(doc.Scenarios, func(sc Scenario) bool { return sc.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	return &doc.Scenarios[i], nil
}

func (s *FileStore) CreateScenario(ctx context.Context, sc Scenario) (*Scenario, error) {
	if sc.Name == "" {
		return nil, ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc.ID = uuid.NewString()
	sc.CreatedAt = s.now().UTC()
	if sc.Actions == nil {
		sc.Actions = []capture.Action{}
	}

	doc := s.load()
	doc.Scenarios = append(doc.Scenarios, sc)
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *FileStore) UpdateScenario(ctx context.Context, id string, patch ScenarioPatch) (*Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	i := slices.IndexFunc(doc.Scenarios, func(sc Scenario) bool { return sc.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}

	sc := &doc.Scenarios[i]
	if patch.Name != nil {
		sc.Name = *patch.Name
	}
	if patch.URL1 != nil {
		sc.URL1 = *patch.URL1
	}
	if patch.URL2 != nil {
		sc.URL2 = *patch.URL2
	}
	if patch.Actions != nil {
		sc.Actions = *patch.Actions
	}
	if patch.CollectionID != nil {
		sc.CollectionID = *patch.CollectionID
	}

	if err := s.save(doc); err != nil {
		return nil, err
	}
	updated := *sc
	return &updated, nil
}

func (s *FileStore) DeleteScenario(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	before := len(doc.Scenarios)
	doc.Scenarios = slices.DeleteFunc(doc.Scenarios, func(sc Scenario) bool { return sc.ID == id })
	if len(doc.Scenarios) == before {
		return fmt.Errorf("scenario %s: %w", id, ErrNotFound)
	}
	return s.save(doc)
}

func (s *FileStore) ListCollections(ctx context.Context) ([]Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load().Collections, nil
}

func (s *FileStore) CreateCollection(ctx context.Context, c Collection) (*Collection, error) {
	if c.Name == "" {
		return nil, ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.NewString()
	c.CreatedAt = s.now().UTC()

	doc := s.load()
	doc.Collections = append(doc.Collections, c)
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *FileStore) UpdateCollection(ctx context.Context, id string, patch CollectionPatch) (*Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	i := slices.IndexFunc(doc.Collections, func(c Collection) bool { return c.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}

	c := &doc.Collections[i]
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}

	if err := s.save(doc); err != nil {
		return nil, err
	}
	updated := *c
	return &updated, nil
}

func (s *FileStore) DeleteCollection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	before := len(doc.Collections)
	doc.Collections = slices.DeleteFunc(doc.Collections, func(c Collection) bool { return c.ID == id })
	if len(doc.Collections) == before {
		return fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}
	doc.Scenarios = slices.DeleteFunc(doc.Scenarios, func(sc Scenario) bool { return sc.CollectionID == id })
	return s.save(doc)
}
