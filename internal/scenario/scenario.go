// Package scenario persists saved comparison scenarios and the collections
// that group them.
package scenario

import (
	"context"
	"errors"
	"pagediff/internal/capture"
	"time"
)

type Scenario struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	URL1         string           `json:"url1"`
	URL2         string           `json:"url2"`
	Actions      []capture.Action `json:"actions"`
	CollectionID string           `json:"collectionId"`
	CreatedAt    time.Time        `json:"createdAt"`
}

type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ScenarioPatch holds the fields of an update; nil fields are left as is.
type ScenarioPatch struct {
	Name         *string           `json:"name"`
	URL1         *string           `json:"url1"`
	URL2         *string           `json:"url2"`
	Actions      *[]capture.Action `json:"actions"`
	CollectionID *string           `json:"collectionId"`
}

type CollectionPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

var (
	ErrNotFound     = errors.New("not found")
	ErrNameRequired = errors.New("name is required")
)

type Store interface {
	// ListScenarios returns every scenario, or only those of collectionID
	// when it is not empty.
	ListScenarios(ctx context.Context, collectionID string) ([]Scenario, error)
	GetScenario(ctx context.Context, id string) (*Scenario, error)
	CreateScenario(ctx context.Context, s Scenario) (*Scenario, error)
	UpdateScenario(ctx context.Context, id string, patch ScenarioPatch) (*Scenario, error)
	DeleteScenario(ctx context.Context, id string) error

	ListCollections(ctx context.Context) ([]Collection, error)
	CreateCollection(ctx context.Context, c Collection) (*Collection, error)
	UpdateCollection(ctx context.Context, id string, patch CollectionPatch) (*Collection, error)
	// DeleteCollection also deletes the scenarios of the collection.
	DeleteCollection(ctx context.Context, id string) error
}
