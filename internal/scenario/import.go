package scenario

import (
	"context"
	"fmt"
	"strings"
)

type URLPair struct {
	Label string `json:"label"`
	URL1  string `json:"url1"`
	URL2  string `json:"url2"`
}

// ParseURLPairs reads one URL per line, ignoring blank lines, and pairs
// consecutive lines. unpaired is 1 when a trailing line has no partner.
func ParseURLPairs(text string) (pairs []URLPair, unpaired int) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	pairs = []URLPair{}
	for i := 0; i+1 < len(lines); i += 2 {
		pairs = append(pairs, URLPair{URL1: lines[i], URL2: lines[i+1]})
	}
	return pairs, len(lines) % 2
}

// Import creates one scenario per parsed pair in collectionID.
func Import(ctx context.Context, store Store, text string, collectionID string) ([]Scenario, int, error) {
	pairs, unpaired := ParseURLPairs(text)

	created := make([]Scenario, 0, len(pairs))
	for _, pair := range pairs {
		sc, err := store.CreateScenario(ctx, Scenario{
			Name:         fmt.Sprintf("%s vs %s", pair.URL1, pair.URL2),
			URL1:         pair.URL1,
			URL2:         pair.URL2,
			CollectionID: collectionID,
		})
		if err != nil {
			return created, unpaired, err
		}
		created = append(created, *sc)
	}
	return created, unpaired, nil
}
