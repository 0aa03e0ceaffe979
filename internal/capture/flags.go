package capture

import (
	"fmt"
	"slices"
	"strings"
)

// HeaderFlag collects repeated -H "Key: Value" flags.
type HeaderFlag map[string]string

func (f *HeaderFlag) String() string {
	keys := make([]string, 0, len(*f))
	for key := range *f {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+(*f)[key])
	}
	return strings.Join(parts, ", ")
}

func (f *HeaderFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("invalid header %q, want \"Key: Value\"", s)
	}
	if *f == nil {
		*f = HeaderFlag{}
	}
	(*f)[key] = strings.TrimSpace(value)
	return nil
}

// SplitSelectors splits a comma separated selector list, dropping blanks.
func SplitSelectors(s string) []string {
	var selectors []string
	for _, selector := range strings.Split(s, ",") {
		if selector = strings.TrimSpace(selector); selector != "" {
			selectors = append(selectors, selector)
		}
	}
	return selectors
}
