// Package config resolves flag defaults from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvOrDefault returns the value of the environment variable key parsed as T,
// or defaultValue when the variable is unset or does not parse.
func EnvOrDefault[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	parsed, ok := parse(value, defaultValue)
	if !ok {
		return defaultValue
	}
	return parsed.(T)
}

func parse(value string, like any) (any, bool) {
	var (
		v   any
		err error
	)
	switch like.(type) {
	case string:
		return value, true
	case []string:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, true
	case int:
		v, err = strconv.Atoi(value)
	case int64:
		v, err = strconv.ParseInt(value, 10, 64)
	case uint:
		var u uint64
		u, err = strconv.ParseUint(value, 10, 0)
		v = uint(u)
	case uint64:
		v, err = strconv.ParseUint(value, 10, 64)
	case float64:
		v, err = strconv.ParseFloat(value, 64)
	case bool:
		v, err = strconv.ParseBool(value)
	case time.Duration:
		v, err = time.ParseDuration(value)
	default:
		return nil, false
	}
	return v, err == nil
}

// LoadDotEnv populates unset environment variables from the given files,
// ".env" when none are given. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
