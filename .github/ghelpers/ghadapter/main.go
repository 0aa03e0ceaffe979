package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"pagediff/internal/config"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// outputs flattens a JSON object into GitHub Actions outputs. Nested keys are
// joined with "_"; arrays and nested objects are also kept as compact JSON.
func outputs(data []byte) (map[string]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var result map[string]any
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("tool output is not a JSON object: %w", err)
	}

	flattened := map[string]string{}
	var flatten func(prefix string, value any) error
	flatten = func(prefix string, value any) error {
		switch v := value.(type) {
		case map[string]any:
			for key, nested := range v {
				if err := flatten(prefix+"_"+key, nested); err != nil {
					return err
				}
			}
		case []any:
			flattened[prefix+"_count"] = fmt.Sprint(len(v))
		case nil:
			flattened[prefix] = ""
			return nil
		default:
			flattened[prefix] = fmt.Sprint(v)
			return nil
		}
		b, err := json.Marshal(value)
		if err != nil {
			return err
		}
		flattened[prefix] = string(b)
		return nil
	}
	for key, value := range result {
		if err := flatten(key, value); err != nil {
			return nil, err
		}
	}
	return flattened, nil
}

// writeOutputs appends outputs in sorted order; multi-line values use the
// heredoc form with a random delimiter.
func writeOutputs(w io.Writer, outputs map[string]string) error {
	keys := make([]string, 0, len(outputs))
	for key := range outputs {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value := outputs[key]
		var err error
		if strings.ContainsAny(value, "\r\n") {
			delimiter := "ghadapter_" + uuid.NewString()
			_, err = fmt.Fprintf(w, "%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter)
		} else {
			_, err = fmt.Fprintf(w, "%s=%s\n", key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: ghadapter <tool> [args...]")
	}

	cmd := exec.Command(os.Args[1], os.Args[2:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		log.Fatalf("failed to run %s: %v", os.Args[1], err)
	}

	result, err := outputs(output)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if githubOutput := config.EnvOrDefault("GITHUB_OUTPUT", ""); githubOutput != "" {
		f, err := os.OpenFile(githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("failed to open %s: %v", githubOutput, err)
		}
		defer f.Close()

		if err := writeOutputs(f, result); err != nil {
			log.Fatalf("failed to write outputs: %v", err)
		}
	} else {
		_, _ = os.Stdout.Write(output)
	}
}
