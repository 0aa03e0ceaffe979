package controllers

import (
	"encoding/json"
	"fmt"
	"os"
	pdV1 "pagediff/api/v1"
	"pagediff/internal/batch"
	"pagediff/internal/capture"
	"pagediff/internal/config"
	diffimage "pagediff/internal/diff/image"
	"slices"
	"strconv"
	"strings"

	coreV1 "k8s.io/api/core/v1"
)

func actionsOf(o pdV1.ComparisonOptions) []capture.Action {
	actions := make([]capture.Action, 0, len(o.Actions))
	for _, a := range o.Actions {
		actions = append(actions, capture.Action{
			Type:     capture.ActionType(a.Type),
			Selector: a.Selector,
			Value:    a.Value,
			Delay:    a.Delay,
		})
	}
	return actions
}

func pairOf(baseline string, target string, o pdV1.ComparisonOptions) batch.Pair {
	return batch.Pair{
		Baseline:      baseline,
		Target:        target,
		Actions:       actionsOf(o),
		Width:         o.Width,
		Height:        o.Height,
		MaskSelectors: o.MaskSelectors,
		Headers:       o.Headers,
	}
}

func diffOptionsOf(o pdV1.ComparisonOptions) (diffimage.Options, error) {
	options := diffimage.DefaultOptions()
	options.MaxPixels = config.EnvOrDefault("MAX_PIXELS", options.MaxPixels)
	if o.Threshold != nil {
		options.Threshold = *o.Threshold
	}
	if o.Metric != "" {
		options.Metric = diffimage.Metric(o.Metric)
	}
	options.DetectAntialiasing = o.DetectAntialiasing
	return options, options.Validate()
}

func callbackURL(host string, namespace string, kind string, name string) string {
	return fmt.Sprintf("http://%s/api/%s/%s/%s/%s/%s/artifacts", host, namespace, pdV1.GroupVersion.Group, pdV1.GroupVersion.Version, kind, name)
}

// workerArgs renders o as bin/worker flags followed by the positional URLs.
func workerArgs(o pdV1.ComparisonOptions, callback string, scheduled bool, urls ...string) ([]string, error) {
	args := []string{"--callback-url", callback}
	if scheduled {
		args = append(args, "--scheduled")
	}
	if o.Threshold != nil {
		args = append(args, "--threshold", strconv.FormatFloat(*o.Threshold, 'g', -1, 64))
	}
	if o.Metric != "" {
		args = append(args, "--metric", o.Metric)
	}
	if o.DetectAntialiasing {
		args = append(args, "--detect-antialiasing")
	}
	if o.Width > 0 {
		args = append(args, "--width", strconv.Itoa(o.Width))
	}
	if o.Height > 0 {
		args = append(args, "--height", strconv.Itoa(o.Height))
	}
	if len(o.Actions) > 0 {
		b, err := json.Marshal(actionsOf(o))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal actions: %w", err)
		}
		args = append(args, "--actions", string(b))
	}
	if len(o.MaskSelectors) > 0 {
		args = append(args, "--mask-selectors", strings.Join(o.MaskSelectors, ","))
	}

	// Sorted so that unchanged headers render identical CronJob arguments.
	keys := make([]string, 0, len(o.Headers))
	for key := range o.Headers {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		args = append(args, "-H", fmt.Sprintf("%s: %s", key, o.Headers[key]))
	}

	return append(args, urls...), nil
}

var workerEnvKeys = []string{
	"STORAGE",
	"S3_ENDPOINT",
	"AWS_REGION",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"CHROME_DEVTOOLS_PROTOCOL_URL",
	"MAX_PIXELS",
}

// workerEnv forwards the controller's storage and browser settings to workers.
func workerEnv() []coreV1.EnvVar {
	env := make([]coreV1.EnvVar, 0, len(workerEnvKeys))
	for _, key := range workerEnvKeys {
		env = append(env, coreV1.EnvVar{Name: key, Value: os.Getenv(key)})
	}
	return env
}

func workerPodSpec(image string, args []string) coreV1.PodSpec {
	return coreV1.PodSpec{
		RestartPolicy: coreV1.RestartPolicyNever,
		Containers: []coreV1.Container{
			{
				Name:  "worker",
				Image: image,
				Args:  args,
				Env:   workerEnv(),
			},
		},
	}
}
