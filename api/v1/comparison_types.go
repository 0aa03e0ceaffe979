package v1

import (
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Action is a browser interaction replayed before the screenshot is taken.
type Action struct {
	// +kubebuilder:validation:Enum=click;type;wait
	Type string `json:"type"`
	// Selector is the CSS selector the action targets
	Selector string `json:"selector,omitempty"`
	// Value is the text typed by a type action
	Value string `json:"value,omitempty"`
	// Delay is the number of milliseconds a wait action sleeps when no selector is given
	Delay int64 `json:"delay,omitempty"`
}

// ComparisonOptions controls how pages are captured and compared.
type ComparisonOptions struct {
	// Actions are replayed in order on every captured page
	Actions []Action `json:"actions,omitempty"`
	// Width overrides the browser viewport width
	// +kubebuilder:validation:Minimum=0
	Width int `json:"width,omitempty"`
	// Height overrides the browser viewport height
	// +kubebuilder:validation:Minimum=0
	Height int `json:"height,omitempty"`
	// Threshold is the per-pixel color distance tolerance (0.0 to 1.0)
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:validation:Maximum=1
	Threshold *float64 `json:"threshold,omitempty"`
	// Metric selects the color distance ("yiq" or "ciede2000")
	// +kubebuilder:validation:Enum=yiq;ciede2000
	// +kubebuilder:default="yiq"
	Metric string `json:"metric,omitempty"`
	// DetectAntialiasing excludes antialiased pixels from the diff count
	DetectAntialiasing bool `json:"detectAntialiasing,omitempty"`
	// MaskSelectors are hidden before capturing
	MaskSelectors []string `json:"maskSelectors,omitempty"`
	// Headers are sent with every page request
	Headers map[string]string `json:"headers,omitempty"`
}

// ComparisonResult is the outcome of the most recent comparison.
type ComparisonResult struct {
	// BaselineURL is the storage URL where the baseline screenshot is stored
	BaselineURL string `json:"baselineUrl,omitempty"`
	// TargetURL is the storage URL where the target screenshot is stored
	TargetURL string `json:"targetUrl,omitempty"`
	// DiffURL is the storage URL where the diff image is stored
	DiffURL string `json:"diffUrl,omitempty"`
	PixelCount  int64 `json:"pixelCount,omitempty"`
	TotalPixels int64 `json:"totalPixels,omitempty"`
	// DiffPercent is the share of differing pixels, rounded to two decimals (0 to 100)
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:validation:Maximum=100
	DiffPercent float64 `json:"diffPercent,omitempty"`
	// LastComparisonTime is the time when the last comparison finished
	LastComparisonTime *metaV1.Time `json:"lastComparisonTime,omitempty"`
}

// ComparisonSpec defines the desired state of Comparison
type ComparisonSpec struct {
	// Baseline is the URL of the reference page
	Baseline string `json:"baseline"`
	// Target is the URL of the page compared against the baseline
	Target string `json:"target"`

	ComparisonOptions `json:",inline"`
}

// ComparisonStatus defines the observed state of Comparison
type ComparisonStatus struct {
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	ComparisonResult `json:",inline"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Diff",type=number,JSONPath=`.status.diffPercent`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Comparison is the schema for the comparisons API
type Comparison struct {
	metaV1.TypeMeta   `json:",inline"`
	metaV1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ComparisonSpec   `json:"spec,omitempty"`
	Status ComparisonStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ComparisonList contains a list of Comparison
type ComparisonList struct {
	metaV1.TypeMeta `json:",inline"`
	metaV1.ListMeta `json:"metadata,omitempty"`
	Items           []Comparison `json:"items"`
}
