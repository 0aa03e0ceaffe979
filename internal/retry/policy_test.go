package retry_test

import (
	"errors"
	"fmt"
	"io"
	"net"
	"pagediff/internal/retry"
	"runtime"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    *retry.Policy
		wantErr bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"gateway-error,connect-failure,retriable-4xx",
			&retry.Policy{Conditions: retry.OnGatewayError | retry.OnConnectFailure | retry.OnConflict},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"5xx, 429",
			&retry.Policy{Conditions: retry.On5xx, StatusCodes: []int{429}},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"",
			&retry.Policy{},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"reset",
			nil,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"700",
			nil,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := retry.ParsePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestPolicy_RetryStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy *retry.Policy
		in     int
		want   bool
	}{
		{"default retries gateway errors", retry.DefaultPolicy(), 503, true},
		{"default retries conflicts", retry.DefaultPolicy(), 409, true},
		{"default ignores internal errors", retry.DefaultPolicy(), 500, false},
		{"default ignores success", retry.DefaultPolicy(), 200, false},
		{"5xx retries internal errors", &retry.Policy{Conditions: retry.On5xx}, 500, true},
		{"explicit status code", &retry.Policy{StatusCodes: []int{429}}, 429, true},
		{"empty policy", &retry.Policy{}, 503, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.policy.RetryStatus(tt.in); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPolicy_RetryError(t *testing.T) {
	t.Parallel()

	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route to host")}
	readErr := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("i/o timeout")}

	tests := []struct {
		name   string
		policy *retry.Policy
		in     error
		want   bool
	}{
		{"dial failure", retry.DefaultPolicy(), dialErr, true},
		{"refused", retry.DefaultPolicy(), fmt.Errorf("post: %w", syscall.ECONNREFUSED), true},
		{"closed connection", retry.DefaultPolicy(), fmt.Errorf("read: %w", io.EOF), true},
		{"read timeout", retry.DefaultPolicy(), readErr, false},
		{"other error", retry.DefaultPolicy(), errors.New("bad request"), false},
		{"not enabled", &retry.Policy{Conditions: retry.OnGatewayError}, dialErr, false},
		{"5xx implies connect failures", &retry.Policy{Conditions: retry.On5xx}, dialErr, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.policy.RetryError(tt.in); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
