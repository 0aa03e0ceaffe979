package retry

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"syscall"
)

type Condition uint8

const (
	// On5xx retries every 5xx response and connection failure.
	On5xx Condition = 1 << iota
	// OnGatewayError retries 502, 503 and 504.
	OnGatewayError
	// OnConnectFailure retries refused connections and resets.
	OnConnectFailure
	// OnConflict retries 409, which the API server returns on stale status updates.
	OnConflict
)

// Policy decides which failed attempts are retried. Conditions follow the
// names of Envoy's retry_on setting.
type Policy struct {
	Conditions  Condition
	StatusCodes []int
}

func DefaultPolicy() *Policy {
	return &Policy{Conditions: OnGatewayError | OnConnectFailure | OnConflict}
}

// ParsePolicy reads a comma separated list such as
// "gateway-error,connect-failure,429".
func ParsePolicy(s string) (*Policy, error) {
	p := &Policy{}
	for _, field := range strings.Split(s, ",") {
		switch field = strings.TrimSpace(field); field {
		case "":
		case "5xx":
			p.Conditions |= On5xx
		case "gateway-error":
			p.Conditions |= OnGatewayError
		case "connect-failure":
			p.Conditions |= OnConnectFailure
		case "retriable-4xx":
			p.Conditions |= OnConflict
		default:
			code, err := strconv.Atoi(field)
			if err != nil || code < 100 || code > 599 {
				return nil, fmt.Errorf("invalid retry condition %q", field)
			}
			p.StatusCodes = append(p.StatusCodes, code)
		}
	}
	return p, nil
}

func (p *Policy) has(c Condition) bool {
	return p.Conditions&c != 0
}

func (p *Policy) RetryStatus(code int) bool {
	switch {
	case p.has(On5xx) && code >= 500 && code < 600:
		return true
	case p.has(OnGatewayError) && code >= http.StatusBadGateway && code <= http.StatusGatewayTimeout:
		return true
	case p.has(OnConflict) && code == http.StatusConflict:
		return true
	}
	return slices.Contains(p.StatusCodes, code)
}

func (p *Policy) RetryError(err error) bool {
	if !p.has(OnConnectFailure) && !p.has(On5xx) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
