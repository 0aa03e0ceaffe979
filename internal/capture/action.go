package capture

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ActionType string

const (
	ClickAction ActionType = "click"
	TypeAction  ActionType = "type"
	WaitAction  ActionType = "wait"
)

// Action is a page interaction replayed after navigation and before the
// screenshot is taken.
type Action struct {
	Type     ActionType `json:"type"`
	Selector string     `json:"selector,omitempty"`
	Value    string     `json:"value,omitempty"`
	// Delay is in milliseconds and only used by wait actions without a selector.
	Delay int64 `json:"delay,omitempty"`
}

func (a Action) Validate() error {
	switch a.Type {
	case ClickAction:
		if a.Selector == "" {
			return errors.New("click requires a selector")
		}
	case TypeAction:
		if a.Selector == "" || a.Value == "" {
			return errors.New("type requires a selector and a value")
		}
	case WaitAction:
		if a.Selector == "" && a.Delay <= 0 {
			return errors.New("wait requires a selector or a positive delay")
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// String returns the command-line form accepted by ParseAction.
func (a Action) String() string {
	switch {
	case a.Type == TypeAction:
		return fmt.Sprintf("%s:%s=%s", a.Type, a.Selector, a.Value)
	case a.Type == WaitAction && a.Selector == "":
		return fmt.Sprintf("%s:%d", a.Type, a.Delay)
	default:
		return fmt.Sprintf("%s:%s", a.Type, a.Selector)
	}
}

func (a Action) DelayDuration() time.Duration {
	return time.Duration(a.Delay) * time.Millisecond
}

func ValidateActions(actions []Action) error {
	for i, action := range actions {
		if err := action.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// ParseAction parses the command-line form of an action:
//
//	click:<selector>
//	type:<selector>=<value>
//	wait:<selector>
//	wait:<milliseconds>
func ParseAction(s string) (Action, error) {
	kind, arg, ok := strings.Cut(s, ":")
	if !ok {
		return Action{}, fmt.Errorf("invalid action %q", s)
	}

	var action Action
	switch ActionType(kind) {
	case ClickAction:
		action = Action{Type: ClickAction, Selector: arg}
	case TypeAction:
		selector, value, _ := strings.Cut(arg, "=")
		action = Action{Type: TypeAction, Selector: selector, Value: value}
	case WaitAction:
		if ms, err := strconv.ParseInt(arg, 10, 64); err == nil {
			action = Action{Type: WaitAction, Delay: ms}
		} else {
			action = Action{Type: WaitAction, Selector: arg}
		}
	default:
		return Action{}, fmt.Errorf("unknown action type %q", kind)
	}

	if err := action.Validate(); err != nil {
		return Action{}, err
	}
	return action, nil
}

// ActionFlag collects repeated -action flags.
type ActionFlag []Action

func (f *ActionFlag) String() string {
	parts := make([]string, 0, len(*f))
	for _, a := range *f {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ",")
}

func (f *ActionFlag) Set(s string) error {
	action, err := ParseAction(s)
	if err != nil {
		return err
	}
	*f = append(*f, action)
	return nil
}
