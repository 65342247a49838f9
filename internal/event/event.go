// Package event turns the raw byte stream of Hyprland's event socket into
// classified events.
package event

import "errors"

// Kind identifies the type of an event line
type Kind int

const (
	KindOther Kind = iota
	KindMonitorAdded
	KindFocusedMonitor
	KindWorkspaceSwitch
)

func (k Kind) String() string {
	switch k {
	case KindMonitorAdded:
		return "monitor_added"
	case KindFocusedMonitor:
		return "focused_monitor"
	case KindWorkspaceSwitch:
		return "workspace_switch"
	default:
		return "other"
	}
}

// MarshalText lets the kind appear by name in JSON payloads
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name; unknown names become KindOther
func (k *Kind) UnmarshalText(text []byte) error {
	for _, c := range []Kind{KindMonitorAdded, KindFocusedMonitor, KindWorkspaceSwitch} {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	*k = KindOther
	return nil
}

// Event is one classified line from the event socket
type Event struct {
	Raw     string  `json:"raw"`
	Kind    Kind    `json:"kind"`
	Payload *uint32 `json:"payload,omitempty"`
}

// ErrMalformedPayload is returned when a workspace line has no usable index
var ErrMalformedPayload = errors.New("malformed payload")

// Decode classifies line and, for workspace switches, parses its index
func Decode(line string) (Event, error) {
	ev := Classify(line)
	if ev.Kind != KindWorkspaceSwitch {
		return ev, nil
	}

	n, err := ParsePayload(line)
	if err != nil {
		return ev, err
	}
	ev.Payload = &n
	return ev, nil
}
