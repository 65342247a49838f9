package event

import "strings"

// Separator delimits an event name from its payload
const Separator = ">>"

const (
	prefixMonitorAdded = "monitoradded"
	prefixFocusedMon   = "focusedmon"
	prefixWorkspaceV2  = "workspacev2"
	prefixWorkspace    = "workspace" + Separator
)

// Classify tags a line with its event kind. Hyprland announces each
// workspace change twice, as "workspace>>N" and "workspacev2>>N,NAME"; only
// the first one triggers a wallpaper change, otherwise every switch would be
// applied twice.
func Classify(line string) Event {
	ev := Event{Raw: line}

	switch {
	case strings.HasPrefix(line, prefixMonitorAdded):
		ev.Kind = KindMonitorAdded
	case strings.HasPrefix(line, prefixFocusedMon):
		ev.Kind = KindFocusedMonitor
	case strings.HasPrefix(line, prefixWorkspaceV2):
		ev.Kind = KindOther
	case strings.HasPrefix(line, prefixWorkspace):
		ev.Kind = KindWorkspaceSwitch
	default:
		ev.Kind = KindOther
	}
	return ev
}
