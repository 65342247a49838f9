package dispatch

import (
	"strings"
	"time"
)

// Outcome describes a single apply attempt
type Outcome struct {
	Monitor    string `json:"monitor"`
	Artifact   string `json:"artifact"`
	Generation uint64 `json:"generation"`

	ExitSucceeded   bool   `json:"exit_succeeded"`
	Stdout          string `json:"stdout,omitempty"`
	Stderr          string `json:"stderr,omitempty"`
	SemanticFailure string `json:"semantic_failure,omitempty"`
	Error           string `json:"error,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// OK reports whether the wallpaper was actually changed
func (o Outcome) OK() bool {
	return o.ExitSucceeded && o.SemanticFailure == ""
}

// Duration is the wall time the attempt took
func (o Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

// hyprctl exits 0 even when hyprpaper refused the request; these markers in
// its output are the only signal that nothing changed.
const (
	markerNotPreloaded  = "wallpaper failed (not preloaded)"
	markerNoConnection  = "Couldn't connect to"
	markerHyprpaperSock = ".hyprpaper.sock"
)

// Semantic failure reasons
const (
	ReasonNotPreloaded      = "wallpaper not preloaded"
	ReasonSocketUnreachable = "hyprpaper socket unreachable"
)

// SemanticFailure inspects the output of a successful exit and returns a
// reason when the request was nevertheless rejected, or "" otherwise.
// A non-empty signature narrows the socket check to this Hyprland
// instance's hyprpaper socket.
func SemanticFailure(stdout, signature string) string {
	sock := markerHyprpaperSock
	if signature != "" {
		sock = signature + "/" + markerHyprpaperSock
	}

	switch {
	case strings.Contains(stdout, markerNotPreloaded):
		return ReasonNotPreloaded
	case strings.Contains(stdout, markerNoConnection) && strings.Contains(stdout, sock):
		return ReasonSocketUnreachable
	default:
		return ""
	}
}
