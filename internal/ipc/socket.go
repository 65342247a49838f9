// Package ipc locates and connects to Hyprland's event socket.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// SignatureEnv names the variable Hyprland exports to its children
const SignatureEnv = "HYPRLAND_INSTANCE_SIGNATURE"

const eventSocketName = ".socket2.sock"

var (
	// ErrNoInstanceSignature is returned when Hyprland's signature variable is unset
	ErrNoInstanceSignature = errors.New(SignatureEnv + " is not set; is Hyprland running?")
	// ErrSocketNotFound is returned when no candidate socket exists
	ErrSocketNotFound = errors.New("hyprland event socket not found")
)

// Env is the subset of the environment used for discovery
type Env struct {
	Signature  string
	RuntimeDir string
}

// EnvFromOS reads discovery inputs from the process environment
func EnvFromOS() Env {
	return Env{
		Signature:  os.Getenv(SignatureEnv),
		RuntimeDir: os.Getenv("XDG_RUNTIME_DIR"),
	}
}

// Candidates lists the places the event socket may live, newest layout
// first. Hyprland moved its sockets from /tmp/hypr to $XDG_RUNTIME_DIR/hypr.
func Candidates(env Env) ([]string, error) {
	if env.Signature == "" {
		return nil, ErrNoInstanceSignature
	}

	var paths []string
	if env.RuntimeDir != "" {
		paths = append(paths, filepath.Join(env.RuntimeDir, "hypr", env.Signature, eventSocketName))
	}
	paths = append(paths, filepath.Join("/tmp/hypr", env.Signature, eventSocketName))
	return paths, nil
}

// Discover returns the first candidate that exists
func Discover(env Env) (string, error) {
	paths, err := Candidates(env)
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %v", ErrSocketNotFound, paths)
}

// Dial connects to the Unix socket at path
func Dial(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	return conn, nil
}
