// Package version holds the build version, set with
// -ldflags "-X github.com/khaneliman/hypr-socket-watch/internal/version.Version=..."
package version

// Version is reported by --version and the health endpoint
var Version = "dev"
