package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	paths, err := Candidates(Env{Signature: "abc_123", RuntimeDir: "/run/user/1000"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/run/user/1000/hypr/abc_123/.socket2.sock",
		"/tmp/hypr/abc_123/.socket2.sock",
	}, paths)

	paths, err = Candidates(Env{Signature: "abc_123"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/hypr/abc_123/.socket2.sock"}, paths)
}

func TestCandidatesRequireSignature(t *testing.T) {
	_, err := Candidates(Env{RuntimeDir: "/run/user/1000"})
	assert.ErrorIs(t, err, ErrNoInstanceSignature)
}

func TestDiscover(t *testing.T) {
	runtime := t.TempDir()
	dir := filepath.Join(runtime, "hypr", "sig")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".socket2.sock"), nil, 0o600))

	path, err := Discover(Env{Signature: "sig", RuntimeDir: runtime})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".socket2.sock"), path)
}

func TestDiscoverNotFound(t *testing.T) {
	_, err := Discover(Env{Signature: "definitely-not-running-" + t.Name(), RuntimeDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrSocketNotFound)
}

func TestDial(t *testing.T) {
	// Unix socket paths are length-limited, so avoid the long t.TempDir().
	dir, err := os.MkdirTemp("", "hsw")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = c.Write([]byte("workspace>>1\n"))
		c.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, path)
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "workspace>>1\n", string(buf[:n]))
}

func TestDialMissing(t *testing.T) {
	_, err := Dial(context.Background(), filepath.Join(t.TempDir(), "missing.sock"))
	assert.Error(t, err)
}
