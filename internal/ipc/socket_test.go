package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireReplacesStaleSocketFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "voxtype.sock")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("left by a crashed daemon"), 0o600))

	sock, err := Acquire(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, path, sock.Path())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&os.ModeSocket)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, sock.Close())
	require.NoError(t, sock.Close())
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestAcquireRefusesRunningDaemon(t *testing.T) {
	client := serveForTest(t, func(context.Context, Request) Response {
		return Response{OK: true, State: "recording"}
	})

	_, err := Acquire(context.Background(), client.Path)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	_, err = os.Stat(client.Path)
	require.NoError(t, err)
}

func TestAcquireLeavesUnresponsiveSocketInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxtype.sock")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)

	accepted := make(chan struct{})
	go func() {
		defer close(accepted)
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				time.Sleep(2 * probeTimeout)
			}(conn)
		}
	}()

	_, err = Acquire(context.Background(), path)
	require.ErrorContains(t, err, "probe existing socket")
	require.NotErrorIs(t, err, ErrAlreadyRunning)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
	require.NoError(t, listener.Close())
	<-accepted
}

func TestSocketServesUntilCancelledThenDisappears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxtype.sock")
	sock, err := Acquire(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, sock, HandlerFunc(func(context.Context, Request) Response {
			return Response{OK: true, State: "idle", Status: &Status{PID: os.Getpid()}}
		}))
	}()

	resp, err := Client{Path: path}.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), resp.Status.PID)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, sock.Close())
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRuntimeSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	_, err := RuntimeSocketPath()
	require.ErrorContains(t, err, "XDG_RUNTIME_DIR")

	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	path, err := RuntimeSocketPath()
	require.NoError(t, err)
	require.Equal(t, "/run/user/1000/voxtype.sock", path)
}
