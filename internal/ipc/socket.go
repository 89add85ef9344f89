package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ErrAlreadyRunning means another daemon answered on the socket.
var ErrAlreadyRunning = errors.New("voxtype daemon already running")

const (
	probeTimeout = 180 * time.Millisecond
	bindAttempts = 4
	bindBackoff  = 25 * time.Millisecond
)

// RuntimeSocketPath is $XDG_RUNTIME_DIR/voxtype.sock.
func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "voxtype.sock"), nil
}

// Socket is the daemon's bound control socket. Closing it unbinds the
// listener and removes the socket file.
type Socket struct {
	net.Listener
	path string

	once     sync.Once
	closeErr error
}

func (s *Socket) Path() string { return s.path }

func (s *Socket) Close() error {
	s.once.Do(func() {
		if err := s.Listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.closeErr = err
		}
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// Acquire binds path for this daemon. When the path is taken, the holder is
// asked for its status: an answer means ErrAlreadyRunning, a refused or
// missing socket is treated as left over from a crash and replaced, and a
// socket that accepts without answering is left alone.
func Acquire(ctx context.Context, path string) (*Socket, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}
	holder := Client{Path: path, Timeout: probeTimeout}

	for attempt := 1; ; attempt++ {
		l, err := net.Listen("unix", path)
		if err == nil {
			if err := os.Chmod(path, 0o600); err != nil {
				_ = l.Close()
				return nil, fmt.Errorf("restrict socket %s: %w", path, err)
			}
			return &Socket{Listener: l, path: path}, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("bind %s: %w", path, err)
		}
		if attempt > bindAttempts {
			return nil, fmt.Errorf("bind %s: still in use after %d attempts", path, bindAttempts)
		}

		alive, err := holder.Alive(ctx)
		if err != nil {
			return nil, fmt.Errorf("probe existing socket %s: %w", path, err)
		}
		if alive {
			return nil, ErrAlreadyRunning
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * bindBackoff):
		}
	}
}
