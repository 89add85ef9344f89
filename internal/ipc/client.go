package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// ErrNoDaemon means nothing accepted a connection on the socket path.
var ErrNoDaemon = errors.New("no voxtype daemon listening")

const defaultCallTimeout = 250 * time.Millisecond

// Client calls the daemon. Every call dials a fresh connection.
type Client struct {
	Path    string
	Timeout time.Duration
}

// Call sends req and decodes the single response line. A missing socket or
// a refused connection wraps ErrNoDaemon.
func (c Client) Call(ctx context.Context, req Request) (Response, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return Response{}, fmt.Errorf("%w on %s", ErrNoDaemon, c.Path)
		}
		return Response{}, fmt.Errorf("dial %s: %w", c.Path, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", req.Command, err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read %s response: %w", req.Command, err)
	}
	return resp, nil
}

// Status fetches the daemon snapshot.
func (c Client) Status(ctx context.Context) (Response, error) {
	resp, err := c.Call(ctx, Request{Command: CommandStatus})
	if err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return resp, fmt.Errorf("status: %s", resp.Error)
	}
	return resp, nil
}

// Cancel asks the daemon to discard the active recording. A refusal comes
// back as an error carrying the daemon's reason.
func (c Client) Cancel(ctx context.Context) (Response, error) {
	resp, err := c.Call(ctx, Request{Command: CommandCancel})
	if err != nil {
		return Response{}, err
	}
	if !resp.OK {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

// Alive reports whether a daemon answers on the socket. A socket that
// accepts but never answers is an error, not a dead daemon.
func (c Client) Alive(ctx context.Context) (bool, error) {
	_, err := c.Call(ctx, Request{Command: CommandStatus})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoDaemon):
		return false, nil
	default:
		return false, err
	}
}
