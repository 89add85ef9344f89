package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rbright/voxtype/internal/fsm"
	"github.com/rbright/voxtype/internal/ipc"
)

// HandleRequest serves IPC commands against the running controller.
func (c *Controller) HandleRequest(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return ipc.Response{OK: true, State: string(c.State()), Status: c.status()}
	case "cancel":
		if err := c.Abort(ctx); err != nil {
			state := c.State()
			if state == fsm.StateProcessing {
				return ipc.Response{OK: false, State: string(state), Error: "cannot cancel while processing"}
			}
			return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
		}
		return ipc.Response{OK: true, State: string(c.State()), Message: "recording cancelled"}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) status() *ipc.Status {
	summary := c.Summary()
	status := &ipc.Status{
		PID:      os.Getpid(),
		Sessions: summary.Sessions,
		Outcomes: make(map[string]int, len(summary.Outcomes)),
	}
	for kind, n := range summary.Outcomes {
		status.Outcomes[string(kind)] = n
	}
	if last := summary.Last; last != nil {
		status.Last = &ipc.LastSession{
			ID:         last.SessionID,
			Outcome:    string(last.Kind),
			AudioMS:    last.AudioDuration.Milliseconds(),
			FinishedAt: last.FinishedAt.Format(time.RFC3339),
		}
		if last.Err != nil {
			status.Last.Error = last.Err.Error()
		}
	}
	return status
}
