// Package httpx exposes the glosswerks auth endpoints, session guards and health checks.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/glosswerks/glosswerks-api/internal/service"
)

// SessionWatcher subscribes to a client's committed sessions.
type SessionWatcher interface {
	Watch(ctx context.Context, clientID string) (*service.SessionWatch, error)
}

// EventHandlers streams committed session changes as server-sent events.
type EventHandlers struct {
	Svc SessionWatcher
	// Heartbeat is the keep-alive comment interval; proxies drop idle streams otherwise.
	Heartbeat time.Duration
	Logger    *slog.Logger
}

func (h *EventHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

const sessionEvent = "session"

// Stream writes the current session, then every committed change, until the client
// disconnects or the watch ends.
// GET /auth/events.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := ClientIDFromContext(ctx)

	watch, err := h.Svc.Watch(ctx, clientID)
	if err != nil {
		RenderError(w, r, h.logger(), "events_unavailable", err)
		return
	}
	defer watch.Stop()

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout; not every writer supports deadlines.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, rc, statusOf(watch.Current)); err != nil {
		return
	}

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultEventsHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case sess, ok := <-watch.Changes:
			if !ok {
				h.logger().DebugContext(ctx, "session stream closed", "client_id", clientID)
				return
			}
			if err := writeEvent(w, rc, statusOf(sess)); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, rc *http.ResponseController, v statusResponse) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sessionEvent, data); err != nil {
		return err
	}
	return rc.Flush()
}
