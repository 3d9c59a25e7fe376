package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// HandleWebSocket upgrades the connection and pushes a status snapshot
// once per second until the client disconnects. There is no inbound
// protocol — this is a one-way status feed for dashboards that would
// otherwise have to poll /status.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // internal control plane, no TLS termination assumed here
	})
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	ctx := r.Context()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := h.orc.Status()
			payload := map[string]any{
				"running":      status.Running,
				"agents_count": len(status.Agents),
				"queue_size":   status.QueueSize,
				"active_tasks": status.ActiveTasks,
				"tasks": map[string]int{
					"total":       status.Tasks.Total,
					"pending":     status.Tasks.Pending,
					"in_progress": status.Tasks.InProgress,
					"completed":   status.Tasks.Completed,
					"failed":      status.Tasks.Failed,
				},
			}
			data, err := json.Marshal(payload)
			if err != nil {
				h.logger.Error("marshal status payload", zap.Error(err))
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
