package inspect

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// livePollInterval is how often the live endpoint checks for new
// transcript entries.
const livePollInterval = time.Second

// handleLive upgrades to a WebSocket and pushes transcript entries as
// they are appended. Existing entries are sent first, then the file is
// polled and only new entries are forwarded.
func (s *Server) handleLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		sent := 0

		ticker := time.NewTicker(livePollInterval)
		defer ticker.Stop()

		for {
			entries, err := s.transcripts.Read(id)
			if err != nil {
				s.logger.Error("live read failed", "session", id, "error", err)
				conn.Close(websocket.StatusInternalError, "transcript read failed")
				return
			}
			for ; sent < len(entries); sent++ {
				if err := writeEntry(ctx, conn, entries[sent]); err != nil {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func writeEntry(ctx context.Context, conn *websocket.Conn, entry any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
