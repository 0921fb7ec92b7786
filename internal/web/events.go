package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xilytix/revdatasource/internal/logging"
)

// heartbeatInterval keeps idle event streams open through proxies.
const heartbeatInterval = 15 * time.Second

// handleEvents streams dataset events via Server-Sent Events. Each event is
// written with its kind as the SSE event name and a per-stream sequence id.
// A client that falls behind loses events and should reload its window on
// the next records_reset or reordered event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	log := logging.FromContext(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	events := s.data.Subscribe()
	defer s.data.Unsubscribe(events)

	fmt.Fprintf(w, "event: ready\ndata: {\"records\":%d}\n\n", s.data.Len())
	if err := rc.Flush(); err != nil {
		log.Error("event stream not supported", "error", err)
		return
	}
	log.Debug("event stream opened")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	var seq int
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Dataset closed
				fmt.Fprintf(w, "event: closed\ndata: {}\n\n")
				rc.Flush()
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.Error("event encode error", "error", err, "kind", ev.Kind)
				continue
			}
			seq++
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Kind, data)
			if err := rc.Flush(); err != nil {
				return
			}

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			if err := rc.Flush(); err != nil {
				return
			}

		case <-r.Context().Done():
			log.Debug("event stream closed by client")
			return
		}
	}
}
