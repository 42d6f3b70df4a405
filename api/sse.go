package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amigadave/libportal/events"
	"github.com/amigadave/libportal/logger"
)

const keepAliveInterval = 30 * time.Second

// sseHandler returns an http.HandlerFunc that streams session events to
// clients. ?types= and ?exclude= take comma-separated event type names.
func sseHandler(b *events.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		if err := sendServerInfo(flusher, w, "connected"); err != nil {
			return
		}

		ch := b.SubscribeFunc(parseFilter(r))
		defer b.Unsubscribe(ch)
		keepAlive := time.NewTimer(keepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				if err := sendServerInfo(flusher, w, "bye"); err != nil {
					logger.Warn("[sse] failed to close events connection: %v", err)
				}
				return
			case <-keepAlive.C:
				if err := sendServerInfo(flusher, w, "keepalive"); err != nil {
					logger.Warn("[sse] failed to send keepalive, closing: %v", err)
					return
				}
				keepAlive.Reset(keepAliveInterval)
			case e, open := <-ch:
				if !open {
					return
				}
				if err := sendEvent(flusher, w, e); err != nil {
					return
				}
				keepAlive.Reset(keepAliveInterval)
			}
		}
	}
}

func sendServerInfo(flusher http.Flusher, w http.ResponseWriter, message string) error {
	return sendEvent(flusher, w, events.Event{Type: events.TypeServerInfo, Data: message})
}

func sendEvent(flusher http.Flusher, w http.ResponseWriter, e events.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		logger.Warn("[sse] failed to marshal event data: %v", err)
		return err
	}
	if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		logger.Error("[sse] failed to write event: %v", err)
		return err
	}
	flusher.Flush()
	return nil
}

// parseFilter builds an event filter from ?types= and ?exclude= query
// parameters. server.info is always included so keepalives get through.
func parseFilter(r *http.Request) func(events.Event) bool {
	q := r.URL.Query()

	include := splitTypes(q.Get("types"))
	if len(include) > 0 {
		include = append(include, events.TypeServerInfo)
	}
	exclude := splitTypes(q.Get("exclude"))

	return events.NewFilter(include, exclude)
}

func splitTypes(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
