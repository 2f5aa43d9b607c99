package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/live"
	"fintrack/internal/log"
)

const (
	eventTransactions = "transactions"
	eventSummary      = "summary"
	eventError        = "error"
)

type liveTransactions struct {
	Count int `json:"count"`
}

type liveSummary struct {
	Income     string `json:"income"`
	Expenses   string `json:"expenses"`
	NetSavings string `json:"netSavings"`
	Count      int    `json:"count"`
}

func (s *Server) handleLiveTransactions(w http.ResponseWriter, r *http.Request) {
	results := s.svc.WatchAll(r.Context())
	stream(s, w, r, eventTransactions, results, func(txs []core.Transaction) any {
		return liveTransactions{Count: len(txs)}
	})
}

func (s *Server) handleLiveSummary(w http.ResponseWriter, r *http.Request) {
	window, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	results := s.svc.WatchSummary(r.Context(), window)
	stream(s, w, r, eventSummary, results, func(sum core.Summary) any {
		return liveSummary{
			Income:     sum.Income.String(),
			Expenses:   sum.Expenses.String(),
			NetSavings: sum.NetSavings.String(),
			Count:      sum.Count,
		}
	})
}

// stream writes every emission of a live query as a server-sent event until
// the client disconnects or the server shuts down. The event id is the hub
// version the emission reflects.
func stream[T any](s *Server, w http.ResponseWriter, r *http.Request, event string, results <-chan live.Result[T], payload func(T) any) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentLive)

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-store")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.ErrorContext(ctx, "Live stream cannot flush", "event", event, log.FieldError, err)
		return
	}

	atomic.AddInt64(&s.metrics.liveStreams, 1)
	defer atomic.AddInt64(&s.metrics.liveStreams, -1)
	logger.DebugContext(ctx, "Live stream opened", "event", event)

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			logger.DebugContext(ctx, "Live stream closed", "event", event)
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			if res.Err != nil {
				logger.WarnContext(ctx, "Live query failed", "event", event, log.FieldError, res.Err)
				err = writeEvent(w, res.Version, eventError, map[string]string{"error": "query failed"})
			} else {
				err = writeEvent(w, res.Version, event, payload(res.Value))
			}
		case <-keepAlive.C:
			_, err = fmt.Fprint(w, ": keepalive\n\n")
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			logger.DebugContext(ctx, "Live stream write failed", "event", event, log.FieldError, err)
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, id uint64, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
