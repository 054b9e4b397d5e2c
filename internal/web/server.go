// Package web serves a small ops dashboard over the order journal.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/vadiminshakov/signalbot/internal/domain"
)

const journalPollInterval = 2 * time.Second

type orderEventReader interface {
	EventsAfter(index uint64) ([]domain.OrderEventRecord, error)
}

// Server exposes HTTP endpoints serving the HTML UI, an order history
// endpoint and an SSE stream of new order events.
type Server struct {
	Addr    string
	Journal orderEventReader
}

// NewServer creates a new web server instance.
func NewServer(addr string, journal orderEventReader) *Server {
	return &Server{Addr: addr, Journal: journal}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/orders", s.handleOrders)
	mux.HandleFunc("/orders/stream", s.handleOrderStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "order journal not available")
		return
	}

	records, err := s.Journal.EventsAfter(0)
	if err != nil {
		http.Error(w, "failed to load order history", http.StatusInternalServerError)
		log.Printf("order history load: %v", err)
		return
	}

	events := make([]domain.OrderEvent, 0, len(records))
	for _, record := range records {
		events = append(events, record.Event)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(events); err != nil {
		log.Printf("order history encode: %v", err)
	}
}

func (s *Server) handleOrderStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "order journal not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(journalPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendEvents := func() error {
		records, err := s.Journal.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Event)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: order\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendEvents(); err != nil {
		http.Error(w, "failed to load order events", http.StatusInternalServerError)
		log.Printf("order stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendEvents(); err != nil {
				log.Printf("order stream poll err: %v", err)
			}
		}
	}
}

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>signalbot orders</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #333; padding: 4px 8px; text-align: left; }
tr.rejected td { color: #e66; }
tr.accepted td { color: #6e6; }
</style>
</head>
<body>
<h2>order attempts</h2>
<table id="orders">
<tr><th>time</th><th>symbol</th><th>side</th><th>type</th><th>qty</th><th>price</th><th>status</th><th>order id / error</th></tr>
</table>
<script>
function addRow(ev) {
  const tr = document.createElement('tr');
  tr.className = ev.status;
  const cells = [ev.ts, ev.symbol, ev.side, ev.order_type, ev.qty || '', ev.price || '', ev.status, ev.order_id || ev.error || ''];
  for (const c of cells) {
    const td = document.createElement('td');
    td.textContent = c;
    tr.appendChild(td);
  }
  document.getElementById('orders').appendChild(tr);
}
const es = new EventSource('/orders/stream');
es.addEventListener('order', e => addRow(JSON.parse(e.data)));
</script>
</body>
</html>`
