package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/mojistream/internal/stream"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Source is the read side of a Controller or Recorder.
type Source interface {
	Status() stream.Status
	Entries() []stream.Entry
	StreamID() string
}

type statusResponse struct {
	State    string `json:"state"`
	Reason   string `json:"reason,omitempty"`
	StreamID string `json:"stream_id,omitempty"`
	Entries  int    `json:"entries"`
}

type entryResponse struct {
	Seq     int       `json:"seq"`
	Kind    string    `json:"kind"`
	Speaker string    `json:"speaker,omitempty"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

type Server struct {
	httpServer *http.Server
}

func NewServer(addr string, source Source, gatherer prometheus.Gatherer) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(source, gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func NewRouter(source Source, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		st := source.Status()
		writeJSON(w, http.StatusOK, statusResponse{
			State:    st.State.String(),
			Reason:   st.Reason,
			StreamID: source.StreamID(),
			Entries:  len(source.Entries()),
		})
	})
	r.Get("/entries", func(w http.ResponseWriter, _ *http.Request) {
		entries := source.Entries()
		out := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryResponse{
				Seq:     e.Seq,
				Kind:    e.Kind.String(),
				Speaker: e.Speaker,
				Text:    e.Text,
				At:      e.At,
			})
		}
		writeJSON(w, http.StatusOK, out)
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start serves in the background. A listen failure is logged and passed
// to onError.
func (s *Server) Start(onError func(error)) {
	go func() {
		slog.Info("status server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("status server error", "error", err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
