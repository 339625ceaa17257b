package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/deckwars-server/internal/hub"
	"github.com/DoyleJ11/deckwars-server/internal/session"
)

// hubTimeout bounds how long a request waits on the hub goroutine.
const hubTimeout = 2 * time.Second

type sessionsResponse struct {
	Joinable    []session.Summary `json:"joinable"`
	Spectatable []session.Summary `json:"spectatable"`
}

// ListSessions serves the lobby listing so clients can browse before they
// open a socket.
func ListSessions(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), hubTimeout)
		defer cancel()
		l, ok := h.Sessions(ctx)
		if !ok {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		resp := sessionsResponse{Joinable: l.Joinable, Spectatable: l.Spectatable}
		if resp.Joinable == nil {
			resp.Joinable = []session.Summary{}
		}
		if resp.Spectatable == nil {
			resp.Spectatable = []session.Summary{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func GetStats(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), hubTimeout)
		defer cancel()
		s, ok := h.Stats(ctx)
		if !ok {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// Hijack passes through so /ws can upgrade behind the logger.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("httpapi: response does not support hijacking")
	}
	return hj.Hijack()
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
