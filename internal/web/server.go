// Package web serves the control panel page and the JSON endpoints behind it.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/command"
	"github.com/dokzlo13/lumos/internal/ledger"
	"github.com/dokzlo13/lumos/internal/mode"
	"github.com/dokzlo13/lumos/internal/panel"
)

//go:embed index.html
var indexHTML []byte

const maxBodySize = 1 << 16

var errMissingMode = errors.New("mode is required")

// History queries ledger entries, newest first.
type History interface {
	Recent(limit int) ([]*ledger.Entry, error)
	GetByType(eventType ledger.EventType, limit int) ([]*ledger.Entry, error)
	GetByTimeRange(start, end time.Time, limit int) ([]*ledger.Entry, error)
}

// Server is the HTTP front of a panel.
type Server struct {
	addr       string
	panel      *panel.Panel
	history    History
	httpServer *http.Server
}

// NewServer creates a server for p listening on host:port.
func NewServer(host string, port int, p *panel.Panel) *Server {
	return &Server{
		addr:  fmt.Sprintf("%s:%d", host, port),
		panel: p,
	}
}

// WithHistory enables GET /api/history.
func (s *Server) WithHistory(h History) *Server {
	s.history = h
	return s
}

// Handler returns the routes of the panel.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/check", s.handleCheck)
	mux.HandleFunc("POST /api/input", s.handleInput)
	mux.HandleFunc("POST /api/submit", s.handleSubmit)
	mux.HandleFunc("POST /send", s.handleSend)

	return withRequestID(mux)
}

// Run starts the server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting panel server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Panel server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.panel.Form().Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, http.StatusNotFound, errors.New("history is disabled"))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	filter, err := parseHistoryFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	var entries []*ledger.Entry
	switch {
	case filter.eventType != "":
		entries, err = s.history.GetByType(filter.eventType, limit)
	case filter.byTime:
		entries, err = s.history.GetByTimeRange(filter.start, filter.end, limit)
	default:
		entries, err = s.history.Recent(limit)
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// historyFilter is the optional ?type= or ?since=/&until= (RFC 3339) filter.
type historyFilter struct {
	eventType  ledger.EventType
	start, end time.Time
	byTime     bool
}

func parseHistoryFilter(q url.Values) (historyFilter, error) {
	var f historyFilter
	eventType, since, until := q.Get("type"), q.Get("since"), q.Get("until")

	if eventType != "" {
		if since != "" || until != "" {
			return f, errors.New("type cannot be combined with since/until")
		}
		f.eventType = ledger.EventType(eventType)
		return f, nil
	}
	if since == "" && until == "" {
		return f, nil
	}

	f.byTime = true
	f.start, f.end = time.Unix(0, 0), time.Now()
	var err error
	if since != "" {
		if f.start, err = time.Parse(time.RFC3339, since); err != nil {
			return f, fmt.Errorf("invalid since %q: %w", since, err)
		}
	}
	if until != "" {
		if f.end, err = time.Parse(time.RFC3339, until); err != nil {
			return f, fmt.Errorf("invalid until %q: %w", until, err)
		}
	}
	if f.end.Before(f.start) {
		return f, errors.New("until is before since")
	}
	return f, nil
}

type checkRequest struct {
	Mode    *mode.Mode `json:"mode"`
	Checked bool       `json:"checked"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Mode == nil {
		writeError(w, r, http.StatusBadRequest, errMissingMode)
		return
	}

	st := s.panel.CheckChanged(*req.Mode, req.Checked)
	log.Debug().Str("request_id", requestID(r)).Str("mode", req.Mode.String()).Bool("checked", req.Checked).Str("state", st.String()).Msg("Mode toggled")

	writeJSON(w, http.StatusOK, s.panel.Form().Snapshot())
}

type inputRequest struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if !decode(w, r, &req) {
		return
	}

	// Range inputs report strings, scripts tend to send numbers
	raw := string(req.Value)
	var str string
	if err := json.Unmarshal(req.Value, &str); err == nil {
		raw = str
	}

	if _, err := s.panel.Input(req.ID, raw); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.panel.Form().Snapshot())
}

type submitRequest struct {
	Mode *mode.Mode `json:"mode"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Mode == nil {
		writeError(w, r, http.StatusBadRequest, errMissingMode)
		return
	}

	payload, err := s.panel.Submit(r.Context(), *req.Mode)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "sent": payload})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req command.Payload
	if !decode(w, r, &req) {
		return
	}

	payload, err := s.panel.Send(r.Context(), req)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "sent": payload})
}

// statusFor maps panel errors to HTTP statuses. Anything not a validation
// problem came from the broker.
func statusFor(err error) int {
	switch {
	case errors.Is(err, panel.ErrModeInactive), errors.Is(err, panel.ErrDisabled):
		return http.StatusConflict
	case errors.Is(err, command.ErrInvalidReading), errors.Is(err, panel.ErrUnknownElement):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	log.Warn().Err(err).Str("request_id", requestID(r)).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type ctxKey struct{}

// withRequestID tags every request with an id, echoed in X-Request-ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}
