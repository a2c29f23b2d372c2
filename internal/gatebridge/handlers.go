package gatebridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kingrea/procflow/internal/gate"
)

// GatesResponse is the body of GET /gates.
type GatesResponse struct {
	Last    int64        `json:"last"`
	Entries []gate.Entry `json:"entries"`
}

type healthResponse struct {
	Status        ServerStatus `json:"status"`
	Version       string       `json:"version"`
	LastSeq       int64        `json:"last_seq"`
	UptimeSeconds int64        `json:"uptime_seconds"`
}

type acceptedResponse struct {
	Status string `json:"status"`
	Seq    int64  `json:"seq"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the bridge routes. Unsupported methods get 405 from the mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /gates", s.listGates)
	mux.HandleFunc("POST /gates", s.acceptGate)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, healthResponse{
		Status:        s.Status(),
		Version:       ProtocolVersion,
		LastSeq:       s.journal.Last(),
		UptimeSeconds: int64(s.uptime().Seconds()),
	})
}

func (s *Server) listGates(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	respond(w, http.StatusOK, GatesResponse{Last: s.journal.Last(), Entries: s.journal.List(since)})
}

func parseSince(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || since < 0 {
		return 0, errors.New("since must be a non-negative integer")
	}
	return since, nil
}

func (s *Server) acceptGate(w http.ResponseWriter, r *http.Request) {
	var req gate.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("payload exceeds %d bytes", tooLarge.Limit))
			return
		}
		fail(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validateRequest(req); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	for name, text := range req.Context.Inline {
		req.Context.Inline[name] = gate.Redact(text)
	}

	if err := s.journal.Notify(r.Context(), req); err != nil {
		s.logger.Printf("gatebridge: journal: %v", err)
		fail(w, http.StatusInternalServerError, "gate not recorded")
		return
	}
	seq := s.journal.Last()
	if err := s.forward.Notify(r.Context(), req); err != nil {
		s.logger.Printf("gatebridge: forward %s %q: %v", req.Kind, req.Title, err)
	}
	respond(w, http.StatusAccepted, acceptedResponse{Status: "accepted", Seq: seq})
}

func validateRequest(req gate.Request) error {
	switch {
	case req.Kind != gate.KindCheckpoint && req.Kind != gate.KindBreakpoint:
		return fmt.Errorf("kind must be %q or %q", gate.KindCheckpoint, gate.KindBreakpoint)
	case strings.TrimSpace(req.Title) == "":
		return errors.New("title is required")
	case strings.TrimSpace(req.Context.RunID) == "":
		return errors.New("context.runId is required")
	}
	return nil
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int, msg string) {
	respond(w, status, errorResponse{Error: msg})
}
