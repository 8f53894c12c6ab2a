package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"notibridge/internal/history"
	"notibridge/internal/inbound"
	logx "notibridge/pkg/logx"
)

// handleMessage is the provider webhook. The push is accepted as soon as it
// is decoded; persistence and rendering happen on the inbound path and never
// fail the delivery.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg inbound.Message
	if err := decodeJSON(r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid message payload")
		return
	}
	s.in.HandleMessage(r.Context(), msg)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "invalid token payload")
		return
	}
	s.in.HandleNewToken(r.Context(), req.Token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.hist.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error reading notifications")
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": records})
}

// handleDelete accepts an id, a title+body pair, or both. An empty filter is
// a successful no-op, matching the legacy call surface.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var f history.Filter
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid delete payload")
		return
	}
	removed, err := s.hist.Delete(r.Context(), f)
	if err != nil {
		s.log.Error("delete failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "error deleting notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.hist.Clear(r.Context()); err != nil {
		s.log.Error("clear failed", logx.Err(err))
		writeError(w, http.StatusInternalServerError, "error clearing notifications")
		return
	}
	s.publishCleared()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
