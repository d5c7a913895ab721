package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"webanswer/tools"

	"go.uber.org/zap"
)

const (
	defaultJournalLimit = 20
	maxBatchQueries     = 32
	maxRequestBytes     = 1 << 20
)

type AnswerRequest struct {
	Query string `json:"query"`
}

type AnswerResponse struct {
	Answer string `json:"answer"`
}

type BatchAnswerRequest struct {
	Queries []string `json:"queries"`
}

type BatchAnswerResponse struct {
	Answers []string `json:"answers"`
}

type ToolResponse struct {
	Result string `json:"result"`
}

// AnswerHandler always replies 200; pipeline failures arrive as the fixed
// failure text in the answer field.
func (s *Server) AnswerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, AnswerResponse{Answer: s.answerer.GetAnswerFromWeb(r.Context(), req.Query)})
}

func (s *Server) BatchAnswerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BatchAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.Queries) > maxBatchQueries {
		http.Error(w, fmt.Sprintf("at most %d queries per batch", maxBatchQueries), http.StatusBadRequest)
		return
	}

	answers := s.answerer.AnswerAll(r.Context(), req.Queries, s.batchLimit)
	writeJSON(w, http.StatusOK, BatchAnswerResponse{Answers: answers})
}

func (s *Server) ListToolsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.registry.Specs())
}

func (s *Server) InvokeToolHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.PathValue("name")
	if _, ok := s.registry.Get(name); !ok {
		http.Error(w, fmt.Sprintf("%v: %s", tools.ErrUnknownTool, name), http.StatusNotFound)
		return
	}

	args := map[string]any{}
	if err := decodeJSON(w, r, &args); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	result, err := s.registry.Invoke(r.Context(), name, args)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ToolResponse{Result: result})
	case errors.Is(err, tools.ErrUnknownTool):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, tools.ErrInvalidArguments):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, tools.ErrToolNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Warn("tool invocation failed", zap.String("tool", name), zap.Error(err))
		http.Error(w, fmt.Sprintf("Tool failed: %v", err), http.StatusBadGateway)
	}
}

func (s *Server) JournalHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}

	limit := defaultJournalLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(limit)
	if err != nil {
		s.logger.Error("journal read failed", zap.Error(err))
		http.Error(w, "Failed to read journal", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
