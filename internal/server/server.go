// Package server exposes the question-answering pipeline over HTTP. The API
// surface is small: one endpoint to ask a question, one for index health,
// and a liveness probe.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"docqa/internal/domain"
)

// Invoker runs one pipeline traversal. Implemented by usecase.Pipeline.
type Invoker interface {
	Invoke(ctx context.Context, query string, history []domain.Message) domain.Result
	Threshold() float64
}

// StatsProvider reports index health. Implemented by usecase.Retriever.
type StatsProvider interface {
	Stats() domain.IndexStats
}

// Server handles HTTP requests for the pipeline.
type Server struct {
	pipeline Invoker
	stats    StatsProvider
	log      *slog.Logger
	mux      *http.ServeMux
}

// New builds a server around an invoker and a stats provider.
func New(pipeline Invoker, stats StatsProvider, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		pipeline: pipeline,
		stats:    stats,
		log:      log,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /ask", s.handleAsk)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type askRequest struct {
	Query   string           `json:"query"`
	History []domain.Message `json:"history,omitempty"`
}

type askStep struct {
	Step      string `json:"step"`
	Status    string `json:"status"`
	DocsFound *int   `json:"docs_found,omitempty"`
	Clarify   *bool  `json:"clarify,omitempty"`
}

type askDocument struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

type askResponse struct {
	Status             string        `json:"status"`
	Steps              []askStep     `json:"steps"`
	Answer             string        `json:"answer"`
	NeedsClarification bool          `json:"needs_clarification"`
	Documents          []askDocument `json:"documents"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	res := s.pipeline.Invoke(r.Context(), req.Query, req.History)

	docsFound := len(res.Chunks)
	clarify := res.NeedsClarification
	terminal := "answer"
	if clarify {
		terminal = "clarify"
	}

	resp := askResponse{
		Status: "completed",
		Steps: []askStep{
			{Step: "retrieve", Status: "done", DocsFound: &docsFound},
			{Step: "decision", Status: "done", Clarify: &clarify},
			{Step: terminal, Status: "done"},
		},
		Answer:             res.Answer,
		NeedsClarification: res.NeedsClarification,
		Documents:          buildDocuments(res),
	}

	s.log.Info("ask handled",
		"docs_found", docsFound,
		"clarify", clarify,
		"duration", time.Since(start))
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	domain.IndexStats
	DistanceThreshold float64 `json:"distance_threshold"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		IndexStats:        s.stats.Stats(),
		DistanceThreshold: s.pipeline.Threshold(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// buildDocuments lists retrieved sources with their distances, best first.
// The pipeline already returns candidates in ascending distance order.
func buildDocuments(res domain.Result) []askDocument {
	docs := make([]askDocument, 0, len(res.Chunks))
	for i, chunk := range res.Chunks {
		docs = append(docs, askDocument{
			Source: chunk.Source,
			Score:  roundScore(res.Distances[i]),
		})
	}
	return docs
}

func roundScore(d float64) float64 {
	return math.Round(d*10000) / 10000
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
