package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/agenthub/agenthub/internal/models"
	"github.com/agenthub/agenthub/internal/types"
	"github.com/agenthub/agenthub/pkg/llm"
	"github.com/agenthub/agenthub/pkg/store"
)

// Config represents the configuration for the HTTP server.
type Config struct {
	Port  int
	Model string // generation model name, reported by /health
}

// Server exposes the chat, ingest and retrieve operations over HTTP.
// Chat answers stream as server-sent events.
type Server struct {
	config    Config
	chat      types.ChatStreamer
	retriever types.Retriever
	ingestor  types.Ingestor
}

func New(config Config, chat types.ChatStreamer, retriever types.Retriever, ingestor types.Ingestor) *Server {
	if config.Port == 0 {
		config.Port = 8000
	}

	return &Server{
		config:    config,
		chat:      chat,
		retriever: retriever,
		ingestor:  ingestor,
	}
}

// Handler returns the routed handler, wrapped with CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("POST /retrieve", s.handleRetrieve)
	return withCORS(mux)
}

// Start blocks serving HTTP on the configured port.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("listening on %s", srv.Addr)
	return srv.ListenAndServe()
}

type chatRequest struct {
	Q    string `json:"q"`
	TopK int    `json:"top_k"`
}

type ingestRequest struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"model": s.config.Model,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	// Retrieval and prompt composition happen inside ChatStream before
	// the first token, so failures here are clean HTTP errors.
	stream, err := s.chat.ChatStream(r.Context(), req.Q, req.TopK)
	if err != nil {
		log.Printf("chat: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for tok := range stream {
		if tok.Err != nil {
			// The stream ends without a terminal marker; clients treat
			// that as an aborted answer.
			log.Printf("chat: stream aborted: %v", tok.Err)
			return
		}

		data, err := json.Marshal(models.TokenChunk{Token: tok.Token, Done: tok.Done})
		if err != nil {
			log.Printf("chat: marshal: %v", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()

		if tok.Done {
			return
		}
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Path == "" && req.URL == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ingested": 0,
			"detail":   "provide path or url",
		})
		return
	}

	var (
		n   int
		err error
	)
	if req.Path != "" {
		n, err = s.ingestor.IngestPath(r.Context(), req.Path)
	} else {
		n, err = s.ingestor.IngestURL(r.Context(), req.URL)
	}
	if err != nil {
		log.Printf("ingest: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ingested": n})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	hits, err := s.retriever.Retrieve(r.Context(), req.Q, req.TopK)
	if err != nil {
		log.Printf("retrieve: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	if hits == nil {
		hits = []models.SearchResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"hits": hits})
}

// statusFor maps backend failures to 502 and everything else to 500.
func statusFor(err error) int {
	var (
		storeErr *store.UnavailableError
		embErr   *llm.EmbeddingError
		genErr   *llm.GenerationError
	)
	if errors.As(err, &storeErr) || errors.As(err, &embErr) || errors.As(err, &genErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// withCORS allows cross-origin calls; tighten in production.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
