package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

const memoryWriteTimeout = 30 * time.Second

// QueryRequest is the body of POST /query
type QueryRequest struct {
	Query  string `json:"query"`
	Sender string `json:"sender"`
}

// QueryResponse is the successful answer to POST /query
type QueryResponse struct {
	Query  string `json:"query"`
	Result string `json:"result"`
	Status string `json:"status"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status             string `json:"status"`
	BotCrewInitialized bool   `json:"bot_crew_initialized"`
	Message            string `json:"message"`
}

// ErrorResponse carries the failure detail of any non-2xx answer
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "BotCrew API is running",
		"status":  "healthy",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !s.CrewInitialized() {
		status = "unhealthy"
	}
	writeJSONResponse(w, http.StatusOK, HealthResponse{
		Status:             status,
		BotCrewInitialized: s.CrewInitialized(),
		Message:            "BotCrew API is running",
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	req.Sender = strings.TrimSpace(req.Sender)
	if req.Query == "" {
		writeErrorResponse(w, http.StatusUnprocessableEntity, "Field 'query' is required")
		return
	}
	if req.Sender == "" {
		writeErrorResponse(w, http.StatusUnprocessableEntity, "Field 'sender' is required")
		return
	}

	if !s.CrewInitialized() {
		writeErrorResponse(w, http.StatusInternalServerError, "BotCrew not initialized")
		return
	}

	ctx := r.Context()
	if s.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.QueryTimeout)
		defer cancel()
	}

	logger.Info().Str("sender", req.Sender).Str("query", req.Query).Msg("processing query")
	out, err := s.crew.Kickoff(ctx, map[string]string{
		"query":   req.Query,
		"user_id": req.Sender,
	})
	if err != nil {
		logger.Error().Err(err).Msg("crew run failed")
		writeErrorResponse(w, http.StatusInternalServerError, "Error processing query: "+err.Error())
		return
	}
	result := out.String()

	s.recordExchange(r.Context(), req, result)

	writeJSONResponse(w, http.StatusOK, QueryResponse{
		Query:  req.Query,
		Result: result,
		Status: "success",
	})
}

// recordExchange stores the query and the answer in the sender's history.
// Failures are logged and never change the response.
func (s *Server) recordExchange(ctx context.Context, req QueryRequest, result string) {
	if s.history == nil {
		return
	}
	logger := zerolog.Ctx(ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), memoryWriteTimeout)
	defer cancel()

	messages := []interfaces.Message{
		{Role: "user", Content: req.Query},
		{Role: "assistant", Content: result},
	}
	if _, err := s.history.AddToHistory(ctx, messages, req.Sender); err != nil {
		logger.Warn().Err(err).Str("sender", req.Sender).Msg("failed to store conversation")
		s.metrics.ObserveMemoryWrite(false)
		return
	}
	s.metrics.ObserveMemoryWrite(true)
}

func writeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErrorResponse(w http.ResponseWriter, status int, detail string) {
	writeJSONResponse(w, status, ErrorResponse{Detail: detail})
}
