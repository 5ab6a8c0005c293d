package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/agent"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/prompts"
	"github.com/effective-security/protoreview/validation"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

// ReviewRequest is the body of POST /review and POST /review/raw.
type ReviewRequest struct {
	ProtoContent string `json:"proto_content"`
}

// ReviewResponse is the structured review outcome.
type ReviewResponse struct {
	Issues   []agent.Issue `json:"issues"`
	Summary  string        `json:"summary"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
}

// RawReviewResponse carries the model's unparsed text.
type RawReviewResponse struct {
	RawResponse string `json:"raw_response"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status             string   `json:"status"`
	AvailableProviders []string `json:"available_providers"`
}

// ProvidersResponse is the body of GET /providers.
type ProvidersResponse struct {
	Available []string `json:"available"`
	Supported []string `json:"supported"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Error: code, Detail: detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:             "healthy",
		AvailableProviders: s.factory.Providers(),
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProvidersResponse{
		Available: s.factory.Providers(),
		Supported: []string{"gemini", "openai", "anthropic"},
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, true)
}

func (s *Server) handleReviewRaw(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, false)
}

// selectModel resolves the model for a request: an explicit model name wins,
// then an explicit provider, then the factory's default.
func (s *Server) selectModel(provider, model string) (llms.Model, error) {
	if model != "" {
		return s.factory.ModelByName(model)
	}
	if provider != "" {
		return s.factory.ModelByType(provider)
	}
	return s.factory.DefaultModel()
}

func (s *Server) review(w http.ResponseWriter, r *http.Request, structured bool) {
	ctx := r.Context()
	requestID := uuid.New().String()[:8]

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.ProtoContent) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "proto_content cannot be empty")
		return
	}

	q := r.URL.Query()
	focus := prompts.Focus(q.Get("focus"))
	if focus == "" {
		focus = prompts.FocusEvent
	}
	if !focus.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_request", "focus must be 'event' or 'rest'")
		return
	}

	llm, err := s.selectModel(q.Get("provider"), q.Get("model"))
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"request_id", requestID,
			"reason", "model_selection",
			"err", err.Error(),
		)
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	logger.ContextKV(ctx, xlog.INFO,
		"request_id", requestID,
		"status", "review_started",
		"structured", structured,
		"focus", focus,
		"provider", llm.GetProviderType(),
		"model", llm.GetName(),
	)

	ag := agent.New(llm, s.registry,
		agent.WithFocus(focus),
		agent.WithStructured(structured),
		agent.WithCallback(s.cb),
	)
	result, err := ag.Run(ctx, req.ProtoContent)
	if err != nil {
		if errors.Is(err, validation.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		// Responses carry a sanitized message; the details stay in the log.
		logger.ContextKV(ctx, xlog.ERROR,
			"request_id", requestID,
			"reason", "review_failed",
			"err", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "review processing failed")
		return
	}

	logger.ContextKV(ctx, xlog.INFO,
		"request_id", requestID,
		"status", "review_completed",
		"iterations", result.IterationsUsed,
		"incomplete", result.Incomplete,
	)

	providerName := strings.ToLower(string(result.Provider))
	if !structured {
		writeJSON(w, http.StatusOK, RawReviewResponse{
			RawResponse: result.Content,
			Provider:    providerName,
			Model:       result.Model,
		})
		return
	}

	resp := ReviewResponse{
		Issues:   []agent.Issue{},
		Provider: providerName,
		Model:    result.Model,
	}
	if result.Review != nil {
		if result.Review.Issues != nil {
			resp.Issues = result.Review.Issues
		}
		resp.Summary = result.Review.Summary
	}
	writeJSON(w, http.StatusOK, resp)
}
