package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/observability"
	"github.com/helixir/book-content-service/internal/temporal"
)

const maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

// bookContentRequest is the request for a book content lookup.
type bookContentRequest struct {
	Title     string   `json:"title" validate:"notblank,max=500"`
	Author    string   `json:"author" validate:"max=500"`
	Subjects  []string `json:"subjects" validate:"max=25,dive,max=200"`
	SourceKey string   `json:"source_key" validate:"max=200"`
	UseCache  *bool    `json:"use_cache"`
}

func (r bookContentRequest) query() domain.BookQuery {
	return domain.BookQuery{
		Title:     strings.TrimSpace(r.Title),
		Author:    strings.TrimSpace(r.Author),
		Subjects:  r.Subjects,
		SourceKey: strings.TrimSpace(r.SourceKey),
	}
}

func (r bookContentRequest) useCache() bool {
	return r.UseCache == nil || *r.UseCache
}

// searchRequest is the request for a multi-source search.
type searchRequest struct {
	Query    string   `json:"q" validate:"notblank,max=500"`
	Subjects []string `json:"subjects" validate:"max=25,dive,max=200"`
	Grade    string   `json:"grade" validate:"max=50"`
	Limit    int      `json:"limit" validate:"min=0,max=100"`
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return errors.New("failed to read request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.New("invalid JSON request body")
	}
	return nil
}

// splitList parses a comma-separated query parameter; repeated parameters are merged.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// getBookContent handles POST /api/v1/books/content.
func (s *Server) getBookContent(w http.ResponseWriter, r *http.Request) {
	var req bookContentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.serveBookContent(w, r, req)
}

// getBookContentQuery handles GET /api/v1/books/content.
func (s *Server) getBookContentQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := bookContentRequest{
		Title:     q.Get("title"),
		Author:    q.Get("author"),
		Subjects:  splitList(q["subjects"]),
		SourceKey: q.Get("source_key"),
	}
	if raw := q.Get("use_cache"); raw != "" {
		useCache, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "use_cache must be a boolean")
			return
		}
		req.UseCache = &useCache
	}
	s.serveBookContent(w, r, req)
}

func (s *Server) serveBookContent(w http.ResponseWriter, r *http.Request, req bookContentRequest) {
	if details := validateStruct(req); details != nil {
		writeValidationError(w, details)
		return
	}

	result := s.content.GetBookContent(r.Context(), req.query(), req.useCache())
	writeJSON(w, http.StatusOK, result)
}

// searchBooks handles GET /api/v1/books/search.
func (s *Server) searchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := searchRequest{
		Query:    q.Get("q"),
		Subjects: splitList(q["subjects"]),
		Grade:    q.Get("grade"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = limit
	}
	if details := validateStruct(req); details != nil {
		writeValidationError(w, details)
		return
	}

	query := strings.TrimSpace(req.Query)
	results := s.content.SearchEducationalBooks(r.Context(), query, req.Subjects, req.Grade, req.Limit)
	writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}

// startPrewarm handles POST /api/v1/reading-lists/prewarm.
func (s *Server) startPrewarm(w http.ResponseWriter, r *http.Request) {
	if s.prewarm == nil {
		writeError(w, http.StatusServiceUnavailable, "reading list prewarm is not enabled")
		return
	}

	var list domain.ReadingList
	if err := decodeJSON(r, &list); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if details := validateStruct(list); details != nil {
		writeValidationError(w, details)
		return
	}
	if err := list.Validate(); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, []fieldError{{Field: verr.Field, Message: verr.Message}})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := observability.LoggerFromContext(r.Context(), s.logger)

	workflowID, err := s.prewarm.StartPrewarm(r.Context(), list)
	if err != nil {
		if temporal.IsWorkflowAlreadyStarted(err) {
			writeError(w, http.StatusConflict, "a prewarm for this reading list is already running")
			return
		}
		logger.Error().Err(err).Str("list_id", list.ID).Msg("failed to start prewarm workflow")
		writeError(w, http.StatusBadGateway, "failed to start prewarm")
		return
	}

	logger.Info().
		Str("list_id", list.ID).
		Str("workflow_id", workflowID).
		Int("books", len(list.Books)).
		Msg("prewarm started")

	writeJSON(w, http.StatusAccepted, prewarmResponse{
		WorkflowID: workflowID,
		ListID:     list.ID,
		Books:      len(list.Books),
		Status:     "started",
	})
}

// getPrewarmStatus handles GET /api/v1/reading-lists/prewarm/{workflowID}.
func (s *Server) getPrewarmStatus(w http.ResponseWriter, r *http.Request) {
	if s.prewarm == nil {
		writeError(w, http.StatusServiceUnavailable, "reading list prewarm is not enabled")
		return
	}

	workflowID := chi.URLParam(r, "workflowID")
	status, err := s.prewarm.PrewarmStatus(r.Context(), workflowID)
	if err != nil {
		if temporal.IsWorkflowNotFound(err) {
			writeError(w, http.StatusNotFound, "prewarm not found")
			return
		}
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Error().Err(err).
			Str("workflow_id", workflowID).
			Msg("failed to describe prewarm workflow")
		writeError(w, http.StatusBadGateway, "failed to describe prewarm")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// cancelPrewarm handles DELETE /api/v1/reading-lists/prewarm/{workflowID}.
func (s *Server) cancelPrewarm(w http.ResponseWriter, r *http.Request) {
	if s.prewarm == nil {
		writeError(w, http.StatusServiceUnavailable, "reading list prewarm is not enabled")
		return
	}

	workflowID := chi.URLParam(r, "workflowID")
	logger := observability.LoggerFromContext(r.Context(), s.logger)

	if err := s.prewarm.CancelPrewarm(r.Context(), workflowID); err != nil {
		if temporal.IsWorkflowNotFound(err) {
			writeError(w, http.StatusNotFound, "prewarm not found")
			return
		}
		logger.Error().Err(err).Str("workflow_id", workflowID).Msg("failed to cancel prewarm workflow")
		writeError(w, http.StatusBadGateway, "failed to cancel prewarm")
		return
	}

	logger.Info().Str("workflow_id", workflowID).Msg("prewarm cancel requested")
	writeJSON(w, http.StatusAccepted, prewarmResponse{
		WorkflowID: workflowID,
		Status:     "canceling",
	})
}
