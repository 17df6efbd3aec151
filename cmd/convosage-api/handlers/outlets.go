package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/storage"
	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/text2sql"
)

// OutletsHandler handles outlet search and lookup endpoints.
type OutletsHandler struct {
	logger  *observability.Logger
	service *text2sql.Service
	repo    *storage.OutletRepository
}

// NewOutletsHandler creates a new outlets handler.
func NewOutletsHandler(service *text2sql.Service, repo *storage.OutletRepository, logger *observability.Logger) *OutletsHandler {
	return &OutletsHandler{
		logger:  logger,
		service: service,
		repo:    repo,
	}
}

// outletSearchRequest is the POST /outlets/search payload.
type outletSearchRequest struct {
	Question string `json:"question"`
}

// outletSearchMetadata describes how the question was translated.
type outletSearchMetadata struct {
	QueryType string `json:"query_type"`
	Location  string `json:"location,omitempty"`
	Valid     bool   `json:"valid"`
	Cached    bool   `json:"cached"`
	LatencyMs int64  `json:"latency_ms"`
}

// outletSearchResponse is the POST /outlets/search response. Count questions
// answer through total with an empty result list.
type outletSearchResponse struct {
	Question string               `json:"question"`
	SQL      string               `json:"sql"`
	Results  []storage.Outlet     `json:"results"`
	Total    int                  `json:"total"`
	Metadata outletSearchMetadata `json:"metadata"`
}

// Search handles POST /outlets/search.
func (h *OutletsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req outletSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	result, err := h.service.Query(r.Context(), req.Question)
	if err != nil {
		h.logger.Error().Err(err).Str("question", req.Question).Msg("Outlet search failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "error searching outlets")
		return
	}

	resp := outletSearchResponse{
		Question: req.Question,
		SQL:      result.Translation.SQL,
		Results:  result.Outlets,
		Metadata: outletSearchMetadata{
			QueryType: string(result.Translation.QueryType),
			Location:  result.Translation.Location,
			Valid:     result.Translation.Valid,
			Cached:    result.Cached,
			LatencyMs: result.LatencyMs,
		},
	}
	if result.Translation.QueryType == text2sql.QueryTypeCount {
		resp.Results = []storage.Outlet{}
		resp.Total = result.Count
	} else {
		if resp.Results == nil {
			resp.Results = []storage.Outlet{}
		}
		resp.Total = len(resp.Results)
	}

	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /outlets with optional city and state filters.
func (h *OutletsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := storage.OutletFilter{
		City:  r.URL.Query().Get("city"),
		State: r.URL.Query().Get("state"),
	}

	outlets, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Outlet listing failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "error fetching outlets")
		return
	}
	if outlets == nil {
		outlets = []storage.Outlet{}
	}
	writeJSON(w, http.StatusOK, outlets)
}

// GetByID handles GET /outlets/{outletID}.
func (h *OutletsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "outletID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "outlet id must be numeric")
		return
	}

	outlet, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("outlet %d not found", id))
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("outlet_id", id).Msg("Outlet lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "error fetching outlet")
		return
	}

	writeJSON(w, http.StatusOK, outlet)
}
