package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"buildorite/internal/shared/logger"
	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/domain"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBodySize      = 1 << 16
	maxListLimit     = 200
	msgUpdateFailed  = "update failed"
	msgInternalError = "internal server error"
)

// UseCases — все входные порты trip service
type UseCases struct {
	Advance     in.AdvanceMilestoneUseCase
	Verify      in.VerifyMilestoneUseCase
	ReportIssue in.ReportIssueUseCase
	Cancel      in.CancelTripUseCase
	Get         in.GetTripUseCase
	List        in.ListTripsUseCase
}

// HTTPHandler обрабатывает HTTP запросы trip service
type HTTPHandler struct {
	uc  UseCases
	log *logger.Logger
}

// NewHTTPHandler создает новый HTTP handler
func NewHTTPHandler(uc UseCases, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{uc: uc, log: log}
}

// RegisterRoutes регистрирует все HTTP маршруты.
// writeLimit применяется только к изменяющим запросам.
func (h *HTTPHandler) RegisterRoutes(
	mux *http.ServeMux,
	authMiddleware func(http.HandlerFunc) http.HandlerFunc,
	writeLimit func(http.Handler) http.Handler,
) {
	write := func(fn http.HandlerFunc) http.HandlerFunc {
		return authMiddleware(writeLimit(fn).ServeHTTP)
	}

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /trips", authMiddleware(h.handleListTrips))
	mux.HandleFunc("GET /trips/{trip_id}", authMiddleware(h.handleGetTrip))
	mux.HandleFunc("POST /trips/{trip_id}/milestones", write(h.handleAdvance))
	mux.HandleFunc("POST /trips/{trip_id}/verify", write(h.handleVerify))
	mux.HandleFunc("POST /trips/{trip_id}/issue", write(h.handleReportIssue))
	mux.HandleFunc("POST /trips/{trip_id}/cancel", write(h.handleCancel))

	h.log.Info(logger.Entry{
		Action:  "http_routes_registered",
		Message: "trip routes registered",
	})
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// MilestoneRequest — тело advance и verify
type MilestoneRequest struct {
	Status string `json:"status"`
}

// IssueRequest — тело POST /trips/{trip_id}/issue
type IssueRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

// CancelRequest — тело POST /trips/{trip_id}/cancel
type CancelRequest struct {
	Reason string `json:"reason"`
}

func (h *HTTPHandler) handleListTrips(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		respondUnauthorized(w, "unauthorized")
		return
	}

	input := in.ListTripsInput{ActorID: p.UserID, Role: p.Role}
	if raw := r.URL.Query().Get("category"); raw != "" {
		category, ok := domain.ParseCategory(raw)
		if !ok {
			respondJSONError(w, http.StatusBadRequest, "category must be active, scheduled or history")
			return
		}
		input.Category = category
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxListLimit {
			respondJSONError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		input.Limit = limit
	}

	output, err := h.uc.List.Execute(r.Context(), input)
	if err != nil {
		h.handleUseCaseError(w, r, err, msgInternalError)
		return
	}
	respondJSON(w, http.StatusOK, output)
}

func (h *HTTPHandler) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		respondUnauthorized(w, "unauthorized")
		return
	}

	view, err := h.uc.Get.Execute(r.Context(), in.GetTripInput{
		TripID:  r.PathValue("trip_id"),
		ActorID: p.UserID,
		Role:    p.Role,
	})
	if err != nil {
		h.handleUseCaseError(w, r, err, msgInternalError)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		respondUnauthorized(w, "unauthorized")
		return
	}
	var req MilestoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		respondJSONError(w, http.StatusBadRequest, "status is required")
		return
	}

	view, err := h.uc.Advance.Execute(r.Context(), in.AdvanceMilestoneInput{
		TripID:    r.PathValue("trip_id"),
		ActorID:   p.UserID,
		Role:      p.Role,
		Milestone: domain.Milestone(req.Status),
	})
	if err != nil {
		h.handleUseCaseError(w, r, err, msgUpdateFailed)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		respondUnauthorized(w, "unauthorized")
		return
	}
	var req MilestoneRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		respondJSONError(w, http.StatusBadRequest, "status is required")
		return
	}

	view, err := h.uc.Verify.Execute(r.Context(), in.VerifyMilestoneInput{
		TripID:    r.PathValue("trip_id"),
		ActorID:   p.UserID,
		Role:      p.Role,
		Milestone: domain.Milestone(req.Status),
	})
	if err != nil {
		h.handleUseCaseError(w, r, err, msgUpdateFailed)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleReportIssue(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		respondUnauthorized(w, "unauthorized")
		return
	}
	var req IssueRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.uc.ReportIssue.Execute(r.Context(), in.ReportIssueInput{
		TripID:  r.PathValue("trip_id"),
		ActorID: p.UserID,
		Role:    p.Role,
		Reason:  domain.IssueReason(req.Reason),
		Notes:   req.Notes,
	})
	if err != nil {
		h.handleUseCaseError(w, r, err, msgUpdateFailed)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		respondUnauthorized(w, "unauthorized")
		return
	}
	var req CancelRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.uc.Cancel.Execute(r.Context(), in.CancelTripInput{
		TripID:  r.PathValue("trip_id"),
		ActorID: p.UserID,
		Role:    p.Role,
		Reason:  req.Reason,
	})
	if err != nil {
		h.handleUseCaseError(w, r, err, msgUpdateFailed)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// decode читает JSON тело. false — ответ уже отправлен.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(into); err != nil {
		if errors.Is(err, io.EOF) {
			respondJSONError(w, http.StatusBadRequest, "empty request body")
			return false
		}
		h.log.Warn(logger.Entry{
			Action:    "parse_request_failed",
			Message:   err.Error(),
			RequestID: RequestIDFrom(r.Context()),
		})
		respondJSONError(w, http.StatusBadRequest, "invalid request format")
		return false
	}
	return true
}

// StatusFor сопоставляет ошибку use case с HTTP статусом
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTripNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfOrder),
		errors.Is(err, domain.ErrMilestoneAlreadyReached),
		errors.Is(err, domain.ErrTripClosed),
		errors.Is(err, domain.ErrCancelNotAllowed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRoleNotPermitted),
		errors.Is(err, domain.ErrVerifierRequired),
		errors.Is(err, domain.ErrNotTripParticipant):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnknownMilestone),
		errors.Is(err, domain.ErrInvalidIssueReason),
		errors.Is(err, domain.ErrCancelReasonRequired),
		errors.Is(err, domain.ErrInvalidTrip):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) handleUseCaseError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := StatusFor(err)
	if status != http.StatusInternalServerError {
		respondJSONError(w, status, err.Error())
		return
	}
	h.log.Error(logger.Entry{
		Action:    "usecase_error",
		Message:   err.Error(),
		RequestID: RequestIDFrom(r.Context()),
		TripID:    r.PathValue("trip_id"),
		Error:     &logger.ErrObj{Msg: err.Error()},
		Additional: map[string]any{
			"path": r.URL.Path,
		},
	})
	respondJSONError(w, status, fallback)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
