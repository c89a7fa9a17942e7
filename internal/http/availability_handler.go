package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/interval"
)

type availabilityService interface {
	Create(ctx context.Context, params application.CreateAvailabilityParams) (application.Availability, error)
	Update(ctx context.Context, params application.UpdateAvailabilityParams) (application.Availability, error)
	Delete(ctx context.Context, principal application.Principal, availabilityID string) error
	Get(ctx context.Context, availabilityID string) (application.Availability, error)
	List(ctx context.Context, params application.ListAvailabilitiesParams) (application.Page[application.Availability], error)
	Check(ctx context.Context, userID string, period interval.Interval) (application.AvailabilityCheck, error)
}

// AvailabilityHandler serves the availability ledger. Ownership rules are
// enforced by the service.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

// Create records a window. Without user_id the window belongs to the caller.
func (h *AvailabilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req createAvailabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	input, err := req.toInput(principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	availability, err := h.service.Create(r.Context(), application.CreateAvailabilityParams{Principal: principal, Input: input})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAvailabilityDTO(availability))
}

func (h *AvailabilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req updateAvailabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	availability, err := h.service.Update(r.Context(), application.UpdateAvailabilityParams{
		Principal:      principal,
		AvailabilityID: r.PathValue("id"),
		Patch:          patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityDTO(availability))
}

func (h *AvailabilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	availability, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityDTO(availability))
}

func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	fields := fieldErrors{}
	params := application.ListAvailabilitiesParams{
		UserID:   strings.TrimSpace(query.Get("user_id")),
		Period:   fields.dateRange(query, "from", "to"),
		Page:     fields.intParam(query, "page"),
		PageSize: fields.intParam(query, "page_size"),
	}
	if err := fields.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	windows, err := h.service.List(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPageResponse(windows, toAvailabilityDTO))
}

// Check reports whether a user is available for a whole period. Without
// user_id the caller is checked.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	userID := strings.TrimSpace(query.Get("user_id"))
	if userID == "" {
		userID = principal.UserID
	}

	fields := fieldErrors{}
	for _, key := range []string{"start_date", "end_date"} {
		if strings.TrimSpace(query.Get(key)) == "" {
			fields.add(key, key+" is required")
		}
	}
	period := fields.dateRange(query, "start_date", "end_date")
	if err := fields.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	check, err := h.service.Check(r.Context(), userID, *period)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityCheckDTO{
		UserID:    check.UserID,
		StartDate: interval.FormatDate(check.Period.Start),
		EndDate:   interval.FormatDate(check.Period.End),
		Available: check.Available,
		VetoedBy:  check.VetoedBy,
		CoveredBy: optionalString(check.CoveredBy),
	})
}

type createAvailabilityRequest struct {
	UserID    string `json:"user_id"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	Available *bool  `json:"available" validate:"required"`
	Note      string `json:"note" validate:"max=500"`
}

func (req createAvailabilityRequest) toInput(principal application.Principal) (application.AvailabilityInput, error) {
	if err := validateRequest(req); err != nil {
		return application.AvailabilityInput{}, err
	}
	fields := fieldErrors{}
	period := interval.New(fields.date("start_date", req.StartDate), fields.date("end_date", req.EndDate))
	if err := fields.err(); err != nil {
		return application.AvailabilityInput{}, err
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = principal.UserID
	}
	return application.AvailabilityInput{
		UserID:    userID,
		Period:    period,
		Available: *req.Available,
		Note:      req.Note,
	}, nil
}

type updateAvailabilityRequest struct {
	StartDate application.Optional[string] `json:"start_date"`
	EndDate   application.Optional[string] `json:"end_date"`
	Available application.Optional[bool]   `json:"available"`
	Note      application.Optional[string] `json:"note"`
}

func (req updateAvailabilityRequest) toPatch() (application.AvailabilityPatch, error) {
	fields := fieldErrors{}
	patch := application.AvailabilityPatch{
		Start:     fields.optionalDate("start_date", req.StartDate),
		End:       fields.optionalDate("end_date", req.EndDate),
		Available: req.Available,
		Note:      req.Note,
	}
	return patch, fields.err()
}

type availabilityDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available bool   `json:"available"`
	Note      string `json:"note"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toAvailabilityDTO(a application.Availability) availabilityDTO {
	return availabilityDTO{
		ID:        a.ID,
		UserID:    a.UserID,
		StartDate: interval.FormatDate(a.Period.Start),
		EndDate:   interval.FormatDate(a.Period.End),
		Available: a.Available,
		Note:      a.Note,
		CreatedAt: formatTimestamp(a.CreatedAt),
		UpdatedAt: formatTimestamp(a.UpdatedAt),
	}
}

type availabilityCheckDTO struct {
	UserID    string   `json:"user_id"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Available bool     `json:"available"`
	VetoedBy  []string `json:"vetoed_by,omitempty"`
	CoveredBy *string  `json:"covered_by,omitempty"`
}
