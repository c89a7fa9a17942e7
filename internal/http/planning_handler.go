package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/interval"
)

type planningService interface {
	Create(ctx context.Context, params application.CreatePlanningParams) (application.Planning, error)
	Update(ctx context.Context, params application.UpdatePlanningParams) (application.Planning, error)
	Delete(ctx context.Context, principal application.Principal, planningID string) error
	Get(ctx context.Context, planningID string) (application.Planning, error)
	List(ctx context.Context, params application.ListPlanningsParams) (application.Page[application.Planning], error)
}

// PlanningHandler serves the planning journal. Mutations need the planning
// management capability.
type PlanningHandler struct {
	service   planningService
	responder responder
	logger    *slog.Logger
}

func NewPlanningHandler(service planningService, logger *slog.Logger) *PlanningHandler {
	base := defaultLogger(logger)
	return &PlanningHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PlanningHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !h.responder.requireCapability(r.Context(), w, principal, application.CapabilityManagePlannings) {
		return
	}

	var req createPlanningRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	planning, err := h.service.Create(r.Context(), application.CreatePlanningParams{Principal: principal, Input: input})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPlanningDTO(planning))
}

func (h *PlanningHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !h.responder.requireCapability(r.Context(), w, principal, application.CapabilityManagePlannings) {
		return
	}

	var req updatePlanningRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	planning, err := h.service.Update(r.Context(), application.UpdatePlanningParams{
		Principal:  principal,
		PlanningID: r.PathValue("id"),
		Patch:      patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPlanningDTO(planning))
}

func (h *PlanningHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !h.responder.requireCapability(r.Context(), w, principal, application.CapabilityManagePlannings) {
		return
	}

	if err := h.service.Delete(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PlanningHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	planning, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPlanningDTO(planning))
}

// List filters by user_id, project_id, task_id, type and an RFC 3339 from/to range.
func (h *PlanningHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	fields := fieldErrors{}
	params := application.ListPlanningsParams{
		UserID:    strings.TrimSpace(query.Get("user_id")),
		ProjectID: strings.TrimSpace(query.Get("project_id")),
		TaskID:    strings.TrimSpace(query.Get("task_id")),
		Type:      application.PlanningType(strings.TrimSpace(query.Get("type"))),
		Period:    fields.timeRange(query, "from", "to"),
		Page:      fields.intParam(query, "page"),
		PageSize:  fields.intParam(query, "page_size"),
	}
	if err := fields.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	plannings, err := h.service.List(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPageResponse(plannings, toPlanningDTO))
}

type createPlanningRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	UserID      string `json:"user_id" validate:"required"`
	Start       string `json:"start" validate:"required"`
	End         string `json:"end" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=meeting work training leave absence other"`
	ProjectID   string `json:"project_id"`
	TaskID      string `json:"task_id"`
}

func (req createPlanningRequest) toInput() (application.PlanningInput, error) {
	if err := validateRequest(req); err != nil {
		return application.PlanningInput{}, err
	}
	fields := fieldErrors{}
	period := interval.New(fields.timestamp("start", req.Start), fields.timestamp("end", req.End))
	if err := fields.err(); err != nil {
		return application.PlanningInput{}, err
	}
	return application.PlanningInput{
		Title:       req.Title,
		Description: req.Description,
		UserID:      strings.TrimSpace(req.UserID),
		Period:      period,
		Type:        application.PlanningType(req.Type),
		ProjectID:   strings.TrimSpace(req.ProjectID),
		TaskID:      strings.TrimSpace(req.TaskID),
	}, nil
}

type updatePlanningRequest struct {
	Title       application.Optional[string]                   `json:"title"`
	Description application.Optional[string]                   `json:"description"`
	Start       application.Optional[string]                   `json:"start"`
	End         application.Optional[string]                   `json:"end"`
	Type        application.Optional[application.PlanningType] `json:"type"`
	ProjectID   application.Optional[string]                   `json:"project_id"`
	TaskID      application.Optional[string]                   `json:"task_id"`
}

func (req updatePlanningRequest) toPatch() (application.PlanningPatch, error) {
	fields := fieldErrors{}
	patch := application.PlanningPatch{
		Title:       req.Title,
		Description: req.Description,
		Start:       fields.optionalTimestamp("start", req.Start),
		End:         fields.optionalTimestamp("end", req.End),
		Type:        req.Type,
		ProjectID:   req.ProjectID,
		TaskID:      req.TaskID,
	}
	return patch, fields.err()
}

type planningDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	UserID      string  `json:"user_id"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Type        string  `json:"type"`
	ProjectID   *string `json:"project_id"`
	TaskID      *string `json:"task_id"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toPlanningDTO(p application.Planning) planningDTO {
	return planningDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		UserID:      p.UserID,
		Start:       formatTimestamp(p.Period.Start),
		End:         formatTimestamp(p.Period.End),
		Type:        string(p.Type),
		ProjectID:   optionalString(p.ProjectID),
		TaskID:      optionalString(p.TaskID),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   formatTimestamp(p.CreatedAt),
		UpdatedAt:   formatTimestamp(p.UpdatedAt),
	}
}
