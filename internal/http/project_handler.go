package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/interval"
)

type projectService interface {
	Create(ctx context.Context, params application.CreateProjectParams) (application.Project, error)
	Update(ctx context.Context, params application.UpdateProjectParams) (application.Project, error)
	Close(ctx context.Context, principal application.Principal, projectID string) (application.Project, error)
	Delete(ctx context.Context, principal application.Principal, projectID string) error
	Get(ctx context.Context, projectID string) (application.Project, error)
	List(ctx context.Context, params application.ListProjectsParams) (application.Page[application.Project], error)
	CountByStatus(ctx context.Context, status application.ProjectStatus) (int, error)
}

// ProjectHandler serves the project lifecycle. Mutations need the project
// management capability and deletion the project deletion capability.
type ProjectHandler struct {
	service   projectService
	responder responder
	logger    *slog.Logger
}

func NewProjectHandler(service projectService, logger *slog.Logger) *ProjectHandler {
	base := defaultLogger(logger)
	return &ProjectHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !h.responder.requireCapability(r.Context(), w, principal, application.CapabilityManageProjects) {
		return
	}

	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	project, err := h.service.Create(r.Context(), application.CreateProjectParams{Principal: principal, Input: input})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toProjectDTO(project))
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !h.responder.requireCapability(r.Context(), w, principal, application.CapabilityManageProjects) {
		return
	}

	var req updateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	project, err := h.service.Update(r.Context(), application.UpdateProjectParams{
		Principal: principal,
		ProjectID: r.PathValue("id"),
		Patch:     patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProjectDTO(project))
}

func (h *ProjectHandler) Close(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !h.responder.requireCapability(r.Context(), w, principal, application.CapabilityManageProjects) {
		return
	}

	project, err := h.service.Close(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProjectDTO(project))
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !h.responder.requireCapability(r.Context(), w, principal, application.CapabilityDeleteProjects) {
		return
	}

	if err := h.service.Delete(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	project, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProjectDTO(project))
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	fields := fieldErrors{}
	params := application.ListProjectsParams{
		Status:   application.ProjectStatus(strings.TrimSpace(query.Get("status"))),
		Period:   fields.dateRange(query, "from", "to"),
		Page:     fields.intParam(query, "page"),
		PageSize: fields.intParam(query, "page_size"),
	}
	if err := fields.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	projects, err := h.service.List(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPageResponse(projects, toProjectDTO))
}

func (h *ProjectHandler) Count(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	status := application.ProjectStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	count, err := h.service.CountByStatus(r.Context(), status)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Status: string(status), Count: count})
}

type createProjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Client      string `json:"client" validate:"required,max=100"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date" validate:"required"`
	Status      string `json:"status" validate:"omitempty,oneof=planned active done cancelled"`
}

func (req createProjectRequest) toInput() (application.ProjectInput, error) {
	if err := validateRequest(req); err != nil {
		return application.ProjectInput{}, err
	}
	fields := fieldErrors{}
	period := interval.New(fields.date("start_date", req.StartDate), fields.date("end_date", req.EndDate))
	if err := fields.err(); err != nil {
		return application.ProjectInput{}, err
	}
	return application.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Client:      req.Client,
		Period:      period,
		Status:      application.ProjectStatus(req.Status),
	}, nil
}

type updateProjectRequest struct {
	Name        application.Optional[string]                    `json:"name"`
	Description application.Optional[string]                    `json:"description"`
	Client      application.Optional[string]                    `json:"client"`
	StartDate   application.Optional[string]                    `json:"start_date"`
	EndDate     application.Optional[string]                    `json:"end_date"`
	Status      application.Optional[application.ProjectStatus] `json:"status"`
}

func (req updateProjectRequest) toPatch() (application.ProjectPatch, error) {
	fields := fieldErrors{}
	patch := application.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Client:      req.Client,
		Start:       fields.optionalDate("start_date", req.StartDate),
		End:         fields.optionalDate("end_date", req.EndDate),
		Status:      req.Status,
	}
	return patch, fields.err()
}

type projectDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Client      string  `json:"client"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Status      string  `json:"status"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	ClosedAt    *string `json:"closed_at,omitempty"`
}

func toProjectDTO(project application.Project) projectDTO {
	return projectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Client:      project.Client,
		StartDate:   interval.FormatDate(project.Period.Start),
		EndDate:     interval.FormatDate(project.Period.End),
		Status:      string(project.Status),
		CreatedBy:   project.CreatedBy,
		CreatedAt:   formatTimestamp(project.CreatedAt),
		UpdatedAt:   formatTimestamp(project.UpdatedAt),
		ClosedAt:    optionalTimestamp(project.ClosedAt),
	}
}
