package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/planning-service/internal/application"
	"github.com/example/planning-service/internal/interval"
)

type taskService interface {
	Create(ctx context.Context, params application.CreateTaskParams) (application.Task, error)
	Update(ctx context.Context, params application.UpdateTaskParams) (application.Task, error)
	ChangeStatus(ctx context.Context, params application.ChangeTaskStatusParams) (application.Task, error)
	Assign(ctx context.Context, params application.AssignTaskParams) (application.Task, error)
	Reassign(ctx context.Context, params application.AssignTaskParams) (application.Task, error)
	Delete(ctx context.Context, principal application.Principal, taskID string) error
	Get(ctx context.Context, taskID string) (application.Task, error)
	List(ctx context.Context, params application.ListTasksParams) (application.Page[application.Task], error)
	CountByStatus(ctx context.Context, status application.TaskStatus) (int, error)
}

// TaskHandler serves the task scheduler. Creation needs the task management
// capability; the service enforces the rules of the other mutations.
type TaskHandler struct {
	service   taskService
	responder responder
	logger    *slog.Logger
}

func NewTaskHandler(service taskService, logger *slog.Logger) *TaskHandler {
	base := defaultLogger(logger)
	return &TaskHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TaskHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TaskHandler", operation, attrs...)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !h.responder.requireCapability(r.Context(), w, principal, application.CapabilityManageTasks) {
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	task, err := h.service.Create(r.Context(), application.CreateTaskParams{Principal: principal, Input: input})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTaskDTO(task))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	task, err := h.service.Update(r.Context(), application.UpdateTaskParams{
		Principal: principal,
		TaskID:    r.PathValue("id"),
		Patch:     patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTaskDTO(task))
}

// ChangeStatus accepts the status as a JSON body or as the status query parameter.
func (h *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	req := statusRequest{Status: strings.TrimSpace(r.URL.Query().Get("status"))}
	if req.Status == "" {
		if err := decodeJSON(r, &req); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
			return
		}
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	task, err := h.service.ChangeStatus(r.Context(), application.ChangeTaskStatusParams{
		Principal: principal,
		TaskID:    r.PathValue("id"),
		Status:    application.TaskStatus(req.Status),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTaskDTO(task))
}

func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	h.assign(w, r, "Assign", func(ctx context.Context, params application.AssignTaskParams) (application.Task, error) {
		return h.service.Assign(ctx, params)
	})
}

func (h *TaskHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	h.assign(w, r, "Reassign", func(ctx context.Context, params application.AssignTaskParams) (application.Task, error) {
		return h.service.Reassign(ctx, params)
	})
}

func (h *TaskHandler) assign(w http.ResponseWriter, r *http.Request, operation string, call func(context.Context, application.AssignTaskParams) (application.Task, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	taskID := r.PathValue("id")
	task, err := call(r.Context(), application.AssignTaskParams{
		Principal: principal,
		TaskID:    taskID,
		UserID:    strings.TrimSpace(req.UserID),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), operation, "task_id", taskID, "assignee_id", task.AssigneeID).InfoContext(r.Context(), "task assignee set")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTaskDTO(task))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	task, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTaskDTO(task))
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	fields := fieldErrors{}
	params := application.ListTasksParams{
		ProjectID:  strings.TrimSpace(query.Get("project_id")),
		Status:     application.TaskStatus(strings.TrimSpace(query.Get("status"))),
		AssigneeID: strings.TrimSpace(query.Get("assignee_id")),
		Period:     fields.dateRange(query, "from", "to"),
		Page:       fields.intParam(query, "page"),
		PageSize:   fields.intParam(query, "page_size"),
	}
	if err := fields.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	tasks, err := h.service.List(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPageResponse(tasks, toTaskDTO))
}

func (h *TaskHandler) Count(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	status := application.TaskStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	count, err := h.service.CountByStatus(r.Context(), status)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{Status: string(status), Count: count})
}

type createTaskRequest struct {
	ProjectID   string `json:"project_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      string `json:"status" validate:"omitempty,oneof=todo in_progress done"`
}

func (req createTaskRequest) toInput() (application.TaskInput, error) {
	if err := validateRequest(req); err != nil {
		return application.TaskInput{}, err
	}
	fields := fieldErrors{}
	period := interval.New(fields.date("start_date", req.StartDate), fields.date("end_date", req.EndDate))
	if err := fields.err(); err != nil {
		return application.TaskInput{}, err
	}
	return application.TaskInput{
		ProjectID:   strings.TrimSpace(req.ProjectID),
		Title:       req.Title,
		Description: req.Description,
		Period:      period,
		Priority:    application.TaskPriority(req.Priority),
		Status:      application.TaskStatus(req.Status),
	}, nil
}

type updateTaskRequest struct {
	Title       application.Optional[string]                   `json:"title"`
	Description application.Optional[string]                   `json:"description"`
	StartDate   application.Optional[string]                   `json:"start_date"`
	EndDate     application.Optional[string]                   `json:"end_date"`
	Priority    application.Optional[application.TaskPriority] `json:"priority"`
}

func (req updateTaskRequest) toPatch() (application.TaskPatch, error) {
	fields := fieldErrors{}
	patch := application.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Start:       fields.optionalDate("start_date", req.StartDate),
		End:         fields.optionalDate("end_date", req.EndDate),
		Priority:    req.Priority,
	}
	return patch, fields.err()
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=todo in_progress done"`
}

type assignRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type taskDTO struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	AssigneeID  *string `json:"assignee_id"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toTaskDTO(task application.Task) taskDTO {
	return taskDTO{
		ID:          task.ID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		StartDate:   interval.FormatDate(task.Period.Start),
		EndDate:     interval.FormatDate(task.Period.End),
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		AssigneeID:  optionalString(task.AssigneeID),
		CreatedBy:   task.CreatedBy,
		CreatedAt:   formatTimestamp(task.CreatedAt),
		UpdatedAt:   formatTimestamp(task.UpdatedAt),
	}
}
