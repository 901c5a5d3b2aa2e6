package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/duongdev/nv-internal-sub007/internal/api/dto"
	"github.com/duongdev/nv-internal-sub007/internal/api/middleware"
	"github.com/duongdev/nv-internal-sub007/internal/domain/customer"
	"github.com/duongdev/nv-internal-sub007/internal/domain/task"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskHandler handles HTTP requests for work orders
type TaskHandler struct {
	service task.Service
	logger  *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(service task.Service, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger,
	}
}

// CreateTask handles POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	a, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := task.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		AssigneeIDs:      req.AssigneeIDs,
		ScheduledAt:      req.ScheduledAt,
		ExpectedRevenue:  req.ExpectedRevenue,
		ExpectedCurrency: req.ExpectedCurrency,
	}
	if req.Customer != nil {
		input.Customer = &task.CustomerInput{Name: req.Customer.Name, Phone: req.Customer.Phone}
	}
	if req.Location != nil {
		input.Location = &task.LocationInput{Address: req.Location.Address, Lat: req.Location.Lat, Lng: req.Location.Lng}
	}

	created, err := h.service.CreateTask(c.Request.Context(), input, a)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, TaskToResponse(created))
}

// GetTask handles GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	a, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	id, err := parseTaskID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	found, err := h.service.GetTask(c.Request.Context(), id, a)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TaskToResponse(found))
}

// ListTasks handles GET /api/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	a, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req dto.TaskFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter, err := buildFilter(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.service.ListTasks(c.Request.Context(), *filter, a)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := dto.TaskListResponse{
		Tasks:       make([]dto.TaskResponse, 0, len(page.Tasks)),
		NextCursor:  page.NextCursor,
		HasNextPage: page.HasNextPage,
	}
	for i := range page.Tasks {
		resp.Tasks = append(resp.Tasks, *TaskToResponse(&page.Tasks[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateTask handles PATCH /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	a, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	id, err := parseTaskID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := task.UpdateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		ScheduledAt:      req.ScheduledAt,
		ExpectedRevenue:  req.ExpectedRevenue,
		ExpectedCurrency: req.ExpectedCurrency,
	}
	if req.Customer != nil {
		input.Customer = &task.CustomerInput{Name: req.Customer.Name, Phone: req.Customer.Phone}
	}
	if req.Location != nil {
		input.Location = &task.LocationInput{Address: req.Location.Address, Lat: req.Location.Lat, Lng: req.Location.Lng}
	}

	updated, err := h.service.UpdateTask(c.Request.Context(), id, input, a)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TaskToResponse(updated))
}

// UpdateTaskStatus handles PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	a, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	id, err := parseTaskID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req dto.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.TransitionStatus(c.Request.Context(), id, task.TaskStatus(req.Status), a)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TaskToResponse(updated))
}

// UpdateAssignees handles PATCH /api/tasks/:id/assignees
func (h *TaskHandler) UpdateAssignees(c *gin.Context) {
	a, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	id, err := parseTaskID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req dto.UpdateAssigneesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.UpdateAssignees(c.Request.Context(), id, req.AssigneeIDs, a)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TaskToResponse(updated))
}

// GetTaskActivities handles GET /api/tasks/:id/activities
func (h *TaskHandler) GetTaskActivities(c *gin.Context) {
	a, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	id, err := parseTaskID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	activities, err := h.service.GetTaskActivities(c.Request.Context(), id, a)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		resp = append(resp, *ActivityToResponse(&activities[i]))
	}

	c.JSON(http.StatusOK, gin.H{"activities": resp})
}

// respondError maps domain errors to HTTP status codes. Internal failures are
// never echoed back to the client.
func (h *TaskHandler) respondError(c *gin.Context, err error) {
	var forbidden *task.ForbiddenError
	if errors.As(err, &forbidden) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":  forbidden.Detail,
			"reason": forbidden.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, customer.ErrCustomerNotFound),
		errors.Is(err, customer.ErrLocationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, task.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, task.ErrInvalidInput), errors.Is(err, customer.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, task.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflicting update, retry"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseTaskID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// buildFilter converts query parameters into a structured filter. The search
// string passes through untouched; everything else is validated here.
func buildFilter(req dto.TaskFilterRequest) (*task.TaskFilter, error) {
	filter := &task.TaskFilter{
		Search:    req.Search,
		Cursor:    req.Cursor,
		Take:      req.Take,
		SortBy:    task.SortField(req.SortBy),
		SortOrder: task.SortOrder(req.SortOrder),
		DateField: task.DateField(req.DateField),
	}

	if req.Status != "" {
		status := task.TaskStatus(req.Status)
		if !status.IsValid() {
			return nil, errors.New("unknown status " + req.Status)
		}
		filter.Status = &status
	}

	for _, raw := range req.AssignedUserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.New("invalid assigned user id " + raw)
		}
		filter.AssignedUserIDs = append(filter.AssignedUserIDs, id)
	}

	if req.DateFrom != "" {
		from, err := time.Parse(time.RFC3339, req.DateFrom)
		if err != nil {
			return nil, errors.New("invalid date_from, expected RFC3339")
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := time.Parse(time.RFC3339, req.DateTo)
		if err != nil {
			return nil, errors.New("invalid date_to, expected RFC3339")
		}
		filter.DateTo = &to
	}

	return filter, nil
}
