package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/ranking"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// TaskEngine is the part of ranking.Engine the handlers need.
type TaskEngine interface {
	Insert(ctx context.Context, in ranking.InsertInput) (*model.Task, error)
	Move(ctx context.Context, taskID uuid.UUID, in ranking.MoveInput) (*model.Task, ranking.MoveResult, error)
	Delete(ctx context.Context, taskID uuid.UUID) (*model.Task, error)
	List(ctx context.Context, boardID uuid.UUID) (*ranking.Lanes, error)
	Get(ctx context.Context, taskID uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, taskID uuid.UUID, in ranking.UpdateInput) (*model.Task, error)
}

var _ TaskEngine = (*ranking.Engine)(nil)

type TaskHandler struct {
	engine     TaskEngine
	maxRetries int
}

func NewTaskHandler(engine TaskEngine, maxRetries int) *TaskHandler {
	return &TaskHandler{engine: engine, maxRetries: maxRetries}
}

// CreateTaskRequest представляет запрос на создание задачи
type CreateTaskRequest struct {
	BoardID     string       `json:"board_id" binding:"required"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      model.Status `json:"status"`
}

// UpdateTaskRequest: description может быть явно null
type UpdateTaskRequest struct {
	Title       *string         `json:"title"`
	Description json.RawMessage `json:"description" swaggertype:"string"`
	Status      *model.Status   `json:"status"`
}

// MoveTaskRequest представляет запрос на перемещение задачи
type MoveTaskRequest struct {
	Status   model.Status `json:"status" binding:"required"`
	Position *int         `json:"position" binding:"required"`
}

type TaskResponse struct {
	ID          string       `json:"id"`
	BoardID     string       `json:"board_id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      model.Status `json:"status"`
	Position    int          `json:"position"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

type LanesResponse struct {
	Todo       []TaskResponse `json:"todo"`
	InProgress []TaskResponse `json:"in_progress"`
	Done       []TaskResponse `json:"done"`
}

type MoveResponse struct {
	Task    TaskResponse `json:"task"`
	Changed bool         `json:"changed"`
	Shifted int64        `json:"shifted"`
}

func toTaskResponse(t *model.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		BoardID:     t.BoardID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Position:    t.Position,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
}

func toTaskResponses(tasks []model.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = toTaskResponse(&tasks[i])
	}
	return out
}

func invalidBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}

// List godoc
// @Summary      Tasks of a board grouped by status
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        board_id query string true "Board ID"
// @Success      200 {object} LanesResponse
// @Failure      404 {object} map[string]string
// @Failure      422 {object} map[string]string
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	boardID, err := uuid.Parse(c.Query("board_id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid board_id", "field": "board_id"})
		return
	}

	lanes, err := h.engine.List(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LanesResponse{
		Todo:       toTaskResponses(lanes.Todo),
		InProgress: toTaskResponses(lanes.InProgress),
		Done:       toTaskResponses(lanes.Done),
	})
}

// Create godoc
// @Summary      Append a task to the end of its lane
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateTaskRequest true "Task"
// @Success      201 {object} TaskResponse
// @Failure      422 {object} map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		invalidBody(c)
		return
	}
	boardID, err := uuid.Parse(req.BoardID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid board_id", "field": "board_id"})
		return
	}

	var task *model.Task
	err = retryOnConflict(c.Request.Context(), h.maxRetries, func() error {
		var err error
		task, err = h.engine.Insert(c.Request.Context(), ranking.InsertInput{
			BoardID:     boardID,
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
		})
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTaskResponse(task))
}

// GetByID godoc
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} TaskResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	taskID, _ := uuid.Parse(c.Param("id"))

	task, err := h.engine.Get(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Update godoc
// @Summary      Edit a task; a new status appends it to that lane
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body UpdateTaskRequest true "Fields to change"
// @Success      200 {object} TaskResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	taskID, _ := uuid.Parse(c.Param("id"))

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	in := ranking.UpdateInput{Title: req.Title, Status: req.Status}
	switch raw := string(req.Description); {
	case raw == "":
	case raw == "null":
		in.ClearDescription = true
	default:
		var desc string
		if err := json.Unmarshal(req.Description, &desc); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "description must be a string", "field": "description"})
			return
		}
		in.Description = &desc
	}

	var task *model.Task
	err := retryOnConflict(c.Request.Context(), h.maxRetries, func() error {
		var err error
		task, err = h.engine.Update(c.Request.Context(), taskID, in)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Move godoc
// @Summary      Move a task within or across lanes
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body MoveTaskRequest true "Target lane and position"
// @Success      200 {object} MoveResponse
// @Failure      409 {object} map[string]string
// @Failure      422 {object} map[string]string
// @Router       /tasks/{id}/move [patch]
func (h *TaskHandler) Move(c *gin.Context) {
	taskID, _ := uuid.Parse(c.Param("id"))

	var req MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	var (
		task   *model.Task
		result ranking.MoveResult
	)
	err := retryOnConflict(c.Request.Context(), h.maxRetries, func() error {
		var err error
		task, result, err = h.engine.Move(c.Request.Context(), taskID, ranking.MoveInput{
			Status:   req.Status,
			Position: *req.Position,
		})
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MoveResponse{
		Task:    toTaskResponse(task),
		Changed: result.Changed,
		Shifted: result.Shifted,
	})
}

// Delete godoc
// @Summary      Delete a task and close the gap in its lane
// @Tags         tasks
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      204
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	taskID, _ := uuid.Parse(c.Param("id"))

	err := retryOnConflict(c.Request.Context(), h.maxRetries, func() error {
		_, err := h.engine.Delete(c.Request.Context(), taskID)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
