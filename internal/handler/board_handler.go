package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"taskboard/internal/middleware"
	"taskboard/internal/model"
	"taskboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const MaxBoardsPerUser = 20

type BoardStore interface {
	Create(ctx context.Context, board *model.Board) error
	GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Board, error)
	CountOwned(ctx context.Context, ownerID uuid.UUID) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type BoardHandler struct {
	boards BoardStore
	// вызывается после удаления доски, чтобы сбросить кэш дорожек
	onDelete func(ctx context.Context, boardID uuid.UUID)
}

func NewBoardHandler(boards BoardStore, onDelete func(ctx context.Context, boardID uuid.UUID)) *BoardHandler {
	return &BoardHandler{boards: boards, onDelete: onDelete}
}

type BoardRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

type BoardResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	UserID    string         `json:"user_id"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Tasks     []TaskResponse `json:"tasks"`
}

func toBoardResponse(b *model.Board) BoardResponse {
	tasks := make([]TaskResponse, len(b.Tasks))
	for i := range b.Tasks {
		tasks[i] = toTaskResponse(&b.Tasks[i])
	}
	return BoardResponse{
		ID:        b.ID.String(),
		Name:      b.Name,
		UserID:    b.UserID.String(),
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
		Tasks:     tasks,
	}
}

// Create godoc
// @Summary      Create a board
// @Tags         boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body BoardRequest true "Board"
// @Success      201 {object} BoardResponse
// @Router       /boards [post]
func (h *BoardHandler) Create(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "name is required", "field": "name"})
		return
	}

	count, err := h.boards.CountOwned(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check board count"})
		return
	}
	if count >= MaxBoardsPerUser {
		c.JSON(http.StatusForbidden, gin.H{"error": "Maximum number of boards reached"})
		return
	}

	board := &model.Board{UserID: ownerID, Name: strings.TrimSpace(req.Name)}
	if err := h.boards.Create(c.Request.Context(), board); err != nil {
		log.WithError(err).Error("board create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create board"})
		return
	}

	c.JSON(http.StatusCreated, toBoardResponse(board))
}

// GetAll godoc
// @Summary      List own boards
// @Tags         boards
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} BoardResponse
// @Router       /boards [get]
func (h *BoardHandler) GetAll(c *gin.Context) {
	ownerID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	boards, err := h.boards.GetOwned(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve boards"})
		return
	}

	response := make([]BoardResponse, len(boards))
	for i := range boards {
		response[i] = toBoardResponse(&boards[i])
	}
	c.JSON(http.StatusOK, response)
}

// GetByID godoc
// @Summary      Board with its tasks
// @Tags         boards
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      200 {object} BoardResponse
// @Failure      404 {object} map[string]string
// @Router       /boards/{id} [get]
func (h *BoardHandler) GetByID(c *gin.Context) {
	boardID, _ := uuid.Parse(c.Param("id"))

	board, err := h.boards.GetByID(c.Request.Context(), boardID)
	if errors.Is(err, repository.ErrBoardNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board"})
		return
	}

	c.JSON(http.StatusOK, toBoardResponse(board))
}

// Update godoc
// @Summary      Rename a board
// @Tags         boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Param        request body BoardRequest true "Board"
// @Success      200 {object} BoardResponse
// @Router       /boards/{id} [put]
func (h *BoardHandler) Update(c *gin.Context) {
	boardID, _ := uuid.Parse(c.Param("id"))

	var req BoardRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "name is required", "field": "name"})
		return
	}

	err := h.boards.Rename(c.Request.Context(), boardID, strings.TrimSpace(req.Name))
	if errors.Is(err, repository.ErrBoardNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update board"})
		return
	}

	h.GetByID(c)
}

// Delete godoc
// @Summary      Delete a board and its tasks
// @Tags         boards
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      204
// @Router       /boards/{id} [delete]
func (h *BoardHandler) Delete(c *gin.Context) {
	boardID, _ := uuid.Parse(c.Param("id"))

	err := h.boards.Delete(c.Request.Context(), boardID)
	if errors.Is(err, repository.ErrBoardNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete board"})
		return
	}

	if h.onDelete != nil {
		h.onDelete(c.Request.Context(), boardID)
	}
	c.Status(http.StatusNoContent)
}
