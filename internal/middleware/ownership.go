package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrOwnerNotFound is returned by an OwnerLookup for a missing resource.
var ErrOwnerNotFound = errors.New("owner not found")

type OwnerLookup interface {
	BoardOwner(ctx context.Context, boardID uuid.UUID) (uuid.UUID, error)
	TaskOwner(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error)
}

// IDSource extracts a resource id from the request. ok is false when the
// id is absent.
type IDSource func(c *gin.Context) (id uuid.UUID, ok bool, err error)

func FromParam(name string) IDSource {
	return func(c *gin.Context) (uuid.UUID, bool, error) {
		return parseOptional(c.Param(name))
	}
}

func FromQuery(name string) IDSource {
	return func(c *gin.Context) (uuid.UUID, bool, error) {
		return parseOptional(c.Query(name))
	}
}

// FromJSONBody reads board_id from the JSON body. The body stays cached in
// the context for a later ShouldBindBodyWith.
func FromJSONBody() IDSource {
	return func(c *gin.Context) (uuid.UUID, bool, error) {
		var body struct {
			BoardID string `json:"board_id"`
		}
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			return uuid.Nil, false, err
		}
		return parseOptional(body.BoardID)
	}
}

func parseOptional(raw string) (uuid.UUID, bool, error) {
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, true, err
	}
	return id, true, nil
}

// RequireBoardOwner lets the request through only if the authenticated user
// owns the board. A foreign board is reported exactly like a missing one.
func RequireBoardOwner(owners OwnerLookup, src IDSource) gin.HandlerFunc {
	return requireOwner(src, "board_id", "Board not found", owners.BoardOwner)
}

// RequireTaskOwner does the same for the board a task belongs to.
func RequireTaskOwner(owners OwnerLookup, src IDSource) gin.HandlerFunc {
	return requireOwner(src, "task_id", "Task not found", owners.TaskOwner)
}

func requireOwner(src IDSource, field, notFound string,
	lookup func(context.Context, uuid.UUID) (uuid.UUID, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		id, present, err := src(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + field + " format", "field": field})
			return
		}
		if !present {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": field + " is required", "field": field})
			return
		}

		ownerID, err := lookup(c.Request.Context(), id)
		if errors.Is(err, ErrOwnerNotFound) || (err == nil && ownerID != userID) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound})
			return
		}
		if err != nil {
			log.WithError(err).WithField(field, id).Error("ownership lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check access"})
			return
		}

		c.Next()
	}
}
