package handler

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"

	"taskboard/internal/ranking"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	retryInitial = 20 * time.Millisecond
	retryMax     = 500 * time.Millisecond
)

// respondError переводит ошибку движка в HTTP-ответ
func respondError(c *gin.Context, err error) {
	var verr *ranking.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, ranking.ErrBoardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
	case errors.Is(err, ranking.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, ranking.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Board was modified concurrently, try again"})
	default:
		_ = c.Error(err)
		log.WithError(err).WithField("path", c.FullPath()).Error("task operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// retryOnConflict reruns op while it fails with ranking.ErrConflict, at most
// maxRetries extra times.
func retryOnConflict(ctx context.Context, maxRetries int, op func() error) error {
	err := op()
	for attempt := 1; attempt <= maxRetries && errors.Is(err, ranking.ErrConflict); attempt++ {
		delay := exponentialBackoff(attempt, retryInitial, retryMax)
		log.WithFields(log.Fields{"attempt": attempt, "delay": delay}).Debug("retrying after conflict")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		err = op()
	}
	return err
}

func exponentialBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 {
		return initial
	}
	backoff := float64(initial) * math.Pow(2, float64(attempt-1))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	jitter := 0.2 * backoff
	return time.Duration(backoff + (rand.Float64()-0.5)*2*jitter)
}
