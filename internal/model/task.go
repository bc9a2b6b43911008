package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lane a task lives in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Lanes lists every status in board display order.
var Lanes = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Task struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	BoardID     uuid.UUID `gorm:"type:char(36);not null;index:idx_tasks_lane,priority:1" json:"board_id"`
	Status      Status    `gorm:"type:varchar(20);not null;default:'todo';index:idx_tasks_lane,priority:2" json:"status"`
	Position    int       `gorm:"not null;default:0;index:idx_tasks_lane,priority:3" json:"position"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
