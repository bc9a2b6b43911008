// Package ranking keeps the per-lane ordering of board tasks dense and
// gapless. Every mutation runs in one transaction that first locks the
// owning board row, so concurrent mutations of a board are serialised and
// a reader never sees a lane half shifted.
package ranking

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/internal/model"
)

// LaneCache is the read-through cache consulted by List. Version is read
// before the store is queried; Set must drop the write when an Invalidate
// has bumped the version since.
type LaneCache interface {
	Get(ctx context.Context, boardID uuid.UUID) (*Lanes, bool, error)
	Version(ctx context.Context, boardID uuid.UUID) (int64, error)
	Set(ctx context.Context, boardID uuid.UUID, version int64, lanes *Lanes) error
	Invalidate(ctx context.Context, boardID uuid.UUID) error
}

type Engine struct {
	db       *gorm.DB
	cache    LaneCache
	validate *validator.Validate
	txOpts   *sql.TxOptions
}

type Option func(*Engine)

func WithCache(c LaneCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		txOpts:   TxOptionsFor(db.Dialector.Name()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TxOptionsFor returns the options mutating transactions run with on the
// given dialect. InnoDB defaults to REPEATABLE READ, where the first plain
// read pins a snapshot older than the board lock; positions read under
// that snapshot would not match the rows the range updates touch.
func TxOptionsFor(dialect string) *sql.TxOptions {
	if dialect == "mysql" {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return nil
}

// transaction runs fn in a transaction with the dialect's options.
func (e *Engine) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := e.db.WithContext(ctx)
	if e.txOpts == nil {
		return db.Transaction(fn)
	}
	return db.Transaction(fn, e.txOpts)
}

type InsertInput struct {
	BoardID     uuid.UUID    `validate:"required"`
	Title       string       `validate:"required,max=255"`
	Description *string
	Status      model.Status
}

type MoveInput struct {
	Status   model.Status
	Position int
}

// MoveResult reports what a Move wrote.
type MoveResult struct {
	Changed bool
	Shifted int64
}

type UpdateInput struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *model.Status
}

// Lanes is the grouped projection of a board.
type Lanes struct {
	Todo       []model.Task `json:"todo"`
	InProgress []model.Task `json:"in_progress"`
	Done       []model.Task `json:"done"`
}

// Lane returns the ordered tasks of one status.
func (l *Lanes) Lane(s model.Status) []model.Task {
	switch s {
	case model.StatusTodo:
		return l.Todo
	case model.StatusInProgress:
		return l.InProgress
	case model.StatusDone:
		return l.Done
	}
	return nil
}

// Insert appends a task to the end of its lane.
func (e *Engine) Insert(ctx context.Context, in InsertInput) (*model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = model.StatusTodo
	}
	if err := e.validateInsert(in); err != nil {
		return nil, err
	}

	task := &model.Task{
		BoardID:     in.BoardID,
		Status:      in.Status,
		Title:       in.Title,
		Description: in.Description,
	}
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		if err := lockBoard(tx, in.BoardID); err != nil {
			return err
		}
		last, err := maxPosition(tx, laneOf(task))
		if err != nil {
			return err
		}
		task.Position = last + 1
		return tx.Create(task).Error
	})
	if err != nil {
		return nil, classify("insert task", err)
	}

	e.invalidate(ctx, task.BoardID)
	return task, nil
}

// Move relocates a task to position within the lane of status, shifting
// siblings so that both the source and the destination lane stay dense.
func (e *Engine) Move(ctx context.Context, taskID uuid.UUID, in MoveInput) (*model.Task, MoveResult, error) {
	var result MoveResult
	if !in.Status.Valid() {
		return nil, result, invalid("status", "unknown lane %q", in.Status)
	}
	if in.Position < 0 {
		return nil, result, invalid("position", "must not be negative")
	}

	boardID, err := e.boardOf(ctx, taskID)
	if err != nil {
		return nil, result, classify("move task", err)
	}

	var task *model.Task
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		task, err = loadLocked(tx, boardID, taskID)
		if err != nil {
			return err
		}
		result, err = moveTask(tx, task, in)
		return err
	})
	if err != nil {
		return nil, MoveResult{}, classify("move task", err)
	}

	if result.Changed {
		e.invalidate(ctx, task.BoardID)
	}
	return task, result, nil
}

// moveTask runs the move state machine on an already locked task and
// updates it in place.
func moveTask(tx *gorm.DB, task *model.Task, in MoveInput) (MoveResult, error) {
	var result MoveResult
	from := laneOf(task)
	to := lane{BoardID: task.BoardID, Status: in.Status}
	oldPos, newPos := task.Position, in.Position

	size, err := laneSize(tx, to, task.ID)
	if err != nil {
		return result, err
	}
	if newPos > size {
		return result, invalid("position", "%d is outside [0, %d]", newPos, size)
	}

	var shifted int64
	switch {
	case from == to && oldPos == newPos:
		return result, nil
	case from == to && newPos < oldPos:
		shifted, err = shiftUp(tx, to, newPos, oldPos, task.ID)
	case from == to:
		shifted, err = shiftDown(tx, to, oldPos, newPos, task.ID)
	default:
		var closed, opened int64
		if closed, err = compactAfterRemoval(tx, from, oldPos, task.ID); err != nil {
			return result, err
		}
		opened, err = shiftUp(tx, to, newPos, unbounded, task.ID)
		shifted = closed + opened
	}
	if err != nil {
		return result, err
	}

	err = tx.Model(task).Updates(map[string]any{
		"status":   in.Status,
		"position": newPos,
	}).Error
	if err != nil {
		return result, err
	}
	task.Status = in.Status
	task.Position = newPos
	return MoveResult{Changed: true, Shifted: shifted}, nil
}

// Delete removes a task and compacts the lane it leaves behind.
func (e *Engine) Delete(ctx context.Context, taskID uuid.UUID) (*model.Task, error) {
	boardID, err := e.boardOf(ctx, taskID)
	if err != nil {
		return nil, classify("delete task", err)
	}

	var task *model.Task
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		task, err = loadLocked(tx, boardID, taskID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&model.Task{}, "id = ?", task.ID).Error; err != nil {
			return err
		}
		_, err = compactAfterRemoval(tx, laneOf(task), task.Position, task.ID)
		return err
	})
	if err != nil {
		return nil, classify("delete task", err)
	}

	e.invalidate(ctx, task.BoardID)
	return task, nil
}

// List returns the tasks of a board grouped by lane in position order.
func (e *Engine) List(ctx context.Context, boardID uuid.UUID) (*Lanes, error) {
	if boardID == uuid.Nil {
		return nil, invalid("board_id", "is required")
	}

	version, cacheable := int64(0), false
	if e.cache != nil {
		lanes, ok, err := e.cache.Get(ctx, boardID)
		if err != nil {
			log.WithError(err).WithField("board", boardID).Warn("lane cache read failed")
		} else if ok {
			return lanes, nil
		} else if version, err = e.cache.Version(ctx, boardID); err == nil {
			cacheable = true
		}
	}

	db := e.db.WithContext(ctx)
	if err := boardExists(db, boardID); err != nil {
		return nil, classify("list tasks", err)
	}

	var tasks []model.Task
	err := db.Where("board_id = ?", boardID).
		Order("status").
		Order("position").
		Find(&tasks).Error
	if err != nil {
		return nil, classify("list tasks", err)
	}

	lanes := group(tasks)
	if cacheable {
		if err := e.cache.Set(ctx, boardID, version, lanes); err != nil {
			log.WithError(err).WithField("board", boardID).Warn("lane cache write failed")
		}
	}
	return lanes, nil
}

func group(tasks []model.Task) *Lanes {
	lanes := &Lanes{
		Todo:       []model.Task{},
		InProgress: []model.Task{},
		Done:       []model.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case model.StatusTodo:
			lanes.Todo = append(lanes.Todo, t)
		case model.StatusInProgress:
			lanes.InProgress = append(lanes.InProgress, t)
		case model.StatusDone:
			lanes.Done = append(lanes.Done, t)
		}
	}
	return lanes
}

// Get loads a single task.
func (e *Engine) Get(ctx context.Context, taskID uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := e.db.WithContext(ctx).First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, classify("get task", err)
	}
	return &task, nil
}

// Update edits title and description in place. A status change moves the
// task to the end of the target lane.
func (e *Engine) Update(ctx context.Context, taskID uuid.UUID, in UpdateInput) (*model.Task, error) {
	changes := map[string]any{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := e.validate.Var(title, "required,max=255"); err != nil {
			return nil, invalid("title", "must be 1 to 255 characters")
		}
		changes["title"] = title
	}
	if in.ClearDescription {
		changes["description"] = nil
	} else if in.Description != nil {
		changes["description"] = *in.Description
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, invalid("status", "unknown lane %q", *in.Status)
	}

	boardID, err := e.boardOf(ctx, taskID)
	if err != nil {
		return nil, classify("update task", err)
	}

	var task *model.Task
	moved := false
	err = e.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		task, err = loadLocked(tx, boardID, taskID)
		if err != nil {
			return err
		}

		if in.Status != nil && *in.Status != task.Status {
			size, err := laneSize(tx, lane{BoardID: task.BoardID, Status: *in.Status}, task.ID)
			if err != nil {
				return err
			}
			if _, err := moveTask(tx, task, MoveInput{Status: *in.Status, Position: size}); err != nil {
				return err
			}
			moved = true
		}

		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(task).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(task, "id = ?", task.ID).Error
	})
	if err != nil {
		return nil, classify("update task", err)
	}

	if moved || len(changes) > 0 {
		e.invalidate(ctx, task.BoardID)
	}
	return task, nil
}

func (e *Engine) validateInsert(in InsertInput) error {
	if !in.Status.Valid() {
		return invalid("status", "unknown lane %q", in.Status)
	}
	err := e.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Field() {
		case "BoardID":
			return invalid("board_id", "is required")
		case "Title":
			if fe.Tag() == "max" {
				return invalid("title", "must be at most 255 characters")
			}
			return invalid("title", "is required")
		}
	}
	return invalid("input", "%s", err)
}

func (e *Engine) invalidate(ctx context.Context, boardID uuid.UUID) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, boardID); err != nil {
		log.WithError(err).WithField("board", boardID).Warn("lane cache invalidation failed")
	}
}

// lockBoard takes the row lock that serialises every mutation of a board.
func lockBoard(tx *gorm.DB, boardID uuid.UUID) error {
	var board model.Board
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&board, "id = ?", boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrBoardNotFound
	}
	return err
}

func boardExists(db *gorm.DB, boardID uuid.UUID) error {
	var n int64
	if err := db.Model(&model.Board{}).Where("id = ?", boardID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrBoardNotFound
	}
	return nil
}

// boardOf resolves the board of a task outside any transaction. A task
// never changes board, so the answer stays valid for the lock that follows.
func (e *Engine) boardOf(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error) {
	var task model.Task
	err := e.db.WithContext(ctx).Select("board_id").First(&task, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrTaskNotFound
	}
	return task.BoardID, err
}

// loadLocked locks the board first and only then reads the task, so the
// first read of the transaction already sees every earlier commit on the
// board and the returned lane and position cannot change until commit.
func loadLocked(tx *gorm.DB, boardID, taskID uuid.UUID) (*model.Task, error) {
	err := lockBoard(tx, boardID)
	if errors.Is(err, ErrBoardNotFound) {
		// доска удалена вместе с задачами
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	var task model.Task
	err = tx.First(&task, "id = ? AND board_id = ?", taskID, boardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}
