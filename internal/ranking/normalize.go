package ranking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

// Normalize rewrites positions of every lane of a board to 0..n-1, keeping
// the current relative order (ties broken by creation time, then id). It
// returns the number of tasks whose position changed.
func (e *Engine) Normalize(ctx context.Context, boardID uuid.UUID) (int, error) {
	rewritten := 0
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		if err := lockBoard(tx, boardID); err != nil {
			return err
		}
		for _, status := range model.Lanes {
			var tasks []model.Task
			err := tx.Select("id", "position").
				Where("board_id = ? AND status = ?", boardID, status).
				Order("position").Order("created_at").Order("id").
				Find(&tasks).Error
			if err != nil {
				return err
			}
			for i, t := range tasks {
				if t.Position == i {
					continue
				}
				err := tx.Model(&model.Task{}).
					Where("id = ?", t.ID).
					UpdateColumn("position", i).Error
				if err != nil {
					return err
				}
				rewritten++
			}
		}
		return nil
	})
	if err != nil {
		return 0, classify("normalize board", err)
	}

	if rewritten > 0 {
		e.invalidate(ctx, boardID)
	}
	return rewritten, nil
}

// CheckInvariant reports ErrInvariantViolated if any lane of the board is
// not exactly 0..n-1.
func (e *Engine) CheckInvariant(ctx context.Context, boardID uuid.UUID) error {
	var tasks []model.Task
	err := e.db.WithContext(ctx).
		Select("id", "status", "position").
		Where("board_id = ?", boardID).
		Order("status").Order("position").
		Find(&tasks).Error
	if err != nil {
		return classify("check invariant", err)
	}

	next := map[model.Status]int{}
	for _, t := range tasks {
		want := next[t.Status]
		if t.Position != want {
			return fmt.Errorf("%w: lane %s has position %d where %d was expected",
				ErrInvariantViolated, t.Status, t.Position, want)
		}
		next[t.Status] = want + 1
	}
	return nil
}
