package ranking

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

// unbounded marks an open upper end of a shifted range.
const unbounded = -1

// lane is the set of tasks sharing a (board, status) pair.
type lane struct {
	BoardID uuid.UUID
	Status  model.Status
}

func laneOf(t *model.Task) lane {
	return lane{BoardID: t.BoardID, Status: t.Status}
}

func (l lane) scope(tx *gorm.DB) *gorm.DB {
	return tx.Model(&model.Task{}).Where("board_id = ? AND status = ?", l.BoardID, l.Status)
}

// shiftUp increments every sibling with position in [from, to).
// With to == unbounded the range is position >= from.
func shiftUp(tx *gorm.DB, l lane, from, to int, exclude uuid.UUID) (int64, error) {
	q := l.scope(tx).Where("position >= ?", from)
	if to != unbounded {
		q = q.Where("position < ?", to)
	}
	res := q.Where("id <> ?", exclude).UpdateColumn("position", gorm.Expr("position + 1"))
	return res.RowsAffected, res.Error
}

// shiftDown decrements every sibling with position in (after, upTo].
// With upTo == unbounded the range is position > after.
func shiftDown(tx *gorm.DB, l lane, after, upTo int, exclude uuid.UUID) (int64, error) {
	q := l.scope(tx).Where("position > ?", after)
	if upTo != unbounded {
		q = q.Where("position <= ?", upTo)
	}
	res := q.Where("id <> ?", exclude).UpdateColumn("position", gorm.Expr("position - 1"))
	return res.RowsAffected, res.Error
}

// compactAfterRemoval closes the gap left at removed.
func compactAfterRemoval(tx *gorm.DB, l lane, removed int, exclude uuid.UUID) (int64, error) {
	return shiftDown(tx, l, removed, unbounded, exclude)
}

func maxPosition(tx *gorm.DB, l lane) (int, error) {
	var result struct {
		Max int
	}
	err := l.scope(tx).
		Select("COALESCE(MAX(position), -1) AS max").
		Scan(&result).Error
	return result.Max, err
}

func laneSize(tx *gorm.DB, l lane, exclude uuid.UUID) (int, error) {
	var n int64
	err := l.scope(tx).Where("id <> ?", exclude).Count(&n).Error
	return int(n), err
}
