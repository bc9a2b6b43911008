package repository

import (
	"context"
	"errors"

	"taskboard/internal/middleware"
	"taskboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BoardRepository struct {
	db *gorm.DB
}

var _ middleware.OwnerLookup = (*BoardRepository)(nil)

func NewBoardRepository(db *gorm.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

func orderedTasks(db *gorm.DB) *gorm.DB {
	return db.Order("status").Order("position")
}

func (r *BoardRepository) Create(ctx context.Context, board *model.Board) error {
	return r.db.WithContext(ctx).Create(board).Error
}

// GetOwned lists the user's boards, newest first, with their tasks.
func (r *BoardRepository) GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Board, error) {
	var boards []model.Board
	err := r.db.WithContext(ctx).
		Preload("Tasks", orderedTasks).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&boards).Error
	return boards, err
}

func (r *BoardRepository) CountOwned(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Board{}).Where("user_id = ?", ownerID).Count(&count).Error
	return count, err
}

func (r *BoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error) {
	var board model.Board
	err := r.db.WithContext(ctx).
		Preload("Tasks", orderedTasks).
		Where("id = ?", id).
		First(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *BoardRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	result := r.db.WithContext(ctx).Model(&model.Board{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

// Delete removes the board and its tasks in one transaction.
func (r *BoardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("board_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Board{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBoardNotFound
		}
		return nil
	})
}

func (r *BoardRepository) BoardOwner(ctx context.Context, boardID uuid.UUID) (uuid.UUID, error) {
	var board model.Board
	err := r.db.WithContext(ctx).Select("user_id").Where("id = ?", boardID).Take(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, middleware.ErrOwnerNotFound
	}
	return board.UserID, err
}

func (r *BoardRepository) TaskOwner(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error) {
	var row struct {
		UserID uuid.UUID
	}
	err := r.db.WithContext(ctx).
		Table("tasks").
		Select("boards.user_id").
		Joins("JOIN boards ON boards.id = tasks.board_id").
		Where("tasks.id = ?", taskID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, middleware.ErrOwnerNotFound
	}
	return row.UserID, err
}
