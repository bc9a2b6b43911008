package ranking_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/model"
	"taskboard/internal/ranking"
)

// setupSharedDB opens a file database behind a pool of several
// connections, so concurrent transactions really overlap.
func setupSharedDB(t *testing.T) (*gorm.DB, *model.Board) {
	dsn := "file:" + filepath.Join(t.TempDir(), "board.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Board{}, &model.Task{}))

	user := &model.User{Email: "owner@example.com", HashedPassword: "x", Name: "Owner"}
	require.NoError(t, db.Create(user).Error)
	board := &model.Board{UserID: user.ID, Name: "Board"}
	require.NoError(t, db.Create(board).Error)
	return db, board
}

// withRetry repeats op on ErrConflict the way the HTTP layer does.
func withRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < 20; attempt++ {
		if err = op(); !errors.Is(err, ranking.ErrConflict) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 5 * time.Millisecond)
	}
	return err
}

func TestConcurrentMovesOnSharedDatabase(t *testing.T) {
	db, board := setupSharedDB(t)
	engine := ranking.NewEngine(db)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, title := range []string{"A", "B", "C", "D", "E", "F"} {
		task, err := engine.Insert(ctx, ranking.InsertInput{BoardID: board.ID, Title: title})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- withRetry(func() error {
				_, _, err := engine.Move(ctx, ids[i%len(ids)], ranking.MoveInput{
					Status:   model.Lanes[i%len(model.Lanes)],
					Position: 0,
				})
				return err
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	require.NoError(t, engine.CheckInvariant(ctx, board.ID))

	lanes, err := engine.List(ctx, board.ID)
	require.NoError(t, err)
	assert.Equal(t, len(ids), len(lanes.Todo)+len(lanes.InProgress)+len(lanes.Done))
}

func TestConcurrentInsertsAndDeletesOnSharedDatabase(t *testing.T) {
	db, board := setupSharedDB(t)
	engine := ranking.NewEngine(db)
	ctx := context.Background()

	var seeded []uuid.UUID
	for i := 0; i < 10; i++ {
		task, err := engine.Insert(ctx, ranking.InsertInput{BoardID: board.ID, Title: "seed"})
		require.NoError(t, err)
		seeded = append(seeded, task.ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*len(seeded))
	for i, id := range seeded {
		wg.Add(2)
		go func(id uuid.UUID) {
			defer wg.Done()
			errs <- withRetry(func() error {
				_, err := engine.Delete(ctx, id)
				return err
			})
		}(id)
		go func(i int) {
			defer wg.Done()
			errs <- withRetry(func() error {
				_, err := engine.Insert(ctx, ranking.InsertInput{BoardID: board.ID, Title: "new", Status: model.Lanes[i%len(model.Lanes)]})
				return err
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	require.NoError(t, engine.CheckInvariant(ctx, board.ID))

	var n int64
	require.NoError(t, db.Model(&model.Task{}).Where("board_id = ?", board.ID).Count(&n).Error)
	assert.EqualValues(t, len(seeded), n)
}
