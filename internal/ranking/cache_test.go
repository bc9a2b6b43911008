package ranking_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskboard/internal/cache"
	"taskboard/internal/model"
	"taskboard/internal/ranking"
)

func (s *EngineTestSuite) TestList_ReadThroughCacheIsInvalidatedOnWrite() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s.engine = ranking.NewEngine(s.db, ranking.WithCache(cache.NewLaneCache(client, time.Minute)))
	key := "lanes:" + s.board.ID.String()

	a := s.insert(model.StatusTodo, "A")
	s.False(mr.Exists(key))

	s.Equal([]string{"A"}, s.lane(model.StatusTodo))
	s.True(mr.Exists(key))

	s.insert(model.StatusTodo, "B")
	s.False(mr.Exists(key))
	s.Equal([]string{"A", "B"}, s.lane(model.StatusTodo))

	// no-op move leaves the cached projection alone
	_, _, err = s.engine.Move(s.ctx, a.ID, ranking.MoveInput{Status: model.StatusTodo, Position: 0})
	s.Require().NoError(err)
	s.True(mr.Exists(key))

	_, _, err = s.engine.Move(s.ctx, a.ID, ranking.MoveInput{Status: model.StatusTodo, Position: 1})
	s.Require().NoError(err)
	s.False(mr.Exists(key))
	s.Equal([]string{"B", "A"}, s.lane(model.StatusTodo))
}

func (s *EngineTestSuite) TestList_CacheOutageFallsBackToStore() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	s.engine = ranking.NewEngine(s.db, ranking.WithCache(cache.NewLaneCache(client, time.Minute)))
	s.insert(model.StatusDone, "A")
	s.Equal([]string{"A"}, s.lane(model.StatusDone))
}

// racingCache runs beforeSet once, after List has read the store and
// before the lanes are written back.
type racingCache struct {
	*cache.LaneCache
	beforeSet func()
}

func (r *racingCache) Set(ctx context.Context, boardID uuid.UUID, version int64, lanes *ranking.Lanes) error {
	if f := r.beforeSet; f != nil {
		r.beforeSet = nil
		f()
	}
	return r.LaneCache.Set(ctx, boardID, version, lanes)
}

func (s *EngineTestSuite) TestList_StaleWriteBackAfterMoveIsDropped() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	racing := &racingCache{LaneCache: cache.NewLaneCache(client, time.Minute)}
	s.engine = ranking.NewEngine(s.db, ranking.WithCache(racing))
	key := "lanes:" + s.board.ID.String()

	tasks := s.seed(model.StatusTodo, "A", "B")
	racing.beforeSet = func() {
		_, _, err := s.engine.Move(s.ctx, tasks["B"].ID, ranking.MoveInput{Status: model.StatusTodo, Position: 0})
		s.Require().NoError(err)
	}

	// этот List прочитал доску до перемещения
	s.Equal([]string{"A", "B"}, s.lane(model.StatusTodo))
	s.False(mr.Exists(key))

	s.Equal([]string{"B", "A"}, s.lane(model.StatusTodo))
	s.True(mr.Exists(key))
	s.Equal([]string{"B", "A"}, s.lane(model.StatusTodo))
}
