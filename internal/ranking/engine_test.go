package ranking_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/model"
	"taskboard/internal/ranking"
)

type EngineTestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *ranking.Engine
	ctx    context.Context
	board  *model.Board
}

func (s *EngineTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	sqlDB, err := db.DB()
	require.NoError(s.T(), err)
	// одно соединение: in-memory база живёт только в нём
	sqlDB.SetMaxOpenConns(1)

	require.NoError(s.T(), db.AutoMigrate(&model.User{}, &model.Board{}, &model.Task{}))

	s.db = db
	s.engine = ranking.NewEngine(db)
	s.ctx = context.Background()
	s.board = s.createBoard()
}

func (s *EngineTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) createBoard() *model.Board {
	user := &model.User{Email: uuid.NewString() + "@example.com", HashedPassword: "x", Name: "Owner"}
	require.NoError(s.T(), s.db.Create(user).Error)
	board := &model.Board{UserID: user.ID, Name: "Board"}
	require.NoError(s.T(), s.db.Create(board).Error)
	return board
}

func (s *EngineTestSuite) insert(status model.Status, title string) *model.Task {
	task, err := s.engine.Insert(s.ctx, ranking.InsertInput{
		BoardID: s.board.ID,
		Title:   title,
		Status:  status,
	})
	require.NoError(s.T(), err)
	return task
}

// lane returns task titles of one lane in position order.
func (s *EngineTestSuite) lane(status model.Status) []string {
	lanes, err := s.engine.List(s.ctx, s.board.ID)
	require.NoError(s.T(), err)
	titles := []string{}
	for i, t := range lanes.Lane(status) {
		s.Equal(i, t.Position, "position of %s", t.Title)
		titles = append(titles, t.Title)
	}
	return titles
}

func (s *EngineTestSuite) seed(status model.Status, titles ...string) map[string]*model.Task {
	out := make(map[string]*model.Task, len(titles))
	for _, title := range titles {
		out[title] = s.insert(status, title)
	}
	return out
}

func (s *EngineTestSuite) assertDense() {
	s.NoError(s.engine.CheckInvariant(s.ctx, s.board.ID))
}

func (s *EngineTestSuite) TestInsert_AppendsToLane() {
	a := s.insert(model.StatusTodo, "A")
	b := s.insert(model.StatusTodo, "B")
	x := s.insert(model.StatusDone, "X")

	s.Equal(0, a.Position)
	s.Equal(1, b.Position)
	s.Equal(0, x.Position)
	s.NotEqual(uuid.Nil, a.ID)
	s.Equal([]string{"A", "B"}, s.lane(model.StatusTodo))
	s.Equal([]string{"X"}, s.lane(model.StatusDone))
}

func (s *EngineTestSuite) TestInsert_DefaultsToTodo() {
	task, err := s.engine.Insert(s.ctx, ranking.InsertInput{BoardID: s.board.ID, Title: "  trimmed  "})
	s.Require().NoError(err)
	s.Equal(model.StatusTodo, task.Status)
	s.Equal("trimmed", task.Title)
}

func (s *EngineTestSuite) TestInsert_Validation() {
	_, err := s.engine.Insert(s.ctx, ranking.InsertInput{BoardID: s.board.ID, Title: "   "})
	s.ErrorIs(err, ranking.ErrValidation)
	var verr *ranking.ValidationError
	s.Require().True(errors.As(err, &verr))
	s.Equal("title", verr.Field)

	_, err = s.engine.Insert(s.ctx, ranking.InsertInput{BoardID: s.board.ID, Title: "A", Status: "blocked"})
	s.ErrorIs(err, ranking.ErrValidation)

	_, err = s.engine.Insert(s.ctx, ranking.InsertInput{Title: "A"})
	s.ErrorIs(err, ranking.ErrValidation)
}

func (s *EngineTestSuite) TestInsert_UnknownBoard() {
	_, err := s.engine.Insert(s.ctx, ranking.InsertInput{BoardID: uuid.New(), Title: "A"})
	s.ErrorIs(err, ranking.ErrBoardNotFound)
	s.ErrorIs(err, ranking.ErrNotFound)
}

func (s *EngineTestSuite) TestMove_ToStart() {
	tasks := s.seed(model.StatusTodo, "A", "B", "C", "D")

	moved, res, err := s.engine.Move(s.ctx, tasks["D"].ID, ranking.MoveInput{Status: model.StatusTodo, Position: 0})
	s.Require().NoError(err)
	s.True(res.Changed)
	s.EqualValues(3, res.Shifted)
	s.Equal(0, moved.Position)
	s.Equal([]string{"D", "A", "B", "C"}, s.lane(model.StatusTodo))
}

func (s *EngineTestSuite) TestMove_ToEnd() {
	tasks := s.seed(model.StatusTodo, "A", "B", "C", "D")

	_, res, err := s.engine.Move(s.ctx, tasks["A"].ID, ranking.MoveInput{Status: model.StatusTodo, Position: 3})
	s.Require().NoError(err)
	s.EqualValues(3, res.Shifted)
	s.Equal([]string{"B", "C", "D", "A"}, s.lane(model.StatusTodo))
}

func (s *EngineTestSuite) TestMove_WithinMiddle() {
	tasks := s.seed(model.StatusTodo, "A", "B", "C", "D", "E")

	_, res, err := s.engine.Move(s.ctx, tasks["B"].ID, ranking.MoveInput{Status: model.StatusTodo, Position: 3})
	s.Require().NoError(err)
	s.EqualValues(2, res.Shifted)
	s.Equal([]string{"A", "C", "D", "B", "E"}, s.lane(model.StatusTodo))

	_, res, err = s.engine.Move(s.ctx, tasks["D"].ID, ranking.MoveInput{Status: model.StatusTodo, Position: 1})
	s.Require().NoError(err)
	s.EqualValues(1, res.Shifted)
	s.Equal([]string{"A", "D", "C", "B", "E"}, s.lane(model.StatusTodo))
}

func (s *EngineTestSuite) TestMove_NoOpTouchesNothing() {
	tasks := s.seed(model.StatusTodo, "A", "B", "C")
	before, err := s.engine.Get(s.ctx, tasks["B"].ID)
	s.Require().NoError(err)

	moved, res, err := s.engine.Move(s.ctx, tasks["B"].ID, ranking.MoveInput{Status: model.StatusTodo, Position: 1})
	s.Require().NoError(err)
	s.False(res.Changed)
	s.EqualValues(0, res.Shifted)
	s.Equal(1, moved.Position)

	after, err := s.engine.Get(s.ctx, tasks["B"].ID)
	s.Require().NoError(err)
	s.True(before.UpdatedAt.Equal(after.UpdatedAt))
	s.Equal([]string{"A", "B", "C"}, s.lane(model.StatusTodo))
}

func (s *EngineTestSuite) TestMove_InsertThenMoveToSamePosition() {
	s.seed(model.StatusTodo, "A", "B")
	c := s.insert(model.StatusTodo, "C")

	_, res, err := s.engine.Move(s.ctx, c.ID, ranking.MoveInput{Status: c.Status, Position: c.Position})
	s.Require().NoError(err)
	s.False(res.Changed)
	s.Equal([]string{"A", "B", "C"}, s.lane(model.StatusTodo))
}

func (s *EngineTestSuite) TestMove_CrossLane() {
	todo := s.seed(model.StatusTodo, "A", "B", "C")
	s.seed(model.StatusDone, "X", "Y")

	moved, res, err := s.engine.Move(s.ctx, todo["B"].ID, ranking.MoveInput{Status: model.StatusDone, Position: 1})
	s.Require().NoError(err)
	s.True(res.Changed)
	s.EqualValues(2, res.Shifted)
	s.Equal(model.StatusDone, moved.Status)
	s.Equal(1, moved.Position)

	s.Equal([]string{"A", "C"}, s.lane(model.StatusTodo))
	s.Equal([]string{"X", "B", "Y"}, s.lane(model.StatusDone))
	s.Equal([]string{}, s.lane(model.StatusInProgress))
	s.assertDense()
}

func (s *EngineTestSuite) TestMove_CrossLaneToEndAndEmptyLane() {
	todo := s.seed(model.StatusTodo, "A", "B")
	s.seed(model.StatusDone, "X")

	_, _, err := s.engine.Move(s.ctx, todo["A"].ID, ranking.MoveInput{Status: model.StatusDone, Position: 1})
	s.Require().NoError(err)
	_, _, err = s.engine.Move(s.ctx, todo["B"].ID, ranking.MoveInput{Status: model.StatusInProgress, Position: 0})
	s.Require().NoError(err)

	s.Equal([]string{}, s.lane(model.StatusTodo))
	s.Equal([]string{"B"}, s.lane(model.StatusInProgress))
	s.Equal([]string{"X", "A"}, s.lane(model.StatusDone))
}

func (s *EngineTestSuite) TestMove_RejectsOutOfRange() {
	tasks := s.seed(model.StatusTodo, "A", "B", "C")
	s.seed(model.StatusDone, "X")

	cases := []ranking.MoveInput{
		{Status: model.StatusTodo, Position: 3},
		{Status: model.StatusTodo, Position: -1},
		{Status: model.StatusDone, Position: 2},
		{Status: "archived", Position: 0},
	}
	for _, in := range cases {
		_, _, err := s.engine.Move(s.ctx, tasks["A"].ID, in)
		s.ErrorIs(err, ranking.ErrValidation, "%+v", in)
	}

	s.Equal([]string{"A", "B", "C"}, s.lane(model.StatusTodo))
	s.Equal([]string{"X"}, s.lane(model.StatusDone))
}

func (s *EngineTestSuite) TestMove_UnknownTask() {
	_, _, err := s.engine.Move(s.ctx, uuid.New(), ranking.MoveInput{Status: model.StatusTodo, Position: 0})
	s.ErrorIs(err, ranking.ErrTaskNotFound)
}

func (s *EngineTestSuite) TestDelete_CompactsLane() {
	tasks := s.seed(model.StatusInProgress, "A", "B", "C", "D")

	deleted, err := s.engine.Delete(s.ctx, tasks["B"].ID)
	s.Require().NoError(err)
	s.Equal("B", deleted.Title)
	s.Equal([]string{"A", "C", "D"}, s.lane(model.StatusInProgress))

	_, err = s.engine.Get(s.ctx, tasks["B"].ID)
	s.ErrorIs(err, ranking.ErrTaskNotFound)

	_, err = s.engine.Delete(s.ctx, tasks["B"].ID)
	s.ErrorIs(err, ranking.ErrTaskNotFound)
}

func (s *EngineTestSuite) TestDelete_ThenInsertReusesTail() {
	tasks := s.seed(model.StatusTodo, "A", "B", "C")
	_, err := s.engine.Delete(s.ctx, tasks["C"].ID)
	s.Require().NoError(err)

	d := s.insert(model.StatusTodo, "D")
	s.Equal(2, d.Position)
}

func (s *EngineTestSuite) TestUpdate_StatusChangeAppendsToTargetLane() {
	todo := s.seed(model.StatusTodo, "A", "B", "C")
	s.seed(model.StatusDone, "X")

	done := model.StatusDone
	title := "B2"
	updated, err := s.engine.Update(s.ctx, todo["B"].ID, ranking.UpdateInput{Title: &title, Status: &done})
	s.Require().NoError(err)
	s.Equal("B2", updated.Title)
	s.Equal(model.StatusDone, updated.Status)
	s.Equal(1, updated.Position)

	s.Equal([]string{"A", "C"}, s.lane(model.StatusTodo))
	s.Equal([]string{"X", "B2"}, s.lane(model.StatusDone))
}

func (s *EngineTestSuite) TestUpdate_Description() {
	task := s.insert(model.StatusTodo, "A")
	desc := "details"

	updated, err := s.engine.Update(s.ctx, task.ID, ranking.UpdateInput{Description: &desc})
	s.Require().NoError(err)
	s.Require().NotNil(updated.Description)
	s.Equal("details", *updated.Description)

	updated, err = s.engine.Update(s.ctx, task.ID, ranking.UpdateInput{ClearDescription: true})
	s.Require().NoError(err)
	s.Nil(updated.Description)

	empty := " "
	_, err = s.engine.Update(s.ctx, task.ID, ranking.UpdateInput{Title: &empty})
	s.ErrorIs(err, ranking.ErrValidation)
}

func (s *EngineTestSuite) TestList_GroupsLanes() {
	lanes, err := s.engine.List(s.ctx, s.board.ID)
	s.Require().NoError(err)
	s.NotNil(lanes.Todo)
	s.NotNil(lanes.InProgress)
	s.NotNil(lanes.Done)
	s.Empty(lanes.Todo)

	_, err = s.engine.List(s.ctx, uuid.Nil)
	s.ErrorIs(err, ranking.ErrValidation)

	_, err = s.engine.List(s.ctx, uuid.New())
	s.ErrorIs(err, ranking.ErrBoardNotFound)
}

func (s *EngineTestSuite) TestList_IsolatesBoards() {
	s.seed(model.StatusTodo, "A")
	other := s.createBoard()
	_, err := s.engine.Insert(s.ctx, ranking.InsertInput{BoardID: other.ID, Title: "Other"})
	s.Require().NoError(err)

	s.Equal([]string{"A"}, s.lane(model.StatusTodo))
}

func (s *EngineTestSuite) TestNormalize_RepairsGaps() {
	tasks := s.seed(model.StatusTodo, "A", "B", "C")
	s.Require().NoError(s.db.Model(&model.Task{}).Where("id = ?", tasks["B"].ID).UpdateColumn("position", 7).Error)
	s.Require().NoError(s.db.Model(&model.Task{}).Where("id = ?", tasks["C"].ID).UpdateColumn("position", 9).Error)

	s.ErrorIs(s.engine.CheckInvariant(s.ctx, s.board.ID), ranking.ErrInvariantViolated)

	n, err := s.engine.Normalize(s.ctx, s.board.ID)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.assertDense()
	s.Equal([]string{"A", "B", "C"}, s.lane(model.StatusTodo))

	n, err = s.engine.Normalize(s.ctx, s.board.ID)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *EngineTestSuite) TestRandomOperationsKeepLanesDense() {
	rng := rand.New(rand.NewSource(42))
	var ids []uuid.UUID

	for i := 0; i < 300; i++ {
		switch op := rng.Intn(10); {
		case op < 3 || len(ids) == 0:
			status := model.Lanes[rng.Intn(len(model.Lanes))]
			t := s.insert(status, uuid.NewString()[:8])
			ids = append(ids, t.ID)
		case op < 4:
			idx := rng.Intn(len(ids))
			_, err := s.engine.Delete(s.ctx, ids[idx])
			s.Require().NoError(err)
			ids = append(ids[:idx], ids[idx+1:]...)
		default:
			id := ids[rng.Intn(len(ids))]
			status := model.Lanes[rng.Intn(len(model.Lanes))]
			lanes, err := s.engine.List(s.ctx, s.board.ID)
			s.Require().NoError(err)
			size := len(lanes.Lane(status))
			current, err := s.engine.Get(s.ctx, id)
			s.Require().NoError(err)
			if current.Status == status {
				size--
			}
			_, _, err = s.engine.Move(s.ctx, id, ranking.MoveInput{Status: status, Position: rng.Intn(size + 1)})
			s.Require().NoError(err)
		}
		s.Require().NoError(s.engine.CheckInvariant(s.ctx, s.board.ID), "after op %d", i)
	}
}
