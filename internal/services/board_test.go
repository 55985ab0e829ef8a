package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/archive"
	"github.com/clikanban/kanban/internal/events"
	"github.com/clikanban/kanban/internal/storage"
	"github.com/clikanban/kanban/types"
)

type BoardSuite struct {
	serviceSuite
	boss    types.Session
	hashira types.Session
	member  types.Session
}

func (s *BoardSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.boss = s.signup("oyakata", "BOSS-0000-0000-0001", types.RoleBoss)
	s.hashira = s.signup("rengoku", "HASH-0000-0000-0001", types.RoleHashira)
	s.member = s.signup("tanjiro", "MEMB-0000-0000-0001", types.RoleMembers)
}

func (s *BoardSuite) TestOnlyBossCreatesAndDeletes() {
	for _, sess := range []types.Session{s.hashira, s.member} {
		_, err := s.boards.CreateBoard(s.ctx, sess, "Mine")
		s.requireKind(err, apperr.KindPermission)
		_, err = s.boards.DeleteBoard(s.ctx, sess, "Mine")
		s.requireKind(err, apperr.KindPermission)
		_, err = s.boards.AddColumn(s.ctx, sess, "Mine", "review")
		s.requireKind(err, apperr.KindPermission)
	}
	_, err := s.boards.CreateBoard(s.ctx, s.boss, "Mine")
	s.NoError(err)
}

func (s *BoardSuite) TestCreateGetRoundTrip() {
	created, err := s.boards.CreateBoard(s.ctx, s.boss, "  Sprint  ")
	s.Require().NoError(err)
	s.Equal("Sprint", created.Name)

	got, err := s.boards.GetBoardByName(s.ctx, "Sprint", s.boss.UserID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal(s.boss.UserID, got.OwnerID)
	s.Equal(types.DefaultColumns(), got.Columns)

	_, err = s.boards.GetBoardByName(s.ctx, "Sprint", s.hashira.UserID)
	s.requireKind(err, apperr.KindNotFound)

	_, err = s.boards.CreateBoard(s.ctx, s.boss, "")
	s.requireKind(err, apperr.KindValidation)
}

func (s *BoardSuite) TestDuplicateBoard() {
	_, err := s.boards.CreateBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)
	_, err = s.boards.CreateBoard(s.ctx, s.boss, "Sprint")
	s.requireKind(err, apperr.KindAlreadyExists)

	boards, err := s.boards.ListBoards(s.ctx, s.boss)
	s.Require().NoError(err)
	s.Len(boards, 1)
}

func (s *BoardSuite) TestBossBoardsAreVisibleToEveryone() {
	board, err := s.boards.CreateBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)

	for _, sess := range []types.Session{s.boss, s.hashira, s.member} {
		listed, err := s.boards.ListBoards(s.ctx, sess)
		s.Require().NoError(err)
		s.Require().Len(listed, 1, sess.Username)
		s.Equal(board.ID, listed[0].ID)

		resolved, err := s.boards.ResolveBoard(s.ctx, sess, "Sprint")
		s.Require().NoError(err)
		s.Equal(board.ID, resolved.ID)
	}

	_, err = s.boards.ResolveBoard(s.ctx, s.member, "Nope")
	s.requireKind(err, apperr.KindNotFound)
}

func (s *BoardSuite) TestCascadeDelete() {
	for _, n := range []int{0, 1, 5} {
		s.Run(fmt.Sprintf("%d tasks", n), func() {
			name := fmt.Sprintf("Board-%d", n)
			board, err := s.boards.CreateBoard(s.ctx, s.boss, name)
			s.Require().NoError(err)
			other, err := s.boards.CreateBoard(s.ctx, s.boss, name+"-other")
			s.Require().NoError(err)
			survivor, err := s.tasks.CreateTask(s.ctx, s.hashira, NewTask{Title: "keep", BoardID: other.ID, Column: "todo"})
			s.Require().NoError(err)

			for i := 0; i < n; i++ {
				_, err := s.tasks.CreateTask(s.ctx, s.hashira, NewTask{Title: fmt.Sprintf("t%d", i), BoardID: board.ID, Column: "TODO"})
				s.Require().NoError(err)
			}

			removed, err := s.boards.DeleteBoard(s.ctx, s.boss, name)
			s.Require().NoError(err)
			s.EqualValues(n, removed)

			left, err := s.tasks.ListTasks(s.ctx, board.ID)
			s.Require().NoError(err)
			s.Empty(left)
			_, err = s.boards.GetBoardByName(s.ctx, name, s.boss.UserID)
			s.requireKind(err, apperr.KindNotFound)

			_, err = s.tasks.GetTask(s.ctx, survivor.ID)
			s.NoError(err)
		})
	}
}

func (s *BoardSuite) TestAddColumn() {
	_, err := s.boards.CreateBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)

	board, err := s.boards.AddColumn(s.ctx, s.boss, "Sprint", " review ")
	s.Require().NoError(err)
	s.Equal([]string{"TODO", "DOING", "DONE", "REVIEW"}, board.Columns)

	_, err = s.boards.AddColumn(s.ctx, s.boss, "Sprint", "Review")
	s.requireKind(err, apperr.KindAlreadyExists)

	for i := len(board.Columns); i < types.MaxBoardColumns; i++ {
		_, err := s.boards.AddColumn(s.ctx, s.boss, "Sprint", fmt.Sprintf("extra%d", i))
		s.Require().NoError(err)
	}
	_, err = s.boards.AddColumn(s.ctx, s.boss, "Sprint", "overflow")
	s.requireKind(err, apperr.KindValidation)

	view, err := s.boards.ViewBoard(s.ctx, s.member, "Sprint")
	s.Require().NoError(err)
	s.Len(view.Board.Columns, types.MaxBoardColumns)
	s.Len(view.Tasks, types.MaxBoardColumns)
	s.Contains(s.published.eventTypes(), events.BoardColumnAdded)
}

func (s *BoardSuite) TestViewBoardGroupsTasks() {
	board, err := s.boards.CreateBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)
	for _, col := range []string{"todo", "TODO", "doing"} {
		_, err := s.tasks.CreateTask(s.ctx, s.boss, NewTask{Title: "t-" + col, BoardID: board.ID, Column: col})
		s.Require().NoError(err)
	}

	view, err := s.boards.ViewBoard(s.ctx, s.member, "Sprint")
	s.Require().NoError(err)
	s.Len(view.Tasks["TODO"], 2)
	s.Len(view.Tasks["DOING"], 1)
	s.NotNil(view.Tasks["DONE"])
	s.Empty(view.Tasks["DONE"])
}

func (s *BoardSuite) TestExportAndArchiveOnDelete() {
	mem := storage.NewMemoryStorage("archive")
	boards := NewBoardService(s.boardRepo, s.taskRepo, s.userRepo,
		WithArchiver(archive.New(storage.NewStorage(mem)), true))

	_, err := s.boards.ExportBoard(s.ctx, s.boss, "Sprint")
	s.requireKind(err, apperr.KindValidation)

	board, err := boards.CreateBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)
	_, err = s.tasks.CreateTask(s.ctx, s.boss, NewTask{Title: "ship", BoardID: board.ID, Column: "DONE"})
	s.Require().NoError(err)

	_, err = boards.ExportBoard(s.ctx, s.hashira, "Sprint")
	s.requireKind(err, apperr.KindPermission)

	key, err := boards.ExportBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)
	s.Contains(mem.Keys(), key)

	_, err = boards.DeleteBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)
	s.Len(mem.Keys(), 2)
}

func (s *BoardSuite) TestFailedArchiveKeepsBoard() {
	boards := NewBoardService(s.boardRepo, s.taskRepo, s.userRepo, WithArchiver(failingArchiver{}, true))
	_, err := boards.CreateBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)

	_, err = boards.DeleteBoard(s.ctx, s.boss, "Sprint")
	s.requireKind(err, apperr.KindInternal)

	_, err = boards.GetBoardByName(s.ctx, "Sprint", s.boss.UserID)
	s.NoError(err)

	_, err = boards.ListExports(s.ctx, s.boss)
	s.requireKind(err, apperr.KindInternal)
	_, err = boards.LoadExport(s.ctx, s.boss, archive.OwnerPrefix(s.boss.UserID)+"b/x.json")
	s.requireKind(err, apperr.KindInternal)
}

func (s *BoardSuite) TestListAndLoadExports() {
	_, err := s.boards.ListExports(s.ctx, s.boss)
	s.requireKind(err, apperr.KindValidation)

	boards := NewBoardService(s.boardRepo, s.taskRepo, s.userRepo,
		WithArchiver(archive.New(storage.NewStorage(storage.NewMemoryStorage("archive"))), true))
	board, err := boards.CreateBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)
	_, err = s.tasks.CreateTask(s.ctx, s.boss, NewTask{Title: "ship", BoardID: board.ID, Column: "DOING"})
	s.Require().NoError(err)

	exported, err := boards.ExportBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)
	_, err = boards.DeleteBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)

	entries, err := boards.ListExports(s.ctx, s.boss)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(board.ID, entries[0].BoardID)
	s.Contains([]string{entries[0].Key, entries[1].Key}, exported)

	snap, err := boards.LoadExport(s.ctx, s.boss, exported)
	s.Require().NoError(err)
	s.Equal("export", snap.Reason)
	s.Equal("Sprint", snap.Board.Name)
	s.Len(snap.View().Tasks["DOING"], 1)

	_, err = boards.ListExports(s.ctx, s.member)
	s.requireKind(err, apperr.KindPermission)
	_, err = boards.LoadExport(s.ctx, s.hashira, exported)
	s.requireKind(err, apperr.KindPermission)

	otherBoss := types.Session{UserID: "another-boss", Username: "kagaya", Role: types.RoleBoss}
	entries, err = boards.ListExports(s.ctx, otherBoss)
	s.Require().NoError(err)
	s.Empty(entries)
	_, err = boards.LoadExport(s.ctx, otherBoss, exported)
	s.requireKind(err, apperr.KindNotFound)

	_, err = boards.LoadExport(s.ctx, s.boss, archive.OwnerPrefix(s.boss.UserID)+"missing/20260101T000000.000000000Z.json")
	s.requireKind(err, apperr.KindNotFound)
	_, err = boards.LoadExport(s.ctx, s.boss, " ")
	s.requireKind(err, apperr.KindValidation)
}

type failingArchiver struct{}

func (failingArchiver) Save(context.Context, types.Board, []types.Task, string, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (failingArchiver) List(context.Context, string) ([]archive.Entry, error) {
	return nil, errors.New("bucket unavailable")
}

func (failingArchiver) Load(context.Context, string) (archive.Snapshot, error) {
	return archive.Snapshot{}, errors.New("bucket unavailable")
}
