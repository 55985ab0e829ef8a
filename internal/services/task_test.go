package services

import (
	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/events"
	"github.com/clikanban/kanban/types"
)

type TaskSuite struct {
	serviceSuite
	boss    types.Session
	hashira types.Session
	member  types.Session
	board   types.Board
}

func (s *TaskSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.boss = s.signup("oyakata", "BOSS-0000-0000-0001", types.RoleBoss)
	s.hashira = s.signup("shinobu", "HASH-0000-0000-0001", types.RoleHashira)
	s.member = s.signup("aoi", "MEMB-0000-0000-0001", types.RoleMembers)

	board, err := s.boards.CreateBoard(s.ctx, s.boss, "Sprint")
	s.Require().NoError(err)
	s.board = board
}

func (s *TaskSuite) TestPermissionMatrix() {
	for _, tt := range []struct {
		sess    types.Session
		allowed bool
	}{
		{s.member, false},
		{s.hashira, true},
		{s.boss, true},
	} {
		task, err := s.tasks.CreateTask(s.ctx, tt.sess, NewTask{Title: "t", BoardID: s.board.ID, Column: "TODO"})
		if !tt.allowed {
			s.requireKind(err, apperr.KindPermission)

			existing, err := s.tasks.CreateTask(s.ctx, s.boss, NewTask{Title: "t", BoardID: s.board.ID, Column: "TODO"})
			s.Require().NoError(err)
			_, err = s.tasks.EditTask(s.ctx, tt.sess, existing.ID, types.TaskUpdate{Title: ptr("x")})
			s.requireKind(err, apperr.KindPermission)
			_, err = s.tasks.MoveTask(s.ctx, tt.sess, existing.ID, "DONE")
			s.requireKind(err, apperr.KindPermission)
			s.requireKind(s.tasks.DeleteTask(s.ctx, tt.sess, existing.ID), apperr.KindPermission)

			_, err = s.tasks.ListTasks(s.ctx, s.board.ID)
			s.NoError(err)
			_, err = s.tasks.SearchTasks(s.ctx, s.board.ID, "t")
			s.NoError(err)
			continue
		}
		s.Require().NoError(err)
		_, err = s.tasks.EditTask(s.ctx, tt.sess, task.ID, types.TaskUpdate{Title: ptr("x")})
		s.NoError(err)
		_, err = s.tasks.MoveTask(s.ctx, tt.sess, task.ID, "DONE")
		s.NoError(err)
		s.NoError(s.tasks.DeleteTask(s.ctx, tt.sess, task.ID))
	}
}

func (s *TaskSuite) TestCreateTaskValidation() {
	tests := []struct {
		name string
		in   NewTask
		kind apperr.Kind
	}{
		{"missing title", NewTask{Title: "  ", BoardID: s.board.ID, Column: "TODO"}, apperr.KindValidation},
		{"bad column", NewTask{Title: "t", BoardID: s.board.ID, Column: "REVIEW"}, apperr.KindValidation},
		{"bad priority", NewTask{Title: "t", BoardID: s.board.ID, Column: "TODO", Priority: "urgent"}, apperr.KindValidation},
		{"bad due date", NewTask{Title: "t", BoardID: s.board.ID, Column: "TODO", DueDate: ptr("31/12/2026")}, apperr.KindValidation},
		{"unknown board", NewTask{Title: "t", BoardID: "missing", Column: "TODO"}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.tasks.CreateTask(s.ctx, s.hashira, tt.in)
			s.requireKind(err, tt.kind)
		})
	}
}

func (s *TaskSuite) TestCreateGetRoundTrip() {
	created, err := s.tasks.CreateTask(s.ctx, s.hashira, NewTask{
		Title:       "Butterfly Mansion",
		BoardID:     s.board.ID,
		Column:      "doing",
		Description: ptr("restock wisteria"),
		DueDate:     ptr("2026-11-01"),
	})
	s.Require().NoError(err)
	s.Equal(types.ColumnDoing, created.Column)
	s.Equal(types.PriorityMedium, created.Priority)

	got, err := s.tasks.GetTask(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.Title, got.Title)
	s.Equal(created.BoardID, got.BoardID)
	s.Equal("restock wisteria", *got.Description)
	s.Equal("2026-11-01", *got.DueDate)
	s.Nil(got.AssignedTo)

	byTitle, err := s.tasks.FindByBoardAndTitle(s.ctx, s.board.ID, "Butterfly Mansion")
	s.Require().NoError(err)
	s.Equal(created.ID, byTitle.ID)

	_, err = s.tasks.FindByBoardAndTitle(s.ctx, s.board.ID, "butterfly mansion")
	s.requireKind(err, apperr.KindNotFound)
	_, err = s.tasks.GetTask(s.ctx, "missing")
	s.requireKind(err, apperr.KindNotFound)
}

func (s *TaskSuite) TestSearchIsCaseInsensitive() {
	_, err := s.tasks.CreateTask(s.ctx, s.hashira, NewTask{Title: "Important Task", BoardID: s.board.ID, Column: "TODO"})
	s.Require().NoError(err)
	_, err = s.tasks.CreateTask(s.ctx, s.hashira, NewTask{Title: "Other", BoardID: s.board.ID, Column: "TODO", Description: ptr("not IMPORTANT at all")})
	s.Require().NoError(err)
	_, err = s.tasks.CreateTask(s.ctx, s.hashira, NewTask{Title: "Unrelated", BoardID: s.board.ID, Column: "DONE"})
	s.Require().NoError(err)

	for _, kw := range []string{"important", "IMPORTANT", "iMpOrTaNt"} {
		found, err := s.tasks.SearchTasks(s.ctx, s.board.ID, kw)
		s.Require().NoError(err)
		s.Len(found, 2, kw)
	}

	done, err := s.tasks.ListTasksInColumn(s.ctx, s.board.ID, "done")
	s.Require().NoError(err)
	s.Len(done, 1)

	_, err = s.tasks.ListTasksInColumn(s.ctx, s.board.ID, "later")
	s.requireKind(err, apperr.KindValidation)
}

func (s *TaskSuite) TestEditTask() {
	task, err := s.tasks.CreateTask(s.ctx, s.hashira, NewTask{Title: "Draft", BoardID: s.board.ID, Column: "TODO", Priority: "low"})
	s.Require().NoError(err)

	_, err = s.tasks.EditTask(s.ctx, s.hashira, task.ID, types.TaskUpdate{})
	s.requireKind(err, apperr.KindValidation)

	bad := types.Priority("urgent")
	_, err = s.tasks.EditTask(s.ctx, s.hashira, task.ID, types.TaskUpdate{Priority: &bad})
	s.requireKind(err, apperr.KindValidation)

	_, err = s.tasks.EditTask(s.ctx, s.hashira, task.ID, types.TaskUpdate{DueDate: ptr("2026-13-01")})
	s.requireKind(err, apperr.KindValidation)

	_, err = s.tasks.EditTask(s.ctx, s.hashira, "missing", types.TaskUpdate{Title: ptr("x")})
	s.requireKind(err, apperr.KindNotFound)

	high := types.PriorityHigh
	edited, err := s.tasks.EditTask(s.ctx, s.hashira, task.ID, types.TaskUpdate{Description: ptr("final"), Priority: &high})
	s.Require().NoError(err)
	s.Equal("Draft", edited.Title)
	s.Equal("final", *edited.Description)
	s.Equal(types.PriorityHigh, edited.Priority)
	s.Equal(types.ColumnTodo, edited.Column)
}

func (s *TaskSuite) TestMoveAndDelete() {
	task, err := s.tasks.CreateTask(s.ctx, s.hashira, NewTask{Title: "Train", BoardID: s.board.ID, Column: "TODO"})
	s.Require().NoError(err)

	_, err = s.tasks.MoveTask(s.ctx, s.hashira, task.ID, "REVIEW")
	s.requireKind(err, apperr.KindValidation)

	moved, err := s.tasks.MoveTask(s.ctx, s.hashira, task.ID, "done")
	s.Require().NoError(err)
	s.Equal(types.ColumnDone, moved.Column)

	last := s.published.events[len(s.published.events)-1]
	s.Equal(events.TaskMoved, last.Type)
	s.Equal(s.hashira.UserID, last.ActorID)
	s.Equal(map[string]string{"task_id": task.ID, "from": "TODO", "to": "DONE"}, last.Data)

	s.Require().NoError(s.tasks.DeleteTask(s.ctx, s.hashira, task.ID))
	s.requireKind(s.tasks.DeleteTask(s.ctx, s.hashira, task.ID), apperr.KindNotFound)
	_, err = s.tasks.MoveTask(s.ctx, s.hashira, task.ID, "TODO")
	s.requireKind(err, apperr.KindNotFound)

	s.Subset(s.published.eventTypes(), []string{events.TaskCreated, events.TaskMoved, events.TaskDeleted})
}
