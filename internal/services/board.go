package services

import (
	"context"
	"errors"
	"strings"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/archive"
	"github.com/clikanban/kanban/internal/authz"
	"github.com/clikanban/kanban/internal/events"
	"github.com/clikanban/kanban/internal/metrics"
	"github.com/clikanban/kanban/internal/store"
	"github.com/clikanban/kanban/types"
	log "github.com/sirupsen/logrus"
)

// BoardRepository defines persistence operations for boards.
type BoardRepository interface {
	Create(ctx context.Context, name, ownerID string, columns []string) (types.Board, error)
	GetByID(ctx context.Context, id string) (types.Board, error)
	GetByNameAndOwner(ctx context.Context, name, ownerID string) (types.Board, error)
	ListByOwner(ctx context.Context, ownerID string) ([]types.Board, error)
	ReplaceColumns(ctx context.Context, id string, previous, next []string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Archiver stores board snapshots.
type Archiver interface {
	Save(ctx context.Context, board types.Board, tasks []types.Task, actorID, reason string) (string, error)
	List(ctx context.Context, ownerID string) ([]archive.Entry, error)
	Load(ctx context.Context, key string) (archive.Snapshot, error)
}

// BoardService encapsulates board use-cases.
type BoardService struct {
	boards          BoardRepository
	tasks           TaskRepository
	users           UserRepository
	archiver        Archiver
	archiveOnDelete bool
	events          events.Publisher
	metrics         *metrics.Metrics
}

// BoardOption configures a BoardService.
type BoardOption func(*BoardService)

// WithArchiver enables ExportBoard and, when onDelete is set, snapshots
// every board before it is deleted.
func WithArchiver(a Archiver, onDelete bool) BoardOption {
	return func(s *BoardService) {
		s.archiver = a
		s.archiveOnDelete = onDelete
	}
}

// WithBoardEvents publishes board events to p.
func WithBoardEvents(p events.Publisher) BoardOption {
	return func(s *BoardService) {
		if p != nil {
			s.events = p
		}
	}
}

// WithBoardMetrics records board counters on m.
func WithBoardMetrics(m *metrics.Metrics) BoardOption {
	return func(s *BoardService) {
		s.metrics = m
	}
}

func NewBoardService(boards BoardRepository, tasks TaskRepository, users UserRepository, opts ...BoardOption) *BoardService {
	s := &BoardService{boards: boards, tasks: tasks, users: users, events: events.Nop{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateBoard creates a board with the default columns for the session.
func (s *BoardService) CreateBoard(ctx context.Context, sess types.Session, name string) (types.Board, error) {
	if err := authorize(s.metrics, sess, authz.CreateBoard); err != nil {
		return types.Board{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Board{}, apperr.Validation("board name is required")
	}

	board, err := s.boards.Create(ctx, name, sess.UserID, types.DefaultColumns())
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return types.Board{}, apperr.AlreadyExists("board '%s' already exists", name)
		}
		return types.Board{}, apperr.Internal(err, "create board")
	}

	s.metrics.IncBoardOperation("create")
	s.events.Publish(ctx, events.BoardCreated, sess.UserID, board)
	return board, nil
}

// GetBoardByName returns the board named name owned by ownerID.
func (s *BoardService) GetBoardByName(ctx context.Context, name, ownerID string) (types.Board, error) {
	board, err := s.boards.GetByNameAndOwner(ctx, name, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Board{}, apperr.NotFound("board '%s' not found for this user", name)
		}
		return types.Board{}, apperr.Internal(err, "load board")
	}
	return board, nil
}

// GetBoard returns the board with the given ID.
func (s *BoardService) GetBoard(ctx context.Context, id string) (types.Board, error) {
	board, err := s.boards.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Board{}, apperr.NotFound("board not found")
		}
		return types.Board{}, apperr.Internal(err, "load board")
	}
	return board, nil
}

// ResolveBoard finds the board called name that the session can see: its
// own board of that name first, then the first Boss-owned one.
func (s *BoardService) ResolveBoard(ctx context.Context, sess types.Session, name string) (types.Board, error) {
	board, err := s.boards.GetByNameAndOwner(ctx, name, sess.UserID)
	if err == nil {
		return board, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Board{}, apperr.Internal(err, "load board")
	}

	bosses, err := s.users.ListByRole(ctx, types.RoleBoss)
	if err != nil {
		return types.Board{}, apperr.Internal(err, "list board owners")
	}
	for _, boss := range bosses {
		if boss.ID == sess.UserID {
			continue
		}
		board, err := s.boards.GetByNameAndOwner(ctx, name, boss.ID)
		if err == nil {
			return board, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return types.Board{}, apperr.Internal(err, "load board")
		}
	}
	return types.Board{}, apperr.NotFound("board '%s' not found", name)
}

// ListBoards returns every Boss-owned board followed by the session's own
// boards that are not already listed.
func (s *BoardService) ListBoards(ctx context.Context, sess types.Session) ([]types.Board, error) {
	bosses, err := s.users.ListByRole(ctx, types.RoleBoss)
	if err != nil {
		return nil, apperr.Internal(err, "list board owners")
	}

	owners := make([]string, 0, len(bosses)+1)
	for _, boss := range bosses {
		owners = append(owners, boss.ID)
	}
	owners = append(owners, sess.UserID)

	seen := make(map[string]bool)
	boards := []types.Board{}
	for _, owner := range owners {
		if seen[owner] {
			continue
		}
		seen[owner] = true
		owned, err := s.boards.ListByOwner(ctx, owner)
		if err != nil {
			return nil, apperr.Internal(err, "list boards")
		}
		boards = append(boards, owned...)
	}
	return boards, nil
}

// ViewBoard returns the board named name with its tasks grouped by column.
func (s *BoardService) ViewBoard(ctx context.Context, sess types.Session, name string) (types.BoardView, error) {
	board, err := s.ResolveBoard(ctx, sess, name)
	if err != nil {
		return types.BoardView{}, err
	}
	tasks, err := s.tasks.ListByBoard(ctx, board.ID)
	if err != nil {
		return types.BoardView{}, apperr.Internal(err, "list tasks")
	}
	return types.NewBoardView(board, tasks), nil
}

// AddColumn appends a column to one of the session's boards.
func (s *BoardService) AddColumn(ctx context.Context, sess types.Session, boardName, column string) (types.Board, error) {
	if err := authorize(s.metrics, sess, authz.AddColumn); err != nil {
		return types.Board{}, err
	}
	column = strings.ToUpper(strings.TrimSpace(column))
	if column == "" {
		return types.Board{}, apperr.Validation("column name is required")
	}

	board, err := s.GetBoardByName(ctx, boardName, sess.UserID)
	if err != nil {
		return types.Board{}, err
	}
	if board.HasColumn(column) {
		return types.Board{}, apperr.AlreadyExists("column '%s' already exists", column)
	}
	if len(board.Columns) >= types.MaxBoardColumns {
		return types.Board{}, apperr.Validation("maximum %d columns per board", types.MaxBoardColumns)
	}

	next := append(append(make([]string, 0, len(board.Columns)+1), board.Columns...), column)
	swapped, err := s.boards.ReplaceColumns(ctx, board.ID, board.Columns, next)
	if err != nil {
		return types.Board{}, apperr.Internal(err, "update board columns")
	}
	if !swapped {
		return types.Board{}, apperr.Conflict("board '%s' was modified concurrently, try again", board.Name)
	}
	board.Columns = next

	s.metrics.IncBoardOperation("add_column")
	s.events.Publish(ctx, events.BoardColumnAdded, sess.UserID, map[string]string{"board_id": board.ID, "column": column})
	return board, nil
}

// ExportBoard writes a snapshot of the named board and returns its object
// key.
func (s *BoardService) ExportBoard(ctx context.Context, sess types.Session, name string) (string, error) {
	if err := s.exportsAvailable(sess); err != nil {
		return "", err
	}
	board, err := s.ResolveBoard(ctx, sess, name)
	if err != nil {
		return "", err
	}
	key, err := s.snapshot(ctx, sess, board, "export")
	if err != nil {
		return "", err
	}
	s.metrics.IncBoardOperation("export")
	s.events.Publish(ctx, events.BoardExported, sess.UserID, map[string]string{"board_id": board.ID, "key": key})
	return key, nil
}

// ListExports returns the snapshots of the session's boards, newest first.
// Snapshots of deleted boards stay listed.
func (s *BoardService) ListExports(ctx context.Context, sess types.Session) ([]archive.Entry, error) {
	if err := s.exportsAvailable(sess); err != nil {
		return nil, err
	}
	entries, err := s.archiver.List(ctx, sess.UserID)
	if err != nil {
		return nil, apperr.Internal(err, "list snapshots")
	}
	return entries, nil
}

// LoadExport reads one snapshot of the session's boards.
func (s *BoardService) LoadExport(ctx context.Context, sess types.Session, key string) (archive.Snapshot, error) {
	if err := s.exportsAvailable(sess); err != nil {
		return archive.Snapshot{}, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return archive.Snapshot{}, apperr.Validation("snapshot key is required")
	}
	if !strings.HasPrefix(key, archive.OwnerPrefix(sess.UserID)) {
		return archive.Snapshot{}, apperr.NotFound("snapshot '%s' not found", key)
	}
	snap, err := s.archiver.Load(ctx, key)
	if errors.Is(err, archive.ErrNotFound) {
		return archive.Snapshot{}, apperr.NotFound("snapshot '%s' not found", key)
	}
	if err != nil {
		return archive.Snapshot{}, apperr.Internal(err, "load snapshot")
	}
	return snap, nil
}

func (s *BoardService) exportsAvailable(sess types.Session) error {
	if err := authorize(s.metrics, sess, authz.ExportBoard); err != nil {
		return err
	}
	if s.archiver == nil {
		return apperr.Validation("board export is not configured")
	}
	return nil
}

// DeleteBoard removes one of the session's boards and every task on it.
// It returns the number of tasks removed.
func (s *BoardService) DeleteBoard(ctx context.Context, sess types.Session, name string) (int64, error) {
	if err := authorize(s.metrics, sess, authz.DeleteBoard); err != nil {
		return 0, err
	}
	board, err := s.GetBoardByName(ctx, name, sess.UserID)
	if err != nil {
		return 0, err
	}

	if s.archiver != nil && s.archiveOnDelete {
		key, err := s.snapshot(ctx, sess, board, "delete")
		if err != nil {
			return 0, err
		}
		log.WithFields(log.Fields{"board_id": board.ID, "key": key}).Info("archived board before delete")
	}

	removed, err := s.tasks.DeleteByBoard(ctx, board.ID)
	if err != nil {
		return 0, apperr.Internal(err, "delete board tasks")
	}
	if err := s.boards.Delete(ctx, board.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return removed, apperr.Internal(err, "delete board")
	}

	s.metrics.IncBoardOperation("delete")
	s.events.Publish(ctx, events.BoardDeleted, sess.UserID, map[string]any{"board_id": board.ID, "name": board.Name, "tasks_removed": removed})
	return removed, nil
}

func (s *BoardService) snapshot(ctx context.Context, sess types.Session, board types.Board, reason string) (string, error) {
	tasks, err := s.tasks.ListByBoard(ctx, board.ID)
	if err != nil {
		return "", apperr.Internal(err, "list tasks")
	}
	key, err := s.archiver.Save(ctx, board, tasks, sess.UserID, reason)
	if err != nil {
		return "", apperr.Internal(err, "archive board")
	}
	return key, nil
}
