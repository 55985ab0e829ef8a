// Package archive writes point-in-time board snapshots to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/clikanban/kanban/internal/storage"
	"github.com/clikanban/kanban/types"
)

// ErrNotFound is returned by Load for an unknown key.
var ErrNotFound = errors.New("snapshot not found")

const (
	snapshotVersion = 1
	contentType     = "application/json"
	keyTimeLayout   = "20060102T150405.000000000Z"
)

// Snapshot is a board and its tasks as they were at ExportedAt.
type Snapshot struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exported_at"`
	ExportedBy string       `json:"exported_by"`
	Reason     string       `json:"reason"`
	Board      types.Board  `json:"board"`
	Tasks      []types.Task `json:"tasks"`
}

// View groups the snapshot's tasks by column.
func (s Snapshot) View() types.BoardView {
	return types.NewBoardView(s.Board, s.Tasks)
}

// Entry is a listed snapshot, described from its key alone.
type Entry struct {
	Key        string    `json:"key"`
	OwnerID    string    `json:"owner_id"`
	BoardID    string    `json:"board_id"`
	ExportedAt time.Time `json:"exported_at"`
	Size       int64     `json:"size"`
}

// Archiver stores snapshots under boards/<owner>/<board>/<time>.json.
type Archiver struct {
	storage *storage.Storage
	now     func() time.Time
}

func New(s *storage.Storage) *Archiver {
	return &Archiver{storage: s, now: time.Now}
}

// Key returns the object key of a snapshot of board taken at t.
func Key(board types.Board, t time.Time) string {
	return fmt.Sprintf("%s%s/%s.json", OwnerPrefix(board.OwnerID), board.ID, t.UTC().Format(keyTimeLayout))
}

// OwnerPrefix is the key prefix shared by every snapshot of ownerID's
// boards.
func OwnerPrefix(ownerID string) string {
	return "boards/" + ownerID + "/"
}

// ParseKey splits a key built by Key. ok is false for any other key.
func ParseKey(key string) (Entry, bool) {
	parts := strings.Split(strings.TrimPrefix(key, "boards/"), "/")
	if !strings.HasPrefix(key, "boards/") || len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Entry{}, false
	}
	stamp, found := strings.CutSuffix(parts[2], ".json")
	if !found {
		return Entry{}, false
	}
	at, err := time.Parse(keyTimeLayout, stamp)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Key: key, OwnerID: parts[0], BoardID: parts[1], ExportedAt: at}, true
}

// Save uploads a snapshot of board and tasks and returns its key.
func (a *Archiver) Save(ctx context.Context, board types.Board, tasks []types.Task, actorID, reason string) (string, error) {
	if tasks == nil {
		tasks = []types.Task{}
	}
	snap := Snapshot{
		Version:    snapshotVersion,
		ExportedAt: a.now().UTC(),
		ExportedBy: actorID,
		Reason:     reason,
		Board:      board,
		Tasks:      tasks,
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	key := Key(board, snap.ExportedAt)
	obj := storage.Object{Key: key, Size: int64(len(body)), ContentType: contentType}
	if err := a.storage.Put(ctx, obj, bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("upload snapshot %s: %w", key, err)
	}
	return key, nil
}

// List returns the snapshots of ownerID's boards, newest first. Objects
// under the prefix that were not written by Save are skipped.
func (a *Archiver) List(ctx context.Context, ownerID string) ([]Entry, error) {
	objects, err := a.storage.List(ctx, OwnerPrefix(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	entries := make([]Entry, 0, len(objects))
	for _, obj := range objects {
		entry, ok := ParseKey(obj.Key)
		if !ok {
			continue
		}
		entry.Size = obj.Size
		entries = append(entries, entry)
	}
	slices.SortStableFunc(entries, func(x, y Entry) int {
		return y.ExportedAt.Compare(x.ExportedAt)
	})
	return entries, nil
}

// Load reads a snapshot back.
func (a *Archiver) Load(ctx context.Context, key string) (Snapshot, error) {
	r, err := a.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return snap, nil
}
