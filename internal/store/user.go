package store

import (
	"context"
	"time"

	"github.com/clikanban/kanban/internal/docstore"
	"github.com/clikanban/kanban/types"
	"github.com/google/uuid"
)

// userDocument is the stored shape of an account. Unlike types.User it
// carries the password digest.
type userDocument struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (d userDocument) user() types.User {
	return types.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		Role:         types.Role(d.Role),
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

// UserRepository handles persistence for users.
type UserRepository struct {
	coll docstore.Collection
}

func NewUserRepository(ds docstore.Store) *UserRepository {
	return &UserRepository{coll: ds.Collection(usersCollection)}
}

// EnsureIndexes creates the indexes the repository relies on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.coll.CreateIndex(ctx, true, "username"); err != nil {
		return err
	}
	return r.coll.CreateIndex(ctx, true, "email")
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	doc, err := findOne[userDocument](ctx, r.coll, docstore.Where(docstore.Eq("id", id)))
	if err != nil {
		return types.User{}, err
	}
	return doc.user(), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	doc, err := findOne[userDocument](ctx, r.coll, docstore.Where(docstore.Eq("username", username)))
	if err != nil {
		return types.User{}, err
	}
	return doc.user(), nil
}

// ListByRole returns every account holding role.
func (r *UserRepository) ListByRole(ctx context.Context, role types.Role) ([]types.User, error) {
	docs, err := findMany[userDocument](ctx, r.coll, docstore.Where(docstore.Eq("role", string(role))))
	if err != nil {
		return nil, err
	}
	users := make([]types.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}

// Create assigns an ID and creation time and stores the account.
// Username or email clashes yield ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()

	doc := userDocument{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         string(user.Role),
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if err := r.coll.InsertOne(ctx, doc.ID, doc); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id)
}
