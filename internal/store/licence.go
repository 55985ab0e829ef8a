package store

import (
	"context"
	"time"

	"github.com/clikanban/kanban/internal/docstore"
	"github.com/clikanban/kanban/types"
	"github.com/google/uuid"
)

type licenceDocument struct {
	ID        string     `json:"id"`
	Key       string     `json:"key"`
	OwnerID   *string    `json:"owner_id"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

func (d licenceDocument) licence() types.Licence {
	return types.Licence{
		ID:        d.ID,
		Key:       d.Key,
		OwnerID:   d.OwnerID,
		Role:      types.Role(d.Role),
		CreatedAt: d.CreatedAt,
		ClaimedAt: d.ClaimedAt,
	}
}

// LicenceRepository handles persistence for licences.
type LicenceRepository struct {
	coll docstore.Collection
}

func NewLicenceRepository(ds docstore.Store) *LicenceRepository {
	return &LicenceRepository{coll: ds.Collection(licencesCollection)}
}

// EnsureIndexes creates the indexes the repository relies on.
func (r *LicenceRepository) EnsureIndexes(ctx context.Context) error {
	if err := r.coll.CreateIndex(ctx, true, "key"); err != nil {
		return err
	}
	return r.coll.CreateIndex(ctx, false, "owner_id")
}

// Create inserts an unclaimed licence.
func (r *LicenceRepository) Create(ctx context.Context, key string, role types.Role) (types.Licence, error) {
	doc := licenceDocument{
		ID:        uuid.NewString(),
		Key:       key,
		Role:      string(role),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.coll.InsertOne(ctx, doc.ID, doc); err != nil {
		return types.Licence{}, translate(err)
	}
	return doc.licence(), nil
}

func (r *LicenceRepository) GetByKey(ctx context.Context, key string) (types.Licence, error) {
	doc, err := findOne[licenceDocument](ctx, r.coll, docstore.Where(docstore.Eq("key", key)))
	if err != nil {
		return types.Licence{}, err
	}
	return doc.licence(), nil
}

// List returns every licence in creation order.
func (r *LicenceRepository) List(ctx context.Context) ([]types.Licence, error) {
	docs, err := findMany[licenceDocument](ctx, r.coll, nil)
	if err != nil {
		return nil, err
	}
	licences := make([]types.Licence, 0, len(docs))
	for _, d := range docs {
		licences = append(licences, d.licence())
	}
	return licences, nil
}

// Claim binds the licence to ownerID if, and only if, it is still
// unclaimed. The check and the write are one conditional update, so of two
// concurrent claims at most one reports true.
func (r *LicenceRepository) Claim(ctx context.Context, key, ownerID string) (bool, error) {
	affected, err := r.coll.UpdateOne(ctx,
		docstore.Where(docstore.Eq("key", key), docstore.IsNull("owner_id")),
		map[string]any{
			"owner_id":   ownerID,
			"claimed_at": time.Now().UTC(),
		})
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
