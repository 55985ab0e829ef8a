package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/store"
	"github.com/clikanban/kanban/types"
	log "github.com/sirupsen/logrus"
)

// LicenceRepository defines persistence operations for licences.
type LicenceRepository interface {
	Create(ctx context.Context, key string, role types.Role) (types.Licence, error)
	GetByKey(ctx context.Context, key string) (types.Licence, error)
	List(ctx context.Context) ([]types.Licence, error)
	Claim(ctx context.Context, key, ownerID string) (bool, error)
}

// LicenceService encapsulates licence use-cases.
type LicenceService struct {
	repo LicenceRepository
}

func NewLicenceService(repo LicenceRepository) *LicenceService {
	return &LicenceService{repo: repo}
}

func invalidKeyFormat() error {
	return apperr.Validation("invalid licence format, expected %s", types.LicenceKeyFormat)
}

// CreateLicence issues a new unclaimed licence granting role.
func (s *LicenceService) CreateLicence(ctx context.Context, key string, role types.Role) (types.Licence, error) {
	if !types.ValidLicenceKey(key) {
		return types.Licence{}, invalidKeyFormat()
	}
	if !role.Valid() {
		return types.Licence{}, apperr.Validation("invalid role %q, must be one of %v", role, types.Roles)
	}
	licence, err := s.repo.Create(ctx, key, role)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return types.Licence{}, apperr.AlreadyExists("licence key %s already exists", key)
		}
		return types.Licence{}, apperr.Internal(err, "create licence")
	}
	return licence, nil
}

// FindByKey returns the licence with the given key.
func (s *LicenceService) FindByKey(ctx context.Context, key string) (types.Licence, error) {
	licence, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Licence{}, apperr.NotFound("licence key not found")
		}
		return types.Licence{}, apperr.Internal(err, "find licence")
	}
	return licence, nil
}

// IsRedeemable reports whether key is well formed, exists and is
// unclaimed. Storage failures count as not redeemable.
func (s *LicenceService) IsRedeemable(ctx context.Context, key string) bool {
	_, err := s.Redeemable(ctx, key)
	return err == nil
}

// Redeemable returns the licence for key if it can still be redeemed.
func (s *LicenceService) Redeemable(ctx context.Context, key string) (types.Licence, error) {
	if !types.ValidLicenceKey(key) {
		return types.Licence{}, invalidKeyFormat()
	}
	licence, err := s.FindByKey(ctx, key)
	if err != nil {
		return types.Licence{}, err
	}
	if licence.Claimed() {
		return types.Licence{}, apperr.Conflict("licence key has already been used")
	}
	return licence, nil
}

// Redeem binds the licence to ownerID. Losing a race against another
// redeemer yields a conflict.
func (s *LicenceService) Redeem(ctx context.Context, key, ownerID string) error {
	claimed, err := s.repo.Claim(ctx, key, ownerID)
	if err != nil {
		return apperr.Internal(err, "claim licence")
	}
	if !claimed {
		return apperr.Conflict("failed to claim licence key, it may have been used")
	}
	return nil
}

// List returns every licence.
func (s *LicenceService) List(ctx context.Context) ([]types.Licence, error) {
	licences, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list licences")
	}
	return licences, nil
}

// SeedRecord is one licence to seed.
type SeedRecord struct {
	Key  string `json:"key"`
	Role string `json:"role"`
}

// SeedSummary counts the outcome of a seeding run.
type SeedSummary struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Seed inserts records, skipping keys that already exist. With dryRun set
// nothing is written but the summary reports what would have happened.
func (s *LicenceService) Seed(ctx context.Context, records []SeedRecord, dryRun bool) SeedSummary {
	var summary SeedSummary
	for _, rec := range records {
		logger := log.WithFields(log.Fields{"key": rec.Key, "role": rec.Role, "dry_run": dryRun})
		if rec.Key == "" {
			logger.Warn("skipping record with no key")
			summary.Errors++
			continue
		}

		existing, err := s.FindByKey(ctx, rec.Key)
		if err == nil {
			logger.WithField("existing_role", existing.Role).Info("skip existing key")
			summary.Skipped++
			continue
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			logger.WithError(err).Error("lookup licence")
			summary.Errors++
			continue
		}

		role, err := types.ParseRole(rec.Role)
		if err != nil || !types.ValidLicenceKey(rec.Key) {
			if err == nil {
				err = invalidKeyFormat()
			}
			logger.WithError(err).Error("invalid licence record")
			summary.Errors++
			continue
		}

		if dryRun {
			logger.Info("would insert key")
			summary.Inserted++
			continue
		}
		if _, err := s.CreateLicence(ctx, rec.Key, role); err != nil {
			logger.WithError(err).Error("insert licence")
			summary.Errors++
			continue
		}
		logger.Info("inserted key")
		summary.Inserted++
	}
	return summary
}

// ParseSeedRecords accepts either a JSON list of key strings, each granting
// Members, or a list of {"key", "role"} objects where role defaults to
// Members.
func ParseSeedRecords(data []byte) ([]SeedRecord, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperr.Validation("unsupported JSON format, expected a list")
	}
	records := make([]SeedRecord, 0, len(items))
	for i, item := range items {
		var key string
		if err := json.Unmarshal(item, &key); err == nil {
			records = append(records, SeedRecord{Key: key, Role: string(types.RoleMembers)})
			continue
		}
		var rec SeedRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, apperr.Validation("item %d: unsupported format, use a string or {key, role}", i)
		}
		if rec.Key == "" {
			return nil, apperr.Validation("item %d: missing 'key' field", i)
		}
		if rec.Role == "" {
			rec.Role = string(types.RoleMembers)
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadSeedRecords reads and parses a seed file.
func LoadSeedRecords(path string) ([]SeedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeedRecords(data)
}

// ReadKeyFile reads a licence key stored alone in a file.
func ReadKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.NotFound("licence file not found: %s", path)
		}
		return "", apperr.Internal(err, "read licence file")
	}
	key := strings.TrimSpace(string(data))
	if !types.ValidLicenceKey(key) {
		return "", apperr.Validation("licence key in file is not valid")
	}
	return key, nil
}
