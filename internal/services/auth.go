package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/events"
	"github.com/clikanban/kanban/internal/metrics"
	"github.com/clikanban/kanban/internal/store"
	"github.com/clikanban/kanban/types"
	log "github.com/sirupsen/logrus"
)

// SignupRequest carries the fields of a new account.
type SignupRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	LicenceKey string `json:"licence_key"`
}

// AuthService handles signup and login.
type AuthService struct {
	users    UserRepository
	licences *LicenceService
	events   events.Publisher
	metrics  *metrics.Metrics
}

// NewAuthService constructs an AuthService. publisher and m may be nil.
func NewAuthService(users UserRepository, licences *LicenceService, publisher events.Publisher, m *metrics.Metrics) *AuthService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &AuthService{users: users, licences: licences, events: publisher, metrics: m}
}

// HashPassword returns the hex SHA-256 digest of password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Signup creates an account gated by a licence. The licence decides the
// role; the requested role must agree with it. The licence is claimed only
// after the account exists, and if another signup claims it first the new
// account is removed again.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (string, types.Role, error) {
	userID, role, err := s.signup(ctx, req)
	if err != nil {
		s.metrics.IncSignup(string(apperr.KindOf(err)))
		return "", "", err
	}
	s.metrics.IncSignup("ok")
	return userID, role, nil
}

func (s *AuthService) signup(ctx context.Context, req SignupRequest) (string, types.Role, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.LicenceKey = strings.TrimSpace(req.LicenceKey)
	if req.Username == "" || req.Password == "" {
		return "", "", apperr.Validation("username and password are required")
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return "", "", apperr.AlreadyExists("user '%s' already exists", req.Username)
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", "", apperr.Internal(err, "check user")
	}

	if req.LicenceKey == "" {
		return "", "", apperr.Validation("a licence key is required")
	}
	requested, err := types.ParseRole(req.Role)
	if err != nil {
		return "", "", apperr.Validation("invalid role %q, must be one of %v", req.Role, types.Roles)
	}

	licence, err := s.licences.Redeemable(ctx, req.LicenceKey)
	if err != nil {
		return "", "", err
	}
	if licence.Role != requested {
		return "", "", apperr.Validation("licence grants role '%s', not '%s'", licence.Role, requested)
	}

	if !types.ValidEmail(req.Email) {
		return "", "", apperr.Validation("invalid or missing email, please provide a valid email address")
	}

	user, err := s.users.Create(ctx, types.User{
		Username:     req.Username,
		Email:        req.Email,
		Role:         licence.Role,
		PasswordHash: HashPassword(req.Password),
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", "", apperr.AlreadyExists("username or email already registered")
		}
		return "", "", apperr.Internal(err, "create user")
	}

	if err := s.licences.Redeem(ctx, req.LicenceKey, user.ID); err != nil {
		s.metrics.IncLicenceClaim(false)
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			log.WithError(delErr).WithField("user_id", user.ID).Error("remove account after lost licence claim")
		}
		return "", "", err
	}
	s.metrics.IncLicenceClaim(true)

	s.events.Publish(ctx, events.LicenceClaimed, user.ID, map[string]string{"key": licence.Key, "role": string(licence.Role)})
	s.events.Publish(ctx, events.UserSignedUp, user.ID, map[string]string{"username": user.Username, "role": string(user.Role)})
	log.WithFields(log.Fields{"user_id": user.ID, "username": user.Username, "role": user.Role}).Info("account created")

	return user.ID, user.Role, nil
}

// Login checks credentials and returns the account.
func (s *AuthService) Login(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, userLookupError(err, username)
	}
	if subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(HashPassword(password))) != 1 {
		return types.User{}, apperr.Authentication("invalid password")
	}
	return user, nil
}
