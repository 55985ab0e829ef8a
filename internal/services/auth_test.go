package services

import (
	"context"
	"sync"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/internal/events"
	"github.com/clikanban/kanban/types"
)

type AuthSuite struct {
	serviceSuite
}

func (s *AuthSuite) TestBossLicenceScenario() {
	_, err := s.licences.CreateLicence(s.ctx, "BOSS-1111-2222-3333", types.RoleBoss)
	s.Require().NoError(err)

	userID, role, err := s.auth.Signup(s.ctx, SignupRequest{
		Username:   "muzan",
		Password:   "secret",
		Email:      "muzan@kibutsuji.jp",
		Role:       "Boss",
		LicenceKey: "BOSS-1111-2222-3333",
	})
	s.Require().NoError(err)
	s.Equal(types.RoleBoss, role)

	licence, err := s.licences.FindByKey(s.ctx, "BOSS-1111-2222-3333")
	s.Require().NoError(err)
	s.Require().NotNil(licence.OwnerID)
	s.Equal(userID, *licence.OwnerID)
	s.False(s.licences.IsRedeemable(s.ctx, "BOSS-1111-2222-3333"))

	user, err := s.auth.Login(s.ctx, "muzan", "secret")
	s.Require().NoError(err)
	s.Equal(userID, user.ID)
	s.Equal(types.RoleBoss, user.Role)

	board, err := s.boards.CreateBoard(s.ctx, types.SessionFor(user), "Upper Moons")
	s.Require().NoError(err)
	s.Equal([]string{"TODO", "DOING", "DONE"}, board.Columns)

	_, _, err = s.auth.Signup(s.ctx, SignupRequest{
		Username:   "akaza",
		Password:   "secret",
		Email:      "akaza@kibutsuji.jp",
		Role:       "Boss",
		LicenceKey: "BOSS-1111-2222-3333",
	})
	s.requireKind(err, apperr.KindConflict)

	s.Equal([]string{events.LicenceClaimed, events.UserSignedUp, events.BoardCreated}, s.published.eventTypes())
}

func (s *AuthSuite) TestRoleMismatchLeavesLicenceUnclaimed() {
	_, err := s.licences.CreateLicence(s.ctx, "MEMB-1111-2222-3333", types.RoleMembers)
	s.Require().NoError(err)

	_, _, err = s.auth.Signup(s.ctx, SignupRequest{
		Username:   "zenitsu",
		Password:   "pw",
		Email:      "zenitsu@corps.jp",
		Role:       "Boss",
		LicenceKey: "MEMB-1111-2222-3333",
	})
	s.requireKind(err, apperr.KindValidation)

	s.True(s.licences.IsRedeemable(s.ctx, "MEMB-1111-2222-3333"))
	_, err = s.users.GetByUsername(s.ctx, "zenitsu")
	s.requireKind(err, apperr.KindNotFound)
}

func (s *AuthSuite) TestSignupValidationOrder() {
	s.signup("existing", "EXST-1111-2222-3333", types.RoleMembers)
	_, err := s.licences.CreateLicence(s.ctx, "FREE-1111-2222-3333", types.RoleHashira)
	s.Require().NoError(err)

	valid := SignupRequest{Username: "inosuke", Password: "pw", Email: "inosuke@corps.jp", Role: "Hashira", LicenceKey: "FREE-1111-2222-3333"}
	tests := []struct {
		name   string
		mutate func(r *SignupRequest)
		kind   apperr.Kind
	}{
		{"duplicate username wins over missing licence", func(r *SignupRequest) { r.Username = "existing"; r.LicenceKey = "" }, apperr.KindAlreadyExists},
		{"missing licence", func(r *SignupRequest) { r.LicenceKey = "" }, apperr.KindValidation},
		{"invalid role", func(r *SignupRequest) { r.Role = "hashira" }, apperr.KindValidation},
		{"malformed licence", func(r *SignupRequest) { r.LicenceKey = "FREE-1111-2222" }, apperr.KindValidation},
		{"unknown licence", func(r *SignupRequest) { r.LicenceKey = "NONE-1111-2222-3333" }, apperr.KindNotFound},
		{"claimed licence", func(r *SignupRequest) { r.LicenceKey = "EXST-1111-2222-3333"; r.Role = "Members" }, apperr.KindConflict},
		{"bad email", func(r *SignupRequest) { r.Email = "inosuke@corps" }, apperr.KindValidation},
		{"duplicate email", func(r *SignupRequest) { r.Email = "existing@corps.jp" }, apperr.KindAlreadyExists},
		{"empty password", func(r *SignupRequest) { r.Password = "" }, apperr.KindValidation},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := valid
			tt.mutate(&req)
			_, _, err := s.auth.Signup(s.ctx, req)
			s.requireKind(err, tt.kind)
			s.True(s.licences.IsRedeemable(s.ctx, "FREE-1111-2222-3333"))
		})
	}

	_, role, err := s.auth.Signup(s.ctx, valid)
	s.Require().NoError(err)
	s.Equal(types.RoleHashira, role)
}

func (s *AuthSuite) TestLogin() {
	s.signup("kanao", "KANA-1111-2222-3333", types.RoleMembers)

	_, err := s.auth.Login(s.ctx, "kanao", "wrong")
	s.requireKind(err, apperr.KindAuthentication)

	_, err = s.auth.Login(s.ctx, "nobody", "pw")
	s.requireKind(err, apperr.KindNotFound)

	user, err := s.userRepo.GetByUsername(s.ctx, "kanao")
	s.Require().NoError(err)
	s.Equal(HashPassword("pw-kanao"), user.PasswordHash)
	s.Len(user.PasswordHash, 64)
}

func (s *AuthSuite) TestConcurrentSignupsOnOneLicence() {
	_, err := s.licences.CreateLicence(s.ctx, "RACE-1111-2222-3333", types.RoleHashira)
	s.Require().NoError(err)

	const contenders = 8
	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a'+i)) + "-slayer"
			_, _, results[i] = s.auth.Signup(context.Background(), SignupRequest{
				Username:   name,
				Password:   "pw",
				Email:      name + "@corps.jp",
				Role:       "Hashira",
				LicenceKey: "RACE-1111-2222-3333",
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		s.Equal(apperr.KindConflict, apperr.KindOf(err), err.Error())
	}
	s.Equal(1, wins)

	hashira, err := s.userRepo.ListByRole(s.ctx, types.RoleHashira)
	s.Require().NoError(err)
	s.Len(hashira, 1)

	licence, err := s.licences.FindByKey(s.ctx, "RACE-1111-2222-3333")
	s.Require().NoError(err)
	s.Require().NotNil(licence.OwnerID)
	s.Equal(hashira[0].ID, *licence.OwnerID)
}

func (s *AuthSuite) TestLostClaimRemovesAccount() {
	_, err := s.licences.CreateLicence(s.ctx, "LOST-1111-2222-3333", types.RoleMembers)
	s.Require().NoError(err)

	racing := &claimStealingRepo{LicenceRepository: s.licRepo}
	auth := NewAuthService(s.userRepo, NewLicenceService(racing), nil, nil)

	_, _, err = auth.Signup(s.ctx, SignupRequest{
		Username:   "genya",
		Password:   "pw",
		Email:      "genya@corps.jp",
		Role:       "Members",
		LicenceKey: "LOST-1111-2222-3333",
	})
	s.requireKind(err, apperr.KindConflict)

	_, err = s.users.GetByUsername(s.ctx, "genya")
	s.requireKind(err, apperr.KindNotFound)
}

// claimStealingRepo lets another owner claim the licence just before the
// real claim runs.
type claimStealingRepo struct {
	LicenceRepository
}

func (r *claimStealingRepo) Claim(ctx context.Context, key, ownerID string) (bool, error) {
	if _, err := r.LicenceRepository.Claim(ctx, key, "someone-else"); err != nil {
		return false, err
	}
	return r.LicenceRepository.Claim(ctx, key, ownerID)
}
