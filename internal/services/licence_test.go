package services

import (
	"os"
	"path/filepath"

	"github.com/clikanban/kanban/internal/apperr"
	"github.com/clikanban/kanban/types"
)

type LicenceSuite struct {
	serviceSuite
}

func (s *LicenceSuite) TestCreateLicence() {
	lic, err := s.licences.CreateLicence(s.ctx, "ABCD-1234-EFGH-5678", types.RoleHashira)
	s.Require().NoError(err)
	s.Nil(lic.OwnerID)
	s.Equal(types.RoleHashira, lic.Role)

	_, err = s.licences.CreateLicence(s.ctx, "ABCD-1234-EFGH-5678", types.RoleHashira)
	s.requireKind(err, apperr.KindAlreadyExists)

	_, err = s.licences.CreateLicence(s.ctx, "ABCD-1234-EFGH", types.RoleHashira)
	s.requireKind(err, apperr.KindValidation)

	_, err = s.licences.CreateLicence(s.ctx, "WXYZ-1234-EFGH-5678", types.Role("Admin"))
	s.requireKind(err, apperr.KindValidation)
}

func (s *LicenceSuite) TestRedeemable() {
	_, err := s.licences.Redeemable(s.ctx, "not-a-key")
	s.requireKind(err, apperr.KindValidation)

	_, err = s.licences.Redeemable(s.ctx, "ABCD-1234-EFGH-5678")
	s.requireKind(err, apperr.KindNotFound)

	_, err = s.licences.CreateLicence(s.ctx, "ABCD-1234-EFGH-5678", types.RoleMembers)
	s.Require().NoError(err)
	s.True(s.licences.IsRedeemable(s.ctx, "ABCD-1234-EFGH-5678"))

	s.Require().NoError(s.licences.Redeem(s.ctx, "ABCD-1234-EFGH-5678", "user-1"))
	_, err = s.licences.Redeemable(s.ctx, "ABCD-1234-EFGH-5678")
	s.requireKind(err, apperr.KindConflict)

	err = s.licences.Redeem(s.ctx, "ABCD-1234-EFGH-5678", "user-2")
	s.requireKind(err, apperr.KindConflict)

	lic, err := s.licences.FindByKey(s.ctx, "ABCD-1234-EFGH-5678")
	s.Require().NoError(err)
	s.Equal("user-1", *lic.OwnerID)
}

func (s *LicenceSuite) TestSeed() {
	_, err := s.licences.CreateLicence(s.ctx, "OLD0-1111-2222-3333", types.RoleMembers)
	s.Require().NoError(err)

	records := []SeedRecord{
		{Key: "NEW0-1111-2222-3333", Role: "Boss"},
		{Key: "OLD0-1111-2222-3333", Role: "Members"},
		{Key: "", Role: "Members"},
		{Key: "BAD", Role: "Members"},
		{Key: "NEW1-1111-2222-3333", Role: "boss"},
		{Key: "NEW2-1111-2222-3333", Role: "Hashira"},
	}

	dry := s.licences.Seed(s.ctx, records, true)
	s.Equal(SeedSummary{Inserted: 2, Skipped: 1, Errors: 3}, dry)
	s.False(s.licences.IsRedeemable(s.ctx, "NEW0-1111-2222-3333"))

	summary := s.licences.Seed(s.ctx, records, false)
	s.Equal(SeedSummary{Inserted: 2, Skipped: 1, Errors: 3}, summary)

	lic, err := s.licences.FindByKey(s.ctx, "NEW0-1111-2222-3333")
	s.Require().NoError(err)
	s.Equal(types.RoleBoss, lic.Role)

	again := s.licences.Seed(s.ctx, records, false)
	s.Equal(SeedSummary{Inserted: 0, Skipped: 3, Errors: 3}, again)

	all, err := s.licences.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *LicenceSuite) TestParseSeedRecords() {
	records, err := ParseSeedRecords([]byte(`["AAAA-BBBB-CCCC-DDDD", {"key": "EEEE-FFFF-GGGG-HHHH", "role": "Boss"}, {"key": "IIII-JJJJ-KKKK-LLLL"}]`))
	s.Require().NoError(err)
	s.Equal([]SeedRecord{
		{Key: "AAAA-BBBB-CCCC-DDDD", Role: "Members"},
		{Key: "EEEE-FFFF-GGGG-HHHH", Role: "Boss"},
		{Key: "IIII-JJJJ-KKKK-LLLL", Role: "Members"},
	}, records)

	_, err = ParseSeedRecords([]byte(`{"key": "AAAA-BBBB-CCCC-DDDD"}`))
	s.requireKind(err, apperr.KindValidation)

	_, err = ParseSeedRecords([]byte(`[{"role": "Boss"}]`))
	s.requireKind(err, apperr.KindValidation)

	_, err = ParseSeedRecords([]byte(`[42]`))
	s.requireKind(err, apperr.KindValidation)
}

func (s *LicenceSuite) TestLoadSeedRecordsAndKeyFile() {
	dir := s.T().TempDir()
	seed := filepath.Join(dir, "license.json")
	s.Require().NoError(os.WriteFile(seed, []byte(`["AAAA-BBBB-CCCC-DDDD"]`), 0o600))

	records, err := LoadSeedRecords(seed)
	s.Require().NoError(err)
	s.Len(records, 1)

	_, err = LoadSeedRecords(filepath.Join(dir, "missing.json"))
	s.Error(err)

	keyFile := filepath.Join(dir, "licence.txt")
	s.Require().NoError(os.WriteFile(keyFile, []byte("  AAAA-BBBB-CCCC-DDDD\n"), 0o600))
	key, err := ReadKeyFile(keyFile)
	s.Require().NoError(err)
	s.Equal("AAAA-BBBB-CCCC-DDDD", key)

	s.Require().NoError(os.WriteFile(keyFile, []byte("nope"), 0o600))
	_, err = ReadKeyFile(keyFile)
	s.requireKind(err, apperr.KindValidation)

	_, err = ReadKeyFile(filepath.Join(dir, "absent.txt"))
	s.requireKind(err, apperr.KindNotFound)
}
