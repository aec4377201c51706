package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"babylog/internal/database"
	"babylog/internal/metrics"
	"babylog/internal/repository"
)

type testEnv struct {
	db       *database.DB
	auth     *AuthService
	families *FamilyService
	care     *CareService
	admin    *AdminService
	backup   *BackupService
	metrics  *metrics.Metrics
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "babylog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	m := metrics.New()

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	babyRepo := repository.NewBabyRepository(db)
	careRepo := repository.NewCareRepository(db)

	families := NewFamilyService(db, familyRepo, babyRepo, m)
	return &testEnv{
		db:       db,
		auth:     NewAuthService(db, userRepo, time.Hour, m),
		families: families,
		care:     NewCareService(families, babyRepo, careRepo, m),
		admin:    NewAdminService(userRepo, familyRepo, babyRepo, careRepo),
		backup:   NewBackupService(db),
		metrics:  m,
	}
}

func (e *testEnv) register(t *testing.T, username, familyCode string) *RegisterResult {
	t.Helper()
	res, err := e.auth.Register(RegisterInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "password123",
		PasswordConfirm: "password123",
		FamilyCode:      familyCode,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func repositoryUsers(e *testEnv) *repository.UserRepository {
	return repository.NewUserRepository(e.db)
}
