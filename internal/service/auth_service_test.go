package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babylog/internal/credentials"
	"babylog/internal/validation"
)

func TestRegisterScenario(t *testing.T) {
	env := newTestEnv(t)

	// alice registers without a code: new family, new unnamed baby, membership
	alice := env.register(t, "alice", "")
	require.NotNil(t, alice.Family)
	require.NotNil(t, alice.Baby)
	assert.True(t, credentials.IsJoinCode(alice.Family.Code))
	assert.Equal(t, "", alice.Baby.Name)
	assert.Equal(t, alice.Family.ID, alice.Baby.FamilyID)

	isMember, err := env.families.IsMember(alice.User.ID, alice.Family.ID)
	require.NoError(t, err)
	assert.True(t, isMember)

	// bob registers with alice's code: joins her family, no new baby
	bob := env.register(t, "bob", alice.Family.Code)
	assert.Equal(t, alice.Family.ID, bob.Family.ID)
	assert.Nil(t, bob.Baby)
	assert.Equal(t, 1, env.count(t, "families"))
	assert.Equal(t, 1, env.count(t, "babies"))

	// bob's dashboard: the family's babies and no feedings
	_, active, err := env.families.ResolveActiveFamily(bob.User.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, alice.Family.ID, active.ID)

	data, err := env.families.GetFamilyData(active, true, false)
	require.NoError(t, err)
	require.Len(t, data.Babies, 1)
	assert.Equal(t, alice.Baby.ID, data.Babies[0].ID)

	feedings, err := env.care.ListFeedings(data.Babies)
	require.NoError(t, err)
	assert.Empty(t, feedings)
}

func TestRegisterWithFamilyAndBabyNames(t *testing.T) {
	env := newTestEnv(t)
	dob := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	res, err := env.auth.Register(RegisterInput{
		Username:        "dana",
		Email:           "dana@example.com",
		Password:        "password123",
		PasswordConfirm: "password123",
		FamilyName:      "Chambers",
		BabyName:        "Robin",
		BabyDateOfBirth: &dob,
	})
	require.NoError(t, err)
	assert.Equal(t, "Chambers", res.Family.Name)
	assert.Equal(t, "Robin", res.Baby.Name)

	baby, err := env.families.GetBabyForUser(res.User.ID, res.Baby.ID)
	require.NoError(t, err)
	require.NotNil(t, baby.DateOfBirth)
	assert.True(t, dob.Equal(*baby.DateOfBirth))
}

func TestRegisterInvalidFamilyCode(t *testing.T) {
	env := newTestEnv(t)
	code, err := credentials.GenerateJoinCode()
	require.NoError(t, err)

	_, err = env.auth.Register(RegisterInput{
		Username:        "eve",
		Email:           "eve@example.com",
		Password:        "password123",
		PasswordConfirm: "password123",
		FamilyCode:      code,
	})
	assert.ErrorIs(t, err, ErrInvalidFamilyCode)
	assert.Equal(t, 0, env.count(t, "users"))
	assert.Equal(t, 0, env.count(t, "users_families"))
}

func TestRegisterDuplicateIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "")

	_, err := env.auth.Register(RegisterInput{
		Username:        "alice",
		Email:           "another@example.com",
		Password:        "password123",
		PasswordConfirm: "password123",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = env.auth.Register(RegisterInput{
		Username:        "alice2",
		Email:           "alice@example.com",
		Password:        "password123",
		PasswordConfirm: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// The failed attempts left no family, baby or membership behind
	assert.Equal(t, 1, env.count(t, "users"))
	assert.Equal(t, 1, env.count(t, "families"))
	assert.Equal(t, 1, env.count(t, "babies"))
	assert.Equal(t, 1, env.count(t, "users_families"))
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		input     RegisterInput
		wantField string
	}{
		{
			name:      "missing username",
			input:     RegisterInput{Email: "a@example.com", Password: "password123", PasswordConfirm: "password123"},
			wantField: "username",
		},
		{
			name:      "bad email",
			input:     RegisterInput{Username: "a", Email: "nope", Password: "password123", PasswordConfirm: "password123"},
			wantField: "email",
		},
		{
			name:      "short password",
			input:     RegisterInput{Username: "a", Email: "a@example.com", Password: "short", PasswordConfirm: "short"},
			wantField: "password",
		},
		{
			name:      "passwords differ",
			input:     RegisterInput{Username: "a", Email: "a@example.com", Password: "password123", PasswordConfirm: "password124"},
			wantField: "password2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(tt.input)
			var verr *validation.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
	assert.Equal(t, 0, env.count(t, "users"))
}

func TestLoginAndSessions(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	_, _, err := env.auth.Login("alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = env.auth.Login("nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, user, err := env.auth.Login("alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, alice.User.ID, user.ID)

	validated, err := env.auth.ValidateSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", validated.Username)

	require.NoError(t, env.auth.Logout(session.ID))
	_, err = env.auth.ValidateSession(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	restored, user, err := env.auth.RestoreSession(alice.User.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.User.ID, user.ID)
	assert.NotEqual(t, session.ID, restored.ID)

	_, _, err = env.auth.RestoreSession(99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	expired := NewAuthService(env.db, repositoryUsers(env), -time.Minute, nil)
	session, _, err := expired.Login("alice", "password123")
	require.NoError(t, err)

	_, err = env.auth.ValidateSession(session.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, _, err = expired.RestoreSession(alice.User.ID)
	require.NoError(t, err)
	n, err := env.auth.CleanupExpiredSessions()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, env.count(t, "sessions"))
}

func TestSetAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "")

	require.NoError(t, env.auth.SetAdmin("alice", true))
	user, err := env.auth.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	assert.ErrorIs(t, env.auth.SetAdmin("nobody", true), ErrUserNotFound)
	_, err = env.auth.GetUserByUsername("nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
