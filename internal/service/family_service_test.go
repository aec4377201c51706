package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babylog/internal/credentials"
	"babylog/internal/models"
	"babylog/internal/validation"
)

func TestJoinFamilyByCode(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	bob := env.register(t, "bob", "")

	isMember, err := env.families.IsMember(bob.User.ID, alice.Family.ID)
	require.NoError(t, err)
	assert.False(t, isMember, "bob should not be a member before joining")

	family, err := env.families.JoinFamilyByCode(bob.User.ID, alice.Family.Code)
	require.NoError(t, err)
	assert.Equal(t, alice.Family.ID, family.ID)

	isMember, err = env.families.IsMember(bob.User.ID, alice.Family.ID)
	require.NoError(t, err)
	assert.True(t, isMember, "bob should be a member after joining")
}

func TestJoinFamilyByUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	before := env.count(t, "users_families")

	unknown, err := credentials.GenerateJoinCode()
	require.NoError(t, err)

	for _, code := range []string{unknown, "", "short", "not a code at all, has spaces!!!"} {
		_, err := env.families.JoinFamilyByCode(alice.User.ID, code)
		assert.ErrorIs(t, err, ErrInvalidFamilyCode, "code %q", code)
	}
	assert.Equal(t, before, env.count(t, "users_families"))
}

func TestJoinFamilyAlreadyMember(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	bob := env.register(t, "bob", alice.Family.Code)
	before := env.count(t, "users_families")

	_, err := env.families.JoinFamilyByCode(bob.User.ID, alice.Family.Code)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	_, err = env.families.JoinFamilyByCode(alice.User.ID, alice.Family.Code)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	assert.Equal(t, before, env.count(t, "users_families"))
}

func TestResolveActiveFamily(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	f1 := alice.Family
	f2, err := env.families.CreateFamily(alice.User.ID, "Second")
	require.NoError(t, err)

	other := env.register(t, "carol", "")

	tests := []struct {
		name      string
		requested *int64
		wantID    int64
	}{
		{name: "requested second family", requested: &f2.ID, wantID: f2.ID},
		{name: "requested first family", requested: &f1.ID, wantID: f1.ID},
		{name: "omitted", requested: nil, wantID: f1.ID},
		{name: "unknown id", requested: int64Ptr(99999), wantID: f1.ID},
		{name: "family of another user", requested: &other.Family.ID, wantID: f1.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			families, active, err := env.families.ResolveActiveFamily(alice.User.ID, tt.requested)
			require.NoError(t, err)
			require.Len(t, families, 2)
			assert.Equal(t, f1.ID, families[0].ID, "families are in join order")
			assert.Equal(t, f2.ID, families[1].ID)
			require.NotNil(t, active)
			assert.Equal(t, tt.wantID, active.ID)
		})
	}
}

func TestResolveActiveFamilyWithoutFamilies(t *testing.T) {
	env := newTestEnv(t)

	families, active, err := env.families.ResolveActiveFamily(424242, int64Ptr(1))
	require.NoError(t, err)
	assert.NotNil(t, families)
	assert.Empty(t, families)
	assert.Nil(t, active)
}

func TestGetFamilyData(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	data, err := env.families.GetFamilyData(nil, true, true)
	require.NoError(t, err)
	assert.Empty(t, data.Babies)
	assert.Empty(t, data.Recipes)

	data, err = env.families.GetFamilyData(alice.Family, true, false)
	require.NoError(t, err)
	assert.Len(t, data.Babies, 1)
	assert.Empty(t, data.Recipes)
}

func TestCreateFamilyAddsCreator(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	family, err := env.families.CreateFamily(alice.User.ID, "  Weekend  ")
	require.NoError(t, err)
	assert.Equal(t, "Weekend", family.Name)
	assert.True(t, credentials.IsJoinCode(family.Code))
	assert.NotEqual(t, alice.Family.Code, family.Code)

	isMember, err := env.families.IsMember(alice.User.ID, family.ID)
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestAddBabyRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	mallory := env.register(t, "mallory", "")

	baby, err := env.families.AddBaby(alice.User.ID, alice.Family.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "", baby.Name)
	require.NotNil(t, baby.DateOfBirth, "date of birth defaults to today")

	_, err = env.families.AddBaby(mallory.User.ID, alice.Family.ID, "Intruder", nil)
	assert.ErrorIs(t, err, ErrNotFamilyMember)
}

func TestGetFamilyForUserHidesExistence(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	mallory := env.register(t, "mallory", "")

	family, err := env.families.GetFamilyForUser(alice.User.ID, alice.Family.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Family.Code, family.Code)

	_, err = env.families.GetFamilyForUser(mallory.User.ID, alice.Family.ID)
	assert.ErrorIs(t, err, ErrNotFamilyMember)

	_, err = env.families.GetFamilyForUser(mallory.User.ID, alice.Family.ID+1000)
	assert.ErrorIs(t, err, ErrNotFamilyMember, "missing and foreign families look the same")
}

func TestAddRecipe(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	mallory := env.register(t, "mallory", "")

	recipe := &models.Recipe{FamilyID: alice.Family.ID, Name: "Apple puree", Ingredients: "apples", Amount: intPtr(100)}
	require.NoError(t, env.families.AddRecipe(alice.User.ID, recipe))
	assert.NotZero(t, recipe.ID)

	err := env.families.AddRecipe(mallory.User.ID, &models.Recipe{FamilyID: alice.Family.ID, Name: "Sneaky"})
	assert.ErrorIs(t, err, ErrNotFamilyMember)

	var verr *validation.ValidationError
	err = env.families.AddRecipe(alice.User.ID, &models.Recipe{FamilyID: alice.Family.ID, Name: ""})
	assert.ErrorAs(t, err, &verr)
}
