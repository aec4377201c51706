package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babylog/internal/models"
	"babylog/internal/validation"
)

func TestLogBottleFeedingScenario(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	earlier := &models.Feeding{
		BabyID:         alice.Baby.ID,
		FeedingType:    models.FeedingBreast,
		BreastDuration: intPtr(15),
		Timestamp:      time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, env.care.LogFeeding(alice.User.ID, earlier))

	bottle := &models.Feeding{
		BabyID:       alice.Baby.ID,
		FeedingType:  models.FeedingBottle,
		BottleAmount: intPtr(120),
		Timestamp:    time.Now(),
	}
	require.NoError(t, env.care.LogFeeding(alice.User.ID, bottle))

	feedings, err := env.care.ListFeedings([]models.Baby{*alice.Baby})
	require.NoError(t, err)
	require.Len(t, feedings, 2)

	first := feedings[0]
	assert.Equal(t, bottle.ID, first.ID)
	assert.Equal(t, models.FeedingBottle, first.FeedingType)
	require.NotNil(t, first.BottleAmount)
	assert.Equal(t, 120, *first.BottleAmount)
	assert.Nil(t, first.BreastDuration)
	assert.Nil(t, first.SolidAmount)
	assert.Nil(t, first.RecipeID)
	assert.Equal(t, alice.User.ID, first.UserID)
	assert.Equal(t, "alice", first.Username)
}

func TestListFeedingsSortedAcrossBabies(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	second, err := env.families.AddBaby(alice.User.ID, alice.Family.ID, "Twin", nil)
	require.NoError(t, err)

	base := time.Date(2024, 7, 14, 8, 0, 0, 0, time.UTC)
	offsets := []time.Duration{3 * time.Hour, -time.Hour, 5 * time.Hour, 0, 3 * time.Hour, 30 * time.Minute}
	for i, off := range offsets {
		babyID := alice.Baby.ID
		if i%2 == 1 {
			babyID = second.ID
		}
		require.NoError(t, env.care.LogFeeding(alice.User.ID, &models.Feeding{
			BabyID:       babyID,
			FeedingType:  models.FeedingBottle,
			BottleAmount: intPtr(60 + i),
			Timestamp:    base.Add(off),
		}))
	}

	feedings, err := env.care.ListFeedings([]models.Baby{*alice.Baby, *second})
	require.NoError(t, err)
	require.Len(t, feedings, len(offsets))
	for i := 1; i < len(feedings); i++ {
		assert.False(t, feedings[i].Timestamp.After(feedings[i-1].Timestamp),
			"feeding %d (%v) is later than feeding %d (%v)", i, feedings[i].Timestamp, i-1, feedings[i-1].Timestamp)
	}
	assert.True(t, feedings[0].Timestamp.Equal(base.Add(5*time.Hour)))
}

func TestLogFeedingRules(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	mallory := env.register(t, "mallory", "")

	malloryRecipe := &models.Recipe{FamilyID: mallory.Family.ID, Name: "Secret mix"}
	require.NoError(t, env.families.AddRecipe(mallory.User.ID, malloryRecipe))
	aliceRecipe := &models.Recipe{FamilyID: alice.Family.ID, Name: "Carrot mash"}
	require.NoError(t, env.families.AddRecipe(alice.User.ID, aliceRecipe))

	t.Run("baby of another family", func(t *testing.T) {
		err := env.care.LogFeeding(mallory.User.ID, &models.Feeding{BabyID: alice.Baby.ID, FeedingType: models.FeedingBottle})
		assert.ErrorIs(t, err, ErrNotFamilyMember)
	})

	t.Run("unknown baby", func(t *testing.T) {
		err := env.care.LogFeeding(alice.User.ID, &models.Feeding{BabyID: 99999, FeedingType: models.FeedingBottle})
		assert.ErrorIs(t, err, ErrBabyNotFound)
	})

	t.Run("amount for another type", func(t *testing.T) {
		err := env.care.LogFeeding(alice.User.ID, &models.Feeding{
			BabyID: alice.Baby.ID, FeedingType: models.FeedingBottle, SolidAmount: intPtr(30),
		})
		var verr *validation.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "solid_amount", verr.Field)
	})

	t.Run("recipe of another family", func(t *testing.T) {
		err := env.care.LogFeeding(alice.User.ID, &models.Feeding{
			BabyID: alice.Baby.ID, FeedingType: models.FeedingSolids, RecipeID: &malloryRecipe.ID,
		})
		var verr *validation.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "recipe_id", verr.Field)
	})

	t.Run("own recipe", func(t *testing.T) {
		f := &models.Feeding{
			BabyID: alice.Baby.ID, FeedingType: models.FeedingSolids, SolidAmount: intPtr(40), RecipeID: &aliceRecipe.ID,
		}
		require.NoError(t, env.care.LogFeeding(alice.User.ID, f))
		assert.False(t, f.Timestamp.IsZero(), "missing timestamp defaults to now")

		feedings, err := env.care.ListFeedings([]models.Baby{*alice.Baby})
		require.NoError(t, err)
		require.Len(t, feedings, 1)
		assert.Equal(t, "Carrot mash", feedings[0].RecipeName)
	})

	assert.Equal(t, 1, env.count(t, "feedings"))
}

func TestLogChangingAndSleeping(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	changing := &models.Changing{BabyID: alice.Baby.ID, WetNappy: true, PoopAmount: intPtr(2)}
	require.NoError(t, env.care.LogChanging(alice.User.ID, changing))

	start := time.Now().Add(-3 * time.Hour)
	end := start.Add(90 * time.Minute)
	sleeping := &models.Sleeping{BabyID: alice.Baby.ID, StartTimestamp: start, EndTimestamp: &end}
	require.NoError(t, env.care.LogSleeping(alice.User.ID, sleeping))

	backwards := start.Add(-time.Minute)
	err := env.care.LogSleeping(alice.User.ID, &models.Sleeping{BabyID: alice.Baby.ID, StartTimestamp: start, EndTimestamp: &backwards})
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "end_timestamp", verr.Field)

	babies := []models.Baby{*alice.Baby}
	changings, err := env.care.ListChangings(babies)
	require.NoError(t, err)
	require.Len(t, changings, 1)
	assert.True(t, changings[0].WetNappy)
	require.NotNil(t, changings[0].PoopAmount)
	assert.Equal(t, 2, *changings[0].PoopAmount)

	sleepings, err := env.care.ListSleepings(babies)
	require.NoError(t, err)
	require.Len(t, sleepings, 1)
	assert.Equal(t, 90*time.Minute, sleepings[0].Duration().Round(time.Second))
}

func TestLogNoteLinks(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	twin, err := env.families.AddBaby(alice.User.ID, alice.Family.ID, "Twin", nil)
	require.NoError(t, err)

	feeding := &models.Feeding{BabyID: alice.Baby.ID, FeedingType: models.FeedingBottle, BottleAmount: intPtr(90)}
	require.NoError(t, env.care.LogFeeding(alice.User.ID, feeding))

	require.NoError(t, env.care.LogNote(alice.User.ID, &models.Note{BabyID: alice.Baby.ID, Extra: "spat up a little", FeedingID: &feeding.ID}))
	require.NoError(t, env.care.LogNote(alice.User.ID, &models.Note{BabyID: twin.ID, Extra: "first smile"}))

	err = env.care.LogNote(alice.User.ID, &models.Note{BabyID: twin.ID, Extra: "wrong baby", FeedingID: &feeding.ID})
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "link", verr.Field)

	err = env.care.LogNote(alice.User.ID, &models.Note{BabyID: alice.Baby.ID, Extra: "missing", ChangingID: int64Ptr(4242)})
	require.ErrorAs(t, err, &verr)

	notes, err := env.care.ListNotes([]models.Baby{*alice.Baby, *twin})
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestWeeklyFeedingCounts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")

	now := time.Date(2024, 7, 20, 15, 0, 0, 0, time.UTC)
	env.care.now = func() time.Time { return now }

	for _, ts := range []time.Time{
		now.Add(-time.Hour),
		now.Add(-2 * time.Hour),
		now.AddDate(0, 0, -2),
		now.AddDate(0, 0, -6),
		now.AddDate(0, 0, -10),
	} {
		require.NoError(t, env.care.LogFeeding(alice.User.ID, &models.Feeding{
			BabyID: alice.Baby.ID, FeedingType: models.FeedingBottle, BottleAmount: intPtr(100), Timestamp: ts,
		}))
	}

	counts, err := env.care.WeeklyFeedingCounts([]models.Baby{*alice.Baby})
	require.NoError(t, err)
	require.Len(t, counts, FeedingChartDays)
	assert.Equal(t, "2024-07-14", counts[0].Label)
	assert.Equal(t, 1, counts[0].Count)
	assert.Equal(t, "2024-07-18", counts[4].Label)
	assert.Equal(t, 1, counts[4].Count)
	assert.Equal(t, "2024-07-20", counts[6].Label)
	assert.Equal(t, 2, counts[6].Count)

	empty, err := env.care.WeeklyFeedingCounts(nil)
	require.NoError(t, err)
	require.Len(t, empty, FeedingChartDays)
	for _, day := range empty {
		assert.Zero(t, day.Count)
	}
}

func TestAdminOverview(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "")
	bob := env.register(t, "bob", "")
	env.register(t, "carol", alice.Family.Code)

	for i, ts := range []time.Time{time.Now().Add(-time.Hour), time.Now()} {
		require.NoError(t, env.care.LogFeeding(alice.User.ID, &models.Feeding{
			BabyID: alice.Baby.ID, FeedingType: models.FeedingBottle, BottleAmount: intPtr(50 + i), Timestamp: ts,
		}))
	}

	overview, err := env.admin.Overview()
	require.NoError(t, err)
	assert.Len(t, overview.Users, 3)
	assert.Len(t, overview.Families, 2)
	assert.Len(t, overview.Babies, 2)
	assert.Equal(t, 2, overview.MemberCounts[alice.Family.ID])
	assert.Equal(t, 1, overview.MemberCounts[bob.Family.ID])
	require.Len(t, overview.Feedings, 2)
	assert.True(t, overview.Feedings[0].Timestamp.After(overview.Feedings[1].Timestamp))
}
