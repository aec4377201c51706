package service

import (
	"fmt"
	"time"

	"babylog/internal/metrics"
	"babylog/internal/models"
	"babylog/internal/repository"
	"babylog/internal/validation"
)

// FeedingChartDays is the length of the home page feeding chart
const FeedingChartDays = 7

// CareService logs and lists care events. Events are append-only: there is
// no update or delete path.
type CareService struct {
	families *FamilyService
	babyRepo *repository.BabyRepository
	careRepo *repository.CareRepository
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewCareService creates a new care service. m may be nil.
func NewCareService(families *FamilyService, babyRepo *repository.BabyRepository, careRepo *repository.CareRepository, m *metrics.Metrics) *CareService {
	return &CareService{
		families: families,
		babyRepo: babyRepo,
		careRepo: careRepo,
		metrics:  m,
		now:      time.Now,
	}
}

// LogFeeding records a feeding by userID for a baby in one of the user's
// families. A zero timestamp means now.
func (s *CareService) LogFeeding(userID int64, f *models.Feeding) error {
	if f.Timestamp.IsZero() {
		f.Timestamp = s.now()
	}
	if err := validation.ValidateFeeding(f); err != nil {
		return err
	}

	baby, err := s.families.GetBabyForUser(userID, f.BabyID)
	if err != nil {
		return err
	}

	if f.RecipeID != nil {
		recipe, err := s.babyRepo.GetRecipeByID(*f.RecipeID)
		if err != nil {
			return fmt.Errorf("failed to get recipe: %w", err)
		}
		if recipe == nil || recipe.FamilyID != baby.FamilyID {
			return &validation.ValidationError{Field: "recipe_id", Message: "Please choose one of your family's recipes"}
		}
	}

	f.UserID = userID
	if err := s.careRepo.CreateFeeding(f); err != nil {
		return err
	}
	s.metrics.EventLogged("feeding")
	return nil
}

// LogChanging records a nappy change
func (s *CareService) LogChanging(userID int64, c *models.Changing) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = s.now()
	}
	if err := validation.ValidateChanging(c); err != nil {
		return err
	}
	if _, err := s.families.GetBabyForUser(userID, c.BabyID); err != nil {
		return err
	}

	if err := s.careRepo.CreateChanging(c); err != nil {
		return err
	}
	s.metrics.EventLogged("changing")
	return nil
}

// LogSleeping records a sleep period; the end may be left open
func (s *CareService) LogSleeping(userID int64, sl *models.Sleeping) error {
	if sl.StartTimestamp.IsZero() {
		sl.StartTimestamp = s.now()
	}
	if err := validation.ValidateSleeping(sl); err != nil {
		return err
	}
	if _, err := s.families.GetBabyForUser(userID, sl.BabyID); err != nil {
		return err
	}

	if err := s.careRepo.CreateSleeping(sl); err != nil {
		return err
	}
	s.metrics.EventLogged("sleeping")
	return nil
}

// LogNote records a note. A linked event must belong to the same baby.
func (s *CareService) LogNote(userID int64, n *models.Note) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now()
	}
	if err := validation.ValidateNote(n); err != nil {
		return err
	}
	if _, err := s.families.GetBabyForUser(userID, n.BabyID); err != nil {
		return err
	}
	if err := s.checkNoteLink(n); err != nil {
		return err
	}

	if err := s.careRepo.CreateNote(n); err != nil {
		return err
	}
	s.metrics.EventLogged("note")
	return nil
}

func (s *CareService) checkNoteLink(n *models.Note) error {
	var linkedBaby int64
	var found bool

	switch {
	case n.FeedingID != nil:
		f, err := s.careRepo.GetFeedingByID(*n.FeedingID)
		if err != nil {
			return err
		}
		if f != nil {
			linkedBaby, found = f.BabyID, true
		}
	case n.ChangingID != nil:
		c, err := s.careRepo.GetChangingByID(*n.ChangingID)
		if err != nil {
			return err
		}
		if c != nil {
			linkedBaby, found = c.BabyID, true
		}
	case n.SleepingID != nil:
		sl, err := s.careRepo.GetSleepingByID(*n.SleepingID)
		if err != nil {
			return err
		}
		if sl != nil {
			linkedBaby, found = sl.BabyID, true
		}
	default:
		return nil
	}

	if !found || linkedBaby != n.BabyID {
		return &validation.ValidationError{Field: "link", Message: "The linked event must belong to the same baby"}
	}
	return nil
}

// ListFeedings merges the feedings of babies, newest first
func (s *CareService) ListFeedings(babies []models.Baby) ([]models.Feeding, error) {
	feedings, err := s.careRepo.GetFeedingsByBabies(models.BabyIDs(babies))
	if err != nil {
		return nil, err
	}
	if feedings == nil {
		return []models.Feeding{}, nil
	}
	models.SortFeedingsByTimeDesc(feedings)
	return feedings, nil
}

// ListChangings returns the nappy changes of babies, newest first
func (s *CareService) ListChangings(babies []models.Baby) ([]models.Changing, error) {
	return s.careRepo.GetChangingsByBabies(models.BabyIDs(babies))
}

// ListSleepings returns the sleep periods of babies, newest first
func (s *CareService) ListSleepings(babies []models.Baby) ([]models.Sleeping, error) {
	return s.careRepo.GetSleepingsByBabies(models.BabyIDs(babies))
}

// ListNotes returns the notes of babies, newest first
func (s *CareService) ListNotes(babies []models.Baby) ([]models.Note, error) {
	return s.careRepo.GetNotesByBabies(models.BabyIDs(babies))
}

// WeeklyFeedingCounts counts the feedings of babies on each of the last
// FeedingChartDays days including today, oldest first
func (s *CareService) WeeklyFeedingCounts(babies []models.Baby) ([]models.DailyCount, error) {
	now := s.now()
	since := truncateToDay(now).AddDate(0, 0, -(FeedingChartDays - 1))

	feedings, err := s.careRepo.GetFeedingsSince(models.BabyIDs(babies), since)
	if err != nil {
		return nil, err
	}
	return models.CountFeedingsPerDay(feedings, now, FeedingChartDays), nil
}
