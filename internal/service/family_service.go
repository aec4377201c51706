package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"babylog/internal/credentials"
	"babylog/internal/database"
	"babylog/internal/metrics"
	"babylog/internal/models"
	"babylog/internal/repository"
	"babylog/internal/validation"
)

var (
	ErrFamilyNotFound    = errors.New("family not found")
	ErrBabyNotFound      = errors.New("baby not found")
	ErrNotFamilyMember   = errors.New("user is not a member of this family")
	ErrInvalidFamilyCode = errors.New("invalid family code")
	ErrAlreadyMember     = errors.New("already a member of this family")
)

// maxCodeAttempts bounds join-code regeneration after a collision
const maxCodeAttempts = 3

// FamilyData is the content scoped to the active family
type FamilyData struct {
	Babies  []models.Baby
	Recipes []models.Recipe
}

// FamilyService handles families, memberships, babies and recipes
type FamilyService struct {
	db         *database.DB
	familyRepo *repository.FamilyRepository
	babyRepo   *repository.BabyRepository
	metrics    *metrics.Metrics
}

// NewFamilyService creates a new family service. m may be nil.
func NewFamilyService(db *database.DB, familyRepo *repository.FamilyRepository, babyRepo *repository.BabyRepository, m *metrics.Metrics) *FamilyService {
	return &FamilyService{
		db:         db,
		familyRepo: familyRepo,
		babyRepo:   babyRepo,
		metrics:    m,
	}
}

// ResolveActiveFamily returns all families of the user in join order and the
// active one: the requested family if the user belongs to it, otherwise the
// first. A user without families gets an empty slice and a nil family.
func (s *FamilyService) ResolveActiveFamily(userID int64, requestedID *int64) ([]models.Family, *models.Family, error) {
	families, err := s.familyRepo.GetUserFamilies(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user families: %w", err)
	}
	if len(families) == 0 {
		return []models.Family{}, nil, nil
	}

	if requestedID != nil {
		if family := models.FindFamily(families, *requestedID); family != nil {
			return families, family, nil
		}
	}
	return families, &families[0], nil
}

// GetFamilyData loads the babies and/or recipes of family. A nil family
// yields empty data.
func (s *FamilyService) GetFamilyData(family *models.Family, fetchBabies, fetchRecipes bool) (*FamilyData, error) {
	data := &FamilyData{Babies: []models.Baby{}, Recipes: []models.Recipe{}}
	if family == nil {
		return data, nil
	}

	if fetchBabies {
		babies, err := s.babyRepo.GetFamilyBabies(family.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get babies: %w", err)
		}
		if babies != nil {
			data.Babies = babies
		}
	}
	if fetchRecipes {
		recipes, err := s.babyRepo.GetFamilyRecipes(family.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get recipes: %w", err)
		}
		if recipes != nil {
			data.Recipes = recipes
		}
	}
	return data, nil
}

// IsMember reports whether the user belongs to the family
func (s *FamilyService) IsMember(userID, familyID int64) (bool, error) {
	isMember, err := s.familyRepo.IsFamilyMember(userID, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return isMember, nil
}

// VerifyFamilyAccess returns ErrNotFamilyMember unless the user belongs to the family
func (s *FamilyService) VerifyFamilyAccess(userID, familyID int64) error {
	isMember, err := s.IsMember(userID, familyID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotFamilyMember
	}
	return nil
}

// JoinFamilyByCode adds the user to the family holding code. An unknown code
// returns ErrInvalidFamilyCode and an existing membership ErrAlreadyMember;
// neither changes the membership table.
func (s *FamilyService) JoinFamilyByCode(userID int64, code string) (*models.Family, error) {
	family, err := lookupFamilyCode(s.familyRepo, code)
	if err != nil {
		return nil, err
	}

	if _, err := s.familyRepo.AddMember(userID, family.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicateMembership) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to join family: %w", err)
	}

	s.metrics.FamilyJoined()
	return family, nil
}

func lookupFamilyCode(familyRepo *repository.FamilyRepository, code string) (*models.Family, error) {
	code = strings.TrimSpace(code)
	if !credentials.IsJoinCode(code) {
		return nil, ErrInvalidFamilyCode
	}
	family, err := familyRepo.GetFamilyByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up family code: %w", err)
	}
	if family == nil {
		return nil, ErrInvalidFamilyCode
	}
	return family, nil
}

// CreateFamily creates a family with a fresh join code and makes the user
// its first member
func (s *FamilyService) CreateFamily(userID int64, name string) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateOptionalName("family_name", name); err != nil {
		return nil, err
	}

	var family *models.Family
	err := s.db.WithTx(func(tx *database.Tx) error {
		var err error
		family, err = createFamilyWithCode(tx, name)
		if err != nil {
			return err
		}
		if _, err := repository.NewFamilyRepository(tx).AddMember(userID, family.ID); err != nil {
			return fmt.Errorf("failed to add family member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.FamilyCreated()
	return family, nil
}

// createFamilyWithCode inserts a family, regenerating the join code when it
// collides with an existing one
func createFamilyWithCode(tx *database.Tx, name string) (*models.Family, error) {
	familyRepo := repository.NewFamilyRepository(tx)

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := credentials.GenerateJoinCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate family code: %w", err)
		}

		var family *models.Family
		err = tx.Savepoint("create_family", func() error {
			var err error
			family, err = familyRepo.CreateFamily(name, code)
			return err
		})
		if err == nil {
			return family, nil
		}
		if !errors.Is(err, repository.ErrDuplicateFamilyCode) {
			return nil, fmt.Errorf("failed to create family: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to create family: no unique code after %d attempts", maxCodeAttempts)
}

// GetFamilyForUser returns a family the user belongs to. Families the user
// is not in report ErrNotFamilyMember whether or not they exist.
func (s *FamilyService) GetFamilyForUser(userID, familyID int64) (*models.Family, error) {
	if err := s.VerifyFamilyAccess(userID, familyID); err != nil {
		return nil, err
	}
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// GetFamilyMembers retrieves the users of a family in join order
func (s *FamilyService) GetFamilyMembers(familyID int64) ([]models.User, error) {
	users, err := s.familyRepo.GetFamilyMembers(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	return users, nil
}

// AddBaby adds a baby to a family the user belongs to. A nil date of birth
// defaults to today.
func (s *FamilyService) AddBaby(userID, familyID int64, name string, dateOfBirth *time.Time) (*models.Baby, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateOptionalName("baby_name", name); err != nil {
		return nil, err
	}
	if err := s.VerifyFamilyAccess(userID, familyID); err != nil {
		return nil, err
	}

	if dateOfBirth == nil {
		today := truncateToDay(time.Now())
		dateOfBirth = &today
	}

	baby, err := s.babyRepo.CreateBaby(familyID, name, dateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("failed to add baby: %w", err)
	}
	return baby, nil
}

// GetBabyForUser returns a baby whose family the user belongs to
func (s *FamilyService) GetBabyForUser(userID, babyID int64) (*models.Baby, error) {
	baby, err := s.babyRepo.GetBabyByID(babyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get baby: %w", err)
	}
	if baby == nil {
		return nil, ErrBabyNotFound
	}
	if err := s.VerifyFamilyAccess(userID, baby.FamilyID); err != nil {
		return nil, err
	}
	return baby, nil
}

// AddRecipe stores a recipe for a family the user belongs to
func (s *FamilyService) AddRecipe(userID int64, recipe *models.Recipe) error {
	recipe.Name = strings.TrimSpace(recipe.Name)
	if err := validation.ValidateRecipe(recipe); err != nil {
		return err
	}
	if err := s.VerifyFamilyAccess(userID, recipe.FamilyID); err != nil {
		return err
	}
	if err := s.babyRepo.CreateRecipe(recipe); err != nil {
		return fmt.Errorf("failed to add recipe: %w", err)
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
