package service

import (
	"fmt"

	"babylog/internal/models"
	"babylog/internal/repository"
)

// AdminOverview is the unscoped listing shown to administrators
type AdminOverview struct {
	Users    []models.User
	Families []models.Family
	Babies   []models.Baby
	Feedings []models.Feeding

	// MemberCounts maps family id to the number of members
	MemberCounts map[int64]int
}

// AdminService reads across all families. Callers must check the admin flag.
type AdminService struct {
	userRepo   *repository.UserRepository
	familyRepo *repository.FamilyRepository
	babyRepo   *repository.BabyRepository
	careRepo   *repository.CareRepository
}

// NewAdminService creates a new admin service
func NewAdminService(userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository, babyRepo *repository.BabyRepository, careRepo *repository.CareRepository) *AdminService {
	return &AdminService{
		userRepo:   userRepo,
		familyRepo: familyRepo,
		babyRepo:   babyRepo,
		careRepo:   careRepo,
	}
}

// Overview lists every user, family and baby, and all feedings newest first
func (s *AdminService) Overview() (*AdminOverview, error) {
	users, err := s.userRepo.GetAllUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	families, err := s.familyRepo.GetAllFamilies()
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	memberCounts := make(map[int64]int, len(families))
	for _, f := range families {
		n, err := s.familyRepo.CountMemberships(f.ID)
		if err != nil {
			return nil, err
		}
		memberCounts[f.ID] = n
	}
	babies, err := s.babyRepo.GetAllBabies()
	if err != nil {
		return nil, fmt.Errorf("failed to list babies: %w", err)
	}
	feedings, err := s.careRepo.GetAllFeedings()
	if err != nil {
		return nil, fmt.Errorf("failed to list feedings: %w", err)
	}

	return &AdminOverview{
		Users:    users,
		Families: families,
		Babies:   babies,
		Feedings: feedings,

		MemberCounts: memberCounts,
	}, nil
}
