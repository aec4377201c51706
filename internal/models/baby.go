package models

import "time"

// Baby is the subject of all logged care events and belongs to one family
type Baby struct {
	ID          int64
	FamilyID    int64
	Name        string
	DateOfBirth *time.Time
	CreatedAt   time.Time
}

// DisplayName returns the baby's name, or a placeholder for unnamed babies
func (b *Baby) DisplayName() string {
	if b.Name == "" {
		return "Unnamed baby"
	}
	return b.Name
}

// BabyIDs extracts the ids of babies, preserving order
func BabyIDs(babies []Baby) []int64 {
	ids := make([]int64, 0, len(babies))
	for _, b := range babies {
		ids = append(ids, b.ID)
	}
	return ids
}

// Recipe is a family's bottle or solids recipe, optionally referenced by a feeding
type Recipe struct {
	ID           int64
	FamilyID     int64
	Name         string
	Ingredients  string
	Instructions string
	Amount       *int
	CreatedAt    time.Time
}
