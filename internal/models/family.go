package models

import "time"

// Family is a household grouping users and babies; it is the unit of data isolation
type Family struct {
	ID        int64
	Name      string
	Code      string
	CreatedAt time.Time
}

// Membership links a user to a family (users_families row)
type Membership struct {
	ID       int64
	UserID   int64
	FamilyID int64
	JoinedAt time.Time
}

// FindFamily returns the family with the given id from families, or nil
func FindFamily(families []Family, id int64) *Family {
	for i := range families {
		if families[i].ID == id {
			return &families[i]
		}
	}
	return nil
}
