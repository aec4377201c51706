package repository

import (
	"database/sql"
	"fmt"
	"time"

	"babylog/internal/database"
	"babylog/internal/models"
)

// FamilyRepository handles database operations for families and memberships
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily inserts a family with the given join code. A code collision
// is reported as ErrDuplicateFamilyCode so the caller can retry.
func (r *FamilyRepository) CreateFamily(name, code string) (*models.Family, error) {
	now := time.Now().UTC()
	query := "INSERT INTO families (name, code, created_at) VALUES (?, ?, ?)"
	familyID, err := r.db.ExecReturningID(query, name, code, now)
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return nil, ErrDuplicateFamilyCode
		}
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	return &models.Family{
		ID:        familyID,
		Name:      name,
		Code:      code,
		CreatedAt: now,
	}, nil
}

func (r *FamilyRepository) getFamily(where string, arg interface{}) (*models.Family, error) {
	query := "SELECT id, name, code, created_at FROM families WHERE " + where
	family := &models.Family{}
	err := r.db.QueryRow(query, arg).Scan(
		&family.ID,
		&family.Name,
		&family.Code,
		&family.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	return r.getFamily("id = ?", familyID)
}

// GetFamilyByCode retrieves a family by its join code
func (r *FamilyRepository) GetFamilyByCode(code string) (*models.Family, error) {
	return r.getFamily("code = ?", code)
}

// GetUserFamilies retrieves all families a user belongs to, in the order
// the user joined them
func (r *FamilyRepository) GetUserFamilies(userID int64) ([]models.Family, error) {
	query := `
		SELECT f.id, f.name, f.code, f.created_at
		FROM families f
		INNER JOIN users_families uf ON f.id = uf.family_id
		WHERE uf.user_id = ?
		ORDER BY uf.id ASC
	`
	return r.queryFamilies(query, userID)
}

// GetAllFamilies retrieves every family
func (r *FamilyRepository) GetAllFamilies() ([]models.Family, error) {
	return r.queryFamilies("SELECT id, name, code, created_at FROM families ORDER BY id")
}

func (r *FamilyRepository) queryFamilies(query string, args ...interface{}) ([]models.Family, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var family models.Family
		if err := rows.Scan(&family.ID, &family.Name, &family.Code, &family.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}
	return families, rows.Err()
}

// AddMember links a user to a family in a single insert. An existing link is
// reported as ErrDuplicateMembership and leaves the table unchanged.
func (r *FamilyRepository) AddMember(userID, familyID int64) (*models.Membership, error) {
	now := time.Now().UTC()
	query := "INSERT INTO users_families (user_id, family_id, joined_at) VALUES (?, ?, ?)"
	id, err := r.db.ExecReturningID(query, userID, familyID, now)
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return nil, ErrDuplicateMembership
		}
		return nil, fmt.Errorf("failed to add family member: %w", err)
	}

	return &models.Membership{
		ID:       id,
		UserID:   userID,
		FamilyID: familyID,
		JoinedAt: now,
	}, nil
}

// IsFamilyMember checks if a user is a member of a family
func (r *FamilyRepository) IsFamilyMember(userID, familyID int64) (bool, error) {
	query := "SELECT COUNT(*) FROM users_families WHERE user_id = ? AND family_id = ?"
	var count int
	if err := r.db.QueryRow(query, userID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family membership: %w", err)
	}
	return count > 0, nil
}

// CountMemberships returns the number of membership rows for a family
func (r *FamilyRepository) CountMemberships(familyID int64) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM users_families WHERE family_id = ?", familyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count family members: %w", err)
	}
	return count, nil
}

// GetFamilyMembers retrieves the users of a family in join order
func (r *FamilyRepository) GetFamilyMembers(familyID int64) ([]models.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.is_admin, u.created_at
		FROM users u
		INNER JOIN users_families uf ON u.id = uf.user_id
		WHERE uf.family_id = ?
		ORDER BY uf.id ASC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}
