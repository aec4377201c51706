package repository

import (
	"database/sql"
	"fmt"
	"time"

	"babylog/internal/database"
	"babylog/internal/models"
)

// BabyRepository handles database operations for babies and recipes,
// both of which belong to a family
type BabyRepository struct {
	db database.DBTX
}

// NewBabyRepository creates a new baby repository
func NewBabyRepository(db database.DBTX) *BabyRepository {
	return &BabyRepository{db: db}
}

// CreateBaby adds a baby to a family. The name may be empty.
func (r *BabyRepository) CreateBaby(familyID int64, name string, dateOfBirth *time.Time) (*models.Baby, error) {
	now := time.Now().UTC()
	var dob interface{}
	if dateOfBirth != nil {
		dob = dateOfBirth.UTC()
	}

	query := "INSERT INTO babies (family_id, name, date_of_birth, created_at) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, familyID, name, dob, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create baby: %w", err)
	}

	return &models.Baby{
		ID:          id,
		FamilyID:    familyID,
		Name:        name,
		DateOfBirth: dateOfBirth,
		CreatedAt:   now,
	}, nil
}

func scanBaby(row interface{ Scan(...interface{}) error }) (*models.Baby, error) {
	baby := &models.Baby{}
	var dob sql.NullTime
	if err := row.Scan(&baby.ID, &baby.FamilyID, &baby.Name, &dob, &baby.CreatedAt); err != nil {
		return nil, err
	}
	if dob.Valid {
		baby.DateOfBirth = &dob.Time
	}
	return baby, nil
}

// GetBabyByID retrieves a baby by ID
func (r *BabyRepository) GetBabyByID(babyID int64) (*models.Baby, error) {
	query := "SELECT id, family_id, name, date_of_birth, created_at FROM babies WHERE id = ?"
	baby, err := scanBaby(r.db.QueryRow(query, babyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get baby: %w", err)
	}
	return baby, nil
}

// GetFamilyBabies retrieves the babies of a family in creation order
func (r *BabyRepository) GetFamilyBabies(familyID int64) ([]models.Baby, error) {
	query := "SELECT id, family_id, name, date_of_birth, created_at FROM babies WHERE family_id = ? ORDER BY id"
	return r.queryBabies(query, familyID)
}

// GetAllBabies retrieves every baby
func (r *BabyRepository) GetAllBabies() ([]models.Baby, error) {
	return r.queryBabies("SELECT id, family_id, name, date_of_birth, created_at FROM babies ORDER BY id")
}

func (r *BabyRepository) queryBabies(query string, args ...interface{}) ([]models.Baby, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query babies: %w", err)
	}
	defer rows.Close()

	var babies []models.Baby
	for rows.Next() {
		baby, err := scanBaby(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan baby: %w", err)
		}
		babies = append(babies, *baby)
	}
	return babies, rows.Err()
}

// CreateRecipe adds a recipe to a family
func (r *BabyRepository) CreateRecipe(recipe *models.Recipe) error {
	recipe.CreatedAt = time.Now().UTC()
	query := `
		INSERT INTO recipes (family_id, name, ingredients, instructions, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		recipe.FamilyID, recipe.Name, recipe.Ingredients, recipe.Instructions,
		nullableInt(recipe.Amount), recipe.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	recipe.ID = id
	return nil
}

func scanRecipe(row interface{ Scan(...interface{}) error }) (*models.Recipe, error) {
	recipe := &models.Recipe{}
	var amount sql.NullInt64
	if err := row.Scan(&recipe.ID, &recipe.FamilyID, &recipe.Name, &recipe.Ingredients,
		&recipe.Instructions, &amount, &recipe.CreatedAt); err != nil {
		return nil, err
	}
	recipe.Amount = intFromNull(amount)
	return recipe, nil
}

const recipeColumns = "id, family_id, name, ingredients, instructions, amount, created_at"

// GetRecipeByID retrieves a recipe by ID
func (r *BabyRepository) GetRecipeByID(recipeID int64) (*models.Recipe, error) {
	recipe, err := scanRecipe(r.db.QueryRow("SELECT "+recipeColumns+" FROM recipes WHERE id = ?", recipeID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return recipe, nil
}

// GetFamilyRecipes retrieves the recipes of a family sorted by name
func (r *BabyRepository) GetFamilyRecipes(familyID int64) ([]models.Recipe, error) {
	rows, err := r.db.Query("SELECT "+recipeColumns+" FROM recipes WHERE family_id = ? ORDER BY name, id", familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	var recipes []models.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, *recipe)
	}
	return recipes, rows.Err()
}
