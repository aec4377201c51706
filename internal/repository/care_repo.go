package repository

import (
	"database/sql"
	"fmt"
	"time"

	"babylog/internal/database"
	"babylog/internal/models"
)

// CareRepository handles the append-only care events: feedings, changings,
// sleepings and notes. Events are never updated or deleted here.
type CareRepository struct {
	db database.DBTX
}

// NewCareRepository creates a new care repository
func NewCareRepository(db database.DBTX) *CareRepository {
	return &CareRepository{db: db}
}

const feedingSelect = `
	SELECT fd.id, fd.baby_id, fd.user_id, fd.timestamp, fd.feeding_type,
	       fd.breast_duration, fd.bottle_amount, fd.solid_amount, fd.recipe_id,
	       b.name, u.username, COALESCE(rc.name, '')
	FROM feedings fd
	INNER JOIN babies b ON fd.baby_id = b.id
	INNER JOIN users u ON fd.user_id = u.id
	LEFT JOIN recipes rc ON fd.recipe_id = rc.id
`

// CreateFeeding inserts a feeding and sets its ID
func (r *CareRepository) CreateFeeding(f *models.Feeding) error {
	query := `
		INSERT INTO feedings (baby_id, user_id, timestamp, feeding_type,
			breast_duration, bottle_amount, solid_amount, recipe_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	f.Timestamp = f.Timestamp.UTC()
	id, err := r.db.ExecReturningID(query,
		f.BabyID, f.UserID, f.Timestamp, string(f.FeedingType),
		nullableInt(f.BreastDuration), nullableInt(f.BottleAmount), nullableInt(f.SolidAmount),
		nullableID(f.RecipeID))
	if err != nil {
		return fmt.Errorf("failed to create feeding: %w", err)
	}
	f.ID = id
	return nil
}

// GetFeedingByID retrieves a feeding by ID
func (r *CareRepository) GetFeedingByID(id int64) (*models.Feeding, error) {
	rows, err := r.queryFeedings(feedingSelect+" WHERE fd.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetFeedingsByBabies retrieves the feedings of the given babies. The result
// is unordered; callers sort it.
func (r *CareRepository) GetFeedingsByBabies(babyIDs []int64) ([]models.Feeding, error) {
	if len(babyIDs) == 0 {
		return nil, nil
	}
	query := feedingSelect + " WHERE fd.baby_id IN (" + placeholders(len(babyIDs)) + ")"
	return r.queryFeedings(query, int64Args(babyIDs)...)
}

// GetFeedingsSince retrieves the feedings of the given babies at or after since
func (r *CareRepository) GetFeedingsSince(babyIDs []int64, since time.Time) ([]models.Feeding, error) {
	if len(babyIDs) == 0 {
		return nil, nil
	}
	query := feedingSelect + " WHERE fd.baby_id IN (" + placeholders(len(babyIDs)) + ") AND fd.timestamp >= ?"
	args := append(int64Args(babyIDs), since.UTC())
	return r.queryFeedings(query, args...)
}

// GetAllFeedings retrieves every feeding, newest first
func (r *CareRepository) GetAllFeedings() ([]models.Feeding, error) {
	return r.queryFeedings(feedingSelect + " ORDER BY fd.timestamp DESC, fd.id DESC")
}

func (r *CareRepository) queryFeedings(query string, args ...interface{}) ([]models.Feeding, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedings: %w", err)
	}
	defer rows.Close()

	var feedings []models.Feeding
	for rows.Next() {
		var f models.Feeding
		var feedingType string
		var breast, bottle, solid, recipeID sql.NullInt64
		if err := rows.Scan(
			&f.ID, &f.BabyID, &f.UserID, &f.Timestamp, &feedingType,
			&breast, &bottle, &solid, &recipeID,
			&f.BabyName, &f.Username, &f.RecipeName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feeding: %w", err)
		}
		f.FeedingType = models.FeedingType(feedingType)
		f.BreastDuration = intFromNull(breast)
		f.BottleAmount = intFromNull(bottle)
		f.SolidAmount = intFromNull(solid)
		f.RecipeID = idFromNull(recipeID)
		feedings = append(feedings, f)
	}
	return feedings, rows.Err()
}

// CreateChanging inserts a nappy change and sets its ID
func (r *CareRepository) CreateChanging(c *models.Changing) error {
	c.Timestamp = c.Timestamp.UTC()
	query := "INSERT INTO changings (baby_id, timestamp, wet_nappy, poop_amount) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, c.BabyID, c.Timestamp, c.WetNappy, nullableInt(c.PoopAmount))
	if err != nil {
		return fmt.Errorf("failed to create changing: %w", err)
	}
	c.ID = id
	return nil
}

// GetChangingByID retrieves a nappy change by ID
func (r *CareRepository) GetChangingByID(id int64) (*models.Changing, error) {
	changings, err := r.queryChangings("SELECT id, baby_id, timestamp, wet_nappy, poop_amount FROM changings WHERE id = ?", id)
	if err != nil || len(changings) == 0 {
		return nil, err
	}
	return &changings[0], nil
}

// GetChangingsByBabies retrieves the nappy changes of the given babies, newest first
func (r *CareRepository) GetChangingsByBabies(babyIDs []int64) ([]models.Changing, error) {
	if len(babyIDs) == 0 {
		return nil, nil
	}
	query := "SELECT id, baby_id, timestamp, wet_nappy, poop_amount FROM changings WHERE baby_id IN (" +
		placeholders(len(babyIDs)) + ") ORDER BY timestamp DESC, id DESC"
	return r.queryChangings(query, int64Args(babyIDs)...)
}

func (r *CareRepository) queryChangings(query string, args ...interface{}) ([]models.Changing, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query changings: %w", err)
	}
	defer rows.Close()

	var changings []models.Changing
	for rows.Next() {
		var c models.Changing
		var poop sql.NullInt64
		if err := rows.Scan(&c.ID, &c.BabyID, &c.Timestamp, &c.WetNappy, &poop); err != nil {
			return nil, fmt.Errorf("failed to scan changing: %w", err)
		}
		c.PoopAmount = intFromNull(poop)
		changings = append(changings, c)
	}
	return changings, rows.Err()
}

// CreateSleeping inserts a sleep period and sets its ID
func (r *CareRepository) CreateSleeping(s *models.Sleeping) error {
	s.StartTimestamp = s.StartTimestamp.UTC()
	var end interface{}
	if s.EndTimestamp != nil {
		utc := s.EndTimestamp.UTC()
		s.EndTimestamp = &utc
		end = utc
	}
	query := "INSERT INTO sleepings (baby_id, start_timestamp, end_timestamp) VALUES (?, ?, ?)"
	id, err := r.db.ExecReturningID(query, s.BabyID, s.StartTimestamp, end)
	if err != nil {
		return fmt.Errorf("failed to create sleeping: %w", err)
	}
	s.ID = id
	return nil
}

// GetSleepingByID retrieves a sleep period by ID
func (r *CareRepository) GetSleepingByID(id int64) (*models.Sleeping, error) {
	sleepings, err := r.querySleepings("SELECT id, baby_id, start_timestamp, end_timestamp FROM sleepings WHERE id = ?", id)
	if err != nil || len(sleepings) == 0 {
		return nil, err
	}
	return &sleepings[0], nil
}

// GetSleepingsByBabies retrieves the sleep periods of the given babies, newest first
func (r *CareRepository) GetSleepingsByBabies(babyIDs []int64) ([]models.Sleeping, error) {
	if len(babyIDs) == 0 {
		return nil, nil
	}
	query := "SELECT id, baby_id, start_timestamp, end_timestamp FROM sleepings WHERE baby_id IN (" +
		placeholders(len(babyIDs)) + ") ORDER BY start_timestamp DESC, id DESC"
	return r.querySleepings(query, int64Args(babyIDs)...)
}

func (r *CareRepository) querySleepings(query string, args ...interface{}) ([]models.Sleeping, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sleepings: %w", err)
	}
	defer rows.Close()

	var sleepings []models.Sleeping
	for rows.Next() {
		var s models.Sleeping
		var end sql.NullTime
		if err := rows.Scan(&s.ID, &s.BabyID, &s.StartTimestamp, &end); err != nil {
			return nil, fmt.Errorf("failed to scan sleeping: %w", err)
		}
		if end.Valid {
			s.EndTimestamp = &end.Time
		}
		sleepings = append(sleepings, s)
	}
	return sleepings, rows.Err()
}

// CreateNote inserts a note and sets its ID
func (r *CareRepository) CreateNote(n *models.Note) error {
	n.Timestamp = n.Timestamp.UTC()
	query := `
		INSERT INTO notes (baby_id, timestamp, extra, feeding_id, changing_id, sleeping_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, n.BabyID, n.Timestamp, n.Extra,
		nullableID(n.FeedingID), nullableID(n.ChangingID), nullableID(n.SleepingID))
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	n.ID = id
	return nil
}

// GetNotesByBabies retrieves the notes of the given babies, newest first
func (r *CareRepository) GetNotesByBabies(babyIDs []int64) ([]models.Note, error) {
	if len(babyIDs) == 0 {
		return nil, nil
	}
	query := "SELECT id, baby_id, timestamp, extra, feeding_id, changing_id, sleeping_id FROM notes WHERE baby_id IN (" +
		placeholders(len(babyIDs)) + ") ORDER BY timestamp DESC, id DESC"
	rows, err := r.db.Query(query, int64Args(babyIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		var feedingID, changingID, sleepingID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.BabyID, &n.Timestamp, &n.Extra, &feedingID, &changingID, &sleepingID); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.FeedingID = idFromNull(feedingID)
		n.ChangingID = idFromNull(changingID)
		n.SleepingID = idFromNull(sleepingID)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
