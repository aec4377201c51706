package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"babylog/internal/database"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure. Sessions
// are not exported.
type BackupData struct {
	Version      string             `json:"version"`
	ExportedAt   time.Time          `json:"exported_at"`
	DatabaseType string             `json:"database_type"`
	Users        []UserBackup       `json:"users"`
	Families     []FamilyBackup     `json:"families"`
	Memberships  []MembershipBackup `json:"memberships"`
	Babies       []BabyBackup       `json:"babies"`
	Recipes      []RecipeBackup     `json:"recipes"`
	Feedings     []FeedingBackup    `json:"feedings"`
	Changings    []ChangingBackup   `json:"changings"`
	Sleepings    []SleepingBackup   `json:"sleepings"`
	Notes        []NoteBackup       `json:"notes"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipBackup represents a users_families row
type MembershipBackup struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	FamilyID int64     `json:"family_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// BabyBackup represents a baby record for backup
type BabyBackup struct {
	ID          int64      `json:"id"`
	FamilyID    int64      `json:"family_id"`
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RecipeBackup represents a recipe record for backup
type RecipeBackup struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	Name         string    `json:"name"`
	Ingredients  string    `json:"ingredients"`
	Instructions string    `json:"instructions"`
	Amount       *int64    `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// FeedingBackup represents a feeding record for backup
type FeedingBackup struct {
	ID             int64     `json:"id"`
	BabyID         int64     `json:"baby_id"`
	UserID         int64     `json:"user_id"`
	Timestamp      time.Time `json:"timestamp"`
	FeedingType    string    `json:"feeding_type"`
	BreastDuration *int64    `json:"breast_duration"`
	BottleAmount   *int64    `json:"bottle_amount"`
	SolidAmount    *int64    `json:"solid_amount"`
	RecipeID       *int64    `json:"recipe_id"`
}

// ChangingBackup represents a nappy change for backup
type ChangingBackup struct {
	ID         int64     `json:"id"`
	BabyID     int64     `json:"baby_id"`
	Timestamp  time.Time `json:"timestamp"`
	WetNappy   bool      `json:"wet_nappy"`
	PoopAmount *int64    `json:"poop_amount"`
}

// SleepingBackup represents a sleep period for backup
type SleepingBackup struct {
	ID             int64      `json:"id"`
	BabyID         int64      `json:"baby_id"`
	StartTimestamp time.Time  `json:"start_timestamp"`
	EndTimestamp   *time.Time `json:"end_timestamp"`
}

// NoteBackup represents a note for backup
type NoteBackup struct {
	ID         int64     `json:"id"`
	BabyID     int64     `json:"baby_id"`
	Timestamp  time.Time `json:"timestamp"`
	Extra      string    `json:"extra"`
	FeedingID  *int64    `json:"feeding_id"`
	ChangingID *int64    `json:"changing_id"`
	SleepingID *int64    `json:"sleeping_id"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) (*BackupData, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(file)
	if err != nil {
		return nil, err
	}
	log.Printf("Database exported successfully to %s", outputPath)
	return backup, nil
}

// ExportToWriter writes a complete backup as indented JSON to w
func (s *BackupService) ExportToWriter(w io.Writer) (*BackupData, error) {
	backup, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

// Snapshot reads every exported table into memory
func (s *BackupService) Snapshot() (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	steps := []struct {
		table string
		fn    func(*BackupData) error
	}{
		{"users", s.exportUsers},
		{"families", s.exportFamilies},
		{"memberships", s.exportMemberships},
		{"babies", s.exportBabies},
		{"recipes", s.exportRecipes},
		{"feedings", s.exportFeedings},
		{"changings", s.exportChangings},
		{"sleepings", s.exportSleepings},
		{"notes", s.exportNotes},
	}
	for _, step := range steps {
		if err := step.fn(backup); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", step.table, err)
		}
	}

	log.Printf("Exported: %d users, %d families, %d babies, %d feedings, %d changings, %d sleepings, %d notes",
		len(backup.Users), len(backup.Families), len(backup.Babies),
		len(backup.Feedings), len(backup.Changings), len(backup.Sleepings), len(backup.Notes))
	return backup, nil
}

// Import restores a backup file into an empty database
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a backup in a single transaction, preserving ids
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	err := s.db.WithTx(func(tx *database.Tx) error {
		// Parents before children
		steps := []struct {
			table string
			fn    func(*database.Tx, *BackupData) error
		}{
			{"users", importUsers},
			{"families", importFamilies},
			{"memberships", importMemberships},
			{"babies", importBabies},
			{"recipes", importRecipes},
			{"feedings", importFeedings},
			{"changings", importChangings},
			{"sleepings", importSleepings},
			{"notes", importNotes},
		}
		for _, step := range steps {
			if err := step.fn(tx, &backup); err != nil {
				return fmt.Errorf("failed to import %s: %w", step.table, err)
			}
		}
		return resetSequences(tx)
	})
	if err != nil {
		return err
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, username, email, password_hash, is_admin, created_at FROM users ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, name, code, created_at FROM families ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.Code, &f.CreatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	return rows.Err()
}

func (s *BackupService) exportMemberships(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, user_id, family_id, joined_at FROM users_families ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m MembershipBackup
		if err := rows.Scan(&m.ID, &m.UserID, &m.FamilyID, &m.JoinedAt); err != nil {
			return err
		}
		backup.Memberships = append(backup.Memberships, m)
	}
	return rows.Err()
}

func (s *BackupService) exportBabies(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, family_id, name, date_of_birth, created_at FROM babies ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var b BabyBackup
		var dob sql.NullTime
		if err := rows.Scan(&b.ID, &b.FamilyID, &b.Name, &dob, &b.CreatedAt); err != nil {
			return err
		}
		b.DateOfBirth = timeFromNull(dob)
		backup.Babies = append(backup.Babies, b)
	}
	return rows.Err()
}

func (s *BackupService) exportRecipes(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, family_id, name, ingredients, instructions, amount, created_at FROM recipes ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r RecipeBackup
		var amount sql.NullInt64
		if err := rows.Scan(&r.ID, &r.FamilyID, &r.Name, &r.Ingredients, &r.Instructions, &amount, &r.CreatedAt); err != nil {
			return err
		}
		r.Amount = int64FromNull(amount)
		backup.Recipes = append(backup.Recipes, r)
	}
	return rows.Err()
}

func (s *BackupService) exportFeedings(backup *BackupData) error {
	query := `SELECT id, baby_id, user_id, timestamp, feeding_type, breast_duration, bottle_amount, solid_amount, recipe_id
		FROM feedings ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FeedingBackup
		var breast, bottle, solid, recipeID sql.NullInt64
		if err := rows.Scan(&f.ID, &f.BabyID, &f.UserID, &f.Timestamp, &f.FeedingType, &breast, &bottle, &solid, &recipeID); err != nil {
			return err
		}
		f.BreastDuration = int64FromNull(breast)
		f.BottleAmount = int64FromNull(bottle)
		f.SolidAmount = int64FromNull(solid)
		f.RecipeID = int64FromNull(recipeID)
		backup.Feedings = append(backup.Feedings, f)
	}
	return rows.Err()
}

func (s *BackupService) exportChangings(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, baby_id, timestamp, wet_nappy, poop_amount FROM changings ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChangingBackup
		var poop sql.NullInt64
		if err := rows.Scan(&c.ID, &c.BabyID, &c.Timestamp, &c.WetNappy, &poop); err != nil {
			return err
		}
		c.PoopAmount = int64FromNull(poop)
		backup.Changings = append(backup.Changings, c)
	}
	return rows.Err()
}

func (s *BackupService) exportSleepings(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, baby_id, start_timestamp, end_timestamp FROM sleepings ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sl SleepingBackup
		var end sql.NullTime
		if err := rows.Scan(&sl.ID, &sl.BabyID, &sl.StartTimestamp, &end); err != nil {
			return err
		}
		sl.EndTimestamp = timeFromNull(end)
		backup.Sleepings = append(backup.Sleepings, sl)
	}
	return rows.Err()
}

func (s *BackupService) exportNotes(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, baby_id, timestamp, extra, feeding_id, changing_id, sleeping_id FROM notes ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var n NoteBackup
		var feedingID, changingID, sleepingID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.BabyID, &n.Timestamp, &n.Extra, &feedingID, &changingID, &sleepingID); err != nil {
			return err
		}
		n.FeedingID = int64FromNull(feedingID)
		n.ChangingID = int64FromNull(changingID)
		n.SleepingID = int64FromNull(sleepingID)
		backup.Notes = append(backup.Notes, n)
	}
	return rows.Err()
}

func importUsers(tx *database.Tx, backup *BackupData) error {
	for _, u := range backup.Users {
		query := "INSERT INTO users (id, username, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importFamilies(tx *database.Tx, backup *BackupData) error {
	for _, f := range backup.Families {
		query := "INSERT INTO families (id, name, code, created_at) VALUES (?, ?, ?, ?)"
		if _, err := tx.Exec(query, f.ID, f.Name, f.Code, f.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("family %d: %w", f.ID, err)
		}
	}
	return nil
}

func importMemberships(tx *database.Tx, backup *BackupData) error {
	for _, m := range backup.Memberships {
		query := "INSERT INTO users_families (id, user_id, family_id, joined_at) VALUES (?, ?, ?, ?)"
		if _, err := tx.Exec(query, m.ID, m.UserID, m.FamilyID, m.JoinedAt.UTC()); err != nil {
			return fmt.Errorf("membership %d: %w", m.ID, err)
		}
	}
	return nil
}

func importBabies(tx *database.Tx, backup *BackupData) error {
	for _, b := range backup.Babies {
		query := "INSERT INTO babies (id, family_id, name, date_of_birth, created_at) VALUES (?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, b.ID, b.FamilyID, b.Name, nullTime(b.DateOfBirth), b.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("baby %d: %w", b.ID, err)
		}
	}
	return nil
}

func importRecipes(tx *database.Tx, backup *BackupData) error {
	for _, r := range backup.Recipes {
		query := "INSERT INTO recipes (id, family_id, name, ingredients, instructions, amount, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, r.ID, r.FamilyID, r.Name, r.Ingredients, r.Instructions, nullInt64(r.Amount), r.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("recipe %d: %w", r.ID, err)
		}
	}
	return nil
}

func importFeedings(tx *database.Tx, backup *BackupData) error {
	for _, f := range backup.Feedings {
		query := `INSERT INTO feedings (id, baby_id, user_id, timestamp, feeding_type, breast_duration, bottle_amount, solid_amount, recipe_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.Exec(query, f.ID, f.BabyID, f.UserID, f.Timestamp.UTC(), f.FeedingType,
			nullInt64(f.BreastDuration), nullInt64(f.BottleAmount), nullInt64(f.SolidAmount), nullInt64(f.RecipeID))
		if err != nil {
			return fmt.Errorf("feeding %d: %w", f.ID, err)
		}
	}
	return nil
}

func importChangings(tx *database.Tx, backup *BackupData) error {
	for _, c := range backup.Changings {
		query := "INSERT INTO changings (id, baby_id, timestamp, wet_nappy, poop_amount) VALUES (?, ?, ?, ?, ?)"
		if _, err := tx.Exec(query, c.ID, c.BabyID, c.Timestamp.UTC(), c.WetNappy, nullInt64(c.PoopAmount)); err != nil {
			return fmt.Errorf("changing %d: %w", c.ID, err)
		}
	}
	return nil
}

func importSleepings(tx *database.Tx, backup *BackupData) error {
	for _, sl := range backup.Sleepings {
		query := "INSERT INTO sleepings (id, baby_id, start_timestamp, end_timestamp) VALUES (?, ?, ?, ?)"
		if _, err := tx.Exec(query, sl.ID, sl.BabyID, sl.StartTimestamp.UTC(), nullTime(sl.EndTimestamp)); err != nil {
			return fmt.Errorf("sleeping %d: %w", sl.ID, err)
		}
	}
	return nil
}

func importNotes(tx *database.Tx, backup *BackupData) error {
	for _, n := range backup.Notes {
		query := "INSERT INTO notes (id, baby_id, timestamp, extra, feeding_id, changing_id, sleeping_id) VALUES (?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.Exec(query, n.ID, n.BabyID, n.Timestamp.UTC(), n.Extra,
			nullInt64(n.FeedingID), nullInt64(n.ChangingID), nullInt64(n.SleepingID))
		if err != nil {
			return fmt.Errorf("note %d: %w", n.ID, err)
		}
	}
	return nil
}

// resetSequences moves PostgreSQL serial sequences past the imported ids.
// SQLite and MySQL continue from the highest id on their own.
func resetSequences(tx *database.Tx) error {
	if tx.GetDialect().DriverName() != "postgres" {
		return nil
	}
	tables := []string{"users", "families", "users_families", "babies", "recipes", "feedings", "changings", "sleepings", "notes"}
	for _, table := range tables {
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", table, table)
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}

func timeFromNull(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func int64FromNull(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
