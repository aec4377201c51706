package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"babylog/internal/database"
	"babylog/internal/metrics"
	"babylog/internal/models"
	"babylog/internal/repository"
	"babylog/internal/security"
	"babylog/internal/validation"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// RegisterInput is the registration form. FamilyCode joins an existing
// family; without it a new family and a first baby are created.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FamilyName      string
	FamilyCode      string
	BabyName        string
	BabyDateOfBirth *time.Time
}

// RegisterResult describes what a registration created
type RegisterResult struct {
	User   *models.User
	Family *models.Family
	// Baby is nil when an existing family was joined
	Baby *models.Baby
}

// AuthService handles registration, login and sessions
type AuthService struct {
	db              *database.DB
	userRepo        *repository.UserRepository
	sessionDuration time.Duration
	metrics         *metrics.Metrics
}

// NewAuthService creates a new auth service. m may be nil.
func NewAuthService(db *database.DB, userRepo *repository.UserRepository, sessionDuration time.Duration, m *metrics.Metrics) *AuthService {
	return &AuthService{
		db:              db,
		userRepo:        userRepo,
		sessionDuration: sessionDuration,
		metrics:         m,
	}
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FamilyName = strings.TrimSpace(in.FamilyName)
	in.FamilyCode = strings.TrimSpace(in.FamilyCode)
	in.BabyName = strings.TrimSpace(in.BabyName)
}

func (in *RegisterInput) validate() error {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return err
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return err
	}
	if in.Password != in.PasswordConfirm {
		return &validation.ValidationError{Field: "password2", Message: "Passwords do not match"}
	}
	if err := validation.ValidateOptionalName("family_name", in.FamilyName); err != nil {
		return err
	}
	return validation.ValidateOptionalName("baby_name", in.BabyName)
}

// Register creates the account in one transaction. With a family code the
// user joins that family; otherwise a new family with a fresh join code and
// a first baby are created. Any failure leaves no partial rows behind.
func (s *AuthService) Register(in RegisterInput) (*RegisterResult, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	result := &RegisterResult{}
	err = s.db.WithTx(func(tx *database.Tx) error {
		userRepo := repository.NewUserRepository(tx)
		familyRepo := repository.NewFamilyRepository(tx)

		if in.FamilyCode != "" {
			family, err := lookupFamilyCode(familyRepo, in.FamilyCode)
			if err != nil {
				return err
			}
			result.Family = family
		} else {
			family, err := createFamilyWithCode(tx, in.FamilyName)
			if err != nil {
				return err
			}
			result.Family = family
		}

		user, err := userRepo.CreateUser(in.Username, in.Email, passwordHash)
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			return ErrUsernameTaken
		case errors.Is(err, repository.ErrDuplicateEmail):
			return ErrEmailTaken
		case err != nil:
			return err
		}
		result.User = user

		if _, err := familyRepo.AddMember(user.ID, result.Family.ID); err != nil {
			return fmt.Errorf("failed to add family member: %w", err)
		}

		if in.FamilyCode == "" {
			dob := in.BabyDateOfBirth
			if dob == nil {
				today := truncateToDay(time.Now())
				dob = &today
			}
			baby, err := repository.NewBabyRepository(tx).CreateBaby(result.Family.ID, in.BabyName, dob)
			if err != nil {
				return err
			}
			result.Baby = baby
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Registered(in.FamilyCode != "")
	if in.FamilyCode == "" {
		s.metrics.FamilyCreated()
	} else {
		s.metrics.FamilyJoined()
	}
	return result, nil
}

// Login authenticates a user by username and creates a session
func (s *AuthService) Login(username, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// RestoreSession starts a new session for a user identified by a verified
// remember-me token
func (s *AuthService) RestoreSession(userID int64) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	session, err := s.createSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) createSession(userID int64) (*models.Session, error) {
	sessionID := security.GenerateSessionID()
	expiresAt := time.Now().Add(s.sessionDuration)

	session, err := s.userRepo.CreateSession(sessionID, userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.userRepo.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() (int64, error) {
	n, err := s.userRepo.DeleteExpiredSessions()
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// GetUserByUsername returns ErrUserNotFound for unknown usernames
func (s *AuthService) GetUserByUsername(username string) (*models.User, error) {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// SetAdmin grants or revokes the admin flag of a user
func (s *AuthService) SetAdmin(username string, isAdmin bool) error {
	found, err := s.userRepo.SetAdmin(username, isAdmin)
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}
	return nil
}
