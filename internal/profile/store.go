package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DefaultDBFile is used when VOICEGATE_DB_PATH is not set.
const DefaultDBFile = "voicegate.sqlite3"

// Store persists voice profiles in sqlite. Upserts are atomic per user id.
type Store struct {
	DB *gorm.DB
	db *sql.DB
}

func NewStore() (*Store, error) {
	dbPath := os.Getenv("VOICEGATE_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewStoreWithPath(dbPath)
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&VoiceProfile{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Store{DB: db, db: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the profile for userID, or ErrNotEnrolled.
func (s *Store) Get(userID string) (*VoiceProfile, error) {
	var p VoiceProfile
	err := s.DB.First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotEnrolled
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile %s: %w", userID, err)
	}
	return &p, nil
}

// Upsert writes the profile, replacing any existing row for the user id
// in a single statement.
func (s *Store) Upsert(p *VoiceProfile) error {
	p.UpdatedAt = time.Now()
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("upserting profile %s: %w", p.UserID, err)
	}
	return nil
}

// Exists reports whether a profile row is stored for userID.
func (s *Store) Exists(userID string) (bool, error) {
	var count int64
	if err := s.DB.Model(&VoiceProfile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking profile %s: %w", userID, err)
	}
	return count > 0, nil
}

// List returns all stored profiles, newest first.
func (s *Store) List() ([]VoiceProfile, error) {
	var profiles []VoiceProfile
	if err := s.DB.Order("updated_at desc").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	return profiles, nil
}

// Delete removes a profile. Administrative use only; the pipeline never
// deletes.
func (s *Store) Delete(userID string) error {
	res := s.DB.Delete(&VoiceProfile{}, "user_id = ?", userID)
	if res.Error != nil {
		return fmt.Errorf("deleting profile %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotEnrolled
	}
	return nil
}
