package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/cpp-cyber/ldapauth/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(config *Config) (*Store, error) {
	return Open(config.Driver, config.DataSourceName())
}

func Open(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if driver == "sqlite" {
		// SQLite has a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	// Auto migrate
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Transaction runs fn against a store bound to a single database
// transaction. Nothing fn writes is visible to other readers until fn
// returns nil.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// User operations
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByMappedUsername finds the directory account created for a
// normalized username, whatever name it was stored under.
func (s *Store) GetUserByMappedUsername(ctx context.Context, mappedUsername string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("mapped_username = ?", mappedUsername).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByEmail finds the oldest user with the given email address
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Order("created_at").First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUserByLogin matches login against the username first, then the email.
func (s *Store) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	user, err := s.GetUserByUsername(ctx, login)
	if err == nil || !errors.Is(err, ErrRecordNotFound) {
		return user, err
	}
	return s.GetUserByEmail(ctx, login)
}

// UsernameExists reports whether any user holds username.
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateUser creates a new user. A taken username is ErrUsernameConflict.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

// UpdateUserFields writes only the given columns. Zero values are written
// as is, so an empty password_hash clears the local password.
func (s *Store) UpdateUserFields(ctx context.Context, user *models.User, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(user).Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormWriter sends gorm's slow query and error lines to zerolog.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	logger.Warn().Str("component", "gorm").Msgf(format, args...)
}

func newGormLogger() gormlogger.Interface {
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
