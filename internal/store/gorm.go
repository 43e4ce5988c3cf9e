package store

import (
	"context"
	"fmt"
	"time"

	"github.com/user/news-push-bot/internal/config"
	"github.com/user/news-push-bot/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore implements Store on top of gorm. It supports Postgres, MySQL and SQLite.
type GormStore struct {
	db *gorm.DB
}

// New opens the store selected by cfg.Driver
func New(cfg *config.DBConfig) (Store, error) {
	if cfg.Driver == config.DriverMemory {
		return NewMemoryStore(), nil
	}
	return NewGormStore(cfg)
}

// NewGormStore opens a database connection for the configured driver
func NewGormStore(cfg *config.DBConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.URL)
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.URL)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	maxConns := cfg.MaxConns
	if cfg.Driver == config.DriverSQLite {
		// SQLite serialises writers, and every ":memory:" connection is a separate database.
		maxConns = 1
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(maxConns/2, 1))
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &GormStore{db: db}, nil
}

// Init creates the three preference tables if they do not exist
func (s *GormStore) Init(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(&model.Subscription{}, &model.PushTopic{}, &model.PushSchedule{})
	return wrap("migrate database", err)
}

// ListSubscriptions returns the topics a user is subscribed to
func (s *GormStore) ListSubscriptions(ctx context.Context, userID string) ([]string, error) {
	var topics []string
	result := s.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("user_id = ?", userID).
		Pluck("topic", &topics)
	if result.Error != nil {
		return nil, wrap("list subscriptions", result.Error)
	}
	return topics, nil
}

// AddSubscription subscribes a user to a topic; an existing pair is left untouched
func (s *GormStore) AddSubscription(ctx context.Context, userID, topic string) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "topic"}},
		DoNothing: true,
	}).Create(&model.Subscription{UserID: userID, Topic: topic})
	return wrap("add subscription", result.Error)
}

// RemoveSubscription deletes a subscription; a missing pair is not an error
func (s *GormStore) RemoveSubscription(ctx context.Context, userID, topic string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND topic = ?", userID, topic).
		Delete(&model.Subscription{})
	return wrap("remove subscription", result.Error)
}

// ListPushTopics returns every push choice the user has made, including disabled ones
func (s *GormStore) ListPushTopics(ctx context.Context, userID string) (map[string]bool, error) {
	var rows []model.PushTopic
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows)
	if result.Error != nil {
		return nil, wrap("list push topics", result.Error)
	}

	choices := make(map[string]bool, len(rows))
	for _, row := range rows {
		choices[row.Topic] = row.IsEnabled
	}
	return choices, nil
}

// SetPushChoice upserts the push flag of one topic
func (s *GormStore) SetPushChoice(ctx context.Context, userID, topic string, enabled bool) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "topic"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_enabled"}),
	}).Create(&model.PushTopic{UserID: userID, Topic: topic, IsEnabled: enabled})
	return wrap("set push choice", result.Error)
}

// SetPushTime upserts the user's push time. A nil pushTime clears it.
func (s *GormStore) SetPushTime(ctx context.Context, userID string, pushTime *string) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"push_time"}),
	}).Create(&model.PushSchedule{UserID: userID, PushTime: pushTime})
	return wrap("set push time", result.Error)
}

// GetPushTime returns the user's push time, or nil if none is set
func (s *GormStore) GetPushTime(ctx context.Context, userID string) (*string, error) {
	var rows []model.PushSchedule
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows)
	if result.Error != nil {
		return nil, wrap("get push time", result.Error)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].PushTime, nil
}

// ListAllPushSchedules scans every user with a push time set
func (s *GormStore) ListAllPushSchedules(ctx context.Context) (map[string]string, error) {
	var rows []model.PushSchedule
	result := s.db.WithContext(ctx).
		Where("push_time IS NOT NULL").
		Find(&rows)
	if result.Error != nil {
		return nil, wrap("list push schedules", result.Error)
	}

	schedules := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.PushTime != nil {
			schedules[row.UserID] = *row.PushTime
		}
	}
	return schedules, nil
}

// Ping checks database connectivity
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return wrap("ping database", sqlDB.PingContext(ctx))
}

// Close closes the database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.Close()
}
