package persistence

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/configuration"
)

// NewMySQLDB opens the MySQL reporting database used for the publish history
// log and migrates its schema.
func NewMySQLDB() (*gorm.DB, error) {
	cfg := configuration.C.Database.MySql
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.PostHistory{}); err != nil {
		return nil, err
	}
	return db, nil
}

// PostHistoryRepository is an append-only log of publish attempts, kept apart
// from the live job documents so reporting queries never touch the scheduler's
// collection.
type PostHistoryRepository struct{ db *gorm.DB }

func NewPostHistoryRepository(db *gorm.DB) *PostHistoryRepository {
	return &PostHistoryRepository{db: db}
}

func (r *PostHistoryRepository) Append(ctx context.Context, h *model.PostHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *PostHistoryRepository) ListByUser(ctx context.Context, user string, limit int) ([]*model.PostHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*model.PostHistory
	err := r.db.WithContext(ctx).
		Where("user = ?", user).
		Order("posted_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
