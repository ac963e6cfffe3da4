package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoyleJ11/dicee-room-backend/internal/gallery"
)

type gormStatsStore struct {
	db *gorm.DB
}

// NewPostgresStatsStore opens the stats database and migrates the
// gallery stats table.
func NewPostgresStatsStore(dsn string) (StatsStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}
	if err := db.AutoMigrate(&gallery.Stats{}); err != nil {
		return nil, fmt.Errorf("failed to migrate stats schema: %w", err)
	}
	return &gormStatsStore{db: db}, nil
}

func (g *gormStatsStore) SaveStats(ctx context.Context, stats []gallery.Stats) error {
	if len(stats) == 0 {
		return nil
	}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&stats).Error
	if err != nil {
		return fmt.Errorf("failed to save gallery stats: %w", err)
	}
	return nil
}

func (g *gormStatsStore) LoadStats(ctx context.Context, spectatorIDs []string) ([]gallery.Stats, error) {
	if len(spectatorIDs) == 0 {
		return nil, nil
	}
	var out []gallery.Stats
	err := g.db.WithContext(ctx).
		Where("spectator_id IN ?", spectatorIDs).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery stats: %w", err)
	}
	return out, nil
}
