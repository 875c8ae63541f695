package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/shopdash/pkg/config"
	"github.com/example/shopdash/pkg/filter"
)

// SavedFilter is the search a user last kept for a view.
type SavedFilter struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	UserID    string     `gorm:"size:64;uniqueIndex:idx_user_view" json:"-"`
	View      string     `gorm:"size:64;uniqueIndex:idx_user_view" json:"view"`
	Term      string     `gorm:"size:255" json:"q"`
	MinDate   *time.Time `gorm:"type:date" json:"from,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (f SavedFilter) Criteria() filter.Criteria {
	return filter.Criteria{Term: f.Term, MinDate: f.MinDate}
}

type FilterRepository struct {
	db *gorm.DB
}

func NewFilterRepository(cfg *config.MySQLConfig) (*FilterRepository, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return NewFilterRepositoryFromDB(db), nil
}

func NewFilterRepositoryFromDB(db *gorm.DB) *FilterRepository {
	return &FilterRepository{db: db}
}

func (r *FilterRepository) Migrate() error {
	return r.db.AutoMigrate(&SavedFilter{})
}

// Get returns the saved filter for a user's view, or ErrNotFound.
func (r *FilterRepository) Get(ctx context.Context, userID, view string) (*SavedFilter, error) {
	var f SavedFilter
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND view = ?", userID, view).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Save stores c as the user's filter for view, replacing any earlier one.
func (r *FilterRepository) Save(ctx context.Context, userID, view string, c filter.Criteria) (*SavedFilter, error) {
	f := &SavedFilter{UserID: userID, View: view, Term: c.Term, MinDate: c.MinDate}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "view"}},
		DoUpdates: clause.AssignmentColumns([]string{"term", "min_date", "updated_at"}),
	}).Create(f).Error
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *FilterRepository) Delete(ctx context.Context, userID, view string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND view = ?", userID, view).
		Delete(&SavedFilter{}).Error
}

func (r *FilterRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
