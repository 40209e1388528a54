package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/PowerOTP/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that no share link exists for the id.
	ErrLinkNotFound = errors.New("link not found")
	// ErrLinkExists signals an id collision on create.
	ErrLinkExists = errors.New("link already exists")
)

// LinkRepository defines the data access contract for share links.
//
// IncrementAccess must be linearizable per id: concurrent callers on the same
// id each observe a distinct, strictly increasing AccessCount.
type LinkRepository interface {
	Create(ctx context.Context, link *model.ShareLink) error
	IncrementAccess(ctx context.Context, id string) (*model.ShareLink, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

type gormLinkRepository struct {
	db *gorm.DB
}

// NewGormLinkRepository returns a GORM-backed LinkRepository (Postgres or SQLite).
func NewGormLinkRepository(db *gorm.DB) LinkRepository {
	return &gormLinkRepository{db: db}
}

func (r *gormLinkRepository) Create(ctx context.Context, link *model.ShareLink) error {
	link.AccessCount = 0
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrLinkExists
		}
		return err
	}
	return nil
}

// IncrementAccess bumps the counter and reads the row back in one transaction.
// The UPDATE takes the row lock, so a concurrent caller blocks until commit and
// then sees the next value.
func (r *gormLinkRepository) IncrementAccess(ctx context.Context, id string) (*model.ShareLink, error) {
	var link model.ShareLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ShareLink{}).
			Where("id = ?", id).
			UpdateColumn("access_count", gorm.Expr("access_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrLinkNotFound
		}
		return tx.Where("id = ?", id).Take(&link).Error
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *gormLinkRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before.UTC()).
		Delete(&model.ShareLink{})
	return result.RowsAffected, result.Error
}
