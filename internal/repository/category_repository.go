package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/model"
)

// CategoryRepository manages per-user income and expense categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetOrCreate finds the category named name under the given flow type,
// creating it on first use. An empty name means "uncategorized" and
// returns nil without touching the store.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, userID uint, name string, typ model.EntryType) (*model.Category, error) {
	if name == "" {
		return nil, nil
	}

	var category model.Category
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND name = ? AND type = ?", userID, name, typ).First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		category = model.Category{UserID: userID, Name: name, Type: typ}
		if err := db.Create(&category).Error; err != nil {
			return nil, apperr.FromDB("categories.GetOrCreate", "category", err)
		}
		return &category, nil
	default:
		return nil, apperr.FromDB("categories.GetOrCreate", "category", err)
	}
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID uint, typ model.EntryType) ([]model.Category, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if typ != "" {
		q = q.Where("type = ?", typ)
	}

	var categories []model.Category
	if err := q.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperr.FromDB("categories.List", "category", err)
	}
	return categories, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, userID uint, id string) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&category).Error; err != nil {
		return nil, apperr.FromDB("categories.Find", "category", err)
	}
	return &category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, userID uint, id string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(updates)
	if res.Error != nil {
		return apperr.FromDB("categories.Update", "category", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E("categories.Update", "category", apperr.ErrNotFound)
	}
	return nil
}

// Delete removes the category and detaches every transaction and
// reminder that referenced it, all in one store transaction.
func (r *CategoryRepository) Delete(ctx context.Context, userID uint, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Transaction{}).
			Where("user_id = ? AND category_id = ?", userID, id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Reminder{}).
			Where("user_id = ? AND category_id = ?", userID, id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND id = ?", userID, id).Delete(&model.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return apperr.FromDB("categories.Delete", "category", err)
	}
	return nil
}
