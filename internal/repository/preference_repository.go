package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/model"
)

// PreferenceRepository stores per-user key/value settings.
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) Get(ctx context.Context, userID uint, key string) (string, error) {
	var pref model.Preference
	if err := r.db.WithContext(ctx).Where("user_id = ? AND key = ?", userID, key).First(&pref).Error; err != nil {
		return "", apperr.FromDB("preferences.Get", "preference", err)
	}
	return pref.Value, nil
}

// Set upserts one setting row.
func (r *PreferenceRepository) Set(ctx context.Context, userID uint, key, value string) error {
	var pref model.Preference
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND key = ?", userID, key).First(&pref).Error
	switch {
	case err == nil:
		if err := db.Model(&pref).Update("value", value).Error; err != nil {
			return apperr.FromDB("preferences.Set", "preference", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		pref = model.Preference{UserID: userID, Key: key, Value: value}
		if err := db.Create(&pref).Error; err != nil {
			return apperr.FromDB("preferences.Set", "preference", err)
		}
		return nil
	default:
		return apperr.FromDB("preferences.Set", "preference", err)
	}
}

func (r *PreferenceRepository) All(ctx context.Context, userID uint) (map[string]string, error) {
	var prefs []model.Preference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&prefs).Error; err != nil {
		return nil, apperr.FromDB("preferences.All", "preference", err)
	}
	out := make(map[string]string, len(prefs))
	for _, p := range prefs {
		out[p.Key] = p.Value
	}
	return out, nil
}
