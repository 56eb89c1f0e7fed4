package service

import (
	"context"
	"time"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/cache"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/session"
)

const preferenceResource = "preferences"

// TaskPeriodWeek and TaskPeriodMonth are the two task view periods the
// bot can page through.
const (
	TaskPeriodWeek  = "week"
	TaskPeriodMonth = "month"
)

// PreferenceService reads and writes per-user settings with defaults.
type PreferenceService struct {
	repo     *repository.PreferenceRepository
	store    *cache.Store
	ttl      time.Duration
	defaults map[string]string
}

func NewPreferenceService(repo *repository.PreferenceRepository, store *cache.Store, ttl time.Duration) *PreferenceService {
	return &PreferenceService{
		repo:  repo,
		store: store,
		ttl:   ttl,
		defaults: map[string]string{
			model.PrefDefaultCurrency: "VND",
			model.PrefTaskPeriod:      TaskPeriodWeek,
			model.PrefNotifyEnabled:   "true",
		},
	}
}

// Get returns the stored value for key, or its default when the user
// never set one.
func (s *PreferenceService) Get(ctx context.Context, key string) (string, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return "", err
	}

	cacheKey := cache.Key(preferenceResource, user.ID, key)
	return cache.Fetch(s.store, cacheKey, s.ttl, func() (string, error) {
		value, err := s.repo.Get(ctx, user.ID, key)
		if apperr.IsNotFound(err) {
			return s.defaults[key], nil
		}
		if err != nil {
			return "", err
		}
		return value, nil
	})
}

func (s *PreferenceService) Set(ctx context.Context, key, value string) error {
	user, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if key == "" {
		return apperr.Invalid("preferences.Set", "key is required")
	}
	if key == model.PrefTaskPeriod && value != TaskPeriodWeek && value != TaskPeriodMonth {
		return apperr.Invalid("preferences.Set", "period must be week or month")
	}

	if err := s.repo.Set(ctx, user.ID, key, value); err != nil {
		return err
	}
	s.store.Invalidate(cache.Prefix(preferenceResource, user.ID))
	return nil
}

// All returns every stored setting merged over the defaults.
func (s *PreferenceService) All(ctx context.Context) (map[string]string, error) {
	user, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := cache.Key(preferenceResource, user.ID, "all")
	return cache.Fetch(s.store, key, s.ttl, func() (map[string]string, error) {
		stored, err := s.repo.All(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		merged := make(map[string]string, len(s.defaults)+len(stored))
		for k, v := range s.defaults {
			merged[k] = v
		}
		for k, v := range stored {
			merged[k] = v
		}
		return merged, nil
	})
}
