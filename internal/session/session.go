// Package session ties Telegram identities to stored users. Every
// service operation starts from Current; a context that never went
// through Authenticate fails before any store access happens.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/cache"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
)

type ctxKey struct{}

// Manager resolves Telegram accounts to users, caching the lookup so a
// chatty conversation does not re-upsert on every message.
type Manager struct {
	users *repository.UserRepository
	store *cache.Store
	ttl   time.Duration
}

func NewManager(users *repository.UserRepository, store *cache.Store, ttl time.Duration) *Manager {
	return &Manager{users: users, store: store, ttl: ttl}
}

// Authenticate upserts the Telegram account and returns a context
// carrying the resolved user.
func (m *Manager) Authenticate(ctx context.Context, telegramID int64, firstName, lastName, username string) (context.Context, *model.User, error) {
	key := fmt.Sprintf("sessions:%d", telegramID)
	user, err := cache.Fetch(m.store, key, m.ttl, func() (*model.User, error) {
		return m.users.UpsertFromTelegram(ctx, telegramID, firstName, lastName, username)
	})
	if err != nil {
		return ctx, nil, apperr.E("session.Authenticate", "user", err)
	}
	return WithUser(ctx, user), user, nil
}

// WithUser stamps an already resolved user into the context. The
// scheduler uses this to act for each user without a Telegram update.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// Current returns the authenticated user carried by ctx.
func Current(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(ctxKey{}).(*model.User)
	if !ok || user == nil {
		return nil, apperr.E("session.Current", "user", apperr.ErrNotAuthenticated)
	}
	return user, nil
}
