package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-quang/bofinance-sub000/internal/apperr"
	"github.com/tm-quang/bofinance-sub000/internal/cache"
	"github.com/tm-quang/bofinance-sub000/internal/model"
	"github.com/tm-quang/bofinance-sub000/internal/repository"
	"github.com/tm-quang/bofinance-sub000/internal/session"
)

func TestCurrentWithoutAuthentication(t *testing.T) {
	t.Parallel()

	_, err := session.Current(context.Background())
	assert.True(t, apperr.IsNotAuthenticated(err))
}

func TestWithUserRoundTrip(t *testing.T) {
	t.Parallel()

	user := &model.User{ID: 7, TelegramID: 777}
	ctx := session.WithUser(context.Background(), user)

	got, err := session.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	manager := session.NewManager(repository.NewUserRepository(db), cache.New(), time.Minute)

	ctx, user, err := manager.Authenticate(context.Background(), 555, "Trang", "", "trang")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(555), user.TelegramID)

	current, err := session.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)

	// The second resolve is served from cache: dropping the row behind
	// the cache's back must not surface.
	require.NoError(t, db.Delete(&model.User{}, user.ID).Error)
	_, cached, err := manager.Authenticate(context.Background(), 555, "Trang", "", "trang")
	require.NoError(t, err)
	assert.Equal(t, user.ID, cached.ID)
}
