package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	err := E("tasks.Update", "tasks", ErrNotFound)
	assert.Equal(t, "tasks.Update: record not found", err.Error())

	err = E("Get", "reminders", ErrNotFound)
	assert.Equal(t, "Get: reminders: record not found", err.Error())
}

func TestENilPassthrough(t *testing.T) {
	t.Parallel()

	assert.Nil(t, E("tasks.List", "tasks", nil))
	assert.Nil(t, FromDB("tasks.List", "tasks", nil))
}

func TestUnwrapAndIs(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("wrapped: %w", ErrNotFound)
	err := E("reminders.Get", "reminders", cause)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotAuthenticated(err))

	var tagged *Error
	assert.True(t, errors.As(err, &tagged))
	assert.Equal(t, "reminders.Get", tagged.Op)
}

func TestFromDBTranslation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, ErrConflict},
		{"unknown passes through", errors.New("disk full"), nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FromDB("tasks.Create", "tasks", tt.in)
			assert.Error(t, got)
			if tt.want != nil {
				assert.True(t, errors.Is(got, tt.want))
			} else {
				assert.Contains(t, got.Error(), "disk full")
			}
		})
	}
}

func TestInvalid(t *testing.T) {
	t.Parallel()

	err := Invalid("tasks.Create", "title is required")
	assert.True(t, IsInvalid(err))
	assert.Contains(t, err.Error(), "title is required")
}
