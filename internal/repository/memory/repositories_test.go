package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/dom/learnplay/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestUserRepository(t *testing.T) {
	repo := memory.NewUserRepository()
	ctx := context.Background()

	user := &domain.User{FullName: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	dup := &domain.User{FullName: "Ada 2", Email: "ADA@example.com"}
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrEmailExists)

	got, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlayedGameRepository_ListByUser(t *testing.T) {
	repo := memory.NewPlayedGameRepository()
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"b", "a", "c"} {
		require.NoError(t, repo.Create(ctx, &domain.PlayedGame{
			UserID:    userID,
			GameName:  name,
			GameData:  datatypes.JSON(`{"accuracy":0.5}`),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.PlayedGame{UserID: uuid.New(), GameName: "x", Timestamp: base}))

	asc, err := repo.ListByUser(ctx, userID, false)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{asc[0].GameName, asc[1].GameName, asc[2].GameName})

	desc, err := repo.ListByUser(ctx, userID, true)
	require.NoError(t, err)
	assert.Equal(t, "c", desc[0].GameName)
	assert.JSONEq(t, `{"accuracy":0.5}`, string(desc[0].GameData))
}
