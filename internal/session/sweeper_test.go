package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/learnplay/internal/repository/memory"
	"github.com/dom/learnplay/internal/session"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	store := memory.NewSessionStore(clock)
	sweeper := session.NewSweeper(store, clock, time.Minute, nil)
	ctx := context.Background()

	short, _ := store.Create(ctx, uuid.New(), 2)
	long, _ := store.Create(ctx, uuid.New(), 30)

	clock.Advance(time.Minute)
	ended, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, ended)

	got, _ := store.Get(ctx, short.ID)
	assert.True(t, got.IsActive)
	assert.Zero(t, got.UsedActiveTime, "sessions within budget are not charged by the sweeper")

	clock.Advance(time.Minute)
	ended, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ended)

	got, _ = store.Get(ctx, short.ID)
	assert.False(t, got.IsActive)
	assert.Equal(t, 120.0, got.UsedActiveTime)

	got, _ = store.Get(ctx, long.ID)
	assert.True(t, got.IsActive)
}

func TestSweeper_StartStop(t *testing.T) {
	store := memory.NewSessionStore(nil)
	sweeper := session.NewSweeper(store, nil, time.Hour, nil)

	require.NoError(t, sweeper.Start())
	assert.NoError(t, sweeper.Stop())
}
