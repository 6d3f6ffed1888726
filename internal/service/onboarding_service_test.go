package service

import (
	"context"
	"testing"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createBadge(t, "Welcome", model.ManualCriteria(), 10)

	challenge, err := env.challenges.CreateChallenge(ctx, env.weeklyChallenge("quiz_pass", 3, 0))
	require.NoError(t, err)

	userID := env.createUser(t, "newbie")
	result, err := env.onboarding.InitializeUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, result.BadgesAwarded, 1)
	assert.Equal(t, "Welcome", result.BadgesAwarded[0].Name)

	account := env.account(t, userID)
	assert.Equal(t, 10, account.TotalPoints)
	assert.Equal(t, 1, account.Level)
	assert.Equal(t, 100, account.PointsToNextLevel)

	assert.Zero(t, env.progressOf(t, userID, challenge.ID).Progress)

	streak, err := env.engine.Streaks.FindByUser(userID)
	require.NoError(t, err)
	assert.Zero(t, streak.CurrentStreak)

	again, err := env.onboarding.InitializeUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, again.BadgesAwarded)
	assert.Equal(t, 10, env.account(t, userID).TotalPoints)
}

func TestInitializeUser_WithoutWelcomeBadge(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "plain")

	result, err := env.onboarding.InitializeUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, result.BadgesAwarded)
	assert.Equal(t, 1, env.account(t, userID).Level)
}
