package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwardBadge_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "alice")
	badge := env.createBadge(t, "Helper", model.ManualCriteria(), 40)
	ctx := context.Background()

	first, err := env.badges.AwardBadge(ctx, userID, badge.ID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyAwarded)
	require.Len(t, first.BadgesAwarded, 1)
	assert.Equal(t, 40, first.PointsAwarded)

	second, err := env.badges.AwardBadge(ctx, userID, badge.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyAwarded)
	assert.Empty(t, second.BadgesAwarded)
	assert.Zero(t, second.PointsAwarded)

	awards, err := env.badges.ListUserBadges(ctx, userID)
	require.NoError(t, err)
	require.Len(t, awards, 1)
	assert.Equal(t, "Helper", awards[0].Badge.Name)
	assert.True(t, awards[0].Displayed)

	assert.Equal(t, 40, env.account(t, userID).TotalPoints)
	assert.Len(t, env.transactions(t, userID, model.TransactionBonus), 1)
}

func TestAwardBadge_NotFound(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "bob")

	_, err := env.badges.AwardBadge(context.Background(), userID, 404)
	assert.ErrorIs(t, err, util.ErrBadgeNotFound)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestAwardBadge_DisplayCap(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "carol")
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		badge := env.createBadge(t, fmt.Sprintf("Badge %d", i), model.ManualCriteria(), 0)
		_, err := env.badges.AwardBadge(ctx, userID, badge.ID)
		require.NoError(t, err)
	}
	hidden := &model.Badge{Name: "Secret", Level: 1, Criteria: model.ManualCriteria(), IsHidden: true}
	require.NoError(t, env.db.Create(hidden).Error)
	_, err := env.badges.AwardBadge(ctx, userID, hidden.ID)
	require.NoError(t, err)

	var displayed int64
	require.NoError(t, env.db.Model(&model.BadgeAward{}).Where("user_id = ? AND displayed = ?", userID, true).Count(&displayed).Error)
	assert.Equal(t, int64(5), displayed)

	awards, err := env.badges.ListUserBadges(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, awards, 8)
}

func TestBadgeCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	badge, err := env.badges.CreateBadge(ctx, BadgeRequest{
		Name:          "Week Warrior",
		Level:         2,
		PointsAwarded: 100,
		Criteria:      "streak:7",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StreakCriteria(7), badge.Criteria)

	_, err = env.badges.CreateBadge(ctx, BadgeRequest{Name: "Week Warrior", Criteria: "streak:14"})
	assert.ErrorIs(t, err, util.ErrDuplicateBadgeName)
	assert.ErrorIs(t, err, util.ErrInvalidState)

	_, err = env.badges.CreateBadge(ctx, BadgeRequest{Name: "Broken", Criteria: "streak:abc"})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = env.badges.CreateBadge(ctx, BadgeRequest{Name: "Too high", Level: 6, Criteria: "manual"})
	assert.ErrorIs(t, err, util.ErrValidation)

	updated, err := env.badges.UpdateBadge(ctx, badge.ID, BadgeRequest{
		Name:     "Week Warrior",
		Level:    3,
		Criteria: "video:watch_complete:10",
		IsHidden: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ActivityCriteria("video", "watch_complete", 10), updated.Criteria)

	visible, err := env.badges.ListBadges(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := env.badges.ListBadges(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)

	found, err := env.engine.Badges.FindByCriteria(model.ActivityCriteria("Video", "Watch_Complete", 10))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, badge.ID, found[0].ID)

	require.NoError(t, env.badges.DeleteBadge(ctx, badge.ID))
	assert.ErrorIs(t, env.badges.DeleteBadge(ctx, badge.ID), util.ErrBadgeNotFound)
}

func TestBadgeCatalog_DeletedNameStaysReserved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	badge, err := env.badges.CreateBadge(ctx, BadgeRequest{Name: "Night Owl", Criteria: "manual"})
	require.NoError(t, err)
	other, err := env.badges.CreateBadge(ctx, BadgeRequest{Name: "Early Bird", Criteria: "manual"})
	require.NoError(t, err)
	require.NoError(t, env.badges.DeleteBadge(ctx, badge.ID))

	_, err = env.badges.CreateBadge(ctx, BadgeRequest{Name: "Night Owl", Criteria: "streak:3"})
	assert.ErrorIs(t, err, util.ErrDuplicateBadgeName)
	assert.ErrorIs(t, err, util.ErrInvalidState)

	_, err = env.badges.UpdateBadge(ctx, other.ID, BadgeRequest{Name: "Night Owl", Criteria: "manual"})
	assert.ErrorIs(t, err, util.ErrDuplicateBadgeName)
}
