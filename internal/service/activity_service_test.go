package service

import (
	"context"
	"testing"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/monitoring"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestRecord_AwardsConfiguredPoints(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "alice")
	env.createBadge(t, "First Post", model.ActivityCriteria("blog", "publish", 1), 0)
	ctx := context.Background()

	result, err := env.activities.Record(ctx, ActivityEvent{
		UserID:      userID,
		Activity:    "Blog",
		Verb:        "publish",
		RelatedItem: &model.ItemRef{ItemID: "b-1", ItemType: "blog"},
	})
	require.NoError(t, err)
	assert.Equal(t, 150, result.PointsAwarded)
	require.Len(t, result.BadgesAwarded, 1)
	assert.Equal(t, "First Post", result.BadgesAwarded[0].Name)
	require.NotNil(t, result.Streak)
	assert.Equal(t, []string{"blog"}, result.Streak.History[0].Activities)

	account := env.account(t, userID)
	assert.Equal(t, 150, account.BlogPoints)
	assert.Equal(t, 2, account.Level)

	earned := env.transactions(t, userID, model.TransactionEarned)
	require.Len(t, earned, 1)
	require.NotNil(t, earned[0].RelatedItemID)
	assert.Equal(t, "b-1", *earned[0].RelatedItemID)

	// 第二次发布不再颁发 blog:publish:1
	result, err = env.activities.Record(ctx, ActivityEvent{UserID: userID, Activity: "blog", Verb: "publish"})
	require.NoError(t, err)
	assert.Empty(t, result.BadgesAwarded)

	counters, err := env.engine.Activities.ListByUser(userID)
	require.NoError(t, err)
	require.Len(t, counters, 1)
	assert.Equal(t, 2, counters[0].Count)
}

func TestRecord_VideoWatchCompleteNeedsProgress(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "bob")
	ctx := context.Background()

	result, err := env.activities.Record(ctx, ActivityEvent{UserID: userID, Activity: "video", Verb: "watch_complete", Progress: floatPtr(80)})
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	result, err = env.activities.Record(ctx, ActivityEvent{UserID: userID, Activity: "video", Verb: "watch_complete"})
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	result, err = env.activities.Record(ctx, ActivityEvent{UserID: userID, Activity: "video", Verb: "watch_complete", Progress: floatPtr(92.5)})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 25, result.PointsAwarded)
	assert.Equal(t, 25, env.account(t, userID).VideoPoints)
}

func TestRecord_FifthVideoCompletesChallenge(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "carol")
	ctx := context.Background()

	challenge, err := env.challenges.CreateChallenge(ctx, env.weeklyChallenge("video_watch", 5, 100))
	require.NoError(t, err)

	completions := 0
	for i := 1; i <= 6; i++ {
		result, err := env.activities.Record(ctx, ActivityEvent{
			UserID:   userID,
			Activity: "video",
			Verb:     "watch_complete",
			Progress: floatPtr(100),
		})
		require.NoError(t, err)
		if len(result.ChallengesCompleted) > 0 {
			completions++
			assert.Equal(t, 5, i)
		}
	}
	assert.Equal(t, 1, completions)
	assert.True(t, env.progressOf(t, userID, challenge.ID).IsCompleted)

	account := env.account(t, userID)
	assert.Equal(t, 6*25+100, account.TotalPoints)
	assert.Len(t, env.transactions(t, userID, model.TransactionBonus), 1)
}

func TestRecord_LoginOnlyTouchesStreak(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "dave")

	result, err := env.activities.Record(context.Background(), ActivityEvent{UserID: userID, Activity: "login"})
	require.NoError(t, err)
	assert.Zero(t, result.PointsAwarded)
	require.NotNil(t, result.Streak)
	assert.Equal(t, 1, result.Streak.CurrentStreak)
	assert.Equal(t, []string{"login"}, result.Streak.History[0].Activities)
}

func TestRecord_UnknownActivity(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "erin")

	_, err := env.activities.Record(context.Background(), ActivityEvent{UserID: userID, Activity: "dance", Verb: "move"})
	assert.ErrorIs(t, err, util.ErrUnknownActivity)
	assert.ErrorIs(t, err, util.ErrValidation)

	assert.Nil(t, env.activities.Notify(context.Background(), ActivityEvent{UserID: userID, Activity: "dance", Verb: "move"}))
	assert.Nil(t, env.activities.Notify(context.Background(), ActivityEvent{UserID: 9999, Activity: "blog", Verb: "publish"}))
}

func sideEffectFailures(t *testing.T, activity string) float64 {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(monitoring.SideEffectFailures)
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "gamification_side_effect_failures_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "activity" && l.GetValue() == activity {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNotify_CountsFailures(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "gina")
	ctx := context.Background()

	before := sideEffectFailures(t, "quiz")
	assert.Nil(t, env.activities.Notify(ctx, ActivityEvent{UserID: 9999, Activity: "quiz", Verb: "pass"}))
	assert.Equal(t, before+1, sideEffectFailures(t, "quiz"))

	result := env.activities.Notify(ctx, ActivityEvent{UserID: userID, Activity: "blog", Verb: "publish"})
	require.NotNil(t, result)
	assert.Equal(t, 150, result.PointsAwarded)
	assert.Equal(t, before+1, sideEffectFailures(t, "quiz"))
}

func TestUpdateRules(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "frank")

	rules := config.DefaultGamification()
	rules.Activities = []config.ActivityRule{
		{Activity: "blog", Verb: "publish", Points: 7, Category: "blog"},
	}
	env.activities.UpdateRules(rules)

	result, err := env.activities.Record(context.Background(), ActivityEvent{UserID: userID, Activity: "blog", Verb: "publish"})
	require.NoError(t, err)
	assert.Equal(t, 7, result.PointsAwarded)

	_, err = env.activities.Record(context.Background(), ActivityEvent{UserID: userID, Activity: "quiz", Verb: "pass"})
	assert.ErrorIs(t, err, util.ErrUnknownActivity)
}
