package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 3, d, 9, 30, 0, 0, time.UTC)
}

func streakAt(current, longest int, last time.Time) *model.Streak {
	return &model.Streak{
		CurrentStreak:    current,
		LongestStreak:    longest,
		LastActivityDate: &last,
		History:          []model.StreakDay{{Day: last.Format("2006-01-02"), Activities: []string{"login"}}},
	}
}

func TestApplyTouch_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		streak      *model.Streak
		now         time.Time
		wantCurrent int
		wantLongest int
		wantDays    int
	}{
		{"first activity", &model.Streak{}, day(10), 1, 1, 1},
		{"next day extends", streakAt(4, 4, day(9)), day(10), 5, 5, 2},
		{"same day keeps", streakAt(5, 5, day(10)), day(10).Add(3 * time.Hour), 5, 5, 1},
		{"gap resets", streakAt(5, 8, day(7)), day(10), 1, 8, 2},
		{"longest kept on extend", streakAt(2, 10, day(9)), day(10), 3, 10, 2},
		{"zero with history repaired", streakAt(0, 0, day(10)), day(10), 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applyTouch(tt.streak, tt.now, time.UTC, []string{"video"}, 30)

			assert.Equal(t, tt.wantCurrent, tt.streak.CurrentStreak)
			assert.Equal(t, tt.wantLongest, tt.streak.LongestStreak)
			assert.Len(t, tt.streak.History, tt.wantDays)
			assert.GreaterOrEqual(t, tt.streak.LongestStreak, tt.streak.CurrentStreak)
			assert.GreaterOrEqual(t, tt.streak.CurrentStreak, 1)
			require.NotNil(t, tt.streak.LastActivityDate)
			assert.Equal(t, tt.now, *tt.streak.LastActivityDate)
		})
	}
}

func TestApplyTouch_SameDayMergesTags(t *testing.T) {
	streak := &model.Streak{}
	applyTouch(streak, day(10), time.UTC, []string{"login"}, 30)
	applyTouch(streak, day(10).Add(time.Hour), time.UTC, []string{"video", "LOGIN", " video "}, 30)

	require.Len(t, streak.History, 1)
	assert.Equal(t, "2026-03-10", streak.History[0].Day)
	assert.Equal(t, []string{"login", "video"}, streak.History[0].Activities)
	assert.Equal(t, 1, streak.CurrentStreak)
}

func TestApplyTouch_HistoryCapped(t *testing.T) {
	streak := &model.Streak{}
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		applyTouch(streak, start.AddDate(0, 0, i), time.UTC, []string{"login"}, 30)
	}

	assert.Len(t, streak.History, 30)
	assert.Equal(t, 40, streak.CurrentStreak)
	assert.Equal(t, 40, streak.LongestStreak)
	assert.Equal(t, start.AddDate(0, 0, 39).Format("2006-01-02"), streak.History[29].Day)
	assert.Equal(t, start.AddDate(0, 0, 10).Format("2006-01-02"), streak.History[0].Day)
}

func TestApplyTouch_UsesConfiguredTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	// 3 月 9 日 20:00 UTC 在 UTC+8 已是 3 月 10 日
	last := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	streak := &model.Streak{CurrentStreak: 1, LongestStreak: 1, LastActivityDate: &last}

	applyTouch(streak, time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC), loc, []string{"login"}, 30)

	assert.Equal(t, 2, streak.CurrentStreak)
	assert.Equal(t, "2026-03-10", streak.History[len(streak.History)-1].Day)
}

func TestStreakService_Touch(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "alice")
	ctx := context.Background()

	for d := 6; d <= 10; d++ {
		env.now = day(d)
		_, err := env.streaks.Touch(ctx, userID, []string{"login"})
		require.NoError(t, err)
	}

	env.now = day(10).Add(2 * time.Hour)
	streak, err := env.streaks.Touch(ctx, userID, []string{"quiz"})
	require.NoError(t, err)
	assert.Equal(t, 5, streak.CurrentStreak)
	assert.Equal(t, 5, streak.LongestStreak)
	assert.Len(t, streak.History, 5)
	assert.Equal(t, []string{"login", "quiz"}, streak.History[4].Activities)

	env.now = day(13)
	streak, err = env.streaks.Touch(ctx, userID, []string{"login"})
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreak)
	assert.Equal(t, 5, streak.LongestStreak)

	stored, err := env.streaks.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentStreak)
	assert.Len(t, stored.History, 6)
}

func TestStreakService_MilestoneBadge(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t, "bob")
	env.createBadge(t, "Three in a row", model.StreakCriteria(3), 50)
	ctx := context.Background()

	var awarded []string
	for d := 1; d <= 4; d++ {
		env.now = day(d)
		result, err := env.engine.run(ctx, userID, func(u *awardTx) error {
			return env.engine.touchStreak(u, []string{"login"})
		})
		require.NoError(t, err)
		for _, b := range result.BadgesAwarded {
			awarded = append(awarded, fmt.Sprintf("%d:%s", d, b.Name))
		}
	}

	assert.Equal(t, []string{"3:Three in a row"}, awarded)
	assert.Equal(t, 50, env.account(t, userID).TotalPoints)
}

func TestStreakService_GetWithoutRecord(t *testing.T) {
	env := newTestEnv(t)
	streak, err := env.streaks.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, streak.CurrentStreak)
	assert.Empty(t, streak.History)
}
