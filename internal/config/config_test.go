package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_FillsDefaults(t *testing.T) {
	g := GamificationConfig{LevelBase: 50, CodeLength: 99}.Normalize()

	assert.Equal(t, 50.0, g.LevelBase)
	assert.Equal(t, 1.5, g.LevelExponent)
	assert.Equal(t, "UTC", g.Timezone)
	assert.Equal(t, []int{3, 7, 14, 30, 60, 100, 365}, g.StreakMilestones)
	assert.Equal(t, 8, g.CodeLength)
	assert.Equal(t, 5, g.MaxDisplayedBadges)
	assert.Equal(t, 64, g.MaxSettleSteps)
	assert.NotEmpty(t, g.Activities)
}

func TestRule(t *testing.T) {
	g := DefaultGamification()

	rule, ok := g.Rule("video", "watch_complete")
	require.True(t, ok)
	assert.Equal(t, 25, rule.Points)
	assert.Equal(t, 90.0, rule.MinProgress)
	assert.Equal(t, "video_watch", rule.ChallengeType)

	rule, ok = g.Rule("blog", "publish")
	require.True(t, ok)
	assert.Equal(t, 150, rule.Points)

	_, ok = g.Rule("blog", "delete")
	assert.False(t, ok)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, GamificationConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, "Asia/Kolkata", GamificationConfig{Timezone: "Asia/Kolkata"}.Location().String())

	g := GamificationConfig{Timezone: "Asia/Kolkata"}.Normalize()
	require.NotNil(t, g.loc)
	assert.Same(t, g.loc, g.Location())
	assert.Same(t, g.Location(), g.Location())

	bad := GamificationConfig{Timezone: "Not/AZone"}.Normalize()
	assert.Same(t, time.UTC, bad.Location())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: "9090"
  mode: debug
jwt:
  secret: test-secret
  expire_hours: 2
gamification:
  timezone: Asia/Kolkata
  level_base: 120
  activities:
    - { activity: quiz, verb: pass, points: 70, category: quiz, challenge_type: quiz_pass }
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "Asia/Kolkata", cfg.Gamification.Timezone)
	assert.Equal(t, 120.0, cfg.Gamification.LevelBase)
	assert.Equal(t, 1.5, cfg.Gamification.LevelExponent)
	require.Len(t, cfg.Gamification.Activities, 1)
	assert.Equal(t, 70, cfg.Gamification.Activities[0].Points)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "educasheer-gamification", cfg.Tracing.ServiceName)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestLoadConfig_RejectsWeakSecretInRelease(t *testing.T) {
	dir := t.TempDir()
	content := "server:\n  mode: release\njwt:\n  secret: short\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
