package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/middleware"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/model"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/service"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "controller-test-secret-controller-test"

type apiEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	engine := service.NewEngine(db, config.DefaultGamification(), nil)
	points := service.NewPointsService(engine)
	streaks := service.NewStreakService(engine)
	badges := service.NewBadgeService(engine)
	challenges := service.NewChallengeService(engine)
	rewards := service.NewRewardService(engine)
	profile := service.NewProfileService(engine, points, streaks, badges, challenges)

	gc := NewGamificationController(profile, points, streaks, badges, challenges,
		service.NewActivityService(engine), service.NewOnboardingService(engine))
	rc := NewRewardController(rewards)
	bc := NewBadgeController(badges)

	r := gin.New()
	api := r.Group("/api", middleware.AuthMiddleware(testSecret))
	api.GET("/gamification/profile", gc.GetProfile)
	api.GET("/gamification/leaderboard", gc.GetLeaderboard)
	api.POST("/rewards/:id/redeem", rc.Redeem)
	api.GET("/rewards/redemptions/verify/:code", rc.VerifyCode)
	api.POST("/rewards/redemptions/:id/use", middleware.RoleMiddleware(model.Admin), rc.MarkUsed)

	internal := r.Group("/api/internal", middleware.AuthMiddleware(testSecret), middleware.RoleMiddleware(model.Service))
	internal.POST("/gamification/events", gc.RecordEvent)

	admin := r.Group("/api/admin", middleware.AuthMiddleware(testSecret), middleware.RoleMiddleware(model.Admin))
	admin.POST("/gamification/points", gc.AwardPoints)
	admin.POST("/gamification/badges", bc.CreateBadge)
	admin.POST("/rewards", rc.CreateReward)

	return &apiEnv{db: db, router: r}
}

func (env *apiEnv) user(t *testing.T, name string, role model.UserRole) (uint, string) {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, env.db.Create(u).Error)
	token, err := util.GenerateJWT(u, testSecret, time.Hour)
	require.NoError(t, err)
	return u.ID, token
}

func (env *apiEnv) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestAuthRequired(t *testing.T) {
	env := newAPIEnv(t)

	code, _ := env.do(t, http.MethodGet, "/api/gamification/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(t, http.MethodGet, "/api/gamification/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newAPIEnv(t)
	_, student := env.user(t, "alice", model.Student)

	code, _ := env.do(t, http.MethodPost, "/api/admin/rewards", student, gin.H{"name": "Sticker", "pointsCost": 10})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRedeemFlow(t *testing.T) {
	env := newAPIEnv(t)
	_, admin := env.user(t, "admin", model.Admin)
	aliceID, alice := env.user(t, "alice", model.Student)
	_, bob := env.user(t, "bob", model.Student)

	code, resp := env.do(t, http.MethodPost, "/api/admin/rewards", admin, gin.H{
		"name": "Course Discount", "pointsCost": 100, "codeTemplate": "EDU-{code}", "quantity": 1,
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var reward model.Reward
	require.NoError(t, json.Unmarshal(resp.Data, &reward))

	redeemPath := fmt.Sprintf("/api/rewards/%d/redeem", reward.ID)
	code, resp = env.do(t, http.MethodPost, redeemPath, alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, util.ErrInsufficientPoints.Error(), resp.Message)

	code, _ = env.do(t, http.MethodPost, "/api/admin/gamification/points", admin, gin.H{
		"userId": aliceID, "amount": 150, "category": "other", "description": "bonus",
	})
	require.Equal(t, http.StatusOK, code)

	code, resp = env.do(t, http.MethodPost, redeemPath, alice, nil)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var redemption model.Redemption
	require.NoError(t, json.Unmarshal(resp.Data, &redemption))
	assert.Contains(t, redemption.RedemptionCode, "EDU-")
	assert.Equal(t, 100, redemption.PointsSpent)

	// 库存为 1，再次兑换返回冲突
	code, _ = env.do(t, http.MethodPost, redeemPath, alice, nil)
	assert.Equal(t, http.StatusConflict, code)

	verifyPath := "/api/rewards/redemptions/verify/" + redemption.RedemptionCode
	code, _ = env.do(t, http.MethodGet, verifyPath, alice, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodGet, verifyPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = env.do(t, http.MethodGet, "/api/rewards/redemptions/verify/NOPE", alice, nil)
	assert.Equal(t, http.StatusNotFound, code)

	usePath := fmt.Sprintf("/api/rewards/redemptions/%d/use", redemption.ID)
	code, _ = env.do(t, http.MethodPost, usePath, alice, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = env.do(t, http.MethodPost, usePath, admin, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodPost, usePath, admin, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestRecordEvent(t *testing.T) {
	env := newAPIEnv(t)
	aliceID, alice := env.user(t, "alice", model.Student)
	_, content := env.user(t, "content-service", model.Service)

	code, resp := env.do(t, http.MethodPost, "/api/internal/gamification/events", content,
		gin.H{"userId": aliceID, "activity": "blog", "verb": "publish"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	var result service.AwardResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 150, result.PointsAwarded)

	// 未知行为只记录日志，调用方照常收到确认
	code, resp = env.do(t, http.MethodPost, "/api/internal/gamification/events", content,
		gin.H{"userId": aliceID, "activity": "blog", "verb": "delete"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "null", string(resp.Data))

	code, _ = env.do(t, http.MethodPost, "/api/internal/gamification/events", content,
		gin.H{"activity": "blog", "verb": "publish"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = env.do(t, http.MethodGet, "/api/gamification/leaderboard?limit=5", alice, nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		List  []service.LeaderboardEntry `json:"list"`
		Total int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.List, 1)
	assert.Equal(t, 150, page.List[0].TotalPoints)
}

func TestRecordEventRejectsEndUsers(t *testing.T) {
	env := newAPIEnv(t)
	aliceID, alice := env.user(t, "alice", model.Student)
	_, teacher := env.user(t, "tina", model.Teacher)

	for i := 0; i < 3; i++ {
		code, _ := env.do(t, http.MethodPost, "/api/internal/gamification/events", alice,
			gin.H{"userId": aliceID, "activity": "blog", "verb": "publish"})
		assert.Equal(t, http.StatusForbidden, code)
	}
	code, _ := env.do(t, http.MethodPost, "/api/internal/gamification/events", teacher,
		gin.H{"userId": aliceID, "activity": "blog", "verb": "publish"})
	assert.Equal(t, http.StatusForbidden, code)

	var account model.PointsAccount
	err := env.db.Where("user_id = ?", aliceID).First(&account).Error
	if err == nil {
		assert.Zero(t, account.TotalPoints)
	} else {
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	}
}

func TestCreateBadgeValidation(t *testing.T) {
	env := newAPIEnv(t)
	_, admin := env.user(t, "admin", model.Admin)

	code, _ := env.do(t, http.MethodPost, "/api/admin/gamification/badges", admin, gin.H{"name": "Odd", "criteria": "level:zero"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, "/api/admin/gamification/badges", admin, gin.H{"name": "Streaker", "criteria": "streak:7"})
	assert.Equal(t, http.StatusCreated, code)

	code, _ = env.do(t, http.MethodPost, "/api/admin/gamification/badges", admin, gin.H{"name": "Streaker", "criteria": "streak:14"})
	assert.Equal(t, http.StatusConflict, code)
}
