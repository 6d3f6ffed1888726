package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // 容器镜像可能缺少 zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Tracing      TracingConfig `mapstructure:"tracing"`
	Redis        RedisConfig
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Gamification GamificationConfig `mapstructure:"gamification"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	ServiceName       string  `mapstructure:"service_name"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SampleRatio       float64 `mapstructure:"sample_ratio"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ActivityRule 描述一种内容行为对应的积分奖励
type ActivityRule struct {
	Activity      string `mapstructure:"activity" yaml:"activity"`
	Verb          string `mapstructure:"verb" yaml:"verb"`
	Points        int    `mapstructure:"points" yaml:"points"`
	Category      string `mapstructure:"category" yaml:"category"`
	ChallengeType string `mapstructure:"challenge_type" yaml:"challenge_type"`
	// MinProgress 为 0 表示不校验进度
	MinProgress float64 `mapstructure:"min_progress" yaml:"min_progress"`
	Description string  `mapstructure:"description" yaml:"description"`
}

type GamificationConfig struct {
	Timezone            string         `mapstructure:"timezone"`
	LevelBase           float64        `mapstructure:"level_base"`
	LevelExponent       float64        `mapstructure:"level_exponent"`
	StreakMilestones    []int          `mapstructure:"streak_milestones"`
	StreakHistoryDays   int            `mapstructure:"streak_history_days"`
	MaxDisplayedBadges  int            `mapstructure:"max_displayed_badges"`
	RedemptionValidDays int            `mapstructure:"redemption_valid_days"`
	CodeLength          int            `mapstructure:"code_length"`
	MaxSettleSteps      int            `mapstructure:"max_settle_steps"`
	WelcomeBadge        string         `mapstructure:"welcome_badge"`
	Activities          []ActivityRule `mapstructure:"activities"`

	// loc 由 Normalize 解析，规则快照内只解析一次
	loc *time.Location
}

// DefaultGamification 返回未配置时使用的规则
func DefaultGamification() GamificationConfig {
	return GamificationConfig{
		Timezone:            "UTC",
		LevelBase:           100,
		LevelExponent:       1.5,
		StreakMilestones:    []int{3, 7, 14, 30, 60, 100, 365},
		StreakHistoryDays:   30,
		MaxDisplayedBadges:  5,
		RedemptionValidDays: 30,
		CodeLength:          8,
		MaxSettleSteps:      64,
		WelcomeBadge:        "Welcome",
		Activities: []ActivityRule{
			{Activity: "blog", Verb: "publish", Points: 150, Category: "blog", ChallengeType: "blog_publish", Description: "Published a blog"},
			{Activity: "video", Verb: "watch_start", Points: 10, Category: "video", ChallengeType: "video_start", Description: "Started watching a video"},
			{Activity: "video", Verb: "watch_complete", Points: 25, Category: "video", ChallengeType: "video_watch", MinProgress: 90, Description: "Completed watching a video"},
			{Activity: "course", Verb: "enroll", Points: 20, Category: "course", ChallengeType: "course_enroll", Description: "Enrolled in a course"},
			{Activity: "course", Verb: "complete", Points: 100, Category: "course", ChallengeType: "course_complete", Description: "Completed a course"},
			{Activity: "quiz", Verb: "pass", Points: 50, Category: "quiz", ChallengeType: "quiz_pass", Description: "Passed a quiz"},
			{Activity: "comment", Verb: "create", Points: 5, Category: "comment", ChallengeType: "comment_create", Description: "Posted a comment"},
			{Activity: "social", Verb: "share", Points: 5, Category: "social", ChallengeType: "social_share", Description: "Shared content"},
		},
	}
}

// Normalize 用默认值补全缺失的规则项
func (g GamificationConfig) Normalize() GamificationConfig {
	def := DefaultGamification()
	if g.Timezone == "" {
		g.Timezone = def.Timezone
	}
	if g.LevelBase <= 0 {
		g.LevelBase = def.LevelBase
	}
	if g.LevelExponent <= 0 {
		g.LevelExponent = def.LevelExponent
	}
	if len(g.StreakMilestones) == 0 {
		g.StreakMilestones = def.StreakMilestones
	}
	if g.StreakHistoryDays <= 0 {
		g.StreakHistoryDays = def.StreakHistoryDays
	}
	if g.MaxDisplayedBadges <= 0 {
		g.MaxDisplayedBadges = def.MaxDisplayedBadges
	}
	if g.RedemptionValidDays <= 0 {
		g.RedemptionValidDays = def.RedemptionValidDays
	}
	if g.CodeLength <= 0 || g.CodeLength > 32 {
		g.CodeLength = def.CodeLength
	}
	if g.MaxSettleSteps <= 0 {
		g.MaxSettleSteps = def.MaxSettleSteps
	}
	if g.WelcomeBadge == "" {
		g.WelcomeBadge = def.WelcomeBadge
	}
	if len(g.Activities) == 0 {
		g.Activities = def.Activities
	}
	g.loc = loadLocation(g.Timezone)
	return g
}

// Rule 按 activity/verb 查找规则
func (g GamificationConfig) Rule(activity, verb string) (ActivityRule, bool) {
	for _, r := range g.Activities {
		if r.Activity == activity && r.Verb == verb {
			return r, true
		}
	}
	return ActivityRule{}, false
}

// Location 统一使用的时区，解析失败退回 UTC
func (g GamificationConfig) Location() *time.Location {
	if g.loc != nil {
		return g.loc
	}
	return loadLocation(g.Timezone)
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func LoadConfig(path string) (*Config, error) {
	// .env 不存在时直接读取环境变量
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("EDUCASHEER")
	v.AutomaticEnv()

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")
	v.BindEnv("tracing.sample_ratio", "TRACING_SAMPLE_RATIO")

	// Gamification
	v.BindEnv("gamification.timezone", "GAMIFICATION_TIMEZONE")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("rate_limit.max_requests", 100000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("tracing.service_name", "educasheer-gamification")
	v.SetDefault("tracing.sample_ratio", 1.0)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Gamification = cfg.Gamification.Normalize()

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if _, err := time.LoadLocation(cfg.Gamification.Timezone); err != nil {
		return nil, fmt.Errorf("invalid gamification timezone %q: %w", cfg.Gamification.Timezone, err)
	}

	return &cfg, nil
}
