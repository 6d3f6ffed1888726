package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/controller"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/repository"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/service"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/configwatcher"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/database"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/logger"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/monitoring"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/security"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	scheduler       gocron.Scheduler
	tracer          *sdktrace.TracerProvider
	cancelWatch     context.CancelFunc
	configCallbacks []func(*config.Config)
}

type services struct {
	engine     *service.Engine
	points     *service.PointsService
	streaks    *service.StreakService
	badges     *service.BadgeService
	challenges *service.ChallengeService
	rewards    *service.RewardService
	activity   *service.ActivityService
	onboarding *service.OnboardingService
	profile    *service.ProfileService
}

type controllers struct {
	gamification *controller.GamificationController
	badge        *controller.BadgeController
	challenge    *controller.ChallengeController
	reward       *controller.RewardController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	engine := service.NewEngine(db, cfg.Gamification, repository.NewLeaderboardCache(rdb))

	s := &services{engine: engine}
	s.points = service.NewPointsService(engine)
	s.streaks = service.NewStreakService(engine)
	s.badges = service.NewBadgeService(engine)
	s.challenges = service.NewChallengeService(engine)
	s.rewards = service.NewRewardService(engine)
	s.activity = service.NewActivityService(engine)
	s.onboarding = service.NewOnboardingService(engine)
	s.profile = service.NewProfileService(engine, s.points, s.streaks, s.badges, s.challenges)
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		gamification: controller.NewGamificationController(s.profile, s.points, s.streaks, s.badges, s.challenges, s.activity, s.onboarding),
		badge:        controller.NewBadgeController(s.badges),
		challenge:    controller.NewChallengeController(s.challenges),
		reward:       controller.NewRewardController(s.rewards),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 挑战过期下线每分钟一次；启用 Redis 时定期用数据库重建排行榜
func (a *App) startBackgroundTasks(s *services) error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.challenges.RunLifecycle(ctx); err != nil {
				logger.Log.Error("challenge lifecycle error", zap.Error(err))
			}
		}),
		gocron.WithName("challenge-lifecycle"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	if a.Redis != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(10*time.Minute),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				if err := s.profile.RebuildLeaderboard(ctx); err != nil {
					logger.Log.Error("leaderboard rebuild error", zap.Error(err))
				}
			}),
			gocron.WithName("leaderboard-rebuild"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return err
		}
	}

	sched.Start()
	a.scheduler = sched
	return nil
}

// watchConfig 配置文件变更时热更新积分规则
func (a *App) watchConfig() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelWatch = cancel

	go func() {
		err := configwatcher.WatchConfig(ctx, configDir+"/config.yaml", func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// debug 模式默认迁移，release 模式需要 -migrate
	if cfg.ForceMigrate || cfg.Server.Mode == "debug" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			// 排行榜缓存可选，连接失败时退回数据库查询
			logger.Log.Warn("Redis unavailable, leaderboard cache disabled", zap.Error(err))
		} else {
			app.Redis = rdb
		}
	}

	services := app.initServices(cfg, db, app.Redis)
	app.services = services
	controllers := app.initControllers(services, db, app.Redis)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.activity.UpdateRules(newCfg.Gamification)
	})
	app.watchConfig()

	if err := app.startBackgroundTasks(services); err != nil {
		logger.Log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	if a.cancelWatch != nil {
		a.cancelWatch()
	}
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(); err != nil {
			logger.Log.Error("Failed to shutdown scheduler", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
