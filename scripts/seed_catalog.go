// 导入初始的徽章、挑战和奖励目录
//
// 同名条目已存在时跳过，可以重复执行。
//
// 用法: go run scripts/seed_catalog.go [-catalog configs/catalog.yaml]

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/Musavirkhaliq/Educasheer-sub003/internal/config"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/repository"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/service"
	"github.com/Musavirkhaliq/Educasheer-sub003/internal/util"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/database"
	"github.com/Musavirkhaliq/Educasheer-sub003/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type catalog struct {
	Badges []struct {
		Name          string `yaml:"name"`
		Description   string `yaml:"description"`
		Icon          string `yaml:"icon"`
		Category      string `yaml:"category"`
		Level         int    `yaml:"level"`
		PointsAwarded int    `yaml:"points_awarded"`
		Criteria      string `yaml:"criteria"`
		Hidden        bool   `yaml:"hidden"`
	} `yaml:"badges"`
	Challenges []struct {
		Title        string `yaml:"title"`
		Description  string `yaml:"description"`
		Type         string `yaml:"type"`
		ActivityType string `yaml:"activity_type"`
		TargetCount  int    `yaml:"target_count"`
		RewardPoints int    `yaml:"reward_points"`
		RewardBadge  string `yaml:"reward_badge"`
		DurationDays int    `yaml:"duration_days"`
	} `yaml:"challenges"`
	Rewards []struct {
		Name         string `yaml:"name"`
		Description  string `yaml:"description"`
		PointsCost   int    `yaml:"points_cost"`
		Category     string `yaml:"category"`
		Image        string `yaml:"image"`
		CodeTemplate string `yaml:"code_template"`
		Quantity     int    `yaml:"quantity"`
		ValidDays    int    `yaml:"valid_days"`
	} `yaml:"rewards"`
}

func main() {
	catalogPath := flag.String("catalog", "configs/catalog.yaml", "目录文件")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	data, err := os.ReadFile(*catalogPath)
	if err != nil {
		log.Fatalf("无法读取目录文件: %v", err)
	}
	var cat catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		log.Fatalf("解析目录文件失败: %v", err)
	}

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	ctx := context.Background()
	engine := service.NewEngine(db, cfg.Gamification, nil)
	badges := service.NewBadgeService(engine)
	challenges := service.NewChallengeService(engine)
	rewards := service.NewRewardService(engine)
	now := engine.Now()

	badgeIDs := map[string]uint{}
	for _, b := range cat.Badges {
		badge, err := badges.CreateBadge(ctx, service.BadgeRequest{
			Name:          b.Name,
			Description:   b.Description,
			Icon:          b.Icon,
			Category:      b.Category,
			Level:         b.Level,
			PointsAwarded: b.PointsAwarded,
			Criteria:      b.Criteria,
			IsHidden:      b.Hidden,
		})
		if errors.Is(err, util.ErrDuplicateBadgeName) {
			logger.Log.Info("徽章已存在，跳过", zap.String("name", b.Name))
			continue
		}
		if err != nil {
			log.Fatalf("创建徽章 %s 失败: %v", b.Name, err)
		}
		badgeIDs[badge.Name] = badge.ID
	}
	existingBadges, err := badges.ListBadges(ctx, true)
	if err != nil {
		log.Fatalf("读取徽章失败: %v", err)
	}
	for _, b := range existingBadges {
		badgeIDs[b.Name] = b.ID
	}

	existing, err := challenges.ListChallenges(ctx, repository.ChallengeFilter{})
	if err != nil {
		log.Fatalf("读取挑战失败: %v", err)
	}
	titles := map[string]bool{}
	for _, c := range existing {
		titles[c.Title] = true
	}
	for _, c := range cat.Challenges {
		if titles[c.Title] {
			logger.Log.Info("挑战已存在，跳过", zap.String("title", c.Title))
			continue
		}
		req := service.ChallengeRequest{
			Title:        c.Title,
			Description:  c.Description,
			Type:         c.Type,
			ActivityType: c.ActivityType,
			TargetCount:  c.TargetCount,
			RewardPoints: c.RewardPoints,
			StartDate:    now,
			EndDate:      now.AddDate(0, 0, c.DurationDays),
		}
		if c.RewardBadge != "" {
			id, ok := badgeIDs[c.RewardBadge]
			if !ok {
				log.Fatalf("挑战 %s 的奖励徽章 %s 不存在", c.Title, c.RewardBadge)
			}
			req.RewardBadgeID = &id
		}
		if _, err := challenges.CreateChallenge(ctx, req); err != nil {
			log.Fatalf("创建挑战 %s 失败: %v", c.Title, err)
		}
	}

	for _, r := range cat.Rewards {
		quantity := r.Quantity
		req := service.RewardRequest{
			Name:         r.Name,
			Description:  r.Description,
			PointsCost:   r.PointsCost,
			Category:     r.Category,
			Image:        r.Image,
			CodeTemplate: r.CodeTemplate,
			Quantity:     &quantity,
		}
		if r.ValidDays > 0 {
			until := now.Add(time.Duration(r.ValidDays) * 24 * time.Hour)
			req.ValidUntil = &until
		}
		_, err := rewards.CreateReward(ctx, req)
		if errors.Is(err, util.ErrDuplicateRewardName) {
			logger.Log.Info("奖励已存在，跳过", zap.String("name", r.Name))
			continue
		}
		if err != nil {
			log.Fatalf("创建奖励 %s 失败: %v", r.Name, err)
		}
	}

	log.Println("完成！")
}
