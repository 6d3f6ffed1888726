package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const leaderboardKey = "leaderboard:points"

// 分数编码为 total*levelScale + level，总积分相同时按等级排序
const levelScale = 10000

// CachedRank 缓存中的一条排行记录
type CachedRank struct {
	UserID      uint
	TotalPoints int
	Level       int
	Rank        int64
}

// LeaderboardCache 基于 Redis 有序集合的排行榜缓存。
// 接收者为 nil 时所有方法都是空操作，调用方退回数据库查询。
type LeaderboardCache struct {
	Client *redis.Client
	Key    string
}

func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	if client == nil {
		return nil
	}
	return &LeaderboardCache{Client: client, Key: leaderboardKey}
}

func encodeScore(total, level int) float64 {
	return float64(total)*levelScale + float64(level)
}

func decodeScore(score float64) (total, level int) {
	v := int64(score)
	return int(v / levelScale), int(v % levelScale)
}

func (c *LeaderboardCache) Enabled() bool {
	return c != nil && c.Client != nil
}

// Set 写入或更新用户分数
func (c *LeaderboardCache) Set(ctx context.Context, userID uint, total, level int) error {
	if !c.Enabled() {
		return nil
	}
	return c.Client.ZAdd(ctx, c.Key, &redis.Z{
		Score:  encodeScore(total, level),
		Member: strconv.FormatUint(uint64(userID), 10),
	}).Err()
}

// Rank 返回 1 起始的名次，用户不在缓存中时 ok 为 false
func (c *LeaderboardCache) Rank(ctx context.Context, userID uint) (rank int64, ok bool, err error) {
	if !c.Enabled() {
		return 0, false, nil
	}
	r, err := c.Client.ZRevRank(ctx, c.Key, strconv.FormatUint(uint64(userID), 10)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return r + 1, true, nil
}

// Page 按分数倒序分页
func (c *LeaderboardCache) Page(ctx context.Context, offset, limit int) ([]CachedRank, int64, error) {
	if !c.Enabled() {
		return nil, 0, nil
	}
	total, err := c.Client.ZCard(ctx, c.Key).Result()
	if err != nil {
		return nil, 0, err
	}
	zs, err := c.Client.ZRevRangeWithScores(ctx, c.Key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, err
	}

	ranks := make([]CachedRank, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		t, l := decodeScore(z.Score)
		ranks = append(ranks, CachedRank{
			UserID:      uint(id),
			TotalPoints: t,
			Level:       l,
			Rank:        int64(offset + i + 1),
		})
	}
	return ranks, total, nil
}

// Rebuild 用数据库全量结果替换缓存
func (c *LeaderboardCache) Rebuild(ctx context.Context, rows []LeaderboardRow) error {
	if !c.Enabled() {
		return nil
	}
	tmpKey := c.Key + ":rebuild"
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tmpKey)
		for start := 0; start < len(rows); start += 500 {
			end := start + 500
			if end > len(rows) {
				end = len(rows)
			}
			members := make([]*redis.Z, 0, end-start)
			for _, row := range rows[start:end] {
				members = append(members, &redis.Z{
					Score:  encodeScore(row.TotalPoints, row.Level),
					Member: strconv.FormatUint(uint64(row.UserID), 10),
				})
			}
			pipe.ZAdd(ctx, tmpKey, members...)
		}
		if len(rows) == 0 {
			pipe.Del(ctx, c.Key)
			return nil
		}
		pipe.Rename(ctx, tmpKey, c.Key)
		return nil
	})
	return err
}
