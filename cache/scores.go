package cache

import (
	"context"
	"guardbot/model"
	"guardbot/util"
	"sort"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
)

const (
	scoreKeyDir     = "bot:game_top:"
	scoreNameKeyDir = "bot:game_top_name:"
	scoreMaxMembers = 1000
)

type Score struct {
	model.Admin
	Score float64
}

// Scores is a per-chat leaderboard.
type Scores interface {
	Incr(ctx context.Context, chatID int64, user model.Admin, delta float64) error
	Top(ctx context.Context, chatID int64, n int) ([]Score, error)
}

type MemoryScores struct {
	mu    sync.Mutex
	chats map[int64]map[int64]*Score
}

func NewMemoryScores() *MemoryScores {
	return &MemoryScores{chats: make(map[int64]map[int64]*Score)}
}

func (m *MemoryScores) Incr(_ context.Context, chatID int64, user model.Admin, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		chat = make(map[int64]*Score)
		m.chats[chatID] = chat
	}
	s, ok := chat[user.UserID]
	if !ok {
		s = &Score{Admin: user}
		chat[user.UserID] = s
	}
	s.Name = user.Name
	s.Score += delta
	return nil
}

func (m *MemoryScores) Top(_ context.Context, chatID int64, n int) ([]Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]Score, 0, len(m.chats[chatID]))
	for _, s := range m.chats[chatID] {
		res = append(res, *s)
	}
	sortScores(res)
	if len(res) > n {
		res = res[:n]
	}
	return res, nil
}

func sortScores(s []Score) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].UserID < s[j].UserID
	})
}

type RedisScores struct {
	rdb *redis.Client
}

func NewRedisScores(rdb *redis.Client) *RedisScores {
	return &RedisScores{rdb: rdb}
}

func (r *RedisScores) Incr(ctx context.Context, chatID int64, user model.Admin, delta float64) error {
	key := util.StrBuilder(scoreKeyDir, util.NumToStr(chatID))
	nameKey := util.StrBuilder(scoreNameKeyDir, util.NumToStr(chatID))
	pipe := r.rdb.TxPipeline()
	pipe.ZIncrBy(ctx, key, delta, util.NumToStr(user.UserID))
	pipe.HSet(ctx, nameKey, util.NumToStr(user.UserID), user.Name)
	pipe.Expire(ctx, key, chatMembersTTL)
	pipe.Expire(ctx, nameKey, chatMembersTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	memberTotal, err := r.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return err
	}
	if memberTotal > scoreMaxMembers {
		return r.rdb.ZRemRangeByRank(ctx, key, 0, memberTotal-scoreMaxMembers-1).Err()
	}
	return nil
}

func (r *RedisScores) Top(ctx context.Context, chatID int64, n int) ([]Score, error) {
	key := util.StrBuilder(scoreKeyDir, util.NumToStr(chatID))
	res, err := r.rdb.ZRevRangeWithScores(ctx, key, 0, int64(n)-1).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(res))
	for _, z := range res {
		ids = append(ids, z.Member.(string))
	}
	names, err := r.rdb.HMGet(ctx, util.StrBuilder(scoreNameKeyDir, util.NumToStr(chatID)), ids...).Result()
	if err != nil {
		return nil, err
	}
	top := make([]Score, 0, len(res))
	for i, z := range res {
		id, err := strconv.ParseInt(ids[i], 10, 64)
		if err != nil {
			continue
		}
		name, _ := names[i].(string)
		top = append(top, Score{Admin: model.Admin{UserID: id, Name: name}, Score: z.Score})
	}
	sortScores(top)
	return top, nil
}
