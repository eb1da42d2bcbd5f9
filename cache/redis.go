package cache

import (
	"context"
	"encoding/json"
	"errors"
	"guardbot/model"
	"guardbot/util"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	adminCacheKeyDir  = "bot:admin_cache:"
	cooldownKeyDir    = "bot:admin_cache_cooldown:"
	chatMembersKeyDir = "bot:chat_members:"
	adminCacheTTL     = time.Second * 86400
	chatMembersTTL    = time.Second * 86400 * 30
	scanCount         = 100
)

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func adminCacheKey(chatID int64) string {
	return util.StrBuilder(adminCacheKeyDir, util.NumToStr(chatID))
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) ([]model.Admin, error) {
	res, err := s.rdb.Get(ctx, adminCacheKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var admins []model.Admin
	if err := json.Unmarshal(res, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}

func (s *RedisStore) Set(ctx context.Context, chatID int64, admins []model.Admin) error {
	return s.set(ctx, chatID, admins, adminCacheTTL)
}

func (s *RedisStore) set(ctx context.Context, chatID int64, admins []model.Admin, ttl time.Duration) error {
	if admins == nil {
		admins = []model.Admin{}
	}
	b, err := json.Marshal(admins)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, adminCacheKey(chatID), b, ttl).Err()
}

func (s *RedisStore) Mutate(ctx context.Context, chatID int64, op Op, admin model.Admin) error {
	admins, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}
	ttl, err := s.rdb.TTL(ctx, adminCacheKey(chatID)).Result()
	if err != nil || ttl <= 0 {
		ttl = adminCacheTTL
	}
	return s.set(ctx, chatID, apply(admins, op, admin), ttl)
}

func (s *RedisStore) Delete(ctx context.Context, chatID int64) error {
	return s.rdb.Del(ctx, adminCacheKey(chatID)).Err()
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	var n int
	iter := s.rdb.Scan(ctx, 0, adminCacheKeyDir+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

type RedisCooldown struct {
	rdb *redis.Client
}

func NewRedisCooldown(rdb *redis.Client) *RedisCooldown {
	return &RedisCooldown{rdb: rdb}
}

func (c *RedisCooldown) Until(ctx context.Context, chatID int64) (time.Time, error) {
	res, err := c.rdb.Get(ctx, util.StrBuilder(cooldownKeyDir, util.NumToStr(chatID))).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(res), nil
}

func (c *RedisCooldown) Block(ctx context.Context, chatID int64, until time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return c.rdb.Del(ctx, util.StrBuilder(cooldownKeyDir, util.NumToStr(chatID))).Err()
	}
	return c.rdb.Set(ctx, util.StrBuilder(cooldownKeyDir, util.NumToStr(chatID)), until.UnixMilli(), ttl).Err()
}

type RedisMembers struct {
	rdb *redis.Client
}

func NewRedisMembers(rdb *redis.Client) *RedisMembers {
	return &RedisMembers{rdb: rdb}
}

func (m *RedisMembers) Add(ctx context.Context, chatID int64, user model.Admin) error {
	key := util.StrBuilder(chatMembersKeyDir, util.NumToStr(chatID))
	pipe := m.rdb.TxPipeline()
	pipe.HSet(ctx, key, util.NumToStr(user.UserID), user.Name)
	pipe.Expire(ctx, key, chatMembersTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (m *RedisMembers) Remove(ctx context.Context, chatID int64, userID int64) error {
	return m.rdb.HDel(ctx, util.StrBuilder(chatMembersKeyDir, util.NumToStr(chatID)), util.NumToStr(userID)).Err()
}

func (m *RedisMembers) List(ctx context.Context, chatID int64) ([]model.Admin, error) {
	res, err := m.rdb.HGetAll(ctx, util.StrBuilder(chatMembersKeyDir, util.NumToStr(chatID))).Result()
	if err != nil {
		return nil, err
	}
	members := make([]model.Admin, 0, len(res))
	for k, v := range res {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		members = append(members, model.Admin{UserID: id, Name: v})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}
