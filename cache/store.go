package cache

import (
	"context"
	"errors"
	"guardbot/model"
	"time"
)

var ErrMiss = errors.New("admin cache miss")

type Op uint8

const (
	OpAdd Op = iota + 1
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// Store holds per-chat administrator snapshots.
type Store interface {
	// Get returns ErrMiss when the chat has no entry.
	Get(ctx context.Context, chatID int64) ([]model.Admin, error)
	Set(ctx context.Context, chatID int64, admins []model.Admin) error
	// Mutate returns ErrMiss and creates nothing when the chat has no entry.
	Mutate(ctx context.Context, chatID int64, op Op, admin model.Admin) error
	Delete(ctx context.Context, chatID int64) error
	Len(ctx context.Context) (int, error)
}

// Cooldown records "reload blocked until" per chat.
type Cooldown interface {
	Until(ctx context.Context, chatID int64) (time.Time, error)
	// Block records until; ttl is how long a persistent store keeps the entry.
	Block(ctx context.Context, chatID int64, until time.Time, ttl time.Duration) error
}

// Members remembers users seen in a chat; the Bot API cannot enumerate members.
type Members interface {
	Add(ctx context.Context, chatID int64, user model.Admin) error
	Remove(ctx context.Context, chatID int64, userID int64) error
	List(ctx context.Context, chatID int64) ([]model.Admin, error)
}

func apply(admins []model.Admin, op Op, admin model.Admin) []model.Admin {
	res := make([]model.Admin, 0, len(admins)+1)
	for _, a := range admins {
		if a.UserID != admin.UserID {
			res = append(res, a)
		}
	}
	if op == OpAdd {
		// keep position on rename
		for i, a := range admins {
			if a.UserID == admin.UserID {
				res = append(res[:i:i], append([]model.Admin{admin}, res[i:]...)...)
				return res
			}
		}
		res = append(res, admin)
	}
	return res
}
