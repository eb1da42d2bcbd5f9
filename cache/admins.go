package cache

import (
	"context"
	"errors"
	"fmt"
	"guardbot/model"
	"time"

	"github.com/sirupsen/logrus"
)

type Fetcher interface {
	FetchAdmins(ctx context.Context, chatID int64) ([]model.Admin, error)
}

type CooldownError struct {
	Wait time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("admin cache reload on cooldown for %v", e.Wait)
}

// Admins is the admin cache: a Store filled lazily from a Fetcher, with a
// per-chat reload cooldown.
type Admins struct {
	store    Store
	fetcher  Fetcher
	cooldown Cooldown
	window   time.Duration
	now      func() time.Time
}

func NewAdmins(store Store, fetcher Fetcher, cooldown Cooldown, window time.Duration) *Admins {
	return &Admins{
		store:    store,
		fetcher:  fetcher,
		cooldown: cooldown,
		window:   window,
		now:      time.Now,
	}
}

func (a *Admins) Get(ctx context.Context, chatID int64) ([]model.Admin, error) {
	return a.store.Get(ctx, chatID)
}

// Lookup returns the cached list, reloading on a miss.
func (a *Admins) Lookup(ctx context.Context, chatID int64) ([]model.Admin, error) {
	admins, err := a.store.Get(ctx, chatID)
	if err == nil {
		return admins, nil
	}
	if !errors.Is(err, ErrMiss) {
		logrus.Errorf("admin_cache get chat=%v err=%v", chatID, err)
	}
	return a.Reload(ctx, chatID)
}

// Reload replaces the entry with a fresh fetch. A failed fetch leaves the
// previous entry untouched.
func (a *Admins) Reload(ctx context.Context, chatID int64) ([]model.Admin, error) {
	admins, err := a.fetcher.FetchAdmins(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("fetch admins of %v: %w", chatID, err)
	}
	if err := a.store.Set(ctx, chatID, admins); err != nil {
		return admins, fmt.Errorf("store admins of %v: %w", chatID, err)
	}
	logrus.Infof("admin_cache reload chat=%v admins=%v", chatID, len(admins))
	return admins, nil
}

// RequestReload is a user-initiated reload. Unprivileged callers are subject to
// the chat cooldown and start a new window on success; privileged callers bypass it.
func (a *Admins) RequestReload(ctx context.Context, chatID int64, privileged bool) ([]model.Admin, error) {
	now := a.now()
	if !privileged {
		until, err := a.cooldown.Until(ctx, chatID)
		if err != nil {
			logrus.Errorf("admin_cache cooldown chat=%v err=%v", chatID, err)
		}
		if now.Before(until) {
			return nil, &CooldownError{Wait: until.Sub(now)}
		}
	}
	admins, err := a.Reload(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !privileged && a.window > 0 {
		if err := a.cooldown.Block(ctx, chatID, now.Add(a.window), a.window); err != nil {
			logrus.Errorf("admin_cache cooldown chat=%v err=%v", chatID, err)
		}
	}
	return admins, nil
}

func (a *Admins) Mutate(ctx context.Context, chatID int64, op Op, admin model.Admin) error {
	err := a.store.Mutate(ctx, chatID, op, admin)
	if err == nil {
		logrus.Infof("admin_cache %v chat=%v user=%v", op, chatID, admin.UserID)
	}
	return err
}

// Invalidate drops the chat's entry so the next Lookup fetches a fresh list.
func (a *Admins) Invalidate(ctx context.Context, chatID int64) error {
	if err := a.store.Delete(ctx, chatID); err != nil {
		return err
	}
	logrus.Infof("admin_cache invalidate chat=%v", chatID)
	return nil
}

func (a *Admins) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	admins, err := a.Lookup(ctx, chatID)
	if err != nil {
		return false, err
	}
	for _, admin := range admins {
		if admin.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (a *Admins) Chats(ctx context.Context) (int, error) {
	return a.store.Len(ctx)
}
