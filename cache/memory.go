package cache

import (
	"context"
	"guardbot/model"
	"sync"
	"time"
)

type MemoryStore struct {
	mu    sync.RWMutex
	chats map[int64][]model.Admin
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chats: make(map[int64][]model.Admin)}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) ([]model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admins, ok := s.chats[chatID]
	if !ok {
		return nil, ErrMiss
	}
	return append([]model.Admin(nil), admins...), nil
}

func (s *MemoryStore) Set(_ context.Context, chatID int64, admins []model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = append(make([]model.Admin, 0, len(admins)), admins...)
	return nil
}

func (s *MemoryStore) Mutate(_ context.Context, chatID int64, op Op, admin model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	admins, ok := s.chats[chatID]
	if !ok {
		return ErrMiss
	}
	s.chats[chatID] = apply(admins, op, admin)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
	return nil
}

func (s *MemoryStore) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats), nil
}

type MemoryCooldown struct {
	mu    sync.Mutex
	until map[int64]time.Time
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{until: make(map[int64]time.Time)}
}

func (c *MemoryCooldown) Until(_ context.Context, chatID int64) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.until[chatID], nil
}

func (c *MemoryCooldown) Block(_ context.Context, chatID int64, until time.Time, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until[chatID] = until
	return nil
}

type MemoryMembers struct {
	mu    sync.Mutex
	chats map[int64][]model.Admin
}

func NewMemoryMembers() *MemoryMembers {
	return &MemoryMembers{chats: make(map[int64][]model.Admin)}
}

func (m *MemoryMembers) Add(_ context.Context, chatID int64, user model.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chatID] = apply(m.chats[chatID], OpAdd, user)
	return nil
}

func (m *MemoryMembers) Remove(_ context.Context, chatID int64, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chatID] = apply(m.chats[chatID], OpRemove, model.Admin{UserID: userID})
	return nil
}

func (m *MemoryMembers) List(_ context.Context, chatID int64) ([]model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Admin(nil), m.chats[chatID]...), nil
}
