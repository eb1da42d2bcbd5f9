package app

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen map[int64][]int
}

func (r *recorder) handle(_ context.Context, update tgbotapi.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat := update.Message.Chat.ID
	r.seen[chat] = append(r.seen[chat], update.Message.MessageID)
}

func newTestDispatcher(r *recorder) *dispatcher {
	return &dispatcher{chats: make(map[int64]chatChannel), handle: r.handle}
}

func msgUpdate(chatID int64, id int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: id,
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "supergroup"},
	}}
}

func TestDispatcherKeepsPerChatOrder(t *testing.T) {
	r := &recorder{seen: make(map[int64][]int)}
	d := newTestDispatcher(r)
	updates := make(chan tgbotapi.Update, 100)
	for i := 1; i <= 30; i++ {
		updates <- msgUpdate(-1, i)
		updates <- msgUpdate(-2, i)
	}
	// a chat-less update is dropped
	updates <- tgbotapi.Update{}
	close(updates)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.run(ctx, updates)
		close(done)
	}()
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.seen[-1]) == 30 && len(r.seen[-2]) == 30
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	want := make([]int, 30)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, r.seen[-1])
	assert.Equal(t, want, r.seen[-2])
}

func TestDispatcherClosesIdleHandlers(t *testing.T) {
	r := &recorder{seen: make(map[int64][]int)}
	d := newTestDispatcher(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chatChannel, 1)
	d.chats[-1] = ch
	d.wg.Add(1)
	go d.chatHandler(ctx, -1, ch, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		_, ok := d.chats[-1]
		return !ok
	}, 5*time.Second, 5*time.Millisecond)
	d.wg.Wait()

	// the next update starts a fresh handler
	d.dispatch(ctx, msgUpdate(-1, 7))
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.seen[-1]) == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestTryCloseKeepsBusyHandler(t *testing.T) {
	d := newTestDispatcher(&recorder{seen: make(map[int64][]int)})
	ch := make(chatChannel, 1)
	d.chats[-1] = ch
	ch <- msgUpdate(-1, 1)
	assert.False(t, d.tryClose(-1, ch))

	<-ch
	d.mu.Lock()
	assert.False(t, d.tryClose(-1, ch))
	d.mu.Unlock()

	assert.True(t, d.tryClose(-1, ch))
	assert.Empty(t, d.chats)
}
