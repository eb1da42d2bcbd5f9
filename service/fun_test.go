package service

import (
	"context"
	"errors"
	"guardbot/client"
	"guardbot/telegram/telegramtest"
	"strconv"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalc(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2+3*4", "14"},
		{"(2+3)*4", "20"},
		{"7/2", "3.5"},
		{"6/3", "2"},
		{"10 % 3", "1"},
		{"2^10", "1024"},
		{"-1.5 + 0.5", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := calc(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalcRejects(t *testing.T) {
	for _, in := range []string{"", "1/0", "2+", "os.Exit(1)", "len(\"x\")", strings.Repeat("1+", 60) + "1"} {
		_, err := calc(in)
		var ue *userError
		assert.True(t, errors.As(err, &ue), in)
	}
}

func TestCalcCommand(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/calc 1 + 2")
	assert.Equal(t, "<code>1 + 2 = 3</code>", h.lastText())
	h.say(bob, "/calc rm -rf")
	assert.Equal(t, "Only numbers and + - * / % ^ ( ) are allowed.", h.lastText())
}

func TestRoll(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 20; i++ {
		h.say(bob, "/roll 3")
		n, err := strconv.Atoi(strings.TrimPrefix(h.lastText(), "🎲 "))
		require.NoError(t, err)
		assert.True(t, n >= 1 && n <= 3, n)
	}
	h.say(bob, "/roll 1")
	assert.Contains(t, h.lastText(), "between 2 and")
}

func TestToss(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/toss")
	assert.Regexp(t, "^🪙 (Heads|Tails)$", h.lastText())
}

func TestSlap(t *testing.T) {
	h := newHarness(t)
	target := h.message(carol, "hi")
	h.replyTo(bob, target, "/slap")
	text := h.lastText()
	assert.True(t, strings.Index(text, "Bob") < strings.Index(text, "Carol"), text)

	h.say(bob, "/slap")
	assert.Contains(t, h.lastText(), "Guard")
	assert.Contains(t, h.lastText(), "Bob")
}

type fakeMemes struct {
	memes []client.Meme
	errs  []error
	calls int
}

func (f *fakeMemes) RandomMeme(context.Context) (client.Meme, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return client.Meme{}, f.errs[i]
	}
	return f.memes[i], nil
}

func TestMeme(t *testing.T) {
	h := newHarness(t)
	memes := &fakeMemes{
		errs:  []error{client.ErrNSFW, nil},
		memes: []client.Meme{{}, {Title: "gopher <3", URL: "https://i.example/gopher.png"}},
	}
	h.bot.memes = memes
	h.say(bob, "/meme")

	photos := telegramtest.CallsOf[tgbotapi.PhotoConfig](h.api)
	require.Len(t, photos, 1)
	assert.Equal(t, tgbotapi.FileURL("https://i.example/gopher.png"), photos[0].File)
	assert.Equal(t, "gopher &lt;3", photos[0].Caption)
	assert.Equal(t, 2, memes.calls)
}

func TestMemeUnavailable(t *testing.T) {
	h := newHarness(t)
	h.say(bob, "/meme")
	assert.Equal(t, "Memes are not configured.", h.lastText())

	h.bot.memes = &fakeMemes{errs: []error{errors.New("timeout")}}
	h.say(bob, "/meme")
	assert.Equal(t, "The meme source is not answering, try again later.", h.lastText())
}

func TestInlineCalc(t *testing.T) {
	h := newHarness(t)
	u := bob
	update := tgbotapi.Update{InlineQuery: &tgbotapi.InlineQuery{ID: "q1", From: &u, Query: "2*21"}}
	NewInlineQueryConfig(h.bot.NewBotConfig(context.Background(), update)).HandleInlineQuery()

	answers := telegramtest.CallsOf[tgbotapi.InlineConfig](h.api)
	require.Len(t, answers, 1)
	require.Len(t, answers[0].Results, 1)
	article := answers[0].Results[0].(tgbotapi.InlineQueryResultArticle)
	assert.Equal(t, "42", article.Title)
	assert.Equal(t, "2*21 = 42", article.Description)
}
