// Package telegramtest provides an in-memory Bot API double that records every call.
package telegramtest

import (
	"encoding/json"
	"reflect"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type HandlerFunc func(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)

type Fake struct {
	mu       sync.Mutex
	calls    []tgbotapi.Chattable
	handlers map[reflect.Type]HandlerFunc
	nextID   int
}

func New() *Fake {
	return &Fake{handlers: make(map[reflect.Type]HandlerFunc), nextID: 1000}
}

// Handle overrides the response for every call with the same concrete type as sample.
func (f *Fake) Handle(sample tgbotapi.Chattable, fn HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[reflect.TypeOf(sample)] = fn
}

func (f *Fake) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	fn := f.handlers[reflect.TypeOf(c)]
	f.mu.Unlock()
	if fn != nil {
		return fn(c)
	}
	return &tgbotapi.APIResponse{Ok: true, Result: json.RawMessage("true")}, nil
}

func (f *Fake) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	resp, err := f.Request(c)
	if err != nil {
		return tgbotapi.Message{}, err
	}
	var msg tgbotapi.Message
	if resp != nil && len(resp.Result) > 0 && resp.Result[0] == '{' {
		if err := json.Unmarshal(resp.Result, &msg); err != nil {
			return msg, err
		}
	}
	if msg.MessageID == 0 {
		f.mu.Lock()
		f.nextID++
		msg.MessageID = f.nextID
		f.mu.Unlock()
	}
	return msg, nil
}

func (f *Fake) Calls() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.calls...)
}

func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// CallsOf returns the recorded calls of type T in order.
func CallsOf[T tgbotapi.Chattable](f *Fake) []T {
	var res []T
	for _, c := range f.Calls() {
		if v, ok := c.(T); ok {
			res = append(res, v)
		}
	}
	return res
}

// Texts returns the text of every sent message.
func (f *Fake) Texts() []string {
	var res []string
	for _, m := range CallsOf[tgbotapi.MessageConfig](f) {
		res = append(res, m.Text)
	}
	return res
}

// JSON answers with the marshalled result.
func JSON(v any) HandlerFunc {
	return func(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return &tgbotapi.APIResponse{Ok: true, Result: b}, nil
	}
}

// Fail answers with a Bot API error.
func Fail(code int, description string, retryAfter int) HandlerFunc {
	return func(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
		resp := &tgbotapi.APIResponse{Ok: false, ErrorCode: code, Description: description}
		return resp, &tgbotapi.Error{
			Code:               code,
			Message:            description,
			ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: retryAfter},
		}
	}
}

// FailOnce answers the first call with a Bot API error and succeeds afterwards.
func FailOnce(code int, description string, retryAfter int) HandlerFunc {
	var once sync.Once
	fail := Fail(code, description, retryAfter)
	return func(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
		failed := false
		once.Do(func() { failed = true })
		if failed {
			return fail(c)
		}
		return &tgbotapi.APIResponse{Ok: true, Result: json.RawMessage("true")}, nil
	}
}

// Admins builds a getChatAdministrators result.
func Admins(users ...tgbotapi.User) []map[string]any {
	res := make([]map[string]any, 0, len(users))
	for i, u := range users {
		status := "administrator"
		if i == 0 {
			status = "creator"
		}
		res = append(res, map[string]any{
			"status": status,
			"user": map[string]any{
				"id":         u.ID,
				"is_bot":     u.IsBot,
				"first_name": u.FirstName,
				"last_name":  u.LastName,
				"username":   u.UserName,
			},
		})
	}
	return res
}
