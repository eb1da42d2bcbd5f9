package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitly/go-simplejson"
)

const maxResponseSize = 1 << 20

var ErrNSFW = errors.New("meme is marked nsfw")

type Request struct {
	Url     string
	Method  string
	Body    string
	Heads   map[string]string
	TimeOut time.Duration
	Client  *http.Client
}

func NewRequest(url string, method string) *Request {
	return &Request{Url: url, Method: method, TimeOut: 5 * time.Second}
}

func (h Request) Do(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, h.Method, h.Url, strings.NewReader(h.Body))
	if err != nil {
		return nil, err
	}
	for k, v := range h.Heads {
		req.Header.Set(k, v)
	}
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: h.TimeOut}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	res, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return res, fmt.Errorf("%s %s: status %d", h.Method, h.Url, resp.StatusCode)
	}
	return res, nil
}

type Meme struct {
	Title string
	URL   string
}

// MemeAPI fetches random memes from a meme-api compatible /gimme endpoint.
type MemeAPI struct {
	url    string
	client *http.Client
}

func NewMemeAPI(url string, client *http.Client) *MemeAPI {
	return &MemeAPI{url: url, client: client}
}

func (m *MemeAPI) RandomMeme(ctx context.Context) (Meme, error) {
	req := NewRequest(m.url, http.MethodGet)
	req.Client = m.client
	res, err := req.Do(ctx)
	if err != nil {
		return Meme{}, fmt.Errorf("fetch meme: %w", err)
	}
	resJson, err := simplejson.NewJson(res)
	if err != nil {
		return Meme{}, fmt.Errorf("decode meme: %w", err)
	}
	meme := Meme{
		Title: resJson.Get("title").MustString(),
		URL:   resJson.Get("url").MustString(),
	}
	if meme.URL == "" {
		return Meme{}, fmt.Errorf("decode meme: missing url")
	}
	if resJson.Get("nsfw").MustBool() {
		return Meme{}, ErrNSFW
	}
	return meme, nil
}
