// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package telegram implements message delivery over the Telegram Bot API.
package telegram

import (
	"context"
	"net/http"
	"strings"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/sender"
	"go.astrophena.name/wirefeed/internal/request"
)

// DefaultAPIURL is the Telegram Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Config configures a Telegram sender.
type Config struct {
	ChatID string
	Token  string
	// APIURL overrides DefaultAPIURL.
	APIURL     string
	HTTPClient *http.Client
	// Scrubber, if nil, is built to hide Token.
	Scrubber *strings.Replacer
}

// Sender sends messages via the Telegram Bot API. Every Send is a single
// request; failures are returned and never retried.
type Sender struct {
	chatID      string
	token       string
	apiURL      string
	httpc       *http.Client
	scrubber    *strings.Replacer
	makeRequest func(context.Context, string, any) error
}

var _ sender.Sender = (*Sender)(nil)

// New returns a Telegram sender configured for a specific chat.
func New(cfg Config) *Sender {
	s := &Sender{
		chatID:   cfg.ChatID,
		token:    cfg.Token,
		apiURL:   strings.TrimSuffix(cfg.APIURL, "/"),
		httpc:    cfg.HTTPClient,
		scrubber: cfg.Scrubber,
	}
	if s.apiURL == "" {
		s.apiURL = DefaultAPIURL
	}
	if s.httpc == nil {
		s.httpc = request.DefaultClient
	}
	if s.scrubber == nil {
		s.scrubber = Scrubber(cfg.Token)
	}
	s.makeRequest = s.makeTelegramRequest
	return s
}

// Scrubber returns a replacer hiding token in error messages.
func Scrubber(token string) *strings.Replacer {
	if token == "" {
		return strings.NewReplacer()
	}
	return strings.NewReplacer(token, "[EXPUNGED]")
}

type message struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send sends msg as HTML.
func (s *Sender) Send(ctx context.Context, msg sender.Message) error {
	return s.makeRequest(ctx, "sendMessage", &message{
		ChatID:                s.chatID,
		Text:                  msg.Text,
		ParseMode:             "HTML",
		DisableWebPagePreview: msg.DisableLinkPreview,
	})
}

func (s *Sender) makeTelegramRequest(ctx context.Context, method string, args any) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method:     http.MethodPost,
		URL:        s.apiURL + "/bot" + s.token + "/" + method,
		Body:       args,
		HTTPClient: s.httpc,
		Scrubber:   s.scrubber,
	})
	return err
}
