package delivery

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtwatch/internal/rules"
)

type stubChannel struct {
	name       rules.Channel
	configured bool
	err        error
	delay      time.Duration
	calls      atomic.Int32
}

func (s *stubChannel) Name() rules.Channel           { return s.name }
func (s *stubChannel) Configured(rules.Settings) bool { return s.configured }

func (s *stubChannel) Send(ctx context.Context, _ rules.Settings, _ Message) error {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	email := &stubChannel{name: rules.ChannelEmail, configured: true}
	discord := &stubChannel{name: rules.ChannelDiscord, configured: true, err: &StatusError{Code: 401}}
	telegram := &stubChannel{name: rules.ChannelTelegram, configured: false}
	d := NewDispatcher(time.Second, nil, email, discord, telegram)

	results := d.Dispatch(context.Background(), rules.Settings{}, Message{Title: "x"},
		[]rules.Channel{rules.ChannelEmail, rules.ChannelDiscord, rules.ChannelTelegram, rules.ChannelWebPush})

	require.Len(t, results, 4)
	assert.Equal(t, rules.ChannelResult{Channel: rules.ChannelEmail, Status: rules.OutcomeSent}, results[0])
	assert.Equal(t, rules.ChannelResult{Channel: rules.ChannelDiscord, Status: rules.OutcomeError, Detail: "auth"}, results[1])
	assert.Equal(t, rules.OutcomeSkipped, results[2].Status)
	assert.Equal(t, rules.OutcomeSkipped, results[3].Status, "unregistered channel is skipped")
	assert.Zero(t, telegram.calls.Load())
}

func TestDispatchAppliesPerChannelTimeout(t *testing.T) {
	slow := &stubChannel{name: rules.ChannelEmail, configured: true, delay: time.Second}
	fast := &stubChannel{name: rules.ChannelDiscord, configured: true}
	d := NewDispatcher(20*time.Millisecond, nil, slow, fast)

	start := time.Now()
	results := d.Dispatch(context.Background(), rules.Settings{}, Message{},
		[]rules.Channel{rules.ChannelEmail, rules.ChannelDiscord})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, rules.OutcomeError, results[0].Status)
	assert.Equal(t, string(KindTimeout), results[0].Detail)
	assert.Equal(t, rules.OutcomeSent, results[1].Status)
}

func TestDispatchNeverLeaksErrorText(t *testing.T) {
	ch := &stubChannel{name: rules.ChannelEmail, configured: true, err: errors.New("smtp: password hunter2 rejected")}
	d := NewDispatcher(time.Second, nil, ch)

	res := d.Dispatch(context.Background(), rules.Settings{}, Message{}, []rules.Channel{rules.ChannelEmail})
	assert.Equal(t, string(KindRejected), res[0].Detail)
	assert.NotContains(t, res[0].Detail, "hunter2")
}

func TestNotConfiguredErrorIsSkipped(t *testing.T) {
	ch := &stubChannel{name: rules.ChannelWebPush, configured: true, err: ErrNotConfigured}
	d := NewDispatcher(time.Second, nil, ch)
	res := d.Test(context.Background(), rules.Settings{}, rules.ChannelWebPush)
	assert.Equal(t, rules.OutcomeSkipped, res.Status)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), KindTimeout},
		{"net timeout", timeoutErr{}, KindTimeout},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, KindNetwork},
		{"401", &StatusError{Code: 401}, KindAuth},
		{"403", &StatusError{Code: 403}, KindAuth},
		{"429", &StatusError{Code: 429}, KindRateLimited},
		{"502", &StatusError{Code: 502}, KindNetwork},
		{"400", &StatusError{Code: 400}, KindRejected},
		{"smtp auth", &textproto.Error{Code: 535, Msg: "bad credentials"}, KindAuth},
		{"smtp busy", &textproto.Error{Code: 421, Msg: "try later"}, KindRateLimited},
		{"smtp reject", &textproto.Error{Code: 550, Msg: "no such user"}, KindRejected},
		{"explicit", &Error{Channel: rules.ChannelEmail, Kind: KindAuth, Err: errors.New("x")}, KindAuth},
		{"unknown", errors.New("boom"), KindRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestConfiguredReportsEveryChannel(t *testing.T) {
	d := NewDispatcher(time.Second, nil, NewEmail(EmailConfig{}), NewTelegram("tok", ""))
	got := d.Configured(rules.Settings{TelegramChatID: "42"})
	assert.Equal(t, map[rules.Channel]bool{
		rules.ChannelEmail:    false,
		rules.ChannelTelegram: true,
		rules.ChannelDiscord:  false,
		rules.ChannelWebPush:  false,
	}, got)
}

// --------------------------------------------------------------------------
// Adapters
// --------------------------------------------------------------------------

func TestTelegramSendsMarkdownV2(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottok/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":42}}}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "")
	tg.endpoint = srv.URL + "/bot%s/%s"

	err := tg.Send(context.Background(), rules.Settings{TelegramChatID: "42"}, Message{
		Title:    "Alcaraz d. Sinner",
		Body:     "Final score 6-4 7-6(5).",
		Severity: rules.SeverityImportant,
	})
	require.NoError(t, err)
	assert.Equal(t, "42", form["chat_id"][0])
	assert.Equal(t, "MarkdownV2", form["parse_mode"][0])
	assert.Contains(t, form["text"][0], `Alcaraz d\. Sinner`)
	assert.Contains(t, form["text"][0], `7\-6\(5\)`)
}

func TestTelegramMapsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "42")
	tg.endpoint = srv.URL + "/bot%s/%s"

	err := tg.Send(context.Background(), rules.Settings{}, Message{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, KindAuth, Classify(err))
}

func TestNilAdaptersAreUnconfigured(t *testing.T) {
	var (
		email *Email
		tg    *Telegram
		dc    *Discord
		wp    *WebPush
	)
	s := rules.Settings{NotificationEmail: "a@b.c", TelegramChatID: "1"}
	assert.False(t, email.Configured(s))
	assert.False(t, tg.Configured(s))
	assert.False(t, dc.Configured(s))
	assert.False(t, wp.Configured(s))

	d, err := NewDiscord("", "")
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestBuildEmbed(t *testing.T) {
	ts := time.Date(2026, 6, 8, 15, 0, 0, 0, time.UTC)
	e := buildEmbed(Message{
		Title:     "Upset!",
		Body:      "World no. 50 beat no. 5",
		Severity:  rules.SeverityImportant,
		Fields:    []Field{{Name: "Round", Value: "QF"}},
		ImageURL:  "https://img/p.png",
		Timestamp: ts,
	})
	assert.Equal(t, discordgo.EmbedTypeRich, e.Type)
	assert.Equal(t, colorImportant, e.Color)
	assert.Equal(t, "2026-06-08T15:00:00Z", e.Timestamp)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "QF", e.Fields[0].Value)
	assert.Equal(t, "https://img/p.png", e.Thumbnail.URL)
}

func TestEmailMessageRendering(t *testing.T) {
	e := NewEmail(EmailConfig{Host: "smtp.example.com", From: "alerts@example.com"})
	require.NotNil(t, e)

	m, err := e.buildMessage("fan@example.com", Message{
		Title:    "Match result",
		Body:     "Alcaraz d. Sinner",
		Severity: rules.SeverityImportant,
		Fields:   []Field{{Name: "Score", Value: "6-4 6-4"}},
	})
	require.NoError(t, err)

	var b strings.Builder
	_, err = m.WriteTo(&b)
	require.NoError(t, err)
	raw := b.String()
	assert.Contains(t, raw, "Subject: [Important] Match result")
	assert.Contains(t, raw, "To: <fan@example.com>")
	assert.Contains(t, raw, "Score: 6-4 6-4")
}

func TestWebPushDeliversToSubscription(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "high", r.Header.Get("Urgency"))
		assert.Contains(t, r.Header.Get("Authorization"), "vapid")
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	wp := NewWebPush(WebPushConfig{PublicKey: pub, PrivateKey: priv, Subscriber: "ops@example.com"})
	require.NotNil(t, wp)

	settings := rules.Settings{PushSubscriptions: []rules.PushSubscription{testSubscription(t, srv.URL)}}
	require.True(t, wp.Configured(settings))

	err = wp.Send(context.Background(), settings, Message{Title: "x", Severity: rules.SeverityImportant})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestWebPushReportsGoneSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	wp := NewWebPush(WebPushConfig{PublicKey: pub, PrivateKey: priv, Subscriber: "ops@example.com"})

	settings := rules.Settings{PushSubscriptions: []rules.PushSubscription{testSubscription(t, srv.URL)}}
	err = wp.Send(context.Background(), settings, Message{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, KindRejected, Classify(err))
}

func testSubscription(t *testing.T, endpoint string) rules.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return rules.PushSubscription{
		Endpoint: endpoint + "/push/abc",
		Keys: rules.PushKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	}
}
