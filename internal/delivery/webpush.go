package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/albapepper/courtwatch/internal/rules"
)

// WebPushConfig holds VAPID credentials.
type WebPushConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string // mailto: or https: contact sent in the VAPID claim
	TTL        int
}

// WebPush sends browser push notifications to every saved subscription.
// Nil-safe: a nil *WebPush is never configured.
type WebPush struct {
	cfg    WebPushConfig
	client webpush.HTTPClient
}

// NewWebPush creates a web push channel. Returns nil without VAPID keys.
func NewWebPush(cfg WebPushConfig) *WebPush {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 3600
	}
	return &WebPush{cfg: cfg, client: &http.Client{}}
}

func (p *WebPush) Name() rules.Channel { return rules.ChannelWebPush }

func (p *WebPush) Configured(settings rules.Settings) bool {
	return p != nil && len(settings.PushSubscriptions) > 0
}

type pushPayload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Tag      string `json:"tag,omitempty"`
	URL      string `json:"url,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Severity string `json:"severity"`
}

// Send pushes to each subscription. The send counts as delivered when at
// least one subscription accepts it.
func (p *WebPush) Send(ctx context.Context, settings rules.Settings, msg Message) error {
	if !p.Configured(settings) {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(pushPayload{
		Title:    msg.Title,
		Body:     msg.Body,
		Tag:      msg.Tag,
		URL:      msg.URL,
		Icon:     msg.ImageURL,
		Severity: string(msg.Severity),
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	urgency := webpush.UrgencyNormal
	switch msg.Severity {
	case rules.SeverityImportant:
		urgency = webpush.UrgencyHigh
	case rules.SeverityDigest:
		urgency = webpush.UrgencyLow
	}

	var errs []error
	for _, sub := range settings.PushSubscriptions {
		err := p.push(ctx, payload, sub, urgency)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *WebPush) push(ctx context.Context, payload []byte, sub rules.PushSubscription, urgency webpush.Urgency) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}, &webpush.Options{
		HTTPClient:      p.client,
		Subscriber:      p.cfg.Subscriber,
		TTL:             p.cfg.TTL,
		Urgency:         urgency,
		VAPIDPublicKey:  p.cfg.PublicKey,
		VAPIDPrivateKey: p.cfg.PrivateKey,
	})
	if err != nil {
		return fmt.Errorf("web push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("web push: %w", &StatusError{Code: resp.StatusCode, Body: string(body)})
	}
	return nil
}
