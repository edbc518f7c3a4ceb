package rules

import (
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PushKeys are the base64url keys of a browser push subscription.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is a browser PushSubscription as serialized by the Push
// API.
type PushSubscription struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}

// Settings holds the per-install delivery targets.
type Settings struct {
	NotificationEmail string             `json:"notification_email,omitempty"`
	TelegramChatID    string             `json:"telegram_chat_id,omitempty"`
	PushSubscriptions []PushSubscription `json:"push_subscriptions,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at,omitzero"`
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.PushSubscriptions = append([]PushSubscription(nil), s.PushSubscriptions...)
	return out
}

// ValidateSettings checks delivery targets. Empty fields are allowed; they
// leave the channel unconfigured.
func ValidateSettings(s *Settings) error {
	var v validator
	if s.NotificationEmail != "" {
		if _, err := mail.ParseAddress(s.NotificationEmail); err != nil {
			v.add("notification_email is not a valid address")
		}
	}
	if s.TelegramChatID != "" {
		id := strings.TrimSpace(s.TelegramChatID)
		if _, err := strconv.ParseInt(id, 10, 64); err != nil && !strings.HasPrefix(id, "@") {
			v.add("telegram_chat_id must be numeric or an @channel name")
		}
	}
	for i, sub := range s.PushSubscriptions {
		u, err := url.Parse(sub.Endpoint)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			v.add("push subscription %d: endpoint must be an https URL", i+1)
		}
		if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
			v.add("push subscription %d: keys.p256dh and keys.auth are required", i+1)
		}
	}
	return v.err()
}
