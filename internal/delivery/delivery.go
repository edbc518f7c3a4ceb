// Package delivery sends rendered alerts over the configured channels.
//
// Each channel adapter implements Channel. The Dispatcher fans a message out
// to the requested channels concurrently, each with its own timeout, and
// reports a per-channel result. A channel failing never affects the others.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/albapepper/courtwatch/internal/rules"
)

// Field is a labelled line of alert detail.
type Field struct {
	Name  string
	Value string
}

// Message is a channel-neutral rendered alert.
type Message struct {
	Title     string
	Body      string
	Severity  rules.Severity
	Fields    []Field
	URL       string
	ImageURL  string
	Tag       string // stable per occurrence; lets clients collapse repeats
	Timestamp time.Time
}

// Channel is one delivery transport.
type Channel interface {
	Name() rules.Channel
	// Configured reports whether the channel can send with the given
	// settings. Unconfigured channels are skipped, not failed.
	Configured(settings rules.Settings) bool
	Send(ctx context.Context, settings rules.Settings, msg Message) error
}

// ErrNotConfigured is returned by Send when the channel lacks credentials or
// a recipient.
var ErrNotConfigured = errors.New("channel not configured")

const defaultTimeout = 10 * time.Second

// Dispatcher routes messages to channels.
type Dispatcher struct {
	channels map[rules.Channel]Channel
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channel adapters.
// Nil channels are ignored.
func NewDispatcher(timeout time.Duration, logger *slog.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	d := &Dispatcher{
		channels: make(map[rules.Channel]Channel, len(channels)),
		timeout:  timeout,
		logger:   logger,
	}
	for _, ch := range channels {
		if ch != nil {
			d.channels[ch.Name()] = ch
		}
	}
	return d
}

// Dispatch sends msg on every requested channel concurrently. Results are
// returned in request order.
func (d *Dispatcher) Dispatch(ctx context.Context, settings rules.Settings, msg Message, channels []rules.Channel) []rules.ChannelResult {
	results := make([]rules.ChannelResult, len(channels))
	var g errgroup.Group
	for i, name := range channels {
		g.Go(func() error {
			results[i] = d.send(ctx, settings, msg, name)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Test sends a fixed test message on one channel.
func (d *Dispatcher) Test(ctx context.Context, settings rules.Settings, name rules.Channel) rules.ChannelResult {
	msg := Message{
		Title:     "Test notification",
		Body:      "Delivery over " + string(name) + " is working.",
		Severity:  rules.SeverityNormal,
		Tag:       "test-" + string(name),
		Timestamp: time.Now().UTC(),
	}
	return d.send(ctx, settings, msg, name)
}

// Configured lists the channels that can currently send.
func (d *Dispatcher) Configured(settings rules.Settings) map[rules.Channel]bool {
	out := make(map[rules.Channel]bool, len(rules.Channels))
	for _, name := range rules.Channels {
		ch, ok := d.channels[name]
		out[name] = ok && ch.Configured(settings)
	}
	return out
}

func (d *Dispatcher) send(ctx context.Context, settings rules.Settings, msg Message, name rules.Channel) rules.ChannelResult {
	ch, ok := d.channels[name]
	if !ok || !ch.Configured(settings) {
		return rules.ChannelResult{Channel: name, Status: rules.OutcomeSkipped, Detail: "not_configured"}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := ch.Send(sendCtx, settings, msg)
	if errors.Is(err, ErrNotConfigured) {
		return rules.ChannelResult{Channel: name, Status: rules.OutcomeSkipped, Detail: "not_configured"}
	}
	if err != nil {
		derr := &Error{Channel: name, Kind: Classify(err), Err: err}
		d.logger.Warn("send failed", "channel", name, "kind", derr.Kind, "tag", msg.Tag, "error", derr)
		return rules.ChannelResult{Channel: name, Status: rules.OutcomeError, Detail: string(derr.Kind)}
	}
	d.logger.Debug("alert sent", "channel", name, "tag", msg.Tag, "elapsed", time.Since(start))
	return rules.ChannelResult{Channel: name, Status: rules.OutcomeSent}
}
