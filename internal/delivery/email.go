package delivery

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/albapepper/courtwatch/internal/rules"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// StartTLS requires TLS; otherwise TLS is opportunistic.
	StartTLS bool
	Timeout  time.Duration
}

// Email delivers alerts over SMTP. Nil-safe: a nil *Email is never
// configured.
type Email struct {
	cfg EmailConfig
}

// NewEmail creates an SMTP channel. Returns nil if no host is configured.
func NewEmail(cfg EmailConfig) *Email {
	if cfg.Host == "" || cfg.From == "" {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Email{cfg: cfg}
}

func (e *Email) Name() rules.Channel { return rules.ChannelEmail }

func (e *Email) Configured(settings rules.Settings) bool {
	return e != nil && settings.NotificationEmail != ""
}

func (e *Email) Send(ctx context.Context, settings rules.Settings, msg Message) error {
	if !e.Configured(settings) {
		return ErrNotConfigured
	}

	m, err := e.buildMessage(settings.NotificationEmail, msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if e.cfg.StartTLS {
		opts[1] = mail.WithTLSPolicy(mail.TLSMandatory)
	}
	if e.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.cfg.Username),
			mail.WithPassword(e.cfg.Password),
		)
	}
	if e.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(e.cfg.Timeout))
	}

	client, err := mail.NewClient(e.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (e *Email) buildMessage(to string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(e.cfg.From); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	m.Subject(subjectPrefix(msg.Severity) + msg.Title)
	m.SetDate()
	m.SetMessageID()
	if msg.Severity == rules.SeverityImportant {
		m.SetImportance(mail.ImportanceHigh)
	}

	m.SetBodyString(mail.TypeTextPlain, plainBody(msg))
	var html strings.Builder
	if err := emailTemplate.Execute(&html, msg); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	m.AddAlternativeString(mail.TypeTextHTML, html.String())
	return m, nil
}

func subjectPrefix(s rules.Severity) string {
	switch s {
	case rules.SeverityImportant:
		return "[Important] "
	case rules.SeverityDigest:
		return "[Digest] "
	}
	return ""
}

func plainBody(msg Message) string {
	var b strings.Builder
	b.WriteString(msg.Body)
	b.WriteString("\n")
	for _, f := range msg.Fields {
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	if msg.URL != "" {
		b.WriteString("\n\n" + msg.URL)
	}
	return b.String()
}

var emailTemplate = template.Must(template.New("alert").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>{{.Title}}</h2>
<p>{{.Body}}</p>
{{if .Fields}}<table>{{range .Fields}}
<tr><td style="color:#666;padding-right:12px">{{.Name}}</td><td>{{.Value}}</td></tr>{{end}}
</table>{{end}}
{{if .URL}}<p><a href="{{.URL}}">Details</a></p>{{end}}
</body></html>`))
