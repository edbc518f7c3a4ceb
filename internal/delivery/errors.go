package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/textproto"
	"os"

	"github.com/albapepper/courtwatch/internal/rules"
)

// Kind is a sanitized failure class shown to users instead of raw error
// text.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindAuth        Kind = "auth"
	KindRateLimited Kind = "rate_limited"
	KindNetwork     Kind = "network"
	KindRejected    Kind = "rejected"
)

// Error is a failed send on one channel.
type Error struct {
	Channel rules.Channel
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s send failed (%s): %v", e.Channel, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError is an HTTP status returned by a channel's upstream API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Code, e.Body)
}

// Classify maps err onto a Kind.
func Classify(err error) Kind {
	var de *Error
	if errors.As(err, &de) && de.Kind != "" {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var se *StatusError
	if errors.As(err, &se) {
		return classifyStatus(se.Code)
	}
	var tp *textproto.Error
	if errors.As(err, &tp) {
		switch {
		case tp.Code == 530 || tp.Code == 534 || tp.Code == 535:
			return KindAuth
		case tp.Code == 421 || tp.Code == 450 || tp.Code == 451 || tp.Code == 452:
			return KindRateLimited
		}
		return KindRejected
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return KindNetwork
	}
	return KindRejected
}

func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindNetwork
	}
	return KindRejected
}
