package telegram

import (
	"errors"
	"time"

	tele "gopkg.in/telebot.v4"

	"dealbot/internal/transport"
)

// Classify maps a telebot error to the tagged transport.SendError
// variant. The mapping is:
//
//	403                     -> permanently blocked (bot removed/blocked)
//	429 / FloodError        -> rate limited (with retry-after hint)
//	400                     -> bad request
//	5xx                     -> server error
//	no structured response  -> network error (timeouts, connect failures)
//	anything else           -> unknown
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var fe tele.FloodError
	if errors.As(err, &fe) {
		return &transport.SendError{
			Kind:       transport.ErrRateLimited,
			Code:       429,
			RetryAfter: time.Duration(fe.RetryAfter) * time.Second,
			Cause:      err,
		}
	}

	var te *tele.Error
	if errors.As(err, &te) {
		kind := transport.ErrUnknown
		switch {
		case te.Code == 403:
			kind = transport.ErrBlocked
		case te.Code == 429:
			kind = transport.ErrRateLimited
		case te.Code == 400:
			kind = transport.ErrBadRequest
		case te.Code >= 500:
			kind = transport.ErrServer
		}
		return &transport.SendError{Kind: kind, Code: te.Code, Cause: err}
	}

	// No structured Bot API response at all: timeouts, connection
	// failures, cancelled contexts.
	return &transport.SendError{Kind: transport.ErrNetwork, Cause: err}
}
