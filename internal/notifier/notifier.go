// Package notifier delivers status messages to chat channels.
//
// A Fanout has one primary channel, whose success decides whether a message
// counts as delivered, and any number of mirror channels that receive a copy
// on a best-effort basis.
package notifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Notifier sends a text message to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, text string) error
}

// Delivery is the outcome of sending one message through a Fanout.
type Delivery struct {
	Delivered []string
	Failed    map[string]error
	// PrimaryErr is set when the primary channel failed.
	PrimaryErr error
}

// OK reports whether the primary channel accepted the message.
func (d Delivery) OK() bool {
	return d.PrimaryErr == nil
}

// Fanout sends every message to a primary notifier and its mirrors.
type Fanout struct {
	primary Notifier
	mirrors []Notifier
	logger  *zap.Logger
	secrets []string
}

// NewFanout creates a Fanout.
func NewFanout(logger *zap.Logger, primary Notifier, mirrors ...Notifier) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{primary: primary, mirrors: mirrors, logger: logger}
}

// RedactSecrets registers values that are masked in delivery errors before
// they are logged or returned.
func (f *Fanout) RedactSecrets(secrets ...string) {
	for _, s := range secrets {
		if s != "" {
			f.secrets = append(f.secrets, s)
		}
	}
}

// Channels lists channel names, primary first.
func (f *Fanout) Channels() []string {
	names := []string{f.primary.Name()}
	for _, m := range f.mirrors {
		names = append(names, m.Name())
	}
	return names
}

// Deliver sends text to every channel. Failures are logged and returned in
// the Delivery, never as a panic or early exit.
func (f *Fanout) Deliver(ctx context.Context, text string) Delivery {
	d := Delivery{Failed: map[string]error{}}

	send := func(n Notifier) error {
		f.logger.Debug("sending message", zap.String("channel", n.Name()), zap.String("text", text))
		if err := n.Notify(ctx, text); err != nil {
			err = f.redact(fmt.Errorf("%s: %w", n.Name(), err))
			d.Failed[n.Name()] = err
			f.logger.Error("failed to send message", zap.String("channel", n.Name()), zap.Error(err))
			return err
		}
		d.Delivered = append(d.Delivered, n.Name())
		f.logger.Debug("message sent", zap.String("channel", n.Name()))
		return nil
	}

	d.PrimaryErr = send(f.primary)
	for _, m := range f.mirrors {
		_ = send(m)
	}
	return d
}

func (f *Fanout) redact(err error) error {
	msg := err.Error()
	masked := msg
	for _, s := range f.secrets {
		masked = strings.ReplaceAll(masked, s, "[REDACTED]")
	}
	if masked == msg {
		return err
	}
	return &redactedError{msg: masked, err: err}
}

// redactedError keeps the wrapped chain for errors.Is while hiding secrets
// from the message.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
