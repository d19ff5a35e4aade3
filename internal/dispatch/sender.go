package dispatch

import (
	"context"
	"fmt"

	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/logger"
)

// Sender delivers a rendered message over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function into a Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogSender records deliveries in the structured log. It stands in for the
// email, SMS and Kakao gateways until real providers are configured.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s == nil || s.logg == nil {
		return nil
	}
	fields := map[string]any{
		"channel":   msg.Channel,
		"recipient": maskRecipient(msg.To),
		"subject":   msg.Subject,
		"body_len":  len([]rune(msg.Body)),
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "notification delivered")
	return nil
}

// Router picks the sender registered for a message's channel.
type Router struct {
	senders map[enums.SendMethod]Sender
}

func NewRouter() *Router {
	return &Router{senders: make(map[enums.SendMethod]Sender)}
}

// Register binds sender to channel, replacing any previous binding.
func (r *Router) Register(channel enums.SendMethod, sender Sender) *Router {
	if sender != nil {
		r.senders[channel] = sender
	}
	return r
}

func (r *Router) Send(ctx context.Context, msg Message) error {
	sender, ok := r.senders[msg.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", errNoSender, msg.Channel)
	}
	return sender.Send(ctx, msg)
}

// NewLogRouter routes every channel to a LogSender.
func NewLogRouter(logg *logger.Logger) *Router {
	router := NewRouter()
	sender := NewLogSender(logg)
	for _, channel := range enums.SendMethods() {
		router.Register(channel, sender)
	}
	return router
}

func maskRecipient(to string) string {
	runes := []rune(to)
	if len(runes) <= 4 {
		return "****"
	}
	masked := make([]rune, len(runes))
	for i, r := range runes {
		if i < len(runes)-4 && r != '@' && r != '-' {
			masked[i] = '*'
			continue
		}
		masked[i] = r
	}
	return string(masked)
}
