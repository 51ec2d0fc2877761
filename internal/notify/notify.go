// Package notify fans notifications out to the configured transports:
// desktop popups, email, WhatsApp via Twilio, and Slack webhooks.
package notify

import (
	"context"
	"sync"

	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/pkg/models"
)

// Channel is one notification transport.
type Channel interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, n models.Notification) error
}

// Dispatcher sends one notification through every configured channel.
type Dispatcher struct {
	channels []Channel
	logger   *observability.Logger
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(logger *observability.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels, logger: logger}
}

// Channels returns the registered transports.
func (d *Dispatcher) Channels() []Channel {
	return d.channels
}

// Send delivers the notification on all configured channels in parallel and
// returns the per-channel outcome; unconfigured channels are skipped. A nil
// map value means success.
func (d *Dispatcher) Send(ctx context.Context, n models.Notification) map[string]error {
	outcomes := make(map[string]error, len(d.channels))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, ch := range d.channels {
		if !ch.IsConfigured() {
			continue
		}
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			err := ch.Send(ctx, n)
			mu.Lock()
			outcomes[ch.Name()] = err
			mu.Unlock()
			if err != nil {
				d.logger.Warn(ctx, "notification channel failed", "channel", ch.Name(), "error", err)
			}
		}(ch)
	}
	wg.Wait()

	delivered := 0
	for _, err := range outcomes {
		if err == nil {
			delivered++
		}
	}
	if delivered == 0 {
		d.logger.Warn(ctx, "no notification channel succeeded", "title", n.Title)
	} else {
		d.logger.Info(ctx, "notification delivered", "title", n.Title, "channels", delivered)
	}
	return outcomes
}
