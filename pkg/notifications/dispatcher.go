package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/clientbill/pkg/async"
	"github.com/platinummonkey/clientbill/pkg/clients"
	"github.com/platinummonkey/clientbill/pkg/observability"
)

// ContactLookup resolves the client a notification targets
type ContactLookup interface {
	GetClient(ctx context.Context, orgID, id int64) (*clients.Client, error)
}

// ChannelConfig holds channel credentials. Empty credentials disable the channel.
type ChannelConfig struct {
	ResendAPIKey  string
	ResendBaseURL string
	EmailFrom     string
	WhatsAppURL   string
	WhatsAppToken string
	HTTPClient    *http.Client
}

// NewChannels builds the configured channels; a disabled channel is returned as nil
func NewChannels(cfg ChannelConfig) (email, whatsapp Channel) {
	if cfg.ResendAPIKey != "" {
		email = NewEmailChannel(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.EmailFrom, cfg.HTTPClient)
	}
	if cfg.WhatsAppURL != "" {
		whatsapp = NewWhatsAppChannel(cfg.WhatsAppURL, cfg.WhatsAppToken, cfg.HTTPClient)
	}
	return email, whatsapp
}

// DispatcherOptions configures a Dispatcher
type DispatcherOptions struct {
	Email    Channel
	WhatsApp Channel
	Retry    RetryConfig
	Workers  int
	Timeout  time.Duration
	Metrics  *observability.Metrics
	Logger   *observability.Logger
}

// Dispatcher delivers notifications to email and WhatsApp in the background
type Dispatcher struct {
	contacts ContactLookup
	email    Channel
	whatsapp Channel
	retry    *RetryPolicy
	pool     *async.WorkerPool
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewDispatcher starts a dispatcher whose workers live until Shutdown or ctx ends
func NewDispatcher(ctx context.Context, contacts ContactLookup, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}

	d := &Dispatcher{
		contacts: contacts,
		email:    opts.Email,
		whatsapp: opts.WhatsApp,
		retry:    NewRetryPolicy(opts.Retry),
		metrics:  opts.Metrics,
		logger:   opts.Logger.WithField("component", "notification_dispatcher"),
	}
	d.pool = async.NewWorkerPool(ctx, opts.Workers, "notification delivery", opts.Timeout, d.logger)
	return d
}

// Enabled reports whether any external channel is configured
func (d *Dispatcher) Enabled() bool {
	return d.email != nil || d.whatsapp != nil
}

// Dispatch queues n for delivery. Failures are logged, never returned.
func (d *Dispatcher) Dispatch(orgID int64, n *Notification) {
	if !d.Enabled() {
		return
	}
	err := d.pool.Submit(func(ctx context.Context) error {
		return d.Deliver(ctx, orgID, n)
	})
	if err != nil {
		d.logger.WithError(err).WithField("notification_id", n.ID).Warn("failed to queue notification delivery")
	}
}

// Deliver sends n synchronously on every requested and configured channel
func (d *Dispatcher) Deliver(ctx context.Context, orgID int64, n *Notification) error {
	if n.ClientID == nil {
		return nil
	}
	if !(n.SendEmail && d.email != nil) && !(n.SendWhatsApp && d.whatsapp != nil) {
		return nil
	}

	client, err := d.contacts.GetClient(ctx, orgID, *n.ClientID)
	if err != nil {
		return fmt.Errorf("failed to resolve notification recipient: %w", err)
	}

	var errs []error
	if n.SendEmail && d.email != nil && strings.TrimSpace(client.Email) != "" {
		errs = append(errs, d.send(ctx, d.email, n, &Message{
			To:      client.Email,
			Subject: n.Title,
			Body:    greeting(client.Name) + n.Message,
		}))
	}
	if n.SendWhatsApp && d.whatsapp != nil && strings.TrimSpace(client.Phone) != "" {
		errs = append(errs, d.send(ctx, d.whatsapp, n, &Message{
			To:      client.Phone,
			Subject: n.Title,
			Body:    greeting(client.Name) + n.Message,
		}))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, n *Notification, msg *Message) error {
	attempts, err := d.retry.Do(ctx, func(ctx context.Context) error {
		return ch.Send(ctx, msg)
	})
	d.metrics.RecordNotificationSent(ch.Name(), err)

	logger := d.logger.WithFields(map[string]interface{}{
		"channel":         ch.Name(),
		"notification_id": n.ID,
		"attempts":        attempts,
	})
	if err != nil {
		logger.WithError(err).Error("notification delivery failed")
		return fmt.Errorf("%s delivery failed: %w", ch.Name(), err)
	}
	logger.Debug("notification delivered")
	return nil
}

// Shutdown waits up to timeout for queued deliveries
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	return d.pool.Shutdown(timeout)
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return "Olá, " + name + ".\n\n"
}
