// Package delivery sends a Delivery record to its named outbound target
// (spec §3 "Delivery", §4.6), grounded on the teacher's per-channel Send
// methods, trimmed to the outbound-only half of each client library since a
// delivery target never receives inbound messages.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/serialagent/gateway/internal/bus"
	"github.com/serialagent/gateway/internal/config"
	"github.com/serialagent/gateway/internal/store"
)

// Dispatcher polls the delivery store for pending records and sends each to
// its configured target, making at most cfg.MaxRetries send attempts before
// marking the delivery permanently failed.
type Dispatcher struct {
	cfg    config.DeliveryConfig
	stores *store.Stores
	bus    bus.Publisher
}

func NewDispatcher(cfg config.DeliveryConfig, stores *store.Stores, publisher bus.Publisher) *Dispatcher {
	return &Dispatcher{cfg: cfg, stores: stores, bus: publisher}
}

// Start polls for pending deliveries every interval until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	pending, err := d.stores.Deliveries.List(ctx, "", 0)
	if err != nil {
		slog.Warn("delivery: list failed", "err", err)
		return
	}
	for _, item := range pending {
		if item.Status != store.DeliveryPending {
			continue
		}
		d.attempt(ctx, item)
	}
}

func (d *Dispatcher) attempt(ctx context.Context, item *store.Delivery) {
	item.Attempts++
	err := d.send(ctx, item)

	maxRetries := d.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	if err != nil {
		item.LastError = err.Error()
		if item.Attempts >= maxRetries {
			item.Status = store.DeliveryFailed
		}
		d.publish(item, bus.EventDeliveryFailed)
		slog.Warn("delivery: send failed", "target", item.Target, "attempt", item.Attempts, "err", err)
	} else {
		item.Status = store.DeliverySent
		item.SentAt = time.Now()
		item.LastError = ""
		d.publish(item, bus.EventDeliverySent)
	}

	if uerr := d.stores.Deliveries.Update(ctx, item); uerr != nil {
		slog.Warn("delivery: failed to persist delivery status", "id", item.ID, "err", uerr)
	}
}

// send routes item to its target kind (spec §3 target naming: "in_app",
// "webhook:<name>", "discord:<name>", "telegram:<name>").
func (d *Dispatcher) send(ctx context.Context, item *store.Delivery) error {
	kind, name, _ := strings.Cut(item.Target, ":")
	switch kind {
	case "in_app":
		return sendInApp()
	case "webhook":
		cfg, ok := d.cfg.Webhooks[name]
		if !ok {
			return fmt.Errorf("delivery: no webhook target named %q", name)
		}
		return sendWebhook(ctx, cfg, item.Content, item.ScheduleID, item.RunID)
	case "discord":
		cfg, ok := d.cfg.Discord[name]
		if !ok {
			return fmt.Errorf("delivery: no discord target named %q", name)
		}
		return sendDiscord(cfg, item.Content)
	case "telegram":
		cfg, ok := d.cfg.Telegram[name]
		if !ok {
			return fmt.Errorf("delivery: no telegram target named %q", name)
		}
		return sendTelegram(ctx, cfg, item.Content)
	default:
		return fmt.Errorf("delivery: unknown target kind %q", kind)
	}
}

func (d *Dispatcher) publish(item *store.Delivery, event string) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(bus.Event{
		Name:  event,
		Topic: "schedule:" + item.ScheduleID,
		Payload: map[string]interface{}{
			"delivery_id": item.ID,
			"target":      item.Target,
			"status":      string(item.Status),
		},
	})
}
