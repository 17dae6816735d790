package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/guardline/payroll-engine/internal/core/events"
)

// Notifier forwards workflow events to an external webhook, typically a
// chat channel or the HR portal. Delivery is fire and forget: a dead sink
// never fails the command that raised the event.
type Notifier struct {
	webhookURL string
	timeout    time.Duration
	client     *http.Client
	logger     *slog.Logger
}

type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

func New(config Config, logger *slog.Logger) *Notifier {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		webhookURL: config.WebhookURL,
		timeout:    timeout,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Register subscribes the notifier to every event type worth announcing.
func (n *Notifier) Register(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventTypeSalaryHeld,
		events.EventTypeSalaryReleased,
		events.EventTypePaymentRequestSubmitted,
		events.EventTypePaymentRequestApproved,
		events.EventTypePaymentRequestRejected,
		events.EventTypePaymentRequestPaid,
		events.EventTypeLoanRequested,
		events.EventTypeLoanRejected,
		events.EventTypeLoanActivated,
		events.EventTypeLoanClosed,
		events.EventTypeComplianceGenerated,
		events.EventTypeComplianceFiled,
	} {
		bus.Subscribe(eventType, n.Handle)
	}
}

// Handle delivers one event. Always returns nil: notification failures are
// logged, never propagated.
func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	if n.webhookURL == "" {
		return nil
	}

	payload := map[string]interface{}{
		"event_id":    event.EventID(),
		"event_type":  event.EventType(),
		"occurred_at": event.OccurredAt(),
		"data":        event.Payload(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("notification: failed to marshal event", "error", err, "event_id", event.EventID())
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		n.logger.Error("notification: failed to build request", "error", err, "event_id", event.EventID())
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notification: delivery failed",
			"error", err,
			"event_type", event.EventType(),
			"event_id", event.EventID())
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("notification: sink returned error status",
			"status_code", resp.StatusCode,
			"event_type", event.EventType())
		return nil
	}

	n.logger.Debug("notification delivered",
		"event_type", event.EventType(),
		"event_id", event.EventID())
	return nil
}
