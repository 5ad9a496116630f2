package data

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"HealthPulse/internal/conf"
	"HealthPulse/internal/model"
	"HealthPulse/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/log"
)

// Notification event names.
const (
	EventErrorBudget   = "error_budget.alert"
	EventCircuitOpened = "circuit.opened"
	EventCircuitClosed = "circuit.closed"
)

type webhookEnvelope struct {
	Event       string      `json:"event"`
	Environment string      `json:"environment"`
	Timestamp   time.Time   `json:"timestamp"`
	Data        interface{} `json:"data"`
}

// Notifier delivers alerts and breaker events. Without a webhook URL it only logs them.
type Notifier struct {
	url         string
	environment string
	client      *http.Client
	logger      *log.Helper
	now         func() time.Time
}

// NewNotifier creates a Notifier from the alert and monitor configuration.
func NewNotifier(c *conf.Alert, m *conf.Monitor, logger log.Logger) (*Notifier, error) {
	n := &Notifier{
		logger: log.NewHelper(logger),
		now:    time.Now,
	}
	if m != nil {
		n.environment = m.Environment
	}
	if c == nil || c.WebhookUrl == "" {
		return n, nil
	}

	timeout := c.WebhookTimeout.AsDuration()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var proxyURL string
	if m != nil {
		proxyURL = m.ProxyUrl
	}
	client, err := httpclient.New(proxyURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("webhook client: %w", err)
	}
	n.url = c.WebhookUrl
	n.client = client
	return n, nil
}

// Enabled reports whether events are delivered to a webhook.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// NotifyErrorBudget delivers an error budget alert.
func (n *Notifier) NotifyErrorBudget(ctx context.Context, event *model.ErrorBudgetEvent) error {
	return n.send(ctx, EventErrorBudget, event)
}

// NotifyCircuitOpened delivers a breaker opened event.
func (n *Notifier) NotifyCircuitOpened(ctx context.Context, event *model.CircuitOpenedEvent) error {
	return n.send(ctx, EventCircuitOpened, event)
}

// NotifyCircuitClosed delivers a breaker recovered event.
func (n *Notifier) NotifyCircuitClosed(ctx context.Context, event *model.CircuitClosedEvent) error {
	return n.send(ctx, EventCircuitClosed, event)
}

func (n *Notifier) send(ctx context.Context, event string, data interface{}) error {
	if !n.Enabled() {
		n.logger.Infow("msg", "notification (webhook disabled)", "event", event, "data", data)
		return nil
	}

	body, err := json.Marshal(webhookEnvelope{
		Event:       event,
		Environment: n.environment,
		Timestamp:   n.now().UTC(),
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal %s: %w", event, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: failed to deliver %s: %w", event, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: %s rejected with HTTP %d", event, resp.StatusCode)
	}

	n.logger.Debugw("msg", "notification delivered", "event", event)
	return nil
}
