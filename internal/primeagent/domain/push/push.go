package push

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prime-system/prime-agent/pkg/logger"
	appjson "github.com/prime-system/prime-agent/pkg/utils/json"
)

// DeviceResult is one entry of a fan-out's per-device outcome.
type DeviceResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // sent|failed|invalid_binding
	Error  string `json:"error,omitempty"`
}

// Summary is the aggregate result of a Send call.
type Summary struct {
	Sent                int            `json:"sent"`
	Failed              int            `json:"failed"`
	InvalidTokensRemoved int           `json:"invalid_tokens_removed"`
	PerDevice           []DeviceResult `json:"per_device"`
}

type relayPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// AuditSink records a best-effort per-device delivery history. It is
// purely observational: a Fanout works identically with or without one.
type AuditSink interface {
	RecordDelivery(installationID string, attempt DeliveryAttempt) error
}

// DeliveryAttempt is one recorded outcome of a fan-out attempt against a
// single device binding.
type DeliveryAttempt struct {
	At     time.Time `json:"at"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// Fanout delivers notifications to every device binding matching a
// filter, relaying each as a POST to the binding's push_url.
type Fanout struct {
	registry *Registry
	client   *http.Client
	audit    AuditSink
}

func NewFanout(registry *Registry, client *http.Client) *Fanout {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Fanout{registry: registry, client: client}
}

// SetAuditSink wires in the optional delivery-history recorder. Safe to
// call with nil to disable recording.
func (f *Fanout) SetAuditSink(sink AuditSink) {
	f.audit = sink
}

// Send POSTs {title, body, data} to every device binding matching
// deviceFilter. An HTTP 410 from the relay removes the binding and counts
// it as invalid_tokens_removed; any other error counts as failed and the
// fan-out continues with the remaining devices.
func (f *Fanout) Send(ctx context.Context, title, body string, data map[string]interface{}, deviceFilter string) Summary {
	devices := f.registry.Matching(deviceFilter)

	summary := Summary{PerDevice: make([]DeviceResult, 0, len(devices))}
	if len(devices) == 0 {
		logger.InfoX(moduleName, "no registered devices for push notification (filter=%q)", deviceFilter)
		return summary
	}

	payload, err := appjson.Marshal(relayPayload{Title: title, Body: body, Data: data})
	if err != nil {
		logger.ErrorX(moduleName, "failed to marshal push payload: %v", err)
		for _, d := range devices {
			summary.Failed++
			summary.PerDevice = append(summary.PerDevice, DeviceResult{Name: f.displayName(d), Status: "failed", Error: "failed to build payload"})
		}
		return summary
	}

	for _, d := range devices {
		name := f.displayName(d)
		status, errText, removed := f.deliver(ctx, d, payload)
		switch status {
		case "sent":
			summary.Sent++
		case "invalid_binding":
			summary.InvalidTokensRemoved++
		default:
			summary.Failed++
		}
		summary.PerDevice = append(summary.PerDevice, DeviceResult{Name: name, Status: status, Error: errText})
		if f.audit != nil {
			if err := f.audit.RecordDelivery(d.InstallationID, DeliveryAttempt{At: time.Now().UTC(), Status: status, Error: errText}); err != nil {
				logger.WarnX(moduleName, "failed to record delivery history for %s: %v", d.InstallationID, err)
			}
		}
		if removed {
			logger.InfoX(moduleName, "device %s removed due to invalid binding (%s)", d.InstallationID, redactedPushURLPrefix(d.PushURL))
		}
	}

	logger.InfoX(moduleName, "push notification send completed: sent=%d failed=%d invalid_tokens_removed=%d",
		summary.Sent, summary.Failed, summary.InvalidTokensRemoved)
	return summary
}

func (f *Fanout) displayName(d Device) string {
	if d.DeviceName != "" {
		return d.DeviceName
	}
	return d.DeviceType
}

func (f *Fanout) deliver(ctx context.Context, d Device, payload []byte) (status, errText string, removed bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.PushURL, bytes.NewReader(payload))
	if err != nil {
		return "failed", err.Error(), false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		logger.ErrorX(moduleName, "push delivery failed for %s (%s): %v", d.InstallationID, redactedPushURLPrefix(d.PushURL), err)
		return "failed", err.Error(), false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		if err := f.registry.Remove(d.InstallationID); err != nil {
			logger.ErrorX(moduleName, "failed to remove invalid device binding %s: %v", d.InstallationID, err)
		}
		return "invalid_binding", "binding no longer valid (removed)", true
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return "sent", "", false
	default:
		msg := fmt.Sprintf("relay returned HTTP %d", resp.StatusCode)
		logger.ErrorX(moduleName, "push delivery failed for %s (%s): %s", d.InstallationID, redactedPushURLPrefix(d.PushURL), msg)
		return "failed", msg, false
	}
}
