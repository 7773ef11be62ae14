package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openclaw/qrstudio/store"
)

// Webhook delivers export records to an external HTTP endpoint.
type Webhook struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewWebhook creates a Webhook ready to POST records to url. If url is empty
// the webhook is a no-op (Send returns nil immediately).
func NewWebhook(url string, log *slog.Logger) *Webhook {
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Enabled reports whether a URL is configured.
func (w *Webhook) Enabled() bool {
	return w.url != ""
}

// Send posts e as JSON. Non-2xx responses are logged, not returned.
func (w *Webhook) Send(e *store.Export) error {
	if w.url == "" {
		return nil
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("webhook marshal export: %w", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.log.Error("webhook delivery failed", "error", err, "export_id", e.ID)
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.log.Debug("webhook delivered", "status", resp.StatusCode, "export_id", e.ID)
	} else {
		w.log.Warn("webhook non-2xx response", "status", resp.StatusCode, "export_id", e.ID)
	}
	return nil
}
