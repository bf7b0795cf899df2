package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WhatsAppNotifier sends alert text over a Twilio-compatible WhatsApp
// HTTP API.
type WhatsAppNotifier struct {
	accountSID string
	authToken  string
	fromNumber string
	client     *http.Client
	log        *slog.Logger
}

// NewWhatsAppNotifier creates a WhatsApp notifier backed by Twilio
// credentials.
func NewWhatsAppNotifier(accountSID, authToken, fromNumber string, log *slog.Logger) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// SendTo delivers message to toNumber, prefixing the Twilio
// "whatsapp:" scheme if the caller's number doesn't already carry it.
func (w *WhatsAppNotifier) SendTo(ctx context.Context, toNumber, message string) error {
	if toNumber == "" {
		return nil
	}
	dest := toNumber
	if len(dest) < 9 || dest[:9] != "whatsapp:" {
		dest = "whatsapp:" + dest
	}

	form := map[string]string{
		"Body": message,
		"From": "whatsapp:" + w.fromNumber,
		"To":   dest,
	}
	body, _ := json.Marshal(form)

	url := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", w.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.SetBasicAuth(w.accountSID, w.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp: unexpected status %d", resp.StatusCode)
	}

	w.log.Info("whatsapp alert sent", "to", dest)
	return nil
}
