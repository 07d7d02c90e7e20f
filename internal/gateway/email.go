// Package gateway – channel delivery gateway
//
// This package owns the outbound provider calls: transactional email via
// MailerSend and WhatsApp via Respond.io. It also carries the rendering
// helpers both channels share (tag substitution, positional template
// bodies, phone normalization, attachment re-encoding). Senders report the
// provider's HTTP status and body; interpreting a status as success or
// failure is the caller's decision.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SendResult is the raw provider response of one delivery attempt.
type SendResult struct {
	StatusCode int
	Body       string
}

// Accepted reports whether the provider took the message.
func (r SendResult) Accepted() bool {
	switch r.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return true
	}
	return false
}

// EmailAddress is one sender or recipient.
type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Attachment is a base64-encoded file the email carries inline.
type Attachment struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

// EmailMessage is the provider payload of one email.
type EmailMessage struct {
	From        EmailAddress   `json:"from"`
	To          []EmailAddress `json:"to"`
	CC          []EmailAddress `json:"cc,omitempty"`
	BCC         []EmailAddress `json:"bcc,omitempty"`
	ReplyTo     *EmailAddress  `json:"reply_to,omitempty"`
	Subject     string         `json:"subject"`
	HTML        string         `json:"html"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// EmailConfig holds email gateway configuration.
type EmailConfig struct {
	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string
	// APIKey is the provider bearer token.
	APIKey string
	// Sender is the address messages go out from.
	Sender string
	// Timeout bounds each call. Zero means 10 seconds.
	Timeout time.Duration
	// HTTPClient overrides the transport. Nil means a client with Timeout.
	HTTPClient *http.Client
}

// EmailSender delivers email through the transactional provider.
type EmailSender struct {
	baseURL string
	apiKey  string
	sender  string
	http    *http.Client
}

// NewEmailSender constructs an EmailSender.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.mailersend.com/v1"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &EmailSender{baseURL: base, apiKey: cfg.APIKey, sender: cfg.Sender, http: hc}
}

// Sender returns the configured from-address.
func (s *EmailSender) Sender() string { return s.sender }

// Send posts one email to the provider. A non-2xx status is returned in the
// result, not as an error; errors are reserved for transport failures.
func (s *EmailSender) Send(ctx context.Context, msg EmailMessage) (SendResult, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return SendResult{}, fmt.Errorf("encode email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("email request: %w", err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return SendResult{}, fmt.Errorf("read response: %w", err)
	}
	return SendResult{StatusCode: res.StatusCode, Body: string(payload)}, nil
}

// DownloadAttachment fetches a remote file and re-encodes it the way the
// email provider expects: base64 content plus the filename taken from the
// URL path. Failures return nil so a broken attachment never blocks the
// message itself.
func DownloadAttachment(ctx context.Context, client *http.Client, rawURL string) *Attachment {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil
	}
	res, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil
	}

	name := rawURL
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}
	return &Attachment{
		Content:  base64.StdEncoding.EncodeToString(data),
		Filename: name,
	}
}
