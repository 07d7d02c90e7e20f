package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WhatsAppConfig holds WhatsApp gateway configuration.
type WhatsAppConfig struct {
	// BaseURL overrides the provider endpoint, mainly for tests.
	BaseURL string
	// Token is the provider bearer token.
	Token string
	// ChannelID selects the WhatsApp channel messages go out on.
	ChannelID int
	// Timeout bounds each call. Zero means 15 seconds.
	Timeout time.Duration
	// HTTPClient overrides the transport. Nil means a client with Timeout.
	HTTPClient *http.Client
}

// WhatsAppSender delivers WhatsApp messages through the conversation
// provider. Contacts are addressed by phone number or by the provider's
// internal contact ID.
type WhatsAppSender struct {
	baseURL   string
	token     string
	channelID int
	http      *http.Client
}

// NewWhatsAppSender constructs a WhatsAppSender.
func NewWhatsAppSender(cfg WhatsAppConfig) *WhatsAppSender {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.respond.io/v2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &WhatsAppSender{baseURL: base, token: cfg.Token, channelID: cfg.ChannelID, http: hc}
}

type waTemplateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waTemplateComponent struct {
	Type       string                `json:"type"`
	Text       string                `json:"text,omitempty"`
	Parameters []waTemplateParameter `json:"parameters"`
}

// SendTemplate sends an approved template message. The body text must
// already carry positional tokens ({{1}}..{{n}}) matching the order of
// params.
func (s *WhatsAppSender) SendTemplate(ctx context.Context, phone, templateName, language string, params []string, bodyText string) (SendResult, error) {
	parameters := make([]waTemplateParameter, 0, len(params))
	for _, p := range params {
		parameters = append(parameters, waTemplateParameter{Type: "text", Text: p})
	}
	payload := map[string]any{
		"channelId": s.channelID,
		"message": map[string]any{
			"type": "whatsapp_template",
			"template": map[string]any{
				"name":         templateName,
				"languageCode": language,
				"components": []waTemplateComponent{{
					Type:       "body",
					Text:       bodyText,
					Parameters: parameters,
				}},
			},
		},
	}
	return s.postMessage(ctx, phone, payload)
}

// SendText sends a plain session text message.
func (s *WhatsAppSender) SendText(ctx context.Context, phone, text string) (SendResult, error) {
	payload := map[string]any{
		"channelId": s.channelID,
		"message": map[string]any{
			"type": "text",
			"text": text,
		},
	}
	return s.postMessage(ctx, phone, payload)
}

func (s *WhatsAppSender) postMessage(ctx context.Context, phone string, payload map[string]any) (SendResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, fmt.Errorf("encode message: %w", err)
	}
	identifier := url.PathEscape("phone:" + phone)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/contact/%s/message", s.baseURL, identifier), bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("whatsapp request: %w", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return SendResult{}, fmt.Errorf("read response: %w", err)
	}
	return SendResult{StatusCode: res.StatusCode, Body: string(data)}, nil
}

// Contact is the subset of the provider's contact record the engine reads.
type Contact struct {
	ID           int64          `json:"id"`
	FirstName    string         `json:"firstName"`
	LastName     string         `json:"lastName"`
	Phone        string         `json:"phone"`
	CustomFields []ContactField `json:"custom_fields"`
}

// ContactField is one provider custom field.
type ContactField struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// CustomField returns the named custom field's value as a string, or ""
// when absent.
func (c *Contact) CustomField(name string) string {
	for _, f := range c.CustomFields {
		if f.Name == name {
			return fmt.Sprintf("%v", f.Value)
		}
	}
	return ""
}

// GetContact fetches the full contact record by provider contact ID.
func (s *WhatsAppSender) GetContact(ctx context.Context, contactID int64) (*Contact, error) {
	identifier := url.PathEscape(fmt.Sprintf("id:%d", contactID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/contact/%s", s.baseURL, identifier), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact request: %w", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contact lookup: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(data)))
	}
	var c Contact
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode contact: %w", err)
	}
	return &c, nil
}
