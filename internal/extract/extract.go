// Package extract – receipt field extraction
//
// This package turns a payment receipt image into structured fields using a
// hosted multimodal model. The model is instructed to answer with one flat
// JSON object; missing text fields come back as a fixed placeholder and a
// missing amount as "$0.00", so downstream code can rely on every field
// being present.
package extract

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

// Extraction is the structured result of one receipt image.
type Extraction struct {
	OperationType string `json:"tipo_operacion"`
	Folio         string `json:"folio"`
	DateTime      string `json:"fecha_hora"`
	Beneficiary   string `json:"beneficiario"`
	Concept       string `json:"concepto"`
	Amount        string `json:"importe"`

	// Error carries the model's own failure marker when it could not read
	// the receipt. Empty on success.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the model flagged the receipt as unreadable.
func (e *Extraction) Failed() bool { return e.Error != "" }

// Extractor reads a receipt image and returns its structured fields.
type Extractor interface {
	ExtractReceipt(ctx context.Context, imageURL string) (*Extraction, error)
}

// prompt is the extraction instruction. It is Spanish because the receipts
// and the field vocabulary are.
const prompt = `Analiza la imagen del comprobante y extrae únicamente los siguientes campos en un JSON plano:

1. "tipo_operacion": El tipo de operación realizada.
2. "folio": El folio de la operación.
3. "fecha_hora": La fecha y hora concatenadas en un solo string.
4. "beneficiario": Nombre del beneficiario.
5. "concepto": Concepto o motivo del pago.
6. "importe": El monto total.

Reglas:
- En el campo "concepto", asegúrate de incluir el símbolo "-" (guion) que separa los elementos; no lo omitas ni lo reemplaces por espacios.
- Si el lote aparece con errores de lectura (ej. sin espacios), intenta reconstruir el formato estándar.
- Si un dato de texto no aparece, el valor debe ser "Dato no encontrado".
- Si el importe no aparece, el valor debe ser "$0.00".
- Responde solo con el JSON, sin bloques de código markdown.`

// Config holds extraction client configuration.
type Config struct {
	// BaseURL overrides the model endpoint, mainly for tests.
	BaseURL string
	// APIKey authenticates against the model API.
	APIKey string
	// Model names the multimodal model to call.
	Model string
	// Timeout bounds the image download and the model call individually.
	// Zero means 30 seconds.
	Timeout time.Duration
	// HTTPClient overrides the transport. Nil means a client with Timeout.
	HTTPClient *http.Client
}

// Client is the HTTP implementation of Extractor.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient constructs an extraction Client.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, apiKey: cfg.APIKey, model: model, http: hc}
}

// ExtractReceipt downloads the image and asks the model for the structured
// fields. A model-side read failure comes back as an Extraction with Error
// set; a transport or decode failure is a Go error.
func (c *Client) ExtractReceipt(ctx context.Context, imageURL string) (*Extraction, error) {
	data, mime, err := c.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"inline_data": map[string]string{
					"mime_type": mime,
					"data":      base64.StdEncoding.EncodeToString(data),
				}},
				{"text": prompt},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request: %w", err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(payload)))
	}

	var envelope struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("model returned no content")
	}

	text := stripFences(envelope.Candidates[0].Content.Parts[0].Text)
	var out Extraction
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("decode extraction: %w", err)
	}
	return &out, nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image download: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image download: status=%d", res.StatusCode)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	mime := res.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// answer in one despite the instructions.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")
	}
	return strings.TrimSpace(raw)
}
