// Package domain defines the core data types shared across the repository and
// service layers. This file holds the document-store entities: templates live
// in the company configuration store, not in the relational store.
package domain

// EmailTemplate is a reminder template for the email channel, keyed by a
// human-readable sequential ID (e.g. "KO-0007"). At most one template may be
// active per (company, category), an invariant maintained by best-effort
// sequential writes in the template store.
type EmailTemplate struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Subject        string   `json:"subject"`
	HTML           string   `json:"html"`
	Active         bool     `json:"active"`
	System         bool     `json:"system"` // system templates refuse deletion
	DepartmentTags []string `json:"department_tags,omitempty"`
	AttachmentURLs []string `json:"attachment_urls,omitempty"`
}

// WhatsAppTemplate is a reminder template for the WhatsApp channel. Variables
// is the ordered tag list mapped to the provider's positional parameters;
// Body holds the raw message text whose tags are rewritten to positional
// {{n}} tokens at dispatch time.
type WhatsAppTemplate struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ProviderID string   `json:"provider_id"` // template name registered with the messaging provider
	Category   string   `json:"category"`
	Language   string   `json:"language"`
	Body       string   `json:"body"`
	Active     bool     `json:"active"`
	Variables  []string `json:"variables"`
}

// FailureLogEntry is one deduplicated operational failure. The document ID is
// the MD5 hash of Message, so identical failures collapse into a counter
// instead of new records.
type FailureLogEntry struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Context   string `json:"context"`
	Counter   int    `json:"counter"`
	Read      bool   `json:"read"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
}

// Receipt is a structured payment receipt extracted from an inbound image and
// matched to a sale by the webhook worker. Status starts as "pending_review"
// and is only advanced by the back-office through the receipts API.
type Receipt struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	MessageID   string `json:"message_id"`
	Status      string `json:"status"`
	ContactID   string `json:"contact_id"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	SaleFolio   string `json:"sale_folio"`
	ClientName  string `json:"client_name"`
	Unit        string `json:"unit"`
	Project     string `json:"project"`
	Stage       string `json:"stage"`

	// Extraction output, verbatim from the provider.
	OperationType string `json:"operation_type"`
	FolioRef      string `json:"folio_ref"`
	Timestamp     string `json:"timestamp"`
	Beneficiary   string `json:"beneficiary"`
	Concept       string `json:"concept"`
	Amount        string `json:"amount"`

	FileName   string `json:"file_name"`
	ImageURL   string `json:"image_url"`
	ReceivedAt string `json:"received_at"`
}

// ReceiptStatusPending is the initial status of a persisted receipt.
const ReceiptStatusPending = "pending_review"
