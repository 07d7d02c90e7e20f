// Handler wiring for the notification API.
//
// Handlers are transport-thin: they validate input, call the dispatch engine
// or the storage services, and translate results into HTTP responses. All
// business decisions (gating, rendering, provider calls) live below this
// layer.
package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
	"github.com/casaluz/go-notify-backend/internal/gateway"
	"github.com/casaluz/go-notify-backend/internal/sweep"
	"github.com/casaluz/go-notify-backend/internal/templates"
	"github.com/casaluz/go-notify-backend/internal/webhook"
)

//
// Service contracts (context-aware)
//

// SweepService runs batch sweeps and operator-triggered sends.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SweepService interface {
	// Run executes one sweep over the audience due `days` from today.
	Run(ctx context.Context, company string, days int, category string, audience sweep.Audience) (*sweep.Report, error)
	// SendManualEmail delivers an operator-composed email to explicit recipients.
	SendManualEmail(ctx context.Context, company string, req sweep.ManualEmailRequest) ([]sweep.ManualSendResult, error)
	// SendFolioEmail renders the active template for one folio and recipient.
	SendFolioEmail(ctx context.Context, company, folio, category, name, email string) (gateway.SendResult, error)
	// SendFolioWhatsApp renders the active WhatsApp template for one folio and recipient.
	SendFolioWhatsApp(ctx context.Context, company, folio, category, name, phone string) (gateway.SendResult, error)
	// SendFolioDual delivers WhatsApp then email for one recipient.
	SendFolioDual(ctx context.Context, company, folio, category, name, email, phone string) (sweep.DualSendResult, error)
}

// TagService resolves the substitution values of one sale.
type TagService interface {
	// Resolve returns the tag map for a folio; empty map means unknown folio.
	Resolve(ctx context.Context, folio string) (map[string]string, error)
	// Discover returns the full tag vocabulary with empty values.
	Discover() map[string]string
}

// TemplateService is the template store CRUD surface, both channels.
type TemplateService interface {
	ListEmail(ctx context.Context, company string) ([]domain.EmailTemplate, error)
	GetEmail(ctx context.Context, company, id string) (*domain.EmailTemplate, error)
	CreateEmail(ctx context.Context, company string, t domain.EmailTemplate) (string, error)
	UpdateEmail(ctx context.Context, company, id string, u templates.EmailUpdate) error
	DeleteEmail(ctx context.Context, company, id string) error
	CountEmailByCategory(ctx context.Context, company, category string) (int, error)

	ListWhatsApp(ctx context.Context, company string) ([]domain.WhatsAppTemplate, error)
	GetWhatsApp(ctx context.Context, company, id string) (*domain.WhatsAppTemplate, error)
	CreateWhatsApp(ctx context.Context, company string, t domain.WhatsAppTemplate) (string, error)
	UpdateWhatsApp(ctx context.Context, company, id string, u templates.WhatsAppUpdate) error
	DeleteWhatsApp(ctx context.Context, company, id string) error
	CountWhatsAppByCategory(ctx context.Context, company, category string) (int, error)
}

// SettingsStore reads and writes the remote company configuration documents.
type SettingsStore interface {
	GetCompanyConfig(ctx context.Context, company string) docstore.CompanyConfig
	PatchCompanyConfig(ctx context.Context, company string, project, email, whatsapp *bool) error
	GetReminderConfig(ctx context.Context, company string) docstore.ReminderConfig
	PatchReminderConfig(ctx context.Context, company string, days1, days2, hour, minute *int) error
}

// FailureFeed exposes the deduplicated failure log.
type FailureFeed interface {
	Feed(ctx context.Context, company string) ([]domain.FailureLogEntry, int)
	MarkRead(ctx context.Context, company, entryID string) error
}

// ReceiptService is the webhook ingestion and receipt review surface.
type ReceiptService interface {
	Ingest(event webhook.Event) bool
	ListReceipts(ctx context.Context) ([]domain.Receipt, error)
	UpdateReceiptStatus(ctx context.Context, id, status string) error
	ReceiptExists(ctx context.Context, phone, unit string) (bool, error)
	FolioListMessage(ctx context.Context, phone string) (string, int, error)
	SendFolioList(ctx context.Context, phone, tempLots string) (string, []string, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the notification API. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	company  string
	db       *gorm.DB
	sweepSvc SweepService
	tagSvc   TagService
	tplSvc   TemplateService
	settings SettingsStore
	failures FailureFeed
	receipts ReceiptService
}

// New constructs a Handlers instance bound to the given services. Company is
// the tenant key scoping every document-store access.
func New(company string, db *gorm.DB, sweepSvc SweepService, tagSvc TagService, tplSvc TemplateService, settings SettingsStore, failures FailureFeed, receipts ReceiptService) *Handlers {
	return &Handlers{
		company:  company,
		db:       db,
		sweepSvc: sweepSvc,
		tagSvc:   tagSvc,
		tplSvc:   tplSvc,
		settings: settings,
		failures: failures,
		receipts: receipts,
	}
}
