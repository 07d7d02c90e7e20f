package handlers

import (
	"context"
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
	"github.com/casaluz/go-notify-backend/internal/gateway"
	"github.com/casaluz/go-notify-backend/internal/repo"
	"github.com/casaluz/go-notify-backend/internal/sweep"
	"github.com/casaluz/go-notify-backend/internal/templates"
	"github.com/casaluz/go-notify-backend/internal/webhook"
)

// ---------- test DB ----------

func newHandlersDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handlers_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// ---------- service stubs ----------

type stubSweepSvc struct {
	run        func(context.Context, string, int, string, sweep.Audience) (*sweep.Report, error)
	manual     func(context.Context, string, sweep.ManualEmailRequest) ([]sweep.ManualSendResult, error)
	folioEmail func(context.Context, string, string, string, string, string) (gateway.SendResult, error)
	folioWA    func(context.Context, string, string, string, string, string) (gateway.SendResult, error)
	folioDual  func(context.Context, string, string, string, string, string, string) (sweep.DualSendResult, error)
}

func (s stubSweepSvc) Run(ctx context.Context, company string, days int, category string, audience sweep.Audience) (*sweep.Report, error) {
	if s.run != nil {
		return s.run(ctx, company, days, category, audience)
	}
	return &sweep.Report{Status: "completado"}, nil
}

func (s stubSweepSvc) SendManualEmail(ctx context.Context, company string, req sweep.ManualEmailRequest) ([]sweep.ManualSendResult, error) {
	if s.manual != nil {
		return s.manual(ctx, company, req)
	}
	return nil, nil
}

func (s stubSweepSvc) SendFolioEmail(ctx context.Context, company, folio, category, name, email string) (gateway.SendResult, error) {
	if s.folioEmail != nil {
		return s.folioEmail(ctx, company, folio, category, name, email)
	}
	return gateway.SendResult{StatusCode: 200}, nil
}

func (s stubSweepSvc) SendFolioWhatsApp(ctx context.Context, company, folio, category, name, phone string) (gateway.SendResult, error) {
	if s.folioWA != nil {
		return s.folioWA(ctx, company, folio, category, name, phone)
	}
	return gateway.SendResult{StatusCode: 201}, nil
}

func (s stubSweepSvc) SendFolioDual(ctx context.Context, company, folio, category, name, email, phone string) (sweep.DualSendResult, error) {
	if s.folioDual != nil {
		return s.folioDual(ctx, company, folio, category, name, email, phone)
	}
	return sweep.DualSendResult{WhatsApp: "omitido", Email: "omitido"}, nil
}

type stubTagSvc struct {
	resolve func(context.Context, string) (map[string]string, error)
}

func (s stubTagSvc) Resolve(ctx context.Context, folio string) (map[string]string, error) {
	if s.resolve != nil {
		return s.resolve(ctx, folio)
	}
	return map[string]string{}, nil
}

func (s stubTagSvc) Discover() map[string]string { return map[string]string{} }

type stubTplSvc struct {
	listEmail   func(context.Context, string) ([]domain.EmailTemplate, error)
	getEmail    func(context.Context, string, string) (*domain.EmailTemplate, error)
	createEmail func(context.Context, string, domain.EmailTemplate) (string, error)
	updateEmail func(context.Context, string, string, templates.EmailUpdate) error
	deleteEmail func(context.Context, string, string) error
	countEmail  func(context.Context, string, string) (int, error)
	listWA      func(context.Context, string) ([]domain.WhatsAppTemplate, error)
	getWA       func(context.Context, string, string) (*domain.WhatsAppTemplate, error)
	createWA    func(context.Context, string, domain.WhatsAppTemplate) (string, error)
	updateWA    func(context.Context, string, string, templates.WhatsAppUpdate) error
	deleteWA    func(context.Context, string, string) error
	countWA     func(context.Context, string, string) (int, error)
}

func (s stubTplSvc) ListEmail(ctx context.Context, company string) ([]domain.EmailTemplate, error) {
	if s.listEmail != nil {
		return s.listEmail(ctx, company)
	}
	return nil, nil
}

func (s stubTplSvc) GetEmail(ctx context.Context, company, id string) (*domain.EmailTemplate, error) {
	if s.getEmail != nil {
		return s.getEmail(ctx, company, id)
	}
	return &domain.EmailTemplate{ID: id}, nil
}

func (s stubTplSvc) CreateEmail(ctx context.Context, company string, t domain.EmailTemplate) (string, error) {
	if s.createEmail != nil {
		return s.createEmail(ctx, company, t)
	}
	return "CA-0001", nil
}

func (s stubTplSvc) UpdateEmail(ctx context.Context, company, id string, u templates.EmailUpdate) error {
	if s.updateEmail != nil {
		return s.updateEmail(ctx, company, id, u)
	}
	return nil
}

func (s stubTplSvc) DeleteEmail(ctx context.Context, company, id string) error {
	if s.deleteEmail != nil {
		return s.deleteEmail(ctx, company, id)
	}
	return nil
}

func (s stubTplSvc) CountEmailByCategory(ctx context.Context, company, category string) (int, error) {
	if s.countEmail != nil {
		return s.countEmail(ctx, company, category)
	}
	return 0, nil
}

func (s stubTplSvc) ListWhatsApp(ctx context.Context, company string) ([]domain.WhatsAppTemplate, error) {
	if s.listWA != nil {
		return s.listWA(ctx, company)
	}
	return nil, nil
}

func (s stubTplSvc) GetWhatsApp(ctx context.Context, company, id string) (*domain.WhatsAppTemplate, error) {
	if s.getWA != nil {
		return s.getWA(ctx, company, id)
	}
	return &domain.WhatsAppTemplate{ID: id}, nil
}

func (s stubTplSvc) CreateWhatsApp(ctx context.Context, company string, t domain.WhatsAppTemplate) (string, error) {
	if s.createWA != nil {
		return s.createWA(ctx, company, t)
	}
	return "CA-0001-WA", nil
}

func (s stubTplSvc) UpdateWhatsApp(ctx context.Context, company, id string, u templates.WhatsAppUpdate) error {
	if s.updateWA != nil {
		return s.updateWA(ctx, company, id, u)
	}
	return nil
}

func (s stubTplSvc) DeleteWhatsApp(ctx context.Context, company, id string) error {
	if s.deleteWA != nil {
		return s.deleteWA(ctx, company, id)
	}
	return nil
}

func (s stubTplSvc) CountWhatsAppByCategory(ctx context.Context, company, category string) (int, error) {
	if s.countWA != nil {
		return s.countWA(ctx, company, category)
	}
	return 0, nil
}

type stubSettings struct {
	patchCompany  func(context.Context, string, *bool, *bool, *bool) error
	patchReminder func(context.Context, string, *int, *int, *int, *int) error
}

func (s stubSettings) GetCompanyConfig(ctx context.Context, company string) docstore.CompanyConfig {
	return docstore.CompanyConfig{ProjectEnabled: true, EmailEnabled: true, WhatsAppEnabled: true}
}

func (s stubSettings) PatchCompanyConfig(ctx context.Context, company string, project, email, whatsapp *bool) error {
	if s.patchCompany != nil {
		return s.patchCompany(ctx, company, project, email, whatsapp)
	}
	return nil
}

func (s stubSettings) GetReminderConfig(ctx context.Context, company string) docstore.ReminderConfig {
	return docstore.DefaultReminderConfig()
}

func (s stubSettings) PatchReminderConfig(ctx context.Context, company string, days1, days2, hour, minute *int) error {
	if s.patchReminder != nil {
		return s.patchReminder(ctx, company, days1, days2, hour, minute)
	}
	return nil
}

type stubFailures struct {
	feed     func(context.Context, string) ([]domain.FailureLogEntry, int)
	markRead func(context.Context, string, string) error
}

func (s stubFailures) Feed(ctx context.Context, company string) ([]domain.FailureLogEntry, int) {
	if s.feed != nil {
		return s.feed(ctx, company)
	}
	return nil, 0
}

func (s stubFailures) MarkRead(ctx context.Context, company, entryID string) error {
	if s.markRead != nil {
		return s.markRead(ctx, company, entryID)
	}
	return nil
}

type stubReceipts struct {
	ingest       func(webhook.Event) bool
	list         func(context.Context) ([]domain.Receipt, error)
	updateStatus func(context.Context, string, string) error
	exists       func(context.Context, string, string) (bool, error)
	folioList    func(context.Context, string) (string, int, error)
	sendFolios   func(context.Context, string, string) (string, []string, error)
}

func (s stubReceipts) Ingest(event webhook.Event) bool {
	if s.ingest != nil {
		return s.ingest(event)
	}
	return false
}

func (s stubReceipts) ListReceipts(ctx context.Context) ([]domain.Receipt, error) {
	if s.list != nil {
		return s.list(ctx)
	}
	return nil, nil
}

func (s stubReceipts) UpdateReceiptStatus(ctx context.Context, id, status string) error {
	if s.updateStatus != nil {
		return s.updateStatus(ctx, id, status)
	}
	return nil
}

func (s stubReceipts) ReceiptExists(ctx context.Context, phone, unit string) (bool, error) {
	if s.exists != nil {
		return s.exists(ctx, phone, unit)
	}
	return false, nil
}

func (s stubReceipts) SendFolioList(ctx context.Context, phone, tempLots string) (string, []string, error) {
	if s.sendFolios != nil {
		return s.sendFolios(ctx, phone, tempLots)
	}
	return "", nil, nil
}

func (s stubReceipts) FolioListMessage(ctx context.Context, phone string) (string, int, error) {
	if s.folioList != nil {
		return s.folioList(ctx, phone)
	}
	return "", 0, nil
}

// ---------- wiring helper ----------

// newTestHandlers builds a Handlers with the given stubs and no database.
// Tests exercising the repo-backed endpoints pass newHandlersDB(t) themselves.
func newTestHandlers(db *gorm.DB, sweepSvc SweepService, tagSvc TagService, tplSvc TemplateService, settings SettingsStore, failures FailureFeed, receipts ReceiptService) *Handlers {
	if sweepSvc == nil {
		sweepSvc = stubSweepSvc{}
	}
	if tagSvc == nil {
		tagSvc = stubTagSvc{}
	}
	if tplSvc == nil {
		tplSvc = stubTplSvc{}
	}
	if settings == nil {
		settings = stubSettings{}
	}
	if failures == nil {
		failures = stubFailures{}
	}
	if receipts == nil {
		receipts = stubReceipts{}
	}
	return New("casaluz", db, sweepSvc, tagSvc, tplSvc, settings, failures, receipts)
}
