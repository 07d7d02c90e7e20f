// Package webhook – inbound message ingestion
//
// This package receives messaging-provider webhooks, deduplicates them by
// event ID, and runs the payment-receipt pipeline in the background: pick
// the image attachment, extract the structured receipt, resolve the unit
// token back to a sale, persist the receipt for back-office review, and
// confirm (or apologize) to the sender over WhatsApp.
package webhook

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
	"github.com/casaluz/go-notify-backend/internal/extract"
	"github.com/casaluz/go-notify-backend/internal/gateway"
	"github.com/casaluz/go-notify-backend/internal/repo"
)

// receiptCollection is the top-level document collection holding receipts
// for every company.
const receiptCollection = "ComprobantePago"

// confirmationText is sent to the client once their receipt is stored.
const confirmationText = "🤖 Su pago ha sido registrado y está a la espera de la revisión por un asesor. Serás notificado por este medio en un plazo de 24 a 72 horas (Dias habiles). Gracias por su confianza. \n\n_*Nota:* No es necesario contestar este mensaje._"

// storeErrorText is sent when the receipt could not be persisted.
const storeErrorText = "🤖 No pudimos registrar su comprobante en este momento. Por favor intente de nuevo más tarde o contacte a su asesor."

// unitTokenPattern matches a lot/unit label inside free text, e.g.
// "12 G-CM 3" or "7B".
var unitTokenPattern = regexp.MustCompile(`(?i)\b\d{1,4}\s?[A-Z]{1,2}[\s-]*[A-Z]{0,4}\s?\d{0,4}\b`)

// Store is the document-store subset the webhook worker uses.
type Store interface {
	Set(ctx context.Context, collection, id string, fields docstore.Fields) (*docstore.Document, error)
	Patch(ctx context.Context, collection, id string, fields docstore.Fields) (*docstore.Document, error)
	Get(ctx context.Context, collection, id string) (*docstore.Document, error)
	List(ctx context.Context, collection string) ([]docstore.Document, error)
	QueryAllEqual(ctx context.Context, parent, collection string, filters map[string]string, limit int) ([]docstore.Document, error)
}

// Messenger is the WhatsApp subset the worker uses to talk back to the
// sender and to enrich the payload with the full contact record.
type Messenger interface {
	SendText(ctx context.Context, phone, text string) (gateway.SendResult, error)
	GetContact(ctx context.Context, contactID int64) (*gateway.Contact, error)
}

// FailureRecorder mirrors the failure log interface.
type FailureRecorder interface {
	Record(ctx context.Context, company, message, contextLabel string)
}

// Service runs the webhook ingestion pipeline for one company.
type Service struct {
	Company   string
	ChannelID int

	DB        *gorm.DB
	Store     Store
	Extractor extract.Extractor
	Messenger Messenger
	Failures  FailureRecorder
	Cache     *EventCache

	// Location is the business timezone stamped on receipts.
	Location *time.Location
	// Now is the clock, injectable for tests. Nil means time.Now.
	Now func() time.Time

	// ProcessTimeout bounds one background pipeline run. Zero means two
	// minutes.
	ProcessTimeout time.Duration
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().In(s.Location)
	}
	return time.Now().In(s.Location)
}

// Event is the provider webhook payload, reduced to the fields the
// pipeline reads.
type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Contact   EventContact    `json:"contact"`
	Message   EventMessageRef `json:"message"`
}

// EventContact identifies the sender.
type EventContact struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// EventMessageRef wraps the provider's nested message envelope.
type EventMessageRef struct {
	MessageID        int64        `json:"messageId"`
	ChannelMessageID string       `json:"channelMessageId"`
	Message          EventMessage `json:"message"`
}

// EventMessage is the inner message body.
type EventMessage struct {
	Type        string            `json:"type"`
	Text        string            `json:"text,omitempty"`
	Attachment  *EventAttachment  `json:"attachment,omitempty"`
	Attachments []EventAttachment `json:"attachments,omitempty"`
}

// EventAttachment is one media item of an inbound message.
type EventAttachment struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	FileName string `json:"fileName,omitempty"`
}

// imageAttachment finds the image carried by the message, checking the
// singular field first, then the list. Nil means the message holds no
// image and the pipeline has nothing to do.
func (m EventMessage) imageAttachment() *EventAttachment {
	if m.Attachment != nil && m.Attachment.Type == "image" {
		return m.Attachment
	}
	for i := range m.Attachments {
		if m.Attachments[i].Type == "image" {
			return &m.Attachments[i]
		}
	}
	return nil
}

// Ingest deduplicates the event and, when it carries a receipt image,
// schedules the background pipeline. It returns immediately so the caller
// can acknowledge the provider; the provider retries unacknowledged
// deliveries aggressively.
//
// The boolean reports whether a worker was actually started.
//
// Events without an event_id bypass deduplication and are processed
// anyway; the provider omits the field on some delivery paths.
func (s *Service) Ingest(event Event) bool {
	if event.EventID != "" && s.Cache.Seen(event.EventID) {
		log.Debug().Str("event_id", event.EventID).Msg("webhook: duplicate event ignored")
		return false
	}
	img := event.Message.Message.imageAttachment()
	if img == nil {
		return false
	}

	go func() {
		timeout := s.ProcessTimeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.process(ctx, event, *img)
	}()
	return true
}

// process runs the full receipt pipeline for one event. Extraction
// failures and unmatched unit tokens drop the event without persisting
// or replying; the provider does not retry acknowledged deliveries, so
// the drop is final.
func (s *Service) process(ctx context.Context, event Event, img EventAttachment) {
	extraction, err := s.Extractor.ExtractReceipt(ctx, img.URL)
	if err != nil {
		log.Warn().Err(err).Str("event_id", event.EventID).Msg("webhook: receipt extraction failed")
		s.Failures.Record(ctx, s.Company, fmt.Sprintf("Extracción de comprobante falló para evento %s: %v", event.EventID, err), "OCR_ERROR")
		return
	}
	if extraction.Failed() {
		log.Warn().Str("event_id", event.EventID).Str("reason", extraction.Error).Msg("webhook: receipt unreadable")
		s.Failures.Record(ctx, s.Company, fmt.Sprintf("El modelo no pudo leer el comprobante del evento %s: %s", event.EventID, extraction.Error), "OCR_ERROR")
		return
	}

	contact := s.lookupContact(ctx, event.Contact.ID)
	token := s.unitToken(extraction.Concept, contact)
	sale, err := repo.FindSaleByUnit(ctx, s.DB, token)
	if err != nil {
		log.Warn().Err(err).Str("token", token).Msg("webhook: unit lookup failed")
		s.Failures.Record(ctx, s.Company, fmt.Sprintf("Consulta de lote %q falló para evento %s: %v", token, event.EventID, err), "LOTE_LOOKUP")
		return
	}
	if sale == nil {
		log.Warn().Str("token", token).Str("event_id", event.EventID).Msg("webhook: no active sale matches unit token, event dropped")
		s.Failures.Record(ctx, s.Company, fmt.Sprintf("Lote %q no válido o cancelado en cartera (evento %s)", token, event.EventID), "LOTE_INVALIDO")
		return
	}

	receipt := s.buildReceipt(event, img, extraction, contact, sale)
	if err := s.saveReceipt(ctx, receipt, sale); err != nil {
		log.Error().Err(err).Str("event_id", event.EventID).Msg("webhook: receipt store failed")
		s.Failures.Record(ctx, s.Company, fmt.Sprintf("No se pudo guardar el comprobante del evento %s: %v", event.EventID, err), "COMPROBANTE_STORE")
		s.reply(ctx, event.Contact.Phone, storeErrorText)
		return
	}
	s.reply(ctx, event.Contact.Phone, confirmationText)
}

// lookupContact fetches the full provider contact. Absence is tolerated:
// the pipeline degrades to the webhook's embedded contact snippet.
func (s *Service) lookupContact(ctx context.Context, contactID int64) *gateway.Contact {
	if s.Messenger == nil || contactID == 0 {
		return nil
	}
	c, err := s.Messenger.GetContact(ctx, contactID)
	if err != nil {
		log.Warn().Err(err).Int64("contact_id", contactID).Msg("webhook: contact lookup failed")
		return nil
	}
	return c
}

// unitToken derives the lot/unit search token: first a pattern match over
// the extracted concept, then the concept itself when the extractor filled
// it, finally the lot the client pre-selected in the chat flow.
func (s *Service) unitToken(concept string, contact *gateway.Contact) string {
	if m := unitTokenPattern.FindString(concept); m != "" {
		return strings.TrimSpace(m)
	}
	if concept != "" && !strings.Contains(strings.ToLower(concept), "encontrado") {
		return strings.TrimSpace(concept)
	}
	if contact != nil {
		return strings.TrimSpace(contact.CustomField("lote_seleccionado"))
	}
	return ""
}

func (s *Service) buildReceipt(event Event, img EventAttachment, ex *extract.Extraction, contact *gateway.Contact, sale *domain.Sale) domain.Receipt {
	name := strings.TrimSpace(event.Contact.FirstName + " " + event.Contact.LastName)
	if contact != nil {
		if n := strings.TrimSpace(contact.FirstName + " " + contact.LastName); n != "" {
			name = n
		}
	}
	fileName := img.FileName
	if fileName == "" {
		fileName = "Comprobante.jpg"
	}
	r := domain.Receipt{
		ID:          uuid.NewString(),
		EventID:     event.EventID,
		MessageID:   fmt.Sprintf("%d", event.Message.MessageID),
		Status:      domain.ReceiptStatusPending,
		ContactID:   fmt.Sprintf("%d", event.Contact.ID),
		ContactName: name,
		Phone:       event.Contact.Phone,

		OperationType: ex.OperationType,
		FolioRef:      ex.Folio,
		Timestamp:     ex.DateTime,
		Beneficiary:   ex.Beneficiary,
		Concept:       ex.Concept,
		Amount:        ex.Amount,

		FileName:   fileName,
		ImageURL:   img.URL,
		ReceivedAt: spanishDate(s.now()),
	}
	if sale != nil {
		r.SaleFolio = sale.Folio
		r.ClientName = sale.ClientName
		r.Unit = sale.Unit
		r.Project = sale.Project
		r.Stage = sale.Stage
	}
	return r
}

// saveReceipt writes the receipt document, enriching it with the stage
// gate so reviewers see blocked sales at a glance.
func (s *Service) saveReceipt(ctx context.Context, r domain.Receipt, sale *domain.Sale) error {
	stageActive := ""
	if sale != nil {
		sc, err := repo.GetStageConfig(ctx, s.DB, sale.Stage)
		if err == nil && sc != nil {
			if sc.ProjectEnabled && sc.StageEnabled {
				stageActive = "1"
			} else {
				stageActive = "0"
			}
		}
	}

	fields := docstore.Fields{
		"event_id":     docstore.String(r.EventID),
		"message_id":   docstore.String(r.MessageID),
		"channel_id":   docstore.Int(int64(s.ChannelID)),
		"status":       docstore.String(r.Status),
		"contact_id":   docstore.String(r.ContactID),
		"contact_name": docstore.String(r.ContactName),
		"phone":        docstore.String(r.Phone),
		"sale_folio":   docstore.String(r.SaleFolio),
		"client_name":  docstore.String(r.ClientName),
		"unit":         docstore.String(r.Unit),
		"project":      docstore.String(r.Project),
		"stage":        docstore.String(r.Stage),
		"stage_active": docstore.String(stageActive),

		"operation_type": docstore.String(r.OperationType),
		"folio_ref":      docstore.String(r.FolioRef),
		"timestamp":      docstore.String(r.Timestamp),
		"beneficiary":    docstore.String(r.Beneficiary),
		"concept":        docstore.String(r.Concept),
		"amount":         docstore.String(r.Amount),

		"file_name":   docstore.String(r.FileName),
		"image_url":   docstore.String(r.ImageURL),
		"received_at": docstore.String(r.ReceivedAt),
	}
	_, err := s.Store.Set(ctx, receiptCollection, r.ID, fields)
	return err
}

func (s *Service) reply(ctx context.Context, phone, text string) {
	if s.Messenger == nil || phone == "" {
		return
	}
	if _, err := s.Messenger.SendText(ctx, phone, text); err != nil {
		log.Warn().Err(err).Str("phone", phone).Msg("webhook: reply failed")
	}
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// spanishDate formats "2 de septiembre de 2026 15:04".
func spanishDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d %02d:%02d",
		t.Day(), spanishMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}
