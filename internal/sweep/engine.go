package sweep

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
	"github.com/casaluz/go-notify-backend/internal/gateway"
	"github.com/casaluz/go-notify-backend/internal/repo"
	"github.com/casaluz/go-notify-backend/internal/tags"
	"gorm.io/gorm"
)

// Audience selects which folios a sweep targets.
type Audience string

const (
	// AudienceDueSoon targets sales whose next installment is coming up
	// and who owe nothing older.
	AudienceDueSoon Audience = "normal"
	// AudienceDelinquent targets sales with an installment due on the
	// target date that already owe older installments.
	AudienceDelinquent Audience = "deudores"
)

// TagResolver builds the tag map for one folio.
type TagResolver interface {
	Resolve(ctx context.Context, folio string) (map[string]string, error)
}

// TemplateSource provides the active template per category and channel.
type TemplateSource interface {
	ActiveEmailByCategory(ctx context.Context, company, category string) (*domain.EmailTemplate, error)
	ActiveWhatsAppByCategory(ctx context.Context, company, category string) (*domain.WhatsAppTemplate, error)
}

// ConfigSource provides the company master switches.
type ConfigSource interface {
	GetCompanyConfig(ctx context.Context, company string) docstore.CompanyConfig
}

// FailureRecorder receives every negative outcome worth monitoring.
type FailureRecorder interface {
	Record(ctx context.Context, company, message, contextLabel string)
}

// EmailGateway delivers rendered email.
type EmailGateway interface {
	Send(ctx context.Context, msg gateway.EmailMessage) (gateway.SendResult, error)
	Sender() string
}

// WhatsAppGateway delivers template WhatsApp messages.
type WhatsAppGateway interface {
	SendTemplate(ctx context.Context, phone, templateName, language string, params []string, bodyText string) (gateway.SendResult, error)
}

// Engine runs sweeps and manual sends for every company.
type Engine struct {
	DB        *gorm.DB
	Resolver  TagResolver
	Templates TemplateSource
	Config    ConfigSource
	Failures  FailureRecorder

	Email    EmailGateway
	WhatsApp WhatsAppGateway

	// HTTPClient downloads template attachments. Nil means a default
	// client with a short timeout.
	HTTPClient *http.Client

	// Location is the business timezone used for target dates.
	Location *time.Location
	// Now is the clock, injectable for tests. Nil means time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().In(e.Location)
	}
	return time.Now().In(e.Location)
}

// ReportLine is one recipient's pair of channel outcomes.
type ReportLine struct {
	Client   string `json:"cliente"`
	Folio    string `json:"folio"`
	Email    string `json:"email"`
	WhatsApp string `json:"wa"`
}

// Report is the result of one sweep.
type Report struct {
	Status     string       `json:"status"`
	TargetDate string       `json:"fecha_buscada,omitempty"`
	Attempts   int          `json:"total_intentos"`
	Lines      []ReportLine `json:"reporte"`
}

// recipient is one populated co-owner slot of a sale.
type recipient struct {
	Name          string
	Email         string
	Phone         string
	EmailOptIn    bool
	WhatsAppOptIn bool
}

// recipientsOf extracts the populated co-owner slots from a resolved tag
// map. Phone numbers come back with separators stripped; truthy switch
// values are "1" or "True".
func recipientsOf(tagValues map[string]string) []recipient {
	sep := strings.NewReplacer(" ", "", "-", "")
	out := make([]recipient, 0, 6)
	for i := 1; i <= 6; i++ {
		name := tagValues[fmt.Sprintf("{c%d.client_name}", i)]
		if name == "" {
			continue
		}
		out = append(out, recipient{
			Name:          name,
			Email:         tagValues[fmt.Sprintf("{g%d.email}", i)],
			Phone:         sep.Replace(tagValues[fmt.Sprintf("{g%d.telefono}", i)]),
			EmailOptIn:    isTruthy(tagValues[fmt.Sprintf("{g%d.permite_email_lote}", i)]),
			WhatsAppOptIn: isTruthy(tagValues[fmt.Sprintf("{g%d.permite_whatsapp_lote}", i)]),
		})
	}
	return out
}

func isTruthy(v string) bool {
	return v == "1" || v == "True"
}

// Run executes one sweep: it picks the folios whose installment is due
// `days` from today, resolves each one, and attempts both channels for
// every opted-in co-owner. The returned report holds one line per
// recipient; only the two sale-scoped pre-gates abort anything larger than
// a single attempt.
func (e *Engine) Run(ctx context.Context, company string, days int, category string, audience Audience) (*Report, error) {
	cfg := e.Config.GetCompanyConfig(ctx, company)
	if !cfg.ProjectEnabled {
		e.Failures.Record(ctx, company, "Barrido cancelado: Proyecto desactivado en configuración global", "AUTO_BARRIDO")
		return &Report{Status: "off", Lines: []ReportLine{}}, nil
	}

	emailTpl, _ := e.Templates.ActiveEmailByCategory(ctx, company, category)
	waTpl, _ := e.Templates.ActiveWhatsAppByCategory(ctx, company, category)
	if cfg.EmailEnabled && emailTpl == nil {
		e.Failures.Record(ctx, company, fmt.Sprintf("Email activado pero no hay plantilla activa para '%s'", category), "AUTO_BARRIDO")
	}
	if cfg.WhatsAppEnabled && waTpl == nil {
		e.Failures.Record(ctx, company, fmt.Sprintf("WhatsApp activado pero no hay plantilla activa para '%s'", category), "AUTO_BARRIDO")
	}

	targetDate := e.now().AddDate(0, 0, days).Format("2006-01-02")
	var folios []string
	var err error
	if audience == AudienceDelinquent {
		folios, err = repo.DelinquentFolios(ctx, e.DB, targetDate)
	} else {
		folios, err = repo.DueSoonFolios(ctx, e.DB, targetDate)
	}
	if err != nil {
		e.Failures.Record(ctx, company, fmt.Sprintf("Error SQL: %v", err), "DATABASE")
		return nil, err
	}

	report := &Report{Status: "proceso_finalizado", TargetDate: targetDate, Lines: []ReportLine{}}
	for _, folio := range folios {
		tagValues, err := e.Resolver.Resolve(ctx, folio)
		if err != nil {
			e.Failures.Record(ctx, company, fmt.Sprintf("Error SQL: %v", err), "DATABASE")
			continue
		}
		if len(tagValues) == 0 {
			e.Failures.Record(ctx, company, fmt.Sprintf("El folio %s no trajo info de SQL", folio), "DATOS_SQL")
			continue
		}
		if tagValues[tags.TagStageActive] == "0" {
			reason := tagValues[tags.TagBlockReason]
			if reason == "" {
				reason = "Bloqueo por configuración de Etapa/Proyecto"
			}
			e.Failures.Record(ctx, company, fmt.Sprintf("Folio %s saltado: %s", folio, reason), "BLOQUEO_ADMINISTRATIVO")
			continue
		}

		for _, r := range recipientsOf(tagValues) {
			line := ReportLine{Client: r.Name, Folio: folio}
			line.Email = e.attemptEmail(ctx, company, cfg, emailTpl, r, folio, tagValues).String()
			line.WhatsApp = e.attemptWhatsApp(ctx, company, cfg, waTpl, r, tagValues).String()
			report.Lines = append(report.Lines, line)
		}
	}
	report.Attempts = len(report.Lines)
	return report, nil
}

// attemptEmail runs the email gate chain for one recipient and, when every
// gate passes, renders and delivers the message.
func (e *Engine) attemptEmail(ctx context.Context, company string, cfg docstore.CompanyConfig, tpl *domain.EmailTemplate, r recipient, folio string, tagValues map[string]string) Outcome {
	switch {
	case !cfg.EmailEnabled:
		e.Failures.Record(ctx, company, fmt.Sprintf("Email omitido para %s: Switch Global OFF.", r.Name), "GLOBAL_OFF")
		return Skip(SkipGlobalOff)
	case tpl == nil:
		e.Failures.Record(ctx, company, fmt.Sprintf("Email omitido para %s: Sin plantilla activa.", r.Name), "PLANTILLA_OFF")
		return Skip(SkipNoTemplate)
	case !r.EmailOptIn:
		e.Failures.Record(ctx, company, fmt.Sprintf("Email omitido para %s: Usuario apagó switch de lote %s.", r.Name, folio), "USER_LOTE_OFF")
		return Skip(SkipLotOff)
	case r.Email == "":
		e.Failures.Record(ctx, company, fmt.Sprintf("Email omitido para %s: No tiene correo registrado.", r.Name), "DATA_MISSING")
		return Skip(SkipNoData)
	}

	var attachments []gateway.Attachment
	for _, u := range tpl.AttachmentURLs {
		if a := gateway.DownloadAttachment(ctx, e.HTTPClient, u); a != nil {
			attachments = append(attachments, *a)
		}
	}

	msg := gateway.EmailMessage{
		From:        gateway.EmailAddress{Email: e.Email.Sender(), Name: "Notificaciones " + company},
		To:          []gateway.EmailAddress{{Email: r.Email, Name: r.Name}},
		Subject:     gateway.RenderTags(tpl.Subject, tagValues, r.Name, r.Email, r.Phone),
		HTML:        gateway.RenderTags(tpl.HTML, tagValues, r.Name, r.Email, r.Phone),
		Attachments: attachments,
	}
	res, err := e.Email.Send(ctx, msg)
	if err != nil {
		e.Failures.Record(ctx, company, fmt.Sprintf("Email falló (transporte) para %s: %v", r.Email, err), "MAIL_PROVIDER")
		return Fail(0, err.Error())
	}
	if !res.Accepted() {
		e.Failures.Record(ctx, company, fmt.Sprintf("Email falló (%d) para %s", res.StatusCode, r.Email), "MAIL_PROVIDER")
	}
	return outcomeFrom(res.StatusCode, truncate(res.Body, 100), res.Accepted())
}

// attemptWhatsApp runs the WhatsApp gate chain for one recipient and, when
// every gate passes, builds the positional template call and delivers it.
func (e *Engine) attemptWhatsApp(ctx context.Context, company string, cfg docstore.CompanyConfig, tpl *domain.WhatsAppTemplate, r recipient, tagValues map[string]string) Outcome {
	switch {
	case !cfg.WhatsAppEnabled:
		e.Failures.Record(ctx, company, fmt.Sprintf("WA saltado para %s: Switch Global OFF.", r.Name), "GLOBAL_OFF")
		return Skip(SkipGlobalOff)
	case tpl == nil:
		e.Failures.Record(ctx, company, fmt.Sprintf("WA saltado para %s: No hay plantilla activa.", r.Name), "PLANTILLA_OFF")
		return Skip(SkipNoTemplate)
	case !r.WhatsAppOptIn:
		e.Failures.Record(ctx, company, fmt.Sprintf("WA saltado para %s: Lote bloqueado en SQL.", r.Name), "USER_LOTE_OFF")
		return Skip(SkipLotOff)
	case r.Phone == "":
		e.Failures.Record(ctx, company, fmt.Sprintf("WA saltado para %s: Falta número de teléfono.", r.Name), "DATA_MISSING")
		return Skip(SkipNoPhone)
	}

	params := gateway.ResolveParams(tpl.Variables, tagValues, r.Name, r.Email, r.Phone)
	body := gateway.PositionalBody(tpl.Body, tpl.Variables)
	phone := gateway.NormalizePhone(r.Phone)

	res, err := e.WhatsApp.SendTemplate(ctx, phone, tpl.ProviderID, tpl.Language, params, body)
	if err != nil {
		e.Failures.Record(ctx, company, fmt.Sprintf("WhatsApp falló (transporte) para %s: %v", phone, err), "WA_PROVIDER")
		return Fail(0, err.Error())
	}
	if !res.Accepted() {
		e.Failures.Record(ctx, company, fmt.Sprintf("WhatsApp falló (%d) para %s", res.StatusCode, phone), "WA_PROVIDER")
	}
	return outcomeFrom(res.StatusCode, "", res.Accepted())
}
