package sweep

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casaluz/go-notify-backend/internal/gateway"
)

var (
	// ErrFolioNotFound is returned when a folio-targeted send resolves to
	// no sale data at all.
	ErrFolioNotFound = errors.New("sweep: folio not found")
	// ErrNoActiveTemplate is returned when a folio-targeted send finds no
	// active template in the requested category.
	ErrNoActiveTemplate = errors.New("sweep: no active template for category")
	// ErrMissingRecipient is returned when a manual send lacks a name or
	// delivery address.
	ErrMissingRecipient = errors.New("sweep: recipient name and address are required")
)

// ManualEmailRequest carries a hand-composed email to explicit recipients.
// Tag placeholders in Subject and HTML are substituted against the folio's
// resolved values; unresolved placeholders are left untouched so the
// operator can see what failed to bind.
type ManualEmailRequest struct {
	Folio   string   `json:"folio"`
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"asunto"`
	HTML    string   `json:"html"`
}

// ManualSendResult reports the provider status per address.
type ManualSendResult struct {
	Email      string `json:"email"`
	StatusCode int    `json:"status_code"`
}

// SendManualEmail sends an operator-composed email. Every address in To
// gets its own delivery so the report can attribute failures per address.
func (e *Engine) SendManualEmail(ctx context.Context, company string, req ManualEmailRequest) ([]ManualSendResult, error) {
	if len(req.To) == 0 {
		return nil, ErrMissingRecipient
	}
	tagValues := map[string]string{}
	if req.Folio != "" {
		resolved, err := e.Resolver.Resolve(ctx, req.Folio)
		if err == nil {
			tagValues = resolved
		}
	}

	subject := substituteTags(req.Subject, tagValues)
	html := substituteTags(req.HTML, tagValues)
	from := gateway.EmailAddress{Email: e.Email.Sender(), Name: "Finanzas " + capitalize(company)}

	results := make([]ManualSendResult, 0, len(req.To))
	for _, to := range req.To {
		msg := gateway.EmailMessage{
			From:    from,
			To:      []gateway.EmailAddress{{Email: to}},
			Subject: subject,
			HTML:    html,
		}
		for _, cc := range req.CC {
			msg.CC = append(msg.CC, gateway.EmailAddress{Email: cc})
		}
		for _, bcc := range req.BCC {
			msg.BCC = append(msg.BCC, gateway.EmailAddress{Email: bcc})
		}
		if req.ReplyTo != "" {
			msg.ReplyTo = &gateway.EmailAddress{Email: req.ReplyTo}
		}
		res, err := e.Email.Send(ctx, msg)
		if err != nil {
			e.Failures.Record(ctx, company, fmt.Sprintf("Email manual falló para %s: %v", to, err), "MANUAL_EMAIL")
			results = append(results, ManualSendResult{Email: to, StatusCode: 0})
			continue
		}
		if !res.Accepted() {
			e.Failures.Record(ctx, company, fmt.Sprintf("Email manual falló (%d) para %s", res.StatusCode, to), "MANUAL_EMAIL")
		}
		results = append(results, ManualSendResult{Email: to, StatusCode: res.StatusCode})
	}
	return results, nil
}

// SendFolioEmail renders the active email template for the category against
// one folio and delivers it to a single explicit recipient.
func (e *Engine) SendFolioEmail(ctx context.Context, company, folio, category, name, email string) (gateway.SendResult, error) {
	if name == "" || email == "" {
		return gateway.SendResult{}, ErrMissingRecipient
	}
	tagValues, err := e.Resolver.Resolve(ctx, folio)
	if err != nil {
		return gateway.SendResult{}, err
	}
	if len(tagValues) == 0 {
		return gateway.SendResult{}, ErrFolioNotFound
	}
	tpl, err := e.Templates.ActiveEmailByCategory(ctx, company, category)
	if err != nil {
		return gateway.SendResult{}, err
	}
	if tpl == nil {
		return gateway.SendResult{}, ErrNoActiveTemplate
	}

	var attachments []gateway.Attachment
	for _, u := range tpl.AttachmentURLs {
		if a := gateway.DownloadAttachment(ctx, e.HTTPClient, u); a != nil {
			attachments = append(attachments, *a)
		}
	}

	msg := gateway.EmailMessage{
		From:        gateway.EmailAddress{Email: e.Email.Sender(), Name: "Notificaciones " + capitalize(company)},
		To:          []gateway.EmailAddress{{Email: email, Name: name}},
		Subject:     gateway.RenderTags(tpl.Subject, tagValues, name, email, ""),
		HTML:        gateway.RenderTags(tpl.HTML, tagValues, name, email, ""),
		Attachments: attachments,
	}
	res, err := e.Email.Send(ctx, msg)
	if err != nil {
		e.Failures.Record(ctx, company, fmt.Sprintf("Email falló (transporte) para %s: %v", email, err), "MAIL_PROVIDER")
		return gateway.SendResult{}, err
	}
	if !res.Accepted() {
		e.Failures.Record(ctx, company, fmt.Sprintf("Email falló (%d) para %s", res.StatusCode, email), "MAIL_PROVIDER")
	}
	return res, nil
}

// SendFolioWhatsApp renders the active WhatsApp template for the category
// against one folio and delivers it to a single explicit recipient.
func (e *Engine) SendFolioWhatsApp(ctx context.Context, company, folio, category, name, phone string) (gateway.SendResult, error) {
	if name == "" || phone == "" {
		return gateway.SendResult{}, ErrMissingRecipient
	}
	tagValues, err := e.Resolver.Resolve(ctx, folio)
	if err != nil {
		return gateway.SendResult{}, err
	}
	if len(tagValues) == 0 {
		e.Failures.Record(ctx, company, fmt.Sprintf("WA manual: el folio %s no trajo info de SQL", folio), "MANUAL_WA")
		return gateway.SendResult{}, ErrFolioNotFound
	}
	tpl, err := e.Templates.ActiveWhatsAppByCategory(ctx, company, category)
	if err != nil {
		return gateway.SendResult{}, err
	}
	if tpl == nil {
		e.Failures.Record(ctx, company, fmt.Sprintf("WA manual: sin plantilla activa para '%s'", category), "MANUAL_WA")
		return gateway.SendResult{}, ErrNoActiveTemplate
	}

	params := gateway.ResolveParams(tpl.Variables, tagValues, name, "", phone)
	body := gateway.PositionalBody(tpl.Body, tpl.Variables)
	normalized := gateway.NormalizePhone(phone)

	res, err := e.WhatsApp.SendTemplate(ctx, normalized, tpl.ProviderID, tpl.Language, params, body)
	if err != nil {
		e.Failures.Record(ctx, company, fmt.Sprintf("WA manual falló para %s: %v", normalized, err), "MANUAL_WA_ERROR")
		return gateway.SendResult{}, err
	}
	if !res.Accepted() {
		e.Failures.Record(ctx, company, fmt.Sprintf("WhatsApp falló (%d) para %s", res.StatusCode, normalized), "WA_PROVIDER_ERROR")
	}
	return res, nil
}

// DualSendResult pairs the per-channel outcomes of a dual send.
type DualSendResult struct {
	WhatsApp string `json:"wa"`
	Email    string `json:"email"`
}

// SendFolioDual delivers WhatsApp first, then email, for one recipient. One
// channel failing does not stop the other.
func (e *Engine) SendFolioDual(ctx context.Context, company, folio, category, name, email, phone string) (DualSendResult, error) {
	if name == "" || (email == "" && phone == "") {
		return DualSendResult{}, ErrMissingRecipient
	}
	out := DualSendResult{WhatsApp: "omitido", Email: "omitido"}
	if phone != "" {
		res, err := e.SendFolioWhatsApp(ctx, company, folio, category, name, phone)
		if err != nil {
			out.WhatsApp = "error: " + err.Error()
		} else {
			out.WhatsApp = fmt.Sprintf("Status: %d", res.StatusCode)
		}
	}
	if email != "" {
		res, err := e.SendFolioEmail(ctx, company, folio, category, name, email)
		if err != nil {
			out.Email = "error: " + err.Error()
		} else {
			out.Email = fmt.Sprintf("Status: %d", res.StatusCode)
		}
	}
	return out, nil
}

// substituteTags replaces every known tag with its value and leaves unknown
// placeholders in place.
func substituteTags(text string, tagValues map[string]string) string {
	for tag, value := range tagValues {
		text = strings.ReplaceAll(text, tag, value)
	}
	return text
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
