// Package templates – template store
//
// This package manages the message templates a company keeps in the shared
// document store: one collection for email templates and one for WhatsApp
// templates. Templates are grouped by category, and within a category at
// most one template should be active at a time; Activate-style writes
// enforce that by switching the chosen document on and then sweeping its
// siblings off. The two writes are not atomic, so a crash between them can
// briefly leave two active templates; the next activation repairs it.
//
// Templates flagged as system templates are seeded by operations and can
// never be deleted through this service. An attempt to do so is recorded as
// a security failure.
package templates

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
)

const (
	emailCollection    = "plantillas"
	whatsappCollection = "plantillas_whatsapp"
)

var (
	// ErrTemplateNotFound indicates the document does not exist.
	ErrTemplateNotFound = errors.New("templates: template not found")
	// ErrSystemTemplate indicates a delete was refused because the
	// template is a protected system template.
	ErrSystemTemplate = errors.New("templates: system template cannot be deleted")
	// ErrNoFields indicates an update carried nothing to change.
	ErrNoFields = errors.New("templates: no fields to update")
)

// Store defines the document store operations the template service needs.
type Store interface {
	Get(ctx context.Context, collection, id string) (*docstore.Document, error)
	Create(ctx context.Context, collection, id string, fields docstore.Fields) (*docstore.Document, error)
	Patch(ctx context.Context, collection, id string, fields docstore.Fields) (*docstore.Document, error)
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]docstore.Document, error)
	QueryEqual(ctx context.Context, parent, collection, field, value string) ([]docstore.Document, error)
}

// FailureRecorder receives the security log entry written when a protected
// template delete is refused.
type FailureRecorder interface {
	Record(ctx context.Context, company, message, contextLabel string)
}

// Service manages both template collections of every company.
type Service struct {
	Store    Store
	Failures FailureRecorder
}

// NewService constructs a template Service.
func NewService(store Store, failures FailureRecorder) *Service {
	return &Service{Store: store, Failures: failures}
}

func emailPath(company string) string {
	return fmt.Sprintf("empresas/%s/%s", company, emailCollection)
}

func whatsappPath(company string) string {
	return fmt.Sprintf("empresas/%s/%s", company, whatsappCollection)
}

// NextEmailID scans the existing email template IDs and returns the next
// one: the two-letter uppercased company prefix plus a four-digit counter,
// e.g. "KO-0007". Concurrent creators can race to the same ID; the store's
// create-with-ID then rejects the loser.
func (s *Service) NextEmailID(ctx context.Context, company string) (string, error) {
	docs, err := s.Store.List(ctx, emailPath(company))
	if err != nil {
		return "", err
	}
	prefix := idPrefix(company)
	re := regexp.MustCompile(prefix + `-(\d+)`)
	return nextID(docs, re, prefix, ""), nil
}

// NextWhatsAppID is NextEmailID for the WhatsApp collection; IDs carry a
// "-WA" suffix, e.g. "KO-0007-WA".
func (s *Service) NextWhatsAppID(ctx context.Context, company string) (string, error) {
	docs, err := s.Store.List(ctx, whatsappPath(company))
	if err != nil {
		return "", err
	}
	prefix := idPrefix(company)
	re := regexp.MustCompile(prefix + `-(\d+)-WA`)
	return nextID(docs, re, prefix, "-WA"), nil
}

func idPrefix(company string) string {
	p := company
	if len(p) > 2 {
		p = p[:2]
	}
	return strings.ToUpper(p)
}

func nextID(docs []docstore.Document, re *regexp.Regexp, prefix, suffix string) string {
	max := 0
	for _, d := range docs {
		m := re.FindStringSubmatch(d.ID())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%04d%s", prefix, max+1, suffix)
}

// ensureSingleActive turns off every other template of the same category in
// collection, leaving keepID as the only active one. Sibling patch errors
// are collected but do not stop the sweep.
func (s *Service) ensureSingleActive(ctx context.Context, company, collection, keepID, category string) error {
	docs, err := s.Store.QueryEqual(ctx, "empresas/"+company, collection, "categoria", category)
	if err != nil {
		return err
	}
	var firstErr error
	path := fmt.Sprintf("empresas/%s/%s", company, collection)
	for _, d := range docs {
		if d.ID() == keepID {
			continue
		}
		if _, err := s.Store.Patch(ctx, path, d.ID(), docstore.Fields{"activo": docstore.Bool(false)}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func emailFromDoc(d docstore.Document) domain.EmailTemplate {
	return domain.EmailTemplate{
		ID:             d.ID(),
		Name:           d.Fields.GetString("nombre", ""),
		Category:       d.Fields.GetString("categoria", ""),
		Subject:        d.Fields.GetString("asunto", ""),
		HTML:           d.Fields.GetString("html", ""),
		Active:         d.Fields.GetBool("activo", false),
		System:         d.Fields.GetBool("static", false),
		DepartmentTags: d.Fields.GetStrings("tags_departamento"),
		AttachmentURLs: d.Fields.GetStrings("adjuntos_url"),
	}
}

func whatsappFromDoc(d docstore.Document) domain.WhatsAppTemplate {
	return domain.WhatsAppTemplate{
		ID:         d.ID(),
		Name:       d.Fields.GetString("nombre", ""),
		ProviderID: d.Fields.GetString("id_respond", ""),
		Category:   d.Fields.GetString("categoria", ""),
		Language:   d.Fields.GetString("lenguaje", ""),
		Body:       d.Fields.GetString("mensaje", ""),
		Active:     d.Fields.GetBool("activo", false),
		Variables:  d.Fields.GetStrings("variables"),
	}
}
