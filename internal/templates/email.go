package templates

import (
	"context"
	"errors"
	"fmt"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
)

// EmailUpdate carries a partial email template update. Nil members stay
// untouched.
type EmailUpdate struct {
	Name           *string
	Subject        *string
	HTML           *string
	Category       *string
	Active         *bool
	DepartmentTags []string
	AttachmentURLs []string
}

// ListEmail returns every email template of a company.
func (s *Service) ListEmail(ctx context.Context, company string) ([]domain.EmailTemplate, error) {
	docs, err := s.Store.List(ctx, emailPath(company))
	if err != nil {
		return nil, err
	}
	out := make([]domain.EmailTemplate, 0, len(docs))
	for _, d := range docs {
		out = append(out, emailFromDoc(d))
	}
	return out, nil
}

// GetEmail fetches one email template.
func (s *Service) GetEmail(ctx context.Context, company, id string) (*domain.EmailTemplate, error) {
	doc, err := s.Store.Get(ctx, emailPath(company), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	t := emailFromDoc(*doc)
	return &t, nil
}

// CreateEmail stores a new email template under the next generated ID and,
// when it is created active, deactivates its category siblings.
func (s *Service) CreateEmail(ctx context.Context, company string, t domain.EmailTemplate) (string, error) {
	id, err := s.NextEmailID(ctx, company)
	if err != nil {
		return "", err
	}
	fields := docstore.Fields{
		"id":                docstore.String(id),
		"nombre":            docstore.String(t.Name),
		"categoria":         docstore.String(t.Category),
		"asunto":            docstore.String(t.Subject),
		"html":              docstore.String(t.HTML),
		"activo":            docstore.Bool(t.Active),
		"static":            docstore.Bool(false),
		"tags_departamento": docstore.Strings(t.DepartmentTags),
	}
	if len(t.AttachmentURLs) > 0 {
		fields["adjuntos_url"] = docstore.Strings(t.AttachmentURLs)
	}
	if _, err := s.Store.Create(ctx, emailPath(company), id, fields); err != nil {
		return "", err
	}
	if t.Active {
		if err := s.ensureSingleActive(ctx, company, emailCollection, id, t.Category); err != nil {
			return id, err
		}
	}
	return id, nil
}

// UpdateEmail patches the provided fields of one email template. When the
// update turns the template active, the rest of its category is turned off;
// the category is read back from the store if the update did not carry it.
func (s *Service) UpdateEmail(ctx context.Context, company, id string, u EmailUpdate) error {
	fields := docstore.Fields{}
	if u.Name != nil {
		fields["nombre"] = docstore.String(*u.Name)
	}
	if u.Subject != nil {
		fields["asunto"] = docstore.String(*u.Subject)
	}
	if u.HTML != nil {
		fields["html"] = docstore.String(*u.HTML)
	}
	if u.Category != nil {
		fields["categoria"] = docstore.String(*u.Category)
	}
	if u.Active != nil {
		fields["activo"] = docstore.Bool(*u.Active)
	}
	if u.DepartmentTags != nil {
		fields["tags_departamento"] = docstore.Strings(u.DepartmentTags)
	}
	if u.AttachmentURLs != nil {
		fields["adjuntos_url"] = docstore.Strings(u.AttachmentURLs)
	}
	if len(fields) == 0 {
		return ErrNoFields
	}

	if _, err := s.Store.Patch(ctx, emailPath(company), id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}

	if u.Active != nil && *u.Active {
		category := ""
		if u.Category != nil {
			category = *u.Category
		} else if current, err := s.GetEmail(ctx, company, id); err == nil {
			category = current.Category
		}
		if category != "" {
			return s.ensureSingleActive(ctx, company, emailCollection, id, category)
		}
	}
	return nil
}

// DeleteEmail removes one email template. A missing template reports
// ErrTemplateNotFound before any protection check; a system template is
// refused with ErrSystemTemplate and leaves a security entry in the
// failure log.
func (s *Service) DeleteEmail(ctx context.Context, company, id string) error {
	current, err := s.GetEmail(ctx, company, id)
	if err != nil {
		return err
	}
	if current.System {
		s.Failures.Record(ctx, company,
			fmt.Sprintf("BLOQUEO DE SEGURIDAD: Intento de eliminar la Plantilla Base '%s'.", id),
			"SEGURIDAD_CRUD")
		return ErrSystemTemplate
	}
	return s.Store.Delete(ctx, emailPath(company), id)
}

// CountEmailByCategory returns how many email templates a category holds.
func (s *Service) CountEmailByCategory(ctx context.Context, company, category string) (int, error) {
	docs, err := s.Store.QueryEqual(ctx, "empresas/"+company, emailCollection, "categoria", category)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// ActiveEmailByCategory returns the active email template of a category, or
// nil when the category has none.
func (s *Service) ActiveEmailByCategory(ctx context.Context, company, category string) (*domain.EmailTemplate, error) {
	docs, err := s.Store.QueryEqual(ctx, "empresas/"+company, emailCollection, "categoria", category)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.Fields.GetBool("activo", false) {
			t := emailFromDoc(d)
			return &t, nil
		}
	}
	return nil, nil
}
