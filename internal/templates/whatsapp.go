package templates

import (
	"context"
	"errors"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
)

// WhatsAppUpdate carries a partial WhatsApp template update. Nil members
// stay untouched.
type WhatsAppUpdate struct {
	Name       *string
	ProviderID *string
	Category   *string
	Language   *string
	Body       *string
	Active     *bool
	Variables  []string
}

// ListWhatsApp returns every WhatsApp template of a company.
func (s *Service) ListWhatsApp(ctx context.Context, company string) ([]domain.WhatsAppTemplate, error) {
	docs, err := s.Store.List(ctx, whatsappPath(company))
	if err != nil {
		return nil, err
	}
	out := make([]domain.WhatsAppTemplate, 0, len(docs))
	for _, d := range docs {
		out = append(out, whatsappFromDoc(d))
	}
	return out, nil
}

// GetWhatsApp fetches one WhatsApp template.
func (s *Service) GetWhatsApp(ctx context.Context, company, id string) (*domain.WhatsAppTemplate, error) {
	doc, err := s.Store.Get(ctx, whatsappPath(company), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	t := whatsappFromDoc(*doc)
	return &t, nil
}

// CreateWhatsApp stores a new WhatsApp template under the next generated
// "-WA" ID and, when created active, deactivates its category siblings.
func (s *Service) CreateWhatsApp(ctx context.Context, company string, t domain.WhatsAppTemplate) (string, error) {
	id, err := s.NextWhatsAppID(ctx, company)
	if err != nil {
		return "", err
	}
	fields := docstore.Fields{
		"id":         docstore.String(id),
		"nombre":     docstore.String(t.Name),
		"categoria":  docstore.String(t.Category),
		"id_respond": docstore.String(t.ProviderID),
		"lenguaje":   docstore.String(t.Language),
		"mensaje":    docstore.String(t.Body),
		"activo":     docstore.Bool(t.Active),
		"variables":  docstore.Strings(t.Variables),
	}
	if _, err := s.Store.Create(ctx, whatsappPath(company), id, fields); err != nil {
		return "", err
	}
	if t.Active {
		if err := s.ensureSingleActive(ctx, company, whatsappCollection, id, t.Category); err != nil {
			return id, err
		}
	}
	return id, nil
}

// UpdateWhatsApp patches the provided fields of one WhatsApp template,
// enforcing single-active when the update activates it.
func (s *Service) UpdateWhatsApp(ctx context.Context, company, id string, u WhatsAppUpdate) error {
	fields := docstore.Fields{}
	if u.Name != nil {
		fields["nombre"] = docstore.String(*u.Name)
	}
	if u.ProviderID != nil {
		fields["id_respond"] = docstore.String(*u.ProviderID)
	}
	if u.Category != nil {
		fields["categoria"] = docstore.String(*u.Category)
	}
	if u.Language != nil {
		fields["lenguaje"] = docstore.String(*u.Language)
	}
	if u.Body != nil {
		fields["mensaje"] = docstore.String(*u.Body)
	}
	if u.Active != nil {
		fields["activo"] = docstore.Bool(*u.Active)
	}
	if u.Variables != nil {
		fields["variables"] = docstore.Strings(u.Variables)
	}
	if len(fields) == 0 {
		return ErrNoFields
	}

	if _, err := s.Store.Patch(ctx, whatsappPath(company), id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}

	if u.Active != nil && *u.Active {
		category := ""
		if u.Category != nil {
			category = *u.Category
		} else if current, err := s.GetWhatsApp(ctx, company, id); err == nil {
			category = current.Category
		}
		if category != "" {
			return s.ensureSingleActive(ctx, company, whatsappCollection, id, category)
		}
	}
	return nil
}

// DeleteWhatsApp removes one WhatsApp template. WhatsApp templates carry no
// system flag today, so only existence is checked.
func (s *Service) DeleteWhatsApp(ctx context.Context, company, id string) error {
	if _, err := s.GetWhatsApp(ctx, company, id); err != nil {
		return err
	}
	return s.Store.Delete(ctx, whatsappPath(company), id)
}

// CountWhatsAppByCategory returns how many WhatsApp templates a category holds.
func (s *Service) CountWhatsAppByCategory(ctx context.Context, company, category string) (int, error) {
	docs, err := s.Store.QueryEqual(ctx, "empresas/"+company, whatsappCollection, "categoria", category)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// ActiveWhatsAppByCategory returns the active WhatsApp template of a
// category, or nil when the category has none.
func (s *Service) ActiveWhatsAppByCategory(ctx context.Context, company, category string) (*domain.WhatsAppTemplate, error) {
	docs, err := s.Store.QueryEqual(ctx, "empresas/"+company, whatsappCollection, "categoria", category)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.Fields.GetBool("activo", false) {
			t := whatsappFromDoc(d)
			return &t, nil
		}
	}
	return nil, nil
}
