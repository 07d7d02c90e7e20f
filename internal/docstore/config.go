package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Document paths under empresas/{company} that hold company-level settings.
// The wire names are fixed by the shared store and predate this service.
const (
	configCollection  = "configuracion"
	generalDocID      = "general"
	remindersDocID    = "recordatorios"
	fieldProjectOn    = "proyecto_activo"
	fieldEmailOn      = "email_enabled"
	fieldWhatsAppOn   = "whatsapp_enabled"
	fieldReminder1    = "recordatorio_1"
	fieldReminder2    = "recordatorio_2"
	fieldReminderHour = "hora_recordatorio"
	fieldReminderMin  = "minuto_recordatorio"
)

// CompanyConfig holds the three master dispatch switches of a company.
type CompanyConfig struct {
	ProjectEnabled  bool `json:"proyecto_activo"`
	EmailEnabled    bool `json:"email_enabled"`
	WhatsAppEnabled bool `json:"whatsapp_enabled"`
}

// ReminderConfig holds the sweep schedule of a company: two day offsets and
// the local time of day the daily job fires.
type ReminderConfig struct {
	Days1  int `json:"dias_1"`
	Days2  int `json:"dias_2"`
	Hour   int `json:"hora"`
	Minute int `json:"minuto"`
}

// DefaultReminderConfig is used whenever the remote document is missing or
// unreadable, so a store outage never silences the daily sweep.
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{Days1: 3, Days2: 1, Hour: 10, Minute: 0}
}

func configPath(company string) string {
	return fmt.Sprintf("empresas/%s/%s", company, configCollection)
}

// GetCompanyConfig reads the master switches of a company. A missing
// document, a missing field, or any store error all resolve to enabled, so
// dispatch keeps working when the config store is down.
func (c *Client) GetCompanyConfig(ctx context.Context, company string) CompanyConfig {
	open := CompanyConfig{ProjectEnabled: true, EmailEnabled: true, WhatsAppEnabled: true}
	doc, err := c.Get(ctx, configPath(company), generalDocID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("company", company).Msg("company config unavailable, defaulting to enabled")
		}
		return open
	}
	return CompanyConfig{
		ProjectEnabled:  doc.Fields.GetBool(fieldProjectOn, true),
		EmailEnabled:    doc.Fields.GetBool(fieldEmailOn, true),
		WhatsAppEnabled: doc.Fields.GetBool(fieldWhatsAppOn, true),
	}
}

// PatchCompanyConfig updates only the switches whose pointers are non-nil.
func (c *Client) PatchCompanyConfig(ctx context.Context, company string, project, email, whatsapp *bool) error {
	fields := Fields{}
	if project != nil {
		fields[fieldProjectOn] = Bool(*project)
	}
	if email != nil {
		fields[fieldEmailOn] = Bool(*email)
	}
	if whatsapp != nil {
		fields[fieldWhatsAppOn] = Bool(*whatsapp)
	}
	if len(fields) == 0 {
		return nil
	}
	_, err := c.Patch(ctx, configPath(company), generalDocID, fields)
	return err
}

// GetReminderConfig reads the sweep schedule of a company, falling back to
// DefaultReminderConfig on any error.
func (c *Client) GetReminderConfig(ctx context.Context, company string) ReminderConfig {
	doc, err := c.Get(ctx, configPath(company), remindersDocID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("company", company).Msg("reminder config unavailable, using defaults")
		}
		return DefaultReminderConfig()
	}
	def := DefaultReminderConfig()
	return ReminderConfig{
		Days1:  int(doc.Fields.GetInt(fieldReminder1, int64(def.Days1))),
		Days2:  int(doc.Fields.GetInt(fieldReminder2, int64(def.Days2))),
		Hour:   int(doc.Fields.GetInt(fieldReminderHour, int64(def.Hour))),
		Minute: int(doc.Fields.GetInt(fieldReminderMin, int64(def.Minute))),
	}
}

// PatchReminderConfig updates only the schedule fields whose pointers are
// non-nil. A call with nothing to update is a no-op.
func (c *Client) PatchReminderConfig(ctx context.Context, company string, days1, days2, hour, minute *int) error {
	fields := Fields{}
	if days1 != nil {
		fields[fieldReminder1] = Int(int64(*days1))
	}
	if days2 != nil {
		fields[fieldReminder2] = Int(int64(*days2))
	}
	if hour != nil {
		fields[fieldReminderHour] = Int(int64(*hour))
	}
	if minute != nil {
		fields[fieldReminderMin] = Int(int64(*minute))
	}
	if len(fields) == 0 {
		return nil
	}
	_, err := c.Patch(ctx, configPath(company), remindersDocID, fields)
	return err
}
