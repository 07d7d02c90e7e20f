// Package tags – template tag resolver
//
// This package turns the relational picture of one sale (contract, payment
// plan, co-owners, consent switches, arrears) into a flat map of tag→string
// that templates substitute into subject lines and bodies. Tag names are
// part of the shared template vocabulary and keep their historical wire
// spelling.
//
// The vocabulary is declared once in the static tables below. Each table
// pairs a tag suffix with an accessor over the owning entity, so the full
// tag set is known at compile time and resolution never inspects types at
// runtime.
package tags

import (
	"strconv"

	"github.com/casaluz/go-notify-backend/internal/domain"
)

// coOwnerSlots is the fixed number of co-owner positions a sale carries.
const coOwnerSlots = 6

// conceptLabels maps the payment plan's internal concept codes to the
// customer-facing wording used in messages.
var conceptLabels = map[string]string{
	"financing":       "Parcialidad",
	"down_payment":    "Enganche",
	"initial_payment": "Apartado",
	"last_payment":    "Último pago",
}

// ConceptLabel translates an internal concept code, returning the code
// itself when no translation exists.
func ConceptLabel(code string) string {
	if label, ok := conceptLabels[code]; ok {
		return label
	}
	return code
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// saleFields is the v.* namespace over the Sale entity.
var saleFields = []struct {
	Suffix string
	Get    func(*domain.Sale) string
}{
	{"folio", func(s *domain.Sale) string { return s.Folio }},
	{"desarrollo", func(s *domain.Sale) string { return s.Project }},
	{"etapa", func(s *domain.Sale) string { return s.Stage }},
	{"numero", func(s *domain.Sale) string { return s.Unit }},
	{"cliente", func(s *domain.Sale) string { return s.ClientName }},
	{"telefono", func(s *domain.Sale) string { return s.Phone }},
	{"correo_electronico", func(s *domain.Sale) string { return s.Email }},
	{"precio_lista", func(s *domain.Sale) string { return formatFloat(s.ListPrice) }},
	{"precio_final", func(s *domain.Sale) string { return formatFloat(s.FinalPrice) }},
	{"moneda", func(s *domain.Sale) string { return s.Currency }},
	{"estado_expediente", func(s *domain.Sale) string { return s.FileStatus }},
	{"id_cliente", func(s *domain.Sale) string { return s.ClientID1 }},
	{"id_cliente_2", func(s *domain.Sale) string { return s.ClientID2 }},
	{"id_cliente_3", func(s *domain.Sale) string { return s.ClientID3 }},
	{"id_cliente_4", func(s *domain.Sale) string { return s.ClientID4 }},
	{"id_cliente_5", func(s *domain.Sale) string { return s.ClientID5 }},
	{"id_cliente_6", func(s *domain.Sale) string { return s.ClientID6 }},
}

// entryFields is the p.* namespace over the current-period
// AmortizationEntry. The concept field carries the translated label.
var entryFields = []struct {
	Suffix string
	Get    func(*domain.AmortizationEntry) string
}{
	{"folder_id", func(e *domain.AmortizationEntry) string { return e.SaleFolio }},
	{"number", func(e *domain.AmortizationEntry) string { return strconv.Itoa(e.Number) }},
	{"date", func(e *domain.AmortizationEntry) string { return e.DueDate }},
	{"concept", func(e *domain.AmortizationEntry) string { return ConceptLabel(e.Concept) }},
	{"capital", func(e *domain.AmortizationEntry) string { return formatFloat(e.Capital) }},
	{"interest", func(e *domain.AmortizationEntry) string { return formatFloat(e.Interest) }},
	{"total", func(e *domain.AmortizationEntry) string { return formatFloat(e.Total) }},
	{"penalized_amount", func(e *domain.AmortizationEntry) string { return formatFloat(e.Penalty) }},
}

// clientFields is the cN.* namespace over each co-owner's Client record.
var clientFields = []struct {
	Suffix string
	Get    func(*domain.Client) string
}{
	{"client_id", func(c *domain.Client) string { return c.ClientID }},
	{"client_name", func(c *domain.Client) string { return c.ClientName }},
	{"address", func(c *domain.Client) string { return c.Address }},
	{"city", func(c *domain.Client) string { return c.City }},
}

// managementFields is the gN.* namespace over each co-owner's management
// record. Switches render as "1"/"0" so templates can test them.
var managementFields = []struct {
	Suffix string
	Get    func(*domain.ClientManagementRecord) string
}{
	{"folio", func(m *domain.ClientManagementRecord) string { return m.SaleFolio }},
	{"client_id", func(m *domain.ClientManagementRecord) string { return m.ClientID }},
	{"email", func(m *domain.ClientManagementRecord) string { return m.Email }},
	{"telefono", func(m *domain.ClientManagementRecord) string { return m.Phone }},
	{"permite_email_lote", func(m *domain.ClientManagementRecord) string { return boolFlag(m.AllowEmailBatch) }},
	{"permite_whatsapp_lote", func(m *domain.ClientManagementRecord) string { return boolFlag(m.AllowWhatsAppBatch) }},
	{"permite_marketing_email", func(m *domain.ClientManagementRecord) string { return boolFlag(m.AllowEmailMarketing) }},
	{"permite_marketing_whatsapp", func(m *domain.ClientManagementRecord) string { return boolFlag(m.AllowWhatsAppMarketing) }},
}

// Summary tag names, grouped the way the resolver emits them.
var (
	clientSummaryTags = []string{
		"{cl.unidad}", "{cl.monto}", "{cl.monto_a_pagar}", "{cl.cliente}",
		"{cl.num}", "{cl.fecha}", "{cl.concepto}", "{cl.proyecto}",
	}
	arrearsTags = []string{
		"{ven.saldo_vencido}", "{ven.saldo_total_vencido}", "{ven.saldo_total_a_pagar}",
		"{ven.saldo_total_mes}", "{ven.penalizacion_del_mes}", "{ven.penalizacion_vencida}",
		"{ven.mensualidades_vencidas}", "{ven.importe_del_mes}", "{ven.cuota_mes_pendiente}",
		"{ven.dias_atraso}",
	}
	controlTags = []string{"{sys.etapa_activa}", "{sys.bloqueo_motivo}"}
)

// Control tag names referenced by the gating pipeline.
const (
	TagStageActive = "{sys.etapa_activa}"
	TagBlockReason = "{sys.bloqueo_motivo}"
)
