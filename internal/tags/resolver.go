package tags

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"github.com/casaluz/go-notify-backend/internal/domain"
	"github.com/casaluz/go-notify-backend/internal/repo"
)

// Resolver builds the flat tag map for one sale. It reads the relational
// store only; document-store state (templates, config) is not its concern.
type Resolver struct {
	// DB is the GORM handle over the synced business data.
	DB *gorm.DB

	// Location is the business timezone used to pick the current-period
	// entry and compute day deltas.
	Location *time.Location

	// Now is the clock, injectable for tests. Nil means time.Now.
	Now func() time.Time
}

// NewResolver constructs a Resolver in the given business timezone.
func NewResolver(db *gorm.DB, loc *time.Location) *Resolver {
	return &Resolver{DB: db, Location: loc}
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now().In(r.Location)
	}
	return time.Now().In(r.Location)
}

// money renders an amount as a two-decimal currency string with thousands
// grouping, e.g. "$5,000.00".
var moneyPrinter = message.NewPrinter(language.English)

func money(v float64) string {
	return moneyPrinter.Sprintf("$%.2f", v)
}

// cleanClientID strips the float artifacts spreadsheet syncs leave on
// identifier columns ("1042.0" becomes "1042").
func cleanClientID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return raw
}

// Discover returns the complete tag vocabulary with every value empty.
// Template authors use it to see what they can reference; the set of keys
// is stable across calls.
func (r *Resolver) Discover() map[string]string {
	out := make(map[string]string, 128)
	for _, f := range saleFields {
		out["{v."+f.Suffix+"}"] = ""
	}
	for _, f := range entryFields {
		out["{p."+f.Suffix+"}"] = ""
	}
	for i := 1; i <= coOwnerSlots; i++ {
		for _, f := range clientFields {
			out[fmt.Sprintf("{c%d.%s}", i, f.Suffix)] = ""
		}
		for _, f := range managementFields {
			out[fmt.Sprintf("{g%d.%s}", i, f.Suffix)] = ""
		}
	}
	for _, t := range clientSummaryTags {
		out[t] = ""
	}
	for _, t := range arrearsTags {
		out[t] = ""
	}
	for _, t := range controlTags {
		out[t] = ""
	}
	return out
}

// Resolve builds the tag map for folio. A folio that does not exist yields
// an empty map and no error; callers treat the empty map as "sale not
// found". The empty string and the literal sentinels "NULL"/"null" trigger
// discovery mode.
func (r *Resolver) Resolve(ctx context.Context, folio string) (map[string]string, error) {
	if folio == "" || strings.EqualFold(folio, "null") {
		return r.Discover(), nil
	}

	sale, err := repo.GetSale(ctx, r.DB, folio)
	if errors.Is(err, repo.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, 128)
	r.resolveStageGate(ctx, sale, out)

	for _, f := range saleFields {
		if v := f.Get(sale); strings.TrimSpace(v) != "" {
			out["{v."+f.Suffix+"}"] = v
		}
	}

	entries, err := repo.ListAmortization(ctx, r.DB, folio)
	if err != nil {
		return nil, err
	}
	current := currentPeriodEntry(entries, r.now())

	r.resolveSummary(ctx, sale, current, out)

	if current != nil {
		for _, f := range entryFields {
			out["{p."+f.Suffix+"}"] = f.Get(current)
		}
	}

	r.resolveCoOwners(ctx, sale, out)
	r.resolveArrears(ctx, sale, entries, current, out)
	return out, nil
}

// resolveStageGate writes the sys.* control tags. The reasons follow a
// fixed priority: missing configuration wins over a disabled project,
// which wins over a disabled stage.
func (r *Resolver) resolveStageGate(ctx context.Context, sale *domain.Sale, out map[string]string) {
	conf, err := repo.GetStageConfig(ctx, r.DB, sale.Stage)

	active := "1"
	reason := ""
	switch {
	case err != nil || conf == nil:
		active = "0"
		reason = fmt.Sprintf("CONFIG_FALTANTE: Etapa '%s' no existe en SQL", sale.Stage)
	case !conf.ProjectEnabled:
		active = "0"
		reason = fmt.Sprintf("PROYECTO_OFF: Desarrollo '%s' desactivado", conf.Project)
	case !conf.StageEnabled:
		active = "0"
		reason = fmt.Sprintf("ETAPA_OFF: Cluster '%s' desactivado", conf.Stage)
	}

	out[TagStageActive] = active
	if reason != "" {
		out[TagBlockReason] = reason
	}
}

// currentPeriodEntry picks the first entry whose due date falls in the
// current calendar month and year. No nearest-entry fallback: outside the
// billing month there simply is no current period.
func currentPeriodEntry(entries []domain.AmortizationEntry, now time.Time) *domain.AmortizationEntry {
	for i := range entries {
		due, err := time.Parse("2006-01-02", entries[i].DueDate)
		if err != nil {
			continue
		}
		if due.Month() == now.Month() && due.Year() == now.Year() {
			return &entries[i]
		}
	}
	return nil
}

// resolveSummary writes the cl.* convenience tags, which are always present
// for an existing sale even when no current-period entry exists.
func (r *Resolver) resolveSummary(ctx context.Context, sale *domain.Sale, current *domain.AmortizationEntry, out map[string]string) {
	amount := 0.0
	paidPartial := 0.0
	num, date, concept := "", "", ""
	if current != nil {
		amount = current.Total
		num = strconv.Itoa(current.Number)
		date = current.DueDate
		concept = ConceptLabel(current.Concept)
		if pay, err := repo.GetActivePayment(ctx, r.DB, sale.Folio, current.Number); err == nil && pay != nil {
			paidPartial = pay.AmountPaid
		}
	}

	out["{cl.unidad}"] = sale.Unit
	out["{cl.monto}"] = money(amount)
	out["{cl.monto_a_pagar}"] = money(amount - paidPartial)
	out["{cl.cliente}"] = sale.ClientName
	out["{cl.num}"] = num
	out["{cl.fecha}"] = date
	out["{cl.concepto}"] = concept
	out["{cl.proyecto}"] = sale.Project
}

// resolveCoOwners writes one cN.* and one gN.* block per populated
// co-owner slot. Empty slots contribute nothing.
func (r *Resolver) resolveCoOwners(ctx context.Context, sale *domain.Sale, out map[string]string) {
	ids := sale.CoOwnerIDs()
	for i, raw := range ids {
		id := cleanClientID(raw)
		if id == "" {
			continue
		}
		slot := i + 1

		if client, err := repo.GetClient(ctx, r.DB, id); err == nil && client != nil {
			for _, f := range clientFields {
				if v := f.Get(client); v != "" {
					out[fmt.Sprintf("{c%d.%s}", slot, f.Suffix)] = v
				}
			}
		}
		if mgmt, err := repo.GetManagement(ctx, r.DB, sale.Folio, id); err == nil && mgmt != nil {
			for _, f := range managementFields {
				out[fmt.Sprintf("{g%d.%s}", slot, f.Suffix)] = f.Get(mgmt)
			}
		}
	}
}

// resolveArrears writes the ven.* collection figures. The arrears snapshot
// is authoritative for whether the sale owes anything: days overdue are
// only computed when the snapshot reports overdue periods, even if line
// items look unpaid.
func (r *Resolver) resolveArrears(ctx context.Context, sale *domain.Sale, entries []domain.AmortizationEntry, current *domain.AmortizationEntry, out map[string]string) {
	now := r.now()
	today := now.Format("2006-01-02")

	overduePeriods := 0
	overdueNoPen := 0.0
	overdueWithPen := 0.0
	if snap, err := repo.GetArrears(ctx, r.DB, sale.Folio); err == nil && snap != nil {
		overduePeriods = snap.OverduePeriods
		overdueNoPen = snap.OverdueNoPenalty
		overdueWithPen = snap.OverdueWithPenalty
	}
	accruedPenalty := overdueWithPen - overdueNoPen

	monthAmount := 0.0
	monthPending := 0.0
	monthPenalty := 0.0
	var oldestUnpaid time.Time
	haveOldest := false

	for i := range entries {
		e := &entries[i]
		paid := 0.0
		if pay, err := repo.GetActivePayment(ctx, r.DB, sale.Folio, e.Number); err == nil && pay != nil {
			paid = pay.AmountPaid
		}
		pending := paid < e.Total

		if e.DueDate < today && pending && overduePeriods > 0 && !haveOldest {
			if due, err := time.Parse("2006-01-02", e.DueDate); err == nil {
				oldestUnpaid = due
				haveOldest = true
			}
		}
		if current != nil && e.Number == current.Number {
			monthAmount = e.Total
			monthPenalty = e.Penalty
			monthPending = e.Total - paid
		}
	}

	daysOverdue := 0
	if haveOldest {
		if todayDate, err := time.Parse("2006-01-02", today); err == nil {
			daysOverdue = int(todayDate.Sub(oldestUnpaid) / (24 * time.Hour))
		}
	}

	monthTotal := monthPending + monthPenalty
	overdueTotal := overdueNoPen + accruedPenalty
	grandTotal := overdueTotal + monthTotal

	out["{ven.saldo_vencido}"] = money(overdueNoPen)
	out["{ven.penalizacion_del_mes}"] = money(monthPenalty)
	out["{ven.penalizacion_vencida}"] = money(accruedPenalty)
	out["{ven.saldo_total_a_pagar}"] = money(grandTotal)
	out["{ven.mensualidades_vencidas}"] = strconv.Itoa(overduePeriods)
	out["{ven.importe_del_mes}"] = money(monthAmount)
	out["{ven.cuota_mes_pendiente}"] = money(monthPending)
	out["{ven.saldo_total_mes}"] = money(monthTotal)
	out["{ven.dias_atraso}"] = strconv.Itoa(daysOverdue)
	out["{ven.saldo_total_vencido}"] = money(overdueTotal)
}
