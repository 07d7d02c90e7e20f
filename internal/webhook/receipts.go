package webhook

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
	"github.com/casaluz/go-notify-backend/internal/repo"
)

// ListReceipts returns every stored receipt for back-office review.
func (s *Service) ListReceipts(ctx context.Context) ([]domain.Receipt, error) {
	docs, err := s.Store.List(ctx, receiptCollection)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Receipt, 0, len(docs))
	for _, d := range docs {
		out = append(out, receiptFromDoc(d))
	}
	return out, nil
}

// UpdateReceiptStatus advances the review status of one receipt. Returns
// docstore.ErrNotFound when the receipt does not exist.
func (s *Service) UpdateReceiptStatus(ctx context.Context, id, status string) error {
	if _, err := s.Store.Get(ctx, receiptCollection, id); err != nil {
		return err
	}
	_, err := s.Store.Patch(ctx, receiptCollection, id, docstore.Fields{
		"status": docstore.String(status),
	})
	return err
}

// ReceiptExists reports whether a receipt for the (phone, unit) pair is
// already on file, letting the chat flow avoid asking for a duplicate.
func (s *Service) ReceiptExists(ctx context.Context, phone, unit string) (bool, error) {
	docs, err := s.Store.QueryAllEqual(ctx, "", receiptCollection, map[string]string{
		"phone": phone,
		"unit":  unit,
	}, 1)
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// FolioListMessage builds the chat message enumerating every active sale
// registered under a phone number. The second return is the folio count; a
// count of zero means the message should not be sent.
func (s *Service) FolioListMessage(ctx context.Context, phone string) (string, int, error) {
	lots, _, err := s.folioLots(ctx, phone)
	if err != nil || len(lots) == 0 {
		return "", 0, err
	}
	return folioMessage(lots), len(lots), nil
}

// SendFolioList builds the folio list for a phone and delivers it over
// WhatsApp. When the chat workflow carries a pending-lot list that no longer
// matches the database, the pending list wins; the client may have receipts
// in flight for lots the sync has not picked up yet.
//
// A nil lot slice means no active sale exists for the phone and nothing was
// sent.
func (s *Service) SendFolioList(ctx context.Context, phone, tempLots string) (string, []string, error) {
	lots, normalized, err := s.folioLots(ctx, phone)
	if err != nil || len(lots) == 0 {
		return "", nil, err
	}
	if pending := splitLots(tempLots); len(pending) > 0 && !slices.Equal(pending, lots) {
		lots = pending
	}
	msg := folioMessage(lots)
	if s.Messenger != nil {
		if _, err := s.Messenger.SendText(ctx, normalized, msg); err != nil {
			return "", nil, fmt.Errorf("send folio list: %w", err)
		}
	}
	return msg, lots, nil
}

// folioLots returns the sorted, deduplicated lot labels of every active sale
// under a phone number, normalizing the phone to its "+"-prefixed form.
func (s *Service) folioLots(ctx context.Context, phone string) ([]string, string, error) {
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	sales, err := repo.ListSalesByPhone(ctx, s.DB, phone)
	if err != nil {
		return nil, phone, err
	}
	seen := make(map[string]struct{}, len(sales))
	var lots []string
	for _, sale := range sales {
		label := sale.Unit
		if label == "" {
			label = sale.Folio
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		lots = append(lots, label)
	}
	sort.Strings(lots)
	return lots, phone, nil
}

func folioMessage(lots []string) string {
	var b strings.Builder
	b.WriteString("🤖 Consultando en mi base de datos encontré los siguientes folios:\n")
	for i, lot := range lots {
		fmt.Fprintf(&b, "\n%d.- %s", i+1, lot)
	}
	return b.String()
}

// splitLots parses a comma-separated lot list into sorted trimmed entries.
func splitLots(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

// RemoveTempLot drops the selected lot from a comma-separated pending-lots
// list, preserving the order of the rest. Matching ignores surrounding
// whitespace.
func RemoveTempLot(list, selected string) string {
	selected = strings.TrimSpace(selected)
	var kept []string
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		if strings.TrimSpace(item) == selected {
			continue
		}
		kept = append(kept, strings.TrimSpace(item))
	}
	return strings.Join(kept, ",")
}

func receiptFromDoc(d docstore.Document) domain.Receipt {
	f := d.Fields
	return domain.Receipt{
		ID:          d.ID(),
		EventID:     f.GetString("event_id", ""),
		MessageID:   f.GetString("message_id", ""),
		Status:      f.GetString("status", ""),
		ContactID:   f.GetString("contact_id", ""),
		ContactName: f.GetString("contact_name", ""),
		Phone:       f.GetString("phone", ""),
		SaleFolio:   f.GetString("sale_folio", ""),
		ClientName:  f.GetString("client_name", ""),
		Unit:        f.GetString("unit", ""),
		Project:     f.GetString("project", ""),
		Stage:       f.GetString("stage", ""),

		OperationType: f.GetString("operation_type", ""),
		FolioRef:      f.GetString("folio_ref", ""),
		Timestamp:     f.GetString("timestamp", ""),
		Beneficiary:   f.GetString("beneficiary", ""),
		Concept:       f.GetString("concept", ""),
		Amount:        f.GetString("amount", ""),

		FileName:   f.GetString("file_name", ""),
		ImageURL:   f.GetString("image_url", ""),
		ReceivedAt: f.GetString("received_at", ""),
	}
}
