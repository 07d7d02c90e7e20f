// Package repo implements the data access layer over the relational store.
// This file computes the two sweep audiences. The rules are mutually
// exclusive by construction: both select entries due exactly on the target
// date, and they split on whether any earlier entry of the same sale is
// still unpaid.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// settledFilter marks an amortization entry as covered: a payment record
// exists, is not canceled, and the paid amount reaches the due amount.
// Everything else counts as unpaid.
const unpaidEarlierExists = `
	EXISTS (
		SELECT 1 FROM amortization_entries a2
		LEFT JOIN payment_records p2
			ON a2.sale_folio = p2.sale_folio AND a2.number = p2.payment_number AND p2.status = 'active'
		WHERE a2.sale_folio = a.sale_folio
		  AND a2.due_date < a.due_date
		  AND (p2.id IS NULL OR IFNULL(p2.amount_paid, 0) < IFNULL(p2.amount_due, 0))
	)`

// DueSoonFolios returns the distinct folios with an entry due exactly on
// date (ISO "YYYY-MM-DD"), unsettled, and with no earlier unpaid entry.
// These sales get the friendly reminder; sales that already owe earlier
// installments are excluded because they belong to the delinquent audience.
func DueSoonFolios(ctx context.Context, db *gorm.DB, date string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).Raw(`
		SELECT DISTINCT a.sale_folio
		FROM amortization_entries a
		LEFT JOIN payment_records p
			ON a.sale_folio = p.sale_folio AND a.number = p.payment_number
		WHERE a.due_date = ?
		  AND IFNULL(p.file_status, '') != 'Liquidado'
		  AND (
			p.id IS NULL
			OR IFNULL(p.amount_paid, 0) < IFNULL(p.amount_due, 0)
			OR p.status = 'canceled'
		  )
		  AND NOT `+unpaidEarlierExists, date).Scan(&out).Error
	return out, err
}

// DelinquentFolios returns the distinct folios with an entry due exactly on
// date and at least one earlier unpaid entry. These sales get the
// delinquency notice instead of the friendly reminder.
func DelinquentFolios(ctx context.Context, db *gorm.DB, date string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).Raw(`
		SELECT DISTINCT a.sale_folio
		FROM amortization_entries a
		WHERE a.due_date = ?
		  AND `+unpaidEarlierExists, date).Scan(&out).Error
	return out, err
}
