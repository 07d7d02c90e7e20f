// Package repo implements the data access layer over the relational store,
// backed by GORM. This file provides the read-only entity-graph queries the
// tag resolver and the receipt worker run against a sale.
//
// All functions are context-aware and accept a *gorm.DB handle. They follow
// the "thin repository" approach: no business logic, only query composition.
//
// Error semantics:
//   - When a record is not found, functions return nil with a nil error;
//     callers treat absence as data, not as a fault. The exception is
//     GetSale, which returns ErrNotFound so interactive endpoints can map
//     it to a 404.
//   - On DB errors (connectivity, malformed schema) the raw gorm error is
//     propagated.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/casaluz/go-notify-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetSale fetches a sale by folio. Returns ErrNotFound when the folio does
// not exist.
func GetSale(ctx context.Context, db *gorm.DB, folio string) (*domain.Sale, error) {
	var s domain.Sale
	if err := db.WithContext(ctx).Where("folio = ?", folio).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListAmortization returns every amortization entry of a sale ordered by due
// date ascending. An empty slice means the plan has not been synced yet.
func ListAmortization(ctx context.Context, db *gorm.DB, folio string) ([]domain.AmortizationEntry, error) {
	var out []domain.AmortizationEntry
	err := db.WithContext(ctx).
		Where("sale_folio = ?", folio).
		Order("due_date asc").
		Find(&out).Error
	return out, err
}

// GetActivePayment returns the active payment record matched to one
// amortization entry of a sale, or nil when no active payment exists.
func GetActivePayment(ctx context.Context, db *gorm.DB, folio string, number int) (*domain.PaymentRecord, error) {
	var p domain.PaymentRecord
	err := db.WithContext(ctx).
		Where("sale_folio = ? AND payment_number = ? AND status = ?", folio, number, "active").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetClient fetches a co-owner profile by client ID, or nil when the
// reference is dangling.
func GetClient(ctx context.Context, db *gorm.DB, clientID string) (*domain.Client, error) {
	var c domain.Client
	err := db.WithContext(ctx).Where("client_id = ?", clientID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetManagement fetches the per-(sale, client) management record holding
// contact data and opt-in switches, or nil when the sync job has not
// materialized it yet.
func GetManagement(ctx context.Context, db *gorm.DB, folio, clientID string) (*domain.ClientManagementRecord, error) {
	var m domain.ClientManagementRecord
	err := db.WithContext(ctx).
		Where("sale_folio = ? AND client_id = ?", folio, clientID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetStageConfig resolves the StageConfig row for a stage name, or nil when
// no configuration exists (which itself blocks the sweep for that sale).
func GetStageConfig(ctx context.Context, db *gorm.DB, stage string) (*domain.StageConfig, error) {
	var sc domain.StageConfig
	err := db.WithContext(ctx).Where("stage = ?", stage).First(&sc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// GetArrears fetches the authoritative arrears snapshot of a sale, or nil
// when the CRM reports no arrears row for it.
func GetArrears(ctx context.Context, db *gorm.DB, folio string) (*domain.ArrearsSnapshot, error) {
	var a domain.ArrearsSnapshot
	err := db.WithContext(ctx).Where("sale_folio = ?", folio).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindSaleByUnit performs the tolerant unit lookup used by the receipt
// worker: case-insensitive partial match on the unit label, excluding
// cancelled and expired files. Returns nil when nothing matches.
func FindSaleByUnit(ctx context.Context, db *gorm.DB, unitToken string) (*domain.Sale, error) {
	if unitToken == "" {
		return nil, nil
	}
	var s domain.Sale
	err := db.WithContext(ctx).
		Where("LOWER(unit) LIKE ? AND file_status NOT IN ?", "%"+strings.ToLower(unitToken)+"%", []string{"Cancelado", "Expirado"}).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSalesByPhone returns every active sale registered for a phone number,
// used by the webhook's folio-disambiguation flow.
func ListSalesByPhone(ctx context.Context, db *gorm.DB, phone string) ([]domain.Sale, error) {
	var out []domain.Sale
	err := db.WithContext(ctx).
		Where("phone = ? AND file_status NOT IN ?", phone, []string{"Cancelado", "Expirado"}).
		Find(&out).Error
	return out, err
}
