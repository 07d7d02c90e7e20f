package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/casaluz/go-notify-backend/internal/domain"
)

// SetBatchSwitches flips the per-lot reminder consent for one co-owner on
// one sale. A nil pointer leaves the corresponding channel untouched.
func SetBatchSwitches(ctx context.Context, db *gorm.DB, folio, clientID string, email, whatsapp *bool) error {
	updates := map[string]any{}
	if email != nil {
		updates["allow_email_batch"] = *email
	}
	if whatsapp != nil {
		updates["allow_whatsapp_batch"] = *whatsapp
	}
	if len(updates) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.ClientManagementRecord{}).
		Where("sale_folio = ? AND client_id = ?", folio, clientID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMarketingSwitches flips the marketing consent for a client across every
// sale they appear on. Marketing consent is per client, not per lot.
func SetMarketingSwitches(ctx context.Context, db *gorm.DB, clientID string, email, whatsapp *bool) error {
	updates := map[string]any{}
	if email != nil {
		updates["allow_email_marketing"] = *email
	}
	if whatsapp != nil {
		updates["allow_whatsapp_marketing"] = *whatsapp
	}
	if len(updates) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.ClientManagementRecord{}).
		Where("client_id = ?", clientID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStageEnabled toggles dispatch for a single stage of a project.
func SetStageEnabled(ctx context.Context, db *gorm.DB, project, stage string, enabled bool) error {
	res := db.WithContext(ctx).
		Model(&domain.StageConfig{}).
		Where("project = ? AND stage = ?", project, stage).
		Update("stage_enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProjectEnabled toggles dispatch for every stage of a project at once.
func SetProjectEnabled(ctx context.Context, db *gorm.DB, project string, enabled bool) error {
	res := db.WithContext(ctx).
		Model(&domain.StageConfig{}).
		Where("project = ?", project).
		Update("project_enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStageStates returns every stage switch row ordered for display.
func ListStageStates(ctx context.Context, db *gorm.DB) ([]domain.StageConfig, error) {
	var out []domain.StageConfig
	err := db.WithContext(ctx).
		Order("project ASC, stage ASC").
		Find(&out).Error
	return out, err
}
