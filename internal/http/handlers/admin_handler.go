// Administration HTTP handlers.
//
// This file exposes the configuration and monitoring endpoints:
//   - PUT   /preferences/batch          (per-sale opt-in switches)
//   - PUT   /preferences/marketing      (per-client marketing switches)
//   - GET   /stages                     (per-stage gate states)
//   - PUT   /stages                     (toggle one stage)
//   - PUT   /projects                   (toggle a whole development)
//   - GET   /settings/general           (master switches)
//   - PATCH /settings/general
//   - GET   /settings/reminders         (send time and horizons)
//   - PATCH /settings/reminders
//   - GET   /failures                   (deduplicated failure feed)
//   - POST  /failures/:id/read
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/repo"
	"github.com/casaluz/go-notify-backend/internal/utils"
)

//
// DTOs
//

// BatchSwitchRequest toggles the batch opt-in switches of one (sale, client).
// Nil flags are left untouched.
type BatchSwitchRequest struct {
	Folio    string `json:"folio" binding:"required"`
	ClientID string `json:"client_id" binding:"required"`
	Email    *bool  `json:"email"`
	WhatsApp *bool  `json:"whatsapp"`
}

// MarketingSwitchRequest toggles the marketing switches of one client across
// every sale they appear in. Nil flags are left untouched.
type MarketingSwitchRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	Email    *bool  `json:"email"`
	WhatsApp *bool  `json:"whatsapp"`
}

// StageSwitchRequest toggles one stage's automated-contact gate.
type StageSwitchRequest struct {
	Project string `json:"project" binding:"required"`
	Stage   string `json:"stage" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}

// ProjectSwitchRequest toggles every stage of one development at once.
type ProjectSwitchRequest struct {
	Project string `json:"project" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}

// GeneralSettingsRequest patches the remote master switches. Nil flags are
// left untouched.
type GeneralSettingsRequest struct {
	ProjectEnabled  *bool `json:"proyecto_activo"`
	EmailEnabled    *bool `json:"email_enabled"`
	WhatsAppEnabled *bool `json:"whatsapp_enabled"`
}

// ReminderSettingsRequest patches the daily send time and the two reminder
// horizons. Nil fields are left untouched.
type ReminderSettingsRequest struct {
	Days1  *int `json:"recordatorio_1"`
	Days2  *int `json:"recordatorio_2"`
	Hour   *int `json:"hora_recordatorio"`
	Minute *int `json:"minuto_recordatorio"`
}

//
// Preferences
//

// SetBatchSwitches handles PUT /preferences/batch.
func (h *Handlers) SetBatchSwitches(c *gin.Context) {
	var req BatchSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.Email == nil && req.WhatsApp == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no switches to update")
		return
	}
	err := repo.SetBatchSwitches(c.Request.Context(), h.db, req.Folio, req.ClientID, req.Email, req.WhatsApp)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "management record not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update switches")
		return
	}
	noContent(c)
}

// SetMarketingSwitches handles PUT /preferences/marketing.
func (h *Handlers) SetMarketingSwitches(c *gin.Context) {
	var req MarketingSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.Email == nil && req.WhatsApp == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no switches to update")
		return
	}
	err := repo.SetMarketingSwitches(c.Request.Context(), h.db, req.ClientID, req.Email, req.WhatsApp)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update switches")
		return
	}
	noContent(c)
}

//
// Stage gates
//

// ListStages handles GET /stages.
func (h *Handlers) ListStages(c *gin.Context) {
	states, err := repo.ListStageStates(c.Request.Context(), h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list stages")
		return
	}
	ok(c, http.StatusOK, states)
}

// SetStageEnabled handles PUT /stages.
func (h *Handlers) SetStageEnabled(c *gin.Context) {
	var req StageSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	err := repo.SetStageEnabled(c.Request.Context(), h.db, req.Project, req.Stage, *req.Enabled)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "stage not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update stage")
		return
	}
	noContent(c)
}

// SetProjectEnabled handles PUT /projects.
func (h *Handlers) SetProjectEnabled(c *gin.Context) {
	var req ProjectSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	err := repo.SetProjectEnabled(c.Request.Context(), h.db, req.Project, *req.Enabled)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update project")
		return
	}
	noContent(c)
}

//
// Remote settings
//

// GetGeneralSettings handles GET /settings/general.
func (h *Handlers) GetGeneralSettings(c *gin.Context) {
	cfg := h.settings.GetCompanyConfig(c.Request.Context(), h.company)
	ok(c, http.StatusOK, cfg)
}

// PatchGeneralSettings handles PATCH /settings/general.
func (h *Handlers) PatchGeneralSettings(c *gin.Context) {
	var req GeneralSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.ProjectEnabled == nil && req.EmailEnabled == nil && req.WhatsAppEnabled == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no settings to update")
		return
	}
	err := h.settings.PatchCompanyConfig(c.Request.Context(), h.company, req.ProjectEnabled, req.EmailEnabled, req.WhatsAppEnabled)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update settings")
		return
	}
	noContent(c)
}

// GetReminderSettings handles GET /settings/reminders.
func (h *Handlers) GetReminderSettings(c *gin.Context) {
	cfg := h.settings.GetReminderConfig(c.Request.Context(), h.company)
	ok(c, http.StatusOK, cfg)
}

// PatchReminderSettings handles PATCH /settings/reminders.
func (h *Handlers) PatchReminderSettings(c *gin.Context) {
	var req ReminderSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if req.Days1 == nil && req.Days2 == nil && req.Hour == nil && req.Minute == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no settings to update")
		return
	}
	if req.Hour != nil && (*req.Hour < 0 || *req.Hour > 23) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "hour must be in [0,23]")
		return
	}
	if req.Minute != nil && (*req.Minute < 0 || *req.Minute > 59) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "minute must be in [0,59]")
		return
	}
	err := h.settings.PatchReminderConfig(c.Request.Context(), h.company, req.Days1, req.Days2, req.Hour, req.Minute)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update settings")
		return
	}
	noContent(c)
}

//
// Failure log
//

// ListFailures handles GET /failures. The response carries the entries newest
// first plus the unread count for the notification badge. An optional ?limit=
// query caps the page size; the unread count always covers the full log.
func (h *Handlers) ListFailures(c *gin.Context) {
	entries, unread := h.failures.Feed(c.Request.Context(), h.company)
	if limit := utils.LimitParam(c.Query("limit")); limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	ok(c, http.StatusOK, gin.H{
		"no_leidos": unread,
		"registros": entries,
	})
}

// MarkFailureRead handles POST /failures/:id/read.
func (h *Handlers) MarkFailureRead(c *gin.Context) {
	if err := h.failures.MarkRead(c.Request.Context(), h.company, c.Param("id")); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "entry not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not mark entry")
		return
	}
	noContent(c)
}
