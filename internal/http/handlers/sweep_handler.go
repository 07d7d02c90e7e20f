// Sweep and manual-send HTTP handlers.
//
// This file exposes the dispatch endpoints:
//   - POST /sweeps                 (run a batch sweep)
//   - POST /sends/email            (operator-composed email)
//   - POST /sends/folio/email     (template email for one folio)
//   - POST /sends/folio/whatsapp  (template WhatsApp for one folio)
//   - POST /sends/folio/dual      (WhatsApp then email for one folio)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaluz/go-notify-backend/internal/sweep"
)

//
// DTOs
//

// RunSweepRequest is the JSON payload for triggering a sweep.
type RunSweepRequest struct {
	// Days is how far ahead (or at zero, today) the target due date lies.
	Days int `json:"days"`
	// Category selects the template category to dispatch.
	Category string `json:"category" binding:"required"`
	// Audience is "normal" (upcoming) or "deudores" (already in arrears).
	Audience string `json:"audience"`
}

// FolioSendRequest is the JSON payload for the folio-targeted sends.
type FolioSendRequest struct {
	Folio    string `json:"folio" binding:"required"`
	Category string `json:"category" binding:"required"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// RunSweep handles POST /sweeps.
func (h *Handlers) RunSweep(c *gin.Context) {
	var req RunSweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	audience := sweep.AudienceDueSoon
	if req.Audience == string(sweep.AudienceDelinquent) {
		audience = sweep.AudienceDelinquent
	}

	report, err := h.sweepSvc.Run(c.Request.Context(), h.company, req.Days, req.Category, audience)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSweepFailed, "sweep failed")
		return
	}
	ok(c, http.StatusOK, report)
}

// SendManualEmail handles POST /sends/email.
func (h *Handlers) SendManualEmail(c *gin.Context) {
	var req sweep.ManualEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	results, err := h.sweepSvc.SendManualEmail(c.Request.Context(), h.company, req)
	if err != nil {
		if errors.Is(err, sweep.ErrMissingRecipient) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one recipient is required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "manual send failed")
		return
	}
	ok(c, http.StatusOK, gin.H{"reporte": results})
}

// SendFolioEmail handles POST /sends/folio/email.
func (h *Handlers) SendFolioEmail(c *gin.Context) {
	var req FolioSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	res, err := h.sweepSvc.SendFolioEmail(c.Request.Context(), h.company, req.Folio, req.Category, req.Name, req.Email)
	if err != nil {
		failFolioSend(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"status_code": res.StatusCode})
}

// SendFolioWhatsApp handles POST /sends/folio/whatsapp.
func (h *Handlers) SendFolioWhatsApp(c *gin.Context) {
	var req FolioSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	res, err := h.sweepSvc.SendFolioWhatsApp(c.Request.Context(), h.company, req.Folio, req.Category, req.Name, req.Phone)
	if err != nil {
		failFolioSend(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"status_code": res.StatusCode})
}

// SendFolioDual handles POST /sends/folio/dual.
func (h *Handlers) SendFolioDual(c *gin.Context) {
	var req FolioSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	res, err := h.sweepSvc.SendFolioDual(c.Request.Context(), h.company, req.Folio, req.Category, req.Name, req.Email, req.Phone)
	if err != nil {
		failFolioSend(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// failFolioSend maps the folio-targeted send errors onto the error envelope.
func failFolioSend(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sweep.ErrMissingRecipient):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient name and address are required")
	case errors.Is(err, sweep.ErrFolioNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "folio not found")
	case errors.Is(err, sweep.ErrNoActiveTemplate):
		fail(c, http.StatusBadRequest, ErrCodeNoActiveTemplate, "no active template for category")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "send failed")
	}
}
