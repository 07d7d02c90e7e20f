// Webhook and receipt-review HTTP handlers.
//
// This file exposes the inbound-message surface:
//   - POST  /webhook                    (provider event ingestion)
//   - GET   /receipts                   (review feed)
//   - PATCH /receipts/:id/status        (advance review status)
//   - GET   /receipts/exists            (?phone=...&unit=...)
//   - GET   /folios/by-phone/:phone     (chat disambiguation message)
//   - POST  /folios/message             (send the folio list over WhatsApp)
//   - POST  /folios/temp-lots           (drop a chosen lot from the pending list)
//
// The webhook endpoint acknowledges immediately: the provider retries
// unacknowledged deliveries, so all heavy lifting happens in a background
// worker keyed by event ID.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/webhook"
)

// ReceiptStatusRequest is the JSON payload for advancing a receipt's review
// status.
type ReceiptStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// IngestWebhook handles POST /webhook. The provider delivers either a single
// event object or a batch array; both shapes are accepted.
func (h *Handlers) IngestWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable event payload")
		return
	}
	var events []webhook.Event
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &events); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid event payload")
			return
		}
	} else {
		var event webhook.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid event payload")
			return
		}
		events = append(events, event)
	}

	// Duplicates and non-image events still get a 200 so the provider stops
	// redelivering.
	started := 0
	for _, event := range events {
		if h.receipts.Ingest(event) {
			started++
		}
	}
	ok(c, http.StatusOK, gin.H{"status": "received", "processing": started > 0})
}

// ListReceipts handles GET /receipts.
func (h *Handlers) ListReceipts(c *gin.Context) {
	out, err := h.receipts.ListReceipts(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list receipts")
		return
	}
	ok(c, http.StatusOK, out)
}

// UpdateReceiptStatus handles PATCH /receipts/:id/status.
func (h *Handlers) UpdateReceiptStatus(c *gin.Context) {
	var req ReceiptStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if err := h.receipts.UpdateReceiptStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "receipt not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update receipt")
		return
	}
	noContent(c)
}

// ReceiptExists handles GET /receipts/exists.
func (h *Handlers) ReceiptExists(c *gin.Context) {
	phone := c.Query("phone")
	unit := c.Query("unit")
	if phone == "" || unit == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone and unit are required")
		return
	}
	exists, err := h.receipts.ReceiptExists(c.Request.Context(), phone, unit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "receipt lookup failed")
		return
	}
	ok(c, http.StatusOK, gin.H{"exists": exists})
}

// FoliosByPhone handles GET /folios/by-phone/:phone.
func (h *Handlers) FoliosByPhone(c *gin.Context) {
	msg, count, err := h.receipts.FolioListMessage(c.Request.Context(), c.Param("phone"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "folio lookup failed")
		return
	}
	if count == 0 {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no active sales for phone")
		return
	}
	ok(c, http.StatusOK, gin.H{"total": count, "mensaje": msg})
}

// FolioMessageRequest asks the backend to message a client their folio list.
// TempLots carries the chat workflow's pending-lot list, which overrides the
// database view when the two disagree.
type FolioMessageRequest struct {
	Phone    string `json:"phone" binding:"required"`
	TempLots string `json:"temp_lots"`
}

// SendFolioList handles POST /folios/message.
func (h *Handlers) SendFolioList(c *gin.Context) {
	var req FolioMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone is required")
		return
	}
	msg, lots, err := h.receipts.SendFolioList(c.Request.Context(), req.Phone, req.TempLots)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not send folio list")
		return
	}
	if len(lots) == 0 {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no active sales for phone")
		return
	}
	ok(c, http.StatusOK, gin.H{"mensaje": msg, "lotes": lots})
}

// TempLotsRequest removes the lot a client just selected from the chat
// workflow's pending-lot list.
type TempLotsRequest struct {
	TempLots string `json:"temp_lots" binding:"required"`
	Selected string `json:"selected" binding:"required"`
}

// UpdateTempLots handles POST /folios/temp-lots.
func (h *Handlers) UpdateTempLots(c *gin.Context) {
	var req TempLotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "temp_lots and selected are required")
		return
	}
	ok(c, http.StatusOK, gin.H{"temp_lots": webhook.RemoveTempLot(req.TempLots, req.Selected)})
}
