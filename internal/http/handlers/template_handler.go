// Template store HTTP handlers.
//
// This file exposes template CRUD for both channels:
//   - GET    /templates/email              (list)
//   - POST   /templates/email              (create, ID assigned server-side)
//   - GET    /templates/email/:id
//   - PATCH  /templates/email/:id          (partial update, activation included)
//   - DELETE /templates/email/:id          (system templates refuse deletion)
//   - GET    /templates/email/count        (?category=...)
//   - the same surface under /templates/whatsapp (minus the system-template
//     guard)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casaluz/go-notify-backend/internal/domain"
	"github.com/casaluz/go-notify-backend/internal/templates"
)

//
// DTOs
//

// CreateEmailTemplateRequest is the JSON payload for creating an email template.
type CreateEmailTemplateRequest struct {
	Name           string   `json:"nombre" binding:"required"`
	Category       string   `json:"categoria" binding:"required"`
	Subject        string   `json:"asunto"`
	HTML           string   `json:"html"`
	Active         bool     `json:"activo"`
	DepartmentTags []string `json:"tags_departamento"`
	AttachmentURLs []string `json:"adjuntos_url"`
}

// UpdateEmailTemplateRequest is the JSON payload for a partial email template
// update. Absent fields are left untouched.
type UpdateEmailTemplateRequest struct {
	Name           *string  `json:"nombre"`
	Category       *string  `json:"categoria"`
	Subject        *string  `json:"asunto"`
	HTML           *string  `json:"html"`
	Active         *bool    `json:"activo"`
	DepartmentTags []string `json:"tags_departamento"`
	AttachmentURLs []string `json:"adjuntos_url"`
}

// CreateWhatsAppTemplateRequest is the JSON payload for creating a WhatsApp template.
type CreateWhatsAppTemplateRequest struct {
	Name       string   `json:"nombre" binding:"required"`
	Category   string   `json:"categoria" binding:"required"`
	ProviderID string   `json:"id_respond" binding:"required"`
	Language   string   `json:"lenguaje"`
	Body       string   `json:"mensaje"`
	Active     bool     `json:"activo"`
	Variables  []string `json:"variables"`
}

// UpdateWhatsAppTemplateRequest is the JSON payload for a partial WhatsApp
// template update. Absent fields are left untouched.
type UpdateWhatsAppTemplateRequest struct {
	Name       *string  `json:"nombre"`
	Category   *string  `json:"categoria"`
	ProviderID *string  `json:"id_respond"`
	Language   *string  `json:"lenguaje"`
	Body       *string  `json:"mensaje"`
	Active     *bool    `json:"activo"`
	Variables  []string `json:"variables"`
}

//
// Email endpoints
//

// ListEmailTemplates handles GET /templates/email.
func (h *Handlers) ListEmailTemplates(c *gin.Context) {
	out, err := h.tplSvc.ListEmail(c.Request.Context(), h.company)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list templates")
		return
	}
	ok(c, http.StatusOK, out)
}

// GetEmailTemplate handles GET /templates/email/:id.
func (h *Handlers) GetEmailTemplate(c *gin.Context) {
	t, err := h.tplSvc.GetEmail(c.Request.Context(), h.company, c.Param("id"))
	if err != nil {
		if errors.Is(err, templates.ErrTemplateNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load template")
		return
	}
	ok(c, http.StatusOK, t)
}

// CreateEmailTemplate handles POST /templates/email.
func (h *Handlers) CreateEmailTemplate(c *gin.Context) {
	var req CreateEmailTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	id, err := h.tplSvc.CreateEmail(c.Request.Context(), h.company, domain.EmailTemplate{
		Name:           req.Name,
		Category:       req.Category,
		Subject:        req.Subject,
		HTML:           req.HTML,
		Active:         req.Active,
		DepartmentTags: req.DepartmentTags,
		AttachmentURLs: req.AttachmentURLs,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create template")
		return
	}
	ok(c, http.StatusCreated, gin.H{"id": id})
}

// UpdateEmailTemplate handles PATCH /templates/email/:id.
func (h *Handlers) UpdateEmailTemplate(c *gin.Context) {
	var req UpdateEmailTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	err := h.tplSvc.UpdateEmail(c.Request.Context(), h.company, c.Param("id"), templates.EmailUpdate{
		Name:           req.Name,
		Category:       req.Category,
		Subject:        req.Subject,
		HTML:           req.HTML,
		Active:         req.Active,
		DepartmentTags: req.DepartmentTags,
		AttachmentURLs: req.AttachmentURLs,
	})
	if err != nil {
		failTemplateError(c, err, ErrCodeUpdateFailed, "could not update template")
		return
	}
	noContent(c)
}

// DeleteEmailTemplate handles DELETE /templates/email/:id.
func (h *Handlers) DeleteEmailTemplate(c *gin.Context) {
	err := h.tplSvc.DeleteEmail(c.Request.Context(), h.company, c.Param("id"))
	if err != nil {
		if errors.Is(err, templates.ErrSystemTemplate) {
			fail(c, http.StatusForbidden, ErrCodeTemplateProtected, "system templates cannot be deleted")
			return
		}
		failTemplateError(c, err, ErrCodeDeleteFailed, "could not delete template")
		return
	}
	noContent(c)
}

// CountEmailTemplates handles GET /templates/email/count.
func (h *Handlers) CountEmailTemplates(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "category is required")
		return
	}
	n, err := h.tplSvc.CountEmailByCategory(c.Request.Context(), h.company, category)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not count templates")
		return
	}
	ok(c, http.StatusOK, gin.H{"categoria": category, "total": n})
}

//
// WhatsApp endpoints
//

// ListWhatsAppTemplates handles GET /templates/whatsapp.
func (h *Handlers) ListWhatsAppTemplates(c *gin.Context) {
	out, err := h.tplSvc.ListWhatsApp(c.Request.Context(), h.company)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list templates")
		return
	}
	ok(c, http.StatusOK, out)
}

// GetWhatsAppTemplate handles GET /templates/whatsapp/:id.
func (h *Handlers) GetWhatsAppTemplate(c *gin.Context) {
	t, err := h.tplSvc.GetWhatsApp(c.Request.Context(), h.company, c.Param("id"))
	if err != nil {
		if errors.Is(err, templates.ErrTemplateNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load template")
		return
	}
	ok(c, http.StatusOK, t)
}

// CreateWhatsAppTemplate handles POST /templates/whatsapp.
func (h *Handlers) CreateWhatsAppTemplate(c *gin.Context) {
	var req CreateWhatsAppTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	id, err := h.tplSvc.CreateWhatsApp(c.Request.Context(), h.company, domain.WhatsAppTemplate{
		Name:       req.Name,
		Category:   req.Category,
		ProviderID: req.ProviderID,
		Language:   req.Language,
		Body:       req.Body,
		Active:     req.Active,
		Variables:  req.Variables,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create template")
		return
	}
	ok(c, http.StatusCreated, gin.H{"id": id})
}

// UpdateWhatsAppTemplate handles PATCH /templates/whatsapp/:id.
func (h *Handlers) UpdateWhatsAppTemplate(c *gin.Context) {
	var req UpdateWhatsAppTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	err := h.tplSvc.UpdateWhatsApp(c.Request.Context(), h.company, c.Param("id"), templates.WhatsAppUpdate{
		Name:       req.Name,
		Category:   req.Category,
		ProviderID: req.ProviderID,
		Language:   req.Language,
		Body:       req.Body,
		Active:     req.Active,
		Variables:  req.Variables,
	})
	if err != nil {
		failTemplateError(c, err, ErrCodeUpdateFailed, "could not update template")
		return
	}
	noContent(c)
}

// CountWhatsAppTemplates handles GET /templates/whatsapp/count.
func (h *Handlers) CountWhatsAppTemplates(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "category is required")
		return
	}
	n, err := h.tplSvc.CountWhatsAppByCategory(c.Request.Context(), h.company, category)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not count templates")
		return
	}
	ok(c, http.StatusOK, gin.H{"categoria": category, "total": n})
}

// DeleteWhatsAppTemplate handles DELETE /templates/whatsapp/:id.
func (h *Handlers) DeleteWhatsAppTemplate(c *gin.Context) {
	err := h.tplSvc.DeleteWhatsApp(c.Request.Context(), h.company, c.Param("id"))
	if err != nil {
		failTemplateError(c, err, ErrCodeDeleteFailed, "could not delete template")
		return
	}
	noContent(c)
}

// failTemplateError maps the template store sentinels onto the error envelope.
func failTemplateError(c *gin.Context, err error, fallbackCode, fallbackMsg string) {
	switch {
	case errors.Is(err, templates.ErrTemplateNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
	case errors.Is(err, templates.ErrNoFields):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no fields to update")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, fallbackMsg)
	}
}
