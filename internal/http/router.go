// Package httpapi wires the HTTP transport (Gin) to the dispatch engine,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/casaluz/go-notify-backend/internal/config"
	"github.com/casaluz/go-notify-backend/internal/http/handlers"
	"github.com/casaluz/go-notify-backend/internal/http/middleware"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP, webhook route exempt)
//  8. Gzip, CORS, and security headers
func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction. Receipt review traffic carries
	// client phone numbers and emails in queries, so scrubbing stays on.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Api-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP. The webhook route is exempt:
	// the provider redelivers unacknowledged events in bursts, and a 429
	// would only make it retry harder.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	rl.ExemptPath(routePath(cfg.APIBasePath, "/webhook"))
	r.Use(rl.Handler())

	// 8) Compression for the large template and receipt listings
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					hdr := c.Writer.Header()
					hdr.Set("Access-Control-Allow-Origin", origin)
					hdr.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS).
	// Receipt and failure listings embed payment receipts and client contact
	// data, so those routes always go out with Cache-Control: no-store.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    false,
		NoStorePaths: []string{
			routePath(cfg.APIBasePath, "/receipts"),
			routePath(cfg.APIBasePath, "/receipts/exists"),
			routePath(cfg.APIBasePath, "/failures"),
			routePath(cfg.APIBasePath, "/folios/by-phone/:phone"),
		},
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Sweeps and sends
		api.POST("/sweeps", h.RunSweep)
		api.POST("/sends/email", h.SendManualEmail)
		api.POST("/sends/folio/email", h.SendFolioEmail)
		api.POST("/sends/folio/whatsapp", h.SendFolioWhatsApp)
		api.POST("/sends/folio/dual", h.SendFolioDual)

		// Tag inspection
		api.GET("/tags/dictionary", h.TagDictionary)
		api.GET("/tags/:folio", h.InspectFolio)

		// Templates (email)
		api.GET("/templates/email", h.ListEmailTemplates)
		api.POST("/templates/email", h.CreateEmailTemplate)
		api.GET("/templates/email/count", h.CountEmailTemplates)
		api.GET("/templates/email/:id", h.GetEmailTemplate)
		api.PATCH("/templates/email/:id", h.UpdateEmailTemplate)
		api.DELETE("/templates/email/:id", h.DeleteEmailTemplate)

		// Templates (WhatsApp)
		api.GET("/templates/whatsapp", h.ListWhatsAppTemplates)
		api.POST("/templates/whatsapp", h.CreateWhatsAppTemplate)
		api.GET("/templates/whatsapp/count", h.CountWhatsAppTemplates)
		api.GET("/templates/whatsapp/:id", h.GetWhatsAppTemplate)
		api.PATCH("/templates/whatsapp/:id", h.UpdateWhatsAppTemplate)
		api.DELETE("/templates/whatsapp/:id", h.DeleteWhatsAppTemplate)

		// Preferences and gates
		api.PUT("/preferences/batch", h.SetBatchSwitches)
		api.PUT("/preferences/marketing", h.SetMarketingSwitches)
		api.GET("/stages", h.ListStages)
		api.PUT("/stages", h.SetStageEnabled)
		api.PUT("/projects", h.SetProjectEnabled)

		// Remote settings
		api.GET("/settings/general", h.GetGeneralSettings)
		api.PATCH("/settings/general", h.PatchGeneralSettings)
		api.GET("/settings/reminders", h.GetReminderSettings)
		api.PATCH("/settings/reminders", h.PatchReminderSettings)

		// Failure log
		api.GET("/failures", h.ListFailures)
		api.POST("/failures/:id/read", h.MarkFailureRead)

		// Webhook and receipts
		api.POST("/webhook", h.IngestWebhook)
		api.GET("/receipts", h.ListReceipts)
		api.GET("/receipts/exists", h.ReceiptExists)
		api.PATCH("/receipts/:id/status", h.UpdateReceiptStatus)
		api.GET("/folios/by-phone/:phone", h.FoliosByPhone)
		api.POST("/folios/message", h.SendFolioList)
		api.POST("/folios/temp-lots", h.UpdateTempLots)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// routePath joins the API base prefix with a route suffix, producing the
// registered route pattern as c.FullPath() reports it.
func routePath(prefix, suffix string) string {
	return strings.TrimRight(prefix, "/") + suffix
}
