package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/casaluz/go-notify-backend/internal/docstore"
	"github.com/casaluz/go-notify-backend/internal/domain"
)

// ---------- preference switches ----------

func TestSetBatchSwitches(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlersDB(t)
	db.Create(&domain.ClientManagementRecord{
		SaleFolio: "F-100", ClientID: "1042", Email: "ana@x.mx",
		AllowEmailBatch: true, AllowWhatsAppBatch: true,
		AllowEmailMarketing: true, AllowWhatsAppMarketing: true,
	})

	h := newTestHandlers(db, nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.PUT("/preferences/batch", h.SetBatchSwitches)

	// No switches in the payload -> 400
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/preferences/batch", bytes.NewBufferString(`{"folio":"F-100","client_id":"1042"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("no switches -> %d", w.Code)
	}

	// Unknown record -> 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/preferences/batch", bytes.NewBufferString(`{"folio":"NO-SUCH","client_id":"1042","email":false}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown record -> %d", w.Code)
	}

	// Success -> 204 and the row is updated
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/preferences/batch", bytes.NewBufferString(`{"folio":"F-100","client_id":"1042","email":false}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("update -> %d body=%s", w.Code, w.Body.String())
	}
	var rec domain.ClientManagementRecord
	if err := db.Where("sale_folio = ? AND client_id = ?", "F-100", "1042").First(&rec).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if rec.AllowEmailBatch {
		t.Fatal("email switch should be off")
	}
	if !rec.AllowWhatsAppBatch {
		t.Fatal("whatsapp switch must stay untouched")
	}
}

func TestSetMarketingSwitches_SpansClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlersDB(t)
	db.Create(&domain.ClientManagementRecord{SaleFolio: "F-100", ClientID: "77"})
	db.Create(&domain.ClientManagementRecord{SaleFolio: "F-200", ClientID: "77"})

	h := newTestHandlers(db, nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.PUT("/preferences/marketing", h.SetMarketingSwitches)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/preferences/marketing", bytes.NewBufferString(`{"client_id":"77","whatsapp":false}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("update -> %d body=%s", w.Code, w.Body.String())
	}

	var recs []domain.ClientManagementRecord
	db.Where("client_id = ?", "77").Find(&recs)
	if len(recs) != 2 {
		t.Fatalf("records = %d", len(recs))
	}
	for _, rec := range recs {
		if rec.AllowWhatsAppMarketing {
			t.Fatalf("sale %s kept marketing on", rec.SaleFolio)
		}
	}
}

// ---------- stage gates ----------

func TestStageAndProjectSwitches(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlersDB(t)
	db.Create(&domain.StageConfig{Project: "Lomas", Stage: "Etapa 1", ProjectEnabled: true, StageEnabled: true})
	db.Create(&domain.StageConfig{Project: "Lomas", Stage: "Etapa 2", ProjectEnabled: true, StageEnabled: true})

	h := newTestHandlers(db, nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.GET("/stages", h.ListStages)
	r.PUT("/stages", h.SetStageEnabled)
	r.PUT("/projects", h.SetProjectEnabled)

	// Toggle one stage off
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/stages", bytes.NewBufferString(`{"project":"Lomas","stage":"Etapa 1","enabled":false}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("stage toggle -> %d body=%s", w.Code, w.Body.String())
	}

	// Unknown stage -> 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/stages", bytes.NewBufferString(`{"project":"Lomas","stage":"Etapa 9","enabled":false}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown stage -> %d", w.Code)
	}

	// Project toggle reaches every stage
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/projects", bytes.NewBufferString(`{"project":"Lomas","enabled":false}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("project toggle -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/stages", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var states []domain.StageConfig
	if err := json.Unmarshal(w.Body.Bytes(), &states); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("states = %d", len(states))
	}
	for _, st := range states {
		if st.ProjectEnabled {
			t.Fatalf("stage %s kept project flag on", st.Stage)
		}
	}
	if states[0].StageEnabled {
		t.Fatal("Etapa 1 should stay off from the earlier toggle")
	}
}

// ---------- remote settings ----------

func TestPatchReminderSettings_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got struct{ hour, minute *int }
	settings := stubSettings{
		patchReminder: func(_ context.Context, _ string, _, _, hour, minute *int) error {
			got.hour, got.minute = hour, minute
			return nil
		},
	}
	h := newTestHandlers(nil, nil, nil, nil, settings, nil, nil)
	r := gin.New()
	r.PATCH("/settings/reminders", h.PatchReminderSettings)

	// Empty patch -> 400
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/settings/reminders", bytes.NewBufferString(`{}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty patch -> %d", w.Code)
	}

	// Out-of-range hour -> 400
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/settings/reminders", bytes.NewBufferString(`{"hora_recordatorio":24}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("hour 24 -> %d", w.Code)
	}

	// Valid partial patch -> 204, only the sent fields reach the store
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/settings/reminders", bytes.NewBufferString(`{"hora_recordatorio":18,"minuto_recordatorio":30}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("patch -> %d body=%s", w.Code, w.Body.String())
	}
	if got.hour == nil || *got.hour != 18 || got.minute == nil || *got.minute != 30 {
		t.Fatalf("store args: hour=%v minute=%v", got.hour, got.minute)
	}
}

func TestGetGeneralSettings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandlers(nil, nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.GET("/settings/general", h.GetGeneralSettings)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/settings/general", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d", w.Code)
	}
	var cfg docstore.CompanyConfig
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !cfg.ProjectEnabled || !cfg.EmailEnabled || !cfg.WhatsAppEnabled {
		t.Fatalf("config = %+v", cfg)
	}
}

// ---------- failure log ----------

func TestListFailures_LimitAndUnread(t *testing.T) {
	gin.SetMode(gin.TestMode)

	failures := stubFailures{
		feed: func(context.Context, string) ([]domain.FailureLogEntry, int) {
			return []domain.FailureLogEntry{
				{ID: "a", Message: "uno", Read: false},
				{ID: "b", Message: "dos", Read: true},
				{ID: "c", Message: "tres", Read: true},
			}, 1
		},
	}
	h := newTestHandlers(nil, nil, nil, nil, nil, failures, nil)
	r := gin.New()
	r.GET("/failures", h.ListFailures)

	// Unlimited feed
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/failures", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	var out struct {
		Unread  int                      `json:"no_leidos"`
		Entries []domain.FailureLogEntry `json:"registros"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Unread != 1 || len(out.Entries) != 3 {
		t.Fatalf("feed = %+v", out)
	}

	// ?limit=2 truncates the page but not the unread count
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/failures?limit=2", nil)
	r.ServeHTTP(w, req)
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Unread != 1 || len(out.Entries) != 2 || out.Entries[0].ID != "a" {
		t.Fatalf("limited feed = %+v", out)
	}

	// Garbage limit is ignored
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/failures?limit=x", nil)
	r.ServeHTTP(w, req)
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Entries) != 3 {
		t.Fatalf("garbage limit feed = %d entries", len(out.Entries))
	}
}

func TestMarkFailureRead(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotID string
	failures := stubFailures{
		markRead: func(_ context.Context, _ string, entryID string) error {
			gotID = entryID
			if entryID == "missing" {
				return docstore.ErrNotFound
			}
			return nil
		},
	}
	h := newTestHandlers(nil, nil, nil, nil, nil, failures, nil)
	r := gin.New()
	r.POST("/failures/:id/read", h.MarkFailureRead)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/failures/abc123/read", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || gotID != "abc123" {
		t.Fatalf("mark read -> %d id=%q", w.Code, gotID)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/failures/missing/read", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing entry -> %d", w.Code)
	}
}
