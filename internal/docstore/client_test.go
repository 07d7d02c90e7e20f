package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := New(Config{BaseURL: srv.URL, Project: "test-project", APIKey: "test-key"})
	return c, srv
}

func TestGet(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Goog-Api-Key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		wantPath := "/projects/test-project/databases/(default)/documents/empresas/casaluz/configuracion/general"
		if r.URL.Path != wantPath {
			t.Errorf("path = %q; want %q", r.URL.Path, wantPath)
		}
		_ = json.NewEncoder(w).Encode(Document{
			Name:   "projects/p/databases/(default)/documents/empresas/casaluz/configuracion/general",
			Fields: Fields{"email_enabled": Bool(true)},
		})
	}))
	defer srv.Close()

	doc, err := c.Get(context.Background(), "empresas/casaluz/configuracion", "general")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.ID() != "general" {
		t.Fatalf("id = %q", doc.ID())
	}
	if !doc.Fields.GetBool("email_enabled", false) {
		t.Fatal("field should decode")
	}
}

func TestGet_NotFound(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := c.Get(context.Background(), "col", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestPatch_BuildsUpdateMask(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		masks := r.URL.Query()["updateMask.fieldPaths"]
		if len(masks) != 2 {
			t.Errorf("update mask = %v; want two field paths", masks)
		}
		var doc Document
		_ = json.NewDecoder(r.Body).Decode(&doc)
		if doc.Fields.GetString("mensaje", "") != "hola" {
			t.Errorf("patched fields = %v", doc.Fields)
		}
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer srv.Close()

	_, err := c.Patch(context.Background(), "logs", "abc", Fields{
		"mensaje":  String("hola"),
		"contador": Int(2),
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
}

func TestList_FollowsPagination(t *testing.T) {
	calls := 0
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(w, `{"documents":[{"name":"x/a"}],"nextPageToken":"t2"}`)
		case "t2":
			fmt.Fprint(w, `{"documents":[{"name":"x/b"}]}`)
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))
	defer srv.Close()

	docs, err := c.List(context.Background(), "plantillas")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d; want 2", calls)
	}
	if len(docs) != 2 || docs[0].ID() != "a" || docs[1].ID() != "b" {
		t.Fatalf("docs = %+v", docs)
	}
}

func TestQueryAllEqual_BuildsCompositeFilter(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":runQuery") {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req struct {
			StructuredQuery struct {
				Where struct {
					CompositeFilter struct {
						Op      string           `json:"op"`
						Filters []map[string]any `json:"filters"`
					} `json:"compositeFilter"`
				} `json:"where"`
				Limit int `json:"limit"`
			} `json:"structuredQuery"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.StructuredQuery.Where.CompositeFilter.Op != "AND" {
			t.Errorf("op = %q", req.StructuredQuery.Where.CompositeFilter.Op)
		}
		if len(req.StructuredQuery.Where.CompositeFilter.Filters) != 2 {
			t.Errorf("filters = %v", req.StructuredQuery.Where.CompositeFilter.Filters)
		}
		if req.StructuredQuery.Limit != 1 {
			t.Errorf("limit = %d; want 1", req.StructuredQuery.Limit)
		}
		fmt.Fprint(w, `[{"document":{"name":"ComprobantePago/r1"}},{}]`)
	}))
	defer srv.Close()

	docs, err := c.QueryAllEqual(context.Background(), "", "ComprobantePago", map[string]string{
		"phone": "+5215512345678",
		"unit":  "7B",
	}, 1)
	if err != nil {
		t.Fatalf("QueryAllEqual: %v", err)
	}
	if len(docs) != 1 || docs[0].ID() != "r1" {
		t.Fatalf("docs = %+v; rows without a document must be dropped", docs)
	}
}

func TestGetCompanyConfig_DefaultsToEnabled(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := c.GetCompanyConfig(context.Background(), "casaluz")
	if !cfg.ProjectEnabled || !cfg.EmailEnabled || !cfg.WhatsAppEnabled {
		t.Fatalf("missing document should default to enabled, got %+v", cfg)
	}
}

func TestGetCompanyConfig_ReadsSwitches(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(Document{
			Name: "x/general",
			Fields: Fields{
				"proyecto_activo":  Bool(true),
				"email_enabled":    Bool(false),
				"whatsapp_enabled": String("true"),
			},
		})
	}))
	defer srv.Close()

	cfg := c.GetCompanyConfig(context.Background(), "casaluz")
	if !cfg.ProjectEnabled || cfg.EmailEnabled || !cfg.WhatsAppEnabled {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestGetReminderConfig_FallsBackToDefaults(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := c.GetReminderConfig(context.Background(), "casaluz")
	if cfg != DefaultReminderConfig() {
		t.Fatalf("config = %+v; want defaults", cfg)
	}
}

func TestGetReminderConfig_AcceptsStringNumbers(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(Document{
			Name: "x/recordatorios",
			Fields: Fields{
				"recordatorio_1":      Int(5),
				"recordatorio_2":      String("2"),
				"hora_recordatorio":   String("18"),
				"minuto_recordatorio": Int(30),
			},
		})
	}))
	defer srv.Close()

	cfg := c.GetReminderConfig(context.Background(), "casaluz")
	want := ReminderConfig{Days1: 5, Days2: 2, Hour: 18, Minute: 30}
	if cfg != want {
		t.Fatalf("config = %+v; want %+v", cfg, want)
	}
}

func TestValueReaders(t *testing.T) {
	if v, ok := String("x").AsBool(); ok || v {
		t.Fatal("non-boolean string should not read as bool")
	}
	if v, ok := String("true").AsBool(); !ok || !v {
		t.Fatal("the string \"true\" should read as a bool")
	}
	if n, ok := String("42").AsInt(); !ok || n != 42 {
		t.Fatalf("string integer = %d, %v", n, ok)
	}
	if n, ok := Int(7).AsInt(); !ok || n != 7 {
		t.Fatalf("native integer = %d, %v", n, ok)
	}
	got := Strings([]string{"a", "b"}).AsStrings()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("array = %v", got)
	}
}
