package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// ---------- RequestID ----------

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		rid, _ := c.Get(requestIDKey)
		c.String(http.StatusOK, asString(rid))
	})

	// Without an incoming header a fresh UUID is minted.
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w1.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatal("expected a generated X-Request-ID header")
	}
	if w1.Body.String() != generated {
		t.Fatalf("context id %q != header id %q", w1.Body.String(), generated)
	}

	// An incoming header is reused verbatim.
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "rid-upstream")
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	if got := w2.Header().Get(requestIDHeader); got != "rid-upstream" {
		t.Fatalf("expected propagated id, got %q", got)
	}
	if w2.Body.String() != "rid-upstream" {
		t.Fatalf("context id = %q", w2.Body.String())
	}
}

// ---------- Recovery ----------

func TestRecovery_PanicsToJSON500AndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	buf := withCapturedLogger(t)

	r.Use(RequestID())
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaput") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(requestIDHeader, "rid-boom")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"code":"internal_error"`) || !strings.Contains(body, `"request_id":"rid-boom"`) {
		t.Fatalf("unexpected body: %s", body)
	}
	logs := buf.String()
	if !strings.Contains(logs, `"panic":"kaput"`) || !strings.Contains(logs, "panic recovered") {
		t.Fatalf("expected panic log with stack, got: %s", logs)
	}
	if !strings.Contains(logs, `"request_id":"rid-boom"`) {
		t.Fatalf("panic log missing request_id: %s", logs)
	}
}

func TestRecovery_PanicAfterWrite_NoJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	_ = withCapturedLogger(t)

	r.Use(Recovery())
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("after write")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))

	// The partial body must not be followed by the JSON error envelope.
	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("JSON error written after body started: %s", w.Body.String())
	}
}

// ---------- LoggerFrom ----------

func TestLoggerFrom_FallbackWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/anything", nil)

	if lg := LoggerFrom(c); lg == nil {
		t.Fatal("LoggerFrom must never return nil")
	}
}

// ---------- helpers ----------

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer", 7, "this is…"},
		{"no limit", 0, "no limit"},
		{"negative", -5, "negative"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestAsString(t *testing.T) {
	if got := asString("hello"); got != "hello" {
		t.Fatalf("asString = %q", got)
	}
	if got := asString(42); got != "" {
		t.Fatalf("asString(non-string) = %q", got)
	}
}
