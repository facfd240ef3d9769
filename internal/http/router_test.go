package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/hoststand/internal/config"
	"github.com/tbourn/hoststand/internal/http/middleware"
	"github.com/tbourn/hoststand/internal/repo"
	"github.com/tbourn/hoststand/internal/services"
)

// newTestDB opens a private in-memory database with the floor schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:router_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   50,
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

// newRouter wires a full engine against db with a private registry.
func newRouter(t *testing.T, db *gorm.DB, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reg := prometheus.NewRegistry()
	f := services.NewFloor(services.Deps{DB: db, Settings: services.DefaultSettings()})
	if err := RegisterRoutes(r, f, Options{Config: cfg, DB: db, Registerer: reg, Gatherer: reg}); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return r
}

func serve(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, newTestDB(t), baseConfig())

	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}

	w = serve(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "hoststand_http_requests_total") {
		t.Fatalf("GET /metrics: code=%d body=%.200s", w.Code, w.Body.String())
	}

	if w := serve(r, http.MethodGet, "/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/health", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://stand.local"}}
	r := newRouter(t, newTestDB(t), cfg)

	w := serve(r, http.MethodGet, "/health", "", "Origin", "http://stand.local")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://stand.local" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
	w = serve(r, http.MethodGet, "/health", "", "Origin", "http://elsewhere.local")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin echoed: %q", got)
	}
}

func TestRegisterRoutes_NilFloor(t *testing.T) {
	if err := RegisterRoutes(gin.New(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil floor")
	}
}

func TestRegisterRoutes_DuplicateRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	f := services.NewFloor(services.Deps{Settings: services.DefaultSettings()})
	opts := Options{Config: baseConfig(), Registerer: reg, Gatherer: reg}
	if err := RegisterRoutes(gin.New(), f, opts); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := RegisterRoutes(gin.New(), f, opts); err == nil {
		t.Fatal("second registration on the same registry should fail")
	}
}

func TestHealth_StoreDown(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(t, db, baseConfig())
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	_ = sqlDB.Close()

	if w := serve(r, http.MethodGet, "/health", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestFloorFlow_EndToEnd(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for _, tb := range []struct {
		n, cap int
		loc    string
	}{{1, 2, "Window"}, {2, 4, "Main"}} {
		if _, err := repo.CreateTable(ctx, db, tb.n, tb.cap, tb.loc); err != nil {
			t.Fatalf("seed table %d: %v", tb.n, err)
		}
	}
	r := newRouter(t, db, baseConfig())

	w := serve(r, http.MethodGet, "/api/v1/tables", "")
	var tables struct {
		Data []struct {
			Number int    `json:"table_number"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tables); err != nil || w.Code != http.StatusOK {
		t.Fatalf("tables: code=%d err=%v body=%s", w.Code, err, w.Body.String())
	}
	if len(tables.Data) != 2 || tables.Data[0].Status != "Available" {
		t.Fatalf("tables=%+v", tables.Data)
	}

	w = serve(r, http.MethodPost, "/api/v1/host?action=check-walk-in", `{"party_size":3}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"table_numbers":[2]`) {
		t.Fatalf("walk-in: code=%d body=%s", w.Code, w.Body.String())
	}

	body := `{"source":"walk-in","party_size":3,"table_numbers":[2]}`
	w = serve(r, http.MethodPost, "/api/v1/host/seat-party", body, middleware.HeaderIdempotencyKey, "stand-1-0001")
	if w.Code != http.StatusOK {
		t.Fatalf("seat: code=%d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatal("first seat flagged as replay")
	}

	w = serve(r, http.MethodPost, "/api/v1/host/seat-party", body, middleware.HeaderIdempotencyKey, "stand-1-0001")
	if w.Code != http.StatusOK || w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay: code=%d replayed=%q body=%s", w.Code, w.Header().Get("Idempotency-Replayed"), w.Body.String())
	}

	w = serve(r, http.MethodPost, "/api/v1/host/seat-party", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("seat occupied table: code=%d body=%s", w.Code, w.Body.String())
	}
	var conflict struct {
		Blocked []int `json:"blocked_tables"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &conflict)
	if len(conflict.Blocked) != 1 || conflict.Blocked[0] != 2 {
		t.Fatalf("blocked=%v", conflict.Blocked)
	}

	if w := serve(r, http.MethodPost, "/api/v1/host?action=teleport", "{}"); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown action: code=%d", w.Code)
	}
}

func TestSwagger_Toggle(t *testing.T) {
	cfg := baseConfig()
	r := newRouter(t, newTestDB(t), cfg)
	if w := serve(r, http.MethodGet, "/swagger/doc.json", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled: code=%d", w.Code)
	}

	cfg.SwaggerEnabled = true
	r = newRouter(t, newTestDB(t), cfg)
	w := serve(r, http.MethodGet, "/swagger/doc.json", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/host/seat-party") {
		t.Fatalf("swagger enabled: code=%d body=%.200s", w.Code, w.Body.String())
	}
}

func TestGzip_Negotiated(t *testing.T) {
	r := newRouter(t, newTestDB(t), baseConfig())
	w := serve(r, http.MethodGet, "/api/v1/tables", "", "Accept-Encoding", "gzip")
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", w.Header().Get("Content-Encoding"))
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, "")
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}

func TestIdempotencyLookup_StoreDown(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(t, db, baseConfig())
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	// The lookup fails open; the request reaches the handler, which then
	// reports the store failure.
	w := serve(r, http.MethodPost, "/api/v1/host/seat-party", `{"party_size":2,"table_numbers":[1]}`,
		middleware.HeaderIdempotencyKey, "k-"+time.Now().Format("150405"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", w.Code, w.Body.String())
	}
}
