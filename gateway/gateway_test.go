package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/shopdash/pkg/backend"
	"github.com/example/shopdash/pkg/config"
	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/models"
	"github.com/example/shopdash/pkg/repository"
)

const productsJSON = `{"success":true,"products":[
	{"_id":"p1","name":"Green Tea","category":"Tea","originalPrice":10,"createdAt":"2024-03-01T10:00:00Z"},
	{"_id":"p2","name":"Coffee Beans","category":"Coffee","originalPrice":20,"createdAt":"2024-03-05T10:00:00Z"}
]}`

type storefront struct {
	mu     sync.Mutex
	calls  []string
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func (s *storefront) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	s.mu.Lock()
	s.calls = append(s.calls, key)
	h, ok := s.routes[key]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"no route"}`)
		return
	}
	h(w, r)
}

func (s *storefront) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func reply(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

type memFilters struct {
	mu    sync.Mutex
	saved map[string]*repository.SavedFilter
}

func (m *memFilters) Get(_ context.Context, userID, view string) (*repository.SavedFilter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.saved[userID+"|"+view]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f, nil
}

func (m *memFilters) Save(_ context.Context, userID, view string, c filter.Criteria) (*repository.SavedFilter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &repository.SavedFilter{UserID: userID, View: view, Term: c.Term, MinDate: c.MinDate, UpdatedAt: time.Now()}
	m.saved[userID+"|"+view] = f
	return f, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []*repository.AuditEntry
}

func (m *memAudit) RecordMutation(_ context.Context, e *repository.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) AuditTrail(_ context.Context, view, entityID string, limit int64) ([]*repository.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*repository.AuditEntry, 0)
	for i := len(m.entries) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		e := m.entries[i]
		if e.View == view && (entityID == "" || e.EntityID == entityID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAudit) Entries() []*repository.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*repository.AuditEntry(nil), m.entries...)
}

type harness struct {
	gw      *Gateway
	front   *storefront
	audit   *memAudit
	filters *memFilters
}

func newHarness(t *testing.T, routes map[string]func(http.ResponseWriter, *http.Request), opts ...func(*config.Config)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	front := &storefront{routes: routes}
	srv := httptest.NewServer(front)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	repo := repository.NewRedisRepository(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = repo.Close() })

	cfg := &config.Config{
		Gateway: config.GatewayConfig{LoginPath: "/login"},
		Backend: config.BackendConfig{BaseURL: srv.URL, Timeout: 2 * time.Second},
		Views:   config.ViewsConfig{Debounce: 10 * time.Millisecond, StaleOnFail: true},
		Session: config.SessionConfig{TTL: time.Hour, ToastTTL: time.Minute},
	}
	for _, o := range opts {
		o(cfg)
	}
	logger := zaptest.NewLogger(t)
	h := &harness{
		front:   front,
		audit:   &memAudit{},
		filters: &memFilters{saved: map[string]*repository.SavedFilter{}},
	}
	h.gw = NewGateway(cfg, logger, Deps{
		Backend:  backend.New(cfg.Backend, backend.WithLogger(logger)),
		Sessions: repo,
		Toasts:   repository.NewToastInbox(repo, time.Minute, logger),
		Filters:  h.filters,
		Audit:    h.audit,
		Gatherer: prometheus.NewRegistry(),
	})
	t.Cleanup(func() { _ = h.gw.Shutdown(context.Background()) })
	return h
}

func token(t *testing.T, role models.Role, shop string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u-" + string(role),
		Role:   string(role),
		ShopID: shop,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte("storefront-secret"))
	require.NoError(t, err)
	return s
}

func (h *harness) do(method, path, session, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(HeaderSessionID, session)
	}
	w := httptest.NewRecorder()
	h.gw.Handler().ServeHTTP(w, req)
	return w
}

func (h *harness) login(t *testing.T, role models.Role, shop string) string {
	t.Helper()
	w := h.do(http.MethodPost, "/api/v1/session", "", `{"token":"`+token(t, role, shop)+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sid := w.Header().Get(HeaderSessionID)
	require.NotEmpty(t, sid)
	return sid
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCreateSession(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodPost, "/api/v1/session", "", `{"token":"`+token(t, models.RoleAdmin, "")+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "admin", body["role"])
	assert.Equal(t, "u-admin", body["userId"])
	assert.Equal(t, body["sessionId"], w.Header().Get(HeaderSessionID))

	w = h.do(http.MethodGet, "/api/v1/views", w.Header().Get(HeaderSessionID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"admin-products"`)
	assert.Contains(t, w.Body.String(), `"name":"subcategories"`)
}

func TestCreateSessionRejectsBadToken(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodPost, "/api/v1/session", "", `{"token":"not-a-jwt"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/v1/session", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnauthorizedRequests(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodGet, "/api/v1/views/admin-orders", "", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = h.do(http.MethodPost, "/api/v1/orders", "unknown-session", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", decode(t, w)["redirect"])
}

func TestGetViewFiltersRows(t *testing.T) {
	h := newHarness(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /admin/products": reply(http.StatusOK, productsJSON),
	})
	sid := h.login(t, models.RoleAdmin, "")

	w := h.do(http.MethodGet, "/api/v1/views/admin-products", sid, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "success", body["state"])
	assert.EqualValues(t, 2, body["count"])

	w = h.do(http.MethodGet, "/api/v1/views/admin-products?q=tea", sid, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = h.do(http.MethodGet, "/api/v1/views/admin-products?q=&from=2024-03-05", sid, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = h.do(http.MethodGet, "/api/v1/views/admin-products?from=March", sid, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Filtering happens on the records already held.
	assert.Equal(t, []string{"GET /admin/products"}, h.front.Calls())
}

func TestDeleteRecordNeedsConfirmation(t *testing.T) {
	h := newHarness(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /admin/products":      reply(http.StatusOK, productsJSON),
		"DELETE /admin/product/p1": reply(http.StatusOK, `{"success":true,"message":"ok"}`),
	})
	sid := h.login(t, models.RoleAdmin, "")
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/views/admin-products", sid, "").Code)

	w := h.do(http.MethodDelete, "/api/v1/views/admin-products/records/p1", sid, "")
	require.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.Equal(t, "Are you sure you want to delete this Product?", decode(t, w)["confirm"])
	assert.Equal(t, []string{"GET /admin/products"}, h.front.Calls())

	w = h.do(http.MethodDelete, "/api/v1/views/admin-products/records/p1?confirm=true", sid, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"GET /admin/products", "DELETE /admin/product/p1", "GET /admin/products"}, h.front.Calls())

	w = h.do(http.MethodGet, "/api/v1/toasts", sid, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Product deleted successfully")

	w = h.do(http.MethodGet, "/api/v1/toasts", sid, "")
	assert.JSONEq(t, `{"toasts":[]}`, w.Body.String())

	assert.Eventually(t, func() bool { return len(h.audit.Entries()) == 1 }, time.Second, 10*time.Millisecond)
	e := h.audit.Entries()[0]
	assert.Equal(t, "delete", e.Action)
	assert.Equal(t, "p1", e.EntityID)
	assert.Equal(t, "ok", e.Outcome)
}

func TestDeleteUnknownRecord(t *testing.T) {
	h := newHarness(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /admin/products": reply(http.StatusOK, productsJSON),
	})
	sid := h.login(t, models.RoleAdmin, "")

	w := h.do(http.MethodDelete, "/api/v1/views/admin-products/records/nope?confirm=true", sid, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, []string{"GET /admin/products"}, h.front.Calls())
}

func TestRolesEnforced(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login(t, models.RoleUser, "")

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/views/admin-orders", sid, "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/dashboard/stats", sid, "").Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPut, "/api/v1/orders/o1/status", sid, `{"status":"Delivered"}`).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/views/nowhere", sid, "").Code)
	assert.Empty(t, h.front.Calls())
}

func TestBackendUnauthorizedEndsSession(t *testing.T) {
	h := newHarness(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /order/admin-all-orders": reply(http.StatusUnauthorized, `{"message":"Please login to continue"}`),
	})
	sid := h.login(t, models.RoleAdmin, "")

	w := h.do(http.MethodGet, "/api/v1/views/admin-orders", sid, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = h.do(http.MethodGet, "/api/v1/views", sid, "")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestFetchFailureKeepsViewUsable(t *testing.T) {
	h := newHarness(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /admin/products": reply(http.StatusInternalServerError, `{"message":"boom"}`),
	})
	sid := h.login(t, models.RoleAdmin, "")

	w := h.do(http.MethodGet, "/api/v1/views/admin-products", sid, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body["state"])
	assert.NotEmpty(t, body["error"])
}

func TestSavedFilter(t *testing.T) {
	h := newHarness(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /admin/products": reply(http.StatusOK, productsJSON),
	})
	sid := h.login(t, models.RoleAdmin, "")

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/views/admin-products/saved-filter", sid, "").Code)

	w := h.do(http.MethodPut, "/api/v1/views/admin-products/saved-filter", sid, `{"q":"coffee"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode(t, w)["view"].(map[string]any)
	assert.EqualValues(t, 1, view["count"])

	w = h.do(http.MethodGet, "/api/v1/views/admin-products/saved-filter", sid, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "coffee", decode(t, w)["q"])

	// A new session picks the saved filter up on first mount.
	other := h.login(t, models.RoleAdmin, "")
	w = h.do(http.MethodGet, "/api/v1/views/admin-products", other, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])
}

func TestCreateProductRejectsInvalidForm(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login(t, models.RoleAdmin, "")

	w := h.do(http.MethodPost, "/api/v1/products", sid, `{"name":"Tea"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Please fill in all required fields correctly.", body["error"])
	assert.Contains(t, body["fields"], "description")
	assert.Empty(t, h.front.Calls())
}

func TestCreateProductRefetchesMountedView(t *testing.T) {
	h := newHarness(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /admin/products": reply(http.StatusOK, productsJSON),
		"POST /admin/product": reply(http.StatusCreated, `{"success":true,"product":{"_id":"p3","name":"Oolong"}}`),
	})
	sid := h.login(t, models.RoleAdmin, "")
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/views/admin-products", sid, "").Code)

	w := h.do(http.MethodPost, "/api/v1/products", sid,
		`{"name":"Oolong","description":"Leaf","category":"c1","originalPrice":12,"stock":3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{"GET /admin/products", "POST /admin/product", "GET /admin/products"}, h.front.Calls())
	assert.Contains(t, h.do(http.MethodGet, "/api/v1/toasts", sid, "").Body.String(), "Product created successfully")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/metrics", "", "").Code)
}

func TestDeleteSession(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login(t, models.RoleSeller, "shop-1")

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/v1/session", sid, "").Code)
	assert.Equal(t, http.StatusFound, h.do(http.MethodGet, "/api/v1/views", sid, "").Code)
}

func TestDeleteWithFailedRefetchStillSucceeds(t *testing.T) {
	var gets atomic.Int32
	h := newHarness(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /admin/products": func(w http.ResponseWriter, r *http.Request) {
			if gets.Add(1) == 1 {
				reply(http.StatusOK, productsJSON)(w, r)
				return
			}
			reply(http.StatusInternalServerError, `{"message":"boom"}`)(w, r)
		},
		"DELETE /admin/product/p1": reply(http.StatusOK, `{"success":true}`),
	})
	sid := h.login(t, models.RoleAdmin, "")
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/views/admin-products", sid, "").Code)

	w := h.do(http.MethodDelete, "/api/v1/views/admin-products/records/p1?confirm=true", sid, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "error", decode(t, w)["state"])
	assert.Equal(t, []string{"GET /admin/products", "DELETE /admin/product/p1", "GET /admin/products"}, h.front.Calls())

	assert.Eventually(t, func() bool { return len(h.audit.Entries()) == 1 }, time.Second, 10*time.Millisecond)
	e := h.audit.Entries()[0]
	assert.Equal(t, "delete", e.Action)
	assert.Equal(t, "ok", e.Outcome)
	assert.Empty(t, e.Message)
}

func TestSellerWithoutShopIsForbidden(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login(t, models.RoleSeller, "")

	for i := 0; i < 2; i++ {
		w := h.do(http.MethodGet, "/api/v1/views/seller-orders", sid, "")
		assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	}
	assert.Empty(t, h.front.Calls())
}

func TestAuditTrailRoute(t *testing.T) {
	h := newHarness(t, nil)
	h.audit.entries = []*repository.AuditEntry{
		{View: "admin-products", Action: "delete", EntityID: "p1", Outcome: "ok"},
		{View: "admin-products", Action: "update", EntityID: "p2", Outcome: "ok"},
		{View: "admin-products", Action: "update", EntityID: "p1", Outcome: "error"},
		{View: "user-orders", Action: "create", Outcome: "ok"},
	}
	admin := h.login(t, models.RoleAdmin, "")

	w := h.do(http.MethodGet, "/api/v1/views/admin-products/audit?entity=p1", admin, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		View    string                  `json:"view"`
		Entries []repository.AuditEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "update", body.Entries[0].Action)
	assert.Equal(t, "delete", body.Entries[1].Action)

	w = h.do(http.MethodGet, "/api/v1/views/admin-products/audit?limit=1", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Entries, 1)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/v1/views/admin-products/audit?limit=x", admin, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/views/nowhere/audit", admin, "").Code)

	seller := h.login(t, models.RoleSeller, "shop-1")
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/views/admin-products/audit", seller, "").Code)
}

func TestSessionCookieSecureFlag(t *testing.T) {
	for _, secure := range []bool{false, true} {
		h := newHarness(t, nil, func(cfg *config.Config) { cfg.Session.SecureCookie = secure })

		w := h.do(http.MethodPost, "/api/v1/session", "", `{"token":"`+token(t, models.RoleAdmin, "")+`"}`)
		require.Equal(t, http.StatusCreated, w.Code)
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieSession, cookies[0].Name)
		assert.Equal(t, secure, cookies[0].Secure)
		assert.True(t, cookies[0].HttpOnly)

		w = h.do(http.MethodDelete, "/api/v1/session", w.Header().Get(HeaderSessionID), "")
		require.Equal(t, http.StatusNoContent, w.Code)
		cookies = w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, secure, cookies[0].Secure)
	}
}
