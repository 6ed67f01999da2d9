package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"venues-server/config"
	redisdao "venues-server/dao/redis"
	"venues-server/db"
	"venues-server/di"
	"venues-server/models/venue"
	services "venues-server/service"
)

const testPassword = "s3cret"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Store.Backend = config.BackendRedis
	cfg.Query.Timezone = "UTC"
	cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.Security.AdminPasswordHash = string(hash)
	cfg.Security.RateLimitRequests = 1000
	cfg.Security.RateLimitWindow = time.Minute
	cfg.Server.MaxBodyBytes = 1024
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*di.Container, http.Handler) {
	t.Helper()
	container, err := di.Build(cfg, redisdao.NewRedisVenueDAO(db.NewMockRedisClient()))
	require.NoError(t, err)
	return container, container.VenuesHttpServer.Handler()
}

func seed(t *testing.T, container *di.Container, name, category string, lat, lng float64) *venue.Venue {
	t.Helper()
	address := name + " street"
	cats := venue.ParseCategoryList(category)
	v, err := container.VenueService.CreateVenue(context.Background(), services.VenueInput{
		Name:     &name,
		Category: &cats,
		Address:  &address,
		Location: &services.LocationInput{Lat: &lat, Lng: &lng},
	})
	require.NoError(t, err)
	return v
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/api/admin/login", "", `{"username":"admin","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRouter_HealthAndNotFound(t *testing.T) {
	_, h := newTestServer(t, testConfig(t))

	rr := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, config.EnvironmentDevelopment, body["environment"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = do(t, h, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	body = decode(t, rr)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Can't find /nope on this server!", body["message"])
}

func TestRouter_Metrics(t *testing.T) {
	_, h := newTestServer(t, testConfig(t))

	do(t, h, http.MethodGet, "/health", "", "")
	rr := do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `route="/health"`)
}

func TestRouter_ListVenues(t *testing.T) {
	container, h := newTestServer(t, testConfig(t))
	bar := seed(t, container, "Blue Bar", "bars", 40.7128, -74.0060)
	seed(t, container, "Far Bar", "bars", 40.7398, -74.0060)
	seed(t, container, "Hotel", "hotels", 40.7129, -74.0060)

	rr := do(t, h, http.MethodGet, "/api/venues?category=bars&lat=40.7128&lng=-74.0060&radius=1000", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode(t, rr)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 1, body["results"])
	assert.EqualValues(t, 1, body["total"])
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, bar.ID, data[0].(map[string]interface{})["id"])
	assert.Equal(t, map[string]interface{}{"page": 0.0, "limit": 15.0, "totalPages": 1.0}, body["pagination"])

	rr = do(t, h, http.MethodGet, "/api/venues?page=1&limit=2", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode(t, rr)
	assert.EqualValues(t, 1, body["results"])
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 2, body["pagination"].(map[string]interface{})["totalPages"])

	rr = do(t, h, http.MethodGet, "/api/venues?category=zzz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode(t, rr)
	assert.Equal(t, []interface{}{}, body["data"])
	assert.EqualValues(t, 0, body["total"])
}

func TestRouter_ListVenues_ValidationErrors(t *testing.T) {
	_, h := newTestServer(t, testConfig(t))

	tests := []struct {
		query string
		field string
	}{
		{"lat=40.7", "lng"},
		{"lat=abc&lng=1", "lat"},
		{"limit=0", "limit"},
		{"lat=1&lng=1&radius=100001", "radius"},
		{"page=92233720368547759&limit=100", "page"},
	}

	for _, test := range tests {
		t.Run(test.query, func(t *testing.T) {
			rr := do(t, h, http.MethodGet, "/api/venues?"+test.query, "", "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			body := decode(t, rr)
			assert.Equal(t, "fail", body["status"])
			assert.Equal(t, test.field, body["field"])
		})
	}
}

func TestRouter_GetVenue(t *testing.T) {
	container, h := newTestServer(t, testConfig(t))
	v := seed(t, container, "Blue Bar", "bars", 40.7128, -74.0060)

	rr := do(t, h, http.MethodGet, "/api/venues/"+v.ID, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr)["data"].(map[string]interface{})
	assert.Equal(t, "Blue Bar", data["name"])

	rr = do(t, h, http.MethodGet, "/api/venues/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Venue not found", decode(t, rr)["message"])
}

func TestRouter_AdminLogin(t *testing.T) {
	_, h := newTestServer(t, testConfig(t))

	rr := do(t, h, http.MethodPost, "/api/admin/login", "", `{"username":"admin","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, map[string]interface{}{"admin": map[string]interface{}{"username": "admin", "role": "admin"}}, body["data"])

	rr = do(t, h, http.MethodPost, "/api/admin/login", "", `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/admin/login", "", `{"username":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Incorrect username or password", decode(t, rr)["message"])

	rr = do(t, h, http.MethodPost, "/api/admin/login", "", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_AdminVenueLifecycle(t *testing.T) {
	container, h := newTestServer(t, testConfig(t))
	token := login(t, h)

	rr := do(t, h, http.MethodPost, "/api/admin/venues", "",
		`{"name":"New Bar","category":"bars","address":"1 Main St","location":{"lat":40.71,"lng":-74.0}}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/admin/venues", token,
		`{"name":"New Bar","category":"bars, clubs","address":"1 Main St","location":{"lat":40.71,"lng":-74.0}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode(t, rr)["data"].(map[string]interface{})
	id := created["id"].(string)
	assert.Equal(t, []interface{}{"bars", "clubs"}, created["category"])
	assert.Equal(t, map[string]interface{}{"type": "Point", "coordinates": []interface{}{-74.0, 40.71}}, created["location"])

	rr = do(t, h, http.MethodPatch, "/api/admin/venues/"+id, token, `{"rating":4.5}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 4.5, decode(t, rr)["data"].(map[string]interface{})["rating"])

	rr = do(t, h, http.MethodPatch, "/api/admin/venues/"+id, token, `{"rating":7}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "rating", decode(t, rr)["field"])

	rr = do(t, h, http.MethodGet, "/api/admin/dashboard-stats", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	dashboard := decode(t, rr)["data"].(map[string]interface{})
	assert.EqualValues(t, 1, dashboard["totalVenues"])

	rr = do(t, h, http.MethodGet, "/api/admin/dashboard-stats/chart", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Venues by category")

	rr = do(t, h, http.MethodDelete, "/api/admin/venues/"+id, token, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	_, err := container.VenueService.GetVenue(context.Background(), id)
	assert.Error(t, err)

	rr = do(t, h, http.MethodDelete, "/api/admin/venues/"+id, token, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_AdminRoleRestriction(t *testing.T) {
	container, h := newTestServer(t, testConfig(t))
	token, err := container.JWTManager.GenerateToken("admin", "viewer")
	require.NoError(t, err)

	rr := do(t, h, http.MethodGet, "/api/admin/dashboard-stats", token, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/admin/venues/any", token, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "You do not have permission to perform this action", decode(t, rr)["message"])
}

func TestRouter_BodyLimit(t *testing.T) {
	_, h := newTestServer(t, testConfig(t))
	token := login(t, h)

	big := `{"name":"` + strings.Repeat("x", 2048) + `"}`
	rr := do(t, h, http.MethodPost, "/api/admin/venues", token, big)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RateLimitRequests = 2
	_, h := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", "").Code)
	}
	rr := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "fail", decode(t, rr)["status"])
}

func TestRouter_CORSPreflight(t *testing.T) {
	_, h := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/admin/venues", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	container, h := newTestServer(t, testConfig(t))
	container.MuxRouter.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rr := do(t, h, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["error"], "boom")
}

func TestVenuesHttpServer_ServeStopsWithContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	container, _ := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- container.VenuesHttpServer.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
