package core

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/notify"
	"github.com/caasmo/farmgate/oauth2"
	"golang.org/x/crypto/bcrypt"
)

const testJwtSecret = "test_secret_32_bytes_long_xxxxxx"

// MockValidator implements the Validator interface for testing
type MockValidator struct {
	ContentTypeFunc func(r *http.Request, allowedType string) (jsonResponse, error)
}

func (m *MockValidator) ContentType(r *http.Request, allowedType string) (jsonResponse, error) {
	return m.ContentTypeFunc(r, allowedType)
}

// MockAuth implements PasswordAuthenticator for testing
type MockAuth struct {
	AuthenticateFunc func(ctx context.Context, email, password, device string) (*db.User, error)
}

func (m *MockAuth) Authenticate(ctx context.Context, email, password, device string) (*db.User, error) {
	return m.AuthenticateFunc(ctx, email, password, device)
}

// MockBridge implements IdentityResolver for testing
type MockBridge struct {
	ResolveFunc func(ctx context.Context, p oauth2.Profile) (*db.User, error)
}

func (m *MockBridge) Resolve(ctx context.Context, p oauth2.Profile) (*db.User, error) {
	return m.ResolveFunc(ctx, p)
}

// paramMap answers path parameters from a fixed map.
// recordingNotifier keeps every notification it is sent.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Send(ctx context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) bySource(source string) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, n := range r.sent {
		if n.Source == source {
			out = append(out, n)
		}
	}
	return out
}

type paramMap map[string]string

func (p paramMap) Param(r *http.Request, name string) string {
	return p[name]
}

// memCache implements cache.Cache[string, any] without eviction. TTLs are
// ignored.
type memCache struct {
	mu         sync.Mutex
	items      map[string]any
	rejectSets bool
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string]any)}
}

func (c *memCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *memCache) Set(key string, value any, cost int64) bool {
	return c.SetWithTTL(key, value, cost, 0)
}

func (c *memCache) SetWithTTL(key string, value any, cost int64, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rejectSets {
		return false
	}
	c.items[key] = value
	return true
}

func (c *memCache) Del(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// testConfig is the default config with a fixed secret and the ip
// breaker off.
func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Jwt.Secret = testJwtSecret
	cfg.BlockIp.Enabled = false
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApp builds an App over d with an in memory cache. opts are
// applied after the defaults.
func newTestApp(t *testing.T, d db.DbApp, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	base := []Option{
		WithDb(d),
		WithConfigProvider(config.NewProvider(cfg)),
		WithCache(newMemCache()),
		WithParamGetter(paramMap{}),
		WithLogger(discardLogger()),
	}
	app, err := NewApp(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	return app
}

// fastHash is a bcrypt hash at the minimum cost, for fixtures only.
func fastHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rr.Body.String(), err)
	}
	return body
}

// assertResponse checks status and code of a JSON envelope and returns
// its data object, nil when absent.
func assertResponse(t *testing.T, rr *httptest.ResponseRecorder, wantStatus int, wantCode string) map[string]any {
	t.Helper()
	if rr.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, wantStatus, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["code"] != wantCode {
		t.Fatalf("code = %v, want %q", body["code"], wantCode)
	}
	if got, _ := body["status"].(float64); int(got) != wantStatus {
		t.Errorf("body status = %v, want %d", body["status"], wantStatus)
	}
	data, _ := body["data"].(map[string]any)
	return data
}

// codeOf returns the code of a precomputed response.
func codeOf(t *testing.T, resp jsonResponse) string {
	t.Helper()
	var basic JsonBasic
	if err := json.Unmarshal(resp.body, &basic); err != nil {
		t.Fatalf("precomputed body: %v", err)
	}
	return basic.Code
}
