package core

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caasmo/farmgate/config"
)

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name                string
		remoteAddr          string
		proxyHeader         string
		proxyHeaderValue    string
		clientIpProxyHeader string
		expectedIP          string
	}{
		{
			name:       "direct connection ipv4",
			remoteAddr: "192.0.2.1:12345",
			expectedIP: "192.0.2.1",
		},
		{
			name:       "direct connection ipv6",
			remoteAddr: "[2001:db8::1]:12345",
			expectedIP: "2001:db8::1",
		},
		{
			name:       "direct connection no port",
			remoteAddr: "192.0.2.1",
			expectedIP: "192.0.2.1",
		},
		{
			name:                "proxy connection",
			remoteAddr:          "198.51.100.1:54321",
			proxyHeader:         "X-Forwarded-For",
			proxyHeaderValue:    "203.0.113.1",
			clientIpProxyHeader: "X-Forwarded-For",
			expectedIP:          "203.0.113.1",
		},
		{
			name:                "proxy connection multiple ips",
			remoteAddr:          "198.51.100.1:54321",
			proxyHeader:         "X-Forwarded-For",
			proxyHeaderValue:    "203.0.113.1, 198.51.100.2",
			clientIpProxyHeader: "X-Forwarded-For",
			expectedIP:          "203.0.113.1",
		},
		{
			name:                "proxy header not set",
			remoteAddr:          "192.0.2.1:12345",
			clientIpProxyHeader: "X-Forwarded-For",
			expectedIP:          "192.0.2.1",
		},
		{
			name:             "header ignored when not configured",
			remoteAddr:       "192.0.2.1:12345",
			proxyHeader:      "X-Forwarded-For",
			proxyHeaderValue: "203.0.113.1",
			expectedIP:       "192.0.2.1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			cfg.Server.ClientIpProxyHeader = tc.clientIpProxyHeader
			app := &App{configProvider: config.NewProvider(cfg)}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.proxyHeader != "" {
				req.Header.Set(tc.proxyHeader, tc.proxyHeaderValue)
			}

			if ip := app.GetClientIP(req); ip != tc.expectedIP {
				t.Errorf("GetClientIP() = %q, want %q", ip, tc.expectedIP)
			}
		})
	}
}

func TestDevice(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", strings.Repeat("a", 300))
	if got := device(req); len(got) != maxDeviceLength {
		t.Errorf("device length = %d, want %d", len(got), maxDeviceLength)
	}

	req.Header.Set("User-Agent", "  curl/8.0 ")
	if got := device(req); got != "curl/8.0" {
		t.Errorf("device = %q, want curl/8.0", got)
	}
}

func TestDecodeJsonRejectsOversizedBody(t *testing.T) {
	app := &App{validator: NewValidator()}
	body := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", MimeTypeJSON)
	rr := httptest.NewRecorder()

	var dst struct {
		Email string `json:"email"`
	}
	resp, ok := app.decodeJson(rr, req, &dst)
	if ok {
		t.Fatal("expected oversized body to be rejected")
	}
	if resp.status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.status)
	}
}
