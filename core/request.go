package core

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// maxDeviceLength bounds the user agent remembered as a device.
const maxDeviceLength = 256

// GetClientIP extracts the client IP address from the request. When the
// server runs behind a proxy, the first address of the configured header
// wins.
func (a *App) GetClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if header := a.Config().Server.ClientIpProxyHeader; header != "" {
		if forwarded := r.Header.Get(header); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			ip = strings.TrimSpace(first)
		}
	}
	return ip
}

// device is the user agent of the request, cut to maxDeviceLength.
func device(r *http.Request) string {
	ua := strings.TrimSpace(r.UserAgent())
	if len(ua) > maxDeviceLength {
		ua = ua[:maxDeviceLength]
	}
	return ua
}

// decodeJson checks the content type and decodes a bounded body into dst.
// On failure the precomputed response to write is returned.
func (a *App) decodeJson(w http.ResponseWriter, r *http.Request, dst any) (jsonResponse, bool) {
	if resp, err := a.Validator().ContentType(r, MimeTypeJSON); err != nil {
		return resp, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errorInvalidRequest, false
	}
	return jsonResponse{}, true
}
